package atlas

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// HourlyRate is one hour of a utility rate schedule.
type HourlyRate struct {
	Start time.Time `json:"start"`
	Rate  float64   `json:"rate"`
}

// HourlyRates groups a facility's utility rate schedules by charge type.
type HourlyRates struct {
	UsageRate             []HourlyRate `json:"usage_rate"`
	MaximumDemandCharge   []HourlyRate `json:"maximum_demand_charge"`
	TimeOfUseDemandCharge []HourlyRate `json:"time_of_use_demand_charge"`
	DayAheadMarketRate    []HourlyRate `json:"day_ahead_market_rate"`
	RealTimeMarketRate    []HourlyRate `json:"real_time_market_rate"`
}

// wireHourlyRate carries epoch seconds on the wire.
type wireHourlyRate struct {
	Start int64   `json:"start"`
	Rate  float64 `json:"rate"`
}

type wireHourlyRates struct {
	UsageRate             []wireHourlyRate `json:"usage_rate"`
	MaximumDemandCharge   []wireHourlyRate `json:"maximum_demand_charge"`
	TimeOfUseDemandCharge []wireHourlyRate `json:"time_of_use_demand_charge"`
	DayAheadMarketRate    []wireHourlyRate `json:"day_ahead_market_rate"`
	RealTimeMarketRate    []wireHourlyRate `json:"real_time_market_rate"`
}

func convertRates(in []wireHourlyRate) []HourlyRate {
	out := make([]HourlyRate, 0, len(in))
	for _, r := range in {
		out = append(out, HourlyRate{
			Start: time.Unix(r.Start, 0).UTC(),
			Rate:  r.Rate,
		})
	}
	return out
}

// HourlyRates fetches a facility's utility rate schedules. Zero since and
// until default to the trailing 24 hours ending now.
func (c *Client) HourlyRates(ctx context.Context, facility *Facility, since, until time.Time) (*HourlyRates, error) {
	agentID, err := agentFor(facility)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if since.IsZero() {
		since = now.Add(-24 * time.Hour)
	}
	if until.IsZero() {
		until = now
	}
	if !since.Before(until) {
		return nil, fmt.Errorf("%w: since %s is not before until %s",
			ErrInvalidWindow, wireTime(since), wireTime(until))
	}

	path := fmt.Sprintf("/orgs/%s/agents/%s/rates", facility.OrganizationID, agentID)
	params := url.Values{
		"since": []string{wireTime(since)},
		"until": []string{wireTime(until)},
	}
	resp, err := c.transport.Get(ctx, path, params)
	if err != nil {
		return nil, err
	}

	var wire wireHourlyRates
	if err := resp.JSON(&wire); err != nil {
		return nil, err
	}
	return &HourlyRates{
		UsageRate:             convertRates(wire.UsageRate),
		MaximumDemandCharge:   convertRates(wire.MaximumDemandCharge),
		TimeOfUseDemandCharge: convertRates(wire.TimeOfUseDemandCharge),
		DayAheadMarketRate:    convertRates(wire.DayAheadMarketRate),
		RealTimeMarketRate:    convertRates(wire.RealTimeMarketRate),
	}, nil
}
