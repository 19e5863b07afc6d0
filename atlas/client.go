package atlas

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/atlasenergy/atlasgo/transport"
)

// Transport is the request/response collaborator the client drives. The
// production implementation is *transport.Client; tests substitute spies.
type Transport interface {
	Get(ctx context.Context, path string, query url.Values) (*transport.Response, error)
	Stream(ctx context.Context, path string, body interface{}) (*transport.LineStream, error)
	UserID(ctx context.Context) (string, error)
}

// Client exposes the platform's topology, historical-value and rates
// endpoints. It holds no per-facility state; every call fetches a fresh
// snapshot.
type Client struct {
	transport Transport
	logger    *logrus.Logger
}

// NewClient wraps a transport. A nil logger falls back to a quiet one.
func NewClient(t Transport, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}
	return &Client{transport: t, logger: logger}
}

// ListFacilities lists the facilities the authenticated user can access.
func (c *Client) ListFacilities(ctx context.Context) ([]Facility, error) {
	uid, err := c.transport.UserID(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{"view": []string{"extended"}}
	resp, err := c.transport.Get(ctx, fmt.Sprintf("/users/%s/facilities", uid), params)
	if err != nil {
		return nil, err
	}

	var facilities []Facility
	if err := resp.JSON(&facilities); err != nil {
		return nil, err
	}
	return facilities, nil
}

// FilterFacilities resolves facility short names. An empty filter returns
// every accessible facility; any name that does not resolve aborts with an
// error naming all missing short names.
func (c *Client) FilterFacilities(ctx context.Context, filter []string) ([]Facility, error) {
	all, err := c.ListFacilities(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing facilities: %w", err)
	}
	if len(filter) == 0 {
		return all, nil
	}

	byShortName := make(map[string]Facility, len(all))
	for _, f := range all {
		byShortName[f.ShortName] = f
	}

	facilities := make([]Facility, 0, len(filter))
	var missing []string
	for _, name := range filter {
		f, ok := byShortName[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		facilities = append(facilities, f)
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("%w: %s", ErrFacilityNotFound, strings.Join(missing, ", "))
	}
	return facilities, nil
}

// ListDevices fetches the facility's device topology at its currently
// deployed blueprint version.
func (c *Client) ListDevices(ctx context.Context, facility *Facility) ([]Device, error) {
	agentID, err := agentFor(facility)
	if err != nil {
		return nil, err
	}

	deployment, err := c.currentDeployment(ctx, facility.OrganizationID, agentID)
	if err != nil {
		return nil, err
	}

	path := fmt.Sprintf("/orgs/%s/agents/%s/devices", facility.OrganizationID, agentID)
	params := url.Values{"version": []string{strconv.Itoa(deployment.BlueprintVersion)}}
	resp, err := c.transport.Get(ctx, path, params)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Values []Device `json:"values"`
	}
	if err := resp.JSON(&payload); err != nil {
		return nil, err
	}
	return payload.Values, nil
}

// QueryReadings issues a streaming historical-readings query. The caller
// consumes and closes the returned stream.
func (c *Client) QueryReadings(ctx context.Context, facility *Facility, queries []ReadingQuery, start, end time.Time, interval time.Duration) (*RecordStream, error) {
	agentID, err := agentFor(facility)
	if err != nil {
		return nil, err
	}

	path := fmt.Sprintf("/orgs/%s/agents/%s/historical-readings", facility.OrganizationID, agentID)
	body := map[string]interface{}{
		"queries":  queries,
		"start":    wireTime(start),
		"end":      wireTime(end),
		"interval": int(interval.Seconds()),
		"scaled":   true,
	}
	lines, err := c.transport.Stream(ctx, path, body)
	if err != nil {
		return nil, err
	}
	return DecodeReadings(lines), nil
}

// QuerySettings issues a streaming historical-settings query.
func (c *Client) QuerySettings(ctx context.Context, facility *Facility, queries []SettingQuery, start, end time.Time, interval time.Duration) (*RecordStream, error) {
	agentID, err := agentFor(facility)
	if err != nil {
		return nil, err
	}

	path := fmt.Sprintf("/orgs/%s/agents/%s/historical-settings", facility.OrganizationID, agentID)
	body := map[string]interface{}{
		"queries":  queries,
		"start":    wireTime(start),
		"end":      wireTime(end),
		"interval": int(interval.Seconds()),
	}
	lines, err := c.transport.Stream(ctx, path, body)
	if err != nil {
		return nil, err
	}
	return DecodeSettings(lines), nil
}

func (c *Client) currentDeployment(ctx context.Context, orgID, agentID string) (*Deployment, error) {
	path := fmt.Sprintf("/orgs/%s/agents/%s/site-narratives/deployments/current", orgID, agentID)
	resp, err := c.transport.Get(ctx, path, nil)
	if err != nil {
		return nil, err
	}

	var payload struct {
		ID        string `json:"id"`
		AgentID   string `json:"agent_id"`
		OrgID     string `json:"org_id"`
		Blueprint struct {
			Version int `json:"version"`
		} `json:"blueprint"`
	}
	if err := resp.JSON(&payload); err != nil {
		return nil, err
	}
	return &Deployment{
		ID:               payload.ID,
		AgentID:          payload.AgentID,
		OrganizationID:   payload.OrgID,
		BlueprintVersion: payload.Blueprint.Version,
	}, nil
}

func agentFor(facility *Facility) (string, error) {
	if len(facility.Agents) == 0 {
		return "", fmt.Errorf("facility %s has no agents", facility.ShortName)
	}
	return facility.Agents[0].AgentID, nil
}

// wireTime renders a timestamp in the platform's literal wire layout,
// always in UTC.
func wireTime(t time.Time) string {
	return t.UTC().Format(WireTimeLayout)
}
