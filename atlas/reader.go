package atlas

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// ReadOptions tunes one Read call.
type ReadOptions struct {
	// Start and End bound the query window. Zero values default to the
	// trailing ten minutes ending now, in UTC.
	Start time.Time
	End   time.Time

	// Interval is the sampling interval.
	Interval time.Duration

	// AggregateBy lists the reductions applied per interval.
	AggregateBy []Aggregation
}

// DefaultReadOptions returns the options Read assumes when given nil.
func DefaultReadOptions() *ReadOptions {
	return &ReadOptions{
		Interval:    60 * time.Second,
		AggregateBy: []Aggregation{AggregateAvg},
	}
}

// MetricsReader is the high-level API for reading metric time series.
type MetricsReader struct {
	client *Client
	logger *logrus.Logger
}

// NewMetricsReader creates a reader over a client.
func NewMetricsReader(client *Client, logger *logrus.Logger) *MetricsReader {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}
	return &MetricsReader{client: client, logger: logger}
}

// Read resolves the filter against each facility's live topology, queries
// historical values and folds the streamed results into grouped time
// series indexed by facility short name.
//
// Facilities are processed sequentially; the first unrecoverable error
// aborts the whole call and no partial result is returned. Configuration
// problems are reported before any network call.
func (r *MetricsReader) Read(ctx context.Context, filter Filter, opts *ReadOptions) (Result, error) {
	if opts == nil {
		opts = DefaultReadOptions()
	}
	start, end, err := r.validate(&filter, opts)
	if err != nil {
		return nil, err
	}

	facilities, err := r.client.FilterFacilities(ctx, filter.Facilities)
	if err != nil {
		return nil, err
	}

	result := make(Result, len(facilities))
	for i := range facilities {
		facility := &facilities[i]
		groups, err := r.readFacility(ctx, facility, filter.Metrics, start, end, opts)
		if err != nil {
			return nil, err
		}
		// Each facility owns its result slot; the merge is a plain insert.
		result[facility.ShortName] = groups
	}
	return result, nil
}

// ReadFlat is Read followed by flattening into per-facility sample lists
// sorted by (device id, timestamp).
func (r *MetricsReader) ReadFlat(ctx context.Context, filter Filter, opts *ReadOptions) (map[string][]FlatSample, error) {
	nested, err := r.Read(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	return nested.Flatten(), nil
}

// validate applies the configuration checks that must fail before any
// network call, and resolves the query window.
func (r *MetricsReader) validate(filter *Filter, opts *ReadOptions) (start, end time.Time, err error) {
	if len(filter.Metrics) == 0 {
		return start, end, ErrNoMetrics
	}
	for i := range filter.Metrics {
		// Validate by index so the vocabulary's construct kind auto-fill
		// sticks for the matching stage.
		if err := filter.Metrics[i].Validate(); err != nil {
			return start, end, err
		}
	}

	if opts.Interval <= 0 {
		return start, end, fmt.Errorf("%w: interval %s", ErrInvalidWindow, opts.Interval)
	}
	if len(opts.AggregateBy) == 0 {
		return start, end, fmt.Errorf("%w: no aggregation methods", ErrInvalidWindow)
	}

	now := time.Now().UTC()
	start, end = opts.Start, opts.End
	if start.IsZero() {
		start = now.Add(-10 * time.Minute)
	}
	if end.IsZero() {
		end = now
	}
	if !start.Before(end) {
		return start, end, fmt.Errorf("%w: start %s is not before end %s",
			ErrInvalidWindow, wireTime(start), wireTime(end))
	}
	return start, end, nil
}

func (r *MetricsReader) readFacility(ctx context.Context, facility *Facility, specs []MetricSpec, start, end time.Time, opts *ReadOptions) ([]*TimeSeriesGroup, error) {
	devices, err := r.client.ListDevices(ctx, facility)
	if err != nil {
		return nil, fmt.Errorf("listing devices for facility %s: %w", facility.DisplayName, err)
	}

	builder := NewQueryBuilder(opts.AggregateBy)
	for i := range devices {
		device := &devices[i]
		matches, err := Match(NewCatalog(device), specs)
		if err != nil {
			return nil, err
		}
		if matches.Len() == 0 {
			continue
		}
		builder.Add(device, matches)
	}

	batch := builder.Batch()
	if batch.Empty() {
		return nil, fmt.Errorf("%w for facility %s", ErrNoQueries, facility.ShortName)
	}

	r.logger.WithFields(logrus.Fields{
		"facility": facility.ShortName,
		"devices":  len(devices),
		"readings": len(batch.Readings),
		"settings": len(batch.Settings),
	}).Debug("executing historical queries")

	grouper := NewGrouper(builder)

	if len(batch.Readings) > 0 {
		stream, err := r.client.QueryReadings(ctx, facility, batch.Readings, start, end, opts.Interval)
		if err != nil {
			return nil, fmt.Errorf("querying readings for facility %s: %w", facility.DisplayName, err)
		}
		if err := grouper.Consume(stream); err != nil {
			return nil, fmt.Errorf("reading results for facility %s: %w", facility.DisplayName, err)
		}
	}
	if len(batch.Settings) > 0 {
		stream, err := r.client.QuerySettings(ctx, facility, batch.Settings, start, end, opts.Interval)
		if err != nil {
			return nil, fmt.Errorf("querying settings for facility %s: %w", facility.DisplayName, err)
		}
		if err := grouper.Consume(stream); err != nil {
			return nil, fmt.Errorf("setting results for facility %s: %w", facility.DisplayName, err)
		}
	}

	return grouper.Groups(), nil
}
