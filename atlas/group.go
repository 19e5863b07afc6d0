package atlas

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"
)

// groupKey identifies one time series within a facility's results.
type groupKey struct {
	deviceID      string
	constructID   string
	constructKind ConstructKind
	aggregation   Aggregation
}

// Grouper folds streamed records into time series groups keyed by
// (device, construct, construct kind, aggregation). Groups are created
// lazily on first matching record; samples are appended in arrival order,
// which equals chronological order under the platform's contract, and are
// never re-sorted here.
type Grouper struct {
	builder *QueryBuilder

	groups map[groupKey]*TimeSeriesGroup
	order  []groupKey
}

// NewGrouper creates a grouper resolving devices and constructs through
// the query builder's back-reference maps.
func NewGrouper(builder *QueryBuilder) *Grouper {
	return &Grouper{
		builder: builder,
		groups:  make(map[groupKey]*TimeSeriesGroup),
	}
}

// Consume drains a record stream into the grouper. The stream is closed
// before returning, including when a record fails mid-stream.
func (g *Grouper) Consume(stream *RecordStream) error {
	defer stream.Close()
	for {
		rec, err := stream.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := g.Add(rec); err != nil {
			return err
		}
	}
}

// Add folds one record into its groups. A record whose source id is not
// in the back-reference maps is a consistency error: it means the response
// no longer matches the query that was sent, and there is no policy to
// silently drop it.
func (g *Grouper) Add(rec *RawResultRecord) error {
	deviceID, ok := g.builder.Batch().DeviceBySource[rec.SourceID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSource, rec.SourceID)
	}
	construct, ok := g.builder.Construct(rec.SourceID)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSource, rec.SourceID)
	}
	device, ok := g.builder.Device(deviceID)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSource, rec.SourceID)
	}

	ts, err := time.Parse(WireTimeLayout, rec.Time)
	if err != nil {
		return fmt.Errorf("parsing record time %q for source %q: %w", rec.Time, rec.SourceID, err)
	}

	for _, rv := range rec.Results {
		agg := rv.Aggregation
		if agg == "" {
			agg = DefaultAggregation
		}

		value, ok := sampleValue(rec.Kind, rv)
		if !ok {
			// Settings with no usable payload (absent numeric, or
			// sequence/schedule variants) contribute no sample; readings
			// in the same situation emit a NaN sample instead.
			continue
		}

		group := g.group(device, construct, agg)
		group.Samples = append(group.Samples, Sample{Timestamp: ts, Value: value})
	}
	return nil
}

// sampleValue normalizes a result payload to a scalar. The second return
// is false only on the setting path, where a result without a usable
// payload contributes no sample.
func sampleValue(kind SourceKind, rv ResultValue) (float64, bool) {
	switch {
	case kind == SourceReading && rv.Number != nil:
		return rv.Number.Scaled, true
	case kind == SourceSetting && rv.Scalar != nil:
		return *rv.Scalar, true
	case rv.Bool != nil:
		if *rv.Bool {
			return 1, true
		}
		return 0, true
	case rv.Enum != nil:
		return float64(*rv.Enum), true
	case kind == SourceReading:
		return math.NaN(), true
	default:
		return 0, false
	}
}

func (g *Grouper) group(device *Device, construct Construct, agg Aggregation) *TimeSeriesGroup {
	key := groupKey{
		deviceID:      device.ID,
		constructID:   construct.ID,
		constructKind: construct.Kind,
		aggregation:   agg,
	}
	if group, ok := g.groups[key]; ok {
		return group
	}
	group := &TimeSeriesGroup{
		DeviceID:       device.ID,
		DeviceName:     device.Name,
		DeviceAlias:    device.Alias,
		ConstructID:    construct.ID,
		ConstructAlias: construct.Alias,
		ConstructKind:  construct.Kind,
		Aggregation:    agg,
	}
	g.groups[key] = group
	g.order = append(g.order, key)
	return group
}

// Groups returns the finalized groups in creation order.
func (g *Grouper) Groups() []*TimeSeriesGroup {
	out := make([]*TimeSeriesGroup, 0, len(g.order))
	for _, key := range g.order {
		out = append(out, g.groups[key])
	}
	return out
}
