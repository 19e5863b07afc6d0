package atlas

import "sort"

// QueryBatch is the pair of disjoint query lists the platform's historical
// endpoints accept, plus the back-references needed to regroup streamed
// results by device.
type QueryBatch struct {
	Readings []ReadingQuery
	Settings []SettingQuery

	// DeviceBySource maps construct id to owning device id.
	DeviceBySource map[string]string
}

// Empty reports whether the batch holds no queries at all.
func (b *QueryBatch) Empty() bool {
	return len(b.Readings) == 0 && len(b.Settings) == 0
}

// QueryBuilder partitions matched constructs into reading and setting
// queries. Every matched construct yields exactly one query entry; a
// construct added twice has its aggregation sets unioned, never a
// duplicate entry.
type QueryBuilder struct {
	aggregations []Aggregation

	readingIdx map[string]int
	settingIdx map[string]int
	batch      QueryBatch

	devices    map[string]*Device
	constructs map[string]Construct
}

// NewQueryBuilder creates a builder that attaches the given aggregation
// methods to every query it emits.
func NewQueryBuilder(aggregations []Aggregation) *QueryBuilder {
	return &QueryBuilder{
		aggregations: aggregations,
		readingIdx:   make(map[string]int),
		settingIdx:   make(map[string]int),
		batch: QueryBatch{
			DeviceBySource: make(map[string]string),
		},
		devices:    make(map[string]*Device),
		constructs: make(map[string]Construct),
	}
}

// Add appends queries for one device's matches.
func (b *QueryBuilder) Add(device *Device, matches *Matches) {
	b.devices[device.ID] = device
	matches.Each(func(ct Construct) {
		b.batch.DeviceBySource[ct.ID] = device.ID
		b.constructs[ct.ID] = ct

		if ct.Kind == KindSetting {
			if i, ok := b.settingIdx[ct.ID]; ok {
				b.batch.Settings[i].AggregateBy = unionAggregations(
					b.batch.Settings[i].AggregateBy, b.aggregations)
				return
			}
			b.settingIdx[ct.ID] = len(b.batch.Settings)
			b.batch.Settings = append(b.batch.Settings, SettingQuery{
				SettingID:   ct.ID,
				AggregateBy: unionAggregations(nil, b.aggregations),
			})
			return
		}

		if i, ok := b.readingIdx[ct.ID]; ok {
			b.batch.Readings[i].AggregateBy = unionAggregations(
				b.batch.Readings[i].AggregateBy, b.aggregations)
			return
		}
		b.readingIdx[ct.ID] = len(b.batch.Readings)
		b.batch.Readings = append(b.batch.Readings, ReadingQuery{
			SourceID:    ct.ID,
			AggregateBy: unionAggregations(nil, b.aggregations),
		})
	})
}

// Batch returns the accumulated queries.
func (b *QueryBuilder) Batch() *QueryBatch { return &b.batch }

// Device returns the device recorded for an id during Add.
func (b *QueryBuilder) Device(id string) (*Device, bool) {
	d, ok := b.devices[id]
	return d, ok
}

// Construct returns the matched construct recorded for a source id.
func (b *QueryBuilder) Construct(sourceID string) (Construct, bool) {
	ct, ok := b.constructs[sourceID]
	return ct, ok
}

func unionAggregations(have, add []Aggregation) []Aggregation {
	seen := make(map[Aggregation]bool, len(have)+len(add))
	out := make([]Aggregation, 0, len(have)+len(add))
	for _, a := range have {
		if !seen[a] {
			seen[a] = true
			out = append(out, a)
		}
	}
	for _, a := range add {
		if !seen[a] {
			seen[a] = true
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
