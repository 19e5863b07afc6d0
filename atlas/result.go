package atlas

import "sort"

// Result maps facility short names to that facility's time series groups,
// in group creation order.
type Result map[string][]*TimeSeriesGroup

// FlatSample is one fully-denormalized sample of a flattened result.
type FlatSample struct {
	Facility       string        `json:"facility"`
	DeviceID       string        `json:"device_id"`
	DeviceName     string        `json:"device_name"`
	DeviceAlias    string        `json:"device_alias"`
	ConstructID    string        `json:"construct_id"`
	ConstructAlias string        `json:"construct_alias"`
	ConstructKind  ConstructKind `json:"construct_kind"`
	Aggregation    Aggregation   `json:"aggregation"`
	Sample
}

// Flatten denormalizes the nested result into per-facility sample lists
// sorted by (device id, timestamp).
func (r Result) Flatten() map[string][]FlatSample {
	out := make(map[string][]FlatSample, len(r))
	for facility, groups := range r {
		var flat []FlatSample
		for _, g := range groups {
			for _, s := range g.Samples {
				flat = append(flat, FlatSample{
					Facility:       facility,
					DeviceID:       g.DeviceID,
					DeviceName:     g.DeviceName,
					DeviceAlias:    g.DeviceAlias,
					ConstructID:    g.ConstructID,
					ConstructAlias: g.ConstructAlias,
					ConstructKind:  g.ConstructKind,
					Aggregation:    g.Aggregation,
					Sample:         s,
				})
			}
		}
		sort.SliceStable(flat, func(i, j int) bool {
			if flat[i].DeviceID != flat[j].DeviceID {
				return flat[i].DeviceID < flat[j].DeviceID
			}
			return flat[i].Timestamp.Before(flat[j].Timestamp)
		})
		out[facility] = flat
	}
	return out
}
