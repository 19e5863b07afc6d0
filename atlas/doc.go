// Package atlas is a client SDK for the ATLAS facility-monitoring
// platform.
//
// # Architecture
//
// The package is organized around the metric read pipeline:
//   - Catalog: normalizes a device's capability lists into one uniform
//     collection of kind-tagged constructs
//   - Match: resolves metric specs (exact name or prefix-anchored alias
//     regex) against a device's catalog
//   - QueryBuilder: partitions matched constructs into reading and
//     setting query batches
//   - RecordStream: decodes streamed NDJSON historical results
//   - Grouper: folds decoded records into time series grouped by
//     (device, construct, construct kind, aggregation)
//   - MetricsReader: drives the pipeline per facility and merges the
//     facility-indexed result
//
// The HTTP layer lives in the transport package and is injected through
// the Transport interface.
//
// Example usage:
//
//	t, _ := transport.New(transport.Config{
//	    BaseURL:      "https://api.example.com",
//	    RefreshToken: token,
//	})
//	reader := atlas.NewMetricsReader(atlas.NewClient(t, logger), logger)
//	result, err := reader.Read(ctx, atlas.Filter{
//	    Facilities: []string{"plant-a"},
//	    Metrics: []atlas.MetricSpec{
//	        {Name: "SuctionPressure", DeviceKind: atlas.DeviceCompressor},
//	    },
//	}, nil)
package atlas
