package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/atlasenergy/atlasgo/atlas"
	"github.com/atlasenergy/atlasgo/internal/config"
	"github.com/atlasenergy/atlasgo/transport"
)

// Command atlas-read performs a one-shot historical metrics read.
//
// Usage:
//
//	atlas-read -facilities alpha,bravo -metric SuctionPressure -device-kind compressor
//	atlas-read -facilities alpha -regex '.*Pressure' -device-kind compressor -construct-kind metric -flat -json
//
// Credentials come from ~/.config/atlas/config.toml or the
// ATLAS_REFRESH_TOKEN environment variable.
func main() {
	opts := parseFlags()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Debug {
		logger.SetLevel(logrus.DebugLevel)
	}

	t, err := transport.New(transport.Config{
		BaseURL:        cfg.APIURL,
		RefreshToken:   cfg.RefreshToken,
		RateLimit:      cfg.RateLimit,
		RateLimitBurst: cfg.RateBurst,
		Logger:         logger,
	})
	if err != nil {
		log.Fatalf("Failed to create transport: %v", err)
	}

	reader := atlas.NewMetricsReader(atlas.NewClient(t, logger), logger)

	filter, readOpts, err := buildRequest(opts)
	if err != nil {
		log.Fatalf("Invalid request: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if opts.flat {
		flat, err := reader.ReadFlat(ctx, filter, readOpts)
		if err != nil {
			log.Fatalf("Read failed: %v", err)
		}
		printFlat(flat, opts.jsonOut)
		return
	}

	result, err := reader.Read(ctx, filter, readOpts)
	if err != nil {
		log.Fatalf("Read failed: %v", err)
	}
	printNested(result, opts.jsonOut)
}

type cliOptions struct {
	configPath    string
	facilities    string
	metric        string
	regex         string
	deviceKind    string
	constructKind string
	start         string
	end           string
	interval      int
	aggregate     string
	flat          bool
	jsonOut       bool
}

func parseFlags() *cliOptions {
	opts := &cliOptions{}

	flag.StringVar(&opts.configPath, "config", config.DefaultPath(), "path to config file")
	flag.StringVar(&opts.facilities, "facilities", "", "comma-separated facility short names (empty = all)")
	flag.StringVar(&opts.metric, "metric", "", "exact metric name")
	flag.StringVar(&opts.regex, "regex", "", "alias regex (prefix-anchored)")
	flag.StringVar(&opts.deviceKind, "device-kind", "", "device kind the metric applies to")
	flag.StringVar(&opts.constructKind, "construct-kind", "", "construct kind (required with -regex)")
	flag.StringVar(&opts.start, "start", "", "window start, RFC 3339 (default 10 minutes ago)")
	flag.StringVar(&opts.end, "end", "", "window end, RFC 3339 (default now)")
	flag.IntVar(&opts.interval, "interval", 60, "sampling interval in seconds")
	flag.StringVar(&opts.aggregate, "aggregate", "avg", "comma-separated aggregations (avg,min,max,first,last)")
	flag.BoolVar(&opts.flat, "flat", false, "flatten the result")
	flag.BoolVar(&opts.jsonOut, "json", false, "emit JSON instead of a table")

	flag.Parse()
	return opts
}

func buildRequest(opts *cliOptions) (atlas.Filter, *atlas.ReadOptions, error) {
	filter := atlas.Filter{
		Metrics: []atlas.MetricSpec{{
			Name:          opts.metric,
			AliasRegex:    opts.regex,
			DeviceKind:    atlas.DeviceKind(opts.deviceKind),
			ConstructKind: atlas.ConstructKind(opts.constructKind),
		}},
	}
	if opts.facilities != "" {
		filter.Facilities = strings.Split(opts.facilities, ",")
	}

	readOpts := atlas.DefaultReadOptions()
	readOpts.Interval = time.Duration(opts.interval) * time.Second

	if opts.start != "" {
		start, err := time.Parse(time.RFC3339, opts.start)
		if err != nil {
			return filter, nil, fmt.Errorf("parsing -start: %w", err)
		}
		readOpts.Start = start
	}
	if opts.end != "" {
		end, err := time.Parse(time.RFC3339, opts.end)
		if err != nil {
			return filter, nil, fmt.Errorf("parsing -end: %w", err)
		}
		readOpts.End = end
	}

	readOpts.AggregateBy = nil
	for _, a := range strings.Split(opts.aggregate, ",") {
		readOpts.AggregateBy = append(readOpts.AggregateBy, atlas.Aggregation(strings.TrimSpace(a)))
	}
	return filter, readOpts, nil
}

func printNested(result atlas.Result, jsonOut bool) {
	if jsonOut {
		emitJSON(result)
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FACILITY\tDEVICE\tCONSTRUCT\tKIND\tAGG\tSAMPLES\tLATEST")
	for facility, groups := range result {
		for _, g := range groups {
			latest := ""
			if n := len(g.Samples); n > 0 {
				s := g.Samples[n-1]
				latest = fmt.Sprintf("%.3f @ %s", s.Value, s.Timestamp.Format(time.RFC3339))
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
				facility, g.DeviceAlias, g.ConstructAlias, g.ConstructKind,
				g.Aggregation, len(g.Samples), latest)
		}
	}
	w.Flush()
}

func printFlat(flat map[string][]atlas.FlatSample, jsonOut bool) {
	if jsonOut {
		emitJSON(flat)
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FACILITY\tDEVICE\tCONSTRUCT\tAGG\tTIMESTAMP\tVALUE")
	for facility, samples := range flat {
		for _, s := range samples {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.3f\n",
				facility, s.DeviceAlias, s.ConstructAlias, s.Aggregation,
				s.Timestamp.Format(time.RFC3339), s.Value)
		}
	}
	w.Flush()
}

func emitJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Fatalf("Encoding output: %v", err)
	}
}
