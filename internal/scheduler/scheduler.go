// Package scheduler drives periodic metric reads for atlas-watch and
// republishes the latest samples as Prometheus gauges.
package scheduler

import (
	"context"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/atlasenergy/atlasgo/atlas"
)

const pollTimeout = 2 * time.Minute

// Poller reads a fixed filter on a cron schedule.
type Poller struct {
	reader   *atlas.MetricsReader
	filter   atlas.Filter
	interval time.Duration
	schedule string
	logger   *logrus.Logger
	cron     *cron.Cron

	latest *prometheus.GaugeVec
	errors prometheus.Counter
}

// New wires a poller and registers its metrics. A nil logger falls back
// to a quiet one.
func New(reader *atlas.MetricsReader, filter atlas.Filter, interval time.Duration, schedule string, reg prometheus.Registerer, logger *logrus.Logger) *Poller {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}
	p := &Poller{
		reader:   reader,
		filter:   filter,
		interval: interval,
		schedule: schedule,
		logger:   logger,
		cron:     cron.New(),
		latest: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "atlas_watch_latest_value",
				Help: "Most recent sample per watched time series group.",
			},
			[]string{"facility", "device", "construct", "construct_kind", "aggregation"},
		),
		errors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "atlas_watch_poll_errors_total",
			Help: "Polls that failed end to end.",
		}),
	}
	reg.MustRegister(p.latest, p.errors)
	return p
}

// Start registers the cron entry and begins polling. One poll runs
// immediately so gauges are populated before the first tick.
func (p *Poller) Start() error {
	if _, err := p.cron.AddFunc(p.schedule, p.poll); err != nil {
		return err
	}
	p.cron.Start()
	go p.poll()
	return nil
}

// Stop halts the schedule; a poll already in flight finishes.
func (p *Poller) Stop() {
	p.cron.Stop()
}

func (p *Poller) poll() {
	ctx, cancel := context.WithTimeout(context.Background(), pollTimeout)
	defer cancel()

	opts := atlas.DefaultReadOptions()
	opts.Interval = p.interval

	result, err := p.reader.Read(ctx, p.filter, opts)
	if err != nil {
		p.errors.Inc()
		p.logger.WithError(err).Error("poll failed")
		return
	}

	for facility, groups := range result {
		for _, g := range groups {
			sample, ok := lastSample(g)
			if !ok {
				continue
			}
			p.latest.WithLabelValues(
				facility,
				g.DeviceAlias,
				g.ConstructAlias,
				string(g.ConstructKind),
				string(g.Aggregation),
			).Set(sample.Value)
		}
	}
	p.logger.WithField("facilities", len(result)).Debug("poll complete")
}

// lastSample returns the newest usable sample of a group. NaN sentinels
// from readings with missing payloads are not publishable as gauges.
func lastSample(g *atlas.TimeSeriesGroup) (atlas.Sample, bool) {
	for i := len(g.Samples) - 1; i >= 0; i-- {
		if !math.IsNaN(g.Samples[i].Value) {
			return g.Samples[i], true
		}
	}
	return atlas.Sample{}, false
}
