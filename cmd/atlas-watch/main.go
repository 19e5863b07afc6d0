package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/atlasenergy/atlasgo/atlas"
	"github.com/atlasenergy/atlasgo/internal/config"
	"github.com/atlasenergy/atlasgo/internal/scheduler"
	"github.com/atlasenergy/atlasgo/transport"
)

// Command atlas-watch polls a fixed set of metrics on a schedule and
// exposes the latest values as Prometheus gauges.
//
// The watch list is a YAML file:
//
//	schedule: "*/5 * * * *"
//	interval_seconds: 60
//	facilities: [alpha]
//	metrics:
//	  - name: SuctionPressure
//	    device_kind: compressor
func main() {
	var (
		configPath = flag.String("config", config.DefaultPath(), "path to config file")
		watchPath  = flag.String("watch", "watch.yaml", "path to the watch list")
		listenAddr = flag.String("listen", ":9090", "metrics listen address")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	watch, err := loadWatchList(*watchPath)
	if err != nil {
		log.Fatalf("Failed to load watch list: %v", err)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Debug {
		logger.SetLevel(logrus.DebugLevel)
	}

	registry := prometheus.NewRegistry()

	t, err := transport.New(transport.Config{
		BaseURL:        cfg.APIURL,
		RefreshToken:   cfg.RefreshToken,
		RateLimit:      cfg.RateLimit,
		RateLimitBurst: cfg.RateBurst,
		Logger:         logger,
		Registerer:     registry,
	})
	if err != nil {
		log.Fatalf("Failed to create transport: %v", err)
	}

	reader := atlas.NewMetricsReader(atlas.NewClient(t, logger), logger)
	poller := scheduler.New(
		reader,
		atlas.Filter{Facilities: watch.Facilities, Metrics: watch.Metrics},
		time.Duration(watch.IntervalSeconds)*time.Second,
		watch.Schedule,
		registry,
		logger,
	)
	if err := poller.Start(); err != nil {
		log.Fatalf("Failed to start poller: %v", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: *listenAddr, Handler: mux}

	go handleShutdown(srv, poller, logger)

	logger.WithFields(logrus.Fields{
		"listen":   *listenAddr,
		"schedule": watch.Schedule,
	}).Info("Starting atlas-watch")

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Server error: %v", err)
	}
}

type watchList struct {
	Schedule        string             `yaml:"schedule"`
	IntervalSeconds int                `yaml:"interval_seconds"`
	Facilities      []string           `yaml:"facilities"`
	Metrics         []atlas.MetricSpec `yaml:"metrics"`
}

func loadWatchList(path string) (*watchList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading watch list: %w", err)
	}

	watch := &watchList{
		Schedule:        "*/5 * * * *",
		IntervalSeconds: 60,
	}
	if err := yaml.Unmarshal(data, watch); err != nil {
		return nil, fmt.Errorf("parsing watch list: %w", err)
	}
	if len(watch.Metrics) == 0 {
		return nil, fmt.Errorf("watch list declares no metrics")
	}
	return watch, nil
}

// Handle graceful shutdown
func handleShutdown(srv *http.Server, poller *scheduler.Poller, logger *logrus.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	sig := <-sigChan
	logger.Printf("Received signal %v, initiating shutdown", sig)

	poller.Stop()
	srv.Close()
	logger.Println("Server stopped")
}
