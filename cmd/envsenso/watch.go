package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/envsenso/air"
	"github.com/mklimuk/envsenso/cmd/envsenso/console"
	"github.com/mklimuk/envsenso/publish"
)

var watchCmd = cli.Command{
	Name:  "watch",
	Usage: "read periodically, expose Prometheus metrics and optionally publish",
	Flags: append([]cli.Flag{
		&cli.DurationFlag{
			Name:  "interval",
			Usage: "time between readings",
		},
		&cli.StringFlag{
			Name:  "listen",
			Usage: "metrics listen address, empty to disable",
		},
	}, feedFlags...),
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return console.Exit(1, "configuration error: %s", console.Red(err))
		}
		applyFeedFlags(c, &cfg)
		if c.IsSet("interval") {
			cfg.Watch.Interval = c.Duration("interval")
		}
		if c.IsSet("listen") {
			cfg.Watch.Listen = c.String("listen")
		}
		if cfg.Watch.Interval <= 0 {
			return console.Exit(1, "interval must be positive")
		}

		ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
		defer stop()

		hw := newHardware(cfg)
		defer closeHardware(hw)
		w := &watcher{
			acquire:  hw.acquirer().Acquire,
			exporter: publish.NewExporter(),
			device:   hw.name(),
			interval: cfg.Watch.Interval,
		}
		if cfg.IoTPlotter.Feed != "" {
			w.publisher = newPlotter(cfg)
		}
		if cfg.Watch.Listen != "" {
			srv := serveMetrics(cfg.Watch.Listen, w.exporter)
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()
		}
		slog.Info("watching sensor", "device", w.device, "interval", w.interval, "listen", cfg.Watch.Listen)
		w.run(ctx)
		return nil
	},
}

type publisher interface {
	Publish(ctx context.Context, r air.Reading) (string, error)
}

// watcher acquires on a fixed interval. Failed acquisitions are logged and
// counted, the loop keeps going.
type watcher struct {
	acquire   acquireFunc
	publisher publisher
	exporter  *publish.Exporter
	device    string
	interval  time.Duration
}

func (w *watcher) run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		w.once(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *watcher) once(ctx context.Context) {
	r, err := w.acquire(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		w.exporter.Failed(w.device)
		slog.Error("acquisition failed", "device", w.device, "error", err)
		return
	}
	w.exporter.Observe(w.device, r)
	slog.Info("reading", "device", w.device, "temperature", r.Temperature, "humidity", r.Humidity,
		"air_pressure", r.AirPressure, "gas", r.Gas)
	if w.publisher == nil {
		return
	}
	res, err := w.publisher.Publish(ctx, r)
	if err != nil {
		slog.Error("publish failed", "error", err, "response", res)
		return
	}
	slog.Debug("published", "response", res)
}

func serveMetrics(addr string, exporter *publish.Exporter) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", exporter.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server stopped", "error", err)
		}
	}()
	return srv
}
