// Package metrics exports controller and stream state to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/linuxmatters/avc/internal/control"
	"github.com/linuxmatters/avc/internal/loop"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Collector records loop activity. It implements loop.Observer.
type Collector struct {
	monitorPeak  prometheus.Gauge
	capturePeak  prometheus.Gauge
	volume       prometheus.Gauge
	cycles       prometheus.Counter
	volumeWrites prometheus.Counter
	readFailures *prometheus.CounterVec
	recoveries   *prometheus.CounterVec
}

// NewCollector registers the avc metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	c := &Collector{
		monitorPeak: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "avc_monitor_peak",
				Help: "Smoothed peak magnitude of the monitor stream",
			},
		),
		capturePeak: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "avc_capture_peak",
				Help: "Smoothed peak magnitude of the capture stream",
			},
		),
		volume: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "avc_volume",
				Help: "Playback volume chosen by the last cycle",
			},
		),
		cycles: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "avc_cycles_total",
				Help: "Total number of cycles that reached the controller",
			},
		),
		volumeWrites: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "avc_volume_writes_total",
				Help: "Total number of playback volume writes",
			},
		),
		readFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "avc_read_failures_total",
				Help: "Total number of failed block reads",
			},
			[]string{"stream"},
		),
		recoveries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "avc_recoveries_total",
				Help: "Total number of successful stream recoveries",
			},
			[]string{"stream"},
		),
	}

	// expose both streams from the start
	for _, s := range []loop.Stream{loop.Capture, loop.Monitor} {
		c.readFailures.WithLabelValues(s.String())
		c.recoveries.WithLabelValues(s.String())
	}
	return c
}

// ObserveCycle implements loop.Observer.
func (c *Collector) ObserveCycle(d control.Decision) {
	c.cycles.Inc()
	c.monitorPeak.Set(float64(d.MonitorPeak))
	c.capturePeak.Set(float64(d.CapturePeak))
	c.volume.Set(float64(d.NextVolume))
	if d.Applied {
		c.volumeWrites.Inc()
	}
}

// ObserveReadFailure implements loop.Observer.
func (c *Collector) ObserveReadFailure(stream loop.Stream, recovered bool) {
	c.readFailures.WithLabelValues(stream.String()).Inc()
	if recovered {
		c.recoveries.WithLabelValues(stream.String()).Inc()
	}
}

// Handler returns the scrape handler for reg.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// Listen binds addr for Serve. Binding separately lets a busy or malformed
// address fail setup instead of surfacing once the loop is running.
func Listen(addr string) (net.Listener, error) {
	return net.Listen("tcp", addr)
}

// Serve exposes reg on /metrics over ln until ctx is done. ln is closed on
// return.
func Serve(ctx context.Context, ln net.Listener, reg *prometheus.Registry, log *logrus.Entry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(reg))
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.WithFields(logrus.Fields{
		"function": "metrics.Serve",
		"addr":     ln.Addr().String(),
	}).Info("Serving metrics")

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
