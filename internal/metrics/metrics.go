// Package metrics exposes the bot's Prometheus collectors.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/m3rciful/studybot/core/logger"
	"github.com/m3rciful/studybot/internal/navigation"
)

const (
	namespace    = "studybot"
	logComponent = "metrics"
)

// Metrics owns a private registry so tests and multiple bots never collide.
type Metrics struct {
	registry *prometheus.Registry

	actions     *prometheus.CounterVec
	updates     *prometheus.CounterVec
	rateLimited *prometheus.CounterVec
	uploads     *prometheus.CounterVec
	missing     prometheus.Gauge
}

// New registers the collectors, including the Go runtime and process ones.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "nav",
			Name:      "actions_total",
			Help:      "Navigation actions by kind and status.",
		}, []string{"kind", "status"}),
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_total",
			Help:      "Telegram updates received by kind.",
		}, []string{"kind"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Updates dropped by the rate limiter by kind.",
		}, []string{"kind"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "uploads_total",
			Help:      "Admin uploads by status.",
		}, []string{"status"}),
		missing: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "missing_resources",
			Help:      "Catalog resources without a file on disk at the last check.",
		}),
	}
	reg.MustRegister(
		m.actions, m.updates, m.rateLimited, m.uploads, m.missing,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func status(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, navigation.ErrDeliveryFailed):
		return "delivery_failed"
	default:
		return "error"
	}
}

// ObserveOutcome counts one navigation action. It matches navigation.Options.OnOutcome.
func (m *Metrics) ObserveOutcome(kind navigation.Kind, err error) {
	m.actions.WithLabelValues(kind.String(), status(err)).Inc()
}

// ObserveUpdate counts one incoming update.
func (m *Metrics) ObserveUpdate(kind string) {
	m.updates.WithLabelValues(kind).Inc()
}

// ObserveRateLimited counts one dropped update.
func (m *Metrics) ObserveRateLimited(kind string) {
	m.rateLimited.WithLabelValues(kind).Inc()
}

// ObserveUpload counts one admin upload attempt.
func (m *Metrics) ObserveUpload(err error) {
	m.uploads.WithLabelValues(status(err)).Inc()
}

// SetMissing records how many catalog resources lack a file.
func (m *Metrics) SetMissing(n int) {
	m.missing.Set(float64(n))
}

// GaugeFunc registers a gauge sampled from fn at scrape time. A name that is
// already registered keeps its first function.
func (m *Metrics) GaugeFunc(name, help string, fn func() float64) {
	err := m.registry.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, fn))
	var dup prometheus.AlreadyRegisteredError
	if err != nil && !errors.As(err, &dup) {
		panic(err)
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Serve exposes /metrics on listen until ctx is done.
func (m *Metrics) Serve(ctx context.Context, listen string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, logComponent, "metrics.listen",
			slog.String("status", "ok"),
			slog.String("listen", listen),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	}
}
