// Package metrics exposes session counters to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Metrics holds the session collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	registry    *prometheus.Registry
	outstanding prometheus.Gauge
	torrents    prometheus.Gauge
	alerts      *prometheus.CounterVec
	ingest      *prometheus.CounterVec
	events      prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		outstanding: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "magnetctl",
			Name:      "outstanding_saves",
			Help:      "Resume data requests issued without a completion observed",
		}),
		torrents: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "magnetctl",
			Name:      "torrents",
			Help:      "Torrents in the last state update",
		}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "magnetctl",
			Name:      "alerts_total",
			Help:      "Alerts dispatched, by kind and outcome",
		}, []string{"kind", "outcome"}),
		ingest: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "magnetctl",
			Name:      "ingest_total",
			Help:      "Add requests by source and result",
		}, []string{"source", "result"}),
		events: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "magnetctl",
			Name:      "events_total",
			Help:      "Entries appended to the event log",
		}),
	}
	m.registry.MustRegister(m.outstanding, m.torrents, m.alerts, m.ingest, m.events)
	return m
}

func (m *Metrics) SetOutstanding(n int) {
	if m == nil {
		return
	}
	m.outstanding.Set(float64(n))
}

func (m *Metrics) SetTorrents(n int) {
	if m == nil {
		return
	}
	m.torrents.Set(float64(n))
}

func (m *Metrics) Alert(kind string, surfaced bool) {
	if m == nil {
		return
	}
	outcome := "suppressed"
	if surfaced {
		outcome = "surfaced"
	}
	m.alerts.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) Ingest(source string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.ingest.WithLabelValues(source, result).Inc()
}

func (m *Metrics) Event() {
	if m == nil {
		return
	}
	m.events.Inc()
}

// Handler serves /metrics and /healthz.
func (m *Metrics) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})))
	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return router
}

// Serve runs the metrics endpoint until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *logrus.Logger) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warnf("metrics shutdown: %v", err)
		}
	}()
	go func() {
		logger.Infof("metrics listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("metrics server: %v", err)
		}
	}()
}
