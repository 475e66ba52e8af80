package httpx

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	histogramBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}
)

type routerMetrics struct {
	requestTotal      *prometheus.CounterVec
	requestLatency    *prometheus.HistogramVec
	rateLimitHits     *prometheus.CounterVec
	dashboardSessions prometheus.Gauge
	dashboardFrames   *prometheus.CounterVec
}

func (r *Router) initMetrics() {
	r.metricsOnce.Do(func() {
		m := routerMetrics{
			requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tempo",
				Subsystem: "api",
				Name:      "http_requests_total",
				Help:      "Count of processed HTTP requests",
			}, []string{"method", "route", "status"}),
			requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "tempo",
				Subsystem: "api",
				Name:      "http_request_duration_seconds",
				Help:      "Latency distribution of HTTP handlers",
				Buckets:   histogramBuckets,
			}, []string{"method", "route", "status"}),
			rateLimitHits: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tempo",
				Subsystem: "api",
				Name:      "rate_limit_hits_total",
				Help:      "Number of rate-limited responses",
			}, []string{"route", "key"}),
			dashboardSessions: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "tempo",
				Subsystem: "dashboard",
				Name:      "sessions_active",
				Help:      "Open dashboard websocket sessions",
			}),
			dashboardFrames: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tempo",
				Subsystem: "dashboard",
				Name:      "frames_total",
				Help:      "Dashboard websocket frames by direction and type",
			}, []string{"direction", "type"}),
		}
		m.requestTotal = registerOrReuse(m.requestTotal)
		m.requestLatency = registerOrReuse(m.requestLatency)
		m.rateLimitHits = registerOrReuse(m.rateLimitHits)
		m.dashboardSessions = registerOrReuse(m.dashboardSessions)
		m.dashboardFrames = registerOrReuse(m.dashboardFrames)
		r.metrics = &m
	})
}

// registerOrReuse registers c with the default registry, returning the
// collector already registered under the same descriptor if there is one.
func registerOrReuse[C prometheus.Collector](c C) C {
	if err := prometheus.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

func (r *Router) recordRequestMetrics(method, route string, status int, duration time.Duration) {
	if r.metrics == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"route":  route,
		"status": strconv.Itoa(status),
	}
	r.metrics.requestTotal.With(labels).Inc()
	r.metrics.requestLatency.With(labels).Observe(duration.Seconds())
}

func (r *Router) recordRateLimitHit(route, key string) {
	if r.metrics == nil {
		return
	}
	r.metrics.rateLimitHits.With(prometheus.Labels{"route": route, "key": key}).Inc()
}

func (r *Router) trackDashboardSession(delta float64) {
	if r.metrics == nil {
		return
	}
	r.metrics.dashboardSessions.Add(delta)
}

func (r *Router) recordDashboardFrame(direction, kind string) {
	if r.metrics == nil {
		return
	}
	r.metrics.dashboardFrames.With(prometheus.Labels{"direction": direction, "type": kind}).Inc()
}
