// Package metrics — prometheus-метрики клиента GuanaVive.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "guanavive"

// Результаты цикла обновления токена.
const (
	RefreshOK     = "ok"
	RefreshFailed = "failed"
	RefreshNoRT   = "no_refresh_token"
)

// Metrics — набор метрик исходящих запросов и жизненного цикла сессии.
type Metrics struct {
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	Refreshes       *prometheus.CounterVec
	QueuedRequests  prometheus.Counter
	SessionExpired  prometheus.Counter
}

// New регистрирует метрики в reg; nil — prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "Outgoing API requests by method and status code.",
		}, []string{"method", "code"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "request_duration_seconds",
			Help:      "Outgoing API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		Refreshes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "refreshes_total",
			Help:      "Token refresh cycles by result.",
		}, []string{"result"}),
		QueuedRequests: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "queued_requests_total",
			Help:      "Requests parked while a refresh was in flight.",
		}),
		SessionExpired: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "expired_total",
			Help:      "Session teardowns after a failed refresh.",
		}),
	}
}
