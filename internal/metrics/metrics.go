// Package metrics содержит счетчики Prometheus жизненного цикла платежей.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "content_bot"

// Результаты доставки
const (
	DeliveryDelivered = "delivered"
	DeliveryPartial   = "partial"
	DeliveryRejected  = "rejected"
)

// Metrics набор метрик бота с собственным реестром.
type Metrics struct {
	registry *prometheus.Registry

	PaymentsCreated      prometheus.Counter
	PaymentsCompleted    prometheus.Counter
	DuplicateCompletions prometheus.Counter
	PreCheckouts         *prometheus.CounterVec
	Deliveries           *prometheus.CounterVec
	PaymentsExpired      prometheus.Counter
	SweepDuration        prometheus.Histogram
	OutboundCalls        *prometheus.CounterVec
}

// New регистрирует метрики в новом реестре вместе со стандартными коллекторами процесса.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		PaymentsCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "payments_created_total",
			Help: "Pending payments created.",
		}),
		PaymentsCompleted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "payments_completed_total",
			Help: "Payments committed to completed.",
		}),
		DuplicateCompletions: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "payments_duplicate_completions_total",
			Help: "Successful-payment events ignored because the payment was no longer pending.",
		}),
		PreCheckouts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "precheckout_total",
			Help: "Pre-checkout decisions.",
		}, []string{"result"}),
		Deliveries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "deliveries_total",
			Help: "Delivery attempts by result.",
		}, []string{"result"}),
		PaymentsExpired: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "payments_expired_total",
			Help: "Pending payments expired by the sweeper.",
		}),
		SweepDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "sweep_duration_seconds",
			Help:    "Duration of a sweeper iteration.",
			Buckets: prometheus.DefBuckets,
		}),
		OutboundCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "outbound_calls_total",
			Help: "Calls to external services by target and result.",
		}, []string{"target", "result"}),
	}
}

// Handler отдает метрики в формате Prometheus.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveOutbound учитывает вызов внешнего сервиса.
func (m *Metrics) ObserveOutbound(target string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.OutboundCalls.WithLabelValues(target, result).Inc()
}
