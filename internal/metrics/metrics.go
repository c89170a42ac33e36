package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	orders       *prometheus.CounterVec
	payments     *prometheus.CounterVec
	refunds      prometheus.Counter
	dispatches   *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	gatherer     prometheus.Gatherer
}

func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		return nil
	}
	m := &Metrics{
		orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Orders created, by fulfillment type.",
		}, []string{"fulfillment"}),
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payment_processed_total",
			Help: "Payments finalized, by terminal status.",
		}, []string{"status"}),
		refunds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "order_refunds_total",
			Help: "Orders cancelled with the amount returned to the wallet.",
		}),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "provider_dispatch_total",
			Help: "Fulfillment provider order placements, by result.",
		}, []string{"result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		gatherer: reg,
	}
	reg.MustRegister(m.orders, m.payments, m.refunds, m.dispatches, m.httpRequests, m.httpDuration)
	return m
}

func (m *Metrics) OrderCreated(fulfillment string) {
	if m == nil {
		return
	}
	m.orders.WithLabelValues(label(fulfillment)).Inc()
}

func (m *Metrics) PaymentFinalized(status string) {
	if m == nil {
		return
	}
	m.payments.WithLabelValues(label(status)).Inc()
}

func (m *Metrics) OrderRefunded() {
	if m == nil {
		return
	}
	m.refunds.Inc()
}

func (m *Metrics) Dispatched(ok bool) {
	if m == nil {
		return
	}
	result := "failed"
	if ok {
		result = "accepted"
	}
	m.dispatches.WithLabelValues(result).Inc()
}

// Middleware records request counts and latency per chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		endpoint := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				endpoint = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequests.WithLabelValues(r.Method, endpoint, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func label(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
