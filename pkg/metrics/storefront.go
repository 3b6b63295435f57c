package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Order submission results.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultInvalid = "invalid"
)

// Storefront holds the cart, checkout and record-store collectors.
// A nil *Storefront is valid and records nothing.
type Storefront struct {
	cartRejections  *prometheus.CounterVec
	persistFailures prometheus.Counter
	orders          *prometheus.CounterVec
	storeDuration   *prometheus.HistogramVec
	storeErrors     *prometheus.CounterVec
}

// NewStorefront registers the storefront metrics on the provided registerer.
func NewStorefront(reg prometheus.Registerer) *Storefront {
	if reg == nil {
		return &Storefront{}
	}
	cartRejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_rejections_total",
		Help: "Cart mutations rejected, by reason.",
	}, []string{"reason"})
	persistFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cart_persist_failures_total",
		Help: "Cart writes to durable storage that failed.",
	})
	orders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_submissions_total",
		Help: "Order submissions, by result.",
	}, []string{"result"})
	storeDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "recordstore_request_duration_seconds",
		Help:    "Duration of record store calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"backend", "op"})
	storeErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "recordstore_request_errors_total",
		Help: "Record store calls that returned an error.",
	}, []string{"backend", "op"})
	reg.MustRegister(cartRejections, persistFailures, orders, storeDuration, storeErrors)
	return &Storefront{
		cartRejections:  cartRejections,
		persistFailures: persistFailures,
		orders:          orders,
		storeDuration:   storeDuration,
		storeErrors:     storeErrors,
	}
}

// IncCartRejection counts a rejected cart mutation.
func (s *Storefront) IncCartRejection(reason string) {
	if s == nil || s.cartRejections == nil {
		return
	}
	s.cartRejections.WithLabelValues(normalizeLabel(reason)).Inc()
}

// IncCartPersistFailure counts a failed cart write.
func (s *Storefront) IncCartPersistFailure() {
	if s == nil || s.persistFailures == nil {
		return
	}
	s.persistFailures.Inc()
}

// IncOrderSubmission counts an order submission attempt by result.
func (s *Storefront) IncOrderSubmission(result string) {
	if s == nil || s.orders == nil {
		return
	}
	s.orders.WithLabelValues(normalizeLabel(result)).Inc()
}

// ObserveRecordStore satisfies recordstore.Observer.
func (s *Storefront) ObserveRecordStore(backend, op string, took time.Duration, err error) {
	if s == nil || s.storeDuration == nil {
		return
	}
	backend, op = normalizeLabel(backend), normalizeLabel(op)
	s.storeDuration.WithLabelValues(backend, op).Observe(took.Seconds())
	if err != nil {
		s.storeErrors.WithLabelValues(backend, op).Inc()
	}
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
