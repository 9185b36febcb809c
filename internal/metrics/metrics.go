package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "deskhub",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	reservationsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "deskhub",
			Name:      "reservations_created_total",
			Help:      "Successfully committed reservations.",
		},
	)

	reservationsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "deskhub",
			Name:      "reservations_rejected_total",
			Help:      "Rejected reservation requests by reason.",
		},
		[]string{"reason"},
	)

	lockTimeouts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "deskhub",
			Name:      "lock_timeouts_total",
			Help:      "Booking lock acquisitions that exceeded the wait bound.",
		},
	)

	notifyErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "deskhub",
			Name:      "notification_errors_total",
			Help:      "Notification deliveries that failed, by channel.",
		},
		[]string{"channel"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			reservationsCreated,
			reservationsRejected,
			lockTimeouts,
			notifyErrors,
		)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncReservationCreated() {
	reservationsCreated.Inc()
}

func IncReservationRejected(reason string) {
	reservationsRejected.WithLabelValues(reason).Inc()
}

func IncLockTimeout() {
	lockTimeouts.Inc()
}

func IncNotifyError(channel string) {
	notifyErrors.WithLabelValues(channel).Inc()
}
