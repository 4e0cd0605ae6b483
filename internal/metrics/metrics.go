// Package metrics declares the Prometheus instruments exposed by the
// service on /metrics.
package metrics

import (
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the service counters.  A nil *Metrics is tolerated by
// all callers so components can run uninstrumented in tests.
type Metrics struct {
    ReservationsCreated prometheus.Counter
    CallbacksProcessed  *prometheus.CounterVec
    Decisions           *prometheus.CounterVec
    EmailsSent          prometheus.Counter
    NotificationErrors  *prometheus.CounterVec
    TasksDropped        prometheus.Counter
}

// New registers the metrics with the default registerer.
func New() *Metrics {
    return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the metrics with the given registerer.  Tests pass
// a fresh prometheus.NewRegistry to avoid duplicate registration.
func NewWith(reg prometheus.Registerer) *Metrics {
    factory := promauto.With(reg)
    return &Metrics{
        ReservationsCreated: factory.NewCounter(prometheus.CounterOpts{
            Name: "reservations_created_total",
            Help: "Total number of reservation requests accepted for review",
        }),

        CallbacksProcessed: factory.NewCounterVec(prometheus.CounterOpts{
            Name: "telegram_callbacks_processed_total",
            Help: "Total number of processed webhook callbacks by outcome",
        }, []string{"outcome"}),

        Decisions: factory.NewCounterVec(prometheus.CounterOpts{
            Name: "reservation_decisions_total",
            Help: "Total number of terminal reservation decisions by status",
        }, []string{"status"}),

        EmailsSent: factory.NewCounter(prometheus.CounterOpts{
            Name: "emails_sent_total",
            Help: "Total number of guest emails delivered to the SMTP relay",
        }),

        NotificationErrors: factory.NewCounterVec(prometheus.CounterOpts{
            Name: "notification_errors_total",
            Help: "Total number of failed notification attempts by kind",
        }, []string{"kind"}),

        TasksDropped: factory.NewCounter(prometheus.CounterOpts{
            Name: "notification_tasks_dropped_total",
            Help: "Total number of background tasks dropped because the queue was full",
        }),
    }
}
