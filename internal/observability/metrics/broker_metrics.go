package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/academy/pkg/db"
	"gorm.io/gorm"
)

const (
	PublishResultSent   = "sent"
	PublishResultFailed = "failed"

	ConfirmAcked  = "acked"
	ConfirmNacked = "nacked"

	ConsumeOutcomeAck    = "ack"
	ConsumeOutcomeRetry  = "retry"
	ConsumeOutcomeReject = "reject"
)

const (
	HandlerReasonNone                 = "none"
	HandlerReasonDeadlineExceeded     = "deadline_exceeded"
	HandlerReasonDBLockTimeout        = "db_lock_timeout"
	HandlerReasonSerializationFailure = "serialization_failure"
	HandlerReasonUniqueViolation      = "unique_violation"
	HandlerReasonNotFound             = "not_found"
	HandlerReasonPanic                = "panic"
	HandlerReasonUnknown              = "unknown"
)

// ErrHandlerPanic marks an error recovered from a panicking message handler.
var ErrHandlerPanic = errors.New("handler_panic")

// BrokerMetrics captures publish and consume health of the AMQP adapter.
type BrokerMetrics struct {
	published       *prometheus.CounterVec
	confirms        *prometheus.CounterVec
	returned        *prometheus.CounterVec
	consumed        *prometheus.CounterVec
	handlerDuration *prometheus.HistogramVec
	openScopes      prometheus.Gauge
}

var (
	brokerMetricsOnce sync.Once
	brokerMetrics     *BrokerMetrics
)

// BrokerWithConfig returns the singleton broker metrics registered on registerer.
func BrokerWithConfig(registerer prometheus.Registerer, cfg Config) *BrokerMetrics {
	brokerMetricsOnce.Do(func() {
		brokerMetrics = NewBrokerMetrics(registerer, cfg)
	})
	return brokerMetrics
}

func NewBrokerMetrics(registerer prometheus.Registerer, cfg Config) *BrokerMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "academy"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "academy_broker_published_total",
		Help:        "Messages handed to the broker by exchange, routing key and result.",
		ConstLabels: constLabels,
	}, []string{"exchange", "routing_key", "result"})
	confirms := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "academy_broker_publisher_confirms_total",
		Help:        "Publisher confirms received from the broker.",
		ConstLabels: constLabels,
	}, []string{"exchange", "outcome"})
	returned := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "academy_broker_returned_total",
		Help:        "Mandatory messages returned as unroutable.",
		ConstLabels: constLabels,
	}, []string{"exchange", "routing_key"})
	consumed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "academy_broker_consumed_total",
		Help:        "Deliveries settled by queue, outcome and low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"queue", "outcome", "reason"})
	handlerDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "academy_broker_handler_duration_seconds",
		Help:        "Time spent in a message handler.",
		Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		ConstLabels: constLabels,
	}, []string{"queue"})
	openScopes := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "academy_correlation_scopes_open",
		Help:        "Correlation scopes begun and not yet released.",
		ConstLabels: constLabels,
	})

	registerer.MustRegister(published, confirms, returned, consumed, handlerDuration, openScopes)

	return &BrokerMetrics{
		published:       published,
		confirms:        confirms,
		returned:        returned,
		consumed:        consumed,
		handlerDuration: handlerDuration,
		openScopes:      openScopes,
	}
}

func (m *BrokerMetrics) IncPublished(exchange, routingKey string, err error) {
	if m == nil {
		return
	}
	result := PublishResultSent
	if err != nil {
		result = PublishResultFailed
	}
	m.published.WithLabelValues(exchange, routingKey, result).Inc()
}

func (m *BrokerMetrics) IncConfirm(exchange string, acked bool) {
	if m == nil {
		return
	}
	outcome := ConfirmAcked
	if !acked {
		outcome = ConfirmNacked
	}
	m.confirms.WithLabelValues(exchange, outcome).Inc()
}

func (m *BrokerMetrics) IncReturned(exchange, routingKey string) {
	if m == nil {
		return
	}
	m.returned.WithLabelValues(exchange, routingKey).Inc()
}

// ObserveHandled records a settled delivery and the handler latency.
func (m *BrokerMetrics) ObserveHandled(queue, outcome string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	m.consumed.WithLabelValues(queue, outcome, ClassifyHandlerReason(err)).Inc()
	m.handlerDuration.WithLabelValues(queue).Observe(duration.Seconds())
}

// SetOpenScopes publishes the number of live correlation scopes.
func (m *BrokerMetrics) SetOpenScopes(n int64) {
	if m == nil {
		return
	}
	m.openScopes.Set(float64(n))
}

// ClassifyHandlerReason maps handler errors to low-cardinality reasons.
func ClassifyHandlerReason(err error) string {
	switch {
	case err == nil:
		return HandlerReasonNone
	case errors.Is(err, ErrHandlerPanic):
		return HandlerReasonPanic
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return HandlerReasonDeadlineExceeded
	case db.PGCode(err) == db.CodeLockNotAvailable:
		return HandlerReasonDBLockTimeout
	case db.PGCode(err) == db.CodeSerializationFailure, db.PGCode(err) == db.CodeDeadlockDetected:
		return HandlerReasonSerializationFailure
	case db.IsDuplicateKeyErr(err):
		return HandlerReasonUniqueViolation
	case errors.Is(err, gorm.ErrRecordNotFound), strings.Contains(err.Error(), "not_found"):
		return HandlerReasonNotFound
	default:
		return HandlerReasonUnknown
	}
}
