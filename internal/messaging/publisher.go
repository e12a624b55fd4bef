package messaging

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/smallbiznis/academy/internal/clock"
	obsmetrics "github.com/smallbiznis/academy/internal/observability/metrics"
	"github.com/smallbiznis/academy/pkg/log/ctxlogger"
	"github.com/smallbiznis/academy/pkg/telemetry/correlation"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// EventPublisher emits one event on the owning service's exchange.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any, headers map[string]string) error
}

// PublisherConfig names the exchange a service publishes to.
type PublisherConfig struct {
	Exchange string
	// Confirm puts the channel in publisher-confirm mode.
	Confirm bool
}

// Publisher sends JSON events with a fresh correlation id per message.
// Publishing is mandatory: unroutable messages come back on the return
// channel and are logged as errors.
type Publisher struct {
	ch       Channel
	exchange string
	log      *zap.Logger
	metrics  *obsmetrics.BrokerMetrics
	clock    clock.Clock
	tracer   trace.Tracer
}

func NewPublisher(ch Channel, cfg PublisherConfig, log *zap.Logger, metrics *obsmetrics.BrokerMetrics, clk clock.Clock) (*Publisher, error) {
	if cfg.Confirm {
		if err := ch.Confirm(false); err != nil {
			return nil, fmt.Errorf("enable publisher confirms: %w", err)
		}
	}
	if clk == nil {
		clk = clock.New()
	}

	p := &Publisher{
		ch:       ch,
		exchange: cfg.Exchange,
		log:      log.Named("messaging.publisher").With(zap.String("exchange", cfg.Exchange)),
		metrics:  metrics,
		clock:    clk,
		tracer:   otel.Tracer("academy/messaging"),
	}

	returns := ch.NotifyReturn(make(chan amqp.Return, 16))
	go p.watchReturns(returns)

	return p, nil
}

// Publish encodes payload and sends it with routingKey. headers become both
// AMQP headers and the diagnostic context for the duration of the call.
func (p *Publisher) Publish(ctx context.Context, routingKey string, payload any, headers map[string]string) error {
	cc := correlation.New(headers)
	ctx, release := correlation.Begin(ctx, cc)
	defer release()

	log := ctxlogger.WithContext(ctx, p.log).With(zap.String("routing_key", routingKey))

	ctx, span := p.tracer.Start(ctx, routingKey+" publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "rabbitmq"),
			attribute.String("messaging.destination.name", p.exchange),
			attribute.String("messaging.rabbitmq.destination.routing_key", routingKey),
			attribute.String("messaging.message.conversation_id", cc.ID),
		),
	)
	defer span.End()

	env, err := NewEnvelope(p.exchange, routingKey, cc, payload, p.clock.Now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "encode failed")
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}

	msg := env.Publishing()
	otel.GetTextMapPropagator().Inject(ctx, tableCarrier(msg.Headers))

	confirm, err := p.ch.PublishWithDeferredConfirmWithContext(ctx, p.exchange, routingKey, true, false, msg)
	p.metrics.IncPublished(p.exchange, routingKey, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish failed")
		log.Error("failed to publish event", zap.Error(err))
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}

	log.Info("event published", zap.String("message_id", env.MessageID))
	if confirm != nil {
		go p.awaitConfirm(log, confirm.DeliveryTag, confirm)
	}
	return nil
}

// confirmation is the part of *amqp.DeferredConfirmation awaited after a publish.
type confirmation interface {
	Done() <-chan struct{}
	Acked() bool
}

func (p *Publisher) awaitConfirm(log *zap.Logger, tag uint64, confirm confirmation) {
	<-confirm.Done()
	acked := confirm.Acked()
	p.metrics.IncConfirm(p.exchange, acked)
	if !acked {
		log.Error("broker nacked event", zap.Uint64("delivery_tag", tag))
		return
	}
	log.Debug("broker confirmed event", zap.Uint64("delivery_tag", tag))
}

func (p *Publisher) watchReturns(returns <-chan amqp.Return) {
	for r := range returns {
		p.metrics.IncReturned(r.Exchange, r.RoutingKey)
		p.log.Error("event returned as unroutable",
			zap.String("correlation_id", r.CorrelationId),
			zap.String("message_id", r.MessageId),
			zap.String("routing_key", r.RoutingKey),
			zap.Uint16("reply_code", r.ReplyCode),
			zap.String("reply_text", r.ReplyText),
		)
	}
}

var _ EventPublisher = (*Publisher)(nil)
