package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	obsmetrics "github.com/smallbiznis/academy/internal/observability/metrics"
	"github.com/smallbiznis/academy/pkg/log/ctxlogger"
	"github.com/smallbiznis/academy/pkg/telemetry/correlation"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrDeliveriesClosed is returned by Run when the broker closes a consumer.
var ErrDeliveriesClosed = errors.New("deliveries_closed")

// ConsumerConfig sizes the worker pool.
type ConsumerConfig struct {
	Name     string
	Workers  int
	Prefetch int
}

type route struct {
	queue   string
	handler Handler
}

// Consumer dispatches deliveries from registered queues to their handlers,
// settling each one according to the handler's Result.
type Consumer struct {
	ch      Channel
	cfg     ConsumerConfig
	log     *zap.Logger
	metrics *obsmetrics.BrokerMetrics
	tracer  trace.Tracer

	mu     sync.Mutex
	routes []route
}

func NewConsumer(ch Channel, cfg ConsumerConfig, log *zap.Logger, metrics *obsmetrics.BrokerMetrics) *Consumer {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Consumer{
		ch:      ch,
		cfg:     cfg,
		log:     log.Named("messaging.consumer"),
		metrics: metrics,
		tracer:  otel.Tracer("academy/messaging"),
	}
}

// Handle binds h to queue. It must be called before Run.
func (c *Consumer) Handle(queue string, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.routes = append(c.routes, route{queue: queue, handler: h})
}

// Queues lists the queues with a registered handler.
func (c *Consumer) Queues() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.routes))
	for _, r := range c.routes {
		out = append(out, r.queue)
	}
	return out
}

// Run consumes every registered queue until ctx is done or the broker
// closes a delivery stream. In-flight handlers finish before Run returns.
func (c *Consumer) Run(ctx context.Context) error {
	c.mu.Lock()
	routes := append([]route(nil), c.routes...)
	c.mu.Unlock()

	if len(routes) == 0 {
		return nil
	}
	if c.cfg.Prefetch > 0 {
		if err := c.ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
			return fmt.Errorf("set prefetch: %w", err)
		}
	}

	// Every stream is opened before any worker starts, so a failed Consume
	// leaves nothing running.
	streams := make([]<-chan amqp.Delivery, len(routes))
	for i, r := range routes {
		tag := fmt.Sprintf("%s.%s", c.cfg.Name, r.queue)
		deliveries, err := c.ch.Consume(r.queue, tag, false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("consume %s: %w", r.queue, err)
		}
		streams[i] = deliveries
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, r := range routes {
		c.log.Info("consuming queue", zap.String("queue", r.queue), zap.Int("workers", c.cfg.Workers))
		for w := 0; w < c.cfg.Workers; w++ {
			g.Go(func() error {
				return c.work(gctx, r, streams[i])
			})
		}
	}
	return g.Wait()
}

func (c *Consumer) work(ctx context.Context, r route, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("%w: %s", ErrDeliveriesClosed, r.queue)
			}
			// Handlers run to completion even while the consumer is stopping.
			c.dispatch(context.WithoutCancel(ctx), r.queue, d, r.handler)
		}
	}
}

func (c *Consumer) dispatch(ctx context.Context, queue string, d amqp.Delivery, h Handler) {
	msg := inboundFrom(queue, d)

	ctx = otel.GetTextMapPropagator().Extract(ctx, tableCarrier(d.Headers))
	ctx, release := correlation.Begin(ctx, msg.Correlation)
	defer func() {
		release()
		c.metrics.SetOpenScopes(correlation.Open())
	}()

	ctx, span := c.tracer.Start(ctx, queue+" process",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "rabbitmq"),
			attribute.String("messaging.destination.name", queue),
			attribute.String("messaging.rabbitmq.destination.routing_key", d.RoutingKey),
			attribute.String("messaging.message.conversation_id", msg.Correlation.ID),
		),
	)
	defer span.End()

	log := ctxlogger.WithContext(ctx, c.log).With(
		zap.String("queue", queue),
		zap.String("message_id", msg.MessageID),
		zap.Bool("redelivered", msg.Redelivered),
	)

	start := time.Now()
	res := invoke(ctx, h, msg)
	c.metrics.ObserveHandled(queue, res.outcome(), res.Err, time.Since(start))

	if res.Err != nil {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.outcome())
	}

	if err := settle(d, res); err != nil {
		log.Error("failed to settle delivery", zap.String("outcome", res.outcome()), zap.Error(err))
		return
	}

	switch res.Action {
	case ActionRetry:
		log.Warn("delivery requeued", zap.Error(res.Err))
	case ActionReject:
		log.Error("delivery dead-lettered", zap.Error(res.Err))
	default:
		log.Debug("delivery acknowledged")
	}
}

func invoke(ctx context.Context, h Handler, msg Inbound) (res Result) {
	defer func() {
		if rec := recover(); rec != nil {
			res = Retry(fmt.Errorf("%w: %v", ErrHandlerPanic, rec))
		}
	}()
	return h(ctx, msg)
}

func settle(d amqp.Delivery, res Result) error {
	switch res.Action {
	case ActionRetry:
		return d.Nack(false, true)
	case ActionReject:
		return d.Nack(false, false)
	default:
		return d.Ack(false)
	}
}
