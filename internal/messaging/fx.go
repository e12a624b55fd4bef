package messaging

import (
	"context"
	"errors"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/smallbiznis/academy/internal/clock"
	"github.com/smallbiznis/academy/internal/config"
	obsmetrics "github.com/smallbiznis/academy/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module connects to the broker and runs the consumer. The application
// supplies a PublisherConfig and provides its Topology.
var Module = fx.Module("messaging",
	fx.Provide(
		config.LoadTopologySettings,
		PolicyFromSettings,
		Dial,
		providePublisher,
		fx.Annotate(
			func(p *Publisher) *Publisher { return p },
			fx.As(new(EventPublisher)),
		),
		provideConsumer,
	),
	fx.Invoke(declareTopology),
	fx.Invoke(runConsumer),
)

// Dial opens the AMQP connection named after the service.
func Dial(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (*amqp.Connection, error) {
	props := amqp.NewConnectionProperties()
	props.SetClientConnectionName(cfg.AppName)

	conn, err := amqp.DialConfig(cfg.Broker.URL, amqp.Config{Properties: props})
	if err != nil {
		return nil, err
	}

	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	go func() {
		if amqpErr, ok := <-closed; ok && amqpErr != nil {
			log.Error("broker connection closed", zap.Error(amqpErr))
		}
	}()

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			if conn.IsClosed() {
				return nil
			}
			return conn.Close()
		},
	})
	return conn, nil
}

func providePublisher(conn *amqp.Connection, cfg PublisherConfig, log *zap.Logger, metrics *obsmetrics.BrokerMetrics, clk clock.Clock) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	return NewPublisher(ch, cfg, log, metrics, clk)
}

func provideConsumer(conn *amqp.Connection, cfg config.Config, log *zap.Logger, metrics *obsmetrics.BrokerMetrics) (*Consumer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	return NewConsumer(ch, ConsumerConfig{
		Name:     cfg.AppName,
		Workers:  cfg.Broker.Workers,
		Prefetch: cfg.Broker.Prefetch,
	}, log, metrics), nil
}

func declareTopology(lc fx.Lifecycle, conn *amqp.Connection, topology Topology, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ch, err := conn.Channel()
			if err != nil {
				return err
			}
			defer ch.Close()
			if err := topology.Declare(ch); err != nil {
				return err
			}
			log.Info("broker topology declared",
				zap.Int("exchanges", len(topology.Exchanges)),
				zap.Int("queues", len(topology.Queues)),
			)
			return nil
		},
	})
}

func runConsumer(lc fx.Lifecycle, consumer *Consumer, shutdowner fx.Shutdowner, log *zap.Logger) {
	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Info("starting consumer", zap.Strings("queues", consumer.Queues()))
			go func() {
				defer close(done)
				if err := consumer.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
					log.Error("consumer stopped", zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}
