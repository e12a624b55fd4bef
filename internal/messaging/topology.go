package messaging

import (
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/smallbiznis/academy/internal/config"
)

// QueuePolicy is applied to every consumed queue.
type QueuePolicy struct {
	MessageTTL         time.Duration
	DeadLetterExchange string
	ParkingLotQueue    string
}

func PolicyFromSettings(s config.TopologySettings) QueuePolicy {
	return QueuePolicy{
		MessageTTL:         time.Duration(s.MessageTTLMillis) * time.Millisecond,
		DeadLetterExchange: s.DeadLetterExchange,
		ParkingLotQueue:    s.ParkingLotQueue,
	}
}

type Exchange struct {
	Name string
	Kind string
}

type Queue struct {
	Name               string
	MessageTTL         time.Duration
	DeadLetterExchange string
}

// Arguments returns the x-arguments the queue is declared with.
func (q Queue) Arguments() amqp.Table {
	args := amqp.Table{}
	if q.MessageTTL > 0 {
		args["x-message-ttl"] = int32(q.MessageTTL / time.Millisecond)
	}
	if q.DeadLetterExchange != "" {
		args["x-dead-letter-exchange"] = q.DeadLetterExchange
	}
	return args
}

type Binding struct {
	Queue      string
	Exchange   string
	RoutingKey string
}

// Topology is the set of durable exchanges, queues and bindings a service
// declares at startup. Declaration is idempotent on the broker side as long
// as arguments match.
type Topology struct {
	Exchanges []Exchange
	Queues    []Queue
	Bindings  []Binding
}

func (t Topology) Declare(ch Declarer) error {
	for _, ex := range t.Exchanges {
		kind := ex.Kind
		if kind == "" {
			kind = amqp.ExchangeTopic
		}
		if err := ch.ExchangeDeclare(ex.Name, kind, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex.Name, err)
		}
	}
	for _, q := range t.Queues {
		if _, err := ch.QueueDeclare(q.Name, true, false, false, false, q.Arguments()); err != nil {
			return fmt.Errorf("declare queue %s: %w", q.Name, err)
		}
	}
	for _, b := range t.Bindings {
		if err := ch.QueueBind(b.Queue, b.RoutingKey, b.Exchange, false, nil); err != nil {
			return fmt.Errorf("bind %s to %s/%s: %w", b.Queue, b.Exchange, b.RoutingKey, err)
		}
	}
	return nil
}

// Merge appends other to t.
func (t Topology) Merge(other Topology) Topology {
	return Topology{
		Exchanges: append(append([]Exchange(nil), t.Exchanges...), other.Exchanges...),
		Queues:    append(append([]Queue(nil), t.Queues...), other.Queues...),
		Bindings:  append(append([]Binding(nil), t.Bindings...), other.Bindings...),
	}
}

// DeadLetterTopology declares the dead-letter exchange and its parking-lot
// queue. The parking lot has no consumer.
func DeadLetterTopology(p QueuePolicy) Topology {
	t := Topology{
		Exchanges: []Exchange{{Name: p.DeadLetterExchange, Kind: amqp.ExchangeTopic}},
	}
	if p.ParkingLotQueue != "" {
		t.Queues = []Queue{{Name: p.ParkingLotQueue}}
		t.Bindings = []Binding{{Queue: p.ParkingLotQueue, Exchange: p.DeadLetterExchange, RoutingKey: "#"}}
	}
	return t
}
