package messaging

import (
	"context"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

type published struct {
	exchange  string
	key       string
	mandatory bool
	msg       amqp.Publishing
}

type declaredQueue struct {
	name    string
	durable bool
	args    amqp.Table
}

type fakeChannel struct {
	mu sync.Mutex

	exchanges  map[string]string
	queues     []declaredQueue
	bindings   []Binding
	publishes  []published
	publishErr error
	confirmed  bool
	prefetch   int
	deliveries map[string]chan amqp.Delivery
	consumeErr map[string]error
	returns    chan amqp.Return
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		exchanges:  map[string]string{},
		deliveries: map[string]chan amqp.Delivery{},
		consumeErr: map[string]error{},
	}
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchanges[name] = kind
	return nil
}

func (f *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queues = append(f.queues, declaredQueue{name: name, durable: durable, args: args})
	return amqp.Queue{Name: name}, nil
}

func (f *fakeChannel) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bindings = append(f.bindings, Binding{Queue: name, Exchange: exchange, RoutingKey: key})
	return nil
}

func (f *fakeChannel) Qos(prefetchCount, prefetchSize int, global bool) error {
	f.prefetch = prefetchCount
	return nil
}

func (f *fakeChannel) Confirm(noWait bool) error {
	f.confirmed = true
	return nil
}

func (f *fakeChannel) NotifyReturn(c chan amqp.Return) chan amqp.Return {
	f.returns = c
	return c
}

func (f *fakeChannel) PublishWithDeferredConfirmWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) (*amqp.DeferredConfirmation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return nil, f.publishErr
	}
	f.publishes = append(f.publishes, published{exchange: exchange, key: key, mandatory: mandatory, msg: msg})
	return nil, nil
}

func (f *fakeChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.consumeErr[queue]; err != nil {
		return nil, err
	}
	ch, ok := f.deliveries[queue]
	if !ok {
		ch = make(chan amqp.Delivery, 16)
		f.deliveries[queue] = ch
	}
	return ch, nil
}

func (f *fakeChannel) Close() error { return nil }

func (f *fakeChannel) sent() []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]published(nil), f.publishes...)
}

type settlement struct {
	tag      uint64
	acked    bool
	requeued bool
}

type fakeAcknowledger struct {
	mu      sync.Mutex
	settled []settlement
	done    chan struct{}
}

func newFakeAcknowledger() *fakeAcknowledger {
	return &fakeAcknowledger{done: make(chan struct{}, 16)}
}

func (a *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	a.record(settlement{tag: tag, acked: true})
	return nil
}

func (a *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	a.record(settlement{tag: tag, requeued: requeue})
	return nil
}

func (a *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	a.record(settlement{tag: tag, requeued: requeue})
	return nil
}

func (a *fakeAcknowledger) record(s settlement) {
	a.mu.Lock()
	a.settled = append(a.settled, s)
	a.mu.Unlock()
	a.done <- struct{}{}
}

func (a *fakeAcknowledger) last() settlement {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.settled[len(a.settled)-1]
}

type stubConfirmation struct {
	done  chan struct{}
	acked bool
}

func settledConfirmation(acked bool) stubConfirmation {
	done := make(chan struct{})
	close(done)
	return stubConfirmation{done: done, acked: acked}
}

func (c stubConfirmation) Done() <-chan struct{} { return c.done }

func (c stubConfirmation) Acked() bool { return c.acked }
