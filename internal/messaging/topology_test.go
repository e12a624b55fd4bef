package messaging

import (
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/smallbiznis/academy/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueArguments(t *testing.T) {
	q := Queue{Name: "courses-queue", MessageTTL: time.Minute, DeadLetterExchange: "dlx"}
	args := q.Arguments()

	assert.Equal(t, int32(60000), args["x-message-ttl"])
	assert.Equal(t, "dlx", args["x-dead-letter-exchange"])
	assert.Empty(t, Queue{Name: "plain"}.Arguments())
}

func TestDeclareTopology(t *testing.T) {
	policy := PolicyFromSettings(config.DefaultTopologySettings())
	topo := Topology{
		Exchanges: []Exchange{{Name: "course-exchange"}},
		Queues:    []Queue{{Name: "courses-queue", MessageTTL: policy.MessageTTL, DeadLetterExchange: policy.DeadLetterExchange}},
		Bindings:  []Binding{{Queue: "courses-queue", Exchange: "course-exchange", RoutingKey: "course-level.passed"}},
	}.Merge(DeadLetterTopology(policy))

	ch := newFakeChannel()
	require.NoError(t, topo.Declare(ch))

	assert.Equal(t, amqp.ExchangeTopic, ch.exchanges["course-exchange"])
	assert.Equal(t, amqp.ExchangeTopic, ch.exchanges["dlx"])
	require.Len(t, ch.queues, 2)
	assert.True(t, ch.queues[0].durable)
	assert.Equal(t, int32(60000), ch.queues[0].args["x-message-ttl"])
	assert.Equal(t, "dlx.parking-lot", ch.queues[1].name)
	assert.Contains(t, ch.bindings, Binding{Queue: "dlx.parking-lot", Exchange: "dlx", RoutingKey: "#"})
}
