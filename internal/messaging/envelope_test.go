package messaging

import (
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/smallbiznis/academy/pkg/telemetry/correlation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInboundStringifiesHeaders(t *testing.T) {
	d := amqp.Delivery{
		CorrelationId: "c-1",
		MessageId:     "m-1",
		Headers: amqp.Table{
			"courseId":    int64(12),
			"flag":        true,
			"raw":         []byte("bytes"),
			"traceparent": "00-abc",
			"nested":      amqp.Table{"a": "b"},
		},
	}

	in := inboundFrom("certificate-request-queue", d)
	assert.Equal(t, "c-1", in.Correlation.ID)
	assert.Equal(t, "12", in.Correlation.Header("courseId"))
	assert.Equal(t, "true", in.Correlation.Header("flag"))
	assert.Equal(t, "bytes", in.Correlation.Header("raw"))
	_, hasNested := in.Correlation.Headers["nested"]
	assert.False(t, hasNested)
}

func TestEnvelopePublishing(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := correlation.FromInbound("cid", map[string]string{"courseId": "9"})

	env, err := NewEnvelope("course-exchange", "course-certificate.issued", c, map[string]int{"id": 1}, now)
	require.NoError(t, err)

	msg := env.Publishing()
	assert.Equal(t, "cid", msg.CorrelationId)
	assert.Equal(t, env.MessageID, msg.MessageId)
	assert.Equal(t, now, msg.Timestamp)
	assert.Equal(t, "9", msg.Headers["courseId"])
	assert.JSONEq(t, `{"id":1}`, string(msg.Body))
}
