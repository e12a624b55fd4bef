package messaging

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/smallbiznis/academy/pkg/telemetry/correlation"
	"go.opentelemetry.io/otel"
)

const contentTypeJSON = "application/json"

// Envelope is one outbound event: routing, diagnostic context and JSON body.
type Envelope struct {
	MessageID   string
	Exchange    string
	RoutingKey  string
	Correlation correlation.Context
	Body        []byte
	Timestamp   time.Time
}

func NewEnvelope(exchange, routingKey string, c correlation.Context, payload any, now time.Time) (Envelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode payload: %w", err)
	}
	return Envelope{
		MessageID:   ulid.Make().String(),
		Exchange:    exchange,
		RoutingKey:  routingKey,
		Correlation: c,
		Body:        body,
		Timestamp:   now.UTC(),
	}, nil
}

// Publishing converts the envelope into a persistent AMQP message.
func (e Envelope) Publishing() amqp.Publishing {
	headers := amqp.Table{}
	for k, v := range e.Correlation.Headers {
		headers[k] = v
	}
	return amqp.Publishing{
		ContentType:   contentTypeJSON,
		DeliveryMode:  amqp.Persistent,
		CorrelationId: e.Correlation.ID,
		MessageId:     e.MessageID,
		Timestamp:     e.Timestamp,
		Type:          e.RoutingKey,
		Headers:       headers,
		Body:          e.Body,
	}
}

// Inbound is a delivery as seen by a handler.
type Inbound struct {
	Queue       string
	RoutingKey  string
	MessageID   string
	Redelivered bool
	Correlation correlation.Context
	Body        []byte
}

func inboundFrom(queue string, d amqp.Delivery) Inbound {
	return Inbound{
		Queue:       queue,
		RoutingKey:  d.RoutingKey,
		MessageID:   d.MessageId,
		Redelivered: d.Redelivered,
		Correlation: correlation.FromInbound(d.CorrelationId, stringHeaders(d.Headers)),
		Body:        d.Body,
	}
}

// stringHeaders keeps the scalar headers of a delivery, rendered as strings.
// Trace propagation fields are left to the propagator.
func stringHeaders(table amqp.Table) map[string]string {
	skip := map[string]struct{}{}
	for _, f := range otel.GetTextMapPropagator().Fields() {
		skip[f] = struct{}{}
	}

	out := make(map[string]string, len(table))
	for k, v := range table {
		if _, ok := skip[k]; ok {
			continue
		}
		if s, ok := headerString(v); ok {
			out[k] = s
		}
	}
	return out
}

func headerString(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case []byte:
		return string(val), true
	case bool:
		return strconv.FormatBool(val), true
	case int8, int16, int32, int64, int, uint8, uint16, uint32, uint64, uint:
		return fmt.Sprint(val), true
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	default:
		return "", false
	}
}
