package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	obsmetrics "github.com/smallbiznis/academy/internal/observability/metrics"
)

// Action says how a delivery is settled with the broker.
type Action int

const (
	// ActionAck removes the message from the queue.
	ActionAck Action = iota
	// ActionRetry negatively acknowledges with requeue; the broker redelivers
	// until the queue's message TTL dead-letters it.
	ActionRetry
	// ActionReject negatively acknowledges without requeue, routing the
	// message to the queue's dead-letter exchange.
	ActionReject
)

// Result is a handler's verdict on one delivery.
type Result struct {
	Action Action
	Err    error
}

var (
	// ErrMalformed marks a delivery that can never be processed.
	ErrMalformed = errors.New("malformed_message")
	// ErrHandlerPanic marks a delivery whose handler panicked.
	ErrHandlerPanic = obsmetrics.ErrHandlerPanic
)

func Ack() Result { return Result{Action: ActionAck} }

func Retry(err error) Result { return Result{Action: ActionRetry, Err: err} }

func Fatal(err error) Result { return Result{Action: ActionReject, Err: err} }

// ResultFrom classifies a handler error. Malformed input is fatal; every
// other failure is retried.
func ResultFrom(err error) Result {
	switch {
	case err == nil:
		return Ack()
	case errors.Is(err, ErrMalformed):
		return Fatal(err)
	default:
		return Retry(err)
	}
}

func (r Result) outcome() string {
	switch r.Action {
	case ActionRetry:
		return obsmetrics.ConsumeOutcomeRetry
	case ActionReject:
		return obsmetrics.ConsumeOutcomeReject
	default:
		return obsmetrics.ConsumeOutcomeAck
	}
}

// Handler processes one delivery inside its correlation scope.
type Handler func(ctx context.Context, msg Inbound) Result

// JSON decodes the delivery body into T before calling fn.
func JSON[T any](fn func(ctx context.Context, payload T, msg Inbound) error) Handler {
	return func(ctx context.Context, msg Inbound) Result {
		var payload T
		if err := json.Unmarshal(msg.Body, &payload); err != nil {
			return Fatal(fmt.Errorf("%w: %v", ErrMalformed, err))
		}
		return ResultFrom(fn(ctx, payload, msg))
	}
}
