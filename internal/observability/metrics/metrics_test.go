package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("outcome", "inserted"),
		attribute.String("user_id", "learner-1"),
		attribute.String("queue", "courses-queue"),
	)
	require.Len(t, attrs, 2)
	keys := []attribute.Key{attrs[0].Key, attrs[1].Key}
	assert.Contains(t, keys, attribute.Key("outcome"))
	assert.Contains(t, keys, attribute.Key("queue"))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordProgressApplied(ctx, "updated")
	m.RecordCertificateRequested(ctx)
	m.RecordCertificateIssued(ctx)
	m.RecordCertificateSkipped(ctx)
	m.RecordAchievement(ctx)
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{ServiceName: "users"}, noop.NewMeterProvider())
	require.NoError(t, err)
	m.RecordProgressApplied(context.Background(), "inserted")
}
