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
		attribute.String("parish_id", "123"),
		attribute.String("grave_id", "456"),
		attribute.String("cause", "burial_deleted"),
	)
	require.Len(t, attrs, 2)
	keys := []attribute.Key{attrs[0].Key, attrs[1].Key}
	assert.Contains(t, keys, attribute.Key("parish_id"))
	assert.Contains(t, keys, attribute.Key("cause"))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordRecompute(ctx, "burial_deleted", "ok")
	m.RecordPayment(ctx, "posted")
	m.RecordLedgerFailure(ctx, "concession_payment")
	m.RecordOccupancyRead(ctx, true, 3)
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{ServiceName: "ecclesia"}, noop.NewMeterProvider())
	require.NoError(t, err)
	m.RecordRecompute(context.Background(), "concession_deleted", "ok")
}
