package tracing

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

func TestSafeAttributesDropsBlockedKeys(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/api/v1/graves/:id"),
		attribute.String("http.url", "/api/v1/graves?search=Kowalski"),
	)
	require.Len(t, attrs, 1)
	assert.Equal(t, attribute.Key("http.route"), attrs[0].Key)
}

func TestSafeErrorKeepsOutermostMessage(t *testing.T) {
	err := fmt.Errorf("transaction_failed: %w", errors.New("insert into burials values ('Jan')"))
	assert.EqualError(t, SafeError(err), "transaction_failed")
	assert.Nil(t, SafeError(nil))
}

func TestNewProviderWithoutEndpointDoesNotExport(t *testing.T) {
	provider, err := NewProvider(nil, Config{Enabled: true, ServiceName: "ecclesia"}, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, provider)
}
