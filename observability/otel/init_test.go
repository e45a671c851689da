package otel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseHeaders(t *testing.T) {
	got := ParseHeaders(" api-key = abc ,broken, =skip,tenant=one")
	require.Equal(t, map[string]string{"api-key": "abc", "tenant": "one"}, got)
}

func TestSetupWithoutEndpointIsNoop(t *testing.T) {
	shutdown, err := Setup(context.Background(), Options{ServiceName: "onecoupon", Traces: true, Metrics: true})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestSetupRequiresServiceName(t *testing.T) {
	_, err := Setup(context.Background(), Options{})
	require.Error(t, err)
}
