package observability_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/carbonstats/pkg/observability"
)

func TestInit_NoopWhenNoEndpoint(t *testing.T) {
	t.Parallel()

	providers, err := observability.Init(observability.DefaultConfig())
	require.NoError(t, err)

	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.Logger)

	ctx, span := providers.Tracer.Start(context.Background(), "carbonstats.compute")
	span.End()

	assert.NotNil(t, ctx)
	assert.NoError(t, providers.Shutdown(context.Background()))
}

func TestInit_WithResourceAttributes(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()
	cfg.ServiceVersion = "1.2.3"
	cfg.Environment = "test"
	cfg.Mode = observability.ModeMCP
	cfg.LogJSON = true

	providers, err := observability.Init(cfg)
	require.NoError(t, err)

	t.Cleanup(func() { assert.NoError(t, providers.Shutdown(context.Background())) })

	sm, err := observability.NewScanMetrics(providers.Meter)
	require.NoError(t, err)
	assert.NotNil(t, sm)
}

func TestParseOTLPHeaders(t *testing.T) {
	t.Parallel()

	assert.Nil(t, observability.ParseOTLPHeaders(""))
	assert.Nil(t, observability.ParseOTLPHeaders("garbage"))
	assert.Equal(t,
		map[string]string{"x-api-key": "secret", "tenant": "carbon"},
		observability.ParseOTLPHeaders(" x-api-key = secret , tenant=carbon"))
}

func TestAttributeAllowed(t *testing.T) {
	t.Parallel()

	assert.True(t, observability.AttributeAllowed("scan.pages"))
	assert.True(t, observability.AttributeAllowed("collection"))
	assert.True(t, observability.AttributeAllowed("http.route"))
	assert.False(t, observability.AttributeAllowed("store.rest.api_key"))
	assert.False(t, observability.AttributeAllowed("http.request.header.authorization"))
	assert.False(t, observability.AttributeAllowed("user.email"))
}
