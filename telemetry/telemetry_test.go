package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/Aurel1407/Shu-no-sub002/envutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_KubernetesEndpoint(t *testing.T) { //nolint:paralleltest
	t.Setenv("KUBERNETES_SERVICE_HOST", "10.0.0.1")

	cfg := DefaultConfig()
	assert.Equal(t, "http://opentelemetry-collector.opentelemetry.svc.cluster.local:4318", cfg.Endpoint)
	assert.False(t, cfg.Enabled)

	t.Setenv("KUBERNETES_SERVICE_HOST", "")
	assert.Empty(t, DefaultConfig().Endpoint)
}

func TestLoadConfigFromEnv(t *testing.T) { //nolint:paralleltest
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_SERVICE_NAME", "booking-api")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://collector:4318")
	t.Setenv("OTEL_EXPORTER_OTLP_TIMEOUT", "2s")

	cfg, err := LoadConfigFromEnv("staging")
	require.NoError(t, err)

	assert.True(t, cfg.Enabled)
	assert.Equal(t, "booking-api", cfg.ServiceName)
	assert.Equal(t, defaultServiceVersion, cfg.ServiceVersion)
	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, "http://collector:4318", cfg.Endpoint)
	assert.Equal(t, 2*time.Second, cfg.Timeout)
}

func TestLoadConfigFromEnv_BadValue(t *testing.T) { //nolint:paralleltest
	t.Setenv("OTEL_ENABLED", "sometimes")

	_, err := LoadConfigFromEnv("dev")
	require.ErrorIs(t, err, envutil.ErrBadEnvVar)
}

func TestInitialize_Disabled(t *testing.T) { //nolint:paralleltest
	require.NoError(t, Initialize(t.Context(), Config{Enabled: false}))
	require.NoError(t, Initialize(t.Context(), Config{Enabled: true}))
	require.NoError(t, Shutdown(t.Context()))
}

func TestInitialize_AndShutdown(t *testing.T) { //nolint:paralleltest
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.Endpoint = "http://127.0.0.1:4318"
	cfg.Environment = "test"

	require.NoError(t, Initialize(t.Context(), cfg))

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	require.NoError(t, Shutdown(ctx))
	require.NoError(t, Shutdown(ctx), "second shutdown is a no-op")
}
