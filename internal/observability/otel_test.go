package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/yungbote/catchment-service/internal/config"
	"github.com/yungbote/catchment-service/internal/platform/logger"
)

func TestInitOTelDisabledIsNoop(t *testing.T) {
	before := otel.GetTracerProvider()
	shutdown := InitOTel(context.Background(), logger.Nop(), config.TracingConfig{}, "test", "dev")
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
	assert.Equal(t, before, otel.GetTracerProvider())
}

func TestInitOTelEnabledInstallsProvider(t *testing.T) {
	before := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(before) })

	shutdown := InitOTel(context.Background(), logger.Nop(), config.TracingConfig{
		Enabled:     true,
		Endpoint:    "127.0.0.1:4318",
		Insecure:    true,
		SampleRatio: 1,
		ServiceName: "catchment-test",
	}, "test", "dev")

	_, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	assert.True(t, ok)
	assert.NoError(t, shutdown(context.Background()))
}
