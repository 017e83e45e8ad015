package telemetry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

func TestInit_WritesSpansOnShutdown(t *testing.T) {
	t.Cleanup(func() {
		otel.SetTracerProvider(tracenoop.NewTracerProvider())
		otel.SetMeterProvider(noop.NewMeterProvider())
	})

	dir := filepath.Join(t.TempDir(), "telemetry")
	shutdown, err := Init(context.Background(), Options{Dir: dir, ServiceVersion: "test"})
	require.NoError(t, err)

	_, span := otel.Tracer("telemetry-test").Start(context.Background(), "search.cpu")
	span.End()

	counter, err := otel.Meter("telemetry-test").Int64Counter("searches")
	require.NoError(t, err)
	counter.Add(context.Background(), 1)

	require.NoError(t, shutdown(context.Background()))

	traces, err := os.ReadFile(filepath.Join(dir, TraceFile))
	require.NoError(t, err)
	assert.Contains(t, string(traces), "search.cpu")
	assert.Contains(t, string(traces), "pcbuilder")

	metrics, err := os.ReadFile(filepath.Join(dir, MetricFile))
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "searches")
}

func TestInit_BadDirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, nil, 0o600))

	_, err := Init(context.Background(), Options{Dir: filepath.Join(file, "sub")})
	assert.Error(t, err)
}
