package monitoring

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
)

func TestConfig_Validate(t *testing.T) {
	t.Run("Should accept a disabled config without a path", func(t *testing.T) {
		assert.NoError(t, (&Config{}).Validate())
	})

	t.Run("Should require a .prom textfile when enabled", func(t *testing.T) {
		assert.Error(t, (&Config{Enabled: true}).Validate())
		assert.Error(t, (&Config{Enabled: true, TextfilePath: "metrics.txt"}).Validate())
		assert.NoError(t, (&Config{Enabled: true, TextfilePath: "out/docchat.prom"}).Validate())
	})
}

func TestNewMonitoringService(t *testing.T) {
	t.Run("Should return a no-op service when disabled", func(t *testing.T) {
		svc, err := NewMonitoringService(t.Context(), DefaultConfig())
		require.NoError(t, err)
		assert.False(t, svc.IsInitialized())
		assert.NotNil(t, svc.Meter())
		assert.NoError(t, svc.WriteTextfile(t.Context()))
		assert.NoError(t, svc.Shutdown(t.Context()))
	})

	t.Run("Should write recorded metrics to the textfile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "docchat.prom")
		svc, err := NewMonitoringService(t.Context(), &Config{Enabled: true, TextfilePath: path})
		require.NoError(t, err)
		require.True(t, svc.IsInitialized())

		counter, err := svc.Meter().Int64Counter("docchat_test_events", metric.WithDescription("test events"))
		require.NoError(t, err)
		counter.Add(t.Context(), 3)

		require.NoError(t, svc.WriteTextfile(t.Context()))
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "docchat_test_events")
		assert.NoError(t, svc.Shutdown(t.Context()))
	})

	t.Run("Should fall back to no-op on invalid config", func(t *testing.T) {
		svc := NewMonitoringServiceWithFallback(t.Context(), &Config{Enabled: true, TextfilePath: "bad.txt"})
		assert.False(t, svc.IsInitialized())
		assert.Error(t, svc.InitializationError())
	})
}
