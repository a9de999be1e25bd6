package telemetry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newDBMetricsReader(t *testing.T) (*sdkmetric.ManualReader, *DBMetrics) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = provider.Shutdown(context.Background())
	})

	metrics, err := NewDBMetrics(provider.Meter(t.Name()), DefaultDBMetricsConfig(), zap.NewNop())
	require.NoError(t, err)
	return reader, metrics
}

func findMetric(rm metricdata.ResourceMetrics, name string) bool {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return true
			}
		}
	}
	return false
}

func TestDefaultDBMetricsConfig(t *testing.T) {
	cfg := DefaultDBMetricsConfig()

	assert.True(t, cfg.Enabled)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThreshold)
	assert.Equal(t, 15*time.Second, cfg.PoolStatsInterval)
}

func TestNewDBMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(context.Background())
	meter := provider.Meter("test")

	t.Run("fills in zero config values", func(t *testing.T) {
		metrics, err := NewDBMetrics(meter, DBMetricsConfig{}, zap.NewNop())
		require.NoError(t, err)

		assert.Equal(t, 200*time.Millisecond, metrics.config.SlowQueryThreshold)
		assert.Equal(t, 15*time.Second, metrics.config.PoolStatsInterval)
	})

	t.Run("tolerates a nil logger", func(t *testing.T) {
		metrics, err := NewDBMetrics(meter, DefaultDBMetricsConfig(), nil)
		require.NoError(t, err)
		require.NotNil(t, metrics.logger)
	})
}

func TestDBMetricsRecordQuery(t *testing.T) {
	ctx := context.Background()

	t.Run("records count and duration", func(t *testing.T) {
		reader, metrics := newDBMetricsReader(t)

		metrics.RecordQuery(ctx, "SELECT", "parties", 50*time.Millisecond, nil)

		var rm metricdata.ResourceMetrics
		require.NoError(t, reader.Collect(ctx, &rm))
		assert.True(t, findMetric(rm, "parties_db_query_total"))
		assert.True(t, findMetric(rm, "parties_db_query_duration_seconds"))
	})

	t.Run("counts queries over the slow threshold by table", func(t *testing.T) {
		reader := sdkmetric.NewManualReader()
		provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
		defer provider.Shutdown(ctx)

		metrics, err := NewDBMetrics(provider.Meter("slow"), DBMetricsConfig{
			Enabled:            true,
			SlowQueryThreshold: 100 * time.Millisecond,
		}, zap.NewNop())
		require.NoError(t, err)

		metrics.RecordQuery(ctx, "SELECT", "goings", 250*time.Millisecond, nil)

		var rm metricdata.ResourceMetrics
		require.NoError(t, reader.Collect(ctx, &rm))
		assert.True(t, findMetric(rm, "parties_db_slow_query_total"))
	})

	t.Run("fast queries leave the slow counter at zero", func(t *testing.T) {
		reader, metrics := newDBMetricsReader(t)

		metrics.RecordQuery(ctx, "SELECT", "goings", 50*time.Millisecond, nil)

		var rm metricdata.ResourceMetrics
		require.NoError(t, reader.Collect(ctx, &rm))
		for _, sm := range rm.ScopeMetrics {
			for _, m := range sm.Metrics {
				if m.Name == "parties_db_slow_query_total" {
					sum := m.Data.(metricdata.Sum[int64])
					for _, dp := range sum.DataPoints {
						assert.Equal(t, int64(0), dp.Value)
					}
				}
			}
		}
	})

	t.Run("normalizes the operation label", func(t *testing.T) {
		reader, metrics := newDBMetricsReader(t)

		metrics.RecordQuery(ctx, "select", "parties", 10*time.Millisecond, nil)
		metrics.RecordQuery(ctx, "", "parties", 10*time.Millisecond, nil) // UNKNOWN

		var rm metricdata.ResourceMetrics
		require.NoError(t, reader.Collect(ctx, &rm))
		assert.True(t, findMetric(rm, "parties_db_query_total"))
	})
}

func TestDBMetricsPoolStats(t *testing.T) {
	ctx := context.Background()

	t.Run("samples the pool gauges", func(t *testing.T) {
		reader := sdkmetric.NewManualReader()
		provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
		defer provider.Shutdown(ctx)

		mockDB, _, err := sqlmock.New()
		require.NoError(t, err)
		defer mockDB.Close()

		metrics, err := NewDBMetrics(provider.Meter("pool"), DBMetricsConfig{
			Enabled:           true,
			PoolStatsInterval: 50 * time.Millisecond,
		}, zap.NewNop())
		require.NoError(t, err)
		metrics.SetSQLDB(mockDB)

		collectCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		metrics.StartPoolStatsCollection(collectCtx)
		time.Sleep(100 * time.Millisecond)
		metrics.Stop()

		var rm metricdata.ResourceMetrics
		require.NoError(t, reader.Collect(ctx, &rm))
		assert.True(t, findMetric(rm, "parties_db_pool_connections_max"))
		assert.True(t, findMetric(rm, "parties_db_pool_connections"))
	})

	t.Run("refuses to start without a sql.DB", func(t *testing.T) {
		_, metrics := newDBMetricsReader(t)

		metrics.StartPoolStatsCollection(ctx)
		metrics.Stop()
	})

	t.Run("stop is idempotent and does not block", func(t *testing.T) {
		_, metrics := newDBMetricsReader(t)

		mockDB, _, err := sqlmock.New()
		require.NoError(t, err)
		defer mockDB.Close()
		metrics.SetSQLDB(mockDB)

		collectCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		metrics.StartPoolStatsCollection(collectCtx)

		done := make(chan struct{})
		go func() {
			metrics.Stop()
			metrics.Stop()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("Stop blocked")
		}
	})
}

func TestDBMetricsPlugin(t *testing.T) {
	_, metrics := newDBMetricsReader(t)
	plugin := NewDBMetricsPlugin(metrics, zap.NewNop())

	assert.Equal(t, "parties_db_metrics", plugin.Name())

	mockDB, _, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB}), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, plugin.Initialize(gormDB))
}

func TestDetectOperationType(t *testing.T) {
	tests := []struct {
		sql      string
		expected string
	}{
		{"SELECT * FROM parties", "SELECT"},
		{"  select id from parties", "SELECT"},
		{"INSERT INTO goings (party_id) VALUES ($1)", "INSERT"},
		{"UPDATE parties SET status = 'approved'", "UPDATE"},
		{"delete from goings", "DELETE"},
		{"TRUNCATE TABLE parties", "OTHER"},
		{"", "OTHER"},
	}

	for _, tc := range tests {
		t.Run(tc.sql, func(t *testing.T) {
			assert.Equal(t, tc.expected, detectOperationType(tc.sql))
		})
	}
}

func TestRegisterDBMetrics(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()

	newGorm := func(t *testing.T) *gorm.DB {
		t.Helper()
		mockDB, _, err := sqlmock.New()
		require.NoError(t, err)
		t.Cleanup(func() { mockDB.Close() })

		gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB}), &gorm.Config{})
		require.NoError(t, err)
		return gormDB
	}

	t.Run("returns nil when disabled or without a provider", func(t *testing.T) {
		metrics, err := RegisterDBMetrics(newGorm(t), nil, DBMetricsConfig{Enabled: false}, logger)
		require.NoError(t, err)
		assert.Nil(t, metrics)

		metrics, err = RegisterDBMetrics(newGorm(t), nil, DBMetricsConfig{Enabled: true}, logger)
		require.NoError(t, err)
		assert.Nil(t, metrics)
	})

	t.Run("registers against a live provider", func(t *testing.T) {
		reader := sdkmetric.NewManualReader()
		sdkProvider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
		defer sdkProvider.Shutdown(ctx)

		mp := &MeterProvider{
			provider: sdkProvider,
			logger:   logger,
			config:   MetricsConfig{Enabled: true},
		}

		metrics, err := RegisterDBMetrics(newGorm(t), mp, DefaultDBMetricsConfig(), logger)
		require.NoError(t, err)
		require.NotNil(t, metrics)
	})
}

func TestDBMetricsConcurrentRecordQuery(t *testing.T) {
	ctx := context.Background()
	reader, metrics := newDBMetricsReader(t)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			operation := []string{"SELECT", "INSERT", "UPDATE", "DELETE"}[i%4]
			table := []string{"profiles", "parties", "goings", "profiles"}[i%4]
			metrics.RecordQuery(ctx, operation, table, time.Duration(i)*time.Millisecond, nil)
		}(i)
	}
	wg.Wait()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	assert.True(t, findMetric(rm, "parties_db_query_total"))
}
