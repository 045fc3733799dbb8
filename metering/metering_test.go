// Copyright 2021 The httpexec Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package metering

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func setupTestMeterProvider(t *testing.T) (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = provider.Shutdown(context.Background())
	})
	return provider, reader
}

func collectEnded(t *testing.T, reader *sdkmetric.ManualReader) metricdata.Sum[int64] {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		if sm.Scope.Name != MeterName {
			continue
		}
		for _, m := range sm.Metrics {
			if m.Name != MetricEnded {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "expected sum data")
			return sum
		}
	}
	require.Fail(t, "metric not found", MetricEnded)
	return metricdata.Sum[int64]{}
}

func TestMeter(t *testing.T) {
	provider, reader := setupTestMeterProvider(t)
	m, err := NewMeter(provider, attribute.String("service", "test"))
	require.NoError(t, err)

	m.EndedRequest()
	m.EndedRequest()
	m.EndedRequest()

	sum := collectEnded(t, reader)
	assert.True(t, sum.IsMonotonic)
	require.Len(t, sum.DataPoints, 1)
	dp := sum.DataPoints[0]
	assert.Equal(t, int64(3), dp.Value)
	v, ok := dp.Attributes.Value("service")
	require.True(t, ok)
	assert.Equal(t, "test", v.AsString())
}

func TestNewMeter_GlobalProvider(t *testing.T) {
	m, err := NewMeter(nil)
	require.NoError(t, err)
	assert.NotPanics(t, m.EndedRequest)
}

func TestCounter(t *testing.T) {
	var c Counter
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.EndedRequest()
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(50), c.Count())
}
