package telemetry

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type notifierFunc func(ctx context.Context, n model.OrderNotification) error

func (f notifierFunc) Notify(ctx context.Context, n model.OrderNotification) error { return f(ctx, n) }

func sumOf(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

func TestCountingNotifier(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	fail := false
	next := notifierFunc(func(ctx context.Context, n model.OrderNotification) error {
		if fail {
			return errors.New("broker down")
		}
		return nil
	})

	n, err := NewCountingNotifier(next, mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, n.Notify(ctx, model.OrderNotification{Event: model.EventPlace, To: model.OrderStatusPlaced}))
	fail = true
	assert.Error(t, n.Notify(ctx, model.OrderNotification{Event: model.EventShip, To: model.OrderStatusShipped}))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	assert.Equal(t, int64(2), sumOf(t, rm, "storefront.order.events"))
	assert.Equal(t, int64(1), sumOf(t, rm, "storefront.order.notify_failures"))
}
