package telemetry

import (
	"context"
	"net/http"

	"storefront/internal/domain/model"
	"storefront/internal/usecase"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// InitMeterProvider はPrometheus exporterでMeterProviderを作る。
// /metrics 用のハンドラと終了処理を返す。
func InitMeterProvider(serviceName, serviceVersion string) (http.Handler, func(context.Context) error, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(newResource(serviceName, serviceVersion)),
	)
	otel.SetMeterProvider(mp)

	return promhttp.Handler(), mp.Shutdown, nil
}

// CountingNotifier は注文イベントを数えてから次へ渡す。
type CountingNotifier struct {
	next     usecase.Notifier
	events   metric.Int64Counter
	failures metric.Int64Counter
}

func NewCountingNotifier(next usecase.Notifier, meter metric.Meter) (*CountingNotifier, error) {
	events, err := meter.Int64Counter("storefront.order.events",
		metric.WithDescription("order lifecycle events committed"))
	if err != nil {
		return nil, err
	}
	failures, err := meter.Int64Counter("storefront.order.notify_failures",
		metric.WithDescription("order events that could not be delivered"))
	if err != nil {
		return nil, err
	}
	return &CountingNotifier{next: next, events: events, failures: failures}, nil
}

func (n *CountingNotifier) Notify(ctx context.Context, ev model.OrderNotification) error {
	attrs := metric.WithAttributes(
		attribute.String("event", string(ev.Event)),
		attribute.String("to", string(ev.To)),
	)
	n.events.Add(ctx, 1, attrs)

	if err := n.next.Notify(ctx, ev); err != nil {
		n.failures.Add(ctx, 1, attrs)
		return err
	}
	return nil
}
