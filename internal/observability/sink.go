package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "crptapi/client"

// MetricsSink records API call outcomes as OpenTelemetry instruments.
type MetricsSink struct {
	success  metric.Int64Counter
	failure  metric.Int64Counter
	duration metric.Float64Histogram
}

// NewMetricsSink creates the call instruments on mp, or on the global
// provider when mp is nil.
func NewMetricsSink(mp metric.MeterProvider) (*MetricsSink, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)

	success, err := meter.Int64Counter(
		"crptapi.call.success",
		metric.WithDescription("Number of API calls that succeeded"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	failure, err := meter.Int64Counter(
		"crptapi.call.failure",
		metric.WithDescription("Number of API calls that failed"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"crptapi.call.duration",
		metric.WithDescription("Duration of API calls including rate limiting and token refresh"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &MetricsSink{success: success, failure: failure, duration: duration}, nil
}

func (s *MetricsSink) IncSuccess(ctx context.Context, method string) {
	s.success.Add(ctx, 1, methodAttr(method))
}

func (s *MetricsSink) IncFailure(ctx context.Context, method string) {
	s.failure.Add(ctx, 1, methodAttr(method))
}

func (s *MetricsSink) ObserveDuration(ctx context.Context, method string, d time.Duration) {
	s.duration.Record(ctx, d.Seconds(), methodAttr(method))
}

func methodAttr(method string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("method", method))
}
