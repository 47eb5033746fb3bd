package crpt

import (
	"context"
	"time"
)

// MetricsSink receives per-method call outcomes. Implementations must be safe
// for concurrent use.
type MetricsSink interface {
	IncSuccess(ctx context.Context, method string)
	IncFailure(ctx context.Context, method string)
	ObserveDuration(ctx context.Context, method string, d time.Duration)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) IncSuccess(context.Context, string)                     {}
func (NopMetrics) IncFailure(context.Context, string)                     {}
func (NopMetrics) ObserveDuration(context.Context, string, time.Duration) {}
