package observability

import (
	"context"
	"time"

	"crptapi/internal/models"
	"crptapi/internal/storage"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentedStorage wraps a storage.Storage implementation with
// OpenTelemetry tracing and metrics instrumentation.
type InstrumentedStorage struct {
	inner    storage.Storage
	tracer   trace.Tracer
	duration metric.Float64Histogram
	errors   metric.Int64Counter
}

// NewInstrumentedStorage creates a journal wrapper that records trace spans,
// operation latency histograms, and error counters for every storage method call.
func NewInstrumentedStorage(inner storage.Storage) (*InstrumentedStorage, error) {
	tracer := otel.Tracer("crptapi/storage")
	meter := otel.Meter("crptapi/storage")

	duration, err := meter.Float64Histogram(
		"storage.operation.duration",
		metric.WithDescription("Duration of storage operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	errCounter, err := meter.Int64Counter(
		"storage.operation.errors",
		metric.WithDescription("Number of storage operation errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	return &InstrumentedStorage{
		inner:    inner,
		tracer:   tracer,
		duration: duration,
		errors:   errCounter,
	}, nil
}

func (s *InstrumentedStorage) startSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "storage."+operation,
		trace.WithAttributes(append([]attribute.KeyValue{
			attribute.String("storage.operation", operation),
		}, attrs...)...),
	)
}

func (s *InstrumentedStorage) record(ctx context.Context, span trace.Span, operation string, start time.Time, err error) {
	attrs := metric.WithAttributes(attribute.String("operation", operation))
	s.duration.Record(ctx, time.Since(start).Seconds(), attrs)

	if err != nil {
		s.errors.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

func (s *InstrumentedStorage) SaveDocument(ctx context.Context, rec *models.DocumentRecord) error {
	var id string
	if rec != nil {
		id = rec.ID
	}
	ctx, span := s.startSpan(ctx, "SaveDocument", attribute.String("document_id", id))
	start := time.Now()
	err := s.inner.SaveDocument(ctx, rec)
	s.record(ctx, span, "SaveDocument", start, err)
	return err
}

func (s *InstrumentedStorage) GetDocument(ctx context.Context, id string) (*models.DocumentRecord, error) {
	ctx, span := s.startSpan(ctx, "GetDocument", attribute.String("document_id", id))
	start := time.Now()
	result, err := s.inner.GetDocument(ctx, id)
	s.record(ctx, span, "GetDocument", start, err)
	return result, err
}

func (s *InstrumentedStorage) Documents(ctx context.Context, filter storage.Filter) ([]*models.DocumentRecord, error) {
	ctx, span := s.startSpan(ctx, "Documents",
		attribute.String("product_group", filter.ProductGroup),
		attribute.Int("limit", filter.Limit),
	)
	start := time.Now()
	result, err := s.inner.Documents(ctx, filter)
	s.record(ctx, span, "Documents", start, err)
	return result, err
}

func (s *InstrumentedStorage) Ping(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, "Ping")
	start := time.Now()
	err := s.inner.Ping(ctx)
	s.record(ctx, span, "Ping", start, err)
	return err
}

func (s *InstrumentedStorage) Close() error {
	return s.inner.Close()
}
