package crpt

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"crptapi/internal/ratelimit"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "crptapi/internal/crpt"

// Executor runs authenticated calls under the shared rate budget. A 401
// answer invalidates the token and the call is resent once with a fresh one.
type Executor struct {
	baseURL   string
	client    Doer
	limiter   ratelimit.Limiter
	tokens    *TokenProvider
	metrics   MetricsSink
	tracer    trace.Tracer
	userAgent string
	logger    *slog.Logger
}

// NewExecutor wires an executor. A nil metrics sink disables metrics.
func NewExecutor(baseURL string, client Doer, limiter ratelimit.Limiter, tokens *TokenProvider, metrics MetricsSink, logger *slog.Logger) *Executor {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		baseURL: baseURL,
		client:  client,
		limiter: limiter,
		tokens:  tokens,
		metrics: metrics,
		tracer:  otel.Tracer(tracerName),
		logger:  logger,
	}
}

// Call POSTs payload to path and decodes the response into out, which may be
// nil. method names the call in logs, spans and metrics. Exactly one of the
// success and failure counters is incremented per call.
func (e *Executor) Call(ctx context.Context, method, path string, payload, out any) (err error) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "crpt."+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("crpt.method", method),
			attribute.String("http.route", path),
		),
	)

	defer func() {
		e.metrics.ObserveDuration(ctx, method, time.Since(start))
		if err != nil {
			e.metrics.IncFailure(ctx, method)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			e.logger.Warn("API call failed", "method", method, "error", err, "duration", time.Since(start))
		} else {
			e.metrics.IncSuccess(ctx, method)
		}
		span.End()
	}()

	return e.call(ctx, span, method, path, payload, out)
}

func (e *Executor) call(ctx context.Context, span trace.Span, method, path string, payload, out any) error {
	if err := e.limiter.Acquire(ctx, 1); err != nil {
		if isInterruption(err) {
			return NewInterruptedError(err)
		}
		return &APIError{StatusCode: NoStatus, Kind: KindIO, Err: err}
	}

	e.logger.Info("Calling API", "method", method)

	resp, token, err := e.send(ctx, path, payload)
	if err != nil {
		return err
	}

	if resp.status == http.StatusUnauthorized {
		e.logger.Info("Token rejected, retrying with a new token", "method", method)
		span.AddEvent("token.refresh")

		if err := e.tokens.Refresh(ctx, token); err != nil {
			return err
		}
		if resp, _, err = e.send(ctx, path, payload); err != nil {
			return err
		}
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.status))
	if resp.failed() {
		return resp.statusError()
	}
	if err := resp.decode(out); err != nil {
		return err
	}

	e.logger.Info("API call succeeded", "method", method)
	return nil
}

// send fetches the current token and performs one attempt. The token used is
// returned so a rejection can be matched against the cache.
func (e *Executor) send(ctx context.Context, path string, payload any) (*response, string, error) {
	token, err := e.tokens.Token(ctx)
	if err != nil {
		return nil, "", err
	}

	req, err := newRequest(ctx, http.MethodPost, joinURL(e.baseURL, path), payload)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Request-Id", uuid.NewString())
	if e.userAgent != "" {
		req.Header.Set("User-Agent", e.userAgent)
	}

	resp, err := do(e.client, req)
	return resp, token, err
}
