// Package crpt is a client for the national goods labelling API.
//
// A Client shares one rate limiter and one cached bearer token between all
// goroutines that use it. Tokens are obtained through a challenge, sign and
// exchange handshake and are refreshed transparently when the server rejects
// them.
package crpt

import (
	"context"
	"log/slog"
	"net/http"

	"crptapi/internal/models"
	"crptapi/internal/ratelimit"
	"crptapi/internal/signer"
	"crptapi/internal/tokencache"
)

// MethodCreateDocument names the document creation call in logs and metrics.
const MethodCreateDocument = "createDocument"

// Client creates documents.
type Client struct {
	tokens *TokenProvider
	exec   *Executor
}

type options struct {
	client    Doer
	metrics   MetricsSink
	logger    *slog.Logger
	userAgent string
}

// Option customizes a Client.
type Option func(*options)

// WithHTTPClient replaces the transport built from the API config.
func WithHTTPClient(client Doer) Option {
	return func(o *options) { o.client = client }
}

// WithMetrics reports call outcomes to sink.
func WithMetrics(sink MetricsSink) Option {
	return func(o *options) { o.metrics = sink }
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithUserAgent sets the User-Agent header of every request.
func WithUserAgent(ua string) Option {
	return func(o *options) { o.userAgent = ua }
}

// NewClient wires a client. The limiter and cache are used as given and may
// be shared with other clients.
func NewClient(cfg models.APIConfig, limiter ratelimit.Limiter, cache tokencache.Cache, s signer.Signer, opts ...Option) *Client {
	o := options{
		metrics: NopMetrics{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.client == nil {
		o.client = &http.Client{Timeout: cfg.Timeout}
	}

	tokens := NewTokenProvider(cfg.BaseURL, o.client, s, cache, o.logger)
	tokens.userAgent = o.userAgent

	exec := NewExecutor(cfg.BaseURL, o.client, limiter, tokens, o.metrics, o.logger)
	exec.userAgent = o.userAgent

	return &Client{tokens: tokens, exec: exec}
}

// CreateDocument submits doc with its detached signature and returns the id
// assigned by the API. Invalid documents are rejected before any request is
// made.
func (c *Client) CreateDocument(ctx context.Context, doc models.Document, signature string) (*models.DocumentID, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	var id models.DocumentID
	if err := c.exec.Call(ctx, MethodCreateDocument, PathCreateDocument, models.NewCreateDocumentRequest(doc, signature), &id); err != nil {
		return nil, err
	}
	return &id, nil
}

// Token returns the current bearer token, authenticating if needed.
func (c *Client) Token(ctx context.Context) (string, error) {
	return c.tokens.Token(ctx)
}

// InvalidateToken forces the next call to authenticate again.
func (c *Client) InvalidateToken(ctx context.Context) error {
	return c.tokens.Invalidate(ctx)
}
