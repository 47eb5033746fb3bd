package crpt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"crptapi/internal/signer"
	"crptapi/internal/tokencache"
)

// TokenKey is the cache key of the bearer token.
const TokenKey = "token"

// AuthChallenge is the signable challenge returned by the key endpoint. It is
// also the body of the exchange request, with Data replaced by its signature.
type AuthChallenge struct {
	UUID string `json:"uuid"`
	Data string `json:"data"`
}

// AuthToken is the exchange endpoint's response.
type AuthToken struct {
	Token string `json:"token"`
}

// TokenProvider hands out the bearer token, running the challenge, sign and
// exchange handshake at most once per cache miss.
type TokenProvider struct {
	baseURL   string
	client    Doer
	signer    signer.Signer
	cache     tokencache.Cache
	userAgent string
	logger    *slog.Logger
}

// NewTokenProvider creates a provider that authenticates against baseURL.
func NewTokenProvider(baseURL string, client Doer, s signer.Signer, cache tokencache.Cache, logger *slog.Logger) *TokenProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenProvider{
		baseURL: baseURL,
		client:  client,
		signer:  s,
		cache:   cache,
		logger:  logger,
	}
}

// Token returns the cached token or obtains a new one. Signer failures are
// returned unchanged; every other failure is an *APIError.
func (p *TokenProvider) Token(ctx context.Context) (string, error) {
	token, err := p.cache.Get(ctx, TokenKey, p.handshake)
	if err != nil {
		return "", classifyTokenError(ctx, err)
	}
	return token, nil
}

// Invalidate drops the cached token so the next Token call re-authenticates.
func (p *TokenProvider) Invalidate(ctx context.Context) error {
	if err := p.cache.Delete(ctx, TokenKey); err != nil {
		return &APIError{StatusCode: NoStatus, Kind: KindIO, Err: err}
	}
	return nil
}

// Refresh invalidates stale, the token the server just rejected, unless the
// cache already holds a newer one. Concurrent callers rejected with the same
// token therefore share a single handshake.
func (p *TokenProvider) Refresh(ctx context.Context, stale string) error {
	removed, err := p.cache.DeleteIf(ctx, TokenKey, stale)
	if err != nil {
		return &APIError{StatusCode: NoStatus, Kind: KindIO, Err: err}
	}
	if removed {
		p.logger.Debug("Dropped rejected API token")
	}
	return nil
}

func (p *TokenProvider) handshake(ctx context.Context) (string, error) {
	p.logger.Info("Requesting new API token")

	var challenge AuthChallenge
	if err := p.roundTrip(ctx, http.MethodGet, PathAuthKey, nil, &challenge); err != nil {
		return "", err
	}

	signed, err := p.signer.Sign(ctx, challenge.Data)
	if err != nil {
		return "", err
	}

	var token AuthToken
	if err := p.roundTrip(ctx, http.MethodPost, PathAuthToken, AuthChallenge{UUID: challenge.UUID, Data: signed}, &token); err != nil {
		return "", err
	}
	if token.Token == "" {
		return "", NewFormatError(errors.New("token response has no token"))
	}

	attrs := []any{"challenge_uuid", challenge.UUID}
	if claims, ok := ParseTokenClaims(token.Token); ok && !claims.ExpiresAt.IsZero() {
		attrs = append(attrs, "expires_at", claims.ExpiresAt)
	}
	p.logger.Info("Obtained API token", attrs...)
	return token.Token, nil
}

func (p *TokenProvider) roundTrip(ctx context.Context, method, path string, payload, out any) error {
	req, err := newRequest(ctx, method, joinURL(p.baseURL, path), payload)
	if err != nil {
		return err
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := do(p.client, req)
	if err != nil {
		return err
	}
	if resp.failed() {
		return resp.statusError()
	}
	return resp.decode(out)
}

func classifyTokenError(ctx context.Context, err error) error {
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		return err
	case ctx.Err() != nil && isInterruption(err):
		return NewInterruptedError(err)
	case errors.Is(err, tokencache.ErrBackend):
		return &APIError{StatusCode: NoStatus, Kind: KindIO, Err: fmt.Errorf("token cache: %w", err)}
	default:
		return err
	}
}
