package crpt

import (
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

// TokenClaims are the registered claims read from a JWT bearer token. The
// signature is not checked; only the API can verify its own tokens.
type TokenClaims struct {
	Subject   string    `json:"subject,omitempty"`
	IssuedAt  time.Time `json:"issued_at,omitzero"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

// ParseTokenClaims reads the claims of token. It reports false for tokens
// that are not JWTs.
func ParseTokenClaims(token string) (TokenClaims, bool) {
	var claims gjwt.RegisteredClaims
	if _, _, err := gjwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return TokenClaims{}, false
	}

	out := TokenClaims{Subject: claims.Subject}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.UTC()
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.UTC()
	}
	return out, true
}
