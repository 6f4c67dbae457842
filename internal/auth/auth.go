// Package auth verifies identity-provider session tokens and carries the
// resulting Principal through request handling.
//
// Tokens are JWTs signed either with a shared HS256 secret or with an RS256
// key whose public half is configured as PEM. The subject claim becomes the
// user id. The role is read from a top-level "role" claim, falling back to
// "public_metadata.role" and "metadata.role" which is where hosted identity
// providers commonly place custom roles.
package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tbourn/go-shipment-tracker/internal/config"
)

// RoleAdmin is the canonical role that may mutate shipments.
const RoleAdmin = "admin"

var (
	// ErrNoToken is returned when a request carries no bearer token.
	ErrNoToken = errors.New("auth: missing token")
	// ErrInvalidToken covers bad signatures, expired tokens and malformed claims.
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrNotConfigured is returned when no verification key is set.
	ErrNotConfigured = errors.New("auth: verifier not configured")
)

// Principal is the authenticated caller.
type Principal struct {
	UserID string
	Role   string
}

// IsAdmin reports whether p may perform admin operations.
func (p Principal) IsAdmin() bool { return p.UserID != "" && p.Role == RoleAdmin }

type ctxKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext returns the principal stored by WithPrincipal.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}

// Verifier turns a raw token into a Principal.
type Verifier struct {
	keyFunc   jwt.Keyfunc
	opts      []jwt.ParserOption
	adminRole string
}

// NewVerifier builds a Verifier from cfg. A PEM public key takes precedence
// over the shared secret. With neither set every call to Verify fails with
// ErrNotConfigured.
func NewVerifier(cfg config.AuthConfig) (*Verifier, error) {
	v := &Verifier{adminRole: cfg.AdminRole}
	if v.adminRole == "" {
		v.adminRole = RoleAdmin
	}

	switch {
	case strings.TrimSpace(cfg.JWTPublicKey) != "":
		pub, err := jwt.ParseRSAPublicKeyFromPEM([]byte(cfg.JWTPublicKey))
		if err != nil {
			return nil, err
		}
		v.keyFunc = func(*jwt.Token) (any, error) { return pub, nil }
		v.opts = append(v.opts, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))
	case cfg.JWTSecret != "":
		secret := []byte(cfg.JWTSecret)
		v.keyFunc = func(*jwt.Token) (any, error) { return secret, nil }
		v.opts = append(v.opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	}

	if cfg.Issuer != "" {
		v.opts = append(v.opts, jwt.WithIssuer(cfg.Issuer))
	}
	v.opts = append(v.opts, jwt.WithExpirationRequired())
	return v, nil
}

// Verify validates raw and extracts the principal.
func (v *Verifier) Verify(raw string) (Principal, error) {
	if v == nil || v.keyFunc == nil {
		return Principal{}, ErrNotConfigured
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Principal{}, ErrNoToken
	}

	claims := jwt.MapClaims{}
	if _, err := jwt.ParseWithClaims(raw, claims, v.keyFunc, v.opts...); err != nil {
		return Principal{}, errors.Join(ErrInvalidToken, err)
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return Principal{}, ErrInvalidToken
	}

	p := Principal{UserID: sub}
	if role := roleFromClaims(claims); role != "" {
		p.Role = role
		if role == v.adminRole {
			p.Role = RoleAdmin
		}
	}
	return p, nil
}

func roleFromClaims(c jwt.MapClaims) string {
	if s, ok := c["role"].(string); ok && s != "" {
		return s
	}
	for _, k := range []string{"public_metadata", "metadata"} {
		if m, ok := c[k].(map[string]any); ok {
			if s, ok := m["role"].(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	const prefix = "bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
