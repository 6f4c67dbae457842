// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file resolves the caller's identity from a bearer token issued by the
// identity provider. Authenticate never rejects a request on its own; it
// records the principal (or the verification failure) so that RequireAdmin
// can decide per route group. Public routes stay reachable with a stale or
// malformed token.
package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-shipment-tracker/internal/auth"
)

const (
	ctxKeyPrincipal = "auth.principal"
	ctxKeyAuthErr   = "auth.err"
	// ctxKeyUserID is read by the rate limiter, idempotency and logging.
	ctxKeyUserID = "userID"
)

// TokenVerifier turns a raw bearer token into a principal.
type TokenVerifier interface {
	Verify(raw string) (auth.Principal, error)
}

// Authenticate verifies the Authorization bearer token when present and
// stores the principal in both the Gin context and the request context.
// A nil verifier leaves every request anonymous.
func Authenticate(v TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := auth.BearerToken(c.GetHeader("Authorization"))
		if raw == "" || v == nil {
			c.Next()
			return
		}
		p, err := v.Verify(raw)
		if err != nil {
			log.Debug().Err(err).Msg("bearer token rejected")
			c.Set(ctxKeyAuthErr, err)
			c.Next()
			return
		}
		c.Set(ctxKeyPrincipal, p)
		c.Set(ctxKeyUserID, p.UserID)
		c.Request = c.Request.WithContext(auth.WithPrincipal(c.Request.Context(), p))
		c.Next()
	}
}

// PrincipalFrom returns the principal stored by Authenticate, or the zero
// (anonymous) principal.
func PrincipalFrom(c *gin.Context) auth.Principal {
	if v, ok := c.Get(ctxKeyPrincipal); ok {
		if p, ok := v.(auth.Principal); ok {
			return p
		}
	}
	return auth.Principal{}
}

// RequireAdmin rejects anonymous callers with 401 and authenticated
// non-admins with 403.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		p := PrincipalFrom(c)
		if p.UserID == "" {
			msg := "authentication required"
			if v, ok := c.Get(ctxKeyAuthErr); ok {
				if err, _ := v.(error); errors.Is(err, auth.ErrInvalidToken) {
					msg = "invalid or expired token"
				}
			}
			abortJSON(c, http.StatusUnauthorized, "unauthorized", msg)
			return
		}
		if !p.IsAdmin() {
			abortJSON(c, http.StatusForbidden, "forbidden", "admin role required")
			return
		}
		c.Next()
	}
}

// abortJSON writes the standard error envelope. Middleware cannot import
// the handlers package, so the shape is repeated here.
func abortJSON(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       code,
		"message":    msg,
	})
}
