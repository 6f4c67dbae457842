// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements idempotency for unsafe admin operations. A request
// carrying an Idempotency-Key header is scoped by (user, route, key):
//   - the first successful (2xx) response is captured and handed to a store
//     function together with its status code
//   - a later request with the same scope replays the stored status and body
//     without running the handler, and is flagged so the rate limiter skips it
//
// Persistence and TTL live behind the IdempotencyLookup/IdempotencyStore
// function types so the middleware stays independent of the datastore.
package middleware

import (
	"bytes"
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// HeaderIdempotencyKey is the canonical request header that clients use to
// convey an idempotency key for unsafe operations (e.g., POST).
const HeaderIdempotencyKey = "Idempotency-Key"

// HeaderIdempotentReplay is set on responses served from the store.
const HeaderIdempotentReplay = "Idempotent-Replay"

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay" // bool: true when a stored replay was served
	ctxKeyRateBypass = "rate.bypass" // bool: true to skip rate limiting
)

// anonymousUser scopes keys sent without an authenticated principal.
const anonymousUser = "anonymous"

// GetIdempotencyKey returns the validated idempotency key stored in the Gin
// context by IdempotencyValidator. The second return value indicates presence.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyIdemKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// IsReplay reports whether the response for this request was served from
// the idempotency store.
func IsReplay(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyIdemReplay)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// StoredResponse is a previously captured response.
type StoredResponse struct {
	Status int
	Body   []byte
}

// IdempotencyLookup returns the stored response for (userID, scope, key) if
// one is still valid at now, or (nil, nil) when there is none. Errors are
// logged and treated as a miss.
type IdempotencyLookup func(ctx context.Context, userID, scope, key string, now time.Time) (*StoredResponse, error)

// IdempotencyStore persists a successful response.
type IdempotencyStore func(ctx context.Context, userID, scope, key string, status int, body []byte) error

// IdempotencyOptions configures IdempotencyValidator.
type IdempotencyOptions struct {
	// MaxLen caps the accepted key length. Values <= 0 default to 200.
	MaxLen int
	// Pattern restricts allowed characters. If nil, a conservative RFC7230-like
	// token pattern is used: ^[A-Za-z0-9._~\-:]+$
	Pattern *regexp.Regexp
	// Scopes limits handling to these "METHOD /route/pattern" values. Keys on
	// other routes are ignored. Empty means every route.
	Scopes []string
	// Store receives 2xx responses for later replay. Nil disables capture.
	Store IdempotencyStore
}

// IdempotencyValidator validates the Idempotency-Key header, replays a stored
// response when one exists, and otherwise captures the handler's response.
//
// Behavior:
//   - No header, or a route outside Scopes: no-op.
//   - Invalid header: 400 with a compact error body.
//   - Lookup hit: stored status and body are written, the chain is aborted.
//   - Miss: the handler runs; a 2xx result is passed to Store.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		pat = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)
	}
	var scopes map[string]struct{}
	if len(opts.Scopes) > 0 {
		scopes = make(map[string]struct{}, len(opts.Scopes))
		for _, s := range opts.Scopes {
			scopes[s] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		scope := c.Request.Method + " " + c.FullPath()
		if scopes != nil {
			if _, ok := scopes[scope]; !ok {
				c.Next()
				return
			}
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			abortJSON(c, http.StatusBadRequest, "bad_idempotency_key", "invalid Idempotency-Key")
			return
		}

		c.Set(ctxKeyIdemKey, key)
		uid := userIDFromCtx(c)
		ctx := c.Request.Context()

		if lookup != nil {
			prev, err := lookup(ctx, uid, scope, key, time.Now().UTC())
			if err != nil {
				log.Ctx(ctx).Warn().Err(err).Msg("idempotency lookup failed")
			}
			if prev != nil {
				c.Set(ctxKeyIdemReplay, true)
				c.Set(ctxKeyRateBypass, true)
				c.Header(HeaderIdempotentReplay, "true")
				c.Data(prev.Status, "application/json; charset=utf-8", prev.Body)
				c.Abort()
				return
			}
		}

		if opts.Store == nil {
			c.Next()
			return
		}

		cw := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = cw
		c.Next()

		status := cw.Status()
		if status < 200 || status >= 300 {
			return
		}
		if err := opts.Store(ctx, uid, scope, key, status, cw.buf.Bytes()); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("scope", scope).Msg("idempotency store failed")
		}
	}
}

// captureWriter tees the response body so it can be stored.
type captureWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// userIDFromCtx extracts the user identifier set by Authenticate, falling
// back to a shared anonymous scope.
func userIDFromCtx(c *gin.Context) string {
	if v, ok := c.Get(ctxKeyUserID); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return anonymousUser
}
