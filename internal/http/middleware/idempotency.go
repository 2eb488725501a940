// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements idempotency support for unsafe HTTP methods. A batch
// request can take minutes and spends provider quota, so a client retrying
// with the same Idempotency-Key must get the stored answer instead of a
// second batch. The middleware:
//   - validates the Idempotency-Key header and stashes it (GetIdempotencyKey)
//   - replays a stored 2xx JSON response when one exists (IsReplay)
//   - records the first successful response for later replays
//   - marks replays so the rate limiter lets them through
//
// Persistence is behind the narrow IdempotencyStore interface.
package middleware

import (
	"bytes"
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey is the request header carrying the client's key.
const HeaderIdempotencyKey = "Idempotency-Key"

// HeaderIdempotencyReplayed is set to "true" on replayed responses.
const HeaderIdempotencyReplayed = "Idempotency-Replayed"

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay" // bool: true when a stored response was served
	ctxKeyRateBypass = "rate.bypass" // bool: true to skip rate limiting

	// maxStoredBody caps what is recorded for replay.
	maxStoredBody = 1 << 20
)

// StoredResponse is a previously recorded response.
type StoredResponse struct {
	Status int
	Body   []byte
}

// IdempotencyStore persists responses per (userID, scope, key). Scope is the
// method plus route pattern, e.g. "POST /api/v1/batches".
//
// Lookup returns (nil, nil) when nothing valid is stored. Save may return an
// error for a duplicate; the middleware ignores it.
type IdempotencyStore interface {
	Lookup(ctx context.Context, userID, scope, key string, now time.Time) (*StoredResponse, error)
	Save(ctx context.Context, userID, scope, key string, status int, body []byte) error
}

// IdempotencyOptions configures header validation and which methods are
// covered. TTL is the store's concern.
type IdempotencyOptions struct {
	// MaxLen caps the accepted key length. Values <= 0 default to 200.
	MaxLen int
	// Pattern restricts allowed characters. Defaults to ^[A-Za-z0-9._~\-:]+$
	Pattern *regexp.Regexp
	// Methods lists the covered methods. Defaults to POST only.
	Methods []string
}

// GetIdempotencyKey returns the validated key stored by Idempotency.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyIdemKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// IsReplay reports whether the response was served from the store.
func IsReplay(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyIdemReplay)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Idempotency validates the Idempotency-Key header on covered methods and,
// with a non-nil store, replays or records responses.
//
// Behavior:
//   - No header or uncovered method: no-op.
//   - Invalid header: 400 bad_idempotency_key.
//   - Stored response found: it is written back verbatim with
//     Idempotency-Replayed: true and the chain is aborted.
//   - Otherwise the handler runs; a 2xx JSON response is saved.
//
// Lookup and save failures are logged and never fail the request.
func Idempotency(opts IdempotencyOptions, store IdempotencyStore) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		pat = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)
	}
	methods := map[string]struct{}{}
	for _, m := range opts.Methods {
		if m = strings.ToUpper(strings.TrimSpace(m)); m != "" {
			methods[m] = struct{}{}
		}
	}
	if len(methods) == 0 {
		methods[http.MethodPost] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := methods[c.Request.Method]; !ok {
			c.Next()
			return
		}
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"code":    "bad_idempotency_key",
				"message": "invalid Idempotency-Key",
			})
			return
		}
		c.Set(ctxKeyIdemKey, key)
		if store == nil {
			c.Next()
			return
		}

		uid := UserID(c)
		scope := idempotencyScope(c)
		ctx := c.Request.Context()

		prev, err := store.Lookup(ctx, uid, scope, key, time.Now().UTC())
		if err != nil {
			LoggerFrom(c).Warn().Err(err).Str("scope", scope).Msg("idempotency lookup failed")
		}
		if prev != nil {
			c.Set(ctxKeyIdemReplay, true)
			c.Set(ctxKeyRateBypass, true)
			c.Header(HeaderIdempotencyReplayed, "true")
			c.Data(prev.Status, "application/json; charset=utf-8", prev.Body)
			c.Abort()
			return
		}

		cw := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = cw
		c.Next()
		c.Writer = cw.ResponseWriter

		status := cw.Status()
		if status < 200 || status >= 300 || cw.overflow || cw.buf.Len() == 0 {
			return
		}
		if !strings.Contains(strings.ToLower(cw.Header().Get("Content-Type")), "json") {
			return
		}
		if err := store.Save(context.WithoutCancel(ctx), uid, scope, key, status, cw.buf.Bytes()); err != nil {
			LoggerFrom(c).Debug().Err(err).Str("scope", scope).Msg("idempotency save skipped")
		}
	}
}

func idempotencyScope(c *gin.Context) string {
	p := c.FullPath()
	if p == "" {
		p = c.Request.URL.Path
	}
	return c.Request.Method + " " + p
}

// captureWriter tees the response body into buf up to maxStoredBody.
type captureWriter struct {
	gin.ResponseWriter
	buf      bytes.Buffer
	overflow bool
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.capture(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.capture([]byte(s))
	return w.ResponseWriter.WriteString(s)
}

func (w *captureWriter) capture(b []byte) {
	if w.overflow {
		return
	}
	if w.buf.Len()+len(b) > maxStoredBody {
		w.overflow = true
		w.buf.Reset()
		return
	}
	w.buf.Write(b)
}
