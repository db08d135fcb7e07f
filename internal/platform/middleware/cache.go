package middleware

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// HTTPCache adds Cache-Control, Vary and strong ETags to GET responses and
// answers If-None-Match with 304 Not Modified. Everything this service
// serves is patient data, so responses are always private: a shared cache
// must never hold them. Work-queue listings change as staff claim items,
// which keeps the default max-age short.

type CacheConfig struct {
	// MaxAge in seconds for Cache-Control. Zero or negative means no-store.
	MaxAge int

	// ExcludePaths are skipped entirely (no ETag, no cache headers).
	// Matching is by prefix.
	ExcludePaths []string
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		MaxAge: 30,
		ExcludePaths: []string{
			"/api/v1/extract",  // stateless POST endpoint, nothing to cache
			"/api/v1/auth",     // revocation endpoints
			"/api/v1/api-keys", // secrets appear in mint responses
		},
	}
}

func HTTPCache(cfg CacheConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Method != http.MethodGet && req.Method != http.MethodHead {
				return next(c)
			}
			for _, p := range cfg.ExcludePaths {
				if strings.HasPrefix(req.URL.Path, p) {
					return next(c)
				}
			}

			rec := newEtagRecorder(c.Response().Writer)
			c.Response().Writer = rec

			if err := next(c); err != nil {
				// Hand the raw writer back so the error handler can
				// respond; anything the handler buffered before failing
				// is flushed only if it already committed a status.
				if c.Response().Committed {
					rec.discard()
				} else {
					c.Response().Writer = rec.ResponseWriter
				}
				return err
			}
			return rec.finish(c, cfg)
		}
	}
}

// etagRecorder buffers a response so its ETag can be computed before
// anything reaches the wire.
type etagRecorder struct {
	http.ResponseWriter
	status    int
	body      bytes.Buffer
	discarded bool
}

func newEtagRecorder(w http.ResponseWriter) *etagRecorder {
	return &etagRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (r *etagRecorder) WriteHeader(status int) {
	r.status = status
}

func (r *etagRecorder) Write(b []byte) (int, error) {
	if r.discarded {
		return r.ResponseWriter.Write(b)
	}
	return r.body.Write(b)
}

// Flush and Hijack fall through to the underlying writer so streaming
// handlers keep working; streamed responses simply get no ETag.
func (r *etagRecorder) Flush() {
	r.discard()
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *etagRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := r.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, fmt.Errorf("response writer does not support hijacking")
}

// discard flushes whatever is buffered and stops recording.
func (r *etagRecorder) discard() {
	if r.discarded {
		return
	}
	r.discarded = true
	r.ResponseWriter.WriteHeader(r.status)
	if r.body.Len() > 0 {
		_, _ = r.ResponseWriter.Write(r.body.Bytes())
	}
	r.body.Reset()
}

// finish decides between 304 and a full response.
func (r *etagRecorder) finish(c echo.Context, cfg CacheConfig) error {
	if r.discarded {
		return nil
	}
	r.discarded = true
	h := r.ResponseWriter.Header()

	if r.status != http.StatusOK || r.body.Len() == 0 {
		r.ResponseWriter.WriteHeader(r.status)
		_, err := r.ResponseWriter.Write(r.body.Bytes())
		return err
	}

	tag := strongETag(r.body.Bytes())
	h.Set("ETag", tag)
	h.Set("Cache-Control", cacheControl(cfg))
	h.Add("Vary", "Authorization")

	if noneMatch(c.Request().Header.Get("If-None-Match"), tag) {
		h.Del(echo.HeaderContentLength)
		r.ResponseWriter.WriteHeader(http.StatusNotModified)
		return nil
	}

	r.ResponseWriter.WriteHeader(http.StatusOK)
	_, err := r.ResponseWriter.Write(r.body.Bytes())
	return err
}

func strongETag(body []byte) string {
	sum := sha256.Sum256(body)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}

func cacheControl(cfg CacheConfig) string {
	if cfg.MaxAge <= 0 {
		return "private, no-store"
	}
	return fmt.Sprintf("private, max-age=%d", cfg.MaxAge)
}

// noneMatch implements the If-None-Match comparison. Weak tags compare
// equal to their strong form for GET revalidation.
func noneMatch(header, tag string) bool {
	if header == "" {
		return false
	}
	if header == "*" {
		return true
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		candidate = strings.TrimPrefix(candidate, "W/")
		if candidate == tag {
			return true
		}
	}
	return false
}
