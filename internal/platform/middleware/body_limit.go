package middleware

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// BodyLimit caps request body sizes. Most endpoints get defaultLimit, while
// note creates and updates get noteLimit, since a dictation transcript can run
// far past a typical JSON payload.
//
// Limits use human-readable sizes ("512K", "1M", "10G"); a bare number is
// bytes. Oversized requests are rejected with 413, both up front via
// Content-Length and mid-read when the length is absent or lying.
func BodyLimit(defaultLimit, noteLimit string) echo.MiddlewareFunc {
	defaultBytes := parseSize(defaultLimit)
	noteBytes := parseSize(noteLimit)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Body == nil || req.Body == http.NoBody {
				return next(c)
			}

			limit := defaultBytes
			if isNoteWrite(req.Method, req.URL.Path) {
				limit = noteBytes
			}

			if req.ContentLength > limit {
				return errBodyTooLarge
			}
			req.Body = &cappedBody{rc: req.Body, remaining: limit}
			return next(c)
		}
	}
}

var errBodyTooLarge = echo.NewHTTPError(
	http.StatusRequestEntityTooLarge, "request body too large")

// cappedBody fails the read as soon as more than the allowed bytes come off
// the wire, so handlers streaming an unbounded body still stop at the limit.
type cappedBody struct {
	rc        io.ReadCloser
	remaining int64
	tripped   bool
}

func (b *cappedBody) Read(p []byte) (int, error) {
	if b.tripped {
		return 0, errBodyTooLarge
	}
	// Allow one byte past the limit so overflow is observable.
	if max := b.remaining + 1; int64(len(p)) > max {
		p = p[:max]
	}
	n, err := b.rc.Read(p)
	b.remaining -= int64(n)
	if b.remaining < 0 {
		b.tripped = true
		return 0, errBodyTooLarge
	}
	return n, err
}

func (b *cappedBody) Close() error { return b.rc.Close() }

// isNoteWrite reports whether the request writes note content. Re-extraction
// posts no body of consequence and keeps the default limit.
func isNoteWrite(method, path string) bool {
	if method != http.MethodPost && method != http.MethodPut {
		return false
	}
	path = strings.TrimSuffix(path, "/")
	if path == "/api/v1/notes" {
		return true
	}
	return strings.HasPrefix(path, "/api/v1/notes/") && !strings.HasSuffix(path, "/re-extract")
}

var sizeUnits = []struct {
	suffix string
	factor int64
}{
	{"GB", 1 << 30}, {"G", 1 << 30},
	{"MB", 1 << 20}, {"M", 1 << 20},
	{"KB", 1 << 10}, {"K", 1 << 10},
}

// parseSize converts "512K"-style strings to bytes, falling back to 1 MB when
// the input is empty or malformed.
func parseSize(s string) int64 {
	const fallback = 1 << 20

	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return fallback
	}

	var factor int64 = 1
	for _, u := range sizeUnits {
		if strings.HasSuffix(s, u.suffix) {
			factor = u.factor
			s = strings.TrimSuffix(s, u.suffix)
			break
		}
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return fallback
	}
	return n * factor
}
