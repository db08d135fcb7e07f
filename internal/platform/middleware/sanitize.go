package middleware

import (
	"net/http"
	"regexp"
	"strings"
	"unicode"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// maxHeaderValueSize caps any single header value.
const maxHeaderValueSize = 8192

var (
	// Blocked outright: script injection in query strings.
	scriptPattern = regexp.MustCompile(`(?i)(<script|javascript\s*:|on\w+\s*=)`)

	// Logged only: SQL shapes also show up in legitimate free text, and the
	// repositories are parameterized anyway.
	sqlPattern = regexp.MustCompile(`(?i)('+\s*;\s*DROP\b|UNION\s+SELECT\b|'\s+OR\s+1\s*=\s*1|1\s*=\s*1)`)
)

// Sanitize rejects structurally hostile requests before they reach a handler.
func Sanitize() echo.MiddlewareFunc {
	return SanitizeWithLogger(zerolog.Nop())
}

// SanitizeWithLogger is Sanitize with a logger for the non-blocking SQL
// pattern warnings. Blocked requests get a 400 with the reason.
func SanitizeWithLogger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			if reason := hostilePath(req); reason != "" {
				return reject(c, reason)
			}
			if reason := hostileHeaders(req.Header); reason != "" {
				return reject(c, reason)
			}

			for key, values := range req.URL.Query() {
				if hasNullByte(key) || scriptPattern.MatchString(key) {
					return reject(c, "Hostile query parameter name")
				}
				for _, v := range values {
					if hasNullByte(v) {
						return reject(c, "Null byte injection detected in query parameter")
					}
					if scriptPattern.MatchString(v) {
						return reject(c, "Script injection detected in query parameter")
					}
					if sqlPattern.MatchString(v) {
						logger.Warn().
							Str("param", key).
							Str("path", req.URL.Path).
							Str("remote_ip", c.RealIP()).
							Msg("potential SQL injection pattern detected in query parameter")
					}
				}
			}

			return next(c)
		}
	}
}

// hostilePath checks both decoded and raw path forms, since traversal and
// null bytes hide behind percent encoding.
func hostilePath(req *http.Request) string {
	paths := []string{req.URL.Path}
	if req.URL.RawPath != "" {
		paths = append(paths, req.URL.RawPath)
	}
	for _, p := range paths {
		if hasTraversal(p) {
			return "Path traversal detected"
		}
		if hasNullByte(p) {
			return "Null byte injection detected"
		}
	}
	return ""
}

func hostileHeaders(headers http.Header) string {
	for name, values := range headers {
		for _, v := range values {
			if len(v) > maxHeaderValueSize {
				return "Header value exceeds maximum size: " + name
			}
			if strings.ContainsAny(v, "\r\n") {
				return "Header injection detected: " + name
			}
		}
	}
	return ""
}

func hasTraversal(s string) bool {
	if strings.Contains(s, "..") {
		return true
	}
	lower := strings.ToLower(s)
	return strings.Contains(lower, "%2e%2e") || strings.Contains(lower, "%252e")
}

func hasNullByte(s string) bool {
	return strings.ContainsRune(s, '\x00') || strings.Contains(strings.ToLower(s), "%00")
}

func reject(c echo.Context, reason string) error {
	return c.JSON(http.StatusBadRequest, map[string]interface{}{"error": reason})
}

// SanitizeString strips null bytes and control characters from free text,
// keeping the whitespace a dictated note legitimately contains (newlines,
// carriage returns, tabs), and trims surrounding space.
func SanitizeString(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		switch {
		case r == '\x00':
		case unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t':
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
