package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	UserRolesKey contextKey = "user_roles"
)

// Claims carries the staff identity and role grants this service cares
// about on top of the registered JWT claims.
type Claims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles"`
}

type JWTConfig struct {
	Issuer   string
	Audience string
	JWKSURL  string

	// SigningKey switches validation to HMAC. Development and tests only.
	SigningKey []byte

	// Skipper returns true for requests that bypass authentication
	// (health checks, metrics). Nil means nothing is skipped.
	Skipper func(echo.Context) bool

	// Revocations, when set, rejects otherwise-valid tokens whose JTI
	// has been revoked (staff lockout).
	Revocations *TokenRevocationStore
}

// keyfunc picks the validation strategy: a static HMAC secret when one is
// configured, otherwise the JWKS endpoint (discovered from the issuer if
// no explicit URL was given).
func (cfg JWTConfig) keyfunc() jwt.Keyfunc {
	if len(cfg.SigningKey) > 0 {
		return func(*jwt.Token) (interface{}, error) { return cfg.SigningKey, nil }
	}
	jwksURL := cfg.JWKSURL
	if jwksURL == "" && cfg.Issuer != "" {
		if provider, err := NewOIDCProvider(cfg.Issuer); err == nil {
			jwksURL = provider.JWKSURI
		}
	}
	return jwksKeyFunc(jwksURL)
}

func (cfg JWTConfig) parserOptions() []jwt.ParserOption {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"RS256", "HS256"})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	return opts
}

func bearerToken(c echo.Context) (string, *echo.HTTPError) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
	}
	return token, nil
}

func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	keyfunc := cfg.keyfunc()
	opts := cfg.parserOptions()

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}
			// Requests already authenticated by an API key carry their
			// identity in the request context.
			if c.Get("api_key_id") != nil {
				return next(c)
			}

			tokenStr, httpErr := bearerToken(c)
			if httpErr != nil {
				return httpErr
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(tokenStr, claims, keyfunc, opts...)
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			if cfg.Revocations != nil && claims.ID != "" {
				if cfg.Revocations.IsRevoked(claims.ID) {
					return echo.NewHTTPError(http.StatusUnauthorized, "token revoked")
				}
				// Remember live sessions so a later staff lockout can
				// revoke them all at once.
				if claims.ExpiresAt != nil {
					cfg.Revocations.Observe(claims.ID, claims.Subject, claims.ExpiresAt.Time)
				}
			}

			c.SetRequest(c.Request().WithContext(
				withIdentity(c.Request().Context(), claims.Subject, claims.Roles)))
			return next(c)
		}
	}
}

// DevAuthMiddleware stands in for JWT auth locally: requests without
// credentials get an admin dev identity. An optional skipper keeps public
// paths anonymous.
func DevAuthMiddleware(skippers ...func(echo.Context) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if len(skippers) > 0 && skippers[0] != nil && skippers[0](c) {
				return next(c)
			}
			if c.Get("api_key_id") != nil {
				return next(c)
			}
			if c.Request().Header.Get(echo.HeaderAuthorization) == "" {
				c.SetRequest(c.Request().WithContext(
					withIdentity(c.Request().Context(), "dev-user", []string{"admin"})))
			}
			return next(c)
		}
	}
}

func withIdentity(ctx context.Context, subject string, roles []string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, subject)
	return context.WithValue(ctx, UserRolesKey, roles)
}

func UserIDFromContext(ctx context.Context) string {
	uid, _ := ctx.Value(UserIDKey).(string)
	return uid
}

func RolesFromContext(ctx context.Context) []string {
	roles, _ := ctx.Value(UserRolesKey).([]string)
	return roles
}
