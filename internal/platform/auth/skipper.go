package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths are the unauthenticated infrastructure endpoints. Load
// balancers and scrapers hit these without credentials.
var publicPaths = map[string]bool{
	"/health":    true,
	"/health/db": true,
	"/metrics":   true,
}

// AuthSkipper tells the auth middlewares to let probe traffic through.
func AuthSkipper(c echo.Context) bool {
	return publicPaths[c.Path()]
}

// IsPublicPath reports whether path bypasses authentication.
func IsPublicPath(path string) bool {
	return publicPaths[path]
}
