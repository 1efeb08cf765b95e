package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"
)

// ownerHeader carries the caller identity the surrounding system is
// expected to set once it has authenticated the request. Authentication
// itself is out of scope for this core; this is a minimal pass-through so
// task ownership can still be enforced.
const ownerHeader = "X-User-Id"

// extractOwner returns the caller identity from ownerHeader, or ("", false)
// if the surrounding system did not set one.
func extractOwner(c *echo.Context) (string, bool) {
	owner := c.Request().Header.Get(ownerHeader)
	if owner == "" {
		return "", false
	}
	return owner, true
}

// requireOwner extracts the caller identity or fails the request with 401.
func requireOwner(c *echo.Context) (string, error) {
	owner, ok := extractOwner(c)
	if !ok {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing "+ownerHeader+" header")
	}
	return owner, nil
}
