package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
)

// WebhookAuth checks the shared static key the gateway sends as
// "Authorization: Apikey <key>". Exact match only.
func WebhookAuth(apiKey string) echo.MiddlewareFunc {
	expected := "Apikey " + apiKey
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			got := c.Request().Header.Get("Authorization")
			if subtle.ConstantTimeCompare([]byte(got), []byte(expected)) != 1 {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid webhook key")
			}
			return next(c)
		}
	}
}
