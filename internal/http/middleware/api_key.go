package middleware

import (
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v4"

	"github.com/vynaa/vbase/internal/store"
)

// UserIDFromCtx extracts the authenticated user id set by APIKeyMiddleware.
func UserIDFromCtx(c echo.Context) (string, bool) {
	v := c.Get("user_id")
	id, ok := v.(string)
	return id, ok && id != ""
}

// APIKeyMiddleware authenticates requests using the X-API-Key header.
// On success it stores only the resolved user id in context; handlers
// re-resolve the full user when they need it.
func APIKeyMiddleware(st *store.Store) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := strings.TrimSpace(c.Request().Header.Get("X-API-Key"))
			if key == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing api key"})
			}
			userID, ok := st.ResolveAPIKey(key)
			if !ok {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid api key"})
			}
			c.Set("user_id", userID)
			return next(c)
		}
	}
}
