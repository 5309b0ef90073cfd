package middleware

import (
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/vynaa/vbase/internal/logger"
	"github.com/vynaa/vbase/internal/model"
	svcsync "github.com/vynaa/vbase/internal/service/sync"
	"github.com/vynaa/vbase/internal/session"
	"github.com/vynaa/vbase/internal/store"
)

// SessionUserFromCtx extracts the user resolved by SessionMiddleware.
func SessionUserFromCtx(c echo.Context) (*model.User, bool) {
	u, ok := c.Get("session_user").(*model.User)
	return u, ok && u != nil
}

// SessionMiddleware validates the login cookie against the user
// directory. A directory miss triggers the read-through resync before
// the recheck; if the user is still unknown the session is destroyed.
// Failures redirect browser requests to /login and return 401 JSON to
// everything else.
func SessionMiddleware(mgr session.Manager, st *store.Store, syncSvc *svcsync.Service, cookieName string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(cookieName)
			if err != nil || cookie.Value == "" {
				return sessionFail(c, mgr, cookieName, "")
			}
			sess, err := mgr.Get(c.Request().Context(), cookie.Value)
			if err != nil {
				logger.Log.Error("session lookup failed", zap.Error(err))
				return sessionFail(c, mgr, cookieName, "")
			}
			if sess == nil {
				return sessionFail(c, mgr, cookieName, "")
			}

			// cold start: memory wiped but the session survived in redis
			if err := syncSvc.Ensure(c.Request().Context(), sess.Email); err != nil {
				logger.Log.Error("session resync failed", zap.String("email", sess.Email), zap.Error(err))
			}

			u, err := st.GetByEmail(sess.Email)
			if err != nil {
				return sessionFail(c, mgr, cookieName, cookie.Value)
			}
			c.Set("session_user", u)
			return next(c)
		}
	}
}

// RequireAdmin rejects non-admin sessions. Must run after SessionMiddleware.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u, ok := SessionUserFromCtx(c)
			if !ok || u.Role != model.RoleAdmin {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "Forbidden"})
			}
			return next(c)
		}
	}
}

func sessionFail(c echo.Context, mgr session.Manager, cookieName, token string) error {
	if token != "" {
		_ = mgr.Destroy(c.Request().Context(), token)
	}
	c.SetCookie(&http.Cookie{Name: cookieName, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	if strings.Contains(c.Request().Header.Get("Accept"), "text/html") {
		return c.Redirect(http.StatusFound, "/login")
	}
	return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
}
