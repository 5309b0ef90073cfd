package http

import (
	"errors"
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/vynaa/vbase/internal/logger"
	"github.com/vynaa/vbase/internal/model"
	"github.com/vynaa/vbase/internal/rowstore"
	"github.com/vynaa/vbase/internal/session"
	"github.com/vynaa/vbase/internal/store"
)

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func loginHandler(st *store.Store, sessions session.Manager, cookie cookieWriter) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req loginReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}
		req.Email = strings.TrimSpace(req.Email)

		u, err := st.Authenticate(req.Email, req.Password)
		switch {
		case errors.Is(err, store.ErrUserNotFound):
			logger.Log.Warn("login failed: user not found", zap.String("email", req.Email))
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "User not found"})
		case errors.Is(err, store.ErrInvalidPassword):
			logger.Log.Warn("login failed: invalid password", zap.String("email", req.Email))
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid password"})
		case err != nil:
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "auth error"})
		}

		token, err := sessions.Create(c.Request().Context(), session.Session{
			UserID:  u.ID,
			Email:   u.Email,
			IsAdmin: u.Role == model.RoleAdmin,
		})
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "session error"})
		}
		cookie.set(c, token)

		redirect := "/dashboard"
		if u.Role == model.RoleAdmin {
			redirect = "/admin"
		}
		logger.Log.Info("user logged in", zap.String("email", u.Email), zap.String("role", u.Role.String()))
		return c.JSON(http.StatusOK, map[string]any{"success": true, "redirect": redirect})
	}
}

type registerReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func registerHandler(st *store.Store, rows rowstore.Store, sessions session.Manager, cookie cookieWriter) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req registerReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}
		req.Email = strings.TrimSpace(req.Email)
		req.Name = strings.TrimSpace(req.Name)
		if req.Email == "" || req.Password == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "email and password required"})
		}

		u, err := st.Register(req.Email, req.Password, req.Name)
		if errors.Is(err, store.ErrUserExists) {
			logger.Log.Warn("registration failed: user exists", zap.String("email", req.Email))
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "User already exists"})
		}
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "register error"})
		}

		// fail closed: the account only exists once its row does
		if err := rows.SaveUser(c.Request().Context(), u); err != nil {
			st.Unregister(req.Email)
			logger.Log.Error("registration persist failed", zap.String("email", req.Email), zap.Error(err))
			return c.JSON(http.StatusBadGateway, map[string]string{"error": "storage unavailable"})
		}

		token, err := sessions.Create(c.Request().Context(), session.Session{UserID: u.ID, Email: u.Email})
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "session error"})
		}
		cookie.set(c, token)

		logger.Log.Info("new user registered", zap.String("email", u.Email), zap.String("name", u.Name))
		return c.JSON(http.StatusOK, map[string]any{"success": true, "redirect": "/dashboard"})
	}
}

func logoutHandler(sessions session.Manager, cookie cookieWriter) echo.HandlerFunc {
	return func(c echo.Context) error {
		if ck, err := c.Cookie(cookie.name); err == nil && ck.Value != "" {
			_ = sessions.Destroy(c.Request().Context(), ck.Value)
		}
		cookie.clear(c)
		return c.JSON(http.StatusOK, map[string]any{"success": true})
	}
}

func meHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		u, ok := sessionUser(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}
		return c.JSON(http.StatusOK, map[string]any{"user": u})
	}
}
