package http

import (
	"errors"
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/vynaa/vbase/internal/logger"
	"github.com/vynaa/vbase/internal/rowstore"
	"github.com/vynaa/vbase/internal/store"
)

func listDatabasesHandler(st *store.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		u, ok := sessionUser(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}
		return c.JSON(http.StatusOK, map[string]any{"databases": st.DatabasesOf(u.Email)})
	}
}

type createDatabaseReq struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

func createDatabaseHandler(st *store.Store, rows rowstore.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		u, ok := sessionUser(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		var req createDatabaseReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "name required"})
		}

		db, err := st.CreateDatabase(u.Email, req.Name, req.Type, req.Description)
		if errors.Is(err, store.ErrDatabaseLimit) {
			return c.JSON(http.StatusForbidden, map[string]string{"error": "Database limit reached for Free plan (max 5)"})
		}
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "create failed"})
		}

		// fail closed: the database only exists once its row does
		if err := rows.SaveDatabase(c.Request().Context(), db); err != nil {
			st.RemoveDatabase(db.ID)
			logger.Log.Error("database persist failed", zap.String("db_id", db.ID), zap.Error(err))
			return c.JSON(http.StatusBadGateway, map[string]string{"error": "storage unavailable"})
		}

		logger.Log.Info("database created",
			zap.String("db_id", db.ID), zap.String("owner", u.Email), zap.String("name", db.Name))
		return c.JSON(http.StatusOK, map[string]any{"success": true, "database": db})
	}
}
