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
	svcsync "github.com/vynaa/vbase/internal/service/sync"
	"github.com/vynaa/vbase/internal/store"
)

func listUsersHandler(st *store.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{"users": st.Users()})
	}
}

type updatePlanReq struct {
	Email string `json:"email"`
	Plan  string `json:"plan"`
}

func updatePlanHandler(st *store.Store, rows rowstore.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req updatePlanReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}
		req.Email = strings.TrimSpace(req.Email)

		plan, ok := model.ParsePlan(req.Plan)
		if !ok {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid plan"})
		}

		prev, err := st.GetByEmail(req.Email)
		if errors.Is(err, store.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "User not found"})
		}
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "lookup error"})
		}

		u, err := st.UpdatePlan(req.Email, plan)
		if err != nil {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "User not found"})
		}

		// fail closed: revert the tier if the row write does not land
		if err := rows.SaveUser(c.Request().Context(), u); err != nil {
			_, _ = st.UpdatePlan(req.Email, prev.Plan)
			logger.Log.Error("plan persist failed", zap.String("email", req.Email), zap.Error(err))
			return c.JSON(http.StatusBadGateway, map[string]string{"error": "storage unavailable"})
		}

		logger.Log.Info("plan updated", zap.String("email", req.Email), zap.String("plan", plan.String()))
		return c.JSON(http.StatusOK, map[string]any{"success": true})
	}
}

func manualSyncHandler(syncSvc *svcsync.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := syncSvc.Resync(c.Request().Context(), svcsync.TriggerManual); err != nil {
			logger.Log.Error("manual sync failed", zap.Error(err))
			return c.JSON(http.StatusBadGateway, map[string]string{"error": "sync failed"})
		}
		return c.JSON(http.StatusOK, map[string]any{"success": true, "message": "Synchronized with row store"})
	}
}
