package http

import (
	"errors"
	"net/http"

	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/vynaa/vbase/internal/http/middleware"
	"github.com/vynaa/vbase/internal/metrics"
	svcsync "github.com/vynaa/vbase/internal/service/sync"
	"github.com/vynaa/vbase/internal/store"
)

// checkQuota resolves the caller and fails closed at the plan ceiling,
// before the target database is even looked up.
func checkQuota(c echo.Context, st *store.Store, route string) (string, error) {
	userID, ok := middleware.UserIDFromCtx(c)
	if !ok {
		return "", c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}
	err := st.CheckQuota(userID)
	switch {
	case errors.Is(err, store.ErrUserNotFound):
		metrics.APIRequestsTotal.WithLabelValues(route, "error").Inc()
		return "", c.JSON(http.StatusUnauthorized, map[string]string{"error": "User not found"})
	case errors.Is(err, store.ErrQuotaExceeded):
		metrics.APIRequestsTotal.WithLabelValues(route, "quota").Inc()
		return "", c.JSON(http.StatusForbidden, map[string]string{"error": "Request limit reached"})
	case err != nil:
		metrics.APIRequestsTotal.WithLabelValues(route, "error").Inc()
		return "", c.JSON(http.StatusInternalServerError, map[string]string{"error": "quota error"})
	}
	return userID, nil
}

// countUsage bumps the caller's counter and queues the row write.
// The operation itself already succeeded, so a failed bump is only logged.
func countUsage(st *store.Store, syncSvc *svcsync.Service, userID string) {
	u, err := st.IncrementUsage(userID)
	if err != nil {
		log.Errorf("usage increment failed for %s: %v", userID, err)
		return
	}
	syncSvc.QueueUserSave(u)
}

func insertRecordHandler(st *store.Store, syncSvc *svcsync.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := checkQuota(c, st, "insert")
		if userID == "" {
			return err
		}

		var fields map[string]any
		if err := c.Bind(&fields); err != nil || fields == nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "body must be a JSON object"})
		}

		rec, err := st.InsertRecord(c.Param("dbId"), fields)
		if errors.Is(err, store.ErrDatabaseNotFound) {
			metrics.APIRequestsTotal.WithLabelValues("insert", "not_found").Inc()
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Database not found"})
		}
		if err != nil {
			metrics.APIRequestsTotal.WithLabelValues("insert", "error").Inc()
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "insert failed"})
		}

		countUsage(st, syncSvc, userID)
		metrics.APIRequestsTotal.WithLabelValues("insert", "ok").Inc()
		return c.JSON(http.StatusOK, map[string]any{"success": true, "record": rec})
	}
}

func selectRecordsHandler(st *store.Store, syncSvc *svcsync.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := checkQuota(c, st, "select")
		if userID == "" {
			return err
		}

		recs, err := st.SelectRecords(c.Param("dbId"))
		if errors.Is(err, store.ErrDatabaseNotFound) {
			metrics.APIRequestsTotal.WithLabelValues("select", "not_found").Inc()
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Database not found"})
		}
		if err != nil {
			metrics.APIRequestsTotal.WithLabelValues("select", "error").Inc()
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "select failed"})
		}

		// a read still counts against the quota
		countUsage(st, syncSvc, userID)
		metrics.APIRequestsTotal.WithLabelValues("select", "ok").Inc()
		return c.JSON(http.StatusOK, map[string]any{"records": recs})
	}
}

func updateRecordHandler(st *store.Store, syncSvc *svcsync.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := checkQuota(c, st, "update")
		if userID == "" {
			return err
		}

		var fields map[string]any
		if err := c.Bind(&fields); err != nil || fields == nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "body must be a JSON object"})
		}

		rec, err := st.UpdateRecord(c.Param("dbId"), c.Param("recordId"), fields)
		switch {
		case errors.Is(err, store.ErrDatabaseNotFound):
			metrics.APIRequestsTotal.WithLabelValues("update", "not_found").Inc()
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Database not found"})
		case errors.Is(err, store.ErrRecordNotFound):
			metrics.APIRequestsTotal.WithLabelValues("update", "not_found").Inc()
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Record not found"})
		case err != nil:
			metrics.APIRequestsTotal.WithLabelValues("update", "error").Inc()
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "update failed"})
		}

		countUsage(st, syncSvc, userID)
		metrics.APIRequestsTotal.WithLabelValues("update", "ok").Inc()
		return c.JSON(http.StatusOK, map[string]any{"success": true, "record": rec})
	}
}

func deleteRecordHandler(st *store.Store, syncSvc *svcsync.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := checkQuota(c, st, "delete")
		if userID == "" {
			return err
		}

		err = st.DeleteRecord(c.Param("dbId"), c.Param("recordId"))
		switch {
		case errors.Is(err, store.ErrDatabaseNotFound):
			metrics.APIRequestsTotal.WithLabelValues("delete", "not_found").Inc()
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Database not found"})
		case errors.Is(err, store.ErrRecordNotFound):
			metrics.APIRequestsTotal.WithLabelValues("delete", "not_found").Inc()
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Record not found"})
		case err != nil:
			metrics.APIRequestsTotal.WithLabelValues("delete", "error").Inc()
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "delete failed"})
		}

		countUsage(st, syncSvc, userID)
		metrics.APIRequestsTotal.WithLabelValues("delete", "ok").Inc()
		return c.JSON(http.StatusOK, map[string]any{"success": true})
	}
}
