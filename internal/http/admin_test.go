package http

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vynaa/vbase/internal/model"
)

func TestAdminRoutes_RejectNonAdmins(t *testing.T) {
	env := newTestEnv(t)
	ck := env.register(t, "alice@example.com", "pw", "Alice")

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/admin/users"},
		{http.MethodPost, "/api/admin/update-plan"},
		{http.MethodPost, "/api/admin/sync"},
	} {
		rec := env.do(t, route.method, route.path, nil, withCookie(ck))
		assert.Equal(t, http.StatusForbidden, rec.Code, route.path)
		assert.Equal(t, "Forbidden", decode(t, rec)["error"], route.path)
	}
}

func TestAdminListUsers(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice@example.com", "pw", "Alice")
	admin := env.login(t, "admin@vynaa.web.id", "pwadmin123")

	rec := env.do(t, http.MethodGet, "/api/admin/users", nil, withCookie(admin))
	require.Equal(t, http.StatusOK, rec.Code)

	users := decode(t, rec)["users"].([]any)
	emails := make([]string, 0, len(users))
	for _, raw := range users {
		emails = append(emails, raw.(map[string]any)["email"].(string))
	}
	assert.Contains(t, emails, "alice@example.com")
	assert.Contains(t, emails, "demo@vbase.com")
	assert.Contains(t, emails, "admin@vynaa.web.id")
}

func TestAdminUpdatePlan(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice@example.com", "pw", "Alice")
	admin := env.login(t, "admin@vynaa.web.id", "pwadmin123")

	rec := env.do(t, http.MethodPost, "/api/admin/update-plan",
		map[string]string{"email": "alice@example.com", "plan": "vip2"}, withCookie(admin))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	u, err := env.st.GetByEmail("alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, model.PlanVIP2, u.Plan)

	// the new tier landed in the row store
	users, err := env.rows.LoadUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.PlanVIP2, users["alice@example.com"].Plan)
}

func TestAdminUpdatePlan_Validation(t *testing.T) {
	env := newTestEnv(t)
	admin := env.login(t, "admin@vynaa.web.id", "pwadmin123")

	rec := env.do(t, http.MethodPost, "/api/admin/update-plan",
		map[string]string{"email": "alice@example.com", "plan": "gold"}, withCookie(admin))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid plan", decode(t, rec)["error"])

	rec = env.do(t, http.MethodPost, "/api/admin/update-plan",
		map[string]string{"email": "ghost@example.com", "plan": "vip1"}, withCookie(admin))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User not found", decode(t, rec)["error"])
}

func TestAdminUpdatePlan_PersistFailureReverts(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice@example.com", "pw", "Alice")
	admin := env.login(t, "admin@vynaa.web.id", "pwadmin123")
	env.rows.FailSaves(errors.New("sheet unreachable"))

	rec := env.do(t, http.MethodPost, "/api/admin/update-plan",
		map[string]string{"email": "alice@example.com", "plan": "vip2"}, withCookie(admin))
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	u, err := env.st.GetByEmail("alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, model.PlanFree, u.Plan)
}

func TestAdminManualSync(t *testing.T) {
	env := newTestEnv(t)
	admin := env.login(t, "admin@vynaa.web.id", "pwadmin123")

	env.register(t, "alice@example.com", "pw", "Alice")

	rec := env.do(t, http.MethodPost, "/api/admin/sync", nil, withCookie(admin))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Synchronized with row store", decode(t, rec)["message"])

	// accounts survive the reload round-trip
	assert.True(t, env.st.Has("alice@example.com"))

	env.rows.FailLoads(errors.New("sheet unreachable"))
	rec = env.do(t, http.MethodPost, "/api/admin/sync", nil, withCookie(admin))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
