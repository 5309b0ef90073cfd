package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vynaa/vbase/internal/config"
	"github.com/vynaa/vbase/internal/rowstore"
	svcsync "github.com/vynaa/vbase/internal/service/sync"
	"github.com/vynaa/vbase/internal/session"
	"github.com/vynaa/vbase/internal/store"
)

type testEnv struct {
	srv      *Server
	st       *store.Store
	rows     *rowstore.MemoryStore
	sessions *session.MemoryManager
	sync     *svcsync.Service
}

// newTestEnv builds a full server on the in-memory row store with no
// redis: memory sessions, rate limiter disabled.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := config.Config{
		Session: config.SessionConfig{CookieName: "vbase_session", TTL: time.Hour},
		Sync:    config.SyncConfig{TTL: time.Minute},
		Admins: []config.AdminConfig{
			{ID: "admin_001", Email: "admin@vynaa.web.id", Username: "admin123", Password: "pwadmin123", Name: "Vynaa Admin"},
		},
		Demo: config.DemoConfig{Email: "demo@vbase.com", Password: "demo123"},
	}

	st := store.New(store.Options{DemoEmail: cfg.Demo.Email, DemoPassword: cfg.Demo.Password})
	rows := rowstore.NewMemory()
	syncSvc := svcsync.New(st, rows, cfg.Sync, cfg.Admins, cfg.Demo)
	require.NoError(t, syncSvc.Resync(context.Background(), svcsync.TriggerStartup))
	sessions := session.NewMemory(cfg.Session.TTL)

	return &testEnv{
		srv:      NewServer(cfg, st, rows, syncSvc, sessions, nil),
		st:       st,
		rows:     rows,
		sessions: sessions,
		sync:     syncSvc,
	}
}

// do issues a request against the route table. body is JSON-encoded
// when non-nil; mods can attach cookies or headers.
func (env *testEnv) do(t *testing.T, method, path string, body any, mods ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, mod := range mods {
		mod(req)
	}

	rec := httptest.NewRecorder()
	env.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func withCookie(ck *http.Cookie) func(*http.Request) {
	return func(req *http.Request) { req.AddCookie(ck) }
}

func withAPIKey(key string) func(*http.Request) {
	return func(req *http.Request) { req.Header.Set("X-API-Key", key) }
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	return got
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == "vbase_session" && ck.Value != "" {
			return ck
		}
	}
	t.Fatal("no session cookie in response")
	return nil
}

// register creates an account through the API and returns its cookie.
func (env *testEnv) register(t *testing.T, email, password, name string) *http.Cookie {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/api/auth/register",
		map[string]string{"email": email, "password": password, "name": name})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return sessionCookie(t, rec)
}

func (env *testEnv) login(t *testing.T, email, password string) *http.Cookie {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/api/auth/login",
		map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return sessionCookie(t, rec)
}

// apiKeyOf looks up the minted key for an account.
func (env *testEnv) apiKeyOf(t *testing.T, email string) string {
	t.Helper()
	u, err := env.st.GetByEmail(email)
	require.NoError(t, err)
	return u.APIKey
}
