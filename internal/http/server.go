package http

import (
	"context"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vynaa/vbase/internal/config"
	"github.com/vynaa/vbase/internal/http/middleware"
	"github.com/vynaa/vbase/internal/logger"
	"github.com/vynaa/vbase/internal/metrics"
	"github.com/vynaa/vbase/internal/model"
	"github.com/vynaa/vbase/internal/rowstore"
	svcsync "github.com/vynaa/vbase/internal/service/sync"
	"github.com/vynaa/vbase/internal/session"
	"github.com/vynaa/vbase/internal/store"
)

type Server struct {
	e       *echo.Echo
	started time.Time
}

// cookieWriter centralizes the session cookie attributes.
type cookieWriter struct {
	name   string
	ttl    time.Duration
	secure bool
}

func (w cookieWriter) set(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     w.name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(w.ttl / time.Second),
		Secure:   w.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (w cookieWriter) clear(c echo.Context) {
	c.SetCookie(&http.Cookie{Name: w.name, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
}

func sessionUser(c echo.Context) (*model.User, bool) {
	return middleware.SessionUserFromCtx(c)
}

// NewServer wires the store, row store, sync service and session
// manager into the route table. rds may be nil in dev mode, which
// disables the per-user rate limiter.
func NewServer(cfg config.Config, st *store.Store, rows rowstore.Store, syncSvc *svcsync.Service, sessions session.Manager, rds *redis.Client) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(echoMid.Recover(), echoMid.Logger())

	metrics.MustRegister(prometheus.DefaultRegisterer)

	srv := &Server{e: e, started: time.Now()}

	cookie := cookieWriter{
		name:   cfg.Session.CookieName,
		ttl:    cfg.Session.TTL,
		secure: cfg.Session.SecureCookie,
	}

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// unauthenticated liveness probe
	e.GET("/api/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"status": "ok",
			"uptime": time.Since(srv.started).Seconds(),
		})
	})

	// browser auth
	e.POST("/api/auth/login", loginHandler(st, sessions, cookie))
	e.POST("/api/auth/register", registerHandler(st, rows, sessions, cookie))
	e.POST("/api/auth/logout", logoutHandler(sessions, cookie))

	// session-authenticated account surface
	sessMW := middleware.SessionMiddleware(sessions, st, syncSvc, cookie.name)
	account := e.Group("/api", sessMW)
	account.GET("/me", meHandler())
	account.GET("/databases", listDatabasesHandler(st))
	account.POST("/databases/create", createDatabaseHandler(st, rows))

	admin := e.Group("/api/admin", sessMW, middleware.RequireAdmin())
	admin.GET("/users", listUsersHandler(st))
	admin.POST("/update-plan", updatePlanHandler(st, rows))
	admin.POST("/sync", manualSyncHandler(syncSvc))

	// API-key data plane
	authMW := middleware.APIKeyMiddleware(st)
	rlMW := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Redis:          rds,
		RPS:            cfg.RateLimit.RPS,
		KeyPrefix:      "rl:user:",
		Window:         time.Second,
		RetryAfterHint: true,
	})
	data := e.Group("/api/db", authMW, rlMW)
	data.POST("/:dbId/insert", insertRecordHandler(st, syncSvc))
	data.GET("/:dbId/select", selectRecordsHandler(st, syncSvc))
	data.POST("/:dbId/update/:recordId", updateRecordHandler(st, syncSvc))
	data.DELETE("/:dbId/delete/:recordId", deleteRecordHandler(st, syncSvc))

	return srv
}

func (s *Server) Start(addr string) error {
	logger.Log.Info("http: listening", zap.String("addr", addr))
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }

// Handler exposes the echo engine for httptest.
func (s *Server) Handler() http.Handler { return s.e }
