// Package sync reconciles the in-memory store with the external row
// store: full reloads, bootstrap accounts, and the async persister that
// flushes data-plane mutations back out.
package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vynaa/vbase/internal/config"
	"github.com/vynaa/vbase/internal/logger"
	"github.com/vynaa/vbase/internal/metrics"
	"github.com/vynaa/vbase/internal/model"
	"github.com/vynaa/vbase/internal/rowstore"
	"github.com/vynaa/vbase/internal/store"
)

// Trigger labels what caused a resync, for logs and metrics.
type Trigger string

const (
	TriggerStartup Trigger = "startup"
	TriggerMiss    Trigger = "miss"
	TriggerManual  Trigger = "manual"
)

const saveTimeout = 15 * time.Second

// Service owns the reconciliation policy: when to reload, what to
// bootstrap, and how mutations flow back to the row store.
type Service struct {
	store *store.Store
	rows  rowstore.Store

	ttl     time.Duration
	admins  []config.AdminConfig
	demo    config.DemoConfig
	retries int

	mu       sync.Mutex // serializes resyncs and guards lastSync
	lastSync time.Time

	saves chan saveOp
	done  chan struct{}
}

type saveKind string

const (
	saveUser     saveKind = "user"
	saveDatabase saveKind = "database"
)

type saveOp struct {
	kind saveKind
	user *model.User
	db   *model.Database
}

func New(st *store.Store, rows rowstore.Store, cfg config.SyncConfig, admins []config.AdminConfig, demo config.DemoConfig) *Service {
	queueSize := cfg.SaveQueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	retries := cfg.SaveRetries
	if retries <= 0 {
		retries = 3
	}
	return &Service{
		store:   st,
		rows:    rows,
		ttl:     cfg.TTL,
		admins:  admins,
		demo:    demo,
		retries: retries,
		saves:   make(chan saveOp, queueSize),
		done:    make(chan struct{}),
	}
}

// Resync reloads the full row set, seeds the bootstrap accounts, and
// atomically swaps the store state. On load failure the prior in-memory
// state is left untouched (stale but available).
func (s *Service) Resync(ctx context.Context, trigger Trigger) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.rows.LoadUsers(ctx)
	if err != nil {
		metrics.SyncTotal.WithLabelValues(string(trigger), "error").Inc()
		return fmt.Errorf("load users: %w", err)
	}
	databases, err := s.rows.LoadDatabases(ctx)
	if err != nil {
		metrics.SyncTotal.WithLabelValues(string(trigger), "error").Inc()
		return fmt.Errorf("load databases: %w", err)
	}

	s.bootstrap(ctx, users)
	s.store.ReplaceAll(users, databases)
	s.lastSync = time.Now()

	metrics.SyncTotal.WithLabelValues(string(trigger), "ok").Inc()
	logger.Log.Info("row store sync complete",
		zap.String("trigger", string(trigger)),
		zap.Int("users", len(users)),
		zap.Int("owners", len(databases)),
	)
	return nil
}

// Ensure is the read-through path for the session gateway: resync only
// when the directory misses the email and the last sync has gone stale.
func (s *Service) Ensure(ctx context.Context, email string) error {
	if s.store.Has(email) {
		return nil
	}
	s.mu.Lock()
	fresh := !s.lastSync.IsZero() && time.Since(s.lastSync) < s.ttl
	s.mu.Unlock()
	if fresh {
		return nil
	}
	return s.Resync(ctx, TriggerMiss)
}

// bootstrap forces the admin accounts and the demo account into the
// loaded user set, writing rows back for accounts the sheet is missing.
func (s *Service) bootstrap(ctx context.Context, users map[string]*model.User) {
	for _, a := range s.admins {
		if u, ok := users[a.Email]; ok {
			// credentials and identity must match config exactly
			u.Password = a.Password
			u.Role = model.RoleAdmin
			u.ID = a.ID
			u.Username = a.Username
			u.Name = a.Name
			continue
		}
		u := &model.User{
			ID:        a.ID,
			Email:     a.Email,
			Username:  a.Username,
			Password:  a.Password,
			Name:      a.Name,
			Plan:      model.PlanEnterprise,
			Role:      model.RoleAdmin,
			APIKey:    "vbase_" + a.Username + "_key",
			CreatedAt: time.Now().UTC(),
		}
		users[a.Email] = u
		s.saveUserNow(ctx, u)
	}

	if s.demo.Email != "" {
		if _, ok := users[s.demo.Email]; !ok {
			u := &model.User{
				ID:        "user_demo",
				Email:     s.demo.Email,
				Password:  s.demo.Password,
				Name:      "Demo User",
				Plan:      model.PlanFree,
				Role:      model.RoleUser,
				APIKey:    "vbase_demo_key",
				CreatedAt: time.Now().UTC(),
			}
			users[s.demo.Email] = u
			s.saveUserNow(ctx, u)
		}
	}
}

// saveUserNow writes a bootstrap row synchronously, best effort.
func (s *Service) saveUserNow(ctx context.Context, u *model.User) {
	if err := s.rows.SaveUser(ctx, u); err != nil {
		logger.Log.Error("bootstrap user save failed",
			zap.String("email", u.Email), zap.Error(err))
	}
}

// ---- async persister ----

// QueueUserSave hands a user row to the persister. Fail-open: the
// in-memory mutation already happened, the write is retried in the
// background, and a full backlog drops the save with an error log
// (the next full resync restores row-store truth for counters).
func (s *Service) QueueUserSave(u *model.User) {
	select {
	case s.saves <- saveOp{kind: saveUser, user: u}:
	default:
		metrics.RowstoreSavesTotal.WithLabelValues(string(saveUser), "dropped").Inc()
		logger.Log.Error("save queue full, dropping user save", zap.String("email", u.Email))
	}
}

// QueueDatabaseSave hands a database row to the persister.
func (s *Service) QueueDatabaseSave(db *model.Database) {
	select {
	case s.saves <- saveOp{kind: saveDatabase, db: db}:
	default:
		metrics.RowstoreSavesTotal.WithLabelValues(string(saveDatabase), "dropped").Inc()
		logger.Log.Error("save queue full, dropping database save", zap.String("db_id", db.ID))
	}
}

// Run drains the save queue until ctx is cancelled, then flushes what
// is left before returning.
func (s *Service) Run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case op := <-s.saves:
			s.apply(op)
		case <-ctx.Done():
			for {
				select {
				case op := <-s.saves:
					s.apply(op)
				default:
					return
				}
			}
		}
	}
}

// Wait blocks until Run has returned.
func (s *Service) Wait() {
	<-s.done
}

func (s *Service) apply(op saveOp) {
	var err error
	for attempt := 1; attempt <= s.retries; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		switch op.kind {
		case saveUser:
			err = s.rows.SaveUser(ctx, op.user)
		case saveDatabase:
			err = s.rows.SaveDatabase(ctx, op.db)
		}
		cancel()
		if err == nil {
			metrics.RowstoreSavesTotal.WithLabelValues(string(op.kind), "ok").Inc()
			return
		}
	}
	metrics.RowstoreSavesTotal.WithLabelValues(string(op.kind), "error").Inc()
	logger.Log.Error("row store save failed", zap.String("kind", string(op.kind)), zap.Error(err))
}
