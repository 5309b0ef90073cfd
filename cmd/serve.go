package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/vynaa/vbase/internal/config"
	"github.com/vynaa/vbase/internal/db"
	httpSrv "github.com/vynaa/vbase/internal/http"
	"github.com/vynaa/vbase/internal/logger"
	"github.com/vynaa/vbase/internal/rowstore"
	svcsync "github.com/vynaa/vbase/internal/service/sync"
	"github.com/vynaa/vbase/internal/session"
	"github.com/vynaa/vbase/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger.Init(cfg.Log.Level)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rows, err := newRowStore(ctx, cfg)
		if err != nil {
			return err
		}

		var rdsClient *redis.Client
		var sessions session.Manager
		if cfg.Redis.Addr != "" {
			rdsClient, err = db.NewRedisClient(db.RedisOpts{
				Addr:        cfg.Redis.Addr,
				Password:    cfg.Redis.Password,
				DB:          cfg.Redis.DB,
				DialTimeout: cfg.Redis.DialTimeout,
			})
			if err != nil {
				return fmt.Errorf("redis connect: %w", err)
			}
			defer func() { _ = rdsClient.Close() }()
			sessions = session.NewRedis(rdsClient, cfg.Session.TTL)
		} else {
			log.Printf("redis not configured, using in-memory sessions")
			sessions = session.NewMemory(cfg.Session.TTL)
		}

		st := store.New(store.Options{
			DemoEmail:    cfg.Demo.Email,
			DemoPassword: cfg.Demo.Password,
		})
		syncSvc := svcsync.New(st, rows, cfg.Sync, cfg.Admins, cfg.Demo)

		if err := rows.EnsureSheets(ctx); err != nil {
			log.Printf("ensure sheets failed: %v", err)
		}
		// startup resync; stale-empty state is still servable
		if err := syncSvc.Resync(ctx, svcsync.TriggerStartup); err != nil {
			log.Printf("startup sync failed: %v", err)
		}

		go syncSvc.Run(ctx)

		server := httpSrv.NewServer(cfg, st, rows, syncSvc, sessions, rdsClient)

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start(cfg.HTTP.Addr)
		}()

		select {
		case <-ctx.Done():
			log.Printf("signal received, shutting down...")
		case err := <-errCh:
			if err != nil {
				log.Printf("http server exited: %v", err)
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)

		stop()
		syncSvc.Wait()

		return nil
	},
}

// newRowStore picks the Sheets adapter, or the in-memory one when no
// spreadsheet is configured (dev mode: nothing survives a restart).
func newRowStore(ctx context.Context, cfg config.Config) (rowstore.Store, error) {
	if cfg.Sheets.SpreadsheetID == "" {
		log.Printf("sheets not configured, using in-memory row store")
		return rowstore.NewMemory(), nil
	}
	rows, err := rowstore.NewSheets(ctx, cfg.Sheets.SpreadsheetID, cfg.Sheets.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("sheets connect: %w", err)
	}
	return rows, nil
}
