package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vynaa/vbase/internal/config"
	"github.com/vynaa/vbase/internal/logger"
	svcsync "github.com/vynaa/vbase/internal/service/sync"
	"github.com/vynaa/vbase/internal/store"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a one-shot row-store sync (creates missing sheets and bootstrap rows)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger.Init(cfg.Log.Level)

		ctx := context.Background()
		rows, err := newRowStore(ctx, cfg)
		if err != nil {
			return err
		}
		if err := rows.EnsureSheets(ctx); err != nil {
			return fmt.Errorf("ensure sheets: %w", err)
		}

		st := store.New(store.Options{
			DemoEmail:    cfg.Demo.Email,
			DemoPassword: cfg.Demo.Password,
		})
		syncSvc := svcsync.New(st, rows, cfg.Sync, cfg.Admins, cfg.Demo)
		if err := syncSvc.Resync(ctx, svcsync.TriggerManual); err != nil {
			return fmt.Errorf("sync: %w", err)
		}

		fmt.Printf(">> Sync complete: %d users\n", len(st.Users()))
		return nil
	},
}
