package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/vynaa/vbase/internal/config"
	"github.com/vynaa/vbase/internal/logger"
	"github.com/vynaa/vbase/internal/model"
	"github.com/vynaa/vbase/internal/rowstore"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Write the admin and demo bootstrap rows to the spreadsheet",
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

		log.Println(">> Seeding bootstrap accounts...")
		if err := seedAccounts(ctx, rows, cfg); err != nil {
			return err
		}
		log.Println(">> Seed complete")
		return nil
	},
}

// seedAccounts upserts the configured admin accounts and the demo
// account (idempotent: SaveUser matches rows by email).
func seedAccounts(ctx context.Context, rows rowstore.Store, cfg config.Config) error {
	now := time.Now().UTC()

	for _, a := range cfg.Admins {
		u := &model.User{
			ID:        a.ID,
			Email:     a.Email,
			Username:  a.Username,
			Password:  a.Password,
			Name:      a.Name,
			Plan:      model.PlanEnterprise,
			Role:      model.RoleAdmin,
			APIKey:    "vbase_" + a.Username + "_key",
			CreatedAt: now,
		}
		if err := rows.SaveUser(ctx, u); err != nil {
			return fmt.Errorf("seed admin %q: %w", a.Email, err)
		}
	}

	if cfg.Demo.Email != "" {
		u := &model.User{
			ID:        "user_demo",
			Email:     cfg.Demo.Email,
			Password:  cfg.Demo.Password,
			Name:      "Demo User",
			Plan:      model.PlanFree,
			Role:      model.RoleUser,
			APIKey:    "vbase_demo_key",
			CreatedAt: now,
		}
		if err := rows.SaveUser(ctx, u); err != nil {
			return fmt.Errorf("seed demo user: %w", err)
		}
	}
	return nil
}
