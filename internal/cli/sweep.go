package cli

import (
	"fmt"
	"log"
	"time"

	"telequiz/internal/app"
	"telequiz/internal/config"
	"telequiz/internal/infra/postgres"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
)

// NewSweepCmd runs a single expiration pass over committed attempts.
func NewSweepCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete committed attempts older than the configured age",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}

			pool, err := pgxpool.Connect(cmd.Context(), cfg.Postgres.URL)
			if err != nil {
				return err
			}
			defer pool.Close()

			maxAge := config.Duration(cfg.Sweep.MaxAge, 48*time.Hour)
			sweeper := app.NewSweeper(postgres.NewStore(pool))
			removed, err := sweeper.Sweep(cmd.Context(), time.Now(), maxAge)
			if err != nil {
				return err
			}
			log.Printf("removed %d attempt(s) older than %s", removed, maxAge)
			return nil
		},
	}
}
