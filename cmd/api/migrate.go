package main

import (
	"fmt"
	"log/slog"

	"github.com/hanzideck/flashcard-api/internal/config"
	"github.com/hanzideck/flashcard-api/internal/database"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down|status]",
	Short:     "Apply or inspect the database migrations",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{database.MigrateUp, database.MigrateDown, database.MigrateStatus},
	RunE: func(cmd *cobra.Command, args []string) error {
		direction := database.MigrateUp
		if len(args) == 1 {
			direction = args[0]
		}

		logger := newLogger(slog.LevelInfo)

		dbCfg, err := config.LoadDatabase()
		if err != nil {
			return fmt.Errorf("load database config: %w", err)
		}

		if err := database.Migrate(cmd.Context(), dbCfg.DSN(), direction); err != nil {
			return err
		}

		logger.Info("migrations finished", slog.String("direction", direction))
		return nil
	},
}
