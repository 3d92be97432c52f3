package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/welldanyogia/icd-messaging-backend/internal/config"
	"github.com/welldanyogia/icd-messaging-backend/internal/database"
	"github.com/welldanyogia/icd-messaging-backend/internal/logger"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the message tables and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadWithValidation()
			if err != nil {
				return err
			}
			slog.SetDefault(logger.New(cfg.SlogLevel()))

			db, err := database.Connect(database.OptionsFromConfig(cfg))
			if err != nil {
				return err
			}
			defer database.Close(db)

			return database.Migrate(db)
		},
	}
}
