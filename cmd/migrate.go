package cmd

import (
	"context"
	"fmt"

	"availability-backend/internal/repository"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		applied, err := repository.Migrate(ctx, db)
		if err != nil {
			return err
		}
		log.Info().Int("applied", applied).Msg("Migrations up to date")
		fmt.Printf("Applied %d migration(s)\n", applied)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
