package cmd

import (
	"context"
	"fmt"

	"availability-backend/internal/repository"
	"availability-backend/internal/services"

	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:     "seed <username>...",
	Short:   "Create the users of the group",
	Long:    `Creates every given username that does not exist yet. Existing users are left untouched.`,
	Example: "  availability seed anna niklas paul",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		userService := services.NewUserService(repository.NewUserRepository(db))
		created, err := userService.Seed(ctx, args)
		if err != nil {
			return err
		}
		fmt.Printf("Created %d of %d user(s)\n", created, len(args))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
