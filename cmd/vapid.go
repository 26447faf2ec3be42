package cmd

import (
	"fmt"

	"availability-backend/internal/services"

	"github.com/spf13/cobra"
)

var vapidCmd = &cobra.Command{
	Use:   "vapid-keys",
	Short: "Generate a VAPID key pair for Web Push",
	RunE: func(cmd *cobra.Command, args []string) error {
		public, private, err := services.GenerateVAPIDKeys()
		if err != nil {
			return err
		}
		fmt.Printf("AVAIL_VAPID_PUBLIC_KEY=%s\n", public)
		fmt.Printf("AVAIL_VAPID_PRIVATE_KEY=%s\n", private)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(vapidCmd)
}
