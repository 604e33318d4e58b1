package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// logoutCmd represents the logout command
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log this device out",
	Long: `Log this device out.

The local session is cleared even when the credential provider cannot be
reached; the command then exits non-zero to report it.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		err := runWithStack(cmd, func(ctx context.Context, s *stack) error {
			return s.session.Logout(ctx)
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Logout failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Logged out")
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
