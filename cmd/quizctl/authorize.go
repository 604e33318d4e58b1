package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// authorizeCmd represents the authorize command
var authorizeCmd = &cobra.Command{
	Use:   "authorize <path>",
	Short: "Check whether this device's session may open a path",
	Long: `Check whether this device's session may open a path.

The path is classified with the configured route table. A denied check
prints the redirect and exits with status 2.

Example:
  quizctl authorize /quizzes
  quizctl authorize /quiz/42/attempt`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := args[0]
		allowed := false

		err := runWithStack(cmd, func(ctx context.Context, s *stack) error {
			class, pattern := s.routes.Classify(path)
			decision := s.gate.Decide(ctx, s.session.Current(), class, path)
			allowed = decision.Allow

			if pattern == "" {
				pattern = "(unmatched)"
			}
			fmt.Printf("path:  %s\nroute: %s\nclass: %s\n", path, pattern, class)
			if decision.Allow {
				fmt.Println("allow")
				return nil
			}
			fmt.Printf("deny:  %s -> %s\n", decision.Reason, decision.RedirectURL())
			return nil
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Authorization check failed: %v\n", err)
			os.Exit(1)
		}
		if !allowed {
			os.Exit(2)
		}
	},
}

func init() {
	rootCmd.AddCommand(authorizeCmd)
}
