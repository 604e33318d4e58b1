package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quizdesk/quizdesk/pkg/model"
)

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login <username>",
	Short: "Log this device in as a user",
	Long: `Log this device in as a user, creating the account on first use.

The role only applies when the account is created. A returning user
always keeps the role stored with their account.

Example:
  quizctl login alice
  quizctl login bob --role student`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		roleName, _ := cmd.Flags().GetString("role")

		if err := runLogin(cmd, args[0], roleName); err != nil {
			fmt.Fprintf(os.Stderr, "Login failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().StringP("role", "r", "", "Role for a new account (admin or student, default from configuration)")
}

func runLogin(cmd *cobra.Command, username, roleName string) error {
	var role model.Role
	if roleName != "" {
		parsed, err := model.RoleString(roleName)
		if err != nil {
			return err
		}
		role = parsed
	}

	return runWithStack(cmd, func(ctx context.Context, s *stack) error {
		id, err := s.session.Login(ctx, username, role)
		if err != nil {
			return err
		}

		out, _ := json.MarshalIndent(id, "", "  ")
		fmt.Println(string(out))

		dest, err := s.session.TakeResumeDestination(ctx)
		if err == nil && dest != "" {
			fmt.Fprintf(os.Stderr, "Resume at %s\n", dest)
		}
		return nil
	})
}
