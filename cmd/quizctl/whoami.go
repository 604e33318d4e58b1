package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// WhoamiResponse is printed by the whoami command
type WhoamiResponse struct {
	Authenticated bool   `json:"authenticated"`
	PersistentID  string `json:"persistentId,omitempty"`
	DisplayName   string `json:"displayName,omitempty"`
	Role          string `json:"role,omitempty"`
}

// whoamiCmd represents the whoami command
var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the identity of this device's session",
	Long: `Show the identity of this device's session.

The session is restored the same way the server restores it on start: from
a live credential if there is one, otherwise from the cached username.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		err := runWithStack(cmd, func(ctx context.Context, s *stack) error {
			response := WhoamiResponse{}
			if id := s.session.Current(); id != nil {
				response = WhoamiResponse{
					Authenticated: true,
					PersistentID:  id.PersistentID,
					DisplayName:   id.DisplayName,
					Role:          id.Role.String(),
				}
			}
			out, _ := json.MarshalIndent(response, "", "  ")
			fmt.Println(string(out))
			return nil
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to resolve session: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}
