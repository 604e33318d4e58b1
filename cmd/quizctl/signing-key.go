package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// signingKeyCmd represents the signing-key command
var signingKeyCmd = &cobra.Command{
	Use:   "signing-key",
	Short: "Manage the credential signing key",
	Long:  `Manage the key that signs ephemeral credentials`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("error: Command 'signing-key' requires a subcommand generate")
		fmt.Println()
		_ = cmd.Help()
		os.Exit(1)
	},
}

// signingKeyGenerateCmd represents the signing-key generate command
var signingKeyGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a credential signing key",
	Long: `
Generate a credential signing key

Use this command to generate a new Base64-encoded 256 bit key. Place it in
the environment of every quizctl process that shares a device cache; a new
key invalidates every outstanding credential.

Example:

$ export QUIZDESK_SIGNING_KEY="$(quizctl signing-key generate)"
`,
	Run: func(cmd *cobra.Command, args []string) {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate key: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s", base64.StdEncoding.Strict().EncodeToString(key))
	},
}

func init() {
	rootCmd.AddCommand(signingKeyCmd)
	signingKeyCmd.AddCommand(signingKeyGenerateCmd)
}
