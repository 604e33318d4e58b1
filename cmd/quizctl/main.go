package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "quizctl",
	Short: "Run and operate the quizdesk session service",
	Long: `Run and operate the quizdesk identity and session service.

Configuration is read from $QUIZDESK_CONFIG_PATH/quizdesk.yml
(default /etc/quizdesk/quizdesk.yml) and QUIZDESK_* environment variables.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("store", "postgres", "Record store backend (postgres or memory)")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func main() {
	Execute()
}
