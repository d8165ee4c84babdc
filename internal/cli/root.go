// Package cli provides the command-line interface for chathub.
package cli

import (
	"github.com/okidwi/chathub/internal/client"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	serverURL string
	verbose   bool

	// API client, created before every command runs.
	api *client.Client
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "chathub",
	Short: "Chat front-end for a local LLM server",
	Long: `Chathub is a chat front-end for a local LLM server (Ollama by default)
with collaboration sessions on the side.

Send messages, regenerate replies, export the conversation history, and
run shared sessions with messages, a whiteboard, and a task list.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		api = client.New(serverURL)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "server URL (default $CHATHUB_SERVER_URL or http://localhost:8585)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(regenerateCmd)
	rootCmd.AddCommand(transcriptCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(collabCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(statsCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
