// Package cli provides the command-line interface for vidtalk.
package cli

import (
	"github.com/raphaelgruber/vidtalk/internal/client"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	serverURL string

	// API client shared by all commands.
	apiClient *client.Client
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "vidtalk",
	Short: "Chat with videos from the command line",
	Long: `Vidtalk turns a video URL into a question-answering session.

Submit a video for processing, wait for the pipeline to finish, then ask
questions that are answered from the video's transcript and frames.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		apiClient = client.New(serverURL)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "server URL (default VIDTALK_SERVER_URL or http://localhost:8000)")

	// Add subcommands
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(stopCmd)
}
