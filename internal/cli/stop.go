package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop <session-id>",
	Short: "Stop a session and release its resources",
	Long: `Stop a video session. The server drops the session's index data and
deletes its working directory. Further questions against the session fail.`,
	Args: cobra.ExactArgs(1),
	RunE: runStop,
}

func runStop(cmd *cobra.Command, args []string) error {
	sessionID := args[0]

	if err := apiClient.StopSession(context.Background(), sessionID); err != nil {
		return fmt.Errorf("stop session: %w", err)
	}

	fmt.Printf("Session %s stopped.\n", sessionID)
	return nil
}
