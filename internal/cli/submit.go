package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var submitWatch bool

var submitCmd = &cobra.Command{
	Use:   "submit <url>",
	Short: "Submit a video for processing",
	Long: `Submit a video URL for processing. The server downloads the video,
extracts audio and frames, transcribes, embeds, and indexes it.

By default the command watches the job until it completes. Use --watch=false
to print the job ID and return immediately.

Examples:
  vidtalk submit "https://www.youtube.com/watch?v=abc123"
  vidtalk submit --watch=false "https://www.youtube.com/watch?v=abc123"`,
	Args: cobra.ExactArgs(1),
	RunE: runSubmit,
}

func init() {
	submitCmd.Flags().BoolVarP(&submitWatch, "watch", "w", true, "watch job progress until completion")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	jobID, err := apiClient.Submit(ctx, args[0])
	if err != nil {
		return fmt.Errorf("submit video: %w", err)
	}

	if !submitWatch {
		fmt.Printf("Job %s accepted. Use 'vidtalk jobs %s' to check status.\n", jobID, jobID)
		return nil
	}

	// The animated progress bar needs a terminal. Fall back to plain
	// polling when stdout is piped.
	if term.IsTerminal(int(os.Stdout.Fd())) {
		return RunJobProgress(apiClient, jobID)
	}
	return watchPlain(ctx, jobID)
}

// watchPlain polls the job and prints each message change on its own line.
func watchPlain(ctx context.Context, jobID string) error {
	var lastMessage string
	for {
		job, err := apiClient.GetJob(ctx, jobID)
		if err != nil {
			return fmt.Errorf("fetch job status: %w", err)
		}

		if job.Message != lastMessage {
			fmt.Printf("[%d/%d] %s\n", job.Stage, job.TotalStages, job.Message)
			lastMessage = job.Message
		}

		switch job.Status {
		case "completed":
			fmt.Printf("Session ready: %s\n", job.SessionID)
			return nil
		case "failed":
			return fmt.Errorf("job failed: %s", job.Error)
		}

		time.Sleep(pollInterval)
	}
}
