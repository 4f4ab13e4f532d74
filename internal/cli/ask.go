package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var askInteractive bool

var askCmd = &cobra.Command{
	Use:   "ask <session-id> [query]",
	Short: "Ask a question about a processed video",
	Long: `Ask a question about a video session. The answer is generated from
the video's transcript chunks and the frames closest to the query.

With -i the command starts an interactive loop that reads questions
from stdin until EOF or "exit".

Examples:
  vidtalk ask 6f1c9a22 "What is the main topic?"
  vidtalk ask -i 6f1c9a22`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVarP(&askInteractive, "interactive", "i", false, "interactive question loop")
}

func runAsk(cmd *cobra.Command, args []string) error {
	sessionID := args[0]
	ctx := context.Background()

	if askInteractive {
		return askLoop(ctx, sessionID)
	}

	if len(args) < 2 {
		return fmt.Errorf("query required (or use -i for interactive mode)")
	}

	answer, err := apiClient.Query(ctx, sessionID, args[1])
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}

	fmt.Println(answer)
	return nil
}

func askLoop(ctx context.Context, sessionID string) error {
	fmt.Println("Ask questions about the video. Type 'exit' or Ctrl+D to quit.")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}

		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		if query == "exit" || query == "quit" {
			return nil
		}

		answer, err := apiClient.Query(ctx, sessionID, query)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		fmt.Printf("\n%s\n\n", answer)
	}
}
