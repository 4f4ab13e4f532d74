package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs [job-id]",
	Short: "List or inspect processing jobs",
	Long: `List all processing jobs or inspect a specific job by ID.

Examples:
  vidtalk jobs           # List all jobs
  vidtalk jobs abc123    # Show details for job abc123`,
	Args: cobra.MaximumNArgs(1),
	RunE: runJobs,
}

func runJobs(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	// If job ID provided, show that specific job
	if len(args) == 1 {
		return showJob(ctx, args[0])
	}

	// List all jobs
	return listJobs(ctx)
}

func listJobs(ctx context.Context) error {
	jobs, err := apiClient.ListJobs(ctx)
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}

	if len(jobs) == 0 {
		fmt.Println("No jobs found")
		return nil
	}

	fmt.Printf("%-38s %-12s %-8s %s\n", "ID", "STATUS", "STAGE", "MESSAGE")
	fmt.Println("--------------------------------------------------------------------------------")

	for _, job := range jobs {
		stage := fmt.Sprintf("%d/%d", job.Stage, job.TotalStages)
		fmt.Printf("%-38s %-12s %-8s %s\n", job.JobID, job.Status, stage, job.Message)
	}

	return nil
}

func showJob(ctx context.Context, id string) error {
	job, err := apiClient.GetJob(ctx, id)
	if err != nil {
		return fmt.Errorf("get job: %w", err)
	}

	fmt.Printf("Job: %s\n", job.JobID)
	fmt.Printf("  Status: %s\n", job.Status)
	fmt.Printf("  Stage: %d/%d\n", job.Stage, job.TotalStages)
	fmt.Printf("  Message: %s\n", job.Message)
	if job.SessionID != "" {
		fmt.Printf("  Session: %s\n", job.SessionID)
	}
	if job.Error != "" {
		fmt.Printf("  Error: %s\n", job.Error)
	}

	return nil
}
