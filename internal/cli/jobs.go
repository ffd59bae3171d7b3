package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var jobsLimit int

var jobsCmd = &cobra.Command{
	Use:   "jobs [job-id]",
	Short: "List or inspect indexing jobs",
	Long: `List recent indexing jobs or inspect a specific job by ID.

Examples:
  doxai jobs           # List recent jobs
  doxai jobs abc123    # Show details for job abc123`,
	Args: cobra.MaximumNArgs(1),
	RunE: runJobs,
}

func init() {
	jobsCmd.Flags().IntVar(&jobsLimit, "limit", 20, "maximum number of jobs to list")
	rootCmd.AddCommand(jobsCmd)
}

func runJobs(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if len(args) == 1 {
		return showJob(ctx, args[0])
	}
	return listJobs(ctx)
}

func listJobs(ctx context.Context) error {
	jobs, err := progressService().ListJobs(ctx, jobsLimit)
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}

	if len(jobs) == 0 {
		fmt.Println("No jobs found")
		return nil
	}

	fmt.Printf("%-38s %-10s %-10s %-9s %s\n", "ID", "STATUS", "PHASE", "PROGRESS", "FILE")
	fmt.Println("--------------------------------------------------------------------------------")

	for _, job := range jobs {
		fmt.Printf("%-38s %-10s %-10s %8d%% %s\n",
			job.JobID, job.Status, job.Phase, job.ProgressPct, job.FileID)
	}

	return nil
}

func showJob(ctx context.Context, id string) error {
	p, err := progressService().GetJobProgress(ctx, id)
	if err != nil {
		return fmt.Errorf("get job: %w", err)
	}

	fmt.Printf("Job: %s\n", p.JobID)
	fmt.Printf("  File: %s\n", p.FileID)
	fmt.Printf("  Status: %s\n", p.Status)
	fmt.Printf("  Phase: %s\n", p.Phase)
	fmt.Printf("  Progress: %d%%\n", p.ProgressPct)

	if len(p.Timeline) == 0 {
		return nil
	}

	fmt.Println("\nTimeline:")
	printTimeline(p.Timeline)
	return nil
}
