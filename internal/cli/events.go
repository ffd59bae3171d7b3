package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ixberis/doxai-indexer/internal/progress"
)

var eventsCmd = &cobra.Command{
	Use:   "events <job-id>",
	Short: "Print a job's event timeline",
	Long: `Print the append-only event timeline of a job in creation order.

The timeline records every lifecycle transition: job_queued, phase
starts and completions, failures and the final job outcome.`,
	Args: cobra.ExactArgs(1),
	RunE: runEvents,
}

func init() {
	rootCmd.AddCommand(eventsCmd)
}

func runEvents(cmd *cobra.Command, args []string) error {
	p, err := progressService().GetJobProgress(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("get job: %w", err)
	}

	if len(p.Timeline) == 0 {
		fmt.Println("No events found")
		return nil
	}

	printTimeline(p.Timeline)
	return nil
}

func printTimeline(entries []progress.TimelineEntry) {
	for _, e := range entries {
		line := fmt.Sprintf("  %s  %-16s", e.CreatedAt.Format("15:04:05.000"), e.EventType)
		if e.Phase != nil {
			line += fmt.Sprintf(" phase=%s", *e.Phase)
		}
		if e.ProgressPct != nil {
			line += fmt.Sprintf(" %d%%", *e.ProgressPct)
		}
		if e.Message != nil && *e.Message != "" {
			line += " " + *e.Message
		}
		if len(e.Payload) > 0 {
			line += " " + formatPayload(e.Payload)
		}
		fmt.Println(line)
	}
}

func formatPayload(payload map[string]any) string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, payload[k])
	}
	return strings.Join(parts, " ")
}
