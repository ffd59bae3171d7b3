package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ixberis/doxai-indexer/internal/models"
	jobprogress "github.com/ixberis/doxai-indexer/internal/progress"
)

const watchPollInterval = time.Second

var watchCmd = &cobra.Command{
	Use:   "watch <job-id>",
	Short: "Follow a job's progress until it finishes",
	Long: `Follow a running job until it completes, fails or is cancelled.

On a terminal this renders an interactive progress bar; when output is
piped the command falls back to plain status lines.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return watchJob(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

// watchJob follows a job to a terminal status. The interactive UI only
// runs on a real terminal; piped output gets plain polling lines.
func watchJob(ctx context.Context, jobID string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return watchJobPlain(ctx, jobID)
	}
	return runWatchUI(jobID)
}

// watchJobPlain polls the job and prints a status line per change.
func watchJobPlain(ctx context.Context, jobID string) error {
	svc := progressService()
	var lastPhase models.Phase
	var lastStatus models.JobStatus

	for {
		p, err := svc.GetJobProgress(ctx, jobID)
		if err != nil {
			return fmt.Errorf("fetch job progress: %w", err)
		}

		if p.Phase != lastPhase || p.Status != lastStatus {
			fmt.Printf("job %s: %s phase=%s %d%%\n", p.JobID, p.Status, p.Phase, p.ProgressPct)
			lastPhase, lastStatus = p.Phase, p.Status
		}

		if p.Status.Terminal() {
			if p.Status != models.JobStatusCompleted {
				return fmt.Errorf("job %s %s in phase %s", p.JobID, p.Status, p.Phase)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(watchPollInterval):
		}
	}
}

// Theme holds the color scheme for the progress display.
type Theme struct {
	Status  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:  lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// tickMsg triggers polling the job status
type tickMsg time.Time

// jobUpdateMsg carries the updated job data
type jobUpdateMsg struct {
	job *jobprogress.JobProgress
	err error
}

// watchModel is the bubbletea model for job progress.
type watchModel struct {
	svc      *jobprogress.Service
	jobID    string
	job      *jobprogress.JobProgress
	progress progress.Model
	theme    Theme
	done     bool
	quitting bool
	err      error
}

func newWatchModel(svc *jobprogress.Service, jobID string) watchModel {
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)

	return watchModel{
		svc:      svc,
		jobID:    jobID,
		progress: prog,
		theme:    defaultTheme,
	}
}

// Init returns the initial command (start polling).
func (m watchModel) Init() tea.Cmd {
	return tea.Batch(
		m.fetchJob(),
		m.progress.Init(),
	)
}

// Update handles messages and returns the updated model.
func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		return m, m.fetchJob()

	case jobUpdateMsg:
		if msg.err != nil {
			m.err = fmt.Errorf("failed to fetch job status: %w", msg.err)
			m.done = true
			return m, tea.Quit
		}

		m.job = msg.job

		if m.job.Status.Terminal() {
			m.done = true
			if m.job.Status != models.JobStatusCompleted {
				m.err = fmt.Errorf("job %s in phase %s", m.job.Status, m.job.Phase)
			}
			return m, tea.Quit
		}

		return m, tickCmd()

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the progress display.
func (m watchModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m watchModel) renderContent() string {
	if m.done {
		return m.finalView()
	}

	if m.job == nil {
		return "Loading job status...\n"
	}

	status := m.theme.statusStyle().Render(fmt.Sprintf("[%s]", m.job.Status))
	progressBar := m.progress.ViewAs(float64(m.job.ProgressPct) / 100)
	phase := fmt.Sprintf("%s %d%%", m.job.Phase, m.job.ProgressPct)
	hint := m.theme.hintStyle().Render("Press Ctrl+C to continue in background")

	return fmt.Sprintf("%s %s %s\n%s\n", status, progressBar, phase, hint)
}

// finalView renders the completion message.
func (m watchModel) finalView() string {
	if m.quitting {
		msg := fmt.Sprintf("\nJob %s continues in background.\nUse 'doxai jobs %s' to check status.\n",
			m.jobID, m.jobID)
		return m.theme.hintStyle().Render(msg)
	}

	if m.err != nil {
		return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ Job failed: %s\n", m.err))
	}

	var output string
	output += m.theme.completedStyle().Render("✓ Completed") + "\n\n"
	if m.job != nil {
		output += fmt.Sprintf("  Phase:    %s\n", m.job.Phase)
		output += fmt.Sprintf("  Progress: %d%%\n", m.job.ProgressPct)
		output += fmt.Sprintf("  Events:   %d\n", len(m.job.Timeline))
	}
	return output
}

// fetchJob fetches the current job status.
// Runs in a separate goroutine (command) to avoid blocking Update().
func (m watchModel) fetchJob() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		job, err := m.svc.GetJobProgress(ctx, m.jobID)
		return jobUpdateMsg{job: job, err: err}
	}
}

// tickCmd returns a command that sends a tick after the poll interval.
func tickCmd() tea.Cmd {
	return tea.Tick(watchPollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// runWatchUI runs the interactive progress UI for a job.
// Returns nil on success or Ctrl+C (background), error on job failure.
func runWatchUI(jobID string) error {
	model := newWatchModel(progressService(), jobID)
	p := tea.NewProgram(model)

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("progress UI error: %w", err)
	}

	if m, ok := finalModel.(watchModel); ok {
		// Ctrl+C leaves the job running in the background, not an error.
		if m.quitting {
			return nil
		}
		return m.err
	}

	return nil
}
