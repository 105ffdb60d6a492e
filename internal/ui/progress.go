// Package ui provides progress display for batch identification.
package ui

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"

	"github.com/dsablic/licensematch/internal/model"
)

// IsTTY returns true if stderr is a terminal.
func IsTTY() bool {
	return term.IsTerminal(os.Stderr.Fd())
}

// IsTerminal reports whether f is a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(f.Fd())
}

// --- Plain text fallback ---

// PlainProgress prints one line per identified file to a callback function.
// Used when stderr is not a TTY (e.g., piped output). Safe for concurrent use.
type PlainProgress struct {
	mu     sync.Mutex
	print  func(string)
	totals model.Totals
}

// NewPlainProgress creates a new PlainProgress with the given print callback.
func NewPlainProgress(print func(string)) *PlainProgress {
	return &PlainProgress{print: print}
}

// Update prints the verdict for a finished file.
func (p *PlainProgress) Update(completed, total int, res model.FileResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.totals.Count(res)
	p.print(fmt.Sprintf("[%d/%d] %s: %s", completed, total, res.Path, verdict(res)))
}

// Done prints the tally of the batch.
func (p *PlainProgress) Done(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.print(fmt.Sprintf("Identified %d of %d files: %s", p.totals.Files, total, tally(p.totals)))
}

func verdict(res model.FileResult) string {
	switch {
	case res.Failed():
		return "failed"
	case res.Matched():
		return fmt.Sprintf("%s (%.3f)", res.License, res.Score)
	}
	return "no match"
}

func tally(t model.Totals) string {
	return fmt.Sprintf("%d matched, %d unmatched, %d failed", t.Matched, t.Unmatched, t.Failed)
}

// --- TUI progress ---

// ProgressMsg is sent to the bubbletea program when a file is identified.
type ProgressMsg struct {
	Completed int
	Total     int
	Result    model.FileResult
}

// DoneMsg is sent to the bubbletea program when all files are identified.
type DoneMsg struct{}

// batchView shows a bar, the running tally and the latest match.
type batchView struct {
	bar       progress.Model
	completed int
	total     int
	totals    model.Totals
	last      *model.FileResult // latest matched file
	done      bool
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	infoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	matchStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// NewTUIModel creates a new bubbletea model for the progress TUI.
func NewTUIModel(total int) tea.Model {
	return batchView{
		bar: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(50),
			progress.WithoutPercentage(),
		),
		total: total,
	}
}

func (v batchView) Init() tea.Cmd {
	return nil
}

func (v batchView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return v, tea.Quit
		}
	case tea.WindowSizeMsg:
		v.bar.Width = min(msg.Width-10, 60)
	case ProgressMsg:
		v.completed = max(v.completed, msg.Completed)
		v.total = msg.Total
		v.totals.Count(msg.Result)
		if msg.Result.Matched() {
			res := msg.Result
			v.last = &res
		}
		if v.total == 0 {
			return v, nil
		}
		return v, v.bar.SetPercent(float64(v.completed) / float64(v.total))
	case DoneMsg:
		v.done = true
		return v, tea.Quit
	case progress.FrameMsg:
		bar, cmd := v.bar.Update(msg)
		v.bar = bar.(progress.Model)
		return v, cmd
	}
	return v, nil
}

func (v batchView) View() string {
	const pad = "  "
	if v.done {
		return "\n" + pad + titleStyle.Render(fmt.Sprintf("Identified %d files", v.totals.Files)) +
			infoStyle.Render(": "+tally(v.totals)) + "\n\n"
	}

	var b strings.Builder
	b.WriteString("\n" + pad + titleStyle.Render("Matching licenses") + " " +
		infoStyle.Render(fmt.Sprintf("%d/%d", v.completed, v.total)) + "\n")
	b.WriteString(pad + v.bar.View() + "\n")

	counts := matchStyle.Render(fmt.Sprintf("%d matched", v.totals.Matched)) +
		infoStyle.Render(fmt.Sprintf(", %d unmatched", v.totals.Unmatched))
	if v.totals.Failed > 0 {
		counts += infoStyle.Render(", ") + failStyle.Render(fmt.Sprintf("%d failed", v.totals.Failed))
	}
	b.WriteString(pad + counts + "\n")

	if v.last != nil {
		b.WriteString(pad + infoStyle.Render("latest: "+v.last.Path+" is "+verdict(*v.last)) + "\n")
	} else {
		b.WriteString(pad + infoStyle.Render("waiting for the first match") + "\n")
	}
	b.WriteString("\n")
	return b.String()
}

// TUIProgress forwards batch progress to a running bubbletea program.
type TUIProgress struct {
	program *tea.Program
	done    chan struct{}
}

// StartTUI starts the progress TUI on stderr so reports on stdout stay clean.
// Call Finish when the batch completes.
func StartTUI(total int) *TUIProgress {
	p := &TUIProgress{
		program: tea.NewProgram(NewTUIModel(total), tea.WithOutput(os.Stderr), tea.WithInput(nil)),
		done:    make(chan struct{}),
	}
	go func() {
		defer close(p.done)
		_, _ = p.program.Run()
	}()
	return p
}

// Update implements the batch progress callback.
func (p *TUIProgress) Update(completed, total int, res model.FileResult) {
	p.program.Send(ProgressMsg{Completed: completed, Total: total, Result: res})
}

// Finish shows the completion message and waits for the program to exit.
func (p *TUIProgress) Finish() {
	p.program.Send(DoneMsg{})
	<-p.done
}
