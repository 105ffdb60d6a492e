package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/dsablic/licensematch/internal/diff"
	"github.com/dsablic/licensematch/internal/model"
)

// diffContext is how many unchanged lines are kept around each change.
const diffContext = 2

// TextOptions controls WriteText.
type TextOptions struct {
	// Color renders diffs and labels with ANSI colors.
	Color bool
	// Summary appends totals; used for crawl reports.
	Summary bool
}

type styles struct {
	added   lipgloss.Style
	removed lipgloss.Style
	same    lipgloss.Style
	label   lipgloss.Style
	muted   lipgloss.Style
}

func plainStyles() styles {
	r := lipgloss.NewRenderer(io.Discard)
	r.SetColorProfile(termenv.Ascii)
	s := r.NewStyle()
	return styles{added: s, removed: s, same: s, label: s, muted: s}
}

func colorStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	r.SetColorProfile(termenv.ANSI256)
	return styles{
		added:   r.NewStyle().Foreground(lipgloss.Color("2")),
		removed: r.NewStyle().Foreground(lipgloss.Color("1")),
		same:    r.NewStyle().Foreground(lipgloss.Color("241")),
		label:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("205")),
		muted:   r.NewStyle().Foreground(lipgloss.Color("241")),
	}
}

// WriteText writes a human-readable report to w.
func WriteText(w io.Writer, report model.Report, opts TextOptions) error {
	st := plainStyles()
	if opts.Color {
		st = colorStyles(w)
	}

	for _, r := range report.Results {
		writeResult(w, r, report.Floor, st)
	}

	if opts.Summary {
		t := report.Totals
		fmt.Fprintln(w)
		if report.ProjectLicense != "" {
			fmt.Fprintf(w, "%s %s\n", st.label.Render("Project license:"), report.ProjectLicense)
		}
		fmt.Fprintf(w, "%s %d files, %d matched, %d unmatched, %d failed\n",
			st.label.Render("Summary:"), t.Files, t.Matched, t.Unmatched, t.Failed)
		for _, lc := range t.ByLicense {
			fmt.Fprintf(w, "  %-20s %d\n", lc.License, lc.Files)
		}
	}
	return nil
}

func writeResult(w io.Writer, r model.FileResult, floor float64, st styles) {
	switch {
	case r.Failed():
		fmt.Fprintf(w, "%s: %s %s\n", r.Path, st.removed.Render("error:"), r.Error)
		return
	case !r.Matched():
		fmt.Fprintf(w, "%s: %s\n", r.Path,
			st.muted.Render(fmt.Sprintf("no match (best score %.3f, floor %.2f)", r.Score, floor)))
	default:
		details := []string{r.Variant, fmt.Sprintf("score %.3f", r.Score)}
		if r.Range != nil {
			details = append(details, "lines "+r.Range.String())
		}
		fmt.Fprintf(w, "%s: %s (%s)\n", r.Path, st.label.Render(r.License), strings.Join(details, ", "))
	}

	if len(r.Aliases) > 0 {
		fmt.Fprintf(w, "  aliases: %s\n", strings.Join(r.Aliases, ", "))
	}
	if r.Language != "" {
		fmt.Fprintf(w, "  language: %s\n", r.Language)
	}
	if cc := r.Crosscheck; cc != nil {
		parts := make([]string, 0, len(cc.Matches))
		for _, m := range cc.Matches {
			parts = append(parts, fmt.Sprintf("%s %.1f%%", m.ID, m.Percent))
		}
		fmt.Fprintf(w, "  crosscheck: %s (coverage %.1f%%)\n", strings.Join(parts, ", "), cc.Percent)
	}
	if r.DiffStats != nil {
		if !r.DiffStats.Changed() {
			fmt.Fprintf(w, "  diff: identical to reference\n")
		} else {
			fmt.Fprintf(w, "  diff: %s\n", diffSummary(*r.DiffStats))
			writeDiffLines(w, r.Diff, st)
		}
	}
}

// WriteDiff writes records as a unified-style listing with long unchanged
// stretches collapsed.
func WriteDiff(w io.Writer, records []diff.Record, color bool) {
	st := plainStyles()
	if color {
		st = colorStyles(w)
	}
	writeDiffLines(w, records, st)
}

func writeDiffLines(w io.Writer, records []diff.Record, st styles) {
	keep := make([]bool, len(records))
	for i, r := range records {
		if r.Kind == diff.Same {
			continue
		}
		for j := max(0, i-diffContext); j <= min(len(records)-1, i+diffContext); j++ {
			keep[j] = true
		}
	}

	skipped := 0
	flush := func() {
		if skipped > 0 {
			fmt.Fprintln(w, st.muted.Render(fmt.Sprintf("  ... %d unchanged", skipped)))
			skipped = 0
		}
	}
	for i, r := range records {
		if !keep[i] {
			skipped++
			continue
		}
		flush()
		switch r.Kind {
		case diff.Added:
			fmt.Fprintln(w, st.added.Render("+ "+r.Line))
		case diff.Removed:
			fmt.Fprintln(w, st.removed.Render("- "+r.Line))
		default:
			fmt.Fprintln(w, st.same.Render("  "+r.Line))
		}
	}
	flush()
}
