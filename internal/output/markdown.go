// internal/output/markdown.go
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/dsablic/licensematch/internal/diff"
	"github.com/dsablic/licensematch/internal/model"
)

// WriteMarkdown writes the report as GitHub-flavored markdown to w.
func WriteMarkdown(w io.Writer, report model.Report) error {
	fmt.Fprintf(w, "# License Report\n\n")
	if report.Root != "" {
		fmt.Fprintf(w, "**Root:** %s\n", report.Root)
	}
	if report.Revision != "" {
		fmt.Fprintf(w, "**Revision:** %s\n", report.Revision)
	}
	if report.ProjectLicense != "" {
		fmt.Fprintf(w, "**Project license:** %s\n", report.ProjectLicense)
	}
	if report.Cache != "" {
		fmt.Fprintf(w, "**Cache:** %s\n", report.Cache)
	}
	fmt.Fprintf(w, "**Floor:** %.2f\n", report.Floor)
	fmt.Fprintf(w, "**Generated:** %s\n\n", report.GeneratedAt)

	// Summary totals
	fmt.Fprintf(w, "## Summary\n\n")
	fmt.Fprintf(w, "| Metric | Value |\n")
	fmt.Fprintf(w, "|--------|-------|\n")
	fmt.Fprintf(w, "| Files | %d |\n", report.Totals.Files)
	fmt.Fprintf(w, "| Matched | %d |\n", report.Totals.Matched)
	fmt.Fprintf(w, "| Unmatched | %d |\n", report.Totals.Unmatched)
	fmt.Fprintf(w, "| Failed | %d |\n\n", report.Totals.Failed)

	if len(report.Totals.ByLicense) > 0 {
		fmt.Fprintf(w, "## Licenses\n\n")
		fmt.Fprintf(w, "| License | Files |\n")
		fmt.Fprintf(w, "|---------|------:|\n")
		for _, lc := range report.Totals.ByLicense {
			fmt.Fprintf(w, "| %s | %d |\n", lc.License, lc.Files)
		}
		fmt.Fprintln(w)
	}

	// Per file
	fmt.Fprintf(w, "## Files\n\n")
	fmt.Fprintf(w, "| File | License | Variant | Score | Lines |\n")
	fmt.Fprintf(w, "|------|---------|---------|------:|-------|\n")
	for _, r := range report.Results {
		if r.Failed() {
			continue
		}
		fmt.Fprintf(w, "| %s | %s | %s | %.3f | %s |\n",
			cell(r.Path), orDash(r.License), orDash(r.Variant), r.Score, rangeText(r))
	}
	fmt.Fprintln(w)

	// Diffs
	for _, r := range report.Results {
		if len(r.Diff) == 0 {
			continue
		}
		fmt.Fprintf(w, "### %s\n\n", r.Path)
		fmt.Fprintf(w, "```diff\n")
		writeDiffLines(w, r.Diff, plainStyles())
		fmt.Fprintf(w, "```\n\n")
	}

	// Errors
	var failed []model.FileResult
	for _, r := range report.Results {
		if r.Failed() {
			failed = append(failed, r)
		}
	}
	if len(failed) > 0 {
		fmt.Fprintf(w, "## Errors\n\n")
		for _, r := range failed {
			fmt.Fprintf(w, "- **%s**: %s\n", r.Path, r.Error)
		}
		fmt.Fprintln(w)
	}

	return nil
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}

func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func rangeText(r model.FileResult) string {
	if r.Range == nil {
		return "—"
	}
	return r.Range.String()
}

// diffSummary renders counts like "+1 -1".
func diffSummary(s diff.Stats) string {
	return fmt.Sprintf("+%d -%d", s.Added, s.Removed)
}
