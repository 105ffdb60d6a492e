// internal/output/output_test.go
package output_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/dsablic/licensematch/internal/config"
	"github.com/dsablic/licensematch/internal/diff"
	"github.com/dsablic/licensematch/internal/model"
	"github.com/dsablic/licensematch/internal/output"
	"github.com/dsablic/licensematch/internal/text"
)

func sampleReport() model.Report {
	results := []model.FileResult{
		{
			Path:    "LICENSE",
			License: "MIT",
			Aliases: []string{"Expat", "MIT-Expat"},
			Variant: "original",
			Score:   1,
		},
		{
			Path:      "src/server.go",
			License:   "Apache-2.0",
			Variant:   "header",
			Score:     0.93,
			Range:     &text.LineRange{Start: 0, End: 10},
			Diff:      sampleDiff(),
			DiffStats: &diff.Stats{Same: 12, Added: 1, Removed: 1},
			Language:  "Go",
		},
		{Path: "README.md", Score: 0.12},
		{Path: "data|odd.txt", Error: "data|odd.txt: not valid UTF-8 text"},
	}
	return model.Report{
		GeneratedAt:    "2026-02-18T12:00:00Z",
		Root:           "/src/project",
		Revision:       "4b825dc642cb6eb9a060e54bf8d69288fbee4904",
		ProjectLicense: "MIT",
		Floor:          0.8,
		Results:        results,
		Totals:         model.Summarize(results),
	}
}

func sampleDiff() []diff.Record {
	var records []diff.Record
	for i := 0; i < 6; i++ {
		records = append(records, diff.Record{Line: "unchanged before " + string(rune('a'+i)), Kind: diff.Same})
	}
	records = append(records,
		diff.Record{Line: "distributed under the license is distributed on an as is basis", Kind: diff.Removed},
		diff.Record{Line: "distributed under the license is provided as is", Kind: diff.Added},
	)
	for i := 0; i < 6; i++ {
		records = append(records, diff.Record{Line: "unchanged after " + string(rune('a'+i)), Kind: diff.Same})
	}
	return records
}

func TestWriteJSON(t *testing.T) {
	report := sampleReport()
	var buf bytes.Buffer
	if err := output.WriteJSON(&buf, report); err != nil {
		t.Fatalf("failed to write JSON: %v", err)
	}

	var decoded model.Report
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Totals.Matched != 2 {
		t.Errorf("expected 2 matched, got %d", decoded.Totals.Matched)
	}
	if len(decoded.Results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(decoded.Results))
	}
	if decoded.Results[1].Diff[6].Kind != diff.Removed {
		t.Errorf("expected removed record, got %+v", decoded.Results[1].Diff[6])
	}
	if !strings.Contains(buf.String(), `"kind": "added"`) {
		t.Error("diff kinds should serialize as words")
	}
}

func TestWriteMarkdown(t *testing.T) {
	report := sampleReport()
	var buf bytes.Buffer
	if err := output.WriteMarkdown(&buf, report); err != nil {
		t.Fatalf("failed to write markdown: %v", err)
	}

	md := buf.String()
	if !strings.Contains(md, "**Revision:** 4b825dc642cb6eb9a060e54bf8d69288fbee4904") {
		t.Error("markdown should contain the revision")
	}
	if !strings.Contains(md, "**Project license:** MIT") {
		t.Error("markdown should contain the project license")
	}
	if !strings.Contains(md, "| src/server.go | Apache-2.0 | header | 0.930 | 1-11 |") {
		t.Error("markdown should contain the server.go row")
	}
	if !strings.Contains(md, "| README.md | \u2014 | \u2014 | 0.120 | \u2014 |") {
		t.Error("markdown should contain em-dashes for the unmatched file")
	}
	if !strings.Contains(md, "```diff\n") {
		t.Error("markdown should contain a diff block")
	}
	if !strings.Contains(md, "- distributed under the license is distributed on an as is basis") {
		t.Error("markdown diff should contain the removed line")
	}
	if !strings.Contains(md, "## Errors") || !strings.Contains(md, "**data|odd.txt**") {
		t.Error("markdown should list failed inputs under Errors")
	}
	if strings.Contains(md, "| data") {
		t.Error("failed inputs should not appear in the files table")
	}
}

func TestWriteText(t *testing.T) {
	report := sampleReport()
	var buf bytes.Buffer
	if err := output.WriteText(&buf, report, output.TextOptions{Summary: true}); err != nil {
		t.Fatalf("failed to write text: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"LICENSE: MIT (original, score 1.000)\n",
		"  aliases: Expat, MIT-Expat\n",
		"src/server.go: Apache-2.0 (header, score 0.930, lines 1-11)\n",
		"  language: Go\n",
		"  diff: +1 -1\n",
		"- distributed under the license is distributed on an as is basis\n",
		"+ distributed under the license is provided as is\n",
		"README.md: no match (best score 0.120, floor 0.80)\n",
		"data|odd.txt: error: ",
		"Project license: MIT\n",
		"Summary: 4 files, 2 matched, 1 unmatched, 1 failed\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Error("plain output should not contain ANSI escapes")
	}
}

func TestWriteTextWithoutSummary(t *testing.T) {
	report := sampleReport()
	report.Results = report.Results[:1]
	var buf bytes.Buffer
	if err := output.WriteText(&buf, report, output.TextOptions{}); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "Summary:") {
		t.Error("summary should be omitted")
	}
}

func TestWriteDiffCollapsesUnchangedLines(t *testing.T) {
	var buf bytes.Buffer
	output.WriteDiff(&buf, sampleDiff(), false)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	want := []string{
		"  ... 4 unchanged",
		"  unchanged before e",
		"  unchanged before f",
		"- distributed under the license is distributed on an as is basis",
		"+ distributed under the license is provided as is",
		"  unchanged after a",
		"  unchanged after b",
		"  ... 4 unchanged",
	}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %d:\n%s", len(want), len(lines), buf.String())
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d: expected %q, got %q", i, want[i], lines[i])
		}
	}
}

func TestWriteDiffColor(t *testing.T) {
	var buf bytes.Buffer
	output.WriteDiff(&buf, sampleDiff(), true)
	if !strings.Contains(buf.String(), "\x1b[") {
		t.Error("colored diff should contain ANSI escapes")
	}
}

func TestWriteTextIdenticalDiff(t *testing.T) {
	report := model.Report{Results: []model.FileResult{{
		Path: "LICENSE", License: "ISC", Variant: "original", Score: 1,
		Diff:      []diff.Record{{Line: "isc license", Kind: diff.Same}},
		DiffStats: &diff.Stats{Same: 1},
	}}}
	var buf bytes.Buffer
	if err := output.WriteText(&buf, report, output.TextOptions{}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "diff: identical to reference") {
		t.Errorf("expected identical note, got %q", buf.String())
	}
}

func TestWriteJSONKeepsAngleBrackets(t *testing.T) {
	report := model.Report{Results: []model.FileResult{{Path: "<stdin>", Error: "a & b"}}}
	var buf bytes.Buffer
	if err := output.WriteJSON(&buf, report); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"path": "<stdin>"`) || !strings.Contains(buf.String(), `"a & b"`) {
		t.Errorf("expected unescaped output, got %s", buf.String())
	}
}

func TestWriteDispatchesOnFormat(t *testing.T) {
	report := sampleReport()
	for format, marker := range map[string]string{
		config.FormatText:     "Summary: 4 files",
		config.FormatJSON:     `"totals": {`,
		config.FormatMarkdown: "# License Report",
	} {
		var buf bytes.Buffer
		if err := output.Write(&buf, report, format, output.TextOptions{Summary: true}); err != nil {
			t.Fatalf("%s: %v", format, err)
		}
		if !strings.Contains(buf.String(), marker) {
			t.Errorf("%s output missing %q", format, marker)
		}
	}

	var buf bytes.Buffer
	err := output.Write(&buf, report, "yaml", output.TextOptions{})
	if !errors.Is(err, config.ErrInvalid) {
		t.Errorf("expected invalid configuration error, got %v", err)
	}
}
