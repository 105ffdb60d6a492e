// internal/output/json.go
package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dsablic/licensematch/internal/config"
	"github.com/dsablic/licensematch/internal/model"
)

// Write renders report in the named format: text, json, or markdown.
func Write(w io.Writer, report model.Report, format string, opts TextOptions) error {
	switch format {
	case config.FormatJSON:
		return WriteJSON(w, report)
	case config.FormatMarkdown:
		return WriteMarkdown(w, report)
	case config.FormatText, "":
		return WriteText(w, report, opts)
	}
	return fmt.Errorf("write report: %w", config.ValidateFormat(format))
}

// WriteJSON writes the report as pretty-printed JSON to w. License texts are
// full of <email> and & so HTML escaping is off.
func WriteJSON(w io.Writer, report model.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}
