package report

import (
	"fmt"
	"io"

	"github.com/gookit/color"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/wardenhq/warden/finding"
	"github.com/wardenhq/warden/pipeline"
)

var severityColor = map[finding.Severity]color.Color{
	finding.SeverityCritical: color.Magenta,
	finding.SeverityHigh:     color.Red,
	finding.SeverityMedium:   color.Yellow,
	finding.SeverityLow:      color.Cyan,
}

// WriteConsole renders the result for a terminal.
func WriteConsole(w io.Writer, result *pipeline.Result) {
	titler := cases.Title(language.English)

	fmt.Fprintf(w, "Run %s: %d file(s), %d finding(s)\n\n", result.RunID, result.Files, len(result.Findings))
	for _, f := range result.Findings {
		label := titler.String(string(f.Severity))
		fmt.Fprintf(w, "[%s] %s  %s\n", severityColor[f.Severity].Render(label), f.ID, f.Location)
		fmt.Fprintf(w, "    %s\n", f.Message)
		if f.Code != "" {
			fmt.Fprintf(w, "    > %s\n", f.Code)
		}
		if f.Confidence > 0 {
			fmt.Fprintf(w, "    confidence: %.2f", f.Confidence)
			if f.ReviewRequired {
				fmt.Fprint(w, "  (review required)")
			}
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w)
	}
}
