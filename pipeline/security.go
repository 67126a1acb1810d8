package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/lib/pq"

	"github.com/wardenhq/warden/finding"
	"github.com/wardenhq/warden/taint"
)

// severityFor maps a sink type to the severity of an unsanitized flow into
// it. Code execution outranks everything; injection into SQL or a shell is
// high; content and path issues are medium.
var severityFor = map[taint.SinkType]finding.Severity{
	taint.CodeExecution: finding.SeverityCritical,
	taint.SQLValue:      finding.SeverityHigh,
	taint.CMDArgument:   finding.SeverityHigh,
	taint.HTMLContent:   finding.SeverityMedium,
	taint.FilePath:      finding.SeverityMedium,
}

// SecurityFrame runs the taint engine and renders its paths as findings.
type SecurityFrame struct {
	analyzer *taint.Analyzer
	log      hclog.Logger
}

// NewSecurityFrame wraps an analyzer. log may be nil.
func NewSecurityFrame(analyzer *taint.Analyzer, log hclog.Logger) *SecurityFrame {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &SecurityFrame{analyzer: analyzer, log: log}
}

func (f *SecurityFrame) Name() string { return "security" }

func (f *SecurityFrame) Execute(ctx context.Context, file *CodeFile) (*FrameResult, error) {
	paths := f.analyzer.AnalyzeFile(file.Tree)
	lines := strings.Split(file.Content, "\n")

	findings := make([]finding.Finding, 0, len(paths))
	for _, p := range paths {
		if p.Sanitized() {
			continue
		}
		findings = append(findings, taintFinding(p, file, lines))
	}
	return &FrameResult{Frame: f.Name(), Findings: findings}, nil
}

func taintFinding(p taint.Path, file *CodeFile, lines []string) finding.Finding {
	severity, ok := severityFor[p.Sink.Type]
	if !ok {
		severity = finding.SeverityMedium
	}
	code := ""
	if p.Sink.Line >= 1 && p.Sink.Line <= len(lines) {
		code = strings.TrimSpace(lines[p.Sink.Line-1])
	}
	return finding.Finding{
		ID:         taintFindingID(p.Sink.Type),
		Severity:   severity,
		Message:    fmt.Sprintf("untrusted data from %s reaches %s without sanitization", p.Source.Name, p.Sink.Name),
		Location:   fmt.Sprintf("%s:%d", file.Path, p.Sink.Line),
		Detail:     taintDetail(p),
		Line:       p.Sink.Line,
		IsBlocker:  severity == finding.SeverityCritical,
		Code:       code,
		Confidence: p.Confidence,
		Metadata: map[string]string{
			"sink_type":   string(p.Sink.Type),
			"source_line": fmt.Sprintf("%d", p.Source.Line),
		},
	}
}

func taintFindingID(t taint.SinkType) string {
	return "TAINT-" + strings.ToUpper(string(t))
}

// taintDetail narrates the flow and appends a per-sink-type remediation hint.
func taintDetail(p taint.Path) string {
	var b strings.Builder
	fmt.Fprintf(&b, "flow: %s (line %d) -> %s (line %d)", p.Source.Name, p.Source.Line, p.Sink.Name, p.Sink.Line)
	if len(p.Transformations) > 0 {
		fmt.Fprintf(&b, " via %s", strings.Join(p.Transformations, ", "))
	}
	if len(p.Sanitizers) > 0 {
		fmt.Fprintf(&b, "; sanitizers seen: %s", strings.Join(p.Sanitizers, ", "))
	}
	switch p.Sink.Type {
	case taint.SQLValue:
		fmt.Fprintf(&b, ". Use parameterized queries; interpolating %s yields e.g. %s in the statement text.",
			p.Source.Name, pq.QuoteLiteral("<"+p.Source.Name+">"))
	case taint.CMDArgument:
		b.WriteString(". Pass arguments as a list instead of building a shell string.")
	case taint.CodeExecution:
		b.WriteString(". Do not evaluate untrusted input; parse it instead.")
	case taint.HTMLContent:
		b.WriteString(". Escape for the HTML context before rendering.")
	case taint.FilePath:
		b.WriteString(". Resolve against a base directory and reject traversal.")
	}
	return b.String()
}
