package race

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/wardenhq/warden/finding"
	"github.com/wardenhq/warden/internal/jsonx"
	"github.com/wardenhq/warden/llm"
)

// Verdict values the adjudicator recognizes. Anything else a model answers
// is normalized to VerdictUnclear.
const (
	VerdictAsyncRace = "async_race"
	VerdictSafe      = "safe"
	VerdictUnclear   = "unclear"
)

// Verdict is the adjudicator's answer for one candidate.
type Verdict struct {
	Verdict    string  `json:"verdict"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

const (
	// confidenceThreshold is the minimum confidence an async_race verdict
	// needs before a finding is emitted.
	confidenceThreshold = 0.5
	// maxConcurrentAdjudications bounds in-flight LLM calls per file.
	maxConcurrentAdjudications = 4
	// rawResponseCap truncates model output quoted in diagnostics.
	rawResponseCap = 200
)

const adjudicationSystemPrompt = `You are a concurrency reviewer. Given a code snippet around a parallel task launch, decide whether the concurrently launched tasks can mutate shared state without synchronization. Respond with strict JSON only, no prose: {"verdict": "async_race"|"safe"|"unclear", "confidence": <0..1>, "reasoning": "<short>"}`

// Adjudicator resolves candidates through an LLM client. A nil client is a
// valid configuration: every candidate then resolves to unclear and the frame
// reports no concurrency findings.
type Adjudicator struct {
	client llm.Client
	log    hclog.Logger
}

// NewAdjudicator builds an adjudicator. log may be nil.
func NewAdjudicator(client llm.Client, log hclog.Logger) *Adjudicator {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Adjudicator{client: client, log: log}
}

// Adjudicate resolves one candidate. It never returns an error: every
// failure path collapses to an unclear verdict with zero confidence so the
// caller can apply its threshold uniformly.
func (a *Adjudicator) Adjudicate(ctx context.Context, c Candidate) Verdict {
	if a.client == nil {
		return Verdict{Verdict: VerdictUnclear, Confidence: 0, Reasoning: "no LLM capability configured"}
	}

	resp, err := a.client.Send(ctx, llm.Request{
		SystemPrompt: adjudicationSystemPrompt,
		UserMessage:  adjudicationPrompt(c),
		Temperature:  0,
		MaxTokens:    512,
	})
	if err != nil || !resp.Success {
		reason := "LLM request failed"
		if err != nil {
			reason = fmt.Sprintf("LLM request failed: %v", err)
		} else if resp.ErrorMessage != "" {
			reason = fmt.Sprintf("LLM request failed: %s", resp.ErrorMessage)
		}
		a.log.Warn("race_adjudication_failed", "func", c.FuncName, "reason", reason)
		return Verdict{Verdict: VerdictUnclear, Confidence: 0, Reasoning: reason}
	}

	return parseVerdict(resp.Content)
}

// adjudicationPrompt renders the deterministic per-candidate prompt.
func adjudicationPrompt(c Candidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Function: %s\n", c.FuncName)
	fmt.Fprintf(&b, "Parallel launch at line %d.\n", c.GatherLine)
	if len(c.SharedVars) > 0 {
		fmt.Fprintf(&b, "Suspected shared variables: %s\n", strings.Join(c.SharedVars, ", "))
	} else {
		b.WriteString("Suspected shared variables: none detected\n")
	}
	fmt.Fprintf(&b, "Lock detected in function: %v\n\n", c.HasLock)
	b.WriteString("Code:\n")
	b.WriteString(c.Snippet)
	return b.String()
}

// parseVerdict extracts and normalizes a Verdict from raw model output.
func parseVerdict(raw string) Verdict {
	obj, err := jsonx.ExtractObject(raw)
	if err == nil {
		err = jsonx.ValidateVerdict(obj)
	}
	if err != nil {
		return Verdict{
			Verdict:    VerdictUnclear,
			Confidence: 0,
			Reasoning:  fmt.Sprintf("unparseable verdict: %s", truncate(raw, rawResponseCap)),
		}
	}

	var v Verdict
	if err := jsonx.DecodeObject(obj, &v); err != nil {
		return Verdict{
			Verdict:    VerdictUnclear,
			Confidence: 0,
			Reasoning:  fmt.Sprintf("unparseable verdict: %s", truncate(raw, rawResponseCap)),
		}
	}

	switch v.Verdict {
	case VerdictAsyncRace, VerdictSafe, VerdictUnclear:
	default:
		v.Verdict = VerdictUnclear
	}
	if v.Confidence < 0 {
		v.Confidence = 0
	}
	if v.Confidence > 1 {
		v.Confidence = 1
	}
	return v
}

// FindingsForFile adjudicates the candidates of one file and returns the
// resulting findings ordered by gather line. Lock-protected candidates are
// never sent to the LLM. Verdicts for independent candidates are requested
// concurrently; the output order is fixed by source position, not completion.
func (a *Adjudicator) FindingsForFile(ctx context.Context, candidates []Candidate) []finding.Finding {
	open := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.HasLock {
			a.log.Debug("race_candidate_suppressed_by_lock", "func", c.FuncName, "line", c.GatherLine)
			continue
		}
		open = append(open, c)
	}
	if len(open) == 0 {
		return nil
	}

	verdicts := make([]Verdict, len(open))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentAdjudications)
	for i, c := range open {
		g.Go(func() error {
			verdicts[i] = a.Adjudicate(gctx, c)
			return nil
		})
	}
	g.Wait() //nolint:errcheck // workers never return errors

	var findings []finding.Finding
	for i, c := range open {
		v := verdicts[i]
		if v.Verdict != VerdictAsyncRace || v.Confidence < confidenceThreshold {
			continue
		}
		findings = append(findings, buildFinding(c, v))
	}
	sort.SliceStable(findings, func(i, j int) bool { return findings[i].Line < findings[j].Line })
	return findings
}

func buildFinding(c Candidate, v Verdict) finding.Finding {
	return finding.Finding{
		ID:         raceFindingID(c.FuncName),
		Severity:   finding.SeverityHigh,
		Message:    fmt.Sprintf("potential race condition in %s: concurrent tasks may mutate shared state without a lock", c.FuncName),
		Location:   fmt.Sprintf("%s:%d", c.FilePath, c.GatherLine),
		Detail:     v.Reasoning,
		Line:       c.GatherLine,
		IsBlocker:  false,
		Code:       c.Snippet,
		Confidence: v.Confidence,
		Metadata: map[string]string{
			"shared_vars": strings.Join(c.SharedVars, ","),
		},
	}
}

// raceFindingID derives the stable finding id for a function name, e.g.
// run_frames -> CONTRACT-ASYNC-RACE-RUN-FRAMES.
func raceFindingID(funcName string) string {
	name := strings.ToUpper(strings.ReplaceAll(funcName, "_", "-"))
	return "CONTRACT-ASYNC-RACE-" + name
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
