// Package verify filters raw findings into true/false positives through a
// three-stage pipeline: syntactic heuristics, verdict cache, batched LLM
// verification. The pipeline fails open: when verification itself fails,
// findings are kept and flagged for review, never silently dropped.
package verify

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/wardenhq/warden/finding"
	"github.com/wardenhq/warden/internal/cache"
	"github.com/wardenhq/warden/internal/jsonx"
	"github.com/wardenhq/warden/llm"
)

const (
	defaultBatchSize = 10
	// tokenBudget caps the estimated prompt size of one batch.
	tokenBudget = 6000
	// tokensPerWord is the crude prompt-size estimator. Overestimating is
	// fine; it only splits batches earlier.
	tokensPerWord = 1.5
	// failOpenConfidence is attached to findings kept because their batch
	// could not be verified.
	failOpenConfidence = 0.5
	// bytesPerBatchUnit: one batch slot per this much available memory when
	// sharing the machine with a local model.
	bytesPerBatchUnit = 2 << 30
	cpuLoadCeiling    = 80.0
)

const verificationSystemPrompt = `You are a static-analysis triage assistant. For each numbered finding decide whether it is a true positive. Respond with strict JSON only: a JSON array of objects {"index": <int>, "true_positive": <bool>, "confidence": <0..1>, "reason": "<short>"}. Include every index exactly once.`

// Verdict is the per-finding verification outcome. Only successfully parsed
// verdicts reach the cache; fail-open verdicts (ReviewRequired set) are
// never cached so the next run retries verification.
type Verdict struct {
	TruePositive   bool    `json:"true_positive"`
	Confidence     float64 `json:"confidence"`
	Reason         string  `json:"reason"`
	ReviewRequired bool    `json:"review_required,omitempty"`
}

type batchItem struct {
	Index        int     `json:"index"`
	TruePositive bool    `json:"true_positive"`
	Confidence   float64 `json:"confidence"`
	Reason       string  `json:"reason"`
}

// Service is the verification pipeline. A nil client disables stage three:
// heuristics and cache still apply, uncached findings pass through unchanged.
type Service struct {
	client    llm.Client
	store     cache.Store
	probe     ResourceProbe
	log       hclog.Logger
	batchSize int
}

// NewService assembles a pipeline. store and probe may be nil (no caching /
// no adaptive sizing); log may be nil; batchSize <= 0 selects the default.
func NewService(client llm.Client, store cache.Store, probe ResourceProbe, log hclog.Logger, batchSize int) *Service {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Service{client: client, store: store, probe: probe, log: log, batchSize: batchSize}
}

// indexed pairs a finding with its position in the Verify input so the
// output can be restored to input order after batching.
type indexed struct {
	pos int
	f   finding.Finding
}

// Verify runs the pipeline and returns the surviving findings in the input's
// relative order. Survivors carry Confidence, VerificationSource and, for
// fail-open cases, ReviewRequired.
func (s *Service) Verify(ctx context.Context, findings []finding.Finding) []finding.Finding {
	var accepted []indexed
	var pending []indexed

	// Stage 1: heuristics and linter short-circuit.
	for i, f := range findings {
		if isLinterSourced(f) {
			f.Confidence = 1.0
			f.VerificationSource = "linter"
			accepted = append(accepted, indexed{i, f})
			continue
		}
		if reason := rejectReason(f); reason != "" {
			s.log.Debug("finding_rejected_by_heuristic", "id", f.ID, "location", f.Location, "reason", reason)
			continue
		}
		pending = append(pending, indexed{i, f})
	}

	// Stage 2: cache.
	var misses []indexed
	for _, item := range pending {
		v, ok := s.cachedVerdict(item.f)
		if !ok {
			misses = append(misses, item)
			continue
		}
		if v.TruePositive {
			f := item.f
			f.Confidence = v.Confidence
			f.VerificationSource = "cache"
			accepted = append(accepted, indexed{item.pos, f})
		}
	}

	// Stage 3: batched LLM verification.
	if len(misses) > 0 {
		if s.client == nil {
			for _, item := range misses {
				f := item.f
				f.VerificationSource = "skipped"
				accepted = append(accepted, indexed{item.pos, f})
			}
		} else {
			for _, batch := range s.partition(misses) {
				fs := make([]finding.Finding, len(batch))
				for i, item := range batch {
					fs[i] = item.f
				}
				verdicts := s.verifyBatch(ctx, fs)
				for i, item := range batch {
					v := verdicts[i]
					if !v.TruePositive {
						s.log.Debug("finding_rejected_by_llm", "id", item.f.ID, "location", item.f.Location, "reason", v.Reason)
						continue
					}
					f := item.f
					f.Confidence = v.Confidence
					f.VerificationSource = "llm"
					f.ReviewRequired = v.ReviewRequired
					accepted = append(accepted, indexed{item.pos, f})
				}
			}
		}
	}

	sort.Slice(accepted, func(i, j int) bool { return accepted[i].pos < accepted[j].pos })
	out := make([]finding.Finding, len(accepted))
	for i, item := range accepted {
		out[i] = item.f
	}
	s.log.Info("verification_complete", "input", len(findings), "accepted", len(out))
	return out
}

func (s *Service) cachedVerdict(f finding.Finding) (Verdict, bool) {
	if s.store == nil {
		return Verdict{}, false
	}
	raw, ok := s.store.Get(verdictKey(f))
	if !ok {
		return Verdict{}, false
	}
	v, ok := raw.(Verdict)
	return v, ok
}

func verdictKey(f finding.Finding) string {
	return cache.Key(f.ID, f.Code, f.Location)
}

// partition splits cache misses into batches bounded by both the batch size
// and the token budget. The size bound shrinks when a local model shares the
// machine.
func (s *Service) partition(items []indexed) [][]indexed {
	size := s.batchSize
	if s.client != nil && s.client.Local() {
		size = s.adaptiveBatchSize()
	}

	var batches [][]indexed
	var current []indexed
	tokens := 0
	for _, item := range items {
		cost := estimateTokens(item.f)
		if len(current) > 0 && (len(current) >= size || tokens+cost > tokenBudget) {
			batches = append(batches, current)
			current = nil
			tokens = 0
		}
		current = append(current, item)
		tokens += cost
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}

// adaptiveBatchSize shrinks the batch when the machine is under pressure:
// one slot per 2 GiB available, halved by core count, collapsed to serial
// under CPU saturation. Probe failure means we know nothing, so serial.
func (s *Service) adaptiveBatchSize() int {
	if s.probe == nil {
		return s.batchSize
	}
	avail, err := s.probe.AvailableMemory()
	if err != nil {
		s.log.Warn("resource_probe_failed", "error", err)
		return 1
	}
	load, err := s.probe.CPULoad()
	if err != nil {
		s.log.Warn("resource_probe_failed", "error", err)
		return 1
	}
	if load > cpuLoadCeiling {
		return 1
	}
	size := int(avail / bytesPerBatchUnit)
	if half := s.probe.Cores() / 2; half < size {
		size = half
	}
	if size > s.batchSize {
		size = s.batchSize
	}
	if size < 1 {
		size = 1
	}
	return size
}

func estimateTokens(f finding.Finding) int {
	words := len(strings.Fields(f.Message)) + len(strings.Fields(f.Code))
	return int(float64(words) * tokensPerWord)
}

// verifyBatch sends one LLM call for a batch and returns one verdict per
// input, positionally aligned. Any failure — transport, parse, schema, or a
// missing index in the reply — resolves the affected findings to the
// fail-open verdict.
func (s *Service) verifyBatch(ctx context.Context, fs []finding.Finding) []Verdict {
	resp, err := s.client.Send(ctx, llm.Request{
		SystemPrompt: verificationSystemPrompt,
		UserMessage:  batchPrompt(fs),
		Temperature:  0,
		MaxTokens:    1024,
	})

	var parsed map[int]batchItem
	switch {
	case err != nil:
		s.log.Warn("batch_verification_failed", "size", len(fs), "error", err)
	case !resp.Success:
		s.log.Warn("batch_verification_failed", "size", len(fs), "error", resp.ErrorMessage)
	default:
		parsed = parseBatchVerdicts(resp.Content)
		if parsed == nil {
			s.log.Warn("batch_verification_unparseable", "size", len(fs))
		}
	}

	verdicts := make([]Verdict, len(fs))
	for i := range fs {
		item, ok := parsed[i]
		if !ok {
			verdicts[i] = Verdict{
				TruePositive:   true,
				Confidence:     failOpenConfidence,
				Reason:         "verification failed, kept for manual review",
				ReviewRequired: true,
			}
			continue
		}
		conf := item.Confidence
		if conf < 0 {
			conf = 0
		}
		if conf > 1 {
			conf = 1
		}
		verdicts[i] = Verdict{TruePositive: item.TruePositive, Confidence: conf, Reason: item.Reason}
		if s.store != nil {
			s.store.Set(verdictKey(fs[i]), verdicts[i])
		}
	}
	return verdicts
}

func batchPrompt(fs []finding.Finding) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Findings to triage (%d):\n\n", len(fs))
	for i, f := range fs {
		fmt.Fprintf(&b, "[%d] %s at %s (severity %s)\n", i, f.Message, f.Location, f.Severity)
		if f.Code != "" {
			fmt.Fprintf(&b, "    code: %s\n", f.Code)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func parseBatchVerdicts(raw string) map[int]batchItem {
	arr, err := jsonx.ExtractArray(raw)
	if err != nil {
		return nil
	}
	if err := jsonx.ValidateVerdictList(arr); err != nil {
		return nil
	}
	var items []batchItem
	if err := jsonx.DecodeArray(arr, &items); err != nil {
		return nil
	}
	out := make(map[int]batchItem, len(items))
	for _, item := range items {
		out[item.Index] = item
	}
	return out
}
