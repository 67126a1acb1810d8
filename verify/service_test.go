package verify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardenhq/warden/finding"
	"github.com/wardenhq/warden/internal/cache"
	"github.com/wardenhq/warden/llm"
)

// scriptedClient replies with a fixed payload and counts calls.
type scriptedClient struct {
	calls   atomic.Int64
	reply   func(req llm.Request) (*llm.Response, error)
	isLocal bool
}

func (s *scriptedClient) Send(_ context.Context, req llm.Request) (*llm.Response, error) {
	s.calls.Add(1)
	return s.reply(req)
}

func (s *scriptedClient) Name() string { return "scripted" }
func (s *scriptedClient) Local() bool  { return s.isLocal }

func replyJSON(content string) func(llm.Request) (*llm.Response, error) {
	return func(llm.Request) (*llm.Response, error) {
		return &llm.Response{Content: content, Success: true}, nil
	}
}

type fakeProbe struct {
	mem    uint64
	cpu    float64
	cores  int
	memErr error
	cpuErr error
}

func (f fakeProbe) AvailableMemory() (uint64, error) { return f.mem, f.memErr }
func (f fakeProbe) CPULoad() (float64, error)        { return f.cpu, f.cpuErr }
func (f fakeProbe) Cores() int                       { return f.cores }

func mkFinding(id string, line int) finding.Finding {
	return finding.Finding{
		ID:       id,
		Severity: finding.SeverityHigh,
		Message:  "untrusted data reaches cursor.execute",
		Location: fmt.Sprintf("app.py:%d", line),
		Line:     line,
		Code:     `cursor.execute(f"SELECT * FROM t WHERE id = {uid}")`,
	}
}

func allTruePositive(n int) string {
	var parts []string
	for i := 0; i < n; i++ {
		parts = append(parts, fmt.Sprintf(`{"index": %d, "true_positive": true, "confidence": 0.9, "reason": "real"}`, i))
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func TestLinterFindingsSkipLLM(t *testing.T) {
	t.Parallel()
	client := &scriptedClient{reply: replyJSON("[]")}
	svc := NewService(client, cache.NewMemory(), nil, nil, 0)

	f := mkFinding("TAINT-SQL-VALUE", 3)
	f.Metadata = map[string]string{"source": "linter"}

	out := svc.Verify(context.Background(), []finding.Finding{f})
	require.Len(t, out, 1)
	assert.Equal(t, 1.0, out[0].Confidence)
	assert.Equal(t, "linter", out[0].VerificationSource)
	assert.EqualValues(t, 0, client.calls.Load())
}

func TestHeuristicRejectionCostsNothing(t *testing.T) {
	t.Parallel()
	client := &scriptedClient{reply: replyJSON("[]")}
	svc := NewService(client, cache.NewMemory(), nil, nil, 0)

	comment := mkFinding("TAINT-SQL-VALUE", 3)
	comment.Code = `# cursor.execute(f"SELECT {uid}")`

	out := svc.Verify(context.Background(), []finding.Finding{comment})
	assert.Empty(t, out)
	assert.EqualValues(t, 0, client.calls.Load())
}

func TestVerificationIdempotentWithWarmCache(t *testing.T) {
	t.Parallel()
	client := &scriptedClient{reply: replyJSON(allTruePositive(2))}
	store := cache.NewMemory()
	svc := NewService(client, store, nil, nil, 0)

	in := []finding.Finding{mkFinding("TAINT-SQL-VALUE", 3), mkFinding("TAINT-CMD-ARGUMENT", 9)}

	first := svc.Verify(context.Background(), in)
	require.Len(t, first, 2)
	assert.EqualValues(t, 1, client.calls.Load())

	second := svc.Verify(context.Background(), in)
	require.Len(t, second, 2)
	assert.EqualValues(t, 1, client.calls.Load(), "warm cache must not re-invoke the LLM")
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Equal(t, first[i].Confidence, second[i].Confidence)
		assert.Equal(t, "cache", second[i].VerificationSource)
	}
}

func TestFalsePositivesDropped(t *testing.T) {
	t.Parallel()
	client := &scriptedClient{reply: replyJSON(
		`[{"index": 0, "true_positive": false, "confidence": 0.95, "reason": "test fixture"},
		  {"index": 1, "true_positive": true, "confidence": 0.8, "reason": "real"}]`)}
	svc := NewService(client, cache.NewMemory(), nil, nil, 0)

	out := svc.Verify(context.Background(), []finding.Finding{
		mkFinding("TAINT-SQL-VALUE", 3),
		mkFinding("TAINT-CMD-ARGUMENT", 9),
	})
	require.Len(t, out, 1)
	assert.Equal(t, "TAINT-CMD-ARGUMENT", out[0].ID)
	assert.Equal(t, 0.8, out[0].Confidence)
}

func TestFailOpenOnTransportError(t *testing.T) {
	t.Parallel()
	client := &scriptedClient{reply: func(llm.Request) (*llm.Response, error) {
		return nil, errors.New("connection refused")
	}}
	svc := NewService(client, cache.NewMemory(), nil, nil, 0)

	in := []finding.Finding{mkFinding("TAINT-SQL-VALUE", 3), mkFinding("TAINT-CMD-ARGUMENT", 9)}
	out := svc.Verify(context.Background(), in)

	require.Len(t, out, len(in), "fail-open must keep every finding")
	for _, f := range out {
		assert.True(t, f.ReviewRequired, "%s must be flagged for review", f.ID)
		assert.Equal(t, failOpenConfidence, f.Confidence)
	}

	// Failures are not cached; a second run retries.
	svc.Verify(context.Background(), in)
	assert.EqualValues(t, 2, client.calls.Load())
}

func TestFailOpenOnUnparseableReply(t *testing.T) {
	t.Parallel()
	client := &scriptedClient{reply: replyJSON("these all look fine to me")}
	svc := NewService(client, cache.NewMemory(), nil, nil, 0)

	out := svc.Verify(context.Background(), []finding.Finding{mkFinding("TAINT-SQL-VALUE", 3)})
	require.Len(t, out, 1)
	assert.True(t, out[0].ReviewRequired)
}

func TestMissingIndexFailsOpenForThatFinding(t *testing.T) {
	t.Parallel()
	client := &scriptedClient{reply: replyJSON(
		`[{"index": 0, "true_positive": true, "confidence": 0.9, "reason": "real"}]`)}
	svc := NewService(client, cache.NewMemory(), nil, nil, 0)

	out := svc.Verify(context.Background(), []finding.Finding{
		mkFinding("TAINT-SQL-VALUE", 3),
		mkFinding("TAINT-CMD-ARGUMENT", 9),
	})
	require.Len(t, out, 2)
	assert.False(t, out[0].ReviewRequired)
	assert.True(t, out[1].ReviewRequired, "unanswered finding must fail open")
}

func TestNilClientPassesThrough(t *testing.T) {
	t.Parallel()
	svc := NewService(nil, cache.NewMemory(), nil, nil, 0)
	out := svc.Verify(context.Background(), []finding.Finding{mkFinding("TAINT-SQL-VALUE", 3)})
	require.Len(t, out, 1)
	assert.Equal(t, "skipped", out[0].VerificationSource)
}

func TestAdaptiveBatchSize(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name  string
		probe fakeProbe
		want  int
	}{
		{"plenty_of_headroom", fakeProbe{mem: 32 << 30, cpu: 10, cores: 16}, 8},
		{"memory_bound", fakeProbe{mem: 4 << 30, cpu: 10, cores: 16}, 2},
		{"cpu_saturated", fakeProbe{mem: 32 << 30, cpu: 95, cores: 16}, 1},
		{"few_cores", fakeProbe{mem: 32 << 30, cpu: 10, cores: 4}, 2},
		{"probe_memory_error", fakeProbe{memErr: errors.New("no procfs")}, 1},
		{"probe_cpu_error", fakeProbe{mem: 32 << 30, cpuErr: errors.New("no procfs")}, 1},
		{"tiny_memory_floors_at_one", fakeProbe{mem: 1 << 30, cpu: 10, cores: 8}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			svc := NewService(&scriptedClient{isLocal: true}, nil, tc.probe, nil, 10)
			assert.Equal(t, tc.want, svc.adaptiveBatchSize())
		})
	}
}

func TestPartitionRespectsBatchSizeAndTokens(t *testing.T) {
	t.Parallel()
	svc := NewService(&scriptedClient{reply: replyJSON("[]")}, nil, nil, nil, 3)

	var items []indexed
	for i := 0; i < 7; i++ {
		items = append(items, indexed{pos: i, f: mkFinding("TAINT-SQL-VALUE", i)})
	}
	batches := svc.partition(items)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 3)
	assert.Len(t, batches[2], 1)

	// A finding whose snippet blows the token budget gets its own batch.
	big := mkFinding("TAINT-SQL-VALUE", 99)
	big.Code = strings.Repeat("word ", tokenBudget)
	batches = svc.partition([]indexed{
		{pos: 0, f: mkFinding("TAINT-SQL-VALUE", 1)},
		{pos: 1, f: big},
	})
	require.Len(t, batches, 2)
}
