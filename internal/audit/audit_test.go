package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awmpietro/golang-llm-orchestration-case/internal/orchestrator"
	"github.com/awmpietro/golang-llm-orchestration-case/internal/policy"
)

func readLines(t *testing.T, path string) []Entry {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var out []Entry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e Entry
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e), "line %q", sc.Text())
		out = append(out, e)
	}
	require.NoError(t, sc.Err())
	return out
}

func TestLog_RecordWritesOneLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "audit.log")
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := New(path, WithClock(func() time.Time { return fixed }))

	trace := orchestrator.Trace{
		{Role: "planner", Success: true, Result: &orchestrator.StepResult{Data: "x"}},
		{Role: "writer", Error: "boom"},
	}
	require.NoError(t, l.Record(context.Background(), trace, []string{"length", "audit"}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"timestamp":"2026-03-01T12:00:00Z","trace":[{"role":"planner","success":true},{"role":"writer","success":false}],"policies":["length","audit"]}`,
		string(raw),
	)
}

func TestLog_ConcurrentAppendsStayWhole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	l := New(path)
	trace := orchestrator.Trace{{Role: "a", Success: true}}

	const n = 50
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, l.Record(context.Background(), trace, []string{"audit"}))
		}()
	}
	wg.Wait()

	assert.Len(t, readLines(t, path), n)
}

func TestLog_EnforceAppendsExactlyOneLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	l := New(path)

	trace := orchestrator.Trace{}
	for _, role := range []string{"a", "b", "c", "d", "e"} {
		trace = append(trace, orchestrator.StepRecord{Role: role, Success: true, Result: &orchestrator.StepResult{Data: role}})
	}
	policies := []policy.Policy{policy.Length(), policy.NonEmpty(), policy.NoSecrets(), policy.Audit(l)}

	_, err := policy.Enforce(context.Background(), trace, policies, nil)
	require.NoError(t, err)

	lines := readLines(t, path)
	require.Len(t, lines, 1)
	assert.Len(t, lines[0].Trace, 5)
	assert.Equal(t, []string{"length", "non_empty", "no_secrets", "audit"}, lines[0].Policies)
}

func TestLog_CancelledContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	trace := orchestrator.Trace{{Role: "writer", Success: true}}
	require.NoError(t, New(path).Record(ctx, trace, []string{"audit"}))

	lines := readLines(t, path)
	require.Len(t, lines, 1)
	assert.Equal(t, []string{"audit"}, lines[0].Policies)
}
