package resolve

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dawon-meat/trace-cli/internal/model"
	"github.com/dawon-meat/trace-cli/pkg/mtrace"
)

// fakeClient counts lookups per key and serves canned outcomes. A gate
// channel per key lets tests control completion order.
type fakeClient struct {
	mu    sync.Mutex
	calls map[string]int
	errs  map[string]error
	gates map[string]chan struct{}
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		calls: make(map[string]int),
		errs:  make(map[string]error),
		gates: make(map[string]chan struct{}),
	}
}

func (f *fakeClient) gate(key string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[key] = ch
	return ch
}

func (f *fakeClient) callCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *fakeClient) Lookup(ctx context.Context, traceNo string) (*mtrace.Certificate, error) {
	f.mu.Lock()
	f.calls[traceNo]++
	gate := f.gates[traceNo]
	err := f.errs[traceNo]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &mtrace.Certificate{
		TraceNo: traceNo,
		Issues:  []mtrace.Issue{{IssueNo: "I-" + traceNo}},
	}, nil
}

func row(n string) model.TraceRecord {
	return model.TraceRecord{TraceNumber: n, BreedLabel: "-", BirthDate: "-"}
}

func TestResolve_FanInSharedKey(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	client.errs["002191046216"] = eris.New("mtrace: service error 99: down")

	engine := NewEngine(client, 5)
	resolution := engine.Resolve(context.Background(), []model.TraceRecord{
		row("002191046216"),
		row("002191046217"),
		row("002191046216"),
	})

	require.NoError(t, resolution.Wait(context.Background()))

	// One lookup per distinct number, not per row.
	assert.Equal(t, 1, client.callCount("002191046216"))
	assert.Equal(t, 1, client.callCount("002191046217"))

	results := resolution.Results()
	require.Len(t, results, 3)

	assert.Equal(t, StatusError, results[0].Status)
	assert.Equal(t, StatusError, results[2].Status)
	assert.Equal(t, results[0].Message, results[2].Message,
		"rows sharing a number must show the identical error")

	assert.Equal(t, StatusSuccess, results[1].Status)
	require.NotNil(t, results[1].Cert)
	assert.Equal(t, "002191046217", results[1].Cert.TraceNo)
}

func TestResolve_InvalidFormatSkippedImmediately(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	engine := NewEngine(client, 5)

	resolution := engine.Resolve(context.Background(), []model.TraceRecord{row("12345")})

	// No valid keys: the run settles synchronously, nothing is fetched.
	assert.True(t, resolution.Ready())
	loaded, total := resolution.Progress()
	assert.Equal(t, 1, loaded)
	assert.Equal(t, 1, total)
	assert.Empty(t, client.calls)

	results := resolution.Results()
	require.Len(t, results, 1)
	assert.Equal(t, StatusSkipped, results[0].Status)
	assert.Equal(t, SkipReasonInvalid, results[0].Message)
}

func TestResolve_ProgressAndCommitGating(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	gateA := client.gate("002191046216")
	gateB := client.gate("002191046217")

	engine := NewEngine(client, 5)
	resolution := engine.Resolve(context.Background(), []model.TraceRecord{
		row("002191046216"),
		row("12345"), // skipped, settles immediately
		row("002191046217"),
	})

	loaded, total := resolution.Progress()
	assert.Equal(t, 3, total)
	assert.Equal(t, 1, loaded, "skipped row settles before any lookup lands")
	assert.False(t, resolution.Ready())

	close(gateA)
	require.Eventually(t, func() bool {
		loaded, _ := resolution.Progress()
		return loaded == 2
	}, time.Second, 5*time.Millisecond)
	assert.False(t, resolution.Ready(), "commit stays disabled until the last key settles")

	close(gateB)
	require.NoError(t, resolution.Wait(context.Background()))
	assert.True(t, resolution.Ready())

	loaded, _ = resolution.Progress()
	assert.Equal(t, 3, loaded)
}

func TestResolve_NormalizedNumbersShareLookup(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	engine := NewEngine(client, 5)

	resolution := engine.Resolve(context.Background(), []model.TraceRecord{
		row("0021-9104-6216"),
		row("002191046216"),
		row("0021 9104 6216"),
	})
	require.NoError(t, resolution.Wait(context.Background()))

	assert.Equal(t, 1, client.callCount("002191046216"))
	for _, rr := range resolution.Results() {
		assert.Equal(t, StatusSuccess, rr.Status)
	}
}

func TestResolve_ResultsBeforeCompletionStayLoading(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	gate := client.gate("002191046216")

	engine := NewEngine(client, 5)
	resolution := engine.Resolve(context.Background(), []model.TraceRecord{row("002191046216")})

	results := resolution.Results()
	require.Len(t, results, 1)
	assert.Equal(t, StatusLoading, results[0].Status)
	assert.Nil(t, results[0].Cert)

	close(gate)
	require.NoError(t, resolution.Wait(context.Background()))
	assert.Equal(t, StatusSuccess, resolution.Results()[0].Status)
}

func TestResolve_RerunsUseFreshResultMap(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	engine := NewEngine(client, 5)
	rows := []model.TraceRecord{row("002191046216")}

	first := engine.Resolve(context.Background(), rows)
	require.NoError(t, first.Wait(context.Background()))
	second := engine.Resolve(context.Background(), rows)
	require.NoError(t, second.Wait(context.Background()))

	// No cross-invocation caching: each run owns its map and fetches anew.
	assert.Equal(t, 2, client.callCount("002191046216"))
}

func TestResolve_FailureDoesNotCancelSiblings(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	client.errs["002191046216"] = eris.New("boom")
	gate := client.gate("002191046217")

	engine := NewEngine(client, 5)
	resolution := engine.Resolve(context.Background(), []model.TraceRecord{
		row("002191046216"),
		row("002191046217"),
	})

	// The failed key settles first; the gated sibling must still be
	// allowed to finish successfully.
	require.Eventually(t, func() bool {
		loaded, _ := resolution.Progress()
		return loaded == 1
	}, time.Second, 5*time.Millisecond)

	close(gate)
	require.NoError(t, resolution.Wait(context.Background()))

	results := resolution.Results()
	assert.Equal(t, StatusError, results[0].Status)
	assert.Equal(t, StatusSuccess, results[1].Status)
}
