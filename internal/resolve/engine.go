// Package resolve implements the certificate resolution engine: one grading
// lookup per distinct traceability number, fanned back out onto every
// selected row sharing that number.
package resolve

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dawon-meat/trace-cli/internal/model"
	"github.com/dawon-meat/trace-cli/pkg/mtrace"
)

// Status is the per-row lookup state. Valid transitions are
// loading -> success|error; invalid-format rows are skipped immediately
// and never change.
type Status string

const (
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusSkipped Status = "skipped"
)

// SkipReasonInvalid is the only skip reason the engine produces.
const SkipReasonInvalid = "not a valid 12-digit number"

// RowResult is the resolved display state for one selected row.
type RowResult struct {
	Row     model.TraceRecord   `json:"row"`
	Status  Status              `json:"status"`
	Cert    *mtrace.Certificate `json:"cert,omitempty"`
	Message string              `json:"message,omitempty"`
}

// outcome is the settled result for one distinct key.
type outcome struct {
	cert *mtrace.Certificate
	err  error
}

// Engine resolves batches of selected rows against the grading service.
type Engine struct {
	client mtrace.Client
	limit  int
}

// NewEngine creates an engine. maxConcurrent bounds in-flight lookups;
// values below 1 fall back to 5.
func NewEngine(client mtrace.Client, maxConcurrent int) *Engine {
	if maxConcurrent < 1 {
		maxConcurrent = 5
	}
	return &Engine{client: client, limit: maxConcurrent}
}

// Resolution is one in-flight or completed resolution run. The result map
// is owned by this value and scoped to the run; re-resolving the same rows
// starts from a fresh map.
type Resolution struct {
	rows  []model.TraceRecord
	keys  []string // per-row normalized number; "" marks a skipped row
	total int

	settled atomic.Int64
	done    chan struct{}

	mu       sync.Mutex
	outcomes map[string]outcome
}

// Resolve classifies the selected rows, then starts exactly one lookup per
// distinct valid number. It returns immediately; observe the run through
// the returned Resolution.
func (e *Engine) Resolve(ctx context.Context, rows []model.TraceRecord) *Resolution {
	r := &Resolution{
		rows:     append([]model.TraceRecord(nil), rows...),
		keys:     make([]string, len(rows)),
		total:    len(rows),
		done:     make(chan struct{}),
		outcomes: make(map[string]outcome),
	}

	// Distinct-key set: rows sharing a number share one lookup and one
	// eventual result. Skipped rows settle right away.
	rowsPerKey := make(map[string]int)
	for i, row := range rows {
		norm := model.NormalizeTraceNumber(row.TraceNumber)
		if !model.IsValidTraceNumber(norm) {
			r.settled.Add(1)
			continue
		}
		r.keys[i] = norm
		rowsPerKey[norm]++
	}

	if len(rowsPerKey) == 0 {
		close(r.done)
		return r
	}

	go r.run(ctx, e.client, e.limit, rowsPerKey)
	return r
}

// run fans out one lookup per distinct key and waits for every one of them
// to settle. Workers always return nil: a failed lookup is captured in the
// result map and must not cancel or taint its siblings.
func (r *Resolution) run(ctx context.Context, client mtrace.Client, limit int, rowsPerKey map[string]int) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for key, nrows := range rowsPerKey {
		g.Go(func() error {
			cert, err := client.Lookup(gctx, key)
			if err != nil {
				zap.L().Debug("resolve: lookup failed",
					zap.String("trace_no", key),
					zap.Error(err),
				)
			}

			r.mu.Lock()
			r.outcomes[key] = outcome{cert: cert, err: err}
			r.mu.Unlock()

			r.settled.Add(int64(nrows))
			return nil
		})
	}

	_ = g.Wait()
	close(r.done)
}

// Progress reports how many of the selected rows have settled versus the
// total. Rows sharing a number settle together when their lookup lands.
func (r *Resolution) Progress() (loaded, total int) {
	return int(r.settled.Load()), r.total
}

// Ready reports whether every row has settled. Commit/print actions must
// stay disabled until this is true; partial results are never committed.
func (r *Resolution) Ready() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the run completes or ctx is cancelled. In-flight
// lookups are one-shot calls; abandoning them on cancel leaks nothing.
func (r *Resolution) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Results projects the settled outcome map onto every row. Rows whose key
// has not settled (or is somehow missing from the map) stay in the loading
// state rather than showing stale data.
func (r *Resolution) Results() []RowResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]RowResult, len(r.rows))
	for i, row := range r.rows {
		key := r.keys[i]
		if key == "" {
			out[i] = RowResult{Row: row, Status: StatusSkipped, Message: SkipReasonInvalid}
			continue
		}

		oc, ok := r.outcomes[key]
		if !ok {
			out[i] = RowResult{Row: row, Status: StatusLoading}
			continue
		}
		if oc.err != nil {
			out[i] = RowResult{Row: row, Status: StatusError, Message: oc.err.Error()}
			continue
		}
		out[i] = RowResult{Row: row, Status: StatusSuccess, Cert: oc.cert}
	}
	return out
}
