package viewkit

import (
	"context"
	"math"
	"time"

	"github.com/autom8ter/viewkit/collate"
	"github.com/autom8ter/viewkit/errors"
	"github.com/segmentio/ksuid"
)

// State is a stage of a query run. States are declared in the order a run moves through them.
type State int

const (
	Planning State = iota + 1
	Scanning
	Reducing
	Paginating
	Materializing
	Done
)

func (s State) String() string {
	switch s {
	case Planning:
		return "planning"
	case Scanning:
		return "scanning"
	case Reducing:
		return "reducing"
	case Paginating:
		return "paginating"
	case Materializing:
		return "materializing"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// Row is a single query result. Document is nil unless the query included documents.
type Row struct {
	Key        collate.Value `json:"key"`
	Value      collate.Value `json:"value"`
	DocumentID string        `json:"id,omitempty"`
	Sequence   uint64        `json:"-"`
	Document   *Document     `json:"doc,omitempty"`
}

// QueryResult is the ordered result of a query
type QueryResult struct {
	// Rows are the returned rows (or groups, when reduced)
	Rows []Row `json:"rows"`
	// TotalRows is the number of entries in the queried index snapshot
	TotalRows int `json:"total_rows"`
	// Offset is the number of rows (or groups) skipped
	Offset int `json:"offset"`
	// UpdateSeq is the database sequence the queried snapshot was current with, if requested
	UpdateSeq *uint64    `json:"update_seq,omitempty"`
	Stats     QueryStats `json:"stats"`
}

// QueryStats are statistics collected while executing a query
type QueryStats struct {
	// ExecutionTime is the execution time of the query
	ExecutionTime time.Duration `json:"execution_time,omitempty"`
	// Scanned is the number of index entries read
	Scanned int `json:"scanned"`
	// Plan is the scan the query was translated into
	Plan ScanDirective `json:"-"`
}

// ExecutorOpt configures an Executor
type ExecutorOpt func(e *Executor)

// WithReduce sets the reduce function of the queried view
func WithReduce(reduce ReduceFunc) ExecutorOpt {
	return func(e *Executor) {
		e.reduce = reduce
	}
}

// WithCollator sets the collator the index was built with (collate.Raw by default)
func WithCollator(collator collate.Collator) ExecutorOpt {
	return func(e *Executor) {
		e.collator = collator
	}
}

// WithLogger sets the executor's logger
func WithLogger(logger Logger) ExecutorOpt {
	return func(e *Executor) {
		e.logger = logger
	}
}

// WithReduceChunkSize reduces groups larger than size in chunks whose results are combined with rereduce
func WithReduceChunkSize(size int) ExecutorOpt {
	return func(e *Executor) {
		e.chunkSize = size
	}
}

// WithFetchConcurrency bounds the number of concurrent document fetches
func WithFetchConcurrency(n int) ExecutorOpt {
	return func(e *Executor) {
		e.fetchConcurrency = n
	}
}

// WithViewName sets the view name used in logs and metrics
func WithViewName(name string) ExecutorOpt {
	return func(e *Executor) {
		e.view = name
	}
}

// WithStateHook registers a function called every time a run enters a new state
func WithStateHook(hook func(ctx context.Context, state State)) ExecutorOpt {
	return func(e *Executor) {
		e.stateHook = hook
	}
}

// Executor runs queries against a view index. It is safe for concurrent use: every query reads its own snapshot.
type Executor struct {
	index            Index
	store            DocumentStore
	reduce           ReduceFunc
	collator         collate.Collator
	logger           Logger
	chunkSize        int
	fetchConcurrency int
	view             string
	stateHook        func(ctx context.Context, state State)
}

// NewExecutor creates an executor over index. store may be nil if documents are never included.
func NewExecutor(index Index, store DocumentStore, opts ...ExecutorOpt) *Executor {
	e := &Executor{
		index:            index,
		store:            store,
		collator:         collate.Raw,
		logger:           NewNopLogger(),
		fetchConcurrency: 8,
		view:             "default",
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Execute runs a single query
func (e *Executor) Execute(ctx context.Context, q QuerySpec) (*QueryResult, error) {
	ctx = WithLogFields(ctx, map[string]any{"view": e.view, "query_id": ksuid.New().String()})
	start := time.Now()
	r := &run{executor: e}
	result, err := r.execute(ctx, q)
	elapsed := time.Since(start)
	queriesTotal.WithLabelValues(e.view, statusLabel(err)).Inc()
	queryDuration.WithLabelValues(e.view).Observe(elapsed.Seconds())
	rowsScanned.WithLabelValues(e.view).Add(float64(r.scanned))
	if err != nil {
		e.logger.Debug(ctx, "query failed", map[string]any{
			"state": r.state.String(),
			"error": err.Error(),
		})
		return nil, err
	}
	result.Stats.ExecutionTime = elapsed
	result.Stats.Scanned = r.scanned
	e.logger.Debug(ctx, "query executed", map[string]any{
		"rows":     len(result.Rows),
		"scanned":  r.scanned,
		"duration": elapsed.String(),
	})
	return result, nil
}

// run is the state of a single execution of a query
type run struct {
	executor *Executor
	state    State
	scanned  int
}

func (r *run) enter(ctx context.Context, state State) error {
	if state <= r.state {
		return errors.New(errors.Internal, "query can not move from %s to %s", r.state, state)
	}
	r.state = state
	if r.executor.stateHook != nil {
		r.executor.stateHook(ctx, state)
	}
	return nil
}

func (r *run) execute(ctx context.Context, q QuerySpec) (*QueryResult, error) {
	e := r.executor
	if err := r.enter(ctx, Planning); err != nil {
		return nil, err
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if q.Reduce && e.reduce == nil {
		return nil, errors.New(errors.Validation, "view %s has no reduce function", e.view)
	}
	if q.IncludeDocs && e.store == nil {
		return nil, errors.New(errors.Validation, "view %s has no document store", e.view)
	}
	q = q.normalize()
	plan := Plan(q, e.collator)

	if err := r.enter(ctx, Scanning); err != nil {
		return nil, err
	}
	snapshot, err := e.index.OpenSnapshot(ctx)
	if err != nil {
		if errors.Is(err, errors.Cancelled) {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.Unavailable, "failed to open index of view %s", e.view)
	}
	defer snapshot.Close()
	result := &QueryResult{
		TotalRows: snapshot.TotalRows(),
		Offset:    q.Skip,
		Stats:     QueryStats{Plan: plan},
	}
	if q.UpdateSeq {
		seq := snapshot.UpdateSeq()
		result.UpdateSeq = &seq
	}
	want := window(q.Skip, q.GetLimit())
	var (
		entries []IndexEntry
		groups  []*group
		grp     = &grouper{
			level:      q.GroupLevel,
			descending: q.Descending,
			reduce:     e.reduce,
			collator:   e.collator,
			chunkSize:  e.chunkSize,
		}
	)
	if want > 0 && !plan.Empty {
		lastLookup := -1
		err = r.scan(ctx, snapshot, plan, func(entry IndexEntry, lookup int) bool {
			if !q.Reduce {
				entries = append(entries, entry)
				return len(entries) < want
			}
			// each requested key is its own group, even when keys repeat
			if lookup != lastLookup && q.GroupLevel > 0 {
				if done, ok := grp.flush(); ok {
					groups = append(groups, done)
					if len(groups) >= want {
						return false
					}
				}
			}
			lastLookup = lookup
			if done, ok := grp.add(entry); ok {
				groups = append(groups, done)
			}
			return len(groups) < want
		})
		if err != nil {
			return nil, err
		}
		if q.Reduce && len(groups) < want {
			if done, ok := grp.flush(); ok {
				groups = append(groups, done)
			}
		}
	}
	snapshot.Close()

	var rows []Row
	if q.Reduce {
		if err := r.enter(ctx, Reducing); err != nil {
			return nil, err
		}
		rows = make([]Row, 0, len(groups))
		for _, g := range groups {
			row, err := grp.fold(g)
			if err != nil {
				return nil, err
			}
			rows = append(rows, row)
		}
	} else {
		rows = make([]Row, 0, len(entries))
		for _, entry := range entries {
			rows = append(rows, Row{
				Key:        entry.Key,
				Value:      entry.Value,
				DocumentID: entry.DocumentID,
				Sequence:   entry.Sequence,
			})
		}
	}

	if err := r.enter(ctx, Paginating); err != nil {
		return nil, err
	}
	result.Rows = paginate(rows, q.Skip, q.GetLimit())

	if err := r.enter(ctx, Materializing); err != nil {
		return nil, err
	}
	if q.IncludeDocs {
		m := materializer{
			store:       e.store,
			concurrency: e.fetchConcurrency,
			content:     q.Content,
			view:        e.view,
		}
		if err := m.materialize(ctx, result.Rows); err != nil {
			return nil, err
		}
	}
	if err := r.enter(ctx, Done); err != nil {
		return nil, err
	}
	return result, nil
}

// scan visits the entries selected by the plan in order until visit returns false.
// lookup is the position of the matched key in plan.Keys, or -1 for range scans.
func (r *run) scan(ctx context.Context, snapshot Snapshot, plan ScanDirective, visit func(entry IndexEntry, lookup int) bool) error {
	collator := r.executor.collator
	if plan.IsPointLookup() {
		for i, key := range plan.Keys {
			i, key := i, key
			var cursor Cursor
			if plan.Descending {
				cursor = snapshot.SeekAfter(key)
			} else {
				cursor = snapshot.Seek(key)
			}
			more, err := r.walk(ctx, cursor, plan.Descending, func(entry IndexEntry) bool {
				return collator.Compare(entry.Key, key) == 0
			}, func(entry IndexEntry) bool {
				return visit(entry, i)
			})
			if err != nil || !more {
				return err
			}
		}
		return nil
	}
	var (
		cursor  Cursor
		inRange func(IndexEntry) bool
	)
	if plan.Descending {
		switch {
		case plan.Upper == nil:
			cursor = snapshot.Last()
		case plan.UpperInclusive:
			cursor = snapshot.SeekAfter(*plan.Upper)
		default:
			cursor = snapshot.Seek(*plan.Upper)
		}
		inRange = func(entry IndexEntry) bool {
			if plan.Lower == nil {
				return true
			}
			c := collator.Compare(entry.Key, *plan.Lower)
			return c > 0 || (c == 0 && plan.LowerInclusive)
		}
	} else {
		switch {
		case plan.Lower == nil:
			cursor = snapshot.First()
		case plan.LowerInclusive:
			cursor = snapshot.Seek(*plan.Lower)
		default:
			cursor = snapshot.SeekAfter(*plan.Lower)
		}
		inRange = func(entry IndexEntry) bool {
			if plan.Upper == nil {
				return true
			}
			c := collator.Compare(entry.Key, *plan.Upper)
			return c < 0 || (c == 0 && plan.UpperInclusive)
		}
	}
	_, err := r.walk(ctx, cursor, plan.Descending, inRange, func(entry IndexEntry) bool {
		return visit(entry, -1)
	})
	return err
}

// walk steps the cursor while entries are in range. It returns false if visit asked to stop.
func (r *run) walk(ctx context.Context, cursor Cursor, descending bool, inRange, visit func(IndexEntry) bool) (bool, error) {
	defer cursor.Close()
	for {
		if err := ctx.Err(); err != nil {
			return false, errors.Wrap(err, errors.Cancelled, "query aborted")
		}
		var (
			entry IndexEntry
			ok    bool
			err   error
		)
		if descending {
			entry, ok, err = cursor.Prev()
		} else {
			entry, ok, err = cursor.Next()
		}
		if err != nil {
			return false, err
		}
		if !ok || !inRange(entry) {
			return true, nil
		}
		r.scanned++
		if !visit(entry) {
			return false, nil
		}
	}
}

// window returns the number of leading rows needed to serve skip and limit
func window(skip, limit int) int {
	if limit > math.MaxInt-skip {
		return math.MaxInt
	}
	return skip + limit
}

func paginate(rows []Row, skip, limit int) []Row {
	if skip >= len(rows) {
		return []Row{}
	}
	rows = rows[skip:]
	if limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}

func statusLabel(err error) string {
	if err == nil {
		return "ok"
	}
	switch errors.Extract(err).Code {
	case errors.Validation:
		return "invalid"
	case errors.Unavailable:
		return "unavailable"
	case errors.FetchFailed:
		return "fetch_failed"
	case errors.Cancelled:
		return "cancelled"
	default:
		return "error"
	}
}
