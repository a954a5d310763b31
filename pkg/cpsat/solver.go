package cpsat

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Params tunes a solve
type Params struct {
	// TimeLimit bounds the wall-clock search time. Zero means no limit
	TimeLimit time.Duration

	// Workers is the number of parallel search workers. Worker 0 runs a
	// complete deterministic search; the others run randomized restarts and
	// share the incumbent. Values below 1 mean 1
	Workers int

	// Seed perturbs the randomized workers
	Seed int64

	// Logger receives search progress at debug level. Nil disables logging
	Logger *zap.Logger
}

// Response carries the outcome of a solve
type Response struct {
	Status    Status
	WallTime  time.Duration
	Branches  int64
	Conflicts int64

	values       []int64
	objective    float64
	hasObjective bool
	explanation  []string
}

// NewResponse builds a response by hand. It exists for Engine
// implementations that wrap other solvers
func NewResponse(status Status, values []int64, objective float64) *Response {
	return &Response{Status: status, values: values, objective: objective, hasObjective: true}
}

// Value returns the value of v in the best solution, or 0 when there is none
func (r *Response) Value(v Var) int64 {
	if r == nil || v.Index() < 0 || v.Index() >= len(r.values) {
		return 0
	}
	return r.values[v.Index()]
}

// BoolValue returns whether b is true in the best solution
func (r *Response) BoolValue(b BoolVar) bool {
	return r.Value(b) == 1
}

// NumValues returns how many variable values the response carries
func (r *Response) NumValues() int {
	if r == nil {
		return 0
	}
	return len(r.values)
}

// ObjectiveValue returns the objective of the best solution. It is 0 when
// the model has no objective
func (r *Response) ObjectiveValue() float64 {
	if r == nil || !r.hasObjective {
		return 0
	}
	return r.objective
}

// Explanation returns names of constraints involved in a root-level
// conflict. It is best effort and empty when the conflict was only found
// deep in the search
func (r *Response) Explanation() []string {
	if r == nil {
		return nil
	}
	return r.explanation
}

// Solver is the in-process search engine
type Solver struct{}

// Solve runs the search until the time limit, an optimality proof or an
// infeasibility proof. All worker goroutines have exited when it returns
func (Solver) Solve(ctx context.Context, m *Model, p Params) (*Response, error) {
	return Solve(ctx, m, p)
}

// Solve is the package level form of Solver.Solve
func Solve(ctx context.Context, m *Model, p Params) (*Response, error) {
	if m == nil {
		return nil, errors.New("cpsat: nil model")
	}
	log := p.Logger
	if log == nil {
		log = zap.NewNop()
	}
	start := time.Now()

	if err := m.Validate(); err != nil {
		log.Warn("model rejected", zap.Error(err))
		return &Response{
			Status:      StatusModelInvalid,
			WallTime:    time.Since(start),
			explanation: []string{err.Error()},
		}, nil
	}

	c := compile(m)
	inc := newIncumbent()

	// A root conflict is an immediate proof, and the only point where a
	// useful explanation can be extracted cheaply
	root := newWorker(c, inc, -1, p.Seed)
	root.reason = make([]int, len(c.lo))
	for i := range root.reason {
		root.reason[i] = -1
	}
	if !root.propagateRoot() {
		resp := &Response{
			Status:      StatusInfeasible,
			WallTime:    time.Since(start),
			explanation: root.explain(),
		}
		log.Debug("infeasible at root", zap.Strings("explanation", resp.explanation))
		return resp, nil
	}

	workers := p.Workers
	if workers < 1 {
		workers = 1
	}
	runCtx := ctx
	if p.TimeLimit > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, p.TimeLimit)
		defer cancel()
	}
	runCtx, stop := context.WithCancel(runCtx)
	defer stop()

	var proved atomic.Bool
	var branches, conflicts atomic.Int64
	g, gctx := errgroup.WithContext(runCtx)
	for i := 0; i < workers; i++ {
		w := newWorker(c, inc, i, p.Seed)
		g.Go(func() error {
			complete := w.run(gctx)
			branches.Add(w.nodes)
			conflicts.Add(w.totalConflicts)
			if complete {
				proved.Store(true)
				stop()
			}
			log.Debug("search worker finished",
				zap.Int("worker", w.id),
				zap.Bool("complete", complete),
				zap.Int64("branches", w.nodes),
				zap.Int64("conflicts", w.totalConflicts))
			return nil
		})
	}
	_ = g.Wait()

	resp := &Response{
		WallTime:     time.Since(start),
		Branches:     branches.Load(),
		Conflicts:    conflicts.Load(),
		hasObjective: c.objCons >= 0,
	}
	values, best, found := inc.snapshot()
	switch {
	case proved.Load() && found:
		resp.Status = StatusOptimal
	case proved.Load():
		resp.Status = StatusInfeasible
	case found:
		resp.Status = StatusFeasible
	default:
		resp.Status = StatusUnknown
	}
	if found {
		resp.values = values
		if resp.hasObjective {
			resp.objective = float64(best + c.objOffset)
		}
	}
	log.Debug("solve finished",
		zap.String("status", resp.Status.String()),
		zap.Float64("objective", resp.objective),
		zap.Duration("wall_time", resp.WallTime))
	return resp, nil
}

// compiled is the read-only form of a model shared by all workers
type compiled struct {
	lo, hi    []int64
	names     []string
	cons      []linear
	watch     [][]int32
	order     []int
	objCoef   []int64
	objCons   int
	objOffset int64
}

func compile(m *Model) *compiled {
	n := len(m.vars)
	c := &compiled{
		lo:      make([]int64, n),
		hi:      make([]int64, n),
		names:   make([]string, n),
		watch:   make([][]int32, n),
		objCoef: make([]int64, n),
		objCons: -1,
	}
	for i, v := range m.vars {
		c.lo[i], c.hi[i], c.names[i] = v.lo, v.hi, v.name
	}
	c.cons = make([]linear, 0, len(m.cons)+1)
	for _, l := range m.cons {
		c.cons = append(c.cons, *l)
	}
	if m.objective != nil {
		terms, offset := m.objective.normalized()
		c.objOffset = offset
		for _, t := range terms {
			c.objCoef[t.index] += t.coef
		}
		c.objCons = len(c.cons)
		c.cons = append(c.cons, linear{name: "objective bound", terms: terms, lo: -inf, hi: inf})
	}
	for ci, l := range c.cons {
		seen := make(map[int]bool, len(l.terms)+len(l.enforce))
		for _, t := range l.terms {
			if !seen[t.index] {
				seen[t.index] = true
				c.watch[t.index] = append(c.watch[t.index], int32(ci))
			}
		}
		for _, e := range l.enforce {
			if !seen[e.index] {
				seen[e.index] = true
				c.watch[e.index] = append(c.watch[e.index], int32(ci))
			}
		}
	}
	inOrder := make([]bool, n)
	for _, d := range m.decisions {
		if !inOrder[d] {
			inOrder[d] = true
			c.order = append(c.order, d)
		}
	}
	for i := 0; i < n; i++ {
		if !inOrder[i] {
			c.order = append(c.order, i)
		}
	}
	return c
}

func (c *compiled) consName(ci int) string {
	if ci < 0 || ci >= len(c.cons) {
		return ""
	}
	if c.cons[ci].name != "" {
		return c.cons[ci].name
	}
	return fmt.Sprintf("constraint #%d", ci)
}

// incumbent is the best solution shared between workers
type incumbent struct {
	mu     sync.Mutex
	found  bool
	best   int64
	values []int64

	// bound is best-1: every worker prunes against it
	bound atomic.Int64
}

func newIncumbent() *incumbent {
	in := &incumbent{best: math.MaxInt64}
	in.bound.Store(inf)
	return in
}

// offer records values if obj improves on the incumbent
func (in *incumbent) offer(obj int64, values []int64) bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.found && obj >= in.best {
		return false
	}
	in.found = true
	in.best = obj
	in.values = values
	in.bound.Store(obj - 1)
	return true
}

func (in *incumbent) snapshot() ([]int64, int64, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.values, in.best, in.found
}
