package cpsat

import (
	"context"
	"math/rand"
)

type searchResult int

const (
	searchFailed searchResult = iota
	searchStopped
	searchRestart
	searchSatisfied
)

const (
	firstRestartLimit = 128
	checkEvery        = 256
)

type trailEntry struct {
	index  int
	lo, hi int64
}

// worker owns one copy of the domains and explores the tree depth first
type worker struct {
	id  int
	m   *compiled
	inc *incumbent
	rng *rand.Rand

	lo, hi []int64
	trail  []trailEntry
	queue  []int32
	queued []bool

	// objHi is the local copy of the incumbent bound. It only decreases, so
	// it lives outside the trail
	objHi int64

	// reason is only allocated for the root explainer
	reason   []int
	conflict int

	nodes          int64
	conflicts      int64
	totalConflicts int64
	restartLimit   int64

	ctx context.Context
}

func newWorker(c *compiled, inc *incumbent, id int, seed int64) *worker {
	w := &worker{
		id:       id,
		m:        c,
		inc:      inc,
		lo:       append([]int64(nil), c.lo...),
		hi:       append([]int64(nil), c.hi...),
		queued:   make([]bool, len(c.cons)),
		objHi:    inf,
		conflict: -1,
	}
	if id > 0 {
		w.rng = rand.New(rand.NewSource(seed + int64(id)*7919))
		w.restartLimit = firstRestartLimit
	}
	return w
}

// run returns true when the worker explored its whole tree, which proves
// either optimality of the incumbent or infeasibility
func (w *worker) run(ctx context.Context) bool {
	w.ctx = ctx
	if !w.propagateRoot() {
		return true
	}
	rootMark := len(w.trail)
	for {
		res := w.search(0)
		w.undo(rootMark)
		w.clearQueue()
		switch res {
		case searchFailed, searchSatisfied:
			return true
		case searchStopped:
			return false
		case searchRestart:
			w.conflicts = 0
			w.restartLimit += w.restartLimit / 2
		}
	}
}

func (w *worker) propagateRoot() bool {
	for ci := range w.m.cons {
		w.enqueue(int32(ci))
	}
	return w.propagate()
}

func (w *worker) search(cursor int) searchResult {
	w.nodes++
	if w.nodes%checkEvery == 0 && w.ctx.Err() != nil {
		return searchStopped
	}
	w.syncBound()
	if !w.propagate() {
		w.conflicts++
		w.totalConflicts++
		if w.restartLimit > 0 && w.conflicts >= w.restartLimit {
			return searchRestart
		}
		return searchFailed
	}

	v, val, at, ok := w.pickBranch(cursor)
	if !ok {
		return w.onSolution()
	}

	mark := len(w.trail)
	w.setLo(v, val, -1)
	w.setHi(v, val, -1)
	res := w.search(at)
	w.undo(mark)
	w.clearQueue()
	if res != searchFailed {
		return res
	}

	if val == w.lo[v] {
		w.setLo(v, val+1, -1)
	} else {
		w.setHi(v, val-1, -1)
	}
	return w.search(at)
}

// pickBranch returns the first unfixed variable in branching order and the
// value to try first
func (w *worker) pickBranch(cursor int) (int, int64, int, bool) {
	order := w.m.order
	for i := cursor; i < len(order); i++ {
		v := order[i]
		if w.lo[v] == w.hi[v] {
			continue
		}
		switch coef := w.m.objCoef[v]; {
		case coef > 0:
			return v, w.lo[v], i, true
		case coef < 0:
			return v, w.hi[v], i, true
		}
		if w.hi[v]-w.lo[v] == 1 && w.lo[v] == 0 {
			if w.rng != nil && w.rng.Intn(2) == 0 {
				return v, w.lo[v], i, true
			}
			return v, w.hi[v], i, true
		}
		return v, w.lo[v], i, true
	}
	return 0, 0, 0, false
}

func (w *worker) onSolution() searchResult {
	values := append([]int64(nil), w.lo...)
	if w.m.objCons < 0 {
		w.inc.offer(0, values)
		return searchSatisfied
	}
	var obj int64
	for _, t := range w.m.cons[w.m.objCons].terms {
		obj += t.coef * values[t.index]
	}
	w.inc.offer(obj, values)
	return searchFailed
}

func (w *worker) syncBound() {
	if w.m.objCons < 0 {
		return
	}
	if b := w.inc.bound.Load(); b < w.objHi {
		w.objHi = b
		w.enqueue(int32(w.m.objCons))
	}
}

func (w *worker) enqueue(ci int32) {
	if !w.queued[ci] {
		w.queued[ci] = true
		w.queue = append(w.queue, ci)
	}
}

func (w *worker) clearQueue() {
	for _, ci := range w.queue {
		w.queued[ci] = false
	}
	w.queue = w.queue[:0]
}

func (w *worker) propagate() bool {
	for len(w.queue) > 0 {
		ci := w.queue[len(w.queue)-1]
		w.queue = w.queue[:len(w.queue)-1]
		w.queued[ci] = false
		if !w.propagateLinear(int(ci)) {
			w.conflict = int(ci)
			w.clearQueue()
			return false
		}
	}
	return true
}

func (w *worker) contribution(t term) (int64, int64) {
	if t.coef > 0 {
		return t.coef * w.lo[t.index], t.coef * w.hi[t.index]
	}
	return t.coef * w.hi[t.index], t.coef * w.lo[t.index]
}

// propagateLinear applies bounds consistency to one constraint. With exactly
// one undecided enforcement literal it can only refute that literal
func (w *worker) propagateLinear(ci int) bool {
	c := &w.m.cons[ci]
	hiBound := c.hi
	if ci == w.m.objCons {
		hiBound = w.objHi
	}

	open := -1
	nOpen := 0
	for i, l := range c.enforce {
		if w.lo[l.index] != w.hi[l.index] {
			nOpen++
			open = i
			continue
		}
		if (w.lo[l.index] == 1) == l.negated {
			return true
		}
	}
	if nOpen > 1 {
		return true
	}

	var minSum, maxSum int64
	for _, t := range c.terms {
		mn, mx := w.contribution(t)
		minSum += mn
		maxSum += mx
	}
	violated := minSum > hiBound || maxSum < c.lo
	if nOpen == 1 {
		if !violated {
			return true
		}
		l := c.enforce[open]
		val := int64(0)
		if l.negated {
			val = 1
		}
		return w.setLo(l.index, val, ci) && w.setHi(l.index, val, ci)
	}
	if violated {
		return false
	}

	for _, t := range c.terms {
		mn, mx := w.contribution(t)
		if hiBound < inf {
			slack := hiBound - (minSum - mn)
			if t.coef > 0 {
				if !w.setHi(t.index, floorDiv(slack, t.coef), ci) {
					return false
				}
			} else if !w.setLo(t.index, ceilDiv(slack, t.coef), ci) {
				return false
			}
		}
		if c.lo > -inf {
			need := c.lo - (maxSum - mx)
			if t.coef > 0 {
				if !w.setLo(t.index, ceilDiv(need, t.coef), ci) {
					return false
				}
			} else if !w.setHi(t.index, floorDiv(need, t.coef), ci) {
				return false
			}
		}
	}
	return true
}

func (w *worker) setLo(v int, val int64, reason int) bool {
	if val <= w.lo[v] {
		return true
	}
	if val > w.hi[v] {
		return false
	}
	w.trail = append(w.trail, trailEntry{index: v, lo: w.lo[v], hi: w.hi[v]})
	w.lo[v] = val
	w.touched(v, reason)
	return true
}

func (w *worker) setHi(v int, val int64, reason int) bool {
	if val >= w.hi[v] {
		return true
	}
	if val < w.lo[v] {
		return false
	}
	w.trail = append(w.trail, trailEntry{index: v, lo: w.lo[v], hi: w.hi[v]})
	w.hi[v] = val
	w.touched(v, reason)
	return true
}

func (w *worker) touched(v int, reason int) {
	if w.reason != nil && reason >= 0 {
		w.reason[v] = reason
	}
	for _, ci := range w.m.watch[v] {
		w.enqueue(ci)
	}
}

func (w *worker) undo(mark int) {
	for i := len(w.trail) - 1; i >= mark; i-- {
		e := w.trail[i]
		w.lo[e.index], w.hi[e.index] = e.lo, e.hi
	}
	w.trail = w.trail[:mark]
}

// explain lists the conflicting constraint and the constraints that last
// narrowed its variables during root propagation
func (w *worker) explain() []string {
	if w.conflict < 0 {
		return nil
	}
	seen := map[int]bool{w.conflict: true}
	out := []string{w.m.consName(w.conflict)}
	c := w.m.cons[w.conflict]
	add := func(v int) {
		if w.reason == nil {
			return
		}
		if r := w.reason[v]; r >= 0 && !seen[r] {
			seen[r] = true
			out = append(out, w.m.consName(r))
		}
	}
	for _, t := range c.terms {
		add(t.index)
	}
	for _, l := range c.enforce {
		add(l.index)
	}
	return out
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func ceilDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) == (b < 0) {
		q++
	}
	return q
}
