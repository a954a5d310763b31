package scheduler

import (
	"fmt"

	"github.com/arnavshah/roster-solver-go/pkg/cpsat"
	"github.com/arnavshah/roster-solver-go/pkg/models"
)

// RosterModel is a constraint model for one period together with the
// variable tables needed to read a solution back
type RosterModel struct {
	in   *Input
	opts Options
	m    *cpsat.Model

	// shift[w][d][s] is true when worker w works shift s on day d
	shift [][][numShiftTypes]cpsat.BoolVar
	off   [][]cpsat.BoolVar
	units [][]cpsat.IntVar

	// double[w][d] is created on first use
	double    [][]cpsat.BoolVar
	hasDouble [][]bool

	prev  []PreviousPeriodState
	rules [][]Rule

	soft      *cpsat.LinearExpr
	softTerms int

	hardRules   int
	softRules   int
	diagnostics []models.Diagnostic
	terms       []string
}

// BuildModel declares the variables, hard rules and objective for in.
// Rejected individual rules are reported through Diagnostics
func BuildModel(in *Input, opts Options) (*RosterModel, error) {
	if in == nil || len(in.Workers) == 0 || len(in.Days) == 0 {
		return nil, validationError("nothing to schedule", nil)
	}
	r := &RosterModel{
		in:   in,
		opts: opts,
		m:    cpsat.NewModel(),
		soft: cpsat.NewLinearExpr(),
	}
	r.loadWorkers()
	r.declare()
	r.addDayStructure()
	r.addStaffing()
	r.addTransitions()
	r.addConsecutiveShifts()
	r.addWindows()
	r.addIndividualRules()
	r.buildObjective()
	return r, nil
}

// Model returns the underlying constraint model
func (r *RosterModel) Model() *cpsat.Model { return r.m }

// Diagnostics lists the individual rules that were skipped
func (r *RosterModel) Diagnostics() []models.Diagnostic { return r.diagnostics }

// ObjectiveTerms names the active penalty terms
func (r *RosterModel) ObjectiveTerms() []string { return r.terms }

// Stats summarises the model size
func (r *RosterModel) Stats() models.ModelStats {
	return models.ModelStats{
		Workers:     len(r.in.Workers),
		Days:        len(r.in.Days),
		Variables:   r.m.NumVariables(),
		Constraints: r.m.NumConstraints(),
		HardRules:   r.hardRules,
		SoftRules:   r.softRules,
	}
}

func (r *RosterModel) numWorkers() int { return len(r.in.Workers) }
func (r *RosterModel) numDays() int    { return len(r.in.Days) }

func (r *RosterModel) loadWorkers() {
	r.prev = make([]PreviousPeriodState, r.numWorkers())
	r.rules = make([][]Rule, r.numWorkers())
	for w, worker := range r.in.Workers {
		r.prev[w] = defaultPreviousState()
		if r.in.Previous != nil {
			r.prev[w] = ExtractContinuity(worker.ID, r.in.Previous)
		}
		rules, diags := ParseRules(worker, r.in.Days)
		r.rules[w] = rules
		r.diagnostics = append(r.diagnostics, diags...)
	}
}

func (r *RosterModel) declare() {
	nW, nD := r.numWorkers(), r.numDays()
	r.shift = make([][][numShiftTypes]cpsat.BoolVar, nW)
	r.off = make([][]cpsat.BoolVar, nW)
	r.units = make([][]cpsat.IntVar, nW)
	r.double = make([][]cpsat.BoolVar, nW)
	r.hasDouble = make([][]bool, nW)
	for w, worker := range r.in.Workers {
		r.shift[w] = make([][numShiftTypes]cpsat.BoolVar, nD)
		r.off[w] = make([]cpsat.BoolVar, nD)
		r.units[w] = make([]cpsat.IntVar, nD)
		r.double[w] = make([]cpsat.BoolVar, nD)
		r.hasDouble[w] = make([]bool, nD)
		for d := 0; d < nD; d++ {
			for _, s := range shiftTypes {
				r.shift[w][d][s] = r.m.NewBoolVar(fmt.Sprintf("shift_%s_d%d_%s", worker.ID, d, s))
			}
			r.off[w][d] = r.m.NewBoolVar(fmt.Sprintf("off_%s_d%d", worker.ID, d))
			r.units[w][d] = r.m.NewIntVar(0, 2, fmt.Sprintf("units_%s_d%d", worker.ID, d))
		}
	}

	// Branch day by day so staffing for a day is settled before the next
	for d := 0; d < nD; d++ {
		for w := 0; w < nW; w++ {
			for _, s := range shiftTypes {
				r.m.AddDecisionStrategy(r.shift[w][d][s])
			}
		}
	}
}

// addDayStructure links units and off to the shift variables and forbids the
// morning+afternoon and morning+night combinations
func (r *RosterModel) addDayStructure() {
	for w := range r.in.Workers {
		for d := 0; d < r.numDays(); d++ {
			sh := r.shift[w][d]
			units := r.units[w][d]
			off := r.off[w][d]

			r.m.AddEquality(cpsat.Sum(sh[Morning], sh[Afternoon], sh[Night]).AddTerm(units, -1), 0)
			r.m.AddEquality(cpsat.Sum(units), 0).OnlyEnforceIf(off.Lit())
			r.m.AddGreaterOrEqual(cpsat.Sum(units), 1).OnlyEnforceIf(off.Not())

			r.m.AddLessOrEqual(cpsat.Sum(sh[Morning], sh[Afternoon]), 1)
			r.m.AddLessOrEqual(cpsat.Sum(sh[Morning], sh[Night]), 1)
		}
	}
}

func (r *RosterModel) addStaffing() {
	for d, day := range r.in.Days {
		for _, s := range shiftTypes {
			staffed := cpsat.NewLinearExpr()
			for w := range r.in.Workers {
				staffed.AddTerm(r.shift[w][d][s], 1)
			}
			r.m.AddEquality(staffed, int64(r.in.Requirements[s])).
				WithName(fmt.Sprintf("staffing: %d %s on %s", r.in.Requirements[s], s, day.ISO()))
		}
	}
}

// addTransitions forbids afternoon followed by night, including across the
// period boundary. A final day double contains an afternoon, so it is covered
func (r *RosterModel) addTransitions() {
	for w, worker := range r.in.Workers {
		if r.prev[w].Worked(Afternoon) {
			r.m.AddEquality(cpsat.Sum(r.shift[w][0][Night]), 0).
				WithName(fmt.Sprintf("carry-over: %s worked afternoon on the previous final day", worker.ID))
		}
		for d := 0; d+1 < r.numDays(); d++ {
			r.m.AddLessOrEqual(cpsat.Sum(r.shift[w][d][Afternoon], r.shift[w][d+1][Night]), 1)
		}
	}
}

// addConsecutiveShifts bounds the running count of consecutive shift-units.
// The counter's domain is the limit itself
func (r *RosterModel) addConsecutiveShifts() {
	limit := r.in.MaxConsecutiveShifts
	if limit <= 0 {
		return
	}
	for w, worker := range r.in.Workers {
		run := make([]cpsat.IntVar, r.numDays())
		for d := range run {
			run[d] = r.m.NewIntVar(0, int64(limit), fmt.Sprintf("run_%s_d%d", worker.ID, d))
		}
		for d := range run {
			off := r.off[w][d]
			r.m.AddEquality(cpsat.Sum(run[d]), 0).OnlyEnforceIf(off.Lit())

			fresh := cpsat.Sum(run[d]).AddTerm(r.units[w][d], -1)
			if d == 0 {
				carried := int64(0)
				if !r.prev[w].WasOffLastDay {
					carried = int64(r.prev[w].ConsecutiveShifts)
				}
				r.m.AddEquality(fresh, carried).OnlyEnforceIf(off.Not()).
					WithName(fmt.Sprintf("consecutive shifts: %s carries %d into the period", worker.ID, carried))
				continue
			}
			prevOff := r.off[w][d-1]
			r.m.AddEquality(fresh, 0).OnlyEnforceIf(off.Not(), prevOff.Lit())
			r.m.AddEquality(fresh.AddTerm(run[d-1], -1), 0).OnlyEnforceIf(off.Not(), prevOff.Not())
		}
	}
}

// addWindows applies the sliding-window limits on same-shift runs, off-day
// runs and minimum rest
func (r *RosterModel) addWindows() {
	lim := r.opts.Limits
	nD := r.numDays()
	for w := range r.in.Workers {
		if k := lim.MaxConsecutiveSameShift; k > 0 && nD > k {
			for _, s := range shiftTypes {
				for start := 0; start+k < nD; start++ {
					window := cpsat.NewLinearExpr()
					for d := start; d <= start+k; d++ {
						window.AddTerm(r.shift[w][d][s], 1)
					}
					r.m.AddLessOrEqual(window, int64(k))
				}
			}
		}
		if k := lim.MaxConsecutiveOffDays; k > 0 && nD > k {
			for start := 0; start+k < nD; start++ {
				window := cpsat.NewLinearExpr()
				for d := start; d <= start+k; d++ {
					window.AddTerm(r.off[w][d], 1)
				}
				r.m.AddLessOrEqual(window, int64(k))
			}
		}
		if size, k := lim.OffWindowSize, lim.MinOffDaysInWindow; size > 0 && k > 0 && nD >= size {
			for start := 0; start+size <= nD; start++ {
				window := cpsat.NewLinearExpr()
				for d := start; d < start+size; d++ {
					window.AddTerm(r.off[w][d], 1)
				}
				r.m.AddGreaterOrEqual(window, int64(k))
			}
		}
	}
}

func (r *RosterModel) addIndividualRules() {
	for w, worker := range r.in.Workers {
		for _, rule := range r.rules[w] {
			name := fmt.Sprintf("rule: %s for %s", rule.Tag, worker.ID)
			if rule.Strength == Hard {
				r.hardRules++
			} else {
				r.softRules++
			}
			switch rule.Kind {
			case RuleWeekdayOff, RuleDaysOfMonthOff, RuleRecurringOff:
				for d, day := range r.in.Days {
					if !rule.OffOn(day) {
						continue
					}
					if rule.Strength == Hard {
						r.m.AddEquality(cpsat.Sum(r.off[w][d]), 1).WithName(name)
					} else {
						r.penalize(r.off[w][d].Not())
					}
				}
			case RuleShiftTypeOff:
				for d := range r.in.Days {
					v := r.shift[w][d][rule.Shift]
					if rule.Strength == Hard {
						r.m.AddEquality(cpsat.Sum(v), 0).WithName(name)
					} else {
						r.penalize(v.Lit())
					}
				}
			case RuleNoDouble:
				for d := range r.in.Days {
					if rule.Strength == Hard {
						r.m.AddLessOrEqual(cpsat.Sum(r.shift[w][d][Night], r.shift[w][d][Afternoon]), 1).WithName(name)
					} else {
						r.penalize(r.doubleAt(w, d).Lit())
					}
				}
			case RuleRequestShifts:
				for d, day := range r.in.Days {
					for _, req := range rule.Requests {
						if day.Date.Day() != req.DayOfMonth {
							continue
						}
						v := r.shift[w][d][req.Shift]
						if rule.Strength == Hard {
							r.m.AddEquality(cpsat.Sum(v), 1).WithName(name)
						} else {
							r.penalize(v.Not())
						}
					}
				}
			}
		}
	}
}

// penalize adds a "would violate" literal to the soft rule pool
func (r *RosterModel) penalize(l cpsat.Literal) {
	r.soft.AddLiteral(l, 1)
	r.softTerms++
}

// doubleAt returns the night+afternoon indicator of (w, d), declaring it on
// first use
func (r *RosterModel) doubleAt(w, d int) cpsat.BoolVar {
	if r.hasDouble[w][d] {
		return r.double[w][d]
	}
	b := r.m.NewBoolVar(fmt.Sprintf("double_%s_d%d", r.in.Workers[w].ID, d))
	r.m.AddConjunctionEquality(b, r.shift[w][d][Night].Lit(), r.shift[w][d][Afternoon].Lit())
	r.double[w][d] = b
	r.hasDouble[w][d] = true
	return b
}
