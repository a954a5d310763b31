package scheduler

import (
	"fmt"

	"github.com/arnavshah/roster-solver-go/pkg/cpsat"
)

// totals are per-worker aggregates used by the fairness and deficit terms
type totals struct {
	off, units []cpsat.IntVar
	byShift    [numShiftTypes][]cpsat.IntVar
}

func (r *RosterModel) declareTotals() totals {
	nD := int64(r.numDays())
	var t totals
	for w, worker := range r.in.Workers {
		offSum := cpsat.NewLinearExpr()
		unitSum := cpsat.NewLinearExpr()
		var shiftSum [numShiftTypes]*cpsat.LinearExpr
		for _, s := range shiftTypes {
			shiftSum[s] = cpsat.NewLinearExpr()
		}
		for d := range r.in.Days {
			offSum.AddTerm(r.off[w][d], 1)
			unitSum.AddTerm(r.units[w][d], 1)
			for _, s := range shiftTypes {
				shiftSum[s].AddTerm(r.shift[w][d][s], 1)
			}
		}

		off := r.m.NewIntVar(0, nD, fmt.Sprintf("total_off_%s", worker.ID))
		r.m.AddEquality(offSum.AddTerm(off, -1), 0)
		t.off = append(t.off, off)

		units := r.m.NewIntVar(0, 2*nD, fmt.Sprintf("total_units_%s", worker.ID))
		r.m.AddEquality(unitSum.AddTerm(units, -1), 0)
		t.units = append(t.units, units)

		for _, s := range shiftTypes {
			v := r.m.NewIntVar(0, nD, fmt.Sprintf("total_%s_%s", s, worker.ID))
			r.m.AddEquality(shiftSum[s].AddTerm(v, -1), 0)
			t.byShift[s] = append(t.byShift[s], v)
		}
	}
	return t
}

// buildObjective assembles the weighted penalty sum. With no active term the
// model is a pure feasibility problem
func (r *RosterModel) buildObjective() {
	wt := r.opts.Weights
	obj := cpsat.NewLinearExpr()
	fair := r.numWorkers() >= 2

	needTotals := (wt.OffDayDeficit > 0 && r.in.TargetOffDays > 0) ||
		(fair && (wt.OffDayImbalance > 0 || wt.TotalShiftImbalance > 0 || wt.ShiftTypeImbalance > 0))
	var t totals
	if needTotals {
		t = r.declareTotals()
	}

	if wt.OffDayDeficit > 0 && r.in.TargetOffDays > 0 {
		target := int64(r.in.TargetOffDays)
		for w, worker := range r.in.Workers {
			slack := r.m.NewIntVar(0, target, fmt.Sprintf("off_deficit_%s", worker.ID))
			r.m.AddGreaterOrEqual(cpsat.Sum(slack, t.off[w]), target)
			obj.AddTerm(slack, wt.OffDayDeficit)
		}
		r.terms = append(r.terms, "off_day_deficit")
	}

	if fair {
		nD := int64(r.numDays())
		if wt.ShiftTypeImbalance > 0 {
			for _, s := range shiftTypes {
				r.addRange(obj, s.String(), t.byShift[s], nD, wt.ShiftTypeImbalance)
			}
			r.terms = append(r.terms, "shift_type_imbalance")
		}
		if wt.TotalShiftImbalance > 0 {
			r.addRange(obj, "units", t.units, 2*nD, wt.TotalShiftImbalance)
			r.terms = append(r.terms, "total_shift_imbalance")
		}
		if wt.OffDayImbalance > 0 {
			r.addRange(obj, "off", t.off, nD, wt.OffDayImbalance)
			r.terms = append(r.terms, "off_day_imbalance")
		}
	}

	if wt.DoubleShift > 0 && r.in.Requirements[Night] > 0 && r.in.Requirements[Afternoon] > 0 {
		for w := range r.in.Workers {
			for d := range r.in.Days {
				obj.AddTerm(r.doubleAt(w, d), wt.DoubleShift)
			}
		}
		r.terms = append(r.terms, "double_shift")
	}

	if wt.NightMorningTransition > 0 && r.in.Requirements[Morning] > 0 {
		if r.addTransitionPenalties(obj, wt.NightMorningTransition) > 0 {
			r.terms = append(r.terms, "night_morning_transition")
		}
	}

	if wt.SoftRuleViolation > 0 && r.softTerms > 0 {
		obj.AddExpr(r.soft, wt.SoftRuleViolation)
		r.terms = append(r.terms, "soft_rule_violation")
	}

	r.m.Minimize(obj)
}

// addRange adds weight*(max-min) of vars to obj
func (r *RosterModel) addRange(obj *cpsat.LinearExpr, metric string, vars []cpsat.IntVar, hi, weight int64) {
	lo := r.m.NewIntVar(0, hi, "min_"+metric)
	up := r.m.NewIntVar(0, hi, "max_"+metric)
	r.m.AddMinEquality(lo, vars)
	r.m.AddMaxEquality(up, vars)
	obj.AddTerm(up, weight).AddTerm(lo, -weight)
}

// addTransitionPenalties penalizes a morning that follows a night. In
// after_double mode only a night+afternoon double counts. Returns the number
// of indicators added
func (r *RosterModel) addTransitionPenalties(obj *cpsat.LinearExpr, weight int64) int {
	mode := r.opts.transitionMode()
	n := 0
	for w, worker := range r.in.Workers {
		prev := r.prev[w]
		if (mode == TransitionAfterDouble && prev.EndedOnDouble()) ||
			(mode == TransitionAfterNight && prev.Worked(Night)) {
			obj.AddTerm(r.shift[w][0][Morning], weight)
			n++
		}
		if r.in.Requirements[Night] == 0 {
			continue
		}
		for d := 0; d+1 < r.numDays(); d++ {
			cause := r.shift[w][d][Night].Lit()
			if mode == TransitionAfterDouble {
				cause = r.doubleAt(w, d).Lit()
			}
			t := r.m.NewBoolVar(fmt.Sprintf("night_morning_%s_d%d", worker.ID, d))
			r.m.AddConjunctionEquality(t, cause, r.shift[w][d+1][Morning].Lit())
			obj.AddTerm(t, weight)
			n++
		}
	}
	return n
}
