package cpsat

import (
	"fmt"
	"math"
)

// inf marks an open side of a linear constraint. It is far away from any
// domain bound so sums of bounded terms never reach it
const inf int64 = math.MaxInt64 / 4

// Var is implemented by IntVar and BoolVar
type Var interface {
	Index() int
}

// IntVar is a handle to a bounded integer variable of a Model
type IntVar struct{ index int }

// Index returns the position of the variable in its model
func (v IntVar) Index() int { return v.index }

// BoolVar is an integer variable with domain [0, 1]
type BoolVar struct{ index int }

// Index returns the position of the variable in its model
func (b BoolVar) Index() int { return b.index }

// Lit returns the positive literal of b
func (b BoolVar) Lit() Literal { return Literal{index: b.index} }

// Not returns the negated literal of b
func (b BoolVar) Not() Literal { return Literal{index: b.index, negated: true} }

// Int returns b viewed as an integer variable
func (b BoolVar) Int() IntVar { return IntVar{index: b.index} }

// Literal is a boolean variable or its negation
type Literal struct {
	index   int
	negated bool
}

// Not returns the opposite literal
func (l Literal) Not() Literal { return Literal{index: l.index, negated: !l.negated} }

type term struct {
	index int
	coef  int64
}

// LinearExpr is a weighted sum of variables plus a constant. The zero value
// is an empty expression
type LinearExpr struct {
	terms  []term
	offset int64
}

// NewLinearExpr returns an empty expression
func NewLinearExpr() *LinearExpr { return &LinearExpr{} }

// Sum returns the plain sum of vars
func Sum[V Var](vars ...V) *LinearExpr {
	e := NewLinearExpr()
	for _, v := range vars {
		e.AddTerm(v, 1)
	}
	return e
}

// AddTerm adds coef*v
func (e *LinearExpr) AddTerm(v Var, coef int64) *LinearExpr {
	if coef != 0 {
		e.terms = append(e.terms, term{index: v.Index(), coef: coef})
	}
	return e
}

// AddLiteral adds coef*l, where a negated literal counts as (1 - x)
func (e *LinearExpr) AddLiteral(l Literal, coef int64) *LinearExpr {
	if coef == 0 {
		return e
	}
	if l.negated {
		e.offset += coef
		e.terms = append(e.terms, term{index: l.index, coef: -coef})
		return e
	}
	e.terms = append(e.terms, term{index: l.index, coef: coef})
	return e
}

// AddConstant adds c
func (e *LinearExpr) AddConstant(c int64) *LinearExpr {
	e.offset += c
	return e
}

// AddExpr adds coef*o
func (e *LinearExpr) AddExpr(o *LinearExpr, coef int64) *LinearExpr {
	if o == nil || coef == 0 {
		return e
	}
	for _, t := range o.terms {
		e.terms = append(e.terms, term{index: t.index, coef: t.coef * coef})
	}
	e.offset += o.offset * coef
	return e
}

// Len returns the number of terms before merging
func (e *LinearExpr) Len() int { return len(e.terms) }

// normalized merges duplicate variables and drops zero coefficients
func (e *LinearExpr) normalized() ([]term, int64) {
	if e == nil {
		return nil, 0
	}
	pos := make(map[int]int, len(e.terms))
	out := make([]term, 0, len(e.terms))
	for _, t := range e.terms {
		if i, ok := pos[t.index]; ok {
			out[i].coef += t.coef
			continue
		}
		pos[t.index] = len(out)
		out = append(out, t)
	}
	kept := out[:0]
	for _, t := range out {
		if t.coef != 0 {
			kept = append(kept, t)
		}
	}
	return kept, e.offset
}

type variable struct {
	lo, hi int64
	name   string
}

type linear struct {
	name    string
	terms   []term
	lo, hi  int64
	enforce []Literal
}

// Constraint is a handle used to refine a constraint after it was added
type Constraint struct {
	c *linear
}

// OnlyEnforceIf makes the constraint conditional on all lits being true
func (c Constraint) OnlyEnforceIf(lits ...Literal) Constraint {
	c.c.enforce = append(c.c.enforce, lits...)
	return c
}

// WithName labels the constraint. Names show up in infeasibility explanations
func (c Constraint) WithName(name string) Constraint {
	c.c.name = name
	return c
}

// Model holds variables, constraints and an optional objective to minimize
type Model struct {
	vars      []variable
	cons      []*linear
	objective *LinearExpr
	decisions []int
	defects   []string
}

// NewModel returns an empty model
func NewModel() *Model { return &Model{} }

// NewIntVar declares an integer variable with domain [lo, hi]
func (m *Model) NewIntVar(lo, hi int64, name string) IntVar {
	m.vars = append(m.vars, variable{lo: lo, hi: hi, name: name})
	return IntVar{index: len(m.vars) - 1}
}

// NewBoolVar declares a boolean variable
func (m *Model) NewBoolVar(name string) BoolVar {
	m.vars = append(m.vars, variable{lo: 0, hi: 1, name: name})
	return BoolVar{index: len(m.vars) - 1}
}

// NewConstant declares a variable fixed to value
func (m *Model) NewConstant(value int64) IntVar {
	return m.NewIntVar(value, value, fmt.Sprintf("const_%d", value))
}

// AddLinear constrains lo <= expr <= hi
func (m *Model) AddLinear(expr *LinearExpr, lo, hi int64) Constraint {
	terms, offset := expr.normalized()
	if lo > -inf {
		lo -= offset
	} else {
		lo = -inf
	}
	if hi < inf {
		hi -= offset
	} else {
		hi = inf
	}
	c := &linear{terms: terms, lo: lo, hi: hi}
	m.cons = append(m.cons, c)
	return Constraint{c: c}
}

// AddEquality constrains expr == value
func (m *Model) AddEquality(expr *LinearExpr, value int64) Constraint {
	return m.AddLinear(expr, value, value)
}

// AddLessOrEqual constrains expr <= ub
func (m *Model) AddLessOrEqual(expr *LinearExpr, ub int64) Constraint {
	return m.AddLinear(expr, -inf, ub)
}

// AddGreaterOrEqual constrains expr >= lb
func (m *Model) AddGreaterOrEqual(expr *LinearExpr, lb int64) Constraint {
	return m.AddLinear(expr, lb, inf)
}

// AddImplication constrains a => b
func (m *Model) AddImplication(a, b Literal) Constraint {
	return m.AddGreaterOrEqual(NewLinearExpr().AddLiteral(b, 1), 1).OnlyEnforceIf(a)
}

// AddConjunctionEquality constrains target == AND(lits)
func (m *Model) AddConjunctionEquality(target BoolVar, lits ...Literal) {
	if len(lits) == 0 {
		m.AddEquality(Sum(target), 1)
		return
	}
	all := NewLinearExpr()
	for _, l := range lits {
		m.AddImplication(target.Lit(), l)
		all.AddLiteral(l, 1)
	}
	all.AddTerm(target, -1)
	m.AddLessOrEqual(all, int64(len(lits)-1))
}

// AddMinEquality constrains target == min(vars)
func (m *Model) AddMinEquality(target IntVar, vars []IntVar) {
	m.addExtremum(target, vars, "min")
}

// AddMaxEquality constrains target == max(vars)
func (m *Model) AddMaxEquality(target IntVar, vars []IntVar) {
	m.addExtremum(target, vars, "max")
}

func (m *Model) addExtremum(target IntVar, vars []IntVar, kind string) {
	if len(vars) == 0 {
		m.defects = append(m.defects, fmt.Sprintf("%s equality on %s has no arguments", kind, m.varName(target.index)))
		return
	}
	sign := int64(1)
	if kind == "max" {
		sign = -1
	}
	witnesses := NewLinearExpr()
	for i, x := range vars {
		diff := NewLinearExpr().AddTerm(target, sign).AddTerm(x, -sign)
		m.AddLessOrEqual(diff, 0)
		b := m.NewBoolVar(fmt.Sprintf("%s_%s_arg%d", kind, m.varName(target.index), i))
		m.AddGreaterOrEqual(NewLinearExpr().AddTerm(target, sign).AddTerm(x, -sign), 0).OnlyEnforceIf(b.Lit())
		witnesses.AddTerm(b, 1)
	}
	m.AddGreaterOrEqual(witnesses, 1)
}

// Minimize sets the objective. A nil or empty expression clears it
func (m *Model) Minimize(expr *LinearExpr) {
	if expr == nil || len(expr.terms) == 0 {
		m.objective = nil
		return
	}
	m.objective = expr
}

// HasObjective reports whether an objective is set
func (m *Model) HasObjective() bool { return m.objective != nil }

// AddDecisionStrategy lists variables the search branches on first, in order
func (m *Model) AddDecisionStrategy(vars ...Var) {
	for _, v := range vars {
		m.decisions = append(m.decisions, v.Index())
	}
}

// NumVariables returns the number of declared variables
func (m *Model) NumVariables() int { return len(m.vars) }

// NumConstraints returns the number of linear constraints after reduction of
// the higher level primitives
func (m *Model) NumConstraints() int { return len(m.cons) }

func (m *Model) varName(i int) string {
	if i < 0 || i >= len(m.vars) {
		return fmt.Sprintf("var#%d", i)
	}
	if m.vars[i].name != "" {
		return m.vars[i].name
	}
	return fmt.Sprintf("var#%d", i)
}

// Validate reports structural defects that make the model unsolvable as
// stated: empty domains, dangling references or malformed primitives
func (m *Model) Validate() error {
	if len(m.defects) > 0 {
		return fmt.Errorf("invalid model: %s", m.defects[0])
	}
	for i, v := range m.vars {
		if v.lo > v.hi {
			return fmt.Errorf("invalid model: variable %s has empty domain [%d, %d]", m.varName(i), v.lo, v.hi)
		}
		if v.lo <= -inf || v.hi >= inf {
			return fmt.Errorf("invalid model: variable %s domain is too wide", m.varName(i))
		}
	}
	check := func(idx int, where string) error {
		if idx < 0 || idx >= len(m.vars) {
			return fmt.Errorf("invalid model: %s references unknown variable #%d", where, idx)
		}
		return nil
	}
	for ci, c := range m.cons {
		where := c.name
		if where == "" {
			where = fmt.Sprintf("constraint #%d", ci)
		}
		for _, t := range c.terms {
			if err := check(t.index, where); err != nil {
				return err
			}
		}
		for _, l := range c.enforce {
			if err := check(l.index, where); err != nil {
				return err
			}
			if v := m.vars[l.index]; v.lo < 0 || v.hi > 1 {
				return fmt.Errorf("invalid model: %s is enforced by non-boolean %s", where, m.varName(l.index))
			}
		}
	}
	if m.objective != nil {
		for _, t := range m.objective.terms {
			if err := check(t.index, "objective"); err != nil {
				return err
			}
		}
	}
	for _, d := range m.decisions {
		if err := check(d, "decision strategy"); err != nil {
			return err
		}
	}
	return nil
}
