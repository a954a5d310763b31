package cpsat

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func solve(t *testing.T, m *Model, workers int) *Response {
	t.Helper()
	resp, err := Solve(context.Background(), m, Params{TimeLimit: 5 * time.Second, Workers: workers})
	require.NoError(t, err)
	return resp
}

func TestSolve_LinearEquality(t *testing.T) {
	m := NewModel()
	x := m.NewIntVar(0, 10, "x")
	y := m.NewIntVar(0, 10, "y")
	m.AddEquality(Sum(x, y), 7)
	m.AddEquality(NewLinearExpr().AddTerm(x, 1).AddTerm(y, -1), 1)

	resp := solve(t, m, 1)

	assert.Equal(t, StatusOptimal, resp.Status)
	assert.Equal(t, int64(4), resp.Value(x))
	assert.Equal(t, int64(3), resp.Value(y))
	assert.Equal(t, 0.0, resp.ObjectiveValue())
}

func TestSolve_Minimize(t *testing.T) {
	m := NewModel()
	x := m.NewIntVar(0, 10, "x")
	y := m.NewIntVar(0, 10, "y")
	m.AddGreaterOrEqual(NewLinearExpr().AddTerm(x, 1).AddTerm(y, 2), 7)
	m.Minimize(NewLinearExpr().AddTerm(x, 3).AddTerm(y, 1).AddConstant(10))

	resp := solve(t, m, 1)

	require.Equal(t, StatusOptimal, resp.Status)
	assert.Equal(t, int64(0), resp.Value(x))
	assert.Equal(t, int64(4), resp.Value(y))
	assert.Equal(t, 14.0, resp.ObjectiveValue())
}

func TestSolve_EnforcedConstraintRefutesLiteral(t *testing.T) {
	m := NewModel()
	b := m.NewBoolVar("b")
	x := m.NewIntVar(0, 10, "x")
	m.AddGreaterOrEqual(Sum(x), 5).OnlyEnforceIf(b.Lit())
	m.AddLessOrEqual(Sum(x), 3)
	m.Minimize(NewLinearExpr().AddLiteral(b.Not(), 1))

	resp := solve(t, m, 1)

	require.Equal(t, StatusOptimal, resp.Status)
	assert.False(t, resp.BoolValue(b))
	assert.Equal(t, 1.0, resp.ObjectiveValue())
}

func TestSolve_NegatedEnforcement(t *testing.T) {
	m := NewModel()
	off := m.NewBoolVar("off")
	units := m.NewIntVar(0, 2, "units")
	m.AddEquality(Sum(units), 0).OnlyEnforceIf(off.Lit())
	m.AddGreaterOrEqual(Sum(units), 1).OnlyEnforceIf(off.Not())
	m.AddEquality(Sum(units), 2)

	resp := solve(t, m, 1)

	require.Equal(t, StatusOptimal, resp.Status)
	assert.False(t, resp.BoolValue(off))
}

func TestSolve_Conjunction(t *testing.T) {
	tests := []struct {
		name  string
		a, b  int64
		wantT bool
	}{
		{"both true", 1, 1, true},
		{"one false", 1, 0, false},
		{"both false", 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewModel()
			a := m.NewBoolVar("a")
			b := m.NewBoolVar("b")
			target := m.NewBoolVar("a_and_b")
			m.AddConjunctionEquality(target, a.Lit(), b.Lit())
			m.AddEquality(Sum(a), tt.a)
			m.AddEquality(Sum(b), tt.b)

			resp := solve(t, m, 1)

			require.Equal(t, StatusOptimal, resp.Status)
			assert.Equal(t, tt.wantT, resp.BoolValue(target))
		})
	}
}

func TestSolve_Implication(t *testing.T) {
	m := NewModel()
	a := m.NewBoolVar("a")
	b := m.NewBoolVar("b")
	m.AddImplication(a.Lit(), b.Not())
	m.AddEquality(Sum(a), 1)
	m.Minimize(NewLinearExpr().AddLiteral(b.Not(), 1))

	resp := solve(t, m, 1)

	require.Equal(t, StatusOptimal, resp.Status)
	assert.False(t, resp.BoolValue(b))
}

func TestSolve_MinMaxEquality(t *testing.T) {
	m := NewModel()
	var xs []IntVar
	for i, v := range []int64{3, 7, 5} {
		x := m.NewIntVar(0, 10, fmt.Sprintf("x%d", i))
		m.AddEquality(Sum(x), v)
		xs = append(xs, x)
	}
	lo := m.NewIntVar(0, 10, "lo")
	hi := m.NewIntVar(0, 10, "hi")
	m.AddMinEquality(lo, xs)
	m.AddMaxEquality(hi, xs)
	m.Minimize(NewLinearExpr().AddTerm(hi, 1).AddTerm(lo, -1))

	resp := solve(t, m, 1)

	require.Equal(t, StatusOptimal, resp.Status)
	assert.Equal(t, int64(3), resp.Value(lo))
	assert.Equal(t, int64(7), resp.Value(hi))
	assert.Equal(t, 4.0, resp.ObjectiveValue())
}

func TestSolve_InfeasibleAtRootExplains(t *testing.T) {
	m := NewModel()
	x := m.NewBoolVar("x")
	m.AddEquality(Sum(x), 0).WithName("rule: no morning")
	m.AddEquality(Sum(x), 1).WithName("staffing: morning")

	resp := solve(t, m, 1)

	assert.Equal(t, StatusInfeasible, resp.Status)
	assert.False(t, resp.Status.HasSolution())
	assert.ElementsMatch(t, []string{"rule: no morning", "staffing: morning"}, resp.Explanation())
}

func TestSolve_ModelInvalid(t *testing.T) {
	m := NewModel()
	m.NewIntVar(5, 1, "broken")

	resp := solve(t, m, 1)

	assert.Equal(t, StatusModelInvalid, resp.Status)
	require.Len(t, resp.Explanation(), 1)
	assert.Contains(t, resp.Explanation()[0], "broken")
}

func TestSolve_EmptyMinEqualityIsInvalid(t *testing.T) {
	m := NewModel()
	lo := m.NewIntVar(0, 1, "lo")
	m.AddMinEquality(lo, nil)

	resp := solve(t, m, 1)

	assert.Equal(t, StatusModelInvalid, resp.Status)
}

func TestSolve_NilModel(t *testing.T) {
	_, err := Solve(context.Background(), nil, Params{})
	assert.Error(t, err)
}

// pigeonhole builds n pigeons into n-1 holes, which root propagation cannot
// refute on its own
func pigeonhole(n int) *Model {
	m := NewModel()
	holes := n - 1
	in := make([][]BoolVar, n)
	for p := 0; p < n; p++ {
		in[p] = make([]BoolVar, holes)
		for h := 0; h < holes; h++ {
			in[p][h] = m.NewBoolVar(fmt.Sprintf("p%d_h%d", p, h))
		}
		m.AddEquality(Sum(in[p]...), 1)
	}
	for h := 0; h < holes; h++ {
		col := NewLinearExpr()
		for p := 0; p < n; p++ {
			col.AddTerm(in[p][h], 1)
		}
		m.AddLessOrEqual(col, 1)
	}
	return m
}

func TestSolve_ParallelProvesInfeasibility(t *testing.T) {
	defer goleak.VerifyNone(t)

	resp := solve(t, pigeonhole(5), 4)

	assert.Equal(t, StatusInfeasible, resp.Status)
	assert.Positive(t, resp.Branches)
}

func TestSolve_TimeLimitStopsWorkers(t *testing.T) {
	defer goleak.VerifyNone(t)

	resp, err := Solve(context.Background(), pigeonhole(11), Params{TimeLimit: 50 * time.Millisecond, Workers: 3})
	require.NoError(t, err)

	assert.Contains(t, []Status{StatusUnknown, StatusInfeasible}, resp.Status)
	assert.Less(t, resp.WallTime, 5*time.Second)
}

func TestSolve_SingleWorkerIsReproducible(t *testing.T) {
	build := func() (*Model, []BoolVar) {
		m := NewModel()
		var bs []BoolVar
		for i := 0; i < 6; i++ {
			bs = append(bs, m.NewBoolVar(fmt.Sprintf("b%d", i)))
		}
		m.AddEquality(Sum(bs...), 3)
		return m, bs
	}

	m1, bs1 := build()
	m2, bs2 := build()
	r1 := solve(t, m1, 1)
	r2 := solve(t, m2, 1)

	require.Equal(t, StatusOptimal, r1.Status)
	for i := range bs1 {
		assert.Equal(t, r1.BoolValue(bs1[i]), r2.BoolValue(bs2[i]))
	}
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "OPTIMAL", StatusOptimal.String())
	assert.Equal(t, "FEASIBLE", StatusFeasible.String())
	assert.Equal(t, "INFEASIBLE", StatusInfeasible.String())
	assert.Equal(t, "UNKNOWN", StatusUnknown.String())
	assert.Equal(t, "MODEL_INVALID", StatusModelInvalid.String())
	assert.Equal(t, "UNKNOWN", Status(42).String())
}

func TestDivisionRounding(t *testing.T) {
	tests := []struct {
		a, b        int64
		floor, ceil int64
	}{
		{7, 2, 3, 4},
		{-7, 2, -4, -3},
		{7, -2, -4, -3},
		{-7, -2, 3, 4},
		{6, 3, 2, 2},
		{0, -5, 0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.floor, floorDiv(tt.a, tt.b), "floor(%d/%d)", tt.a, tt.b)
		assert.Equal(t, tt.ceil, ceilDiv(tt.a, tt.b), "ceil(%d/%d)", tt.a, tt.b)
	}
}
