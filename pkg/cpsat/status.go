package cpsat

// Status is the outcome of a solve
type Status int

const (
	// StatusUnknown means no solution was found within the time budget and
	// nothing was proven
	StatusUnknown Status = iota
	// StatusModelInvalid means the model failed validation
	StatusModelInvalid
	// StatusFeasible means a solution was found but not proven optimal
	StatusFeasible
	// StatusInfeasible means the constraints were proven contradictory
	StatusInfeasible
	// StatusOptimal means the best solution was found and proven optimal, or
	// a solution was found for a model without objective
	StatusOptimal
)

var statusNames = map[Status]string{
	StatusUnknown:      "UNKNOWN",
	StatusModelInvalid: "MODEL_INVALID",
	StatusFeasible:     "FEASIBLE",
	StatusInfeasible:   "INFEASIBLE",
	StatusOptimal:      "OPTIMAL",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// HasSolution reports whether variable values are available
func (s Status) HasSolution() bool {
	return s == StatusOptimal || s == StatusFeasible
}
