package scheduler

import (
	"sort"

	"github.com/arnavshah/roster-solver-go/pkg/models"
)

// PreviousPeriodState is a worker's tail of the previous period
type PreviousPeriodState struct {
	// LastDayShifts is the sorted set of shifts worked on the final day
	LastDayShifts []ShiftType
	// ConsecutiveShifts counts shift-units, not days, in the run that ends on
	// the final day
	ConsecutiveShifts int
	WasOffLastDay     bool
}

// Worked reports whether s was worked on the final day
func (p PreviousPeriodState) Worked(s ShiftType) bool {
	for _, x := range p.LastDayShifts {
		if x == s {
			return true
		}
	}
	return false
}

// EndedOnDouble reports whether the final day was a night+afternoon double
func (p PreviousPeriodState) EndedOnDouble() bool {
	return p.Worked(Night) && p.Worked(Afternoon)
}

func defaultPreviousState() PreviousPeriodState {
	return PreviousPeriodState{WasOffLastDay: true}
}

// ExtractContinuity derives a worker's carry-over state from a previous
// schedule. Missing data yields the "off, zero count" default
func ExtractContinuity(workerID string, prev *models.PreviousSchedule) PreviousPeriodState {
	if prev == nil || len(prev.Days) == 0 {
		return defaultPreviousState()
	}
	history, ok := prev.WorkerSchedules[workerID]
	if !ok {
		return defaultPreviousState()
	}

	state := defaultPreviousState()
	state.LastDayShifts = shiftSet(history.Shifts[prev.Days[len(prev.Days)-1]])
	state.WasOffLastDay = len(state.LastDayShifts) == 0

	for i := len(prev.Days) - 1; i >= 0; i-- {
		n := len(shiftSet(history.Shifts[prev.Days[i]]))
		if n == 0 {
			break
		}
		state.ConsecutiveShifts += n
	}
	return state
}

// shiftSet turns wire codes into a sorted, de-duplicated set. Unknown codes
// are dropped
func shiftSet(codes []int) []ShiftType {
	var seen [numShiftTypes]bool
	var out []ShiftType
	for _, c := range codes {
		s, ok := ShiftFromCode(c)
		if !ok || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
