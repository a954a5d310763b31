package scheduler

import "github.com/arnavshah/roster-solver-go/pkg/models"

// ShiftType is one of the three shifts of a day
type ShiftType int

const (
	Morning ShiftType = iota
	Afternoon
	Night
)

const numShiftTypes = 3

var shiftTypes = [numShiftTypes]ShiftType{Morning, Afternoon, Night}

var shiftNames = [numShiftTypes]string{"morning", "afternoon", "night"}

func (s ShiftType) String() string {
	if s < 0 || int(s) >= numShiftTypes {
		return "unknown"
	}
	return shiftNames[s]
}

// Code returns the wire code of the shift
func (s ShiftType) Code() int {
	switch s {
	case Morning:
		return models.ShiftMorning
	case Afternoon:
		return models.ShiftAfternoon
	default:
		return models.ShiftNight
	}
}

// ShiftFromCode maps a wire code back to a ShiftType
func ShiftFromCode(code int) (ShiftType, bool) {
	switch code {
	case models.ShiftMorning:
		return Morning, true
	case models.ShiftAfternoon:
		return Afternoon, true
	case models.ShiftNight:
		return Night, true
	}
	return 0, false
}
