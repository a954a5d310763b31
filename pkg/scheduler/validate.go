package scheduler

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/arnavshah/roster-solver-go/pkg/models"
	"github.com/go-playground/validator/v10"
)

const (
	// maxPeriodDays bounds a single scheduling period
	maxPeriodDays = 366
	// maxSolverSeconds matches the max tag on ScheduleRequest.SolverTimeLimit
	maxSolverSeconds = 24 * 60 * 60
)

var validate = validator.New()

// Input is a validated request with every default resolved
type Input struct {
	Workers              []models.Worker
	Days                 []CalendarDay
	Requirements         [numShiftTypes]int
	MaxConsecutiveShifts int
	TargetOffDays        int
	TimeLimit            time.Duration
	Previous             *models.PreviousSchedule

	StartDate string
	EndDate   string
	Holidays  []int

	// Warnings are non-fatal notes about the request
	Warnings []string
}

// NewInput validates req and applies defaults. maxTimeLimit caps the
// requested solver time; zero means no cap
func NewInput(req *models.ScheduleRequest, maxTimeLimit time.Duration) (*Input, error) {
	if req == nil {
		return nil, validationError("missing request body", nil)
	}
	if err := validate.Struct(req); err != nil {
		return nil, validationError("invalid request", describeValidation(err))
	}

	seen := make(map[string]bool, len(req.Workers))
	for _, w := range req.Workers {
		id := strings.TrimSpace(w.ID)
		if id == "" {
			return nil, validationError("invalid request", errors.New("worker id must not be blank"))
		}
		if seen[w.ID] {
			return nil, validationError("invalid request", fmt.Errorf("duplicate worker id %q", w.ID))
		}
		seen[w.ID] = true
	}

	days, err := BuildCalendar(req.Schedule.StartDate, req.Schedule.EndDate)
	if err != nil {
		return nil, validationError("invalid schedule period", err)
	}
	if len(days) > maxPeriodDays {
		return nil, validationError("invalid schedule period",
			fmt.Errorf("%w: %d days exceeds the %d day maximum", ErrInvalidDateRange, len(days), maxPeriodDays))
	}

	in := &Input{
		Workers:              req.Workers,
		Days:                 days,
		MaxConsecutiveShifts: intOr(req.MaxConsecutiveShifts, DefaultMaxConsecutiveShifts),
		TargetOffDays:        intOr(req.TargetOffDays, DefaultTargetOffDays),
		Previous:             req.PreviousSchedule,
		StartDate:            req.Schedule.StartDate,
		EndDate:              req.Schedule.EndDate,
		Holidays:             req.Schedule.Holidays,
	}
	in.Requirements[Morning] = intOr(req.RequiredMorning, DefaultRequiredMorning)
	in.Requirements[Afternoon] = intOr(req.RequiredAfternoon, DefaultRequiredAfternoon)
	in.Requirements[Night] = intOr(req.RequiredNight, DefaultRequiredNight)
	if in.Holidays == nil {
		in.Holidays = []int{}
	}

	seconds := intOr(req.SolverTimeLimit, DefaultSolverTimeLimit)
	if seconds <= 0 || int64(seconds) > maxSolverSeconds {
		return nil, validationError("invalid request",
			fmt.Errorf("solver_time_limit must be between 1 and %d seconds", maxSolverSeconds))
	}
	in.TimeLimit = time.Duration(seconds) * time.Second
	if maxTimeLimit > 0 && in.TimeLimit > maxTimeLimit {
		in.Warnings = append(in.Warnings, fmt.Sprintf("solver_time_limit %ds capped at %s", seconds, maxTimeLimit))
		in.TimeLimit = maxTimeLimit
	}
	if in.TimeLimit < 5*time.Second {
		in.Warnings = append(in.Warnings, fmt.Sprintf("solver_time_limit of %s may be too short to find a roster", in.TimeLimit))
	}
	if in.TargetOffDays > len(days) {
		in.Warnings = append(in.Warnings, fmt.Sprintf("target_off_days %d exceeds the %d day period", in.TargetOffDays, len(days)))
	}
	for _, s := range shiftTypes {
		if in.Requirements[s] > len(req.Workers) {
			in.Warnings = append(in.Warnings, fmt.Sprintf("%s requirement %d exceeds the %d workers", s, in.Requirements[s], len(req.Workers)))
		}
	}
	return in, nil
}

// ShiftUnits is the number of shift-units the period requires
func (in *Input) ShiftUnits() int {
	per := 0
	for _, r := range in.Requirements {
		per += r
	}
	return per * len(in.Days)
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

// describeValidation flattens validator errors into one readable error
func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "ScheduleRequest.")
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return errors.New(strings.Join(parts, "; "))
}
