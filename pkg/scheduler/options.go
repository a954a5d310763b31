package scheduler

import (
	"runtime"
	"time"
)

// TransitionMode selects which nights make a following morning penalized
type TransitionMode string

const (
	// TransitionAfterDouble penalizes a morning after a night+afternoon double
	TransitionAfterDouble TransitionMode = "after_double"
	// TransitionAfterNight penalizes a morning after any night
	TransitionAfterNight TransitionMode = "after_night"
)

// Weights are the objective coefficients. A zero weight disables its term
type Weights struct {
	OffDayDeficit          int64 `yaml:"off_day_deficit" validate:"gte=0"`
	ShiftTypeImbalance     int64 `yaml:"shift_type_imbalance" validate:"gte=0"`
	TotalShiftImbalance    int64 `yaml:"total_shift_imbalance" validate:"gte=0"`
	OffDayImbalance        int64 `yaml:"off_day_imbalance" validate:"gte=0"`
	DoubleShift            int64 `yaml:"double_shift" validate:"gte=0"`
	SoftRuleViolation      int64 `yaml:"soft_rule_violation" validate:"gte=0"`
	NightMorningTransition int64 `yaml:"night_morning_transition" validate:"gte=0"`
}

// Limits are the period-wide hard limits. A value <= 0 disables its family
type Limits struct {
	MaxConsecutiveSameShift int `yaml:"max_consecutive_same_shift"`
	MaxConsecutiveOffDays   int `yaml:"max_consecutive_off_days"`
	MinOffDaysInWindow      int `yaml:"min_off_days_in_window"`
	OffWindowSize           int `yaml:"off_window_size"`
}

// Options configures model construction and the solve
type Options struct {
	Weights        Weights
	Limits         Limits
	TransitionMode TransitionMode

	// Workers is the number of parallel search workers
	Workers int
	// MaxTimeLimit caps the per-request solver_time_limit. Zero means no cap
	MaxTimeLimit time.Duration
	Seed         int64
}

// Request defaults applied when a field is omitted
const (
	DefaultRequiredMorning      = 2
	DefaultRequiredAfternoon    = 3
	DefaultRequiredNight        = 2
	DefaultMaxConsecutiveShifts = 6
	DefaultTargetOffDays        = 8
	DefaultSolverTimeLimit      = 60
)

// DefaultWeights follow the priority deficit > type imbalance > total
// imbalance > off imbalance > double > soft rule > transition
func DefaultWeights() Weights {
	return Weights{
		OffDayDeficit:          20,
		ShiftTypeImbalance:     12,
		TotalShiftImbalance:    10,
		OffDayImbalance:        7,
		DoubleShift:            4,
		SoftRuleViolation:      3,
		NightMorningTransition: 1,
	}
}

// DefaultLimits returns the standard period limits
func DefaultLimits() Limits {
	return Limits{
		MaxConsecutiveSameShift: 2,
		MaxConsecutiveOffDays:   2,
		MinOffDaysInWindow:      0,
		OffWindowSize:           7,
	}
}

// DefaultOptions returns options with default weights, limits and one search
// worker per CPU, capped at 8
func DefaultOptions() Options {
	workers := runtime.NumCPU()
	if workers > 8 {
		workers = 8
	}
	return Options{
		Weights:        DefaultWeights(),
		Limits:         DefaultLimits(),
		TransitionMode: TransitionAfterDouble,
		Workers:        workers,
		MaxTimeLimit:   5 * time.Minute,
	}
}

func (o Options) transitionMode() TransitionMode {
	if o.TransitionMode == TransitionAfterNight {
		return TransitionAfterNight
	}
	return TransitionAfterDouble
}
