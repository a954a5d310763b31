package models

import "encoding/json"

// Shift codes used on the wire
const (
	ShiftMorning   = 1
	ShiftAfternoon = 2
	ShiftNight     = 3
)

// RuleSpec is an individual availability rule as submitted by the client
type RuleSpec struct {
	Type     string          `json:"type"`
	Strength string          `json:"strength,omitempty"`
	Value    json.RawMessage `json:"value,omitempty"`
}

// Worker is a person who can be rostered. Profile is passed through untouched
type Worker struct {
	ID      string          `json:"id" validate:"required"`
	Profile json.RawMessage `json:"profile,omitempty"`
	Rules   []RuleSpec      `json:"rules,omitempty"`
}

// Period is the date range being scheduled
type Period struct {
	StartDate string `json:"start_date" validate:"required"`
	EndDate   string `json:"end_date" validate:"required"`
	Holidays  []int  `json:"holidays,omitempty" validate:"omitempty,dive,min=1,max=31"`
}

// WorkerHistory is one worker's assignments in a previous period, keyed by ISO date
type WorkerHistory struct {
	Shifts map[string][]int `json:"shifts"`
}

// PreviousSchedule is the tail of the previous period. A successful response's
// days and worker_schedules can be fed back here unchanged
type PreviousSchedule struct {
	Days            []string                 `json:"days"`
	WorkerSchedules map[string]WorkerHistory `json:"worker_schedules"`
}

// ScheduleRequest is the body of the schedule endpoints. Nil numeric fields
// take their defaults
type ScheduleRequest struct {
	Workers              []Worker          `json:"workers" validate:"required,min=1,dive"`
	Schedule             Period            `json:"schedule"`
	RequiredMorning      *int              `json:"required_morning,omitempty" validate:"omitempty,min=0"`
	RequiredAfternoon    *int              `json:"required_afternoon,omitempty" validate:"omitempty,min=0"`
	RequiredNight        *int              `json:"required_night,omitempty" validate:"omitempty,min=0"`
	MaxConsecutiveShifts *int              `json:"max_consecutive_shifts,omitempty" validate:"omitempty,min=0"`
	TargetOffDays        *int              `json:"target_off_days,omitempty" validate:"omitempty,min=0"`
	SolverTimeLimit      *int              `json:"solver_time_limit,omitempty" validate:"omitempty,min=1,max=86400"`
	PreviousSchedule     *PreviousSchedule `json:"previous_schedule,omitempty"`
}

// WorkerSchedule is one worker's roster: ISO date -> sorted shift codes
type WorkerSchedule struct {
	Worker Worker           `json:"worker"`
	Shifts map[string][]int `json:"shifts"`
}

// ShiftCounts are per-worker totals over the period
type ShiftCounts struct {
	Morning   int `json:"morning"`
	Afternoon int `json:"afternoon"`
	Night     int `json:"night"`
	Total     int `json:"total"`
	Doubles   int `json:"night_afternoon_double"`
	DaysOff   int `json:"days_off"`
}

// FairnessReport holds the literal min/max of each per-worker metric
type FairnessReport struct {
	OffDaysMin     int `json:"off_days_min"`
	OffDaysMax     int `json:"off_days_max"`
	TotalShiftsMin int `json:"total_shifts_min"`
	TotalShiftsMax int `json:"total_shifts_max"`
	MorningMin     int `json:"morning_min"`
	MorningMax     int `json:"morning_max"`
	AfternoonMin   int `json:"afternoon_min"`
	AfternoonMax   int `json:"afternoon_max"`
	NightMin       int `json:"night_min"`
	NightMax       int `json:"night_max"`
	TotalDoubles   int `json:"total_night_afternoon_doubles"`
}

// Diagnostic describes an individual rule that was skipped
type Diagnostic struct {
	WorkerID  string `json:"worker_id"`
	RuleIndex int    `json:"rule_index"`
	RuleType  string `json:"rule_type"`
	Reason    string `json:"reason"`
}

// ScheduleResponse is the result of a successful solve
type ScheduleResponse struct {
	WorkerSchedules map[string]WorkerSchedule `json:"worker_schedules"`
	ShiftCounts     map[string]ShiftCounts    `json:"shift_counts"`
	Days            []string                  `json:"days"`
	StartDate       string                    `json:"start_date"`
	EndDate         string                    `json:"end_date"`
	Holidays        []int                     `json:"holidays"`
	SolverStatus    string                    `json:"solver_status"`
	PenaltyValue    float64                   `json:"penalty_value"`
	FairnessReport  FairnessReport            `json:"fairness_report"`
	Diagnostics     []Diagnostic              `json:"diagnostics,omitempty"`
	RequestID       string                    `json:"request_id,omitempty"`
}

// ModelStats summarises a built model without solving it
type ModelStats struct {
	Workers     int `json:"workers"`
	Days        int `json:"days"`
	Variables   int `json:"variables"`
	Constraints int `json:"constraints"`
	HardRules   int `json:"hard_rules"`
	SoftRules   int `json:"soft_rules"`
}

// ValidationResponse is the result of the validate endpoint
type ValidationResponse struct {
	Valid        bool         `json:"valid"`
	Days         []string     `json:"days"`
	HasObjective bool         `json:"has_objective"`
	Stats        ModelStats   `json:"stats"`
	Diagnostics  []Diagnostic `json:"diagnostics,omitempty"`
	Warnings     []string     `json:"warnings,omitempty"`
}

// ErrorResponse is returned on failure
type ErrorResponse struct {
	Error       string   `json:"error"`
	Explanation []string `json:"explanation,omitempty"`
	RequestID   string   `json:"request_id,omitempty"`
}
