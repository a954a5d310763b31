package scheduler

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/arnavshah/roster-solver-go/pkg/models"
	"github.com/teambition/rrule-go"
)

// RuleKind is the closed set of individual rules
type RuleKind int

const (
	RuleWeekdayOff RuleKind = iota + 1
	RuleShiftTypeOff
	RuleNoDouble
	RuleDaysOfMonthOff
	RuleRecurringOff
	RuleRequestShifts
)

// Strength says whether a rule is enforced or only penalized
type Strength int

const (
	Hard Strength = iota
	Soft
)

func (s Strength) String() string {
	if s == Soft {
		return "soft"
	}
	return "hard"
}

// ShiftRequest asks for a shift on a day of the month
type ShiftRequest struct {
	DayOfMonth int
	Shift      ShiftType
}

// Rule is a parsed individual rule. Only the fields of its Kind are set
type Rule struct {
	Kind     RuleKind
	Tag      string
	Strength Strength

	Weekday  time.Weekday
	Shift    ShiftType
	Days     []int
	Requests []ShiftRequest

	// offDates holds the ISO dates a recurrence selects within the period
	offDates map[string]bool
}

// Rule tags accepted on the wire
const (
	TagNoMorningShifts   = "no_morning_shifts"
	TagNoAfternoonShifts = "no_afternoon_shifts"
	TagNoNightShifts     = "no_night_shifts"
	TagNoDouble          = "no_night_afternoon_double"
	TagNoSpecificDays    = "no_specific_days"
	TagNoRecurringDays   = "no_recurring_days"
	TagRequestShifts     = "request_specific_shifts_on_days"
)

var weekdayTags = map[string]time.Weekday{
	"no_mondays":    time.Monday,
	"no_tuesdays":   time.Tuesday,
	"no_wednesdays": time.Wednesday,
	"no_thursdays":  time.Thursday,
	"no_fridays":    time.Friday,
	"no_saturdays":  time.Saturday,
	"no_sundays":    time.Sunday,
}

var shiftTags = map[string]ShiftType{
	TagNoMorningShifts:   Morning,
	TagNoAfternoonShifts: Afternoon,
	TagNoNightShifts:     Night,
}

// ParseRule validates a rule against the period it will be applied to
func ParseRule(spec models.RuleSpec, days []CalendarDay) (Rule, error) {
	tag := strings.TrimSpace(spec.Type)
	if tag == "" {
		return Rule{}, fmt.Errorf("%w: missing type", ErrMalformedRule)
	}
	r := Rule{Tag: tag}

	switch strings.ToLower(strings.TrimSpace(spec.Strength)) {
	case "", "hard":
		r.Strength = Hard
	case "soft":
		r.Strength = Soft
	default:
		return Rule{}, fmt.Errorf("%w %q", ErrUnknownStrength, spec.Strength)
	}

	if wd, ok := weekdayTags[tag]; ok {
		r.Kind = RuleWeekdayOff
		r.Weekday = wd
		return r, nil
	}
	if s, ok := shiftTags[tag]; ok {
		r.Kind = RuleShiftTypeOff
		r.Shift = s
		return r, nil
	}

	var err error
	switch tag {
	case TagNoDouble:
		r.Kind = RuleNoDouble
	case TagNoSpecificDays:
		r.Kind = RuleDaysOfMonthOff
		r.Days, err = parseDayNumbers(spec.Value)
	case TagNoRecurringDays:
		r.Kind = RuleRecurringOff
		r.offDates, err = parseRecurrence(spec.Value, days)
	case TagRequestShifts:
		r.Kind = RuleRequestShifts
		r.Requests, err = parseShiftRequests(spec.Value)
	default:
		return Rule{}, fmt.Errorf("%w %q", ErrUnknownRule, tag)
	}
	if err != nil {
		return Rule{}, err
	}
	return r, nil
}

// OffOn reports whether a day-off rule selects day
func (r Rule) OffOn(day CalendarDay) bool {
	switch r.Kind {
	case RuleWeekdayOff:
		return day.Date.Weekday() == r.Weekday
	case RuleDaysOfMonthOff:
		for _, n := range r.Days {
			if day.Date.Day() == n {
				return true
			}
		}
	case RuleRecurringOff:
		return r.offDates[day.ISO()]
	}
	return false
}

// ParseRules parses a worker's rules, turning every rejected rule into a
// diagnostic instead of an error
func ParseRules(w models.Worker, days []CalendarDay) ([]Rule, []models.Diagnostic) {
	var rules []Rule
	var diags []models.Diagnostic
	for i, spec := range w.Rules {
		r, err := ParseRule(spec, days)
		if err != nil {
			diags = append(diags, models.Diagnostic{
				WorkerID:  w.ID,
				RuleIndex: i,
				RuleType:  spec.Type,
				Reason:    err.Error(),
			})
			continue
		}
		rules = append(rules, r)
	}
	return rules, diags
}

func parseDayNumbers(raw json.RawMessage) ([]int, error) {
	var values []any
	if err := json.Unmarshal(raw, &values); err != nil || len(values) == 0 {
		return nil, fmt.Errorf("%w: value must be a non-empty list of day numbers", ErrMalformedRule)
	}
	out := make([]int, 0, len(values))
	for _, v := range values {
		n, ok := asInt(v)
		if !ok || n < 1 || n > 31 {
			return nil, fmt.Errorf("%w: %v is not a day of the month", ErrMalformedRule, v)
		}
		out = append(out, n)
	}
	return out, nil
}

func parseShiftRequests(raw json.RawMessage) ([]ShiftRequest, error) {
	var values []struct {
		Day   any `json:"day"`
		Shift any `json:"shift_type"`
	}
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("%w: value must be a list of {day, shift_type}", ErrMalformedRule)
	}
	var out []ShiftRequest
	for _, v := range values {
		if isBlank(v.Day) && isBlank(v.Shift) {
			continue
		}
		day, ok := asInt(v.Day)
		if !ok || day < 1 || day > 31 {
			return nil, fmt.Errorf("%w: %v is not a day of the month", ErrMalformedRule, v.Day)
		}
		code, _ := asInt(v.Shift)
		s, ok := ShiftFromCode(code)
		if !ok {
			return nil, fmt.Errorf("%w: %v is not a shift code", ErrMalformedRule, v.Shift)
		}
		out = append(out, ShiftRequest{DayOfMonth: day, Shift: s})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no shift requested", ErrMalformedRule)
	}
	return out, nil
}

func parseRecurrence(raw json.RawMessage, days []CalendarDay) (map[string]bool, error) {
	var text string
	if err := json.Unmarshal(raw, &text); err != nil || strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: value must be an RRULE string", ErrMalformedRule)
	}
	opt, err := rrule.StrToROption(strings.TrimPrefix(strings.TrimSpace(text), "RRULE:"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRule, err)
	}
	dates := make(map[string]bool)
	if len(days) == 0 {
		return dates, nil
	}
	first, last := days[0].Date, days[len(days)-1].Date
	if opt.Dtstart.IsZero() {
		opt.Dtstart = first
	}
	rule, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRule, err)
	}
	for _, t := range rule.Between(first, last.AddDate(0, 0, 1), true) {
		dates[t.UTC().Format(dateLayout)] = true
	}
	return dates, nil
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case float64:
		if x != math.Trunc(x) {
			return 0, false
		}
		return int(x), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		return n, err == nil
	}
	return 0, false
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}
