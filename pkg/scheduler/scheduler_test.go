package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/arnavshah/roster-solver-go/pkg/cpsat"
	"github.com/arnavshah/roster-solver-go/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(n int) *int { return &n }

func workers(ids ...string) []models.Worker {
	out := make([]models.Worker, len(ids))
	for i, id := range ids {
		out[i] = models.Worker{ID: id, Profile: json.RawMessage(`{"name":"` + id + `"}`)}
	}
	return out
}

func newRequest(ws []models.Worker, start, end string, morning, afternoon, night int) *models.ScheduleRequest {
	return &models.ScheduleRequest{
		Workers:              ws,
		Schedule:             models.Period{StartDate: start, EndDate: end},
		RequiredMorning:      intp(morning),
		RequiredAfternoon:    intp(afternoon),
		RequiredNight:        intp(night),
		MaxConsecutiveShifts: intp(6),
		TargetOffDays:        intp(0),
		SolverTimeLimit:      intp(20),
	}
}

func testOptions() Options {
	o := DefaultOptions()
	o.Workers = 1
	return o
}

func feasibilityOptions() Options {
	o := testOptions()
	o.Weights = Weights{}
	return o
}

func has(codes []int, code int) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}

// checkRoster asserts the invariants every produced roster must satisfy
func checkRoster(t *testing.T, req *models.ScheduleRequest, opts Options, out *models.ScheduleResponse) {
	t.Helper()
	in, err := NewInput(req, 0)
	require.NoError(t, err)
	days := ISODays(in.Days)
	require.Equal(t, days, out.Days)
	require.Len(t, out.WorkerSchedules, len(req.Workers))

	for d, iso := range days {
		var staffed [numShiftTypes]int
		for _, w := range req.Workers {
			codes := out.WorkerSchedules[w.ID].Shifts[iso]
			for _, s := range shiftTypes {
				if has(codes, s.Code()) {
					staffed[s]++
				}
			}
			assert.False(t, has(codes, models.ShiftMorning) && has(codes, models.ShiftAfternoon), "%s M+A on %s", w.ID, iso)
			assert.False(t, has(codes, models.ShiftMorning) && has(codes, models.ShiftNight), "%s M+N on %s", w.ID, iso)
			if d+1 < len(days) && has(codes, models.ShiftAfternoon) {
				assert.False(t, has(out.WorkerSchedules[w.ID].Shifts[days[d+1]], models.ShiftNight), "%s A then N after %s", w.ID, iso)
			}
		}
		assert.Equal(t, in.Requirements, staffed, "staffing on %s", iso)
	}

	for _, w := range req.Workers {
		shifts := out.WorkerSchedules[w.ID].Shifts
		prev := ExtractContinuity(w.ID, req.PreviousSchedule)

		if prev.Worked(Afternoon) {
			assert.False(t, has(shifts[days[0]], models.ShiftNight), "%s night after carried afternoon", w.ID)
		}

		run := 0
		if !prev.WasOffLastDay {
			run = prev.ConsecutiveShifts
		}
		offRun := 0
		sameRun := map[int]int{}
		for _, iso := range days {
			codes := shifts[iso]
			if len(codes) == 0 {
				run = 0
				offRun++
			} else {
				run += len(codes)
				offRun = 0
			}
			if in.MaxConsecutiveShifts > 0 {
				assert.LessOrEqual(t, run, in.MaxConsecutiveShifts, "%s consecutive shifts at %s", w.ID, iso)
			}
			if k := opts.Limits.MaxConsecutiveOffDays; k > 0 && len(days) > k {
				assert.LessOrEqual(t, offRun, k, "%s consecutive off days at %s", w.ID, iso)
			}
			for _, s := range shiftTypes {
				if has(codes, s.Code()) {
					sameRun[s.Code()]++
				} else {
					sameRun[s.Code()] = 0
				}
				if k := opts.Limits.MaxConsecutiveSameShift; k > 0 && len(days) > k {
					assert.LessOrEqual(t, sameRun[s.Code()], k, "%s consecutive %s at %s", w.ID, s, iso)
				}
			}
		}
	}

	for _, w := range req.Workers {
		shifts := out.WorkerSchedules[w.ID].Shifts
		if size, k := opts.Limits.OffWindowSize, opts.Limits.MinOffDaysInWindow; size > 0 && k > 0 && len(days) >= size {
			for start := 0; start+size <= len(days); start++ {
				off := 0
				for _, iso := range days[start : start+size] {
					if len(shifts[iso]) == 0 {
						off++
					}
				}
				assert.GreaterOrEqual(t, off, k, "%s off days in window from %s", w.ID, days[start])
			}
		}
		checkHardRules(t, w, in.Days, shifts)
	}

	assert.Equal(t, BuildFairnessReport(req.Workers, out.ShiftCounts), out.FairnessReport)
}

// checkHardRules asserts a worker's roster obeys each of its hard rules
func checkHardRules(t *testing.T, w models.Worker, days []CalendarDay, shifts map[string][]int) {
	t.Helper()
	rules, _ := ParseRules(w, days)
	for _, r := range rules {
		if r.Strength != Hard {
			continue
		}
		for _, day := range days {
			codes := shifts[day.ISO()]
			switch r.Kind {
			case RuleWeekdayOff, RuleDaysOfMonthOff, RuleRecurringOff:
				if r.OffOn(day) {
					assert.Empty(t, codes, "%s %s on %s", w.ID, r.Tag, day.ISO())
				}
			case RuleShiftTypeOff:
				assert.False(t, has(codes, r.Shift.Code()), "%s %s on %s", w.ID, r.Tag, day.ISO())
			case RuleNoDouble:
				assert.False(t, has(codes, models.ShiftAfternoon) && has(codes, models.ShiftNight), "%s %s on %s", w.ID, r.Tag, day.ISO())
			case RuleRequestShifts:
				for _, want := range r.Requests {
					if day.Date.Day() == want.DayOfMonth {
						assert.True(t, has(codes, want.Shift.Code()), "%s %s on %s", w.ID, r.Tag, day.ISO())
					}
				}
			}
		}
	}
}

func TestGenerate_TwoWorkersThreeDays(t *testing.T) {
	req := newRequest(workers("w1", "w2"), "2024-05-01", "2024-05-03", 1, 1, 1)
	opts := testOptions()

	res, err := NewScheduler(nil, opts, nil).Generate(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, res.Schedule)

	out := res.Schedule
	assert.Contains(t, []string{"OPTIMAL", "FEASIBLE"}, out.SolverStatus)
	assert.Equal(t, "2024-05-01", out.StartDate)
	assert.Equal(t, []int{}, out.Holidays)
	checkRoster(t, req, opts, out)

	// Three shift-units a day between two workers forces a double every day
	assert.Equal(t, 3, out.FairnessReport.TotalDoubles)
	assert.JSONEq(t, `{"name":"w1"}`, string(out.WorkerSchedules["w1"].Worker.Profile))
	assert.Equal(t, 9, res.Outcome.ShiftUnits)
}

func TestGenerate_HardRuleMakesStaffingImpossible(t *testing.T) {
	ws := workers("w1")
	ws[0].Rules = []models.RuleSpec{{Type: "no_morning_shifts", Strength: "hard"}}
	req := newRequest(ws, "2024-05-01", "2024-05-03", 1, 0, 0)

	res, err := NewScheduler(nil, testOptions(), nil).Generate(context.Background(), req)

	require.Error(t, err)
	assert.Equal(t, KindInfeasible, KindOf(err))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(err))
	require.NotNil(t, res)
	assert.Nil(t, res.Schedule)
	assert.Equal(t, cpsat.StatusInfeasible, res.Outcome.Status)

	explanation := Explanation(err)
	assert.Contains(t, explanation, "rule: no_morning_shifts for w1")
	var staffing bool
	for _, e := range explanation {
		if strings.HasPrefix(e, "staffing:") {
			staffing = true
		}
	}
	assert.True(t, staffing, "explanation %v", explanation)
}

func TestGenerate_RequirementAboveWorkerCountIsInfeasible(t *testing.T) {
	req := newRequest(workers("w1", "w2"), "2024-05-01", "2024-05-02", 3, 0, 0)

	_, err := NewScheduler(nil, feasibilityOptions(), nil).Generate(context.Background(), req)

	assert.Equal(t, KindInfeasible, KindOf(err))
}

func TestGenerate_WeekWithCarryOver(t *testing.T) {
	req := newRequest(workers("w1", "w2", "w3", "w4"), "2024-05-01", "2024-05-07", 1, 1, 1)
	req.MaxConsecutiveShifts = intp(4)
	req.PreviousSchedule = &models.PreviousSchedule{
		Days: []string{"2024-04-29", "2024-04-30"},
		WorkerSchedules: map[string]models.WorkerHistory{
			"w1": {Shifts: map[string][]int{"2024-04-29": {1}, "2024-04-30": {2, 3}}},
		},
	}
	opts := feasibilityOptions()

	res, err := NewScheduler(nil, opts, nil).Generate(context.Background(), req)
	require.NoError(t, err)

	out := res.Schedule
	assert.Equal(t, "OPTIMAL", out.SolverStatus)
	assert.Equal(t, 0.0, out.PenaltyValue)
	checkRoster(t, req, opts, out)
	assert.LessOrEqual(t, len(out.WorkerSchedules["w1"].Shifts["2024-05-01"]), 1)
}

func TestGenerate_FullCarriedRunForcesDayOff(t *testing.T) {
	req := newRequest(workers("w1", "w2", "w3"), "2024-05-01", "2024-05-03", 1, 0, 0)
	req.MaxConsecutiveShifts = intp(3)
	req.PreviousSchedule = &models.PreviousSchedule{
		Days: []string{"2024-04-29", "2024-04-30"},
		WorkerSchedules: map[string]models.WorkerHistory{
			"w1": {Shifts: map[string][]int{"2024-04-29": {1}, "2024-04-30": {2, 3}}},
		},
	}
	opts := feasibilityOptions()

	res, err := NewScheduler(nil, opts, nil).Generate(context.Background(), req)
	require.NoError(t, err)

	assert.Empty(t, res.Schedule.WorkerSchedules["w1"].Shifts["2024-05-01"])
	checkRoster(t, req, opts, res.Schedule)
}

func TestGenerate_MinOffDaysInWindow(t *testing.T) {
	opts := feasibilityOptions()
	opts.Limits.OffWindowSize = 3
	opts.Limits.MinOffDaysInWindow = 2

	t.Run("one shift a day rotates", func(t *testing.T) {
		req := newRequest(workers("w1", "w2", "w3"), "2024-05-01", "2024-05-06", 1, 0, 0)

		res, err := NewScheduler(nil, opts, nil).Generate(context.Background(), req)
		require.NoError(t, err)

		checkRoster(t, req, opts, res.Schedule)
		for id, c := range res.Schedule.ShiftCounts {
			assert.Equal(t, 2, c.Total, "%s works once every three days", id)
		}
	})

	t.Run("two shifts a day cannot fit", func(t *testing.T) {
		req := newRequest(workers("w1", "w2", "w3"), "2024-05-01", "2024-05-06", 1, 1, 0)

		_, err := NewScheduler(nil, opts, nil).Generate(context.Background(), req)
		assert.Equal(t, KindInfeasible, KindOf(err))
	})
}

func TestGenerate_HardRulesInRoster(t *testing.T) {
	tests := []struct {
		name       string
		rules      map[string][]models.RuleSpec
		infeasible bool
		check      func(t *testing.T, out *models.ScheduleResponse)
	}{
		{
			name:  "specific day off",
			rules: map[string][]models.RuleSpec{"w1": {{Type: "no_specific_days", Value: json.RawMessage(`[2]`)}}},
			check: func(t *testing.T, out *models.ScheduleResponse) {
				assert.Empty(t, out.WorkerSchedules["w1"].Shifts["2024-05-02"])
				// the other two cover three shifts, so one of them works a double
				w2 := out.WorkerSchedules["w2"].Shifts["2024-05-02"]
				w3 := out.WorkerSchedules["w3"].Shifts["2024-05-02"]
				assert.ElementsMatch(t, []int{models.ShiftMorning, models.ShiftAfternoon, models.ShiftNight}, append(append([]int{}, w2...), w3...))
			},
		},
		{
			name: "no doubles for anyone",
			rules: map[string][]models.RuleSpec{
				"w1": {{Type: "no_night_afternoon_double"}},
				"w2": {{Type: "no_night_afternoon_double"}},
				"w3": {{Type: "no_night_afternoon_double"}},
			},
			check: func(t *testing.T, out *models.ScheduleResponse) {
				assert.Zero(t, out.FairnessReport.TotalDoubles)
			},
		},
		{
			name:  "no nights",
			rules: map[string][]models.RuleSpec{"w1": {{Type: "no_night_shifts", Strength: "hard"}}},
			check: func(t *testing.T, out *models.ScheduleResponse) {
				assert.Zero(t, out.ShiftCounts["w1"].Night)
			},
		},
		{
			name: "day off with nobody else allowed a double",
			rules: map[string][]models.RuleSpec{
				"w1": {{Type: "no_specific_days", Value: json.RawMessage(`[2]`)}},
				"w2": {{Type: "no_night_afternoon_double"}},
				"w3": {{Type: "no_night_afternoon_double"}},
			},
			infeasible: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws := workers("w1", "w2", "w3")
			for i := range ws {
				ws[i].Rules = tt.rules[ws[i].ID]
			}
			req := newRequest(ws, "2024-05-01", "2024-05-04", 1, 1, 1)
			opts := feasibilityOptions()

			res, err := NewScheduler(nil, opts, nil).Generate(context.Background(), req)
			if tt.infeasible {
				assert.Equal(t, KindInfeasible, KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Empty(t, res.Schedule.Diagnostics)
			checkRoster(t, req, opts, res.Schedule)
			tt.check(t, res.Schedule)
		})
	}
}

func TestGenerate_SoftRulePenalty(t *testing.T) {
	opts := testOptions()
	opts.Weights = Weights{SoftRuleViolation: 3}

	tests := []struct {
		name        string
		w2Rules     []models.RuleSpec
		wantPenalty float64
	}{
		{name: "avoidable", wantPenalty: 0},
		{name: "forced on monday", w2Rules: []models.RuleSpec{{Type: "no_mondays"}}, wantPenalty: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws := workers("w1", "w2")
			ws[0].Rules = []models.RuleSpec{{Type: "no_morning_shifts", Strength: "soft"}}
			ws[1].Rules = tt.w2Rules
			// 2024-05-06 is a Monday
			req := newRequest(ws, "2024-05-06", "2024-05-07", 1, 0, 0)

			res, err := NewScheduler(nil, opts, nil).Generate(context.Background(), req)
			require.NoError(t, err)

			out := res.Schedule
			assert.Equal(t, "OPTIMAL", out.SolverStatus)
			assert.Equal(t, tt.wantPenalty, out.PenaltyValue)
			assert.Equal(t, int(tt.wantPenalty/3), out.ShiftCounts["w1"].Morning)
			checkRoster(t, req, opts, out)
		})
	}
}

func TestGenerate_TransitionModes(t *testing.T) {
	ws := workers("w1", "w2")
	ws[0].Rules = []models.RuleSpec{{
		Type:  "request_specific_shifts_on_days",
		Value: json.RawMessage(`[{"day": 6, "shift_type": 3}, {"day": 7, "shift_type": 1}]`),
	}}

	tests := []struct {
		mode        TransitionMode
		wantPenalty float64
	}{
		{TransitionAfterNight, 1},
		{TransitionAfterDouble, 0},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			opts := testOptions()
			opts.Weights = Weights{NightMorningTransition: 1}
			opts.TransitionMode = tt.mode
			req := newRequest(ws, "2024-05-06", "2024-05-07", 1, 0, 1)

			res, err := NewScheduler(nil, opts, nil).Generate(context.Background(), req)
			require.NoError(t, err)

			out := res.Schedule
			assert.Equal(t, []int{3}, out.WorkerSchedules["w1"].Shifts["2024-05-06"])
			assert.Equal(t, []int{1}, out.WorkerSchedules["w1"].Shifts["2024-05-07"])
			assert.Equal(t, tt.wantPenalty, out.PenaltyValue)
		})
	}
}

func TestGenerate_TransitionFromCarriedDouble(t *testing.T) {
	ws := workers("w1", "w2")
	ws[0].Rules = []models.RuleSpec{{
		Type:  "request_specific_shifts_on_days",
		Value: json.RawMessage(`[{"day": 1, "shift_type": 1}]`),
	}}
	req := newRequest(ws, "2024-05-01", "2024-05-01", 1, 0, 1)
	req.PreviousSchedule = &models.PreviousSchedule{
		Days: []string{"2024-04-30"},
		WorkerSchedules: map[string]models.WorkerHistory{
			"w1": {Shifts: map[string][]int{"2024-04-30": {2, 3}}},
		},
	}
	opts := testOptions()
	opts.Weights = Weights{NightMorningTransition: 5}

	res, err := NewScheduler(nil, opts, nil).Generate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 5.0, res.Schedule.PenaltyValue)
}

func TestValidate_ReportsDiagnosticsWithoutSolving(t *testing.T) {
	ws := workers("w1", "w2", "w3")
	ws[0].Rules = []models.RuleSpec{
		{Type: "no_mondays"},
		{Type: "no_weekends"},
	}
	ws[2].Rules = []models.RuleSpec{{Type: "no_specific_days", Strength: "soft", Value: json.RawMessage(`[3]`)}}
	req := newRequest(ws, "2024-05-01", "2024-05-31", 2, 3, 2)
	req.SolverTimeLimit = intp(1)

	s := NewScheduler(failingEngine{}, testOptions(), nil)
	v, err := s.Validate(req)
	require.NoError(t, err)

	assert.True(t, v.Valid)
	assert.Len(t, v.Days, 31)
	assert.True(t, v.HasObjective)
	assert.Equal(t, 3, v.Stats.Workers)
	assert.Equal(t, 31, v.Stats.Days)
	assert.Equal(t, 1, v.Stats.HardRules)
	assert.Equal(t, 1, v.Stats.SoftRules)
	assert.Positive(t, v.Stats.Variables)
	require.Len(t, v.Diagnostics, 1)
	assert.Equal(t, "no_weekends", v.Diagnostics[0].RuleType)
	assert.NotEmpty(t, v.Warnings)
}

func TestValidate_NoObjectiveWithZeroWeights(t *testing.T) {
	req := newRequest(workers("w1", "w2"), "2024-05-01", "2024-05-03", 1, 0, 0)

	v, err := NewScheduler(nil, feasibilityOptions(), nil).Validate(req)
	require.NoError(t, err)

	assert.False(t, v.HasObjective)
}

func TestGenerate_InputValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *models.ScheduleRequest)
		is     error
	}{
		{name: "inverted range", mutate: func(r *models.ScheduleRequest) { r.Schedule.EndDate = "2024-04-01" }, is: ErrInvalidDateRange},
		{name: "unparseable date", mutate: func(r *models.ScheduleRequest) { r.Schedule.StartDate = "tomorrow" }, is: ErrInvalidDateRange},
		{name: "period too long", mutate: func(r *models.ScheduleRequest) { r.Schedule.EndDate = "2026-05-01" }, is: ErrInvalidDateRange},
		{name: "no workers", mutate: func(r *models.ScheduleRequest) { r.Workers = nil }},
		{name: "duplicate worker", mutate: func(r *models.ScheduleRequest) { r.Workers = workers("w1", "w1") }},
		{name: "blank worker id", mutate: func(r *models.ScheduleRequest) { r.Workers = workers("w1", " ") }},
		{name: "negative requirement", mutate: func(r *models.ScheduleRequest) { r.RequiredNight = intp(-1) }},
		{name: "negative target", mutate: func(r *models.ScheduleRequest) { r.TargetOffDays = intp(-2) }},
		{name: "zero time limit", mutate: func(r *models.ScheduleRequest) { r.SolverTimeLimit = intp(0) }},
		{name: "time limit above a day", mutate: func(r *models.ScheduleRequest) { r.SolverTimeLimit = intp(86401) }},
		{name: "time limit overflows a duration", mutate: func(r *models.ScheduleRequest) { r.SolverTimeLimit = intp(9223372037) }},
		{name: "holiday out of range", mutate: func(r *models.ScheduleRequest) { r.Schedule.Holidays = []int{32} }},
		{name: "missing start", mutate: func(r *models.ScheduleRequest) { r.Schedule.StartDate = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newRequest(workers("w1", "w2"), "2024-05-01", "2024-05-03", 1, 1, 1)
			tt.mutate(req)

			res, err := NewScheduler(failingEngine{}, testOptions(), nil).Generate(context.Background(), req)

			require.Error(t, err)
			assert.Nil(t, res)
			assert.Equal(t, KindValidation, KindOf(err))
			assert.Equal(t, http.StatusBadRequest, HTTPStatus(err))
			if tt.is != nil {
				assert.True(t, errors.Is(err, tt.is), "got %v", err)
			}
		})
	}
}

func TestNewInput_Defaults(t *testing.T) {
	req := &models.ScheduleRequest{
		Workers:  workers("w1"),
		Schedule: models.Period{StartDate: "2024-05-01", EndDate: "2024-05-31", Holidays: []int{1, 13}},
	}

	in, err := NewInput(req, 0)
	require.NoError(t, err)

	assert.Equal(t, [numShiftTypes]int{2, 3, 2}, in.Requirements)
	assert.Equal(t, 6, in.MaxConsecutiveShifts)
	assert.Equal(t, 8, in.TargetOffDays)
	assert.Equal(t, float64(60), in.TimeLimit.Seconds())
	assert.Equal(t, []int{1, 13}, in.Holidays)
	assert.Equal(t, 7*31, in.ShiftUnits())
}

func TestNewInput_CapsTimeLimit(t *testing.T) {
	req := newRequest(workers("w1"), "2024-05-01", "2024-05-02", 1, 0, 0)
	req.SolverTimeLimit = intp(600)

	in, err := NewInput(req, 30*time.Second)
	require.NoError(t, err)

	assert.Equal(t, float64(30), in.TimeLimit.Seconds())
	assert.NotEmpty(t, in.Warnings)
}

func TestNewInput_LargestTimeLimitStaysCapped(t *testing.T) {
	req := newRequest(workers("w1"), "2024-05-01", "2024-05-02", 1, 0, 0)
	req.SolverTimeLimit = intp(86400)

	in, err := NewInput(req, 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, in.TimeLimit)

	req.SolverTimeLimit = intp(9223372037)
	_, err = NewInput(req, 5*time.Minute)
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
}

type engineFunc func(ctx context.Context, m *cpsat.Model, p cpsat.Params) (*cpsat.Response, error)

func (f engineFunc) Solve(ctx context.Context, m *cpsat.Model, p cpsat.Params) (*cpsat.Response, error) {
	return f(ctx, m, p)
}

type failingEngine struct{}

func (failingEngine) Solve(context.Context, *cpsat.Model, cpsat.Params) (*cpsat.Response, error) {
	return nil, errors.New("engine should not be called")
}

func TestGenerate_EngineOutcomes(t *testing.T) {
	tests := []struct {
		name       string
		engine     Engine
		wantKind   Kind
		wantStatus int
	}{
		{
			name: "unknown is a timeout",
			engine: engineFunc(func(context.Context, *cpsat.Model, cpsat.Params) (*cpsat.Response, error) {
				return &cpsat.Response{Status: cpsat.StatusUnknown}, nil
			}),
			wantKind:   KindTimeout,
			wantStatus: http.StatusGatewayTimeout,
		},
		{
			name: "invalid model",
			engine: engineFunc(func(context.Context, *cpsat.Model, cpsat.Params) (*cpsat.Response, error) {
				return &cpsat.Response{Status: cpsat.StatusModelInvalid}, nil
			}),
			wantKind:   KindInvalidModel,
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "engine error",
			engine:     failingEngine{},
			wantKind:   KindInternal,
			wantStatus: http.StatusInternalServerError,
		},
		{
			name: "missing values",
			engine: engineFunc(func(context.Context, *cpsat.Model, cpsat.Params) (*cpsat.Response, error) {
				return cpsat.NewResponse(cpsat.StatusFeasible, []int64{1, 0}, 0), nil
			}),
			wantKind:   KindExtraction,
			wantStatus: http.StatusInternalServerError,
		},
		{
			name: "values that break the roster",
			engine: engineFunc(func(_ context.Context, m *cpsat.Model, _ cpsat.Params) (*cpsat.Response, error) {
				return cpsat.NewResponse(cpsat.StatusFeasible, make([]int64, m.NumVariables()), 0), nil
			}),
			wantKind:   KindExtraction,
			wantStatus: http.StatusInternalServerError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newRequest(workers("w1", "w2"), "2024-05-01", "2024-05-03", 1, 1, 1)

			res, err := NewScheduler(tt.engine, testOptions(), nil).Generate(context.Background(), req)

			require.Error(t, err)
			assert.Equal(t, tt.wantKind, KindOf(err))
			assert.Equal(t, tt.wantStatus, HTTPStatus(err))
			require.NotNil(t, res)
			assert.Nil(t, res.Schedule)
		})
	}
}

func TestGenerate_PassesSolverParams(t *testing.T) {
	var got cpsat.Params
	engine := engineFunc(func(ctx context.Context, m *cpsat.Model, p cpsat.Params) (*cpsat.Response, error) {
		got = p
		return cpsat.Solve(ctx, m, p)
	})
	opts := feasibilityOptions()
	opts.Workers = 3
	opts.Seed = 42
	req := newRequest(workers("w1", "w2"), "2024-05-01", "2024-05-02", 1, 0, 0)
	req.SolverTimeLimit = intp(7)

	_, err := NewScheduler(engine, opts, nil).Generate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 3, got.Workers)
	assert.Equal(t, int64(42), got.Seed)
	assert.Equal(t, float64(7), got.TimeLimit.Seconds())
}
