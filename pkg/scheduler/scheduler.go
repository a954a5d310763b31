package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arnavshah/roster-solver-go/pkg/cpsat"
	"github.com/arnavshah/roster-solver-go/pkg/models"
	"go.uber.org/zap"
)

// Engine solves a constraint model
type Engine interface {
	Solve(ctx context.Context, m *cpsat.Model, p cpsat.Params) (*cpsat.Response, error)
}

// Outcome describes a finished solve, successful or not
type Outcome struct {
	Status     cpsat.Status
	Objective  float64
	WallTime   time.Duration
	Stats      models.ModelStats
	ShiftUnits int
}

// Result is what Generate returns
type Result struct {
	Schedule *models.ScheduleResponse
	Outcome  Outcome
}

// Scheduler builds and solves one roster per call. It keeps no state between
// calls and is safe for concurrent use
type Scheduler struct {
	engine Engine
	opts   Options
	log    *zap.Logger
}

// NewScheduler creates a scheduler. A nil engine selects the in-process
// solver and a nil logger disables logging
func NewScheduler(engine Engine, opts Options, log *zap.Logger) *Scheduler {
	if engine == nil {
		engine = cpsat.Solver{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Scheduler{engine: engine, opts: opts, log: log}
}

// Options returns the options the scheduler was created with
func (s *Scheduler) Options() Options { return s.opts }

// Generate validates req, builds the model, solves it and extracts the
// roster. When the model was built the returned Result is non-nil even if
// err is set, so callers can record the outcome
func (s *Scheduler) Generate(ctx context.Context, req *models.ScheduleRequest) (*Result, error) {
	in, err := NewInput(req, s.opts.MaxTimeLimit)
	if err != nil {
		return nil, err
	}
	for _, w := range in.Warnings {
		s.log.Warn("request warning", zap.String("warning", w))
	}

	rm, err := BuildModel(in, s.opts)
	if err != nil {
		return nil, err
	}
	stats := rm.Stats()
	s.logModel(rm)

	resp, err := s.engine.Solve(ctx, rm.Model(), cpsat.Params{
		TimeLimit: in.TimeLimit,
		Workers:   s.opts.Workers,
		Seed:      s.opts.Seed,
		Logger:    s.log,
	})
	res := &Result{Outcome: Outcome{Stats: stats, ShiftUnits: in.ShiftUnits()}}
	if err != nil {
		return res, &Error{Kind: KindInternal, Msg: "solver failed", Err: err}
	}
	res.Outcome.Status = resp.Status
	res.Outcome.Objective = resp.ObjectiveValue()
	res.Outcome.WallTime = resp.WallTime

	s.log.Info("solve finished",
		zap.String("status", resp.Status.String()),
		zap.Float64("objective", resp.ObjectiveValue()),
		zap.Duration("wall_time", resp.WallTime),
		zap.Int64("branches", resp.Branches),
		zap.Int64("conflicts", resp.Conflicts))

	if err := outcomeError(resp, in.TimeLimit); err != nil {
		s.log.Warn("no roster produced", zap.Error(err), zap.Strings("explanation", Explanation(err)))
		return res, err
	}

	schedule, err := rm.Extract(resp)
	if err != nil {
		s.log.Error("result extraction failed", zap.Error(err))
		return res, err
	}
	res.Schedule = schedule
	return res, nil
}

// Validate runs every step up to model construction and reports what the
// solver would be given
func (s *Scheduler) Validate(req *models.ScheduleRequest) (*models.ValidationResponse, error) {
	in, err := NewInput(req, s.opts.MaxTimeLimit)
	if err != nil {
		return nil, err
	}
	rm, err := BuildModel(in, s.opts)
	if err != nil {
		return nil, err
	}
	if err := rm.Model().Validate(); err != nil {
		return nil, &Error{Kind: KindInvalidModel, Msg: "model construction defect", Err: err}
	}
	return &models.ValidationResponse{
		Valid:        true,
		Days:         ISODays(in.Days),
		HasObjective: rm.Model().HasObjective(),
		Stats:        rm.Stats(),
		Diagnostics:  rm.Diagnostics(),
		Warnings:     in.Warnings,
	}, nil
}

func (s *Scheduler) logModel(rm *RosterModel) {
	st := rm.Stats()
	s.log.Info("model built",
		zap.Int("workers", st.Workers),
		zap.Int("days", st.Days),
		zap.Int("variables", st.Variables),
		zap.Int("constraints", st.Constraints),
		zap.Int("hard_rules", st.HardRules),
		zap.Int("soft_rules", st.SoftRules),
		zap.Strings("objective_terms", rm.ObjectiveTerms()))
	for _, d := range rm.Diagnostics() {
		s.log.Warn("rule skipped",
			zap.String("worker_id", d.WorkerID),
			zap.Int("rule_index", d.RuleIndex),
			zap.String("rule_type", d.RuleType),
			zap.String("reason", d.Reason))
	}
}

// outcomeError turns a status without a solution into an error
func outcomeError(resp *cpsat.Response, limit time.Duration) error {
	switch resp.Status {
	case cpsat.StatusOptimal, cpsat.StatusFeasible:
		return nil
	case cpsat.StatusInfeasible:
		return &Error{
			Kind:        KindInfeasible,
			Msg:         "no roster satisfies every hard rule",
			Err:         errors.New("constraints conflict"),
			Explanation: resp.Explanation(),
		}
	case cpsat.StatusModelInvalid:
		return &Error{
			Kind:        KindInvalidModel,
			Msg:         "internal model defect",
			Err:         errors.New(resp.Status.String()),
			Explanation: resp.Explanation(),
		}
	default:
		return &Error{
			Kind: KindTimeout,
			Msg:  "no roster found in time",
			Err:  fmt.Errorf("time limit of %s likely too short; raise solver_time_limit or relax the rules", limit),
		}
	}
}
