package scheduler

import (
	"fmt"

	"github.com/arnavshah/roster-solver-go/pkg/cpsat"
	"github.com/arnavshah/roster-solver-go/pkg/models"
)

func extractionError(format string, args ...any) *Error {
	return &Error{Kind: KindExtraction, Msg: "inconsistent solver result", Err: fmt.Errorf(format, args...)}
}

// Extract reads a solution back into a schedule. Any disagreement between
// the solved variables and the request fails the whole extraction
func (r *RosterModel) Extract(resp *cpsat.Response) (*models.ScheduleResponse, error) {
	if resp == nil || !resp.Status.HasSolution() {
		return nil, extractionError("no solution to extract")
	}
	if resp.NumValues() < r.m.NumVariables() {
		return nil, extractionError("solver returned %d values for %d variables", resp.NumValues(), r.m.NumVariables())
	}

	days := ISODays(r.in.Days)
	out := &models.ScheduleResponse{
		WorkerSchedules: make(map[string]models.WorkerSchedule, r.numWorkers()),
		ShiftCounts:     make(map[string]models.ShiftCounts, r.numWorkers()),
		Days:            days,
		StartDate:       r.in.StartDate,
		EndDate:         r.in.EndDate,
		Holidays:        r.in.Holidays,
		SolverStatus:    resp.Status.String(),
		PenaltyValue:    resp.ObjectiveValue(),
		Diagnostics:     r.diagnostics,
	}

	staffed := make([][numShiftTypes]int, r.numDays())
	for w, worker := range r.in.Workers {
		if _, dup := out.WorkerSchedules[worker.ID]; dup {
			return nil, extractionError("worker %q appears twice in the roster", worker.ID)
		}
		var counts models.ShiftCounts
		shifts := make(map[string][]int, len(days))
		for d, iso := range days {
			var worked [numShiftTypes]bool
			codes := []int{}
			for _, s := range shiftTypes {
				if resp.BoolValue(r.shift[w][d][s]) {
					worked[s] = true
					codes = append(codes, s.Code())
					staffed[d][s]++
				}
			}
			if worked[Morning] && (worked[Afternoon] || worked[Night]) {
				return nil, extractionError("%s has an illegal shift combination on %s", worker.ID, iso)
			}
			if got := resp.Value(r.units[w][d]); got != int64(len(codes)) {
				return nil, extractionError("%s works %d shifts on %s but the unit counter says %d", worker.ID, len(codes), iso, got)
			}
			if resp.BoolValue(r.off[w][d]) != (len(codes) == 0) {
				return nil, extractionError("%s off flag disagrees with shifts on %s", worker.ID, iso)
			}

			shifts[iso] = codes
			if len(codes) == 0 {
				counts.DaysOff++
			}
			if worked[Morning] {
				counts.Morning++
			}
			if worked[Afternoon] {
				counts.Afternoon++
			}
			if worked[Night] {
				counts.Night++
			}
			if worked[Night] && worked[Afternoon] {
				counts.Doubles++
			}
			counts.Total += len(codes)
		}
		out.WorkerSchedules[worker.ID] = models.WorkerSchedule{Worker: worker, Shifts: shifts}
		out.ShiftCounts[worker.ID] = counts
	}

	for d, iso := range days {
		for _, s := range shiftTypes {
			if staffed[d][s] != r.in.Requirements[s] {
				return nil, extractionError("%s on %s staffed by %d, %d required", s, iso, staffed[d][s], r.in.Requirements[s])
			}
		}
	}

	out.FairnessReport = BuildFairnessReport(r.in.Workers, out.ShiftCounts)
	return out, nil
}

// BuildFairnessReport computes the literal min and max of each metric over
// the given workers
func BuildFairnessReport(workers []models.Worker, counts map[string]models.ShiftCounts) models.FairnessReport {
	var rep models.FairnessReport
	first := true
	for _, w := range workers {
		c, ok := counts[w.ID]
		if !ok {
			continue
		}
		rep.TotalDoubles += c.Doubles
		if first {
			rep.OffDaysMin, rep.OffDaysMax = c.DaysOff, c.DaysOff
			rep.TotalShiftsMin, rep.TotalShiftsMax = c.Total, c.Total
			rep.MorningMin, rep.MorningMax = c.Morning, c.Morning
			rep.AfternoonMin, rep.AfternoonMax = c.Afternoon, c.Afternoon
			rep.NightMin, rep.NightMax = c.Night, c.Night
			first = false
			continue
		}
		rep.OffDaysMin, rep.OffDaysMax = min(rep.OffDaysMin, c.DaysOff), max(rep.OffDaysMax, c.DaysOff)
		rep.TotalShiftsMin, rep.TotalShiftsMax = min(rep.TotalShiftsMin, c.Total), max(rep.TotalShiftsMax, c.Total)
		rep.MorningMin, rep.MorningMax = min(rep.MorningMin, c.Morning), max(rep.MorningMax, c.Morning)
		rep.AfternoonMin, rep.AfternoonMax = min(rep.AfternoonMin, c.Afternoon), max(rep.AfternoonMax, c.Afternoon)
		rep.NightMin, rep.NightMax = min(rep.NightMin, c.Night), max(rep.NightMax, c.Night)
	}
	return rep
}
