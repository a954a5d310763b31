package export

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/arnavshah/roster-solver-go/pkg/models"
	ics "github.com/arran4/golang-ical"
)

const ContentTypeICS = "text/calendar; charset=utf-8"

// ShiftWindow places a shift on the wall clock of its date. Start and the
// end at Start+Length are offsets from local midnight, so a shift on a DST
// change day keeps its printed hours
type ShiftWindow struct {
	Name   string
	Start  time.Duration
	Length time.Duration
}

// DefaultShiftWindows places the night shift at the start of its date, so a
// night+afternoon double covers 00:00-08:00 and 16:00-24:00
var DefaultShiftWindows = map[int]ShiftWindow{
	models.ShiftMorning:   {Name: "Morning", Start: 8 * time.Hour, Length: 8 * time.Hour},
	models.ShiftAfternoon: {Name: "Afternoon", Start: 16 * time.Hour, Length: 8 * time.Hour},
	models.ShiftNight:     {Name: "Night", Start: 0, Length: 8 * time.Hour},
}

// ErrUnknownWorker is returned when a calendar is requested for a worker not on the roster
var ErrUnknownWorker = errors.New("unknown worker")

// WriteICS writes one VEVENT per worked shift. An empty workerID exports
// every worker, with the worker ID in each summary
func WriteICS(w io.Writer, resp *models.ScheduleResponse, workerID string, loc *time.Location) error {
	if len(resp.WorkerSchedules) == 0 || len(resp.Days) == 0 {
		return ErrEmptyRoster
	}
	if loc == nil {
		loc = time.UTC
	}

	ids := WorkerIDs(resp)
	if workerID != "" {
		if _, ok := resp.WorkerSchedules[workerID]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownWorker, workerID)
		}
		ids = []string{workerID}
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//roster-solver-go//roster//EN")
	cal.SetName(fmt.Sprintf("Roster %s to %s", resp.StartDate, resp.EndDate))

	stamp := time.Now().UTC()
	for _, id := range ids {
		shifts := resp.WorkerSchedules[id].Shifts
		for _, day := range resp.Days {
			date, err := time.ParseInLocation(time.DateOnly, day, loc)
			if err != nil {
				return fmt.Errorf("bad roster day %q: %w", day, err)
			}
			for _, code := range shifts[day] {
				win, ok := DefaultShiftWindows[code]
				if !ok {
					continue
				}
				ev := cal.AddEvent(fmt.Sprintf("%s-%s-%d@roster-solver", id, day, code))
				ev.SetDtStampTime(stamp)
				ev.SetStartAt(wallClock(date, win.Start))
				ev.SetEndAt(wallClock(date, win.Start+win.Length))
				if workerID != "" {
					ev.SetSummary(win.Name + " shift")
				} else {
					ev.SetSummary(fmt.Sprintf("%s: %s shift", id, win.Name))
				}
			}
		}
	}

	_, err := io.WriteString(w, cal.Serialize())
	return err
}

// wallClock returns the instant offset reads on the clock of day's zone.
// Offsets of 24h or more roll into the following days
func wallClock(day time.Time, offset time.Duration) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, int(offset/time.Hour), int(offset%time.Hour/time.Minute), 0, 0, day.Location())
}
