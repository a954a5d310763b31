package scheduler

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// CalendarDay is a zero-based position in the period paired with its date
type CalendarDay struct {
	Index int
	Date  time.Time
}

// ISO returns the date as YYYY-MM-DD
func (d CalendarDay) ISO() string {
	return d.Date.Format(dateLayout)
}

// ParseDate accepts YYYY-MM-DD and ignores any time part after a 'T'
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, 'T'); i == len(dateLayout) {
		s = s[:i]
	}
	return time.Parse(dateLayout, s)
}

// BuildCalendar returns every day from start to end inclusive
func BuildCalendar(start, end string) ([]CalendarDay, error) {
	from, err := ParseDate(start)
	if err != nil {
		return nil, fmt.Errorf("%w: start date %q: %v", ErrInvalidDateRange, start, err)
	}
	to, err := ParseDate(end)
	if err != nil {
		return nil, fmt.Errorf("%w: end date %q: %v", ErrInvalidDateRange, end, err)
	}
	if from.After(to) {
		return nil, fmt.Errorf("%w: start %s is after end %s", ErrInvalidDateRange, from.Format(dateLayout), to.Format(dateLayout))
	}

	var days []CalendarDay
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		days = append(days, CalendarDay{Index: len(days), Date: d})
	}
	return days, nil
}

// ISODays formats a calendar as a list of dates
func ISODays(days []CalendarDay) []string {
	out := make([]string, len(days))
	for i, d := range days {
		out[i] = d.ISO()
	}
	return out
}
