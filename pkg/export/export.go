package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/arnavshah/roster-solver-go/pkg/models"
	"github.com/xuri/excelize/v2"
)

const (
	ContentTypeCSV  = "text/csv; charset=utf-8"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	sheetName = "Roster"
)

var ErrEmptyRoster = errors.New("roster has no workers or days")

var csvHeader = []string{"worker_id", "date", "weekday", "shifts", "morning", "afternoon", "night", "off"}

var shiftLabels = map[int]string{
	models.ShiftMorning:   "M",
	models.ShiftAfternoon: "A",
	models.ShiftNight:     "N",
}

// WorkerIDs returns the roster's worker IDs in sorted order
func WorkerIDs(resp *models.ScheduleResponse) []string {
	ids := make([]string, 0, len(resp.WorkerSchedules))
	for id := range resp.WorkerSchedules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// WriteCSV writes one row per worker and day
func WriteCSV(w io.Writer, resp *models.ScheduleResponse) error {
	if len(resp.WorkerSchedules) == 0 || len(resp.Days) == 0 {
		return ErrEmptyRoster
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, id := range WorkerIDs(resp) {
		shifts := resp.WorkerSchedules[id].Shifts
		for _, day := range resp.Days {
			codes := shifts[day]
			record := []string{
				id,
				day,
				weekday(day),
				joinCodes(codes, "|"),
				flag(codes, models.ShiftMorning),
				flag(codes, models.ShiftAfternoon),
				flag(codes, models.ShiftNight),
				strconv.FormatBool(len(codes) == 0),
			}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX renders the roster as a worker x day grid followed by each
// worker's totals. Holiday columns are shaded
func WriteXLSX(resp *models.ScheduleResponse) (*bytes.Buffer, error) {
	if len(resp.WorkerSchedules) == 0 || len(resp.Days) == 0 {
		return nil, ErrEmptyRoster
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, err
	}
	holidayStyle, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#F4CCCC"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, err
	}

	holidays := make(map[int]bool, len(resp.Holidays))
	for _, d := range resp.Holidays {
		holidays[d] = true
	}

	totals := []string{"morning", "afternoon", "night", "total", "double", "off"}
	lastCol := 1 + len(resp.Days) + len(totals)

	set := func(col, row int, v any) {
		name, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheetName, name, v)
	}

	set(1, 1, "worker")
	for i, day := range resp.Days {
		set(2+i, 1, dayOfMonth(day))
		set(2+i, 2, weekday(day))
	}
	for i, label := range totals {
		set(2+len(resp.Days)+i, 1, label)
	}
	if err := styleRange(f, 1, 1, lastCol, 2, headerStyle); err != nil {
		return nil, err
	}

	row := 3
	for _, id := range WorkerIDs(resp) {
		shifts := resp.WorkerSchedules[id].Shifts
		set(1, row, id)
		for i, day := range resp.Days {
			text := "-"
			if codes := shifts[day]; len(codes) > 0 {
				text = joinCodes(codes, ",")
			}
			set(2+i, row, text)
		}
		c := resp.ShiftCounts[id]
		for i, v := range []int{c.Morning, c.Afternoon, c.Night, c.Total, c.Doubles, c.DaysOff} {
			set(2+len(resp.Days)+i, row, v)
		}
		row++
	}

	for i, day := range resp.Days {
		if !holidays[dayOfMonth(day)] {
			continue
		}
		if err := styleRange(f, 2+i, 1, 2+i, row-1, holidayStyle); err != nil {
			return nil, err
		}
	}

	if err := f.SetColWidth(sheetName, "A", "A", 16); err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("failed to write xlsx: %w", err)
	}
	return buf, nil
}

// Filename names an export after the roster period
func Filename(resp *models.ScheduleResponse, ext string) string {
	return fmt.Sprintf("roster_%s_%s.%s", resp.StartDate, resp.EndDate, ext)
}

func styleRange(f *excelize.File, c1, r1, c2, r2, style int) error {
	from, err := excelize.CoordinatesToCellName(c1, r1)
	if err != nil {
		return err
	}
	to, err := excelize.CoordinatesToCellName(c2, r2)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheetName, from, to, style)
}

func joinCodes(codes []int, sep string) string {
	labels := make([]string, len(codes))
	for i, c := range codes {
		labels[i] = shiftLabels[c]
	}
	return strings.Join(labels, sep)
}

func flag(codes []int, code int) string {
	for _, c := range codes {
		if c == code {
			return "1"
		}
	}
	return "0"
}

func weekday(iso string) string {
	t, err := time.Parse(time.DateOnly, iso)
	if err != nil {
		return ""
	}
	return t.Weekday().String()[:3]
}

func dayOfMonth(iso string) int {
	t, err := time.Parse(time.DateOnly, iso)
	if err != nil {
		return 0
	}
	return t.Day()
}
