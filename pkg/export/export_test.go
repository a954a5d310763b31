package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/arnavshah/roster-solver-go/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleRoster() *models.ScheduleResponse {
	return &models.ScheduleResponse{
		Days:      []string{"2024-05-01", "2024-05-02"},
		StartDate: "2024-05-01",
		EndDate:   "2024-05-02",
		Holidays:  []int{2},
		WorkerSchedules: map[string]models.WorkerSchedule{
			"w2": {Worker: models.Worker{ID: "w2"}, Shifts: map[string][]int{"2024-05-01": {1}, "2024-05-02": {}}},
			"w1": {Worker: models.Worker{ID: "w1"}, Shifts: map[string][]int{"2024-05-01": {2, 3}, "2024-05-02": {1}}},
		},
		ShiftCounts: map[string]models.ShiftCounts{
			"w1": {Morning: 1, Afternoon: 1, Night: 1, Total: 3, Doubles: 1, DaysOff: 0},
			"w2": {Morning: 1, Total: 1, DaysOff: 1},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleRoster()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5)

	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, []string{"w1", "2024-05-01", "Wed", "A|N", "0", "1", "1", "false"}, records[1])
	assert.Equal(t, []string{"w1", "2024-05-02", "Thu", "M", "1", "0", "0", "false"}, records[2])
	assert.Equal(t, []string{"w2", "2024-05-02", "Thu", "", "0", "0", "0", "true"}, records[4])
}

func TestWriteXLSX(t *testing.T) {
	buf, err := WriteXLSX(sampleRoster())
	require.NoError(t, err)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	cell := func(name string) string {
		v, err := f.GetCellValue(sheetName, name)
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, "worker", cell("A1"))
	assert.Equal(t, "1", cell("B1"))
	assert.Equal(t, "Thu", cell("C2"))
	assert.Equal(t, "w1", cell("A3"))
	assert.Equal(t, "A,N", cell("B3"))
	assert.Equal(t, "-", cell("C4"))
	assert.Equal(t, "double", cell("H1"))
	assert.Equal(t, "1", cell("H3"))
	assert.Equal(t, "1", cell("I4"))

	holiday, err := f.GetCellStyle(sheetName, "C3")
	require.NoError(t, err)
	normal, err := f.GetCellStyle(sheetName, "B3")
	require.NoError(t, err)
	assert.NotEqual(t, normal, holiday)
}

func TestExport_EmptyRoster(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, WriteCSV(&buf, &models.ScheduleResponse{}), ErrEmptyRoster)

	_, err := WriteXLSX(&models.ScheduleResponse{Days: []string{"2024-05-01"}})
	assert.ErrorIs(t, err, ErrEmptyRoster)
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "roster_2024-05-01_2024-05-02.xlsx", Filename(sampleRoster(), "xlsx"))
}
