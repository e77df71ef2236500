package exact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodBoundaries_Month(t *testing.T) {
	periods, err := PeriodBoundaries("2025-01-15", "2025-03-10", GroupByMonth)
	require.NoError(t, err)
	require.Len(t, periods, 3)

	assert.Equal(t, Period{Key: "2025-01", Start: "2025-01-15", End: "2025-01-31"}, periods[0])
	assert.Equal(t, Period{Key: "2025-02", Start: "2025-02-01", End: "2025-02-28"}, periods[1])
	assert.Equal(t, Period{Key: "2025-03", Start: "2025-03-01", End: "2025-03-10"}, periods[2])
}

func TestPeriodBoundaries_Quarter(t *testing.T) {
	periods, err := PeriodBoundaries("2024-11-01", "2025-04-30", GroupByQuarter)
	require.NoError(t, err)
	require.Len(t, periods, 3)

	assert.Equal(t, Period{Key: "2024-Q4", Start: "2024-11-01", End: "2024-12-31"}, periods[0])
	assert.Equal(t, Period{Key: "2025-Q1", Start: "2025-01-01", End: "2025-03-31"}, periods[1])
	assert.Equal(t, Period{Key: "2025-Q2", Start: "2025-04-01", End: "2025-04-30"}, periods[2])
}

func TestPeriodBoundaries_Year(t *testing.T) {
	periods, err := PeriodBoundaries("2023-06-01", "2025-02-28", GroupByYear)
	require.NoError(t, err)
	require.Len(t, periods, 3)

	assert.Equal(t, Period{Key: "2023", Start: "2023-06-01", End: "2023-12-31"}, periods[0])
	assert.Equal(t, Period{Key: "2024", Start: "2024-01-01", End: "2024-12-31"}, periods[1])
	assert.Equal(t, Period{Key: "2025", Start: "2025-01-01", End: "2025-02-28"}, periods[2])
}

func TestPeriodBoundaries_LeapFebruary(t *testing.T) {
	periods, err := PeriodBoundaries("2024-02-01", "2024-02-29", GroupByMonth)
	require.NoError(t, err)
	require.Len(t, periods, 1)
	assert.Equal(t, "2024-02-29", periods[0].End)
}

func TestPeriodBoundaries_InvalidInput(t *testing.T) {
	_, err := PeriodBoundaries("bad-date", "2025-01-31", GroupByMonth)
	assert.Error(t, err)

	_, err = PeriodBoundaries("2025-01-01", "2025-01-31", "week")
	require.Error(t, err)
	apiErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindInvalidParameter, apiErr.Kind)
}

func TestPreviousYearKey(t *testing.T) {
	tests := []struct {
		key     string
		groupBy string
		want    string
	}{
		{key: "2025", groupBy: GroupByYear, want: "2024"},
		{key: "2025-Q3", groupBy: GroupByQuarter, want: "2024-Q3"},
		{key: "2025-01", groupBy: GroupByMonth, want: "2024-01"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PreviousYearKey(tt.key, tt.groupBy))
	}
}

func TestShiftDateByYear(t *testing.T) {
	shifted, err := ShiftDateByYear("2025-08-28")
	require.NoError(t, err)
	assert.Equal(t, "2024-08-28", shifted)

	// Leap day lands on March 1st the year before.
	shifted, err = ShiftDateByYear("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, "2023-03-01", shifted)
}

func TestValidateDateRange(t *testing.T) {
	assert.NoError(t, ValidateDateRange("2025-01-01", "2025-12-31"))
	assert.NoError(t, ValidateDateRange("2025-01-01", "2025-01-01"))
	assert.Error(t, ValidateDateRange("2025-12-31", "2025-01-01"))
	assert.Error(t, ValidateDateRange("2025/01/01", "2025-12-31"))
}
