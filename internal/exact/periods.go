package exact

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Grouping granularities for revenue-by-period reports.
const (
	GroupByMonth   = "month"
	GroupByQuarter = "quarter"
	GroupByYear    = "year"
)

// ValidateGroupBy rejects unknown grouping values.
func ValidateGroupBy(groupBy string) error {
	switch groupBy {
	case GroupByMonth, GroupByQuarter, GroupByYear:
		return nil
	}
	return NewInvalidParameter(fmt.Sprintf("invalid group_by value: %s", groupBy))
}

// Period is one reporting period inside a requested date range. Start and End
// are ISO dates, clamped so the first and last period never extend beyond the
// requested range.
type Period struct {
	Key   string
	Start string
	End   string
}

// PeriodBoundaries splits [startDate, endDate] into calendar periods of the
// requested granularity. Keys are "2025" for years, "2025-Q3" for quarters
// and "2025-09" for months.
func PeriodBoundaries(startDate, endDate, groupBy string) ([]Period, error) {
	start, err := time.Parse(isoDateLayout, startDate)
	if err != nil {
		return nil, NewInvalidDate(startDate)
	}
	end, err := time.Parse(isoDateLayout, endDate)
	if err != nil {
		return nil, NewInvalidDate(endDate)
	}
	if err := ValidateGroupBy(groupBy); err != nil {
		return nil, err
	}

	var periods []Period
	switch groupBy {
	case GroupByYear:
		for year := start.Year(); year <= end.Year(); year++ {
			periodStart := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
			periodEnd := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
			periods = append(periods, Period{
				Key:   strconv.Itoa(year),
				Start: clampDate(periodStart, start, end),
				End:   clampDate(periodEnd, start, end),
			})
		}

	case GroupByQuarter:
		current := start
		for !current.After(end) {
			quarter := (int(current.Month())-1)/3 + 1
			firstMonth := time.Month((quarter-1)*3 + 1)
			periodStart := time.Date(current.Year(), firstMonth, 1, 0, 0, 0, 0, time.UTC)
			periodEnd := periodStart.AddDate(0, 3, -1)
			periods = append(periods, Period{
				Key:   fmt.Sprintf("%d-Q%d", current.Year(), quarter),
				Start: clampDate(periodStart, start, end),
				End:   clampDate(periodEnd, start, end),
			})
			current = periodStart.AddDate(0, 3, 0)
		}

	case GroupByMonth:
		current := start
		for !current.After(end) {
			periodStart := time.Date(current.Year(), current.Month(), 1, 0, 0, 0, 0, time.UTC)
			periodEnd := periodStart.AddDate(0, 1, -1)
			periods = append(periods, Period{
				Key:   fmt.Sprintf("%d-%02d", current.Year(), int(current.Month())),
				Start: clampDate(periodStart, start, end),
				End:   clampDate(periodEnd, start, end),
			})
			current = periodStart.AddDate(0, 1, 0)
		}
	}

	return periods, nil
}

// clampDate bounds d to [min, max] and renders it as an ISO date.
func clampDate(d, min, max time.Time) string {
	if d.Before(min) {
		d = min
	}
	if d.After(max) {
		d = max
	}
	return d.Format(isoDateLayout)
}

// PreviousYearKey returns the key of the same period one year earlier, e.g.
// "2025-Q2" -> "2024-Q2".
func PreviousYearKey(periodKey, groupBy string) string {
	switch groupBy {
	case GroupByYear:
		year, err := strconv.Atoi(periodKey)
		if err != nil {
			return periodKey
		}
		return strconv.Itoa(year - 1)
	default:
		parts := strings.SplitN(periodKey, "-", 2)
		if len(parts) != 2 {
			return periodKey
		}
		year, err := strconv.Atoi(parts[0])
		if err != nil {
			return periodKey
		}
		return fmt.Sprintf("%d-%s", year-1, parts[1])
	}
}

// ShiftDateByYear moves an ISO date back one year, used to build the
// comparison range for year-over-year reports.
func ShiftDateByYear(isoDate string) (string, error) {
	d, err := time.Parse(isoDateLayout, isoDate)
	if err != nil {
		return "", NewInvalidDate(isoDate)
	}
	return d.AddDate(-1, 0, 0).Format(isoDateLayout), nil
}

// ValidateDateRange checks both dates and their ordering.
func ValidateDateRange(startDate, endDate string) error {
	start, err := time.Parse(isoDateLayout, startDate)
	if err != nil {
		return NewInvalidDate(startDate)
	}
	end, err := time.Parse(isoDateLayout, endDate)
	if err != nil {
		return NewInvalidDate(endDate)
	}
	if start.After(end) {
		return NewInvalidParameter("start_date must be before or equal to end_date")
	}
	return nil
}
