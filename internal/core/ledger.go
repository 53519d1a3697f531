package core

import (
	"strconv"
	"time"
)

// Period identifies one calendar month of the ledger.
type Period struct {
	Month int // 1-12
	Year  int
}

// Label renders the period, e.g. "March 2024".
func (p Period) Label() string {
	return MonthName(p.Month) + " " + strconv.Itoa(p.Year)
}

// Before reports whether p is strictly earlier than other.
func (p Period) Before(other Period) bool {
	if p.Year != other.Year {
		return p.Year < other.Year
	}
	return p.Month < other.Month
}

// FeeSchedule lists every calendar month a student's ledger must cover:
// from the admission month (admission date truncated to the first of the
// month) through asOf's month, inclusive. Stepping is calendar-correct
// month arithmetic, never fixed-length increments, so Jan 31 + 1 month
// lands on Feb 1 of the cursor rather than drifting.
//
// An admission date after asOf yields an empty schedule.
func FeeSchedule(admission, asOf time.Time) []Period {
	var periods []Period
	cursor := time.Date(admission.Year(), admission.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := asOf.UTC()
	for !cursor.After(end) {
		periods = append(periods, Period{Month: int(cursor.Month()), Year: cursor.Year()})
		cursor = cursor.AddDate(0, 1, 0)
	}
	return periods
}
