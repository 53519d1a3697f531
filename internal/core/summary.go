package core

// UnpaidItem is one outstanding month in a student's dues summary.
type UnpaidItem struct {
	MonthName string
	Month     int // 1-12
	Year      int
	Amount    Money
}

// Label renders the item the way demand notices and reminders show it,
// e.g. "January 2024 - Rs 500.00".
func (u UnpaidItem) Label() string {
	return Period{Month: u.Month, Year: u.Year}.Label() + " - " + u.Amount.String()
}

// UnpaidSummary is the outstanding balance of one student, ordered by
// (year, month) ascending.
type UnpaidSummary struct {
	Items    []UnpaidItem
	TotalDue Money
}

// PaymentGrid maps student ID to a month(1-12) -> paid mapping for one
// year, built from existing fee records only.
type PaymentGrid map[int64]map[int]bool

// DashboardStats is the compact overview for the current month.
type DashboardStats struct {
	TotalStudents int64
	Month         int
	Year          int
	PaidTotal     Money
	PendingTotal  Money
}

// FeeTotals is the paid/pending split across a student's whole ledger.
type FeeTotals struct {
	Paid    Money
	Pending Money
}
