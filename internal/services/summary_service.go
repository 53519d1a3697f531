package services

import (
	"context"
	"fmt"
	"time"

	"tuition/internal/core"
)

// SummaryStore is the read-only slice of storage the aggregator needs.
type SummaryStore interface {
	ListUnpaidByStudent(ctx context.Context, studentID int64) ([]core.FeeRecord, error)
	ListFeesForYear(ctx context.Context, year int) ([]core.FeeRecord, error)
	ListFeeYears(ctx context.Context) ([]int, error)
	CountStudents(ctx context.Context) (int64, error)
	SumFeesForPeriod(ctx context.Context, month, year int, paid bool) (core.Money, error)
	SumFeesForStudent(ctx context.Context, studentID int64, paid bool) (core.Money, error)
}

// SummaryService derives read-only views over the ledger. It never
// writes and never triggers reconciliation; bulk views must not
// silently mutate every student's ledger on a page load.
type SummaryService struct {
	store SummaryStore
}

// NewSummaryService wires the aggregator over the given store.
func NewSummaryService(store SummaryStore) *SummaryService {
	return &SummaryService{store: store}
}

// UnpaidSummary lists a student's outstanding months ordered by (year,
// month) ascending, with the arithmetic total.
func (s *SummaryService) UnpaidSummary(ctx context.Context, studentID int64) (core.UnpaidSummary, error) {
	unpaid, err := s.store.ListUnpaidByStudent(ctx, studentID)
	if err != nil {
		return core.UnpaidSummary{}, fmt.Errorf("unpaid summary for student %d: %w", studentID, err)
	}

	summary := core.UnpaidSummary{}
	for _, f := range unpaid {
		summary.Items = append(summary.Items, core.UnpaidItem{
			MonthName: core.MonthName(f.Month),
			Month:     f.Month,
			Year:      f.Year,
			Amount:    f.Amount,
		})
		summary.TotalDue = summary.TotalDue.Add(f.Amount)
	}
	return summary, nil
}

// GridView maps every student's fee rows for one year into a month ->
// paid lookup. Only existing rows appear; absent months are simply not
// in the inner map.
func (s *SummaryService) GridView(ctx context.Context, year int) (core.PaymentGrid, error) {
	fees, err := s.store.ListFeesForYear(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("grid view for %d: %w", year, err)
	}

	grid := make(core.PaymentGrid)
	for _, f := range fees {
		months, ok := grid[f.StudentID]
		if !ok {
			months = make(map[int]bool)
			grid[f.StudentID] = months
		}
		months[f.Month] = f.Paid
	}
	return grid, nil
}

// AvailableYears returns the distinct ledger years, newest first, with
// the requested year included even when it has no rows yet.
func (s *SummaryService) AvailableYears(ctx context.Context, requested int) ([]int, error) {
	years, err := s.store.ListFeeYears(ctx)
	if err != nil {
		return nil, err
	}
	for _, y := range years {
		if y == requested {
			return years, nil
		}
	}
	// Insert keeping descending order.
	out := make([]int, 0, len(years)+1)
	inserted := false
	for _, y := range years {
		if !inserted && requested > y {
			out = append(out, requested)
			inserted = true
		}
		out = append(out, y)
	}
	if !inserted {
		out = append(out, requested)
	}
	return out, nil
}

// DashboardStats summarizes the current month: enrollment count plus
// collected and pending totals.
func (s *SummaryService) DashboardStats(ctx context.Context, now time.Time) (core.DashboardStats, error) {
	month, year := int(now.Month()), now.Year()

	total, err := s.store.CountStudents(ctx)
	if err != nil {
		return core.DashboardStats{}, fmt.Errorf("dashboard stats: %w", err)
	}
	paid, err := s.store.SumFeesForPeriod(ctx, month, year, true)
	if err != nil {
		return core.DashboardStats{}, fmt.Errorf("dashboard stats: %w", err)
	}
	pending, err := s.store.SumFeesForPeriod(ctx, month, year, false)
	if err != nil {
		return core.DashboardStats{}, fmt.Errorf("dashboard stats: %w", err)
	}

	return core.DashboardStats{
		TotalStudents: total,
		Month:         month,
		Year:          year,
		PaidTotal:     paid,
		PendingTotal:  pending,
	}, nil
}

// StudentFeeTotals splits one student's whole ledger into paid and
// pending totals.
func (s *SummaryService) StudentFeeTotals(ctx context.Context, studentID int64) (core.FeeTotals, error) {
	paid, err := s.store.SumFeesForStudent(ctx, studentID, true)
	if err != nil {
		return core.FeeTotals{}, fmt.Errorf("fee totals for student %d: %w", studentID, err)
	}
	pending, err := s.store.SumFeesForStudent(ctx, studentID, false)
	if err != nil {
		return core.FeeTotals{}, fmt.Errorf("fee totals for student %d: %w", studentID, err)
	}
	return core.FeeTotals{Paid: paid, Pending: pending}, nil
}
