// Package services holds the business logic of the tuition back office:
// ledger reconciliation, due aggregation, enrollment and the document
// data builders' inputs. Services depend on narrow store interfaces so
// tests can run against in-memory fakes.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tuition/internal/core"
)

// LedgerStore is the slice of storage the ledger engine needs.
type LedgerStore interface {
	InsertFeeIfAbsent(ctx context.Context, f core.FeeRecord) (bool, error)
	InsertFee(ctx context.Context, f core.FeeRecord) (int64, error)
	UpdateFee(ctx context.Context, f core.FeeRecord) error
	SetFeeStatus(ctx context.Context, id int64, paid bool, paymentDate, paymentMode string) error
	GetFeeByPeriod(ctx context.Context, studentID int64, month, year int) (core.FeeRecord, error)
	DeleteFee(ctx context.Context, id int64) error
	GetFee(ctx context.Context, id int64) (core.FeeRecord, error)
}

// LedgerService materializes and corrects the monthly fee ledger.
type LedgerService struct {
	store LedgerStore
	now   func() time.Time
}

// NewLedgerService wires a ledger engine over the given store.
func NewLedgerService(store LedgerStore) *LedgerService {
	return &LedgerService{store: store, now: time.Now}
}

// WithClock overrides the service clock; tests pin it to a fixed date.
func (s *LedgerService) WithClock(now func() time.Time) *LedgerService {
	s.now = now
	return s
}

// Reconcile makes sure one fee row exists for every calendar month from
// the admission month through asOf's month. It only ever inserts; rows
// already present keep their stored amount and status no matter what the
// student's current billing parameters say. Amounts are fixed at
// creation time.
//
// A missing or unparseable admission date makes this a silent no-op.
// That is policy, not an oversight: detail views call Reconcile
// defensively and must never be blocked by incomplete legacy data.
func (s *LedgerService) Reconcile(ctx context.Context, studentID int64, admissionDate string, feePerMonth, discount core.Money, asOf time.Time) error {
	if admissionDate == "" {
		return nil
	}
	admission, err := core.ParseDate(admissionDate)
	if err != nil {
		return nil
	}

	netFee := core.Money{Paise: feePerMonth.Paise - discount.Paise}

	created := 0
	for _, p := range core.FeeSchedule(admission, asOf) {
		inserted, err := s.store.InsertFeeIfAbsent(ctx, core.FeeRecord{
			StudentID: studentID,
			Month:     p.Month,
			Year:      p.Year,
			Amount:    netFee,
			Paid:      false,
		})
		if err != nil {
			return fmt.Errorf("reconcile student %d at %s: %w", studentID, p.Label(), err)
		}
		if inserted {
			created++
		}
	}

	if created > 0 {
		slog.InfoContext(ctx, "Ledger reconciled",
			"student_id", studentID,
			"records_created", created,
			"amount_paise", netFee.Paise)
	}
	return nil
}

// ReconcileStudent is Reconcile driven off a loaded student row, as of
// now.
func (s *LedgerService) ReconcileStudent(ctx context.Context, student core.Student) error {
	return s.Reconcile(ctx, student.ID, student.AdmissionDate,
		student.FeePerMonth, student.Discount, s.now())
}

// ToggleResult reports a status flip.
type ToggleResult struct {
	Previous bool
	New      bool
}

// ToggleStatus flips the paid flag of the unique (student, month, year)
// row. Marking paid stamps today's date and the default payment mode;
// marking unpaid clears both. A missing row is core.ErrNotFound; the
// toggle deliberately never creates ledger rows.
func (s *LedgerService) ToggleStatus(ctx context.Context, studentID int64, month, year int) (ToggleResult, error) {
	fee, err := s.store.GetFeeByPeriod(ctx, studentID, month, year)
	if err != nil {
		return ToggleResult{}, err
	}

	newPaid := !fee.Paid
	paymentDate := ""
	paymentMode := ""
	if newPaid {
		paymentDate = core.FormatDate(s.now())
		paymentMode = core.DefaultPaymentMode
	}

	if err := s.store.SetFeeStatus(ctx, fee.ID, newPaid, paymentDate, paymentMode); err != nil {
		return ToggleResult{}, fmt.Errorf("toggle fee %d: %w", fee.ID, err)
	}

	slog.InfoContext(ctx, "Fee status toggled",
		"student_id", studentID,
		"month", month,
		"year", year,
		"paid", newPaid)
	return ToggleResult{Previous: fee.Paid, New: newPaid}, nil
}

// UpsertFeeInput is an explicit, user-driven fee write.
type UpsertFeeInput struct {
	StudentID   int64
	Month       int
	Year        int
	Amount      core.Money
	Paid        bool
	PaymentDate string
	PaymentMode string
	Remarks     string
}

// UpsertFeeRecord writes a fee row for (student, month, year),
// overwriting every mutable field if the row exists and inserting it
// otherwise. This is the one path that can override an amount set by
// Reconcile: manual correction always wins.
func (s *LedgerService) UpsertFeeRecord(ctx context.Context, in UpsertFeeInput) (int64, error) {
	record := core.FeeRecord{
		StudentID:   in.StudentID,
		Month:       in.Month,
		Year:        in.Year,
		Amount:      in.Amount,
		Paid:        in.Paid,
		PaymentDate: in.PaymentDate,
		PaymentMode: in.PaymentMode,
		Remarks:     in.Remarks,
	}
	if err := record.Validate(); err != nil {
		return 0, err
	}

	existing, err := s.store.GetFeeByPeriod(ctx, in.StudentID, in.Month, in.Year)
	switch {
	case err == nil:
		record.ID = existing.ID
		if err := s.store.UpdateFee(ctx, record); err != nil {
			return 0, err
		}
		return existing.ID, nil
	case errors.Is(err, core.ErrNotFound):
		return s.store.InsertFee(ctx, record)
	default:
		return 0, err
	}
}

// DeleteFeeRecord removes one ledger row by ID and returns the owning
// student so callers can navigate back to the ledger view.
func (s *LedgerService) DeleteFeeRecord(ctx context.Context, feeID int64) (int64, error) {
	fee, err := s.store.GetFee(ctx, feeID)
	if err != nil {
		return 0, err
	}
	if err := s.store.DeleteFee(ctx, feeID); err != nil {
		return 0, err
	}
	return fee.StudentID, nil
}
