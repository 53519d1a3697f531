package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"tuition/internal/core"
	"tuition/internal/storage"
)

// StudentStore is the slice of storage enrollment management needs.
type StudentStore interface {
	CreateStudent(ctx context.Context, s core.Student) (int64, error)
	GetStudent(ctx context.Context, id int64) (core.Student, error)
	GetStudentByAdmissionNumber(ctx context.Context, admissionNumber string) (core.Student, error)
	ListStudents(ctx context.Context, search string, searchType storage.StudentSearchType) ([]core.Student, error)
	ListStudentsByAdmissionNumber(ctx context.Context) ([]core.Student, error)
	UpdateStudent(ctx context.Context, s core.Student) error
	DeleteStudent(ctx context.Context, id int64) error
	CountAdmissionNumbersWithPrefix(ctx context.Context, prefix string) (int64, error)
	ListFeesByStudent(ctx context.Context, studentID int64) ([]core.FeeRecord, error)
}

// StudentService manages enrollment records and keeps each student's
// ledger caught up on reads.
type StudentService struct {
	store  StudentStore
	ledger *LedgerService
	now    func() time.Time
}

// NewStudentService wires enrollment management over the given store
// and ledger engine.
func NewStudentService(store StudentStore, ledger *LedgerService) *StudentService {
	return &StudentService{store: store, ledger: ledger, now: time.Now}
}

// WithClock overrides the service clock; tests pin it to a fixed date.
func (s *StudentService) WithClock(now func() time.Time) *StudentService {
	s.now = now
	return s
}

// admissionPrefix is the fixed prefix of generated admission numbers.
const admissionPrefix = "SL"

// NextAdmissionNumber derives the next admission number for the current
// year: SL<year><sequence zero-padded to 4>.
func (s *StudentService) NextAdmissionNumber(ctx context.Context) (string, error) {
	year := strconv.Itoa(s.now().Year())
	count, err := s.store.CountAdmissionNumbersWithPrefix(ctx, admissionPrefix+year)
	if err != nil {
		return "", fmt.Errorf("next admission number: %w", err)
	}
	return fmt.Sprintf("%s%s%04d", admissionPrefix, year, count+1), nil
}

// Register creates an enrollment record, assigns its admission number
// and generates the initial fee ledger. An empty admission date
// defaults to today.
func (s *StudentService) Register(ctx context.Context, student core.Student) (core.Student, error) {
	if err := student.Validate(); err != nil {
		return core.Student{}, err
	}

	admissionNumber, err := s.NextAdmissionNumber(ctx)
	if err != nil {
		return core.Student{}, err
	}
	student.AdmissionNumber = admissionNumber

	if student.AdmissionDate == "" {
		student.AdmissionDate = core.FormatDate(s.now())
	}

	id, err := s.store.CreateStudent(ctx, student)
	if err != nil {
		return core.Student{}, fmt.Errorf("register student: %w", err)
	}
	student.ID = id

	if err := s.ledger.Reconcile(ctx, id, student.AdmissionDate,
		student.FeePerMonth, student.Discount, s.now()); err != nil {
		return core.Student{}, err
	}

	return student, nil
}

// Get loads one student without touching the ledger.
func (s *StudentService) Get(ctx context.Context, id int64) (core.Student, error) {
	return s.store.GetStudent(ctx, id)
}

// GetByAdmissionNumber loads one student by admission number without
// touching the ledger.
func (s *StudentService) GetByAdmissionNumber(ctx context.Context, admissionNumber string) (core.Student, error) {
	return s.store.GetStudentByAdmissionNumber(ctx, admissionNumber)
}

// GetWithLedger loads a student for a detail view: the ledger is
// reconciled up to now first, so the view always shows a gap-free
// ledger, then the full fee history is returned ordered by period.
func (s *StudentService) GetWithLedger(ctx context.Context, id int64) (core.Student, []core.FeeRecord, error) {
	student, err := s.store.GetStudent(ctx, id)
	if err != nil {
		return core.Student{}, nil, err
	}

	if err := s.ledger.Reconcile(ctx, student.ID, student.AdmissionDate,
		student.FeePerMonth, student.Discount, s.now()); err != nil {
		return core.Student{}, nil, err
	}

	fees, err := s.store.ListFeesByStudent(ctx, id)
	if err != nil {
		return core.Student{}, nil, err
	}
	return student, fees, nil
}

// List returns students newest-first, optionally filtered.
func (s *StudentService) List(ctx context.Context, search string, searchType storage.StudentSearchType) ([]core.Student, error) {
	return s.store.ListStudents(ctx, search, searchType)
}

// ListByAdmissionNumber returns all students in grid order.
func (s *StudentService) ListByAdmissionNumber(ctx context.Context) ([]core.Student, error) {
	return s.store.ListStudentsByAdmissionNumber(ctx)
}

// Update overwrites a student's mutable fields. Changed billing
// parameters only affect fee rows created afterwards; existing rows are
// never rewritten.
func (s *StudentService) Update(ctx context.Context, student core.Student) error {
	if err := student.Validate(); err != nil {
		return err
	}
	return s.store.UpdateStudent(ctx, student)
}

// Delete removes a student, their cascaded fee rows and their photo
// asset. A missing photo file is not an error.
func (s *StudentService) Delete(ctx context.Context, id int64) error {
	student, err := s.store.GetStudent(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.DeleteStudent(ctx, id); err != nil {
		return err
	}

	if student.PhotoPath != "" {
		if err := os.Remove(student.PhotoPath); err != nil && !os.IsNotExist(err) {
			slog.WarnContext(ctx, "Could not remove student photo",
				"student_id", id,
				"path", student.PhotoPath,
				"error", err)
		}
	}
	return nil
}
