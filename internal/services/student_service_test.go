package services

import (
	"context"
	"errors"
	"testing"

	"tuition/internal/core"
	"tuition/internal/storage"
)

func newStudentService(store *memStore, clock string, t *testing.T) *StudentService {
	t.Helper()
	now := fixedClock(t, clock)
	ledger := NewLedgerService(store).WithClock(now)
	return NewStudentService(store, ledger).WithClock(now)
}

func TestNextAdmissionNumber(t *testing.T) {
	store := newMemStore()
	svc := newStudentService(store, "2024-07-01", t)
	ctx := context.Background()

	first, err := svc.NextAdmissionNumber(ctx)
	if err != nil {
		t.Fatalf("NextAdmissionNumber: %v", err)
	}
	if first != "SL20240001" {
		t.Errorf("got %q, want SL20240001", first)
	}

	store.addStudent(core.Student{Name: "Asha", FatherName: "Ravi", AdmissionNumber: "SL20240001"})
	// Numbers from other years must not bump the sequence.
	store.addStudent(core.Student{Name: "Old", FatherName: "Older", AdmissionNumber: "SL20230007"})

	second, err := svc.NextAdmissionNumber(ctx)
	if err != nil {
		t.Fatalf("NextAdmissionNumber: %v", err)
	}
	if second != "SL20240002" {
		t.Errorf("got %q, want SL20240002", second)
	}
}

func TestRegister(t *testing.T) {
	store := newMemStore()
	svc := newStudentService(store, "2024-04-10", t)
	ctx := context.Background()

	student, err := svc.Register(ctx, core.Student{
		Name:          "Asha",
		FatherName:    "Ravi",
		AdmissionDate: "2024-01-15",
		FeePerMonth:   paise(1000),
		Discount:      paise(100),
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if student.ID == 0 {
		t.Error("registered student has no ID")
	}
	if student.AdmissionNumber != "SL20240001" {
		t.Errorf("got admission number %q, want SL20240001", student.AdmissionNumber)
	}

	fees, _ := store.ListFeesByStudent(ctx, student.ID)
	if len(fees) != 4 {
		t.Fatalf("expected ledger generated through April, got %d records", len(fees))
	}
	if fees[0].Amount != paise(900) {
		t.Errorf("got amount %s, want Rs 900.00", fees[0].Amount)
	}
}

func TestRegisterDefaultsAdmissionDate(t *testing.T) {
	store := newMemStore()
	svc := newStudentService(store, "2024-04-10", t)

	student, err := svc.Register(context.Background(), core.Student{
		Name:        "Vikram",
		FatherName:  "Suresh",
		FeePerMonth: paise(800),
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if student.AdmissionDate != "2024-04-10" {
		t.Errorf("got admission date %q, want today", student.AdmissionDate)
	}
}

func TestRegisterRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		student core.Student
		wantErr error
	}{
		{"empty name", core.Student{FatherName: "Ravi"}, core.ErrEmptyName},
		{"blank name", core.Student{Name: "   ", FatherName: "Ravi"}, core.ErrEmptyName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			svc := newStudentService(store, "2024-04-10", t)

			_, err := svc.Register(context.Background(), tt.student)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
			if len(store.students) != 0 {
				t.Errorf("invalid student was persisted")
			}
		})
	}
}

func TestGetWithLedgerReconcilesFirst(t *testing.T) {
	store := newMemStore()
	svc := newStudentService(store, "2024-03-20", t)
	ctx := context.Background()

	s := store.addStudent(core.Student{
		Name:          "Asha",
		FatherName:    "Ravi",
		AdmissionDate: "2024-01-15",
		FeePerMonth:   paise(1000),
		Discount:      paise(100),
	})

	_, fees, err := svc.GetWithLedger(ctx, s.ID)
	if err != nil {
		t.Fatalf("GetWithLedger: %v", err)
	}
	if len(fees) != 3 {
		t.Fatalf("expected ledger caught up through March, got %d records", len(fees))
	}
	for i, f := range fees {
		if f.Month != i+1 {
			t.Errorf("record %d out of order: month %d", i, f.Month)
		}
	}
}

func TestGetWithLedgerMissingStudent(t *testing.T) {
	svc := newStudentService(newMemStore(), "2024-03-20", t)

	_, _, err := svc.GetWithLedger(context.Background(), 42)
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("got %v, want core.ErrNotFound", err)
	}
}

func TestListSearch(t *testing.T) {
	store := newMemStore()
	svc := newStudentService(store, "2024-03-20", t)
	ctx := context.Background()

	store.addStudent(core.Student{Name: "Asha Kumari", FatherName: "Ravi", AdmissionNumber: "SL20240001"})
	store.addStudent(core.Student{Name: "Vikram Singh", FatherName: "Suresh", AdmissionNumber: "SL20240002"})

	byName, err := svc.List(ctx, "asha", storage.SearchByName)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(byName) != 1 || byName[0].Name != "Asha Kumari" {
		t.Errorf("name search: got %+v", byName)
	}

	byFather, err := svc.List(ctx, "suresh", storage.SearchByFather)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(byFather) != 1 || byFather[0].Name != "Vikram Singh" {
		t.Errorf("father search: got %+v", byFather)
	}

	all, err := svc.List(ctx, "", storage.SearchByName)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 || all[0].ID != 2 {
		t.Errorf("unfiltered list must be newest-first: %+v", all)
	}
}

func TestDeleteRemovesLedger(t *testing.T) {
	store := newMemStore()
	svc := newStudentService(store, "2024-03-20", t)
	ctx := context.Background()

	s := store.addStudent(core.Student{Name: "Asha", FatherName: "Ravi"})
	store.InsertFee(ctx, core.FeeRecord{StudentID: s.ID, Month: 1, Year: 2024, Amount: paise(500)})

	if err := svc.Delete(ctx, s.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.GetStudent(ctx, s.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("student still present after delete")
	}
	if fees, _ := store.ListFeesByStudent(ctx, s.ID); len(fees) != 0 {
		t.Errorf("fee rows survived the delete: %+v", fees)
	}
}
