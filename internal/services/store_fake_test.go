package services

import (
	"context"
	"sort"
	"strings"

	"tuition/internal/core"
	"tuition/internal/storage"
)

// memStore is an in-memory stand-in for the SQLite repository. It
// enforces the same (student, month, year) uniqueness the schema does.
type memStore struct {
	students      map[int64]core.Student
	fees          map[int64]core.FeeRecord
	nextStudentID int64
	nextFeeID     int64
}

func newMemStore() *memStore {
	return &memStore{
		students: make(map[int64]core.Student),
		fees:     make(map[int64]core.FeeRecord),
	}
}

func (m *memStore) addStudent(s core.Student) core.Student {
	m.nextStudentID++
	s.ID = m.nextStudentID
	m.students[s.ID] = s
	return s
}

func (m *memStore) feeByPeriod(studentID int64, month, year int) (core.FeeRecord, bool) {
	for _, f := range m.fees {
		if f.StudentID == studentID && f.Month == month && f.Year == year {
			return f, true
		}
	}
	return core.FeeRecord{}, false
}

func sortFees(fees []core.FeeRecord) {
	sort.Slice(fees, func(i, j int) bool {
		if fees[i].Year != fees[j].Year {
			return fees[i].Year < fees[j].Year
		}
		return fees[i].Month < fees[j].Month
	})
}

// LedgerStore

func (m *memStore) InsertFeeIfAbsent(_ context.Context, f core.FeeRecord) (bool, error) {
	if _, exists := m.feeByPeriod(f.StudentID, f.Month, f.Year); exists {
		return false, nil
	}
	m.nextFeeID++
	f.ID = m.nextFeeID
	m.fees[f.ID] = f
	return true, nil
}

func (m *memStore) InsertFee(_ context.Context, f core.FeeRecord) (int64, error) {
	m.nextFeeID++
	f.ID = m.nextFeeID
	m.fees[f.ID] = f
	return f.ID, nil
}

func (m *memStore) UpdateFee(_ context.Context, f core.FeeRecord) error {
	existing, ok := m.fees[f.ID]
	if !ok {
		return core.ErrNotFound
	}
	f.StudentID = existing.StudentID
	f.CreatedAt = existing.CreatedAt
	m.fees[f.ID] = f
	return nil
}

func (m *memStore) SetFeeStatus(_ context.Context, id int64, paid bool, paymentDate, paymentMode string) error {
	f, ok := m.fees[id]
	if !ok {
		return core.ErrNotFound
	}
	f.Paid = paid
	f.PaymentDate = paymentDate
	f.PaymentMode = paymentMode
	m.fees[id] = f
	return nil
}

func (m *memStore) GetFeeByPeriod(_ context.Context, studentID int64, month, year int) (core.FeeRecord, error) {
	if f, ok := m.feeByPeriod(studentID, month, year); ok {
		return f, nil
	}
	return core.FeeRecord{}, core.ErrNotFound
}

func (m *memStore) GetFee(_ context.Context, id int64) (core.FeeRecord, error) {
	if f, ok := m.fees[id]; ok {
		return f, nil
	}
	return core.FeeRecord{}, core.ErrNotFound
}

func (m *memStore) DeleteFee(_ context.Context, id int64) error {
	if _, ok := m.fees[id]; !ok {
		return core.ErrNotFound
	}
	delete(m.fees, id)
	return nil
}

// SummaryStore

func (m *memStore) ListUnpaidByStudent(_ context.Context, studentID int64) ([]core.FeeRecord, error) {
	var out []core.FeeRecord
	for _, f := range m.fees {
		if f.StudentID == studentID && !f.Paid {
			out = append(out, f)
		}
	}
	sortFees(out)
	return out, nil
}

func (m *memStore) ListFeesForYear(_ context.Context, year int) ([]core.FeeRecord, error) {
	var out []core.FeeRecord
	for _, f := range m.fees {
		if f.Year == year {
			out = append(out, f)
		}
	}
	sortFees(out)
	return out, nil
}

func (m *memStore) ListFeeYears(_ context.Context) ([]int, error) {
	seen := make(map[int]bool)
	for _, f := range m.fees {
		seen[f.Year] = true
	}
	var years []int
	for y := range seen {
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years, nil
}

func (m *memStore) CountStudents(_ context.Context) (int64, error) {
	return int64(len(m.students)), nil
}

func (m *memStore) SumFeesForPeriod(_ context.Context, month, year int, paid bool) (core.Money, error) {
	var total core.Money
	for _, f := range m.fees {
		if f.Month == month && f.Year == year && f.Paid == paid {
			total = total.Add(f.Amount)
		}
	}
	return total, nil
}

func (m *memStore) SumFeesForStudent(_ context.Context, studentID int64, paid bool) (core.Money, error) {
	var total core.Money
	for _, f := range m.fees {
		if f.StudentID == studentID && f.Paid == paid {
			total = total.Add(f.Amount)
		}
	}
	return total, nil
}

// StudentStore

func (m *memStore) CreateStudent(_ context.Context, s core.Student) (int64, error) {
	return m.addStudent(s).ID, nil
}

func (m *memStore) GetStudent(_ context.Context, id int64) (core.Student, error) {
	if s, ok := m.students[id]; ok {
		return s, nil
	}
	return core.Student{}, core.ErrNotFound
}

func (m *memStore) GetStudentByAdmissionNumber(_ context.Context, admissionNumber string) (core.Student, error) {
	for _, s := range m.students {
		if s.AdmissionNumber == admissionNumber {
			return s, nil
		}
	}
	return core.Student{}, core.ErrNotFound
}

func (m *memStore) ListStudents(_ context.Context, search string, searchType storage.StudentSearchType) ([]core.Student, error) {
	var out []core.Student
	for _, s := range m.students {
		if search != "" {
			field := s.Name
			switch searchType {
			case storage.SearchByAdmission:
				field = s.AdmissionNumber
			case storage.SearchByFather:
				field = s.FatherName
			}
			if !strings.Contains(strings.ToLower(field), strings.ToLower(search)) {
				continue
			}
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memStore) ListStudentsByAdmissionNumber(_ context.Context) ([]core.Student, error) {
	var out []core.Student
	for _, s := range m.students {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].AdmissionNumber < out[j].AdmissionNumber
	})
	return out, nil
}

func (m *memStore) UpdateStudent(_ context.Context, s core.Student) error {
	existing, ok := m.students[s.ID]
	if !ok {
		return core.ErrNotFound
	}
	s.AdmissionNumber = existing.AdmissionNumber
	s.CreatedAt = existing.CreatedAt
	m.students[s.ID] = s
	return nil
}

func (m *memStore) DeleteStudent(_ context.Context, id int64) error {
	if _, ok := m.students[id]; !ok {
		return core.ErrNotFound
	}
	delete(m.students, id)
	for fid, f := range m.fees {
		if f.StudentID == id {
			delete(m.fees, fid)
		}
	}
	return nil
}

func (m *memStore) CountAdmissionNumbersWithPrefix(_ context.Context, prefix string) (int64, error) {
	var n int64
	for _, s := range m.students {
		if strings.HasPrefix(s.AdmissionNumber, prefix) {
			n++
		}
	}
	return n, nil
}

func (m *memStore) ListFeesByStudent(_ context.Context, studentID int64) ([]core.FeeRecord, error) {
	var out []core.FeeRecord
	for _, f := range m.fees {
		if f.StudentID == studentID {
			out = append(out, f)
		}
	}
	sortFees(out)
	return out, nil
}
