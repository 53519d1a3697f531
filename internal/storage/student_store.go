package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"tuition/internal/core"
)

const studentColumns = `id, admission_number, photo_path, name, father_name,
	mother_name, dob, gender, class, board, medium, school_name, address,
	mobile1, mobile2, fee_per_month_paise, discount_paise, admission_date,
	other_details, created_at`

// StudentSearchType selects which column a student search matches on.
type StudentSearchType string

const (
	SearchByName      StudentSearchType = "name"
	SearchByAdmission StudentSearchType = "admission"
	SearchByFather    StudentSearchType = "father"
)

func scanStudent(row interface{ Scan(...any) error }) (core.Student, error) {
	var s core.Student
	err := row.Scan(&s.ID, &s.AdmissionNumber, &s.PhotoPath, &s.Name,
		&s.FatherName, &s.MotherName, &s.DOB, &s.Gender, &s.Class, &s.Board,
		&s.Medium, &s.SchoolName, &s.Address, &s.Mobile1, &s.Mobile2,
		&s.FeePerMonth.Paise, &s.Discount.Paise, &s.AdmissionDate,
		&s.OtherDetails, &s.CreatedAt)
	return s, err
}

// CreateStudent inserts a new enrollment row and returns its ID.
func (r *SQLiteRepository) CreateStudent(ctx context.Context, s core.Student) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO students (
			admission_number, photo_path, name, father_name, mother_name,
			dob, gender, class, board, medium, school_name, address,
			mobile1, mobile2, fee_per_month_paise, discount_paise,
			admission_date, other_details
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.AdmissionNumber, s.PhotoPath, s.Name, s.FatherName, s.MotherName,
		s.DOB, s.Gender, s.Class, s.Board, s.Medium, s.SchoolName, s.Address,
		s.Mobile1, s.Mobile2, s.FeePerMonth.Paise, s.Discount.Paise,
		s.AdmissionDate, s.OtherDetails)
	if err != nil {
		return 0, fmt.Errorf("insert student: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("student insert id: %w", err)
	}

	slog.InfoContext(ctx, "Student created",
		"student_id", id,
		"admission_number", s.AdmissionNumber,
		"name", s.Name)
	return id, nil
}

// GetStudent loads one student by ID. Returns core.ErrNotFound when no
// row exists.
func (r *SQLiteRepository) GetStudent(ctx context.Context, id int64) (core.Student, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+studentColumns+` FROM students WHERE id = ?`, id)
	s, err := scanStudent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Student{}, core.ErrNotFound
	}
	if err != nil {
		return core.Student{}, fmt.Errorf("get student %d: %w", id, err)
	}
	return s, nil
}

// GetStudentByAdmissionNumber loads one student by admission number.
func (r *SQLiteRepository) GetStudentByAdmissionNumber(ctx context.Context, admissionNumber string) (core.Student, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+studentColumns+` FROM students WHERE admission_number = ?`,
		admissionNumber)
	s, err := scanStudent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Student{}, core.ErrNotFound
	}
	if err != nil {
		return core.Student{}, fmt.Errorf("get student %q: %w", admissionNumber, err)
	}
	return s, nil
}

// ListStudents returns students newest-first, optionally filtered by a
// case-insensitive substring search on the selected column.
func (r *SQLiteRepository) ListStudents(ctx context.Context, search string, searchType StudentSearchType) ([]core.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students ORDER BY created_at DESC, id DESC`
	args := []any{}
	if search != "" {
		column := "name"
		switch searchType {
		case SearchByAdmission:
			column = "admission_number"
		case SearchByFather:
			column = "father_name"
		}
		query = `SELECT ` + studentColumns + ` FROM students WHERE ` + column +
			` LIKE ? COLLATE NOCASE ORDER BY created_at DESC, id DESC`
		args = append(args, "%"+search+"%")
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()

	var students []core.Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		students = append(students, s)
	}
	return students, rows.Err()
}

// ListStudentsByAdmissionNumber returns all students ordered by admission
// number, the order the payment grid shows them in.
func (r *SQLiteRepository) ListStudentsByAdmissionNumber(ctx context.Context) ([]core.Student, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+studentColumns+` FROM students ORDER BY admission_number`)
	if err != nil {
		return nil, fmt.Errorf("list students by admission number: %w", err)
	}
	defer rows.Close()

	var students []core.Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		students = append(students, s)
	}
	return students, rows.Err()
}

// UpdateStudent overwrites all mutable student fields. ID and admission
// number never change after registration.
func (r *SQLiteRepository) UpdateStudent(ctx context.Context, s core.Student) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE students SET
			photo_path = ?, name = ?, father_name = ?, mother_name = ?,
			dob = ?, gender = ?, class = ?, board = ?, medium = ?,
			school_name = ?, address = ?, mobile1 = ?, mobile2 = ?,
			fee_per_month_paise = ?, discount_paise = ?, admission_date = ?,
			other_details = ?
		WHERE id = ?`,
		s.PhotoPath, s.Name, s.FatherName, s.MotherName, s.DOB, s.Gender,
		s.Class, s.Board, s.Medium, s.SchoolName, s.Address, s.Mobile1,
		s.Mobile2, s.FeePerMonth.Paise, s.Discount.Paise, s.AdmissionDate,
		s.OtherDetails, s.ID)
	if err != nil {
		return fmt.Errorf("update student %d: %w", s.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update student %d: %w", s.ID, err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// DeleteStudent removes a student; the fees FK cascade removes the
// ledger with it.
func (r *SQLiteRepository) DeleteStudent(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete student %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete student %d: %w", id, err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	slog.InfoContext(ctx, "Student deleted", "student_id", id)
	return nil
}

// CountStudents returns the total number of enrollment rows.
func (r *SQLiteRepository) CountStudents(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM students`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return n, nil
}

// CountAdmissionNumbersWithPrefix counts admission numbers beginning with
// prefix; admission number generation derives the next sequence from it.
func (r *SQLiteRepository) CountAdmissionNumbersWithPrefix(ctx context.Context, prefix string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM students WHERE admission_number LIKE ?`,
		prefix+"%").Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count admission numbers: %w", err)
	}
	return n, nil
}
