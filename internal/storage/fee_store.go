package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tuition/internal/core"
)

const feeColumns = `id, student_id, month, year, fee_amount_paise, is_paid,
	payment_date, payment_mode, remarks, created_at`

func scanFee(row interface{ Scan(...any) error }) (core.FeeRecord, error) {
	var f core.FeeRecord
	var paid int
	err := row.Scan(&f.ID, &f.StudentID, &f.Month, &f.Year, &f.Amount.Paise,
		&paid, &f.PaymentDate, &f.PaymentMode, &f.Remarks, &f.CreatedAt)
	f.Paid = paid != 0
	return f, err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// InsertFeeIfAbsent inserts a fee row unless one already exists for the
// (student, month, year) tuple. The UNIQUE constraint does the check, so
// a racing duplicate from concurrent reconciliation lands here as a
// silent conflict rather than corrupting the ledger. Reports whether a
// row was actually inserted.
func (r *SQLiteRepository) InsertFeeIfAbsent(ctx context.Context, f core.FeeRecord) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO fees (student_id, month, year, fee_amount_paise, is_paid,
			payment_date, payment_mode, remarks)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (student_id, month, year) DO NOTHING`,
		f.StudentID, f.Month, f.Year, f.Amount.Paise, boolToInt(f.Paid),
		f.PaymentDate, f.PaymentMode, f.Remarks)
	if err != nil {
		return false, fmt.Errorf("insert fee if absent: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert fee if absent: %w", err)
	}
	return n > 0, nil
}

// InsertFee inserts a fee row and returns its ID.
func (r *SQLiteRepository) InsertFee(ctx context.Context, f core.FeeRecord) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO fees (student_id, month, year, fee_amount_paise, is_paid,
			payment_date, payment_mode, remarks)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		f.StudentID, f.Month, f.Year, f.Amount.Paise, boolToInt(f.Paid),
		f.PaymentDate, f.PaymentMode, f.Remarks)
	if err != nil {
		return 0, fmt.Errorf("insert fee: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("fee insert id: %w", err)
	}
	return id, nil
}

// GetFee loads a single fee row by ID.
func (r *SQLiteRepository) GetFee(ctx context.Context, id int64) (core.FeeRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+feeColumns+` FROM fees WHERE id = ?`, id)
	f, err := scanFee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.FeeRecord{}, core.ErrNotFound
	}
	if err != nil {
		return core.FeeRecord{}, fmt.Errorf("get fee %d: %w", id, err)
	}
	return f, nil
}

// GetFeeByPeriod loads the unique fee row for (student, month, year).
func (r *SQLiteRepository) GetFeeByPeriod(ctx context.Context, studentID int64, month, year int) (core.FeeRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+feeColumns+` FROM fees WHERE student_id = ? AND month = ? AND year = ?`,
		studentID, month, year)
	f, err := scanFee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.FeeRecord{}, core.ErrNotFound
	}
	if err != nil {
		return core.FeeRecord{}, fmt.Errorf("get fee for student %d %d/%d: %w", studentID, month, year, err)
	}
	return f, nil
}

// UpdateFee overwrites all mutable fields of a fee row. This is the
// manual-correction path; reconciliation never goes through here.
func (r *SQLiteRepository) UpdateFee(ctx context.Context, f core.FeeRecord) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE fees SET fee_amount_paise = ?, is_paid = ?, payment_date = ?,
			payment_mode = ?, remarks = ?
		WHERE id = ?`,
		f.Amount.Paise, boolToInt(f.Paid), f.PaymentDate, f.PaymentMode,
		f.Remarks, f.ID)
	if err != nil {
		return fmt.Errorf("update fee %d: %w", f.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update fee %d: %w", f.ID, err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// SetFeeStatus updates the paid flag and payment metadata of one row.
func (r *SQLiteRepository) SetFeeStatus(ctx context.Context, id int64, paid bool, paymentDate, paymentMode string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE fees SET is_paid = ?, payment_date = ?, payment_mode = ?
		WHERE id = ?`,
		boolToInt(paid), paymentDate, paymentMode, id)
	if err != nil {
		return fmt.Errorf("set fee status %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set fee status %d: %w", id, err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// DeleteFee removes one fee row.
func (r *SQLiteRepository) DeleteFee(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM fees WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete fee %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete fee %d: %w", id, err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// ListFeesByStudent returns a student's full ledger ordered by (year,
// month) ascending.
func (r *SQLiteRepository) ListFeesByStudent(ctx context.Context, studentID int64) ([]core.FeeRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+feeColumns+` FROM fees WHERE student_id = ? ORDER BY year, month`,
		studentID)
	if err != nil {
		return nil, fmt.Errorf("list fees for student %d: %w", studentID, err)
	}
	defer rows.Close()

	var fees []core.FeeRecord
	for rows.Next() {
		f, err := scanFee(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fee: %w", err)
		}
		fees = append(fees, f)
	}
	return fees, rows.Err()
}

// ListUnpaidByStudent returns the student's unpaid rows ordered by
// (year, month) ascending.
func (r *SQLiteRepository) ListUnpaidByStudent(ctx context.Context, studentID int64) ([]core.FeeRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+feeColumns+` FROM fees WHERE student_id = ? AND is_paid = 0 ORDER BY year, month`,
		studentID)
	if err != nil {
		return nil, fmt.Errorf("list unpaid fees for student %d: %w", studentID, err)
	}
	defer rows.Close()

	var fees []core.FeeRecord
	for rows.Next() {
		f, err := scanFee(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fee: %w", err)
		}
		fees = append(fees, f)
	}
	return fees, rows.Err()
}

// ListFeesForYear returns (student_id, month, paid) triples for every fee
// row of the given year, the raw material of the payment grid.
func (r *SQLiteRepository) ListFeesForYear(ctx context.Context, year int) ([]core.FeeRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+feeColumns+` FROM fees WHERE year = ? ORDER BY student_id, month`,
		year)
	if err != nil {
		return nil, fmt.Errorf("list fees for year %d: %w", year, err)
	}
	defer rows.Close()

	var fees []core.FeeRecord
	for rows.Next() {
		f, err := scanFee(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fee: %w", err)
		}
		fees = append(fees, f)
	}
	return fees, rows.Err()
}

// ListFeesJoined returns every fee row joined with the owning student's
// admission number and name, newest period first. Used by the fees CSV
// export.
func (r *SQLiteRepository) ListFeesJoined(ctx context.Context) ([]JoinedFee, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT f.id, f.student_id, f.month, f.year, f.fee_amount_paise,
			f.is_paid, f.payment_date, f.payment_mode, f.remarks, f.created_at,
			s.admission_number, s.name
		FROM fees f
		JOIN students s ON f.student_id = s.id
		ORDER BY f.year DESC, f.month DESC`)
	if err != nil {
		return nil, fmt.Errorf("list joined fees: %w", err)
	}
	defer rows.Close()

	var fees []JoinedFee
	for rows.Next() {
		var jf JoinedFee
		var paid int
		err := rows.Scan(&jf.Fee.ID, &jf.Fee.StudentID, &jf.Fee.Month,
			&jf.Fee.Year, &jf.Fee.Amount.Paise, &paid, &jf.Fee.PaymentDate,
			&jf.Fee.PaymentMode, &jf.Fee.Remarks, &jf.Fee.CreatedAt,
			&jf.AdmissionNumber, &jf.StudentName)
		if err != nil {
			return nil, fmt.Errorf("scan joined fee: %w", err)
		}
		jf.Fee.Paid = paid != 0
		fees = append(fees, jf)
	}
	return fees, rows.Err()
}

// JoinedFee is a fee row paired with the owning student's identity.
type JoinedFee struct {
	Fee             core.FeeRecord
	AdmissionNumber string
	StudentName     string
}

// SumFeesForPeriod sums fee amounts across all students for one
// (month, year), split by paid status.
func (r *SQLiteRepository) SumFeesForPeriod(ctx context.Context, month, year int, paid bool) (core.Money, error) {
	var paise int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(fee_amount_paise), 0) FROM fees
		WHERE month = ? AND year = ? AND is_paid = ?`,
		month, year, boolToInt(paid)).Scan(&paise)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum fees for %d/%d: %w", month, year, err)
	}
	return core.Money{Paise: paise}, nil
}

// SumFeesForStudent sums one student's fee amounts by paid status.
func (r *SQLiteRepository) SumFeesForStudent(ctx context.Context, studentID int64, paid bool) (core.Money, error) {
	var paise int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(fee_amount_paise), 0) FROM fees
		WHERE student_id = ? AND is_paid = ?`,
		studentID, boolToInt(paid)).Scan(&paise)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum fees for student %d: %w", studentID, err)
	}
	return core.Money{Paise: paise}, nil
}

// ListFeeYears returns the distinct years present in the ledger, newest
// first.
func (r *SQLiteRepository) ListFeeYears(ctx context.Context) ([]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT year FROM fees ORDER BY year DESC`)
	if err != nil {
		return nil, fmt.Errorf("list fee years: %w", err)
	}
	defer rows.Close()

	var years []int
	for rows.Next() {
		var y int
		if err := rows.Scan(&y); err != nil {
			return nil, fmt.Errorf("scan year: %w", err)
		}
		years = append(years, y)
	}
	return years, rows.Err()
}

// CountFees returns the total number of ledger rows.
func (r *SQLiteRepository) CountFees(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM fees`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count fees: %w", err)
	}
	return n, nil
}
