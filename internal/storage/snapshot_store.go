package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"tuition/internal/core"
)

// Snapshot is the full verbatim row set of the database, the unit the
// backup codec serializes and restores.
type Snapshot struct {
	Students      []core.Student
	Fees          []core.FeeRecord
	InstituteInfo []core.InstituteInfo
	Sessions      []core.ManagerSession
}

// DumpAll reads every row of every entity table.
func (r *SQLiteRepository) DumpAll(ctx context.Context) (Snapshot, error) {
	var snap Snapshot

	students, err := r.db.QueryContext(ctx,
		`SELECT `+studentColumns+` FROM students ORDER BY id`)
	if err != nil {
		return Snapshot{}, fmt.Errorf("dump students: %w", err)
	}
	defer students.Close()
	for students.Next() {
		s, err := scanStudent(students)
		if err != nil {
			return Snapshot{}, fmt.Errorf("scan student: %w", err)
		}
		snap.Students = append(snap.Students, s)
	}
	if err := students.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("dump students: %w", err)
	}

	fees, err := r.db.QueryContext(ctx,
		`SELECT `+feeColumns+` FROM fees ORDER BY id`)
	if err != nil {
		return Snapshot{}, fmt.Errorf("dump fees: %w", err)
	}
	defer fees.Close()
	for fees.Next() {
		f, err := scanFee(fees)
		if err != nil {
			return Snapshot{}, fmt.Errorf("scan fee: %w", err)
		}
		snap.Fees = append(snap.Fees, f)
	}
	if err := fees.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("dump fees: %w", err)
	}

	info, err := r.GetInstituteInfo(ctx)
	if err == nil {
		snap.InstituteInfo = append(snap.InstituteInfo, info)
	} else if !errors.Is(err, core.ErrNotFound) {
		return Snapshot{}, err
	}

	sessions, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM manager_sessions ORDER BY id`)
	if err != nil {
		return Snapshot{}, fmt.Errorf("dump sessions: %w", err)
	}
	defer sessions.Close()
	for sessions.Next() {
		s, err := scanSession(sessions)
		if err != nil {
			return Snapshot{}, fmt.Errorf("scan session: %w", err)
		}
		snap.Sessions = append(snap.Sessions, s)
	}
	if err := sessions.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("dump sessions: %w", err)
	}

	return snap, nil
}

// ReplaceAll swaps the entire database contents for the snapshot in one
// transaction: delete everything, re-insert preserving the original
// numeric IDs, then realign the AUTOINCREMENT sequences so future
// inserts never collide with restored rows. The caller must have fully
// validated the snapshot before this point; once the transaction starts
// the old contents are gone on commit.
func (r *SQLiteRepository) ReplaceAll(ctx context.Context, snap Snapshot) error {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range []string{
			`DELETE FROM fees`,
			`DELETE FROM students`,
			`DELETE FROM manager_sessions`,
		} {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("clear tables: %w", err)
			}
		}

		for _, s := range snap.Students {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO students (id, admission_number, photo_path, name,
					father_name, mother_name, dob, gender, class, board,
					medium, school_name, address, mobile1, mobile2,
					fee_per_month_paise, discount_paise, admission_date,
					other_details, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				s.ID, s.AdmissionNumber, s.PhotoPath, s.Name, s.FatherName,
				s.MotherName, s.DOB, s.Gender, s.Class, s.Board, s.Medium,
				s.SchoolName, s.Address, s.Mobile1, s.Mobile2,
				s.FeePerMonth.Paise, s.Discount.Paise, s.AdmissionDate,
				s.OtherDetails, s.CreatedAt)
			if err != nil {
				return fmt.Errorf("restore student %d: %w", s.ID, err)
			}
		}

		for _, f := range snap.Fees {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO fees (id, student_id, month, year,
					fee_amount_paise, is_paid, payment_date, payment_mode,
					remarks, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				f.ID, f.StudentID, f.Month, f.Year, f.Amount.Paise,
				boolToInt(f.Paid), f.PaymentDate, f.PaymentMode, f.Remarks,
				f.CreatedAt)
			if err != nil {
				return fmt.Errorf("restore fee %d: %w", f.ID, err)
			}
		}

		for _, info := range snap.InstituteInfo {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO institute_info (id, name, address, contact,
					logo_path, signature_path)
				VALUES (?, ?, ?, ?, ?, ?)
				ON CONFLICT (id) DO UPDATE SET
					name = excluded.name,
					address = excluded.address,
					contact = excluded.contact,
					logo_path = excluded.logo_path,
					signature_path = excluded.signature_path`,
				info.ID, info.Name, info.Address, info.Contact,
				info.LogoPath, info.SignaturePath)
			if err != nil {
				return fmt.Errorf("restore institute info: %w", err)
			}
		}

		for _, s := range snap.Sessions {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO manager_sessions (id, session_id, ip_address,
					user_agent, device_name, os, browser, is_active,
					created_at, last_seen_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				s.ID, s.SessionID, s.IPAddress, s.UserAgent, s.DeviceName,
				s.OS, s.Browser, boolToInt(s.Active), s.CreatedAt, s.LastSeenAt)
			if err != nil {
				return fmt.Errorf("restore session %d: %w", s.ID, err)
			}
		}

		// Realign AUTOINCREMENT counters to max(id) per table.
		for _, table := range []string{"students", "fees", "manager_sessions"} {
			_, err := tx.ExecContext(ctx, `
				UPDATE sqlite_sequence
				SET seq = COALESCE((SELECT MAX(id) FROM `+table+`), 0)
				WHERE name = ?`, table)
			if err != nil {
				return fmt.Errorf("realign sequence for %s: %w", table, err)
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Database contents replaced from snapshot",
		"students", len(snap.Students),
		"fees", len(snap.Fees),
		"sessions", len(snap.Sessions))
	return nil
}
