package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tuition/internal/core"
)

const sessionColumns = `id, session_id, ip_address, user_agent, device_name,
	os, browser, is_active, created_at, last_seen_at`

func scanSession(row interface{ Scan(...any) error }) (core.ManagerSession, error) {
	var s core.ManagerSession
	var active int
	err := row.Scan(&s.ID, &s.SessionID, &s.IPAddress, &s.UserAgent,
		&s.DeviceName, &s.OS, &s.Browser, &active, &s.CreatedAt, &s.LastSeenAt)
	s.Active = active != 0
	return s, err
}

// CreateSession records a new authenticated device.
func (r *SQLiteRepository) CreateSession(ctx context.Context, s core.ManagerSession) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO manager_sessions (session_id, ip_address, user_agent,
			device_name, os, browser)
		VALUES (?, ?, ?, ?, ?, ?)`,
		s.SessionID, s.IPAddress, s.UserAgent, s.DeviceName, s.OS, s.Browser)
	if err != nil {
		return 0, fmt.Errorf("insert session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("session insert id: %w", err)
	}
	return id, nil
}

// GetSession loads a session by its opaque session ID.
func (r *SQLiteRepository) GetSession(ctx context.Context, sessionID string) (core.ManagerSession, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM manager_sessions WHERE session_id = ?`,
		sessionID)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ManagerSession{}, core.ErrNotFound
	}
	if err != nil {
		return core.ManagerSession{}, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

// TouchSession bumps last_seen_at for an active session.
func (r *SQLiteRepository) TouchSession(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE manager_sessions SET last_seen_at = CURRENT_TIMESTAMP
		WHERE session_id = ? AND is_active = 1`, sessionID)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

// DeactivateSession marks one session inactive. Reports whether a row
// actually changed.
func (r *SQLiteRepository) DeactivateSession(ctx context.Context, sessionID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE manager_sessions SET is_active = 0
		WHERE session_id = ? AND is_active = 1`, sessionID)
	if err != nil {
		return false, fmt.Errorf("deactivate session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deactivate session: %w", err)
	}
	return n > 0, nil
}

// DeactivateOtherSessions marks every active session except the current
// one inactive and returns how many were revoked.
func (r *SQLiteRepository) DeactivateOtherSessions(ctx context.Context, currentSessionID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE manager_sessions SET is_active = 0
		WHERE session_id != ? AND is_active = 1`, currentSessionID)
	if err != nil {
		return 0, fmt.Errorf("deactivate other sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("deactivate other sessions: %w", err)
	}
	return n, nil
}

// ListSessions returns sessions filtered by active flag, most recently
// seen first. A limit of 0 means no limit.
func (r *SQLiteRepository) ListSessions(ctx context.Context, active bool, limit int) ([]core.ManagerSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM manager_sessions
		WHERE is_active = ? ORDER BY last_seen_at DESC`
	args := []any{boolToInt(active)}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []core.ManagerSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// DeleteInactiveSessionsBefore removes inactive sessions last seen
// before the cutoff and returns how many were removed.
func (r *SQLiteRepository) DeleteInactiveSessionsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM manager_sessions
		WHERE is_active = 0 AND last_seen_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("cleanup sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cleanup sessions: %w", err)
	}
	return n, nil
}
