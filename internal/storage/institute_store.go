package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tuition/internal/core"
)

// GetInstituteInfo loads the singleton configuration row.
func (r *SQLiteRepository) GetInstituteInfo(ctx context.Context) (core.InstituteInfo, error) {
	var info core.InstituteInfo
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, address, contact, logo_path, signature_path
		FROM institute_info WHERE id = 1`).
		Scan(&info.ID, &info.Name, &info.Address, &info.Contact,
			&info.LogoPath, &info.SignaturePath)
	if errors.Is(err, sql.ErrNoRows) {
		return core.InstituteInfo{}, core.ErrNotFound
	}
	if err != nil {
		return core.InstituteInfo{}, fmt.Errorf("get institute info: %w", err)
	}
	return info, nil
}

// UpdateInstituteInfo overwrites the singleton configuration row.
func (r *SQLiteRepository) UpdateInstituteInfo(ctx context.Context, info core.InstituteInfo) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE institute_info SET name = ?, address = ?, contact = ?,
			logo_path = ?, signature_path = ?
		WHERE id = 1`,
		info.Name, info.Address, info.Contact, info.LogoPath, info.SignaturePath)
	if err != nil {
		return fmt.Errorf("update institute info: %w", err)
	}
	return nil
}
