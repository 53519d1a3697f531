// Package backup turns the whole database plus its asset trees into a
// single portable ZIP archive, and restores such an archive in one
// all-or-nothing pass.
package backup

import (
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"tuition/internal/core"
	"tuition/internal/storage"
)

// ErrInvalidArchive marks an archive that failed validation before any
// destructive write happened. The database is guaranteed untouched.
var ErrInvalidArchive = errors.New("invalid backup archive")

// archiveVersion is the data.json document version this codec writes
// and the only one it accepts.
const archiveVersion = 1

const dataFileName = "data.json"

// SnapshotStore is the slice of storage the codec needs.
type SnapshotStore interface {
	DumpAll(ctx context.Context) (storage.Snapshot, error)
	ReplaceAll(ctx context.Context, snap storage.Snapshot) error
}

// Codec exports and imports full-database snapshot archives.
type Codec struct {
	store     SnapshotStore
	uploadDir string
	logoDir   string
	now       func() time.Time
}

// NewCodec wires a codec over the given store and asset directories.
func NewCodec(store SnapshotStore, uploadDir, logoDir string) *Codec {
	return &Codec{store: store, uploadDir: uploadDir, logoDir: logoDir, now: time.Now}
}

// WithClock overrides the codec clock; tests pin it to a fixed date.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	c.now = now
	return c
}

// document is the schema of data.json inside the archive.
type document struct {
	Version    int          `json:"version"`
	ExportedAt string       `json:"exported_at"`
	Statistics statistics   `json:"statistics"`
	Students   []studentRow `json:"students"`
	Fees       []feeRow     `json:"fees"`
	Institute  []instRow    `json:"institute_info"`
	Sessions   []sessionRow `json:"manager_sessions"`
}

// statistics is the manifest checked against the row sets on import.
type statistics struct {
	Students int `json:"students"`
	Fees     int `json:"fees"`
	Sessions int `json:"sessions"`
}

type studentRow struct {
	ID              int64  `json:"id"`
	AdmissionNumber string `json:"admission_number"`
	PhotoPath       string `json:"photo_path"`
	Name            string `json:"name"`
	FatherName      string `json:"father_name"`
	MotherName      string `json:"mother_name"`
	DOB             string `json:"dob"`
	Gender          string `json:"gender"`
	Class           string `json:"class"`
	Board           string `json:"board"`
	Medium          string `json:"medium"`
	SchoolName      string `json:"school_name"`
	Address         string `json:"address"`
	Mobile1         string `json:"mobile1"`
	Mobile2         string `json:"mobile2"`
	FeePerMonth     int64  `json:"fee_per_month_paise"`
	Discount        int64  `json:"discount_paise"`
	AdmissionDate   string `json:"admission_date"`
	OtherDetails    string `json:"other_details"`
	CreatedAt       string `json:"created_at"`
}

type feeRow struct {
	ID          int64  `json:"id"`
	StudentID   int64  `json:"student_id"`
	Month       int    `json:"month"`
	Year        int    `json:"year"`
	Amount      int64  `json:"fee_amount_paise"`
	Paid        bool   `json:"is_paid"`
	PaymentDate string `json:"payment_date"`
	PaymentMode string `json:"payment_mode"`
	Remarks     string `json:"remarks"`
	CreatedAt   string `json:"created_at"`
}

type instRow struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Address       string `json:"address"`
	Contact       string `json:"contact"`
	LogoPath      string `json:"logo_path"`
	SignaturePath string `json:"signature_path"`
}

type sessionRow struct {
	ID         int64  `json:"id"`
	SessionID  string `json:"session_id"`
	IPAddress  string `json:"ip_address"`
	UserAgent  string `json:"user_agent"`
	DeviceName string `json:"device_name"`
	OS         string `json:"os"`
	Browser    string `json:"browser"`
	Active     bool   `json:"is_active"`
	CreatedAt  string `json:"created_at"`
	LastSeenAt string `json:"last_seen_at"`
}

// Export writes a complete archive to w: data.json plus the uploads/
// and logo/ asset trees.
func (c *Codec) Export(ctx context.Context, w io.Writer) error {
	snap, err := c.store.DumpAll(ctx)
	if err != nil {
		return fmt.Errorf("export snapshot: %w", err)
	}

	zw := zip.NewWriter(w)

	doc := buildDocument(snap, c.now())
	entry, err := zw.Create(dataFileName)
	if err != nil {
		return fmt.Errorf("create %s: %w", dataFileName, err)
	}
	enc := json.NewEncoder(entry)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode %s: %w", dataFileName, err)
	}

	if err := addAssetTree(zw, c.uploadDir, "uploads"); err != nil {
		return err
	}
	if err := addAssetTree(zw, c.logoDir, "logo"); err != nil {
		return err
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}

	slog.InfoContext(ctx, "Backup exported",
		"students", len(snap.Students),
		"fees", len(snap.Fees),
		"sessions", len(snap.Sessions))
	return nil
}

// ImportResult reports what a successful restore brought back.
type ImportResult struct {
	StudentsRestored int
	FeesRestored     int
}

// Import validates the archive completely, then swaps the database
// contents for it and restores the asset trees. Any parse or validation
// failure returns ErrInvalidArchive with the database untouched.
func (c *Codec) Import(ctx context.Context, r io.ReaderAt, size int64) (ImportResult, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return ImportResult{}, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}

	doc, err := readDocument(zr)
	if err != nil {
		return ImportResult{}, err
	}
	if err := validateDocument(doc); err != nil {
		return ImportResult{}, err
	}
	if err := validateAssetPaths(zr); err != nil {
		return ImportResult{}, err
	}

	snap, err := documentToSnapshot(doc)
	if err != nil {
		return ImportResult{}, err
	}

	if err := c.store.ReplaceAll(ctx, snap); err != nil {
		return ImportResult{}, fmt.Errorf("restore snapshot: %w", err)
	}

	if err := c.restoreAssetTree(zr, "uploads", c.uploadDir); err != nil {
		return ImportResult{}, err
	}
	if err := c.restoreAssetTree(zr, "logo", c.logoDir); err != nil {
		return ImportResult{}, err
	}

	slog.InfoContext(ctx, "Backup imported",
		"students", len(snap.Students),
		"fees", len(snap.Fees))
	return ImportResult{
		StudentsRestored: len(snap.Students),
		FeesRestored:     len(snap.Fees),
	}, nil
}

func buildDocument(snap storage.Snapshot, exportedAt time.Time) document {
	doc := document{
		Version:    archiveVersion,
		ExportedAt: exportedAt.UTC().Format(time.RFC3339),
		Statistics: statistics{
			Students: len(snap.Students),
			Fees:     len(snap.Fees),
			Sessions: len(snap.Sessions),
		},
		Students: make([]studentRow, 0, len(snap.Students)),
		Fees:     make([]feeRow, 0, len(snap.Fees)),
		Sessions: make([]sessionRow, 0, len(snap.Sessions)),
	}

	for _, s := range snap.Students {
		doc.Students = append(doc.Students, studentRow{
			ID:              s.ID,
			AdmissionNumber: s.AdmissionNumber,
			PhotoPath:       s.PhotoPath,
			Name:            s.Name,
			FatherName:      s.FatherName,
			MotherName:      s.MotherName,
			DOB:             s.DOB,
			Gender:          s.Gender,
			Class:           s.Class,
			Board:           s.Board,
			Medium:          s.Medium,
			SchoolName:      s.SchoolName,
			Address:         s.Address,
			Mobile1:         s.Mobile1,
			Mobile2:         s.Mobile2,
			FeePerMonth:     s.FeePerMonth.Paise,
			Discount:        s.Discount.Paise,
			AdmissionDate:   s.AdmissionDate,
			OtherDetails:    s.OtherDetails,
			CreatedAt:       s.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	for _, f := range snap.Fees {
		doc.Fees = append(doc.Fees, feeRow{
			ID:          f.ID,
			StudentID:   f.StudentID,
			Month:       f.Month,
			Year:        f.Year,
			Amount:      f.Amount.Paise,
			Paid:        f.Paid,
			PaymentDate: f.PaymentDate,
			PaymentMode: f.PaymentMode,
			Remarks:     f.Remarks,
			CreatedAt:   f.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	for _, info := range snap.InstituteInfo {
		doc.Institute = append(doc.Institute, instRow{
			ID:            info.ID,
			Name:          info.Name,
			Address:       info.Address,
			Contact:       info.Contact,
			LogoPath:      info.LogoPath,
			SignaturePath: info.SignaturePath,
		})
	}
	for _, s := range snap.Sessions {
		doc.Sessions = append(doc.Sessions, sessionRow{
			ID:         s.ID,
			SessionID:  s.SessionID,
			IPAddress:  s.IPAddress,
			UserAgent:  s.UserAgent,
			DeviceName: s.DeviceName,
			OS:         s.OS,
			Browser:    s.Browser,
			Active:     s.Active,
			CreatedAt:  s.CreatedAt.UTC().Format(time.RFC3339),
			LastSeenAt: s.LastSeenAt.UTC().Format(time.RFC3339),
		})
	}
	return doc
}

func readDocument(zr *zip.Reader) (document, error) {
	var entry *zip.File
	for _, f := range zr.File {
		if f.Name == dataFileName {
			entry = f
			break
		}
	}
	if entry == nil {
		return document{}, fmt.Errorf("%w: %s missing", ErrInvalidArchive, dataFileName)
	}

	rc, err := entry.Open()
	if err != nil {
		return document{}, fmt.Errorf("%w: open %s: %v", ErrInvalidArchive, dataFileName, err)
	}
	defer rc.Close()

	var doc document
	if err := json.NewDecoder(rc).Decode(&doc); err != nil {
		return document{}, fmt.Errorf("%w: decode %s: %v", ErrInvalidArchive, dataFileName, err)
	}
	return doc, nil
}

func validateDocument(doc document) error {
	if doc.Version != archiveVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrInvalidArchive, doc.Version)
	}
	if doc.Statistics.Students != len(doc.Students) ||
		doc.Statistics.Fees != len(doc.Fees) ||
		doc.Statistics.Sessions != len(doc.Sessions) {
		return fmt.Errorf("%w: statistics manifest does not match row counts", ErrInvalidArchive)
	}

	studentIDs := make(map[int64]bool, len(doc.Students))
	admissionNumbers := make(map[string]bool, len(doc.Students))
	for _, s := range doc.Students {
		if s.ID <= 0 {
			return fmt.Errorf("%w: student with id %d", ErrInvalidArchive, s.ID)
		}
		if studentIDs[s.ID] {
			return fmt.Errorf("%w: duplicate student id %d", ErrInvalidArchive, s.ID)
		}
		if s.AdmissionNumber == "" || admissionNumbers[s.AdmissionNumber] {
			return fmt.Errorf("%w: bad admission number %q for student %d", ErrInvalidArchive, s.AdmissionNumber, s.ID)
		}
		studentIDs[s.ID] = true
		admissionNumbers[s.AdmissionNumber] = true
	}

	feeTuples := make(map[[3]int64]bool, len(doc.Fees))
	for _, f := range doc.Fees {
		if f.ID <= 0 {
			return fmt.Errorf("%w: fee with id %d", ErrInvalidArchive, f.ID)
		}
		if !studentIDs[f.StudentID] {
			return fmt.Errorf("%w: fee %d references unknown student %d", ErrInvalidArchive, f.ID, f.StudentID)
		}
		if f.Month < 1 || f.Month > 12 {
			return fmt.Errorf("%w: fee %d has month %d", ErrInvalidArchive, f.ID, f.Month)
		}
		tuple := [3]int64{f.StudentID, int64(f.Month), int64(f.Year)}
		if feeTuples[tuple] {
			return fmt.Errorf("%w: duplicate fee period %d/%d for student %d", ErrInvalidArchive, f.Month, f.Year, f.StudentID)
		}
		feeTuples[tuple] = true
	}

	return nil
}

func documentToSnapshot(doc document) (storage.Snapshot, error) {
	var snap storage.Snapshot

	for _, s := range doc.Students {
		createdAt, err := parseTimestamp(s.CreatedAt)
		if err != nil {
			return storage.Snapshot{}, fmt.Errorf("%w: student %d created_at: %v", ErrInvalidArchive, s.ID, err)
		}
		snap.Students = append(snap.Students, core.Student{
			ID:              s.ID,
			AdmissionNumber: s.AdmissionNumber,
			PhotoPath:       s.PhotoPath,
			Name:            s.Name,
			FatherName:      s.FatherName,
			MotherName:      s.MotherName,
			DOB:             s.DOB,
			Gender:          s.Gender,
			Class:           s.Class,
			Board:           s.Board,
			Medium:          s.Medium,
			SchoolName:      s.SchoolName,
			Address:         s.Address,
			Mobile1:         s.Mobile1,
			Mobile2:         s.Mobile2,
			FeePerMonth:     core.Money{Paise: s.FeePerMonth},
			Discount:        core.Money{Paise: s.Discount},
			AdmissionDate:   s.AdmissionDate,
			OtherDetails:    s.OtherDetails,
			CreatedAt:       createdAt,
		})
	}
	for _, f := range doc.Fees {
		createdAt, err := parseTimestamp(f.CreatedAt)
		if err != nil {
			return storage.Snapshot{}, fmt.Errorf("%w: fee %d created_at: %v", ErrInvalidArchive, f.ID, err)
		}
		snap.Fees = append(snap.Fees, core.FeeRecord{
			ID:          f.ID,
			StudentID:   f.StudentID,
			Month:       f.Month,
			Year:        f.Year,
			Amount:      core.Money{Paise: f.Amount},
			Paid:        f.Paid,
			PaymentDate: f.PaymentDate,
			PaymentMode: f.PaymentMode,
			Remarks:     f.Remarks,
			CreatedAt:   createdAt,
		})
	}
	for _, info := range doc.Institute {
		snap.InstituteInfo = append(snap.InstituteInfo, core.InstituteInfo{
			ID:            info.ID,
			Name:          info.Name,
			Address:       info.Address,
			Contact:       info.Contact,
			LogoPath:      info.LogoPath,
			SignaturePath: info.SignaturePath,
		})
	}
	for _, s := range doc.Sessions {
		createdAt, err := parseTimestamp(s.CreatedAt)
		if err != nil {
			return storage.Snapshot{}, fmt.Errorf("%w: session %d created_at: %v", ErrInvalidArchive, s.ID, err)
		}
		lastSeen, err := parseTimestamp(s.LastSeenAt)
		if err != nil {
			return storage.Snapshot{}, fmt.Errorf("%w: session %d last_seen_at: %v", ErrInvalidArchive, s.ID, err)
		}
		snap.Sessions = append(snap.Sessions, core.ManagerSession{
			ID:         s.ID,
			SessionID:  s.SessionID,
			IPAddress:  s.IPAddress,
			UserAgent:  s.UserAgent,
			DeviceName: s.DeviceName,
			OS:         s.OS,
			Browser:    s.Browser,
			Active:     s.Active,
			CreatedAt:  createdAt,
			LastSeenAt: lastSeen,
		})
	}
	return snap, nil
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}

// addAssetTree writes every regular file under dir into the archive
// under prefix/. A missing directory simply contributes nothing.
func addAssetTree(zw *zip.Writer, dir, prefix string) error {
	if dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}

	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}

		entry, err := zw.Create(path.Join(prefix, filepath.ToSlash(rel)))
		if err != nil {
			return fmt.Errorf("archive %s: %w", rel, err)
		}
		f, err := os.Open(p)
		if err != nil {
			return fmt.Errorf("archive %s: %w", rel, err)
		}
		defer f.Close()
		if _, err := io.Copy(entry, f); err != nil {
			return fmt.Errorf("archive %s: %w", rel, err)
		}
		return nil
	})
}

// validateAssetPaths rejects any uploads/ or logo/ entry that would
// escape its target directory. Runs before the database is touched so
// a bad entry never aborts a half-finished restore.
func validateAssetPaths(zr *zip.Reader) error {
	for _, f := range zr.File {
		for _, prefix := range []string{"uploads/", "logo/"} {
			if !strings.HasPrefix(f.Name, prefix) || strings.HasSuffix(f.Name, "/") {
				continue
			}
			rel := strings.TrimPrefix(f.Name, prefix)
			if rel == "" || !fs.ValidPath(rel) {
				return fmt.Errorf("%w: unsafe archive path %q", ErrInvalidArchive, f.Name)
			}
		}
	}
	return nil
}

// restoreAssetTree extracts prefix/ entries into dir. Entry paths have
// already been vetted by validateAssetPaths; only I/O can fail here.
func (c *Codec) restoreAssetTree(zr *zip.Reader, prefix, dir string) error {
	if dir == "" {
		return nil
	}

	for _, f := range zr.File {
		if !strings.HasPrefix(f.Name, prefix+"/") || strings.HasSuffix(f.Name, "/") {
			continue
		}
		rel := strings.TrimPrefix(f.Name, prefix+"/")

		dest := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return fmt.Errorf("restore %s: %w", f.Name, err)
		}

		if err := extractFile(f, dest); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(f *zip.File, dest string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("restore %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("restore %s: %w", f.Name, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("restore %s: %w", f.Name, err)
	}
	return out.Close()
}
