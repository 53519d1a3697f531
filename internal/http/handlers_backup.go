package http

import (
	"fmt"
	"net/http"
	"time"
)

// maxBackupBytes caps uploaded archive size.
const maxBackupBytes = 200 << 20

// handleBackupExport streams the full snapshot archive as a download.
func (s *Server) handleBackupExport(w http.ResponseWriter, r *http.Request) {
	name := fmt.Sprintf("backup_%s.zip", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))

	if err := s.codec.Export(r.Context(), w); err != nil {
		// Headers are on the wire; all we can do is log and cut the body.
		slogRequestError(r, "backup export failed", err)
	}
}

// handleBackupImport validates and restores an uploaded archive. The
// archive is fully validated before any row is touched, so a rejected
// upload leaves the database as it was.
func (s *Server) handleBackupImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBackupBytes)
	file, header, err := r.FormFile("backup")
	if err != nil {
		writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: "backup file required"})
		return
	}
	defer file.Close()

	result, err := s.codec.Import(r.Context(), file, header.Size)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.documentCache.Purge()

	writeJSON(w, r, http.StatusOK, map[string]any{
		"students_restored": result.StudentsRestored,
		"fees_restored":     result.FeesRestored,
	})
}
