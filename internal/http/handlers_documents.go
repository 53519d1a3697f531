package http

import (
	"net/http"
	"time"

	"tuition/internal/core"
	"tuition/internal/documents"
)

// handleReceipt renders the payment receipt for one ledger row, owned
// by the student in the path.
func (s *Server) handleReceipt(w http.ResponseWriter, r *http.Request) {
	studentID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	feeID, err := pathID(r, "feeID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	student, err := s.students.Get(r.Context(), studentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	fee, err := s.repo.GetFee(r.Context(), feeID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if fee.StudentID != student.ID {
		writeError(w, r, core.ErrNotFound)
		return
	}
	info, err := s.repo.GetInstituteInfo(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	receipt := documents.BuildReceipt(student, fee, info, time.Now())
	writeJSON(w, r, http.StatusOK, map[string]any{"receipt": receipt})
}

func (s *Server) handleDemandNotice(w http.ResponseWriter, r *http.Request) {
	studentID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	notice, err := s.buildDemandNotice(r, studentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"demand_notice": notice})
}

func (s *Server) buildDemandNotice(r *http.Request, studentID int64) (documents.DemandNotice, error) {
	// Reconcile first so the notice covers every month through today.
	student, _, err := s.students.GetWithLedger(r.Context(), studentID)
	if err != nil {
		return documents.DemandNotice{}, err
	}
	summary, err := s.summary.UnpaidSummary(r.Context(), studentID)
	if err != nil {
		return documents.DemandNotice{}, err
	}
	info, err := s.repo.GetInstituteInfo(r.Context())
	if err != nil {
		return documents.DemandNotice{}, err
	}
	return documents.BuildDemandNotice(student, summary, info, time.Now()), nil
}

func (s *Server) handleRegistrationCard(w http.ResponseWriter, r *http.Request) {
	studentID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	student, err := s.students.Get(r.Context(), studentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	info, err := s.repo.GetInstituteInfo(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	card := documents.BuildRegistrationCard(student, info, time.Now())
	writeJSON(w, r, http.StatusOK, map[string]any{"registration_card": card})
}

func (s *Server) handleExportStudentsCSV(w http.ResponseWriter, r *http.Request) {
	students, err := s.students.ListByAdmissionNumber(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="students.csv"`)
	if err := documents.WriteStudentsCSV(w, students); err != nil {
		slogRequestError(r, "students CSV export failed", err)
	}
}

func (s *Server) handleExportFeesCSV(w http.ResponseWriter, r *http.Request) {
	fees, err := s.repo.ListFeesJoined(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="fees.csv"`)
	if err := documents.WriteFeesCSV(w, fees); err != nil {
		slogRequestError(r, "fees CSV export failed", err)
	}
}

// publicStudent authorizes a tokenized share link and resolves its
// student. The token is derived from the admission number and the
// server secret, so links survive restarts but die with a secret
// rotation.
func (s *Server) publicStudent(r *http.Request) (core.Student, bool) {
	admissionNumber := r.PathValue("admissionNumber")
	token := r.PathValue("token")
	if !documents.VerifyToken(admissionNumber, s.cfg.SessionSecret, token) {
		return core.Student{}, false
	}
	student, err := s.students.GetByAdmissionNumber(r.Context(), admissionNumber)
	if err != nil {
		return core.Student{}, false
	}
	return student, true
}

func (s *Server) handlePublicDemand(w http.ResponseWriter, r *http.Request) {
	if cached, ok := s.documentCache.Get(r.URL.Path); ok {
		writeJSON(w, r, http.StatusOK, cached)
		return
	}
	student, ok := s.publicStudent(r)
	if !ok {
		writeJSON(w, r, http.StatusNotFound, errorResponse{Error: "document not found"})
		return
	}
	notice, err := s.buildDemandNotice(r, student.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	body := map[string]any{"demand_notice": notice}
	s.documentCache.Set(r.URL.Path, body)
	writeJSON(w, r, http.StatusOK, body)
}

func (s *Server) handlePublicReceipt(w http.ResponseWriter, r *http.Request) {
	if cached, ok := s.documentCache.Get(r.URL.Path); ok {
		writeJSON(w, r, http.StatusOK, cached)
		return
	}
	student, ok := s.publicStudent(r)
	if !ok {
		writeJSON(w, r, http.StatusNotFound, errorResponse{Error: "document not found"})
		return
	}
	feeID, err := pathID(r, "feeID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	fee, err := s.repo.GetFee(r.Context(), feeID)
	if err != nil || fee.StudentID != student.ID {
		writeJSON(w, r, http.StatusNotFound, errorResponse{Error: "document not found"})
		return
	}
	info, err := s.repo.GetInstituteInfo(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	body := map[string]any{"receipt": documents.BuildReceipt(student, fee, info, time.Now())}
	s.documentCache.Set(r.URL.Path, body)
	writeJSON(w, r, http.StatusOK, body)
}

func (s *Server) handlePublicProfile(w http.ResponseWriter, r *http.Request) {
	if cached, ok := s.documentCache.Get(r.URL.Path); ok {
		writeJSON(w, r, http.StatusOK, cached)
		return
	}
	student, ok := s.publicStudent(r)
	if !ok {
		writeJSON(w, r, http.StatusNotFound, errorResponse{Error: "document not found"})
		return
	}
	info, err := s.repo.GetInstituteInfo(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	body := map[string]any{
		"registration_card": documents.BuildRegistrationCard(student, info, time.Now()),
	}
	s.documentCache.Set(r.URL.Path, body)
	writeJSON(w, r, http.StatusOK, body)
}
