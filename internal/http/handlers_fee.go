package http

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"tuition/internal/core"
	"tuition/internal/services"
)

type upsertFeeRequest struct {
	Month       int    `json:"month" validate:"required,min=1,max=12"`
	Year        int    `json:"year" validate:"required,min=2000,max=2100"`
	Amount      string `json:"amount" validate:"required"`
	Paid        bool   `json:"paid"`
	PaymentDate string `json:"payment_date"`
	PaymentMode string `json:"payment_mode"`
	Remarks     string `json:"remarks"`
}

// handleUpsertFee writes one ledger row for the student, creating or
// overwriting the row for that month and year. Manual entry is the one
// path allowed to change an amount after reconciliation.
func (s *Server) handleUpsertFee(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := s.students.Get(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	var req upsertFeeRequest
	if err := s.decodeJSON(r, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}
	paise, err := core.ParseDecimalToPaise(req.Amount)
	if err != nil {
		writeError(w, r, fmt.Errorf("amount: %w", err))
		return
	}
	if req.PaymentDate != "" {
		if _, err := core.ParseDate(req.PaymentDate); err != nil {
			writeError(w, r, fmt.Errorf("payment_date: %w", err))
			return
		}
	}

	feeID, err := s.ledger.UpsertFeeRecord(r.Context(), services.UpsertFeeInput{
		StudentID:   id,
		Month:       req.Month,
		Year:        req.Year,
		Amount:      core.Money{Paise: paise},
		Paid:        req.Paid,
		PaymentDate: sanitizeInput(req.PaymentDate),
		PaymentMode: sanitizeInput(req.PaymentMode),
		Remarks:     sanitizeInput(req.Remarks),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.documentCache.Purge()

	fee, err := s.repo.GetFee(r.Context(), feeID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"fee": viewFee(fee)})
}

type toggleFeeRequest struct {
	Month int `json:"month" validate:"required,min=1,max=12"`
	Year  int `json:"year" validate:"required,min=2000,max=2100"`
}

func (s *Server) handleToggleFee(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req toggleFeeRequest
	if err := s.decodeJSON(r, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}

	result, err := s.ledger.ToggleStatus(r.Context(), id, req.Month, req.Year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.documentCache.Purge()
	writeJSON(w, r, http.StatusOK, map[string]bool{"paid": result.New})
}

func (s *Server) handleDeleteFee(w http.ResponseWriter, r *http.Request) {
	feeID, err := pathID(r, "feeID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	studentID, err := s.ledger.DeleteFeeRecord(r.Context(), feeID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.documentCache.Purge()
	writeJSON(w, r, http.StatusOK, map[string]any{
		"status":     "deleted",
		"student_id": studentID,
	})
}

// handleGrid returns the year's payment matrix for every enrolled
// student, plus the year choices the picker can offer.
func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	year := 0
	if raw := r.URL.Query().Get("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: "year must be a number"})
			return
		}
		year = parsed
	}

	years, err := s.summary.AvailableYears(r.Context(), year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if year == 0 && len(years) > 0 {
		year = years[0]
	}
	if year == 0 {
		year = time.Now().Year()
	}

	grid, err := s.summary.GridView(r.Context(), year)
	if err != nil {
		writeError(w, r, err)
		return
	}

	students, err := s.students.ListByAdmissionNumber(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	type gridRow struct {
		StudentID       int64        `json:"student_id"`
		AdmissionNumber string       `json:"admission_number"`
		Name            string       `json:"name"`
		Class           string       `json:"class,omitempty"`
		Months          map[int]bool `json:"months"`
	}
	rows := make([]gridRow, 0, len(students))
	for _, st := range students {
		months := grid[st.ID]
		if months == nil {
			months = map[int]bool{}
		}
		rows = append(rows, gridRow{
			StudentID:       st.ID,
			AdmissionNumber: st.AdmissionNumber,
			Name:            st.Name,
			Class:           st.Class,
			Months:          months,
		})
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"year":  year,
		"years": years,
		"rows":  rows,
	})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := s.summary.DashboardStats(r.Context(), time.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"total_students": stats.TotalStudents,
		"month":          core.MonthName(stats.Month),
		"year":           stats.Year,
		"collected":      stats.PaidTotal.Decimal(),
		"pending":        stats.PendingTotal.Decimal(),
	})
}
