package http

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tuition/internal/core"
	"tuition/internal/documents"
	"tuition/internal/notify"
	"tuition/internal/storage"
)

// studentRequest is the write payload for registration and update.
// Amounts arrive as decimal rupee strings, the way the enrollment form
// submits them.
type studentRequest struct {
	Name          string `json:"name" validate:"required"`
	FatherName    string `json:"father_name" validate:"required"`
	MotherName    string `json:"mother_name"`
	DOB           string `json:"dob"`
	Gender        string `json:"gender"`
	Class         string `json:"class"`
	Board         string `json:"board"`
	Medium        string `json:"medium"`
	SchoolName    string `json:"school_name"`
	Address       string `json:"address"`
	Mobile1       string `json:"mobile1"`
	Mobile2       string `json:"mobile2"`
	FeePerMonth   string `json:"fee_per_month"`
	Discount      string `json:"discount"`
	AdmissionDate string `json:"admission_date"`
	OtherDetails  string `json:"other_details"`
}

func (req studentRequest) toStudent() (core.Student, error) {
	feePaise, err := core.ParseDecimalToPaise(req.FeePerMonth)
	if err != nil {
		return core.Student{}, fmt.Errorf("fee_per_month: %w", err)
	}
	discountPaise, err := core.ParseDecimalToPaise(req.Discount)
	if err != nil {
		return core.Student{}, fmt.Errorf("discount: %w", err)
	}
	if req.AdmissionDate != "" {
		if _, err := core.ParseDate(req.AdmissionDate); err != nil {
			return core.Student{}, fmt.Errorf("admission_date: %w", err)
		}
	}

	return core.Student{
		Name:          sanitizeInput(req.Name),
		FatherName:    sanitizeInput(req.FatherName),
		MotherName:    sanitizeInput(req.MotherName),
		DOB:           sanitizeInput(req.DOB),
		Gender:        sanitizeInput(req.Gender),
		Class:         sanitizeInput(req.Class),
		Board:         sanitizeInput(req.Board),
		Medium:        sanitizeInput(req.Medium),
		SchoolName:    sanitizeInput(req.SchoolName),
		Address:       sanitizeInput(req.Address),
		Mobile1:       sanitizeInput(req.Mobile1),
		Mobile2:       sanitizeInput(req.Mobile2),
		FeePerMonth:   core.Money{Paise: feePaise},
		Discount:      core.Money{Paise: discountPaise},
		AdmissionDate: sanitizeInput(req.AdmissionDate),
		OtherDetails:  sanitizeInput(req.OtherDetails),
	}, nil
}

type studentView struct {
	ID              int64  `json:"id"`
	AdmissionNumber string `json:"admission_number"`
	PhotoPath       string `json:"photo_path,omitempty"`
	Name            string `json:"name"`
	FatherName      string `json:"father_name"`
	MotherName      string `json:"mother_name,omitempty"`
	DOB             string `json:"dob,omitempty"`
	Gender          string `json:"gender,omitempty"`
	Class           string `json:"class,omitempty"`
	Board           string `json:"board,omitempty"`
	Medium          string `json:"medium,omitempty"`
	SchoolName      string `json:"school_name,omitempty"`
	Address         string `json:"address,omitempty"`
	Mobile1         string `json:"mobile1,omitempty"`
	Mobile2         string `json:"mobile2,omitempty"`
	FeePerMonth     string `json:"fee_per_month"`
	Discount        string `json:"discount"`
	NetFee          string `json:"net_fee"`
	AdmissionDate   string `json:"admission_date"`
	OtherDetails    string `json:"other_details,omitempty"`
}

func viewStudent(s core.Student) studentView {
	return studentView{
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
		FeePerMonth:     s.FeePerMonth.Decimal(),
		Discount:        s.Discount.Decimal(),
		NetFee:          s.NetFee().Decimal(),
		AdmissionDate:   s.AdmissionDate,
		OtherDetails:    s.OtherDetails,
	}
}

// requestBaseURL rebuilds the externally visible origin for share
// links.
func requestBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func (s *Server) handleRegisterStudent(w http.ResponseWriter, r *http.Request) {
	var req studentRequest
	if err := s.decodeJSON(r, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}

	student, err := req.toStudent()
	if err != nil {
		writeError(w, r, err)
		return
	}

	registered, err := s.students.Register(r.Context(), student)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.documentCache.Purge()

	info, err := s.repo.GetInstituteInfo(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	token := documents.PublicToken(registered.AdmissionNumber, s.cfg.SessionSecret)
	cardURL := fmt.Sprintf("%s/public/profile/%s/%s",
		requestBaseURL(r), registered.AdmissionNumber, token)

	writeJSON(w, r, http.StatusCreated, map[string]any{
		"student":      viewStudent(registered),
		"card_url":     cardURL,
		"whatsapp_url": notify.RegistrationWelcome(registered, info, cardURL),
	})
}

func (s *Server) handleListStudents(w http.ResponseWriter, r *http.Request) {
	search := sanitizeInput(r.URL.Query().Get("search"))
	searchType := storage.SearchByName
	switch r.URL.Query().Get("search_type") {
	case "admission":
		searchType = storage.SearchByAdmission
	case "father":
		searchType = storage.SearchByFather
	}

	var (
		students []core.Student
		err      error
	)
	if r.URL.Query().Get("order") == "admission" {
		students, err = s.students.ListByAdmissionNumber(r.Context())
	} else {
		students, err = s.students.List(r.Context(), search, searchType)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	views := make([]studentView, 0, len(students))
	for _, st := range students {
		views = append(views, viewStudent(st))
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"students": views})
}

type feeView struct {
	ID          int64  `json:"id"`
	Month       int    `json:"month"`
	MonthName   string `json:"month_name"`
	Year        int    `json:"year"`
	Amount      string `json:"amount"`
	Paid        bool   `json:"paid"`
	PaymentDate string `json:"payment_date,omitempty"`
	PaymentMode string `json:"payment_mode,omitempty"`
	Remarks     string `json:"remarks,omitempty"`
}

func viewFee(f core.FeeRecord) feeView {
	return feeView{
		ID:          f.ID,
		Month:       f.Month,
		MonthName:   core.MonthName(f.Month),
		Year:        f.Year,
		Amount:      f.Amount.Decimal(),
		Paid:        f.Paid,
		PaymentDate: f.PaymentDate,
		PaymentMode: f.PaymentMode,
		Remarks:     f.Remarks,
	}
}

// handleStudentDetail is the detail view: the ledger is reconciled up
// to today first, then the full history, dues summary and share links
// are returned together.
func (s *Server) handleStudentDetail(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	student, fees, err := s.students.GetWithLedger(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	summary, err := s.summary.UnpaidSummary(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	totals, err := s.summary.StudentFeeTotals(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	info, err := s.repo.GetInstituteInfo(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	feeViews := make([]feeView, 0, len(fees))
	for _, f := range fees {
		feeViews = append(feeViews, viewFee(f))
	}

	dueItems := make([]string, 0, len(summary.Items))
	for _, item := range summary.Items {
		dueItems = append(dueItems, item.Label())
	}

	token := documents.PublicToken(student.AdmissionNumber, s.cfg.SessionSecret)
	demandURL := fmt.Sprintf("%s/public/demand/%s/%s",
		requestBaseURL(r), student.AdmissionNumber, token)

	writeJSON(w, r, http.StatusOK, map[string]any{
		"student":       viewStudent(student),
		"fees":          feeViews,
		"unpaid":        dueItems,
		"total_due":     summary.TotalDue.Decimal(),
		"total_paid":    totals.Paid.Decimal(),
		"total_pending": totals.Pending.Decimal(),
		"demand_url":    demandURL,
		"whatsapp_url":  notify.DemandReminder(student, summary, info, demandURL),
	})
}

func (s *Server) handleUpdateStudent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req studentRequest
	if err := s.decodeJSON(r, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}

	existing, err := s.students.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	student, err := req.toStudent()
	if err != nil {
		writeError(w, r, err)
		return
	}
	student.ID = existing.ID
	student.AdmissionNumber = existing.AdmissionNumber
	student.PhotoPath = existing.PhotoPath

	if err := s.students.Update(r.Context(), student); err != nil {
		writeError(w, r, err)
		return
	}
	s.documentCache.Purge()
	writeJSON(w, r, http.StatusOK, map[string]any{"student": viewStudent(student)})
}

func (s *Server) handleDeleteStudent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.students.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	s.documentCache.Purge()
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "deleted"})
}

// maxPhotoBytes caps uploaded photo size.
const maxPhotoBytes = 5 << 20

func (s *Server) handleUploadPhoto(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	student, err := s.students.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoBytes)
	file, header, err := r.FormFile("photo")
	if err != nil {
		writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: "photo file required"})
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	switch ext {
	case ".jpg", ".jpeg", ".png":
	default:
		writeJSON(w, r, http.StatusUnprocessableEntity, errorResponse{Error: "photo must be jpg or png"})
		return
	}

	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		writeError(w, r, err)
		return
	}
	name := fmt.Sprintf("student_%d_%d%s", id, time.Now().Unix(), ext)
	dest := filepath.Join(s.cfg.UploadDir, name)

	out, err := os.Create(dest)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		os.Remove(dest)
		writeError(w, r, err)
		return
	}
	if err := out.Close(); err != nil {
		writeError(w, r, err)
		return
	}

	// Drop the previous photo file, if any.
	if student.PhotoPath != "" {
		_ = os.Remove(student.PhotoPath)
	}

	student.PhotoPath = dest
	if err := s.students.Update(r.Context(), student); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"photo_path": dest})
}
