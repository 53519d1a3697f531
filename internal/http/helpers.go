package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"tuition/internal/backup"
	"tuition/internal/core"
	"tuition/internal/session"
)

// writeJSON renders v with the given status. Encoding failures are
// logged; the status line is already on the wire by then.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(r.Context(), "Encode response", "error", err, "path", r.URL.Path)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps domain errors onto HTTP statuses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, core.ErrNotFound):
		status, message = http.StatusNotFound, "not found"
	case errors.Is(err, session.ErrBadPassword):
		status, message = http.StatusUnauthorized, "incorrect password"
	case errors.Is(err, session.ErrSessionRevoked):
		status, message = http.StatusUnauthorized, "session revoked"
	case errors.Is(err, backup.ErrInvalidArchive):
		status, message = http.StatusUnprocessableEntity, err.Error()
	case isValidationError(err):
		status, message = http.StatusUnprocessableEntity, err.Error()
	}

	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Request failed",
			"error", err, "method", r.Method, "path", r.URL.Path)
	}
	writeJSON(w, r, status, errorResponse{Error: message})
}

// slogRequestError reports a failure after the response status is
// already committed, where writeError can no longer help.
func slogRequestError(r *http.Request, msg string, err error) {
	slog.ErrorContext(r.Context(), msg,
		"error", err, "method", r.Method, "path", r.URL.Path)
}

func isValidationError(err error) bool {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return true
	}
	return errors.Is(err, core.ErrInvalidMonth) ||
		errors.Is(err, core.ErrInvalidYear) ||
		errors.Is(err, core.ErrInvalidAmount) ||
		errors.Is(err, core.ErrInvalidDate) ||
		errors.Is(err, core.ErrEmptyName)
}

// decodeJSON parses the request body into v and runs struct validation.
func (s *Server) decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	return s.validate.Struct(v)
}

// writeBadRequest handles body-level parse failures.
func writeBadRequest(w http.ResponseWriter, r *http.Request, err error) {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		writeJSON(w, r, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
}

// pathID parses a positive numeric path value.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, core.ErrNotFound
	}
	return id, nil
}

// sanitizeInput trims whitespace and strips control characters from a
// form value.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
