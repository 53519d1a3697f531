package http

import (
	"context"
	"net/http"
	"time"

	"tuition/internal/core"
	"tuition/internal/middleware/security"
	"tuition/internal/session"
)

// sessionCookieName carries the manager session ID.
const sessionCookieName = "session_id"

type sessionContextKey struct{}

// sessionFromContext returns the authenticated session of the current
// request.
func sessionFromContext(ctx context.Context) (core.ManagerSession, bool) {
	record, ok := ctx.Value(sessionContextKey{}).(core.ManagerSession)
	return record, ok
}

// auth wraps a handler with session validation. The session is touched
// on every request and handed down via context.
func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil {
			writeJSON(w, r, http.StatusUnauthorized, errorResponse{Error: "login required"})
			return
		}

		record, err := s.sessions.Validate(r.Context(), cookie.Value)
		if err != nil {
			s.clearSessionCookie(w)
			writeJSON(w, r, http.StatusUnauthorized, errorResponse{Error: "login required"})
			return
		}

		ctx := context.WithValue(r.Context(), sessionContextKey{}, record)
		next(w, r.WithContext(ctx))
	}
}

type loginRequest struct {
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	SessionID string `json:"session_id"`
	Device    string `json:"device"`
	OS        string `json:"os"`
	Browser   string `json:"browser"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := s.decodeJSON(r, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}

	record, err := s.sessions.Login(r.Context(), session.LoginInput{
		Password:  req.Password,
		IPAddress: security.ClientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    record.SessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
		MaxAge:   int((30 * 24 * time.Hour).Seconds()),
	})
	writeJSON(w, r, http.StatusOK, loginResponse{
		SessionID: record.SessionID,
		Device:    record.DeviceName,
		OS:        record.OS,
		Browser:   record.Browser,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if record, ok := sessionFromContext(r.Context()); ok {
		if err := s.sessions.Logout(r.Context(), record.SessionID); err != nil {
			writeError(w, r, err)
			return
		}
	}
	s.clearSessionCookie(w)
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "logged out"})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

type sessionView struct {
	SessionID  string    `json:"session_id"`
	IPAddress  string    `json:"ip_address"`
	Device     string    `json:"device"`
	OS         string    `json:"os"`
	Browser    string    `json:"browser"`
	Active     bool      `json:"active"`
	Current    bool      `json:"current"`
	CreatedAt  time.Time `json:"created_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	current, _ := sessionFromContext(r.Context())

	overview, err := s.sessions.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	view := func(records []core.ManagerSession) []sessionView {
		out := make([]sessionView, 0, len(records))
		for _, rec := range records {
			out = append(out, sessionView{
				SessionID:  rec.SessionID,
				IPAddress:  rec.IPAddress,
				Device:     rec.DeviceName,
				OS:         rec.OS,
				Browser:    rec.Browser,
				Active:     rec.Active,
				Current:    rec.SessionID == current.SessionID,
				CreatedAt:  rec.CreatedAt,
				LastSeenAt: rec.LastSeenAt,
			})
		}
		return out
	}

	writeJSON(w, r, http.StatusOK, map[string][]sessionView{
		"active":   view(overview.Active),
		"inactive": view(overview.Inactive),
	})
}

func (s *Server) handleRevokeSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionID")

	revoked, err := s.sessions.Revoke(r.Context(), sessionID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !revoked {
		writeError(w, r, core.ErrNotFound)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "revoked"})
}

func (s *Server) handleRevokeOtherSessions(w http.ResponseWriter, r *http.Request) {
	current, _ := sessionFromContext(r.Context())

	n, err := s.sessions.RevokeOthers(r.Context(), current.SessionID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]int64{"revoked": n})
}
