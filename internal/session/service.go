// Package session authenticates the single manager account and tracks
// the devices it is signed in from.
package session

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"tuition/internal/core"
)

// ErrBadPassword rejects a login attempt.
var ErrBadPassword = errors.New("incorrect password")

// ErrSessionRevoked marks a session that exists but is no longer
// active; the client must log in again.
var ErrSessionRevoked = errors.New("session revoked")

// inactiveListLimit caps how many revoked sessions the management view
// shows.
const inactiveListLimit = 10

// DefaultRetention is how long revoked sessions are kept before the
// sweeper deletes them.
const DefaultRetention = 30 * 24 * time.Hour

// Store is the slice of storage session tracking needs.
type Store interface {
	CreateSession(ctx context.Context, s core.ManagerSession) (int64, error)
	GetSession(ctx context.Context, sessionID string) (core.ManagerSession, error)
	TouchSession(ctx context.Context, sessionID string) error
	DeactivateSession(ctx context.Context, sessionID string) (bool, error)
	DeactivateOtherSessions(ctx context.Context, currentSessionID string) (int64, error)
	ListSessions(ctx context.Context, active bool, limit int) ([]core.ManagerSession, error)
	DeleteInactiveSessionsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Service owns the login/logout lifecycle and per-request validation.
type Service struct {
	store     Store
	password  string
	retention time.Duration
	now       func() time.Time
}

// NewService wires session management over the given store. password is
// the single manager password from configuration.
func NewService(store Store, password string) *Service {
	return &Service{
		store:     store,
		password:  password,
		retention: DefaultRetention,
		now:       time.Now,
	}
}

// WithRetention overrides how long revoked sessions are kept.
func (s *Service) WithRetention(d time.Duration) *Service {
	s.retention = d
	return s
}

// WithClock overrides the service clock; tests pin it to a fixed date.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// LoginInput carries the request-scoped facts a new session records.
type LoginInput struct {
	Password  string
	IPAddress string
	UserAgent string
}

// Login checks the manager password and records a new device session.
func (s *Service) Login(ctx context.Context, in LoginInput) (core.ManagerSession, error) {
	if subtle.ConstantTimeCompare([]byte(in.Password), []byte(s.password)) != 1 {
		return core.ManagerSession{}, ErrBadPassword
	}

	device, osName, browser := describeUserAgent(in.UserAgent)
	record := core.ManagerSession{
		SessionID:  uuid.NewString(),
		IPAddress:  in.IPAddress,
		UserAgent:  in.UserAgent,
		DeviceName: device,
		OS:         osName,
		Browser:    browser,
		Active:     true,
		CreatedAt:  s.now(),
		LastSeenAt: s.now(),
	}

	id, err := s.store.CreateSession(ctx, record)
	if err != nil {
		return core.ManagerSession{}, fmt.Errorf("create session: %w", err)
	}
	record.ID = id

	slog.InfoContext(ctx, "Manager logged in",
		"session_id", record.SessionID,
		"ip", record.IPAddress,
		"browser", record.Browser)
	return record, nil
}

// Validate loads and touches the session for one request. A revoked
// session returns ErrSessionRevoked; an unknown one core.ErrNotFound.
func (s *Service) Validate(ctx context.Context, sessionID string) (core.ManagerSession, error) {
	if sessionID == "" {
		return core.ManagerSession{}, core.ErrNotFound
	}
	record, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return core.ManagerSession{}, err
	}
	if !record.Active {
		return core.ManagerSession{}, ErrSessionRevoked
	}
	if err := s.store.TouchSession(ctx, sessionID); err != nil {
		return core.ManagerSession{}, fmt.Errorf("touch session: %w", err)
	}
	return record, nil
}

// Logout deactivates the caller's own session. Logging out a session
// that is already gone is not an error.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if _, err := s.store.DeactivateSession(ctx, sessionID); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// Revoke deactivates one session by its public ID, typically from the
// session management view. It reports whether a session was actually
// revoked.
func (s *Service) Revoke(ctx context.Context, sessionID string) (bool, error) {
	revoked, err := s.store.DeactivateSession(ctx, sessionID)
	if err != nil {
		return false, fmt.Errorf("revoke session: %w", err)
	}
	if revoked {
		slog.InfoContext(ctx, "Session revoked", "session_id", sessionID)
	}
	return revoked, nil
}

// RevokeOthers deactivates every active session except the caller's and
// returns how many were cut off.
func (s *Service) RevokeOthers(ctx context.Context, currentSessionID string) (int64, error) {
	n, err := s.store.DeactivateOtherSessions(ctx, currentSessionID)
	if err != nil {
		return 0, fmt.Errorf("revoke other sessions: %w", err)
	}
	if n > 0 {
		slog.InfoContext(ctx, "Other sessions revoked", "count", n)
	}
	return n, nil
}

// Overview is what the session management view shows: every active
// device plus the most recently revoked ones.
type Overview struct {
	Active   []core.ManagerSession
	Inactive []core.ManagerSession
}

// List assembles the management overview.
func (s *Service) List(ctx context.Context) (Overview, error) {
	active, err := s.store.ListSessions(ctx, true, 0)
	if err != nil {
		return Overview{}, fmt.Errorf("list active sessions: %w", err)
	}
	inactive, err := s.store.ListSessions(ctx, false, inactiveListLimit)
	if err != nil {
		return Overview{}, fmt.Errorf("list inactive sessions: %w", err)
	}
	return Overview{Active: active, Inactive: inactive}, nil
}

// Cleanup deletes revoked sessions older than the retention window and
// returns how many rows went away.
func (s *Service) Cleanup(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.retention)
	n, err := s.store.DeleteInactiveSessionsBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("session cleanup: %w", err)
	}
	if n > 0 {
		slog.InfoContext(ctx, "Stale sessions deleted", "count", n)
	}
	return n, nil
}

// Sweep runs Cleanup on a fixed interval until ctx is cancelled. It is
// meant to run as its own goroutine next to the HTTP server.
func (s *Service) Sweep(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.Cleanup(ctx); err != nil {
				slog.ErrorContext(ctx, "Session sweep failed", "error", err)
			}
		}
	}
}

// describeUserAgent extracts rough device, OS and browser names from a
// User-Agent header. It is informational only; the raw header is stored
// alongside.
func describeUserAgent(ua string) (device, osName, browser string) {
	device = "Desktop"
	osName = "Unknown"
	browser = "Unknown"
	if ua == "" {
		return "Unknown Device", osName, browser
	}

	lower := strings.ToLower(ua)

	switch {
	case strings.Contains(lower, "android"):
		device, osName = "Mobile", "Android"
	case strings.Contains(lower, "iphone"):
		device, osName = "Mobile", "iOS"
	case strings.Contains(lower, "ipad"):
		device, osName = "Tablet", "iOS"
	case strings.Contains(lower, "windows"):
		osName = "Windows"
	case strings.Contains(lower, "mac os"):
		osName = "macOS"
	case strings.Contains(lower, "linux"):
		osName = "Linux"
	}

	switch {
	case strings.Contains(lower, "edg/"):
		browser = "Edge"
	case strings.Contains(lower, "opr/"), strings.Contains(lower, "opera"):
		browser = "Opera"
	case strings.Contains(lower, "chrome"):
		browser = "Chrome"
	case strings.Contains(lower, "firefox"):
		browser = "Firefox"
	case strings.Contains(lower, "safari"):
		browser = "Safari"
	}

	return device, osName, browser
}
