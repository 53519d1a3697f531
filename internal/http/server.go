// Package http is the JSON surface of the back office. Handlers stay
// thin: parse, call a service, shape the response.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"tuition/internal/backup"
	"tuition/internal/cache"
	"tuition/internal/config"
	"tuition/internal/middleware/ratelimit"
	"tuition/internal/middleware/security"
	"tuition/internal/middleware/trace"
	"tuition/internal/services"
	"tuition/internal/session"
	"tuition/internal/storage"
)

// loginAttemptsPerMinute caps password guesses per client IP.
const loginAttemptsPerMinute = 10

// Server wires the routes over the service layer.
type Server struct {
	http.Server

	cfg      *config.Config
	repo     *storage.SQLiteRepository
	students *services.StudentService
	ledger   *services.LedgerService
	summary  *services.SummaryService
	sessions *session.Service
	codec    *backup.Codec

	validate    *validator.Validate
	rateLimiter *ratelimit.Limiter

	// documentCache holds rendered public documents keyed by URL path,
	// so anonymous link refreshes skip the database.
	documentCache *cache.LRUCache[any]

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server.
func NewServer(cfg *config.Config, repo *storage.SQLiteRepository) *Server {
	ledger := services.NewLedgerService(repo)
	s := &Server{
		cfg:           cfg,
		repo:          repo,
		students:      services.NewStudentService(repo, ledger),
		ledger:        ledger,
		summary:       services.NewSummaryService(repo),
		sessions:      session.NewService(repo, cfg.ManagerPassword).WithRetention(cfg.SessionRetention),
		codec:         backup.NewCodec(repo, cfg.UploadDir, cfg.LogoDir),
		validate:      validator.New(),
		rateLimiter:   ratelimit.NewLimiter(loginAttemptsPerMinute),
		documentCache: cache.NewLRUCache[any](200, 5*time.Minute),
	}

	mux := http.NewServeMux()
	s.routes(mux)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(security.ClientIP)

	s.Server = http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      tracer.Middleware(headers.Middleware(mux)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// SessionService exposes the session service so cmd can run the
// periodic sweeper next to the server.
func (s *Server) SessionService() *session.Service {
	return s.sessions
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	// Auth. Login is throttled per client IP.
	limited := s.rateLimiter.Middleware(security.ClientIP)
	mux.Handle("POST /api/login", limited(http.HandlerFunc(s.handleLogin)))
	mux.HandleFunc("POST /api/logout", s.auth(s.handleLogout))

	// Sessions.
	mux.HandleFunc("GET /api/sessions", s.auth(s.handleListSessions))
	mux.HandleFunc("DELETE /api/sessions/{sessionID}", s.auth(s.handleRevokeSession))
	mux.HandleFunc("POST /api/sessions/revoke-others", s.auth(s.handleRevokeOtherSessions))

	// Students.
	mux.HandleFunc("POST /api/students", s.auth(s.handleRegisterStudent))
	mux.HandleFunc("GET /api/students", s.auth(s.handleListStudents))
	mux.HandleFunc("GET /api/students/{id}", s.auth(s.handleStudentDetail))
	mux.HandleFunc("PUT /api/students/{id}", s.auth(s.handleUpdateStudent))
	mux.HandleFunc("DELETE /api/students/{id}", s.auth(s.handleDeleteStudent))
	mux.HandleFunc("POST /api/students/{id}/photo", s.auth(s.handleUploadPhoto))

	// Fee ledger.
	mux.HandleFunc("PUT /api/students/{id}/fees", s.auth(s.handleUpsertFee))
	mux.HandleFunc("POST /api/students/{id}/fees/toggle", s.auth(s.handleToggleFee))
	mux.HandleFunc("DELETE /api/fees/{feeID}", s.auth(s.handleDeleteFee))
	mux.HandleFunc("GET /api/fees/grid", s.auth(s.handleGrid))
	mux.HandleFunc("GET /api/dashboard", s.auth(s.handleDashboard))

	// Institute profile.
	mux.HandleFunc("GET /api/institute", s.auth(s.handleGetInstitute))
	mux.HandleFunc("PUT /api/institute", s.auth(s.handleUpdateInstitute))

	// Documents and exports.
	mux.HandleFunc("GET /api/students/{id}/receipt/{feeID}", s.auth(s.handleReceipt))
	mux.HandleFunc("GET /api/students/{id}/demand", s.auth(s.handleDemandNotice))
	mux.HandleFunc("GET /api/students/{id}/card", s.auth(s.handleRegistrationCard))
	mux.HandleFunc("GET /api/export/students", s.auth(s.handleExportStudentsCSV))
	mux.HandleFunc("GET /api/export/fees", s.auth(s.handleExportFeesCSV))

	// Public, token-guarded document links shared over WhatsApp.
	mux.HandleFunc("GET /public/demand/{admissionNumber}/{token}", s.handlePublicDemand)
	mux.HandleFunc("GET /public/receipt/{admissionNumber}/{feeID}/{token}", s.handlePublicReceipt)
	mux.HandleFunc("GET /public/profile/{admissionNumber}/{token}", s.handlePublicProfile)

	// Backup.
	mux.HandleFunc("GET /api/backup/export", s.auth(s.handleBackupExport))
	mux.HandleFunc("POST /api/backup/import", s.auth(s.handleBackupImport))

	// Uploaded photos and the institute logo.
	cached := security.AssetCacheMiddleware(3600)
	mux.Handle("GET /uploads/", cached(http.StripPrefix("/uploads/",
		http.FileServer(http.Dir(s.cfg.UploadDir)))))
	mux.Handle("GET /logo/", cached(http.StripPrefix("/logo/",
		http.FileServer(http.Dir(s.cfg.LogoDir)))))
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.Ping(r.Context()); err != nil {
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Shutdown stops the server and its background helpers.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
