package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tuition/internal/config"
	"tuition/internal/documents"
	"tuition/internal/storage"
)

const testPassword = "manager-secret"

func newTestServer(t *testing.T) *Server {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	cfg := &config.Config{
		Port:             "0",
		ManagerPassword:  testPassword,
		SessionSecret:    "test-secret",
		UploadDir:        t.TempDir(),
		LogoDir:          t.TempDir(),
		SessionRetention: 30 * 24 * time.Hour,
	}
	srv := NewServer(cfg, repo)
	t.Cleanup(func() { srv.rateLimiter.Stop() })
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rr, req)
	return rr
}

func login(t *testing.T, srv *Server) *http.Cookie {
	t.Helper()
	rr := doJSON(t, srv, http.MethodPost, "/api/login", map[string]string{"password": testPassword}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rr.Code, rr.Body.String())
	}
	for _, c := range rr.Result().Cookies() {
		if c.Name == "session_id" {
			return c
		}
	}
	t.Fatal("login response missing session cookie")
	return nil
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
	return body
}

func registerStudent(t *testing.T, srv *Server, cookie *http.Cookie) (int64, string) {
	t.Helper()
	rr := doJSON(t, srv, http.MethodPost, "/api/students", map[string]string{
		"name":           "Aryan Kumar",
		"father_name":    "Rajesh Kumar",
		"mobile1":        "9876543210",
		"class":          "10th",
		"fee_per_month":  "1000",
		"discount":       "100",
		"admission_date": "2024-01-15",
	}, cookie)
	if rr.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	student := body["student"].(map[string]any)
	id := int64(student["id"].(float64))
	admission := student["admission_number"].(string)
	return id, admission
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := doJSON(t, srv, http.MethodGet, path, nil, nil)
		if rr.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, rr.Code)
		}
	}
}

func TestLoginRequired(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodGet, "/api/students", nil, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated list status = %d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/login", map[string]string{"password": "wrong"}, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password status = %d", rr.Code)
	}

	cookie := login(t, srv)
	rr = doJSON(t, srv, http.MethodGet, "/api/students", nil, cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("authenticated list status = %d, body %s", rr.Code, rr.Body.String())
	}
}

func TestStudentLifecycle(t *testing.T) {
	srv := newTestServer(t)
	cookie := login(t, srv)

	id, admission := registerStudent(t, srv, cookie)
	if !strings.HasPrefix(admission, "SL") {
		t.Errorf("admission number = %q, want SL prefix", admission)
	}

	// Detail reconciles the ledger and carries the share links.
	rr := doJSON(t, srv, http.MethodGet, fmt.Sprintf("/api/students/%d", id), nil, cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("detail status = %d, body %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	fees := body["fees"].([]any)
	if len(fees) == 0 {
		t.Error("detail returned no ledger rows after reconciliation")
	}
	if wa := body["whatsapp_url"].(string); !strings.HasPrefix(wa, "https://wa.me/919876543210") {
		t.Errorf("whatsapp_url = %q", wa)
	}
	if !strings.Contains(body["demand_url"].(string), "/public/demand/"+admission+"/") {
		t.Errorf("demand_url = %q", body["demand_url"])
	}

	// Update keeps the admission number.
	rr = doJSON(t, srv, http.MethodPut, fmt.Sprintf("/api/students/%d", id), map[string]string{
		"name":           "Aryan Kumar",
		"father_name":    "Rajesh Kumar",
		"class":          "11th",
		"fee_per_month":  "1200",
		"admission_date": "2024-01-15",
	}, cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rr.Code, rr.Body.String())
	}
	updated := decodeBody(t, rr)["student"].(map[string]any)
	if updated["admission_number"].(string) != admission {
		t.Errorf("update changed admission number to %q", updated["admission_number"])
	}
	if updated["class"].(string) != "11th" {
		t.Errorf("class = %q after update", updated["class"])
	}

	rr = doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/api/students/%d", id), nil, cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rr.Code)
	}
	rr = doJSON(t, srv, http.MethodGet, fmt.Sprintf("/api/students/%d", id), nil, cookie)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("detail after delete status = %d", rr.Code)
	}
}

func TestRegisterValidation(t *testing.T) {
	srv := newTestServer(t)
	cookie := login(t, srv)

	rr := doJSON(t, srv, http.MethodPost, "/api/students", map[string]string{
		"father_name": "Rajesh Kumar",
	}, cookie)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("missing name status = %d, body %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/students", map[string]string{
		"name":          "Aryan Kumar",
		"father_name":   "Rajesh Kumar",
		"fee_per_month": "abc",
	}, cookie)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad amount status = %d, body %s", rr.Code, rr.Body.String())
	}
}

func TestFeeEndpoints(t *testing.T) {
	srv := newTestServer(t)
	cookie := login(t, srv)
	id, _ := registerStudent(t, srv, cookie)

	// Manual entry overwrites the reconciled January row.
	rr := doJSON(t, srv, http.MethodPut, fmt.Sprintf("/api/students/%d/fees", id), map[string]any{
		"month":        1,
		"year":         2024,
		"amount":       "450",
		"paid":         true,
		"payment_date": "2024-01-20",
		"payment_mode": "UPI",
	}, cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("upsert status = %d, body %s", rr.Code, rr.Body.String())
	}
	fee := decodeBody(t, rr)["fee"].(map[string]any)
	if fee["amount"].(string) != "450.00" || fee["paid"].(bool) != true {
		t.Errorf("upserted fee = %v", fee)
	}
	feeID := int64(fee["id"].(float64))

	// Toggle flips January back to unpaid.
	rr = doJSON(t, srv, http.MethodPost, fmt.Sprintf("/api/students/%d/fees/toggle", id), map[string]any{
		"month": 1,
		"year":  2024,
	}, cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("toggle status = %d, body %s", rr.Code, rr.Body.String())
	}
	if decodeBody(t, rr)["paid"].(bool) {
		t.Error("toggle should have marked January unpaid")
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/fees/grid?year=2024", nil, cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("grid status = %d, body %s", rr.Code, rr.Body.String())
	}
	grid := decodeBody(t, rr)
	if int(grid["year"].(float64)) != 2024 {
		t.Errorf("grid year = %v", grid["year"])
	}
	if rows := grid["rows"].([]any); len(rows) != 1 {
		t.Errorf("grid rows = %d, want 1", len(rows))
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/dashboard", nil, cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("dashboard status = %d, body %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/api/fees/%d", feeID), nil, cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete fee status = %d, body %s", rr.Code, rr.Body.String())
	}
	rr = doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/api/fees/%d", feeID), nil, cookie)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("delete missing fee status = %d", rr.Code)
	}
}

func TestInstituteEndpoints(t *testing.T) {
	srv := newTestServer(t)
	cookie := login(t, srv)

	rr := doJSON(t, srv, http.MethodGet, "/api/institute", nil, cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("get institute status = %d", rr.Code)
	}
	info := decodeBody(t, rr)["institute"].(map[string]any)
	if info["name"].(string) == "" {
		t.Error("seeded institute name missing")
	}

	rr = doJSON(t, srv, http.MethodPut, "/api/institute", map[string]string{
		"name":    "New Name Academy",
		"address": "New Address",
		"contact": "9999999999",
	}, cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("update institute status = %d, body %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/institute", nil, cookie)
	info = decodeBody(t, rr)["institute"].(map[string]any)
	if info["name"].(string) != "New Name Academy" {
		t.Errorf("institute name = %q after update", info["name"])
	}
}

func TestPublicDocumentLinks(t *testing.T) {
	srv := newTestServer(t)
	cookie := login(t, srv)
	_, admission := registerStudent(t, srv, cookie)

	token := documents.PublicToken(admission, srv.cfg.SessionSecret)

	rr := doJSON(t, srv, http.MethodGet, "/public/demand/"+admission+"/"+token, nil, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("public demand status = %d, body %s", rr.Code, rr.Body.String())
	}
	notice := decodeBody(t, rr)["demand_notice"].(map[string]any)
	if notice["student"].(map[string]any)["admission_number"].(string) != admission {
		t.Error("demand notice carries wrong student")
	}

	rr = doJSON(t, srv, http.MethodGet, "/public/demand/"+admission+"/0000000000000000", nil, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("bad token status = %d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodGet, "/public/profile/"+admission+"/"+token, nil, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("public profile status = %d", rr.Code)
	}
}

func TestCSVExports(t *testing.T) {
	srv := newTestServer(t)
	cookie := login(t, srv)
	registerStudent(t, srv, cookie)

	rr := doJSON(t, srv, http.MethodGet, "/api/export/students", nil, cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("students export status = %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("students export content type = %q", ct)
	}
	if !strings.Contains(rr.Body.String(), "Aryan Kumar") {
		t.Error("students export missing seeded student")
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/export/fees", nil, cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("fees export status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Fee ID") {
		t.Error("fees export missing header row")
	}
}

func TestBackupExportEndpoint(t *testing.T) {
	srv := newTestServer(t)
	cookie := login(t, srv)
	registerStudent(t, srv, cookie)

	rr := doJSON(t, srv, http.MethodGet, "/api/backup/export", nil, cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("backup export status = %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/zip" {
		t.Errorf("backup content type = %q", ct)
	}
	// ZIP local file header magic.
	if !bytes.HasPrefix(rr.Body.Bytes(), []byte("PK")) {
		t.Error("backup export body is not a zip archive")
	}
}

func TestSessionEndpoints(t *testing.T) {
	srv := newTestServer(t)
	first := login(t, srv)
	login(t, srv)

	rr := doJSON(t, srv, http.MethodGet, "/api/sessions", nil, first)
	if rr.Code != http.StatusOK {
		t.Fatalf("list sessions status = %d, body %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if active := body["active"].([]any); len(active) != 2 {
		t.Fatalf("active sessions = %d, want 2", len(active))
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/sessions/revoke-others", nil, first)
	if rr.Code != http.StatusOK {
		t.Fatalf("revoke others status = %d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/sessions", nil, first)
	body = decodeBody(t, rr)
	if active := body["active"].([]any); len(active) != 1 {
		t.Errorf("active sessions after revoke = %d, want 1", len(active))
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/logout", nil, first)
	if rr.Code != http.StatusOK {
		t.Fatalf("logout status = %d", rr.Code)
	}
	rr = doJSON(t, srv, http.MethodGet, "/api/sessions", nil, first)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("list after logout status = %d", rr.Code)
	}
}
