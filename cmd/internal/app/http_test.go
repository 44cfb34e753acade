package app

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestApp(t *testing.T) *App {
	t.Helper()

	// Cheap hashing keeps the end-to-end flow fast.
	t.Setenv("ROSTER_ARGON2_MEMORY_KIB", "8192")
	t.Setenv("ROSTER_ARGON2_ITERATIONS", "1")
	t.Setenv("ROSTER_TOKEN_HMAC_KEY", "")
	t.Setenv("ROSTER_AUTH_ACCESS_SECRET", "app-test-access-secret")
	t.Setenv("ROSTER_AUTH_REFRESH_SECRET", "app-test-refresh-secret")
	t.Setenv("ROSTER_DATABASE_URL", "")

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := New(LoadConfig(), log)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func newTestMux(t *testing.T, a *App) *http.ServeMux {
	t.Helper()
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.cfg, a.dbPool, a.dbEnabled, a.metrics, a.auth, a.userAPI, a.positionAPI)
	return mux
}

func TestHealthAndReadiness(t *testing.T) {
	a := newTestApp(t)
	mux := newTestMux(t, a)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz: %d", rec.Code)
	}

	// In-memory mode is ready by default.
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("readyz: %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: %d", rec.Code)
	}
}

func TestReadinessRequiresDB(t *testing.T) {
	a := newTestApp(t)
	a.cfg.ReadinessRequireDB = true
	mux := newTestMux(t, a)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz without db: %d", rec.Code)
	}
}

// TestWiredSessionFlow drives register, login, a guarded position create, and
// a guarded list through the fully assembled mux.
func TestWiredSessionFlow(t *testing.T) {
	a := newTestApp(t)
	mux := newTestMux(t, a)

	do := func(method, path, bearer string, body any) *httptest.ResponseRecorder {
		t.Helper()
		var buf bytes.Buffer
		if body != nil {
			if err := json.NewEncoder(&buf).Encode(body); err != nil {
				t.Fatalf("encode: %v", err)
			}
		}
		req := httptest.NewRequest(method, path, &buf)
		req.Header.Set("Content-Type", "application/json")
		if bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		return rec
	}

	rec := do(http.MethodPost, "/auth/register", "", map[string]string{
		"username": "dispatch",
		"password": "correct horse battery",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: %d body=%s", rec.Code, rec.Body.String())
	}

	rec = do(http.MethodPost, "/auth/login", "", map[string]string{
		"username": "dispatch",
		"password": "correct horse battery",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d body=%s", rec.Code, rec.Body.String())
	}
	var login struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &login); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	if login.AccessToken == "" {
		t.Fatalf("expected access token")
	}

	if rec := do(http.MethodPost, "/positions", "", map[string]string{
		"code": "drv", "name": "Driver",
	}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated create: %d", rec.Code)
	}

	rec = do(http.MethodPost, "/positions", login.AccessToken, map[string]string{
		"code": "drv", "name": "Driver",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create position: %d body=%s", rec.Code, rec.Body.String())
	}

	rec = do(http.MethodGet, "/positions", login.AccessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list positions: %d", rec.Code)
	}
	var list struct {
		Positions []struct {
			Code   string `json:"code"`
			UserID int64  `json:"user_id"`
		} `json:"positions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Positions) != 1 || list.Positions[0].Code != "drv" {
		t.Fatalf("unexpected positions: %+v", list.Positions)
	}
	if list.Positions[0].UserID <= 0 {
		t.Fatalf("expected owner on position: %+v", list.Positions[0])
	}
}
