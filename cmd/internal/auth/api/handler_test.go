package authapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"roster/cmd/identity"
	"roster/cmd/internal/auth/session"
)

func newTestHandler(t *testing.T) (*Handler, *identity.MemoryStore) {
	t.Helper()
	// Cheap hashing parameters so tests stay fast.
	t.Setenv("ROSTER_ARGON2_MEMORY_KIB", "8192")
	t.Setenv("ROSTER_ARGON2_ITERATIONS", "1")
	t.Setenv("ROSTER_TOKEN_HMAC_KEY", "")

	store := identity.NewMemoryStore()
	sessCfg := session.DefaultConfig()
	sessCfg.AccessSecret = "test-access-secret"
	sessCfg.RefreshSecret = "test-refresh-secret"

	svc, err := session.NewService(sessCfg, store)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h, err := NewHandler(log, store, svc, LoadConfigFromEnv())
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	return h, store
}

func newTestMux(t *testing.T) (*http.ServeMux, *Handler, *identity.MemoryStore) {
	t.Helper()
	h, store := newTestHandler(t)
	mux := http.NewServeMux()
	h.Register(mux)
	return mux, h, store
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decodeBody[errorResponse](t, rec).Error.Code
}

func TestHandleRegister(t *testing.T) {
	mux, _, _ := newTestMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/auth/register", map[string]string{
		"username": "alice", "password": "correct horse battery",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: status %d body %s", rec.Code, rec.Body.String())
	}
	u := decodeBody[UserResponse](t, rec)
	if u.ID <= 0 || u.Username != "alice" || u.Role != "user" {
		t.Fatalf("register response: %+v", u)
	}

	// Case-insensitive duplicate.
	rec = doJSON(t, mux, http.MethodPost, "/auth/register", map[string]string{
		"username": "ALICE", "password": "another password",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate register: status %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "conflict" {
		t.Fatalf("duplicate register: code %q", code)
	}

	// Missing fields.
	rec = doJSON(t, mux, http.MethodPost, "/auth/register", map[string]string{"username": "bob"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing password: status %d", rec.Code)
	}

	// Unknown fields are rejected.
	rec = doJSON(t, mux, http.MethodPost, "/auth/register", map[string]string{
		"username": "bob", "password": "pw-pw-pw-pw", "extra": "nope",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown field: status %d", rec.Code)
	}

	// Wrong method.
	rec = doJSON(t, mux, http.MethodGet, "/auth/register", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET register: status %d", rec.Code)
	}
}

func TestHandleLogin(t *testing.T) {
	mux, _, _ := newTestMux(t)

	if rec := doJSON(t, mux, http.MethodPost, "/auth/register", map[string]string{
		"username": "alice", "password": "correct horse battery",
	}); rec.Code != http.StatusCreated {
		t.Fatalf("register: status %d", rec.Code)
	}

	rec := doJSON(t, mux, http.MethodPost, "/auth/login", map[string]string{
		"username": "alice", "password": "correct horse battery",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: status %d body %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody[loginResponse](t, rec)
	if resp.User.Username != "alice" {
		t.Fatalf("login user: %+v", resp.User)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatalf("login tokens incomplete: %+v", resp.tokenPairResponse)
	}

	// Wrong password and unknown user produce identical responses.
	recWrong := doJSON(t, mux, http.MethodPost, "/auth/login", map[string]string{
		"username": "alice", "password": "wrong",
	})
	recUnknown := doJSON(t, mux, http.MethodPost, "/auth/login", map[string]string{
		"username": "nobody", "password": "whatever",
	})
	if recWrong.Code != http.StatusUnauthorized || recUnknown.Code != http.StatusUnauthorized {
		t.Fatalf("login failures: %d / %d", recWrong.Code, recUnknown.Code)
	}
	if recWrong.Body.String() != recUnknown.Body.String() {
		t.Fatalf("failure responses must be identical: %q vs %q", recWrong.Body.String(), recUnknown.Body.String())
	}
	if code := errorCode(t, recWrong); code != "invalid_credentials" {
		t.Fatalf("login failure code: %q", code)
	}
}

func TestHandleRefresh(t *testing.T) {
	mux, _, _ := newTestMux(t)

	doJSON(t, mux, http.MethodPost, "/auth/register", map[string]string{
		"username": "bob", "password": "pw-pw-pw-pw",
	})
	login := decodeBody[loginResponse](t, doJSON(t, mux, http.MethodPost, "/auth/login", map[string]string{
		"username": "bob", "password": "pw-pw-pw-pw",
	}))

	rec := doJSON(t, mux, http.MethodPost, "/auth/refresh", map[string]string{
		"refresh_token": login.RefreshToken,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: status %d body %s", rec.Code, rec.Body.String())
	}
	rotated := decodeBody[tokenPairResponse](t, rec)
	if rotated.RefreshToken == login.RefreshToken {
		t.Fatalf("refresh must rotate the token")
	}

	// The superseded token is rejected.
	rec = doJSON(t, mux, http.MethodPost, "/auth/refresh", map[string]string{
		"refresh_token": login.RefreshToken,
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("old token: status %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "unauthorized" {
		t.Fatalf("old token: code %q", code)
	}

	// Garbage is rejected, missing token is a validation error.
	if rec := doJSON(t, mux, http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": "garbage"}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token: status %d", rec.Code)
	}
	if rec := doJSON(t, mux, http.MethodPost, "/auth/refresh", map[string]string{}); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing token: status %d", rec.Code)
	}
}

func TestHandleLogout(t *testing.T) {
	mux, _, _ := newTestMux(t)

	doJSON(t, mux, http.MethodPost, "/auth/register", map[string]string{
		"username": "carol", "password": "pw-pw-pw-pw",
	})
	login := decodeBody[loginResponse](t, doJSON(t, mux, http.MethodPost, "/auth/login", map[string]string{
		"username": "carol", "password": "pw-pw-pw-pw",
	}))

	rec := doJSON(t, mux, http.MethodPost, "/auth/logout", map[string]int64{"user_id": login.User.ID})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout: status %d body %s", rec.Code, rec.Body.String())
	}

	// Outstanding refresh tokens are dead after logout.
	rec = doJSON(t, mux, http.MethodPost, "/auth/refresh", map[string]string{
		"refresh_token": login.RefreshToken,
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("refresh after logout: status %d", rec.Code)
	}

	if rec := doJSON(t, mux, http.MethodPost, "/auth/logout", map[string]int64{"user_id": 999999}); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown user logout: status %d", rec.Code)
	}
	if rec := doJSON(t, mux, http.MethodPost, "/auth/logout", map[string]int64{}); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing user_id: status %d", rec.Code)
	}
}

func TestFullSessionFlowOverHTTP(t *testing.T) {
	mux, _, _ := newTestMux(t)

	doJSON(t, mux, http.MethodPost, "/auth/register", map[string]string{
		"username": "dave", "password": "pw-pw-pw-pw",
	})
	login := decodeBody[loginResponse](t, doJSON(t, mux, http.MethodPost, "/auth/login", map[string]string{
		"username": "dave", "password": "pw-pw-pw-pw",
	}))

	first := decodeBody[tokenPairResponse](t, doJSON(t, mux, http.MethodPost, "/auth/refresh", map[string]string{
		"refresh_token": login.RefreshToken,
	}))
	if rec := doJSON(t, mux, http.MethodPost, "/auth/refresh", map[string]string{
		"refresh_token": login.RefreshToken,
	}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("superseded token: status %d", rec.Code)
	}
	if rec := doJSON(t, mux, http.MethodPost, "/auth/logout", map[string]int64{"user_id": login.User.ID}); rec.Code != http.StatusNoContent {
		t.Fatalf("logout: status %d", rec.Code)
	}
	if rec := doJSON(t, mux, http.MethodPost, "/auth/refresh", map[string]string{
		"refresh_token": first.RefreshToken,
	}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("revoked token: status %d", rec.Code)
	}
}
