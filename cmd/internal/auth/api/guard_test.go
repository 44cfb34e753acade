package authapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"roster/cmd/internal/auth/token"
)

func newGuardedMux(t *testing.T, codec *token.Codec) http.Handler {
	t.Helper()
	guard := NewGuard(codec)
	return guard.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFrom(r.Context())
		if !ok {
			t.Errorf("identity missing from context")
		}
		WriteJSON(w, http.StatusOK, map[string]any{"user_id": id.UserID, "role": id.Role})
	}))
}

func mustCodec(t *testing.T, secret string, opts ...token.CodecOption) *token.Codec {
	t.Helper()
	c, err := token.NewCodec(secret, time.Minute, "roster", opts...)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	return c
}

func TestGuard_AcceptsBearerHeader(t *testing.T) {
	t.Parallel()

	codec := mustCodec(t, "guard-secret")
	h := newGuardedMux(t, codec)

	raw, _, err := codec.Issue(token.Identity{UserID: 5, Username: "alice", Role: "admin"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
}

func TestGuard_AcceptsQueryParameterFallback(t *testing.T) {
	t.Parallel()

	codec := mustCodec(t, "guard-secret")
	h := newGuardedMux(t, codec)

	raw, _, err := codec.Issue(token.Identity{UserID: 5, Username: "alice", Role: "user"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/protected?access_token="+raw, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
}

func TestGuard_HeaderTakesPrecedenceOverQuery(t *testing.T) {
	t.Parallel()

	codec := mustCodec(t, "guard-secret")
	guard := NewGuard(codec)

	var got token.Identity
	h := guard.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = IdentityFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	headerTok, _, err := codec.Issue(token.Identity{UserID: 1, Username: "header", Role: "user"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	queryTok, _, err := codec.Issue(token.Identity{UserID: 2, Username: "query", Role: "user"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/protected?access_token="+queryTok, nil)
	req.Header.Set("Authorization", "Bearer "+headerTok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if got.UserID != 1 {
		t.Fatalf("expected header identity, got %+v", got)
	}
}

func TestGuard_RejectsBadTokens(t *testing.T) {
	t.Parallel()

	codec := mustCodec(t, "guard-secret")
	h := newGuardedMux(t, codec)

	expiredCodec := mustCodec(t, "guard-secret", token.WithNow(func() time.Time {
		return time.Now().Add(-2 * time.Hour)
	}))
	expired, _, err := expiredCodec.Issue(token.Identity{UserID: 5, Username: "alice", Role: "user"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	wrongSecret, _, err := mustCodec(t, "other-secret").Issue(token.Identity{UserID: 5, Username: "alice", Role: "user"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	cases := []struct {
		name  string
		setup func(r *http.Request)
	}{
		{name: "missing token", setup: func(r *http.Request) {}},
		{name: "expired", setup: func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+expired) }},
		{name: "wrong secret", setup: func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+wrongSecret) }},
		{name: "garbage header", setup: func(r *http.Request) { r.Header.Set("Authorization", "Bearer garbage") }},
		{name: "wrong scheme", setup: func(r *http.Request) { r.Header.Set("Authorization", "Basic dXNlcjpwdw==") }},
		{name: "garbage query", setup: func(r *http.Request) { r.URL.RawQuery = "access_token=garbage" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			tc.setup(req)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status %d, want 401", rec.Code)
			}
			if code := errorCode(t, rec); code != "unauthorized" {
				t.Fatalf("code %q", code)
			}
		})
	}
}
