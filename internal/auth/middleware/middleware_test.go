package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ujianhub/ujianhub/internal/rbac"
)

func TestJWTRoundTripSeedsContext(t *testing.T) {
	a := NewAuthService("test-secret")
	tok, err := a.IssueJWT("user-123", "user", "basic")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	var gotSub, gotRole, gotTier string
	h := JWTMiddleware(a)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSub = SubjectFromContext(r.Context())
		gotRole = rbac.RoleFromContext(r.Context())
		gotTier = TierFromContext(r.Context())
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}
	if gotSub != "user-123" || gotRole != "user" || gotTier != "basic" {
		t.Fatalf("context: sub=%q role=%q tier=%q", gotSub, gotRole, gotTier)
	}
}

func TestJWTMiddlewareRejectsBadTokens(t *testing.T) {
	a := NewAuthService("test-secret")
	other := NewAuthService("different-secret")
	tok, err := other.IssueJWT("user-123", "user", "free")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	h := JWTMiddleware(a)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req) // no header at all
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing header status: %d", rec.Code)
	}

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong-key token status: %d", rec.Code)
	}
}
