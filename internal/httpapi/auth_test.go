package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, secret, sub string, expired bool) string {
	t.Helper()
	exp := time.Now().Add(time.Hour)
	if expired {
		exp = time.Now().Add(-time.Hour)
	}
	claims := jwt.MapClaims{"sub": sub, "exp": exp.Unix()}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return token
}

func TestParseBearerToken_AcceptsValidToken(t *testing.T) {
	secret := "test-secret"
	token := signedToken(t, secret, "user-1", false)

	req := httptest.NewRequest(http.MethodGet, "/schedule/sessions", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	userID, ok := parseBearerToken(req, secret)
	if !ok {
		t.Fatal("expected token to parse successfully")
	}
	if userID != "user-1" {
		t.Errorf("expected sub user-1, got %q", userID)
	}
}

func TestParseBearerToken_RejectsExpiredToken(t *testing.T) {
	secret := "test-secret"
	token := signedToken(t, secret, "user-1", true)

	req := httptest.NewRequest(http.MethodGet, "/schedule/sessions", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	if _, ok := parseBearerToken(req, secret); ok {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestParseBearerToken_RejectsWrongSecret(t *testing.T) {
	token := signedToken(t, "correct-secret", "user-1", false)

	req := httptest.NewRequest(http.MethodGet, "/schedule/sessions", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	if _, ok := parseBearerToken(req, "wrong-secret"); ok {
		t.Fatal("expected token signed with a different secret to be rejected")
	}
}

func TestParseBearerToken_RejectsMissingHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/schedule/sessions", nil)
	if _, ok := parseBearerToken(req, "secret"); ok {
		t.Fatal("expected a request with no Authorization header to be rejected")
	}
}

func TestRequireAuth_AllowsValidRequestThrough(t *testing.T) {
	secret := "test-secret"
	token := signedToken(t, secret, "user-1", false)

	var sawUserID string
	handler := requireAuth(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawUserID = userIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/schedule/sessions", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if sawUserID != "user-1" {
		t.Errorf("expected downstream handler to see user-1, got %q", sawUserID)
	}
}

func TestRequireAuth_RejectsMissingToken(t *testing.T) {
	handler := requireAuth("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called without a valid token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/schedule/sessions", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}
