package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, secret []byte, expired bool) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": "bench-operator",
	}
	if expired {
		claims["exp"] = time.Now().Add(-time.Hour).Unix()
	} else {
		claims["exp"] = time.Now().Add(time.Hour).Unix()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	return signed
}

func TestAuthorizedAcceptsValidBearerToken(t *testing.T) {
	v := &Validator{secret: []byte("test-secret")}
	tok := signToken(t, v.secret, false)

	r := httptest.NewRequest(http.MethodPost, "/api/v1/pause", nil)
	r.Header.Set("Authorization", "Bearer "+tok)

	if !v.Authorized(r) {
		t.Errorf("expected a validly signed, unexpired token to be authorized")
	}
}

func TestAuthorizedRejectsMissingHeader(t *testing.T) {
	v := &Validator{secret: []byte("test-secret")}
	r := httptest.NewRequest(http.MethodPost, "/api/v1/pause", nil)

	if v.Authorized(r) {
		t.Errorf("expected no Authorization header to be unauthorized")
	}
}

func TestAuthorizedRejectsWrongSecret(t *testing.T) {
	v := &Validator{secret: []byte("right-secret")}
	tok := signToken(t, []byte("wrong-secret"), false)

	r := httptest.NewRequest(http.MethodPost, "/api/v1/pause", nil)
	r.Header.Set("Authorization", "Bearer "+tok)

	if v.Authorized(r) {
		t.Errorf("expected a token signed with the wrong secret to be unauthorized")
	}
}

func TestAuthorizedRejectsExpiredToken(t *testing.T) {
	v := &Validator{secret: []byte("test-secret")}
	tok := signToken(t, v.secret, true)

	r := httptest.NewRequest(http.MethodPost, "/api/v1/pause", nil)
	r.Header.Set("Authorization", "Bearer "+tok)

	if v.Authorized(r) {
		t.Errorf("expected an expired token to be unauthorized")
	}
}

func TestAuthorizedRejectsMalformedBearerPrefix(t *testing.T) {
	v := &Validator{secret: []byte("test-secret")}
	tok := signToken(t, v.secret, false)

	r := httptest.NewRequest(http.MethodPost, "/api/v1/pause", nil)
	r.Header.Set("Authorization", tok) // missing "Bearer " prefix

	if v.Authorized(r) {
		t.Errorf("expected a header without the Bearer prefix to be unauthorized")
	}
}

func TestRequireAuthReturns401WithoutCallingHandler(t *testing.T) {
	v := &Validator{secret: []byte("test-secret")}
	called := false
	wrapped := v.RequireAuth(func(w http.ResponseWriter, r *http.Request) { called = true })

	r := httptest.NewRequest(http.MethodPost, "/api/v1/pause", nil)
	w := httptest.NewRecorder()
	wrapped(w, r)

	if called {
		t.Errorf("expected the wrapped handler not to run for an unauthorized request")
	}
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %v, want 401", w.Code)
	}
}

func TestRequireAuthCallsHandlerWhenAuthorized(t *testing.T) {
	v := &Validator{secret: []byte("test-secret")}
	tok := signToken(t, v.secret, false)
	called := false
	wrapped := v.RequireAuth(func(w http.ResponseWriter, r *http.Request) { called = true })

	r := httptest.NewRequest(http.MethodPost, "/api/v1/pause", nil)
	r.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	wrapped(w, r)

	if !called {
		t.Errorf("expected the wrapped handler to run for an authorized request")
	}
}
