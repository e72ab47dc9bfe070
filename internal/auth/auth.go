// Package auth gates the admin HTTP surface's mutating endpoints behind a
// bearer JWT, grounded on the sibling services' Authorization-header/HMAC
// pattern rather than anything MAVLink- or simulation-specific.
package auth

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const devSecret = "drone_hil_dev_secret_not_for_production!!"

// secretEnvVar names the environment variable holding the HMAC secret.
const secretEnvVar = "DRONE_HIL_JWT_SECRET"

// Validator checks bearer tokens against a configured HMAC secret.
type Validator struct {
	secret []byte
}

// New builds a Validator from DRONE_HIL_JWT_SECRET, falling back to a fixed
// development secret when unset — acceptable for a HIL bench tool that
// never faces the public internet, unlike the pack's production services.
func New() *Validator {
	secret := os.Getenv(secretEnvVar)
	if secret == "" {
		secret = devSecret
	}
	return &Validator{secret: []byte(secret)}
}

func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return ""
}

// Authorized reports whether the request carries a valid bearer token.
func (v *Validator) Authorized(r *http.Request) bool {
	tokenString := extractToken(r)
	if tokenString == "" {
		return false
	}
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return false
	}
	return token.Valid
}

// RequireAuth wraps h so it only runs for authorized requests, matching
// the teacher's unauthorized response shape.
func (v *Validator) RequireAuth(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !v.Authorized(r) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"unauthorized"}`))
			return
		}
		h(w, r)
	}
}
