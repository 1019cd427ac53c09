package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// tokenVerifier checks inbound bearer tokens against a shared HMAC secret.
// It never issues tokens; token issuance is an operator concern outside
// this service.
type tokenVerifier struct {
	secret []byte
}

func newTokenVerifier(secret []byte) *tokenVerifier {
	return &tokenVerifier{secret: secret}
}

func (v *tokenVerifier) verify(tokenString string) error {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return fmt.Errorf("invalid token")
	}
	return nil
}

// requireAuth returns false and writes a 401 response if the request's
// bearer token does not verify. When s.auth is nil, auth is disabled and
// every request passes.
func (s *Server) requireAuth(w http.ResponseWriter, r *http.Request) bool {
	if s.auth == nil {
		return true
	}
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		http.Error(w, "missing bearer token", http.StatusUnauthorized)
		return false
	}
	if err := s.auth.verify(token); err != nil {
		http.Error(w, "invalid bearer token", http.StatusUnauthorized)
		return false
	}
	return true
}
