package middleware

import (
	"net/http"
	"strings"

	"github.com/nklymok/monobank-mcp/internal/util"
)

// AuthMiddleware guards the HTTP transport with a static bearer token.
// With an empty token it passes every request through, which keeps the
// default local setup zero-config.
type AuthMiddleware struct {
	tokenHash string
}

func NewAuthMiddleware(token string) *AuthMiddleware {
	m := &AuthMiddleware{}
	if token != "" {
		m.tokenHash = util.HashToken(token)
	}
	return m
}

func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.tokenHash == "" {
			next.ServeHTTP(w, r)
			return
		}

		auth := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || !util.ConstantTimeEqual(util.HashToken(token), m.tokenHash) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}

		next.ServeHTTP(w, r)
	})
}
