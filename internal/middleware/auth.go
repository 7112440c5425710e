package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// publicPaths are exempt from authentication.
var publicPaths = map[string]bool{
	"/health":       true,
	"/health/ready": true,
}

// Auth returns middleware that checks the shared panel token against the
// configured bcrypt hash. An empty hash disables authentication entirely.
//
// Browsers cannot set headers on WebSocket upgrades, so /ws accepts the
// token via the ?token= query parameter instead.
func Auth(tokenHash string) func(http.Handler) http.Handler {
	var (
		mu    sync.RWMutex
		known string // last token that passed the bcrypt check
	)

	// bcrypt verification is deliberately slow. Remember the last good token
	// so steady-state requests pay a constant-time compare instead.
	verify := func(token string) bool {
		mu.RLock()
		hit := known != "" && subtle.ConstantTimeCompare([]byte(known), []byte(token)) == 1
		mu.RUnlock()
		if hit {
			return true
		}
		if bcrypt.CompareHashAndPassword([]byte(tokenHash), []byte(token)) != nil {
			return false
		}
		mu.Lock()
		known = token
		mu.Unlock()
		return true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokenHash == "" || publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			token := bearerToken(r)
			if token == "" && r.URL.Path == "/ws" {
				token = r.URL.Query().Get("token")
			}
			if token == "" {
				unauthorized(w, "authorization required")
				return
			}
			if !verify(token) {
				unauthorized(w, "invalid token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken extracts the token from an "Authorization: Bearer ..." header,
// returning "" when the header is absent or malformed.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	token := strings.TrimPrefix(h, "Bearer ")
	if token == h {
		return ""
	}
	return token
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}
