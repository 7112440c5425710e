// Package middleware provides HTTP middleware for LevelBoard.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/playforge/levelboard/internal/logger"
)

const (
	headerRequestID = "X-Request-ID"

	// maxRequestIDLen bounds client-supplied IDs; anything longer (or with
	// characters outside the token set) is replaced, not truncated.
	maxRequestIDLen = 64
)

// RequestID tags every request with an ID. A well-formed X-Request-ID from
// the client is kept so retries correlate in the logs; otherwise a fresh
// UUID is issued. The ID lands in the context and on the response header.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if !validRequestID(id) {
			id = uuid.NewString()
		}

		ctx := logger.WithRequestID(r.Context(), id)
		w.Header().Set(headerRequestID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// validRequestID accepts non-empty tokens of letters, digits, dashes, and
// underscores up to maxRequestIDLen.
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}
