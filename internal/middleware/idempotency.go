package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/nats-io/nats.go/jetstream"
)

const (
	headerIdempotencyKey   = "Idempotency-Key"
	headerIdempotentReplay = "Idempotent-Replay"

	// maxIdempotencyBody caps stored responses; anything larger is served
	// normally but never replayed.
	maxIdempotencyBody = 1 << 20
)

// idempotencyEntry stores a captured HTTP response.
type idempotencyEntry struct {
	StatusCode int                 `json:"status_code"`
	Headers    map[string][]string `json:"headers"`
	Body       []byte              `json:"body"`
}

// Idempotency deduplicates mutating requests carrying an Idempotency-Key
// header. Captured responses live in a NATS JetStream KV bucket, so a retry
// landing on another replica still replays. 5xx responses are never stored;
// a request retried after a server failure runs the operation again.
func Idempotency(kv jetstream.KeyValue) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		// A nil bucket disables replay; requests pass straight through.
		if kv == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			clientKey := r.Header.Get(headerIdempotencyKey)
			if clientKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			key := scopedKey(r, clientKey)

			if entry, err := kv.Get(r.Context(), key); err == nil {
				var cached idempotencyEntry
				if err := json.Unmarshal(entry.Value(), &cached); err == nil {
					replay(w, cached)
					return
				}
				slog.Warn("idempotency: corrupt cache entry", "key", clientKey)
			}

			rec := &responseRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
				body:           &bytes.Buffer{},
			}
			next.ServeHTTP(rec, r)

			if rec.statusCode >= http.StatusInternalServerError {
				return
			}
			if rec.body.Len() > maxIdempotencyBody {
				return
			}

			data, err := json.Marshal(idempotencyEntry{
				StatusCode: rec.statusCode,
				Headers:    w.Header().Clone(),
				Body:       rec.body.Bytes(),
			})
			if err != nil {
				return
			}
			if _, err := kv.Put(r.Context(), key, data); err != nil {
				slog.Warn("idempotency: failed to store response", "key", clientKey, "error", err)
			}
		})
	}
}

// replay writes a previously captured response and marks it as such.
func replay(w http.ResponseWriter, cached idempotencyEntry) {
	for k, vals := range cached.Headers {
		for _, v := range vals {
			w.Header().Add(k, v)
		}
	}
	w.Header().Set(headerIdempotentReplay, "true")
	w.WriteHeader(cached.StatusCode)
	_, _ = w.Write(cached.Body)
}

// scopedKey hashes method, path, and the client key together, so the same
// Idempotency-Key sent to two endpoints cannot replay across them. The hex
// form also keeps the key inside the NATS KV character set.
func scopedKey(r *http.Request, clientKey string) string {
	sum := sha256.Sum256([]byte(r.Method + " " + r.URL.Path + " " + clientKey))
	return hex.EncodeToString(sum[:])
}

// responseRecorder captures status and body while passing writes through.
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (r *responseRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
