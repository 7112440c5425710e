package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// maxTrackedIPs caps the bucket map so a client cycling spoofed addresses
// cannot grow it without bound. Requests beyond the cap are rejected.
const maxTrackedIPs = 100_000

// RateLimiter applies a per-client-IP token bucket to incoming requests.
// Each IP starts with burst tokens and refills at rate tokens per second.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*tokenBucket

	rate   float64
	burst  int
	maxIPs int
}

// tokenBucket tracks one client. seen doubles as the refill anchor and the
// idle marker for cleanup; both advance on every request.
type tokenBucket struct {
	tokens float64
	seen   time.Time
}

// NewRateLimiter creates a limiter allowing rate requests per second
// sustained, with bursts of up to burst requests.
func NewRateLimiter(rate float64, burst int) *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*tokenBucket),
		rate:    rate,
		burst:   burst,
		maxIPs:  maxTrackedIPs,
	}
}

// Handler enforces the limit. Every response carries X-RateLimit-Remaining
// and X-RateLimit-Reset; a rejected request gets a 429 with Retry-After.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		remaining, wait, ok := rl.take(clientIP(r))

		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Second).Unix(), 10))

		if !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait))))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// take consumes one token for ip. It reports the tokens left and, on
// rejection, the seconds until the next token becomes available.
func (rl *RateLimiter) take(ip string) (remaining int, wait float64, ok bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	b := rl.buckets[ip]
	if b == nil {
		if len(rl.buckets) >= rl.maxIPs {
			return 0, 1 / rl.rate, false
		}
		b = &tokenBucket{tokens: float64(rl.burst) - 1, seen: now}
		rl.buckets[ip] = b
		return int(b.tokens), 0, true
	}

	b.tokens = min(b.tokens+now.Sub(b.seen).Seconds()*rl.rate, float64(rl.burst))
	b.seen = now

	if b.tokens < 1 {
		return 0, (1 - b.tokens) / rl.rate, false
	}
	b.tokens--
	return int(b.tokens), 0, true
}

// StartCleanup drops buckets idle longer than maxIdle, checking every
// interval. The returned function stops the sweep goroutine.
func (rl *RateLimiter) StartCleanup(interval, maxIdle time.Duration) func() {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.sweep(maxIdle)
			}
		}
	}()
	return cancel
}

func (rl *RateLimiter) sweep(maxIdle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := time.Now().Add(-maxIdle)
	for ip, b := range rl.buckets {
		if b.seen.Before(cutoff) {
			delete(rl.buckets, ip)
		}
	}
}

// Len reports the number of tracked client IPs.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// clientIP is the host part of RemoteAddr. Forwarded headers are never read
// here; deployments behind a trusted proxy rewrite RemoteAddr via the RealIP
// middleware earlier in the chain.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
