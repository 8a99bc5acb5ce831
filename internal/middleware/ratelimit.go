package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// RateLimiter caps how often a single caller may hit the destructive storage
// routes (reset, restore). Windows are keyed by the authenticated uid so a
// client cannot widen its budget by rotating addresses; unauthenticated
// probes fall back to the remote address.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*attemptWindow
	limit   int
	length  time.Duration
}

type attemptWindow struct {
	startedAt time.Time
	count     int
}

func NewRateLimiter(limit int, length time.Duration) *RateLimiter {
	return &RateLimiter{
		windows: make(map[string]*attemptWindow),
		limit:   limit,
		length:  length,
	}
}

// Middleware counts the request against the caller's fixed window and
// rejects with 429 plus a Retry-After hint once the budget is spent.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := GetUserID(r.Context())
		if key == "" {
			key = r.RemoteAddr
		}

		now := time.Now()

		rl.mu.Lock()
		win := rl.windows[key]
		if win == nil || now.Sub(win.startedAt) >= rl.length {
			win = &attemptWindow{startedAt: now}
			rl.windows[key] = win
		}
		win.count++
		over := win.count > rl.limit
		retryAfter := win.startedAt.Add(rl.length).Sub(now)
		rl.sweep(now)
		rl.mu.Unlock()

		if over {
			w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter/time.Second)+1))
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many destructive requests. Please try again later.", r)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// sweep drops expired windows inline while the caller holds mu. Traffic on
// the guarded routes is far too sparse to justify a janitor goroutine.
func (rl *RateLimiter) sweep(now time.Time) {
	if len(rl.windows) < 128 {
		return
	}
	for key, win := range rl.windows {
		if now.Sub(win.startedAt) >= rl.length {
			delete(rl.windows, key)
		}
	}
}
