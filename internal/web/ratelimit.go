package web

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// triggerLimiter is a token bucket per client IP for the sync trigger.
// A full sync is expensive, so the bucket is small.
type triggerLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	every    rate.Limit
	burst    int
	ttl      time.Duration
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// newTriggerLimiter allows perWindow requests per window per IP.
func newTriggerLimiter(perWindow int, window time.Duration) *triggerLimiter {
	return &triggerLimiter{
		visitors: make(map[string]*visitor),
		every:    rate.Every(window / time.Duration(perWindow)),
		burst:    perWindow,
		ttl:      2 * window,
	}
}

func (tl *triggerLimiter) allow(ip string, now time.Time) bool {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	// Evict idle visitors on the way in; the map stays bounded by the
	// number of clients seen within ttl.
	for key, v := range tl.visitors {
		if now.Sub(v.lastSeen) > tl.ttl {
			delete(tl.visitors, key)
		}
	}

	v, ok := tl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(tl.every, tl.burst)}
		tl.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

func (tl *triggerLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// RemoteAddr is already rewritten by the RealIP middleware.
		if !tl.allow(r.RemoteAddr, time.Now()) {
			retry := time.Duration(float64(time.Second) / float64(tl.every))
			w.Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds())+1))
			writeError(w, http.StatusTooManyRequests, msgRateLimited)
			return
		}
		next.ServeHTTP(w, r)
	})
}
