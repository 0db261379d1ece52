package web

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/JonMunkholm/dimtable/internal/core"
	mw "github.com/JonMunkholm/dimtable/internal/web/middleware"
)

// visitorTTL is how long an idle client keeps its bucket.
const visitorTTL = 3 * time.Minute

// ipLimiter holds one token bucket per client address, refilled at
// perMinute tokens a minute with a burst of perMinute.
type ipLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPLimiter(perMinute int) *ipLimiter {
	return &ipLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(float64(perMinute) / 60),
		burst:    perMinute,
		now:      time.Now,
	}
}

// allow consumes a token of ip's bucket if one is left.
func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > time.Minute {
		for k, v := range l.visitors {
			if now.Sub(v.lastSeen) > visitorTTL {
				delete(l.visitors, k)
			}
		}
		l.lastSweep = now
	}

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// retryAfter is the whole number of seconds until one token is back.
func (l *ipLimiter) retryAfter() string {
	if l.limit <= 0 {
		return "60"
	}
	secs := int(time.Duration(float64(time.Second)/float64(l.limit)).Seconds() + 0.5)
	return strconv.Itoa(max(secs, 1))
}

// rateLimit rejects requests of clients that spent their budget.
func (s *Server) rateLimit(l *ipLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.allow(mw.ClientIP(r)) {
				w.Header().Set("Retry-After", l.retryAfter())
				s.respondError(w, r, core.ErrRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
