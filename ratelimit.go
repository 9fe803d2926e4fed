package oai

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures RateLimit.
type RateLimitConfig struct {
	// Rate is the sustained number of requests per second for one bucket.
	Rate float64
	// Burst is the bucket size.
	Burst int
	// Key selects the bucket of a request. When it reports false the request
	// is counted against its client address. Nil means client address only.
	Key func(r *http.Request) (string, bool)
	// IdleTTL is how long an unused bucket is kept. Default 5m.
	IdleTTL time.Duration
}

// CredentialKey buckets requests by the credential of security scheme S,
// as identified by id. Requests without a valid S credential report false.
//
//	oai.CredentialKey(func(b *oai.Basic) string { return b.Username })
func CredentialKey[S any](id func(*S) string) func(r *http.Request) (string, bool) {
	name := schemeOf[S]().SchemeName()
	return func(r *http.Request) (string, bool) {
		s := new(S)
		if err := any(s).(SecurityScheme).FromRequest(r, r.URL.Query()); err != nil {
			return "", false
		}
		return name + ":" + id(s), true
	}
}

// RateLimit returns middleware that rejects requests beyond the configured
// rate with a 429 problem and a Retry-After header.
func RateLimit(cfg RateLimitConfig) Middleware {
	buckets := &bucketSet{
		limit: rate.Limit(cfg.Rate),
		burst: cfg.Burst,
		ttl:   cfg.IdleTTL,
		m:     make(map[string]*bucket),
	}
	if buckets.ttl <= 0 {
		buckets.ttl = 5 * time.Minute
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, ok := "", false
			if cfg.Key != nil {
				key, ok = cfg.Key(r)
			}
			if !ok {
				key = "client:" + clientAddr(r)
			}

			now := time.Now()
			res := buckets.get(key, now).ReserveN(now, 1)
			if delay := res.DelayFrom(now); !res.OK() || delay > 0 {
				res.CancelAt(now)
				observerFrom(r.Context()).rateLimited(r.Context(), r.URL.Path)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter(res.OK(), delay, cfg.Rate)))
				writeErrorResponse(w, Errorf(http.StatusTooManyRequests, "rate limit exceeded for %s", r.URL.Path))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// retryAfter rounds delay up to whole seconds. Reservations that can never
// succeed fall back to one token interval.
func retryAfter(ok bool, delay time.Duration, perSecond float64) int {
	if !ok && perSecond > 0 {
		delay = time.Duration(float64(time.Second) / perSecond)
	}
	return max(1, int(math.Ceil(delay.Seconds())))
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type bucket struct {
	*rate.Limiter
	lastSeen time.Time
}

type bucketSet struct {
	limit rate.Limit
	burst int
	ttl   time.Duration

	mu        sync.Mutex
	m         map[string]*bucket
	lastSweep time.Time
}

func (s *bucketSet) get(key string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.lastSweep) >= s.ttl {
		for k, b := range s.m {
			if now.Sub(b.lastSeen) > s.ttl {
				delete(s.m, k)
			}
		}
		s.lastSweep = now
	}

	b, ok := s.m[key]
	if !ok {
		b = &bucket{Limiter: rate.NewLimiter(s.limit, s.burst)}
		s.m[key] = b
	}
	b.lastSeen = now
	return b.Limiter
}
