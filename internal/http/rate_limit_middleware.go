package httpx

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

const rateLimiterSweepInterval = 5 * time.Minute

// RateLimiter counts requests per key in fixed windows.
type RateLimiter interface {
	Allow(key string, limit int, window time.Duration) rateDecision
	Close()
}

type rateDecision struct {
	allowed   bool
	remaining int
	reset     time.Time
}

func decide(count, limit int, reset time.Time) rateDecision {
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return rateDecision{allowed: count <= limit, remaining: remaining, reset: reset}
}

type rateScope string

const (
	scopeOwner   rateScope = "owner"
	scopeIP      rateScope = "ip"
	scopeService rateScope = "service"
)

// ratePolicy sets separate read and write budgets for one route. Owner
// policies count per user and collection, so a burst of VPS creates does not
// block listing buckets. A zero budget falls back to the other one.
type ratePolicy struct {
	scope  rateScope
	bucket string
	read   int
	write  int
	window time.Duration
}

var (
	policySignup    = ratePolicy{scope: scopeIP, bucket: "signup", write: 5, window: time.Minute}
	policyLogin     = ratePolicy{scope: scopeIP, bucket: "login", write: 12, window: time.Minute}
	policyCatalog   = ratePolicy{scope: scopeIP, read: 120, window: time.Minute}
	policyOwner     = ratePolicy{scope: scopeOwner, read: 120, write: 60, window: time.Minute}
	policyTwoFactor = ratePolicy{scope: scopeOwner, bucket: "2fa", read: 12, write: 12, window: time.Minute}
	policyStream    = ratePolicy{scope: scopeOwner, bucket: "stream", read: 30, window: 30 * time.Second}
	policyService   = ratePolicy{scope: scopeService, write: 600, window: time.Minute}
)

func (p ratePolicy) limitFor(method string) (int, string) {
	if isMutation(method) {
		if p.write > 0 {
			return p.write, "write"
		}
		return p.read, "write"
	}
	if p.read > 0 {
		return p.read, "read"
	}
	return p.write, "read"
}

// key builds "<scope>:<subject>:<collection>:<read|write>". Owner routes
// reached without a caller fall back to the client address.
func (p ratePolicy) key(route string, req *http.Request) (string, rateScope) {
	scope := p.scope
	var subject string
	switch scope {
	case scopeOwner:
		if c, ok := callerFromContext(req.Context()); ok {
			subject = c.UserID
		} else {
			scope, subject = scopeIP, clientAddr(req)
		}
	default:
		subject = clientAddr(req)
	}
	bucket := p.bucket
	if bucket == "" {
		bucket = collectionOf(route)
	}
	_, class := p.limitFor(req.Method)
	return string(scope) + ":" + subject + ":" + bucket + ":" + class, scope
}

// limit enforces policy on route. Owner policies must run after requireCaller.
func (r *Router) limit(route string, policy ratePolicy, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		limit, _ := policy.limitFor(req.Method)
		if limit <= 0 || r.limiter == nil {
			next(w, req)
			return
		}
		key, scope := policy.key(route, req)
		decision := r.limiter.Allow(key, limit, policy.window)
		setRateHeaders(w, limit, decision)
		if !decision.allowed {
			r.metrics.rateLimited(route, scope)
			if !decision.reset.IsZero() {
				secs := int(time.Until(decision.reset).Round(time.Second) / time.Second)
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
			}
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next(w, req)
	}
}

// owned authenticates the caller and then applies an owner policy.
func (r *Router) owned(route string, policy ratePolicy, next http.HandlerFunc) http.HandlerFunc {
	return r.requireCaller(r.limit(route, policy, next))
}

func setRateHeaders(w http.ResponseWriter, limit int, d rateDecision) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(d.remaining))
	if !d.reset.IsZero() {
		h.Set("X-RateLimit-Reset", strconv.FormatInt(d.reset.Unix(), 10))
	}
}

func clientAddr(req *http.Request) string {
	if ip := clientIP(req); ip != "" {
		return ip
	}
	return "unknown"
}

type memoryRateLimiter struct {
	mu      sync.Mutex
	now     func() time.Time
	windows map[string]*fixedWindow
	stop    chan struct{}
	once    sync.Once
}

type fixedWindow struct {
	count int
	reset time.Time
}

// NewMemoryRateLimiter returns a process-local limiter. Replicas each keep
// their own counters; use the Redis limiter when the API is scaled out.
func NewMemoryRateLimiter() RateLimiter {
	rl := newMemoryRateLimiter(time.Now)
	go rl.sweepLoop()
	return rl
}

func newMemoryRateLimiter(now func() time.Time) *memoryRateLimiter {
	return &memoryRateLimiter{
		now:     now,
		windows: make(map[string]*fixedWindow),
		stop:    make(chan struct{}),
	}
}

func (rl *memoryRateLimiter) Allow(key string, limit int, window time.Duration) rateDecision {
	if limit <= 0 {
		return rateDecision{allowed: true}
	}
	if window <= 0 {
		window = time.Minute
	}
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.windows[key]
	if !ok || !now.Before(w.reset) {
		w = &fixedWindow{reset: now.Add(window)}
		rl.windows[key] = w
	}
	if w.count >= limit {
		return decide(limit+1, limit, w.reset)
	}
	w.count++
	return decide(w.count, limit, w.reset)
}

func (rl *memoryRateLimiter) sweepLoop() {
	ticker := time.NewTicker(rateLimiterSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.sweep()
		case <-rl.stop:
			return
		}
	}
}

func (rl *memoryRateLimiter) sweep() {
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, w := range rl.windows {
		if !now.Before(w.reset) {
			delete(rl.windows, key)
		}
	}
}

func (rl *memoryRateLimiter) Close() {
	rl.once.Do(func() { close(rl.stop) })
}
