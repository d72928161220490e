package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/fakhrymubarak/weather-locator/internal/config"
	"github.com/fakhrymubarak/weather-locator/internal/model"
	"github.com/go-co-op/gocron"
	"golang.org/x/time/rate"
)

// visitor holds the rate limiter and last seen time for a specific client.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter enforces a per-client global limit and a per-client limit for
// each control (method and path).
type RateLimiter struct {
	globalRate  rate.Limit
	globalBurst int
	actionRate  rate.Limit
	actionBurst int
	idleTimeout time.Duration

	muGlobal       sync.Mutex
	globalVisitors map[string]*visitor // key: ip
	muAction       sync.Mutex
	actionVisitors map[string]map[string]*visitor // key: ip -> path

	// TrustForwardedFor keys clients by the first X-Forwarded-For entry
	// instead of the connection address. Enable only behind a proxy.
	TrustForwardedFor bool

	scheduler *gocron.Scheduler
}

// NewRateLimiter builds a limiter; rates are requests per minute.
func NewRateLimiter(globalPerMinute float64, globalBurst int, actionPerMinute float64, actionBurst int, idleTimeout time.Duration) *RateLimiter {
	return &RateLimiter{
		globalRate:     rate.Limit(globalPerMinute / 60.0),
		globalBurst:    globalBurst,
		actionRate:     rate.Limit(actionPerMinute / 60.0),
		actionBurst:    actionBurst,
		idleTimeout:    idleTimeout,
		globalVisitors: make(map[string]*visitor),
		actionVisitors: make(map[string]map[string]*visitor),
	}
}

// NewRateLimiterFromConfig reads limits from the rate_limiter config section.
func NewRateLimiterFromConfig() *RateLimiter {
	gRate, gBurst := config.GetGlobalRateLimiterConfig()
	aRate, aBurst := config.GetActionRateLimiterConfig()
	rl := NewRateLimiter(gRate, gBurst, aRate, aBurst, config.GetRateLimiterCleanupTimeout())
	rl.TrustForwardedFor = config.GetTrustForwardedFor()
	return rl
}

// getGlobalLimiter returns the rate limiter for the given IP address, creating one if it does not exist.
func (rl *RateLimiter) getGlobalLimiter(ip string) *rate.Limiter {
	rl.muGlobal.Lock()
	defer rl.muGlobal.Unlock()
	v, exists := rl.globalVisitors[ip]
	if !exists {
		limiter := rate.NewLimiter(rl.globalRate, rl.globalBurst)
		rl.globalVisitors[ip] = &visitor{limiter, time.Now()}
		return limiter
	}
	v.lastSeen = time.Now()
	return v.limiter
}

// getActionLimiter returns the rate limiter for the given IP address and control path.
func (rl *RateLimiter) getActionLimiter(ip, action string) *rate.Limiter {
	rl.muAction.Lock()
	defer rl.muAction.Unlock()
	if _, ok := rl.actionVisitors[ip]; !ok {
		rl.actionVisitors[ip] = make(map[string]*visitor)
	}
	v, exists := rl.actionVisitors[ip][action]
	if !exists {
		limiter := rate.NewLimiter(rl.actionRate, rl.actionBurst)
		rl.actionVisitors[ip][action] = &visitor{limiter, time.Now()}
		return limiter
	}
	v.lastSeen = time.Now()
	return v.limiter
}

// Cleanup removes visitors that have not been seen for longer than the idle timeout.
func (rl *RateLimiter) Cleanup(now time.Time) {
	rl.muGlobal.Lock()
	for ip, v := range rl.globalVisitors {
		if now.Sub(v.lastSeen) > rl.idleTimeout {
			delete(rl.globalVisitors, ip)
		}
	}
	rl.muGlobal.Unlock()

	rl.muAction.Lock()
	for ip, actions := range rl.actionVisitors {
		for action, v := range actions {
			if now.Sub(v.lastSeen) > rl.idleTimeout {
				delete(actions, action)
			}
		}
		if len(actions) == 0 {
			delete(rl.actionVisitors, ip)
		}
	}
	rl.muAction.Unlock()
}

// StartCleanup schedules Cleanup every minute until Stop is called.
func (rl *RateLimiter) StartCleanup() error {
	s := gocron.NewScheduler(time.UTC)
	if _, err := s.Every(1).Minute().Do(func() {
		rl.Cleanup(time.Now())
	}); err != nil {
		return err
	}
	s.StartAsync()
	rl.scheduler = s
	return nil
}

// Stop stops the cleanup job, if running.
func (rl *RateLimiter) Stop() {
	if rl.scheduler != nil {
		rl.scheduler.Stop()
	}
}

// visitorCounts reports tracked clients; used in tests.
func (rl *RateLimiter) visitorCounts() (global, action int) {
	rl.muGlobal.Lock()
	global = len(rl.globalVisitors)
	rl.muGlobal.Unlock()
	rl.muAction.Lock()
	action = len(rl.actionVisitors)
	rl.muAction.Unlock()
	return
}

// clientIP extracts the client's IP address, honoring X-Forwarded-For only when trusted.
func (rl *RateLimiter) clientIP(r *http.Request) string {
	if rl.TrustForwardedFor {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			ips := strings.Split(xff, ",")
			return strings.TrimSpace(ips[0])
		}
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr // fallback
	}
	return ip
}

func writeTooManyRequests(w http.ResponseWriter, errMsg, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(model.Response{
		Error:   &errMsg,
		Message: message,
	})
}

// Middleware enforces global and per-control rate limiting.
// If a limit is exceeded, it responds with a 429 status and a JSON error message.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := rl.clientIP(r)
		if !rl.getGlobalLimiter(ip).Allow() {
			writeTooManyRequests(w, "Rate limit exceeded: too many requests per user/IP", "Too Many Requests (global limit)")
			return
		}
		if !rl.getActionLimiter(ip, r.Method+" "+r.URL.Path).Allow() {
			writeTooManyRequests(w, "Rate limit exceeded: too many requests to this control per user/IP", "Too Many Requests (per-control limit)")
			return
		}
		next.ServeHTTP(w, r)
	})
}
