package server

import (
	"crypto/subtle"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jukebox/internal/shared"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"
)

// PasswordHeader carries the admin password on admin-gated routes.
const PasswordHeader = "password"

// RequestLogger logs one line per request with its chi request id.
func RequestLogger(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				kv := []any{
					"method", r.Method,
					"path", r.URL.Path,
					"status", status,
					"duration", time.Since(start).Round(time.Microsecond),
					"request_id", middleware.GetReqID(r.Context()),
				}
				if status >= http.StatusInternalServerError {
					logger.Warn("request", kv...)
				} else {
					logger.Info("request", kv...)
				}
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// AdminOnly rejects requests whose password header does not match password. It runs before
// any handler so a rejected request never reaches Spotify. An unset password rejects everything
// with a configuration error.
func AdminOnly(password string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if password == "" {
				writeError(w, shared.ErrMissingPassword)
				return
			}
			given := r.Header.Get(PasswordHeader)
			if subtle.ConstantTimeCompare([]byte(given), []byte(password)) != 1 {
				writeError(w, shared.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientLimiters hands out one token bucket per client address.
type clientLimiters struct {
	mu      sync.Mutex
	every   rate.Limit
	burst   int
	clients map[string]*clientLimiter
	swept   time.Time
	now     func() time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const limiterIdle = 10 * time.Minute

func (c *clientLimiters) allow(client string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if now.Sub(c.swept) > limiterIdle {
		for k, v := range c.clients {
			if now.Sub(v.lastSeen) > limiterIdle {
				delete(c.clients, k)
			}
		}
		c.swept = now
	}

	cl, ok := c.clients[client]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(c.every, c.burst)}
		c.clients[client] = cl
	}
	cl.lastSeen = now
	return cl.limiter.AllowN(now, 1)
}

// RateLimit allows each client address perMinute requests per minute, answering 429 beyond
// that. perMinute <= 0 disables the limit.
func RateLimit(perMinute int) Middleware {
	if perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return rateLimit(perMinute, time.Now)
}

func rateLimit(perMinute int, now func() time.Time) Middleware {
	limits := &clientLimiters{
		every:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   perMinute,
		clients: make(map[string]*clientLimiter),
		now:     now,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limits.allow(clientAddr(r)) {
				w.Header().Set("Retry-After", "60")
				writeError(w, shared.ErrRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientAddr is the request's host without port. RealIP has already rewritten RemoteAddr
// from proxy headers when the server runs behind one.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
