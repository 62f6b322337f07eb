package app

import (
	"crypto/sha256"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"
	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/catalog/internal/observability"
	"github.com/odyssey-erp/catalog/internal/platform/httpx"
)

// MiddlewareConfig aggregates dependencies shared by the middleware stack.
type MiddlewareConfig struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics
}

// MiddlewareStack installs the catalog middleware chain.
func MiddlewareStack(cfg MiddlewareConfig) []func(http.Handler) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "no-referrer",
		PermissionsPolicy:     "geolocation=(), camera=(), microphone=()",
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		SSLRedirect:           cfg.Config.IsProduction(),
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
	})

	timeout := 30 * time.Second
	if cfg.Config != nil && cfg.Config.AppRequestTimeout > 0 {
		timeout = cfg.Config.AppRequestTimeout
	}

	middlewares := []func(http.Handler) http.Handler{
		middleware.RealIP,
		middleware.RequestID,
		middleware.Recoverer,
		middleware.Timeout(timeout),
		func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := secureMiddleware.Process(w, r); err != nil {
					logger.Warn("secure headers blocked request", slog.Any("error", err))
					return
				}
				next.ServeHTTP(w, r)
			})
		},
		middleware.Compress(5),
	}
	if limit := rateLimit(cfg.Config); limit > 0 {
		middlewares = append(middlewares, httprate.Limit(limit, time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				httpx.RespondError(w, httpx.ErrRateLimited)
			}),
		))
	}
	if cfg.Metrics != nil {
		middlewares = append(middlewares, cfg.Metrics.Middleware)
	}
	return middlewares
}

func rateLimit(cfg *Config) int {
	if cfg == nil {
		return 120
	}
	return cfg.RateLimitPerMinute
}

const (
	rejectedKeyTTL   = time.Minute
	rejectedKeyLimit = 1024
)

// APIKeyGuard rejects requests whose X-API-Key (or bearer token) does not match the
// bcrypt hash. An empty hash disables the guard. Verified keys are remembered by digest;
// rejected keys are remembered for a minute so a repeated bad key skips bcrypt.
type APIKeyGuard struct {
	hash     []byte
	logger   *slog.Logger
	now      func() time.Time
	mu       sync.RWMutex
	verified map[[sha256.Size]byte]struct{}
	rejected map[[sha256.Size]byte]time.Time
}

// NewAPIKeyGuard constructs the guard.
func NewAPIKeyGuard(hash string, logger *slog.Logger) *APIKeyGuard {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIKeyGuard{
		hash:     []byte(hash),
		logger:   logger,
		now:      time.Now,
		verified: make(map[[sha256.Size]byte]struct{}),
		rejected: make(map[[sha256.Size]byte]time.Time),
	}
}

// Middleware enforces the key.
func (g *APIKeyGuard) Middleware(next http.Handler) http.Handler {
	if g == nil || len(g.hash) == 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := presentedKey(r)
		if key == "" || !g.verify(key) {
			g.logger.WarnContext(r.Context(), "api key rejected",
				slog.String("path", r.URL.Path),
				slog.String("request_id", middleware.GetReqID(r.Context())))
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (g *APIKeyGuard) verify(key string) bool {
	digest := sha256.Sum256([]byte(key))
	now := g.now()
	g.mu.RLock()
	_, ok := g.verified[digest]
	rejectedAt, rejected := g.rejected[digest]
	g.mu.RUnlock()
	if ok {
		return true
	}
	if rejected && now.Sub(rejectedAt) < rejectedKeyTTL {
		return false
	}
	if bcrypt.CompareHashAndPassword(g.hash, []byte(key)) != nil {
		g.reject(digest, now)
		return false
	}
	g.mu.Lock()
	g.verified[digest] = struct{}{}
	g.mu.Unlock()
	return true
}

func (g *APIKeyGuard) reject(digest [sha256.Size]byte, now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.rejected) >= rejectedKeyLimit {
		for d, at := range g.rejected {
			if now.Sub(at) >= rejectedKeyTTL {
				delete(g.rejected, d)
			}
		}
		if len(g.rejected) >= rejectedKeyLimit {
			clear(g.rejected)
		}
	}
	g.rejected[digest] = now
}

func presentedKey(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
