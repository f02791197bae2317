package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"healthdash/internal/cache"
	applog "healthdash/internal/log"
	"healthdash/internal/middleware/ratelimit"
	"healthdash/internal/middleware/security"
	"healthdash/internal/middleware/trace"
	"healthdash/internal/services"
	appweb "healthdash/web"
)

// Config holds the HTTP server settings.
type Config struct {
	Addr               string
	RateLimitPerMinute int
	CacheTTL           time.Duration
	CacheSize          int
	CleanupInterval    time.Duration
	TrustedProxies     []string
}

// Server serves the dashboard page, its partials and the JSON API.
type Server struct {
	http.Server
	logger    *applog.Logger
	templates *template.Template
	dataset   *services.DatasetService
	dashboard *services.Dashboard

	// View caches are keyed by dataset generation so a view computed from a
	// superseded table is never served after a reload.
	generation atomic.Uint64
	mapCache   *cache.LRUCache[services.MapView]
	topCache   *cache.LRUCache[services.TopView]
	trendCache *cache.LRUCache[services.TrendView]
	caches     *cache.Manager

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	started          time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates.
func NewServer(cfg Config, dataset *services.DatasetService, dashboard *services.Dashboard, logger *applog.Logger) (*Server, error) {
	logger = logger.WithComponent(applog.ComponentHTTP)

	t, err := template.New("").ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 256
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 10 * time.Minute
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              cfg.Addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger:           logger,
		templates:        t,
		dataset:          dataset,
		dashboard:        dashboard,
		mapCache:         cache.NewLRUCache[services.MapView](cfg.CacheSize, cfg.CacheTTL),
		topCache:         cache.NewLRUCache[services.TopView](cfg.CacheSize, cfg.CacheTTL),
		trendCache:       cache.NewLRUCache[services.TrendView](cfg.CacheSize, cfg.CacheTTL),
		caches:           cache.NewManager(),
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute}),
		securityDetector: security.NewDetector(),
		started:          time.Now(),
	}
	for _, cidr := range cfg.TrustedProxies {
		if err := s.securityDetector.AddTrustedProxy(cidr); err != nil {
			s.rateLimiter.Stop()
			return nil, err
		}
	}
	s.traceMiddleware = trace.NewMiddleware(logger, s.securityDetector.ExtractClientIP)

	s.caches.Register(s.mapCache)
	s.caches.Register(s.topCache)
	s.caches.Register(s.trendCache)
	s.caches.StartCleanup(cfg.CleanupInterval)

	dataset.OnReload(func(snap services.Snapshot) {
		s.generation.Add(1)
		purged := s.caches.PurgeAll()
		logger.WithComponent(applog.ComponentCache).Info("View caches purged after reload",
			applog.FieldImportID, snap.Info.ImportID,
			"entries", purged)
	})

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /ui/map", s.handleMapPartial)
	mux.HandleFunc("GET /ui/top", s.handleTopPartial)
	mux.HandleFunc("GET /ui/trend", s.handleTrendPartial)

	limited := s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, s.onRateLimited)
	mux.Handle("GET /api/years", limited(http.HandlerFunc(s.handleAPIYears)))
	mux.Handle("GET /api/countries", limited(http.HandlerFunc(s.handleAPICountries)))
	mux.Handle("GET /api/map", limited(http.HandlerFunc(s.handleAPIMap)))
	mux.Handle("GET /api/top", limited(http.HandlerFunc(s.handleAPITop)))
	mux.Handle("GET /api/trend", limited(http.HandlerFunc(s.handleAPITrend)))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.Handler = s.traceMiddleware.Middleware(
		s.securityDetector.Middleware(logger)(
			headers.Middleware(mux)))

	return s, nil
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		applog.FieldPath, r.URL.Path)
	writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded, please try again later"})
}

// Shutdown stops background routines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
