package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"riskdash/internal/amqp"
	"riskdash/internal/cache"
	"riskdash/internal/dataset/memory"
	applog "riskdash/internal/log"
	"riskdash/internal/middleware/ratelimit"
	"riskdash/internal/middleware/security"
	"riskdash/internal/middleware/trace"
	"riskdash/internal/render"
	"riskdash/internal/services"
	"riskdash/internal/style"
)

// Publisher queues import requests for the worker.
type Publisher interface {
	PublishImportRequest(ctx context.Context, req *amqp.ImportRequest) error
}

// Config holds the server settings taken from the environment.
type Config struct {
	Addr           string
	RequestTimeout time.Duration
	RateLimit      ratelimit.Config
	UploadMaxBytes int64
	ChartCacheSize int
	ChartCacheTTL  time.Duration
	TrustedProxies []string
}

// Deps are the collaborators the handlers call. Publisher may be nil, which
// disables POST /api/imports.
type Deps struct {
	Service   *services.DashboardService
	Renderer  *render.Renderer
	Uploads   *memory.Store
	Publisher Publisher
	Caches    *cache.Manager
	Logger    *applog.Logger
}

type Server struct {
	http.Server

	cfg       Config
	svc       *services.DashboardService
	renderer  *render.Renderer
	uploads   *memory.Store
	publisher Publisher
	logger    *applog.Logger

	charts *cache.LRUCache[[]byte]

	limiter  *ratelimit.Limiter
	detector *security.Detector
	headers  *security.HeadersMiddleware
	tracer   *trace.Middleware

	appMetrics   *appMetrics
	shutdownOnce sync.Once
}

type appMetrics struct {
	uptime      time.Time
	uploads     int64
	imports     int64
	chartHits   int64
	chartMisses int64
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(cfg Config, deps Deps) *Server {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 7 * time.Second
	}
	if cfg.UploadMaxBytes <= 0 {
		cfg.UploadMaxBytes = 10 << 20
	}
	if cfg.ChartCacheSize <= 0 {
		cfg.ChartCacheSize = 128
	}
	if cfg.ChartCacheTTL <= 0 {
		cfg.ChartCacheTTL = time.Minute
	}
	logger := deps.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	renderer := deps.Renderer
	if renderer == nil {
		renderer = render.New(style.Default())
	}

	s := &Server{
		cfg:        cfg,
		svc:        deps.Service,
		renderer:   renderer,
		uploads:    deps.Uploads,
		publisher:  deps.Publisher,
		logger:     logger,
		charts:     cache.NewLRUCache[[]byte](cfg.ChartCacheSize, cfg.ChartCacheTTL),
		limiter:    ratelimit.NewLimiter(cfg.RateLimit),
		detector:   security.NewDetector(),
		headers:    security.NewHeadersMiddleware(security.DefaultHeadersConfig()),
		appMetrics: &appMetrics{uptime: time.Now()},
	}
	for _, cidr := range cfg.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", applog.FieldError, err.Error())
		}
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, logger)

	if deps.Caches != nil {
		deps.Caches.Register("charts", s.charts)
	}

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(s.tracer.Middleware)
	r.Use(applog.Middleware(s.logger))
	r.Use(applog.RequestIDMiddleware(func(r *http.Request) string {
		return trace.GetRequestID(r.Context())
	}))
	r.Use(s.detector.Middleware(s.logger))
	r.Use(s.headers.Middleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("not found").Write(w)
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)
	r.Handle("/static/*", staticHandler())

	r.Group(func(r chi.Router) {
		r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
			TooManyRequestsError().Write(w)
		}))
		r.Use(security.SanitizeQuery)
		r.Use(middleware.Timeout(s.cfg.RequestTimeout))
		r.Use(security.NoStore)
		r.Get("/", s.handleIndex)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
			TooManyRequestsError().Write(w)
		}))
		r.Use(security.SanitizeQuery)
		r.Use(middleware.Timeout(s.cfg.RequestTimeout))

		r.Group(func(r chi.Router) {
			r.Use(security.NoStore)

			r.Get("/years", s.handleYears)
			r.Get("/dashboard", s.handleDashboard)
			r.Get("/series/monthly", s.handleMonthly)
			r.Get("/series/risk", s.handleRisk)
			r.Get("/series/age", s.handleAge)
			r.Get("/profile", s.handleProfile)
			r.Get("/kpis", s.handleKPIs)
			r.Get("/models", s.handleModels)
			r.Get("/export", s.handleExport)

			r.Post("/datasets", s.handleUpload)
			r.Get("/datasets/{id}", s.handleGetUpload)
			r.Delete("/datasets/{id}", s.handleDeleteUpload)

			r.Post("/imports", s.handleImport)
		})

		r.With(security.ChartCache(int(s.cfg.ChartCacheTTL.Seconds()))).
			Get("/charts/{chart}.png", s.handleChart)
	})

	return r
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
