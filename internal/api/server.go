// Package api implements the JSON HTTP API: risk assessments, account
// management, prediction history, CSV import, and PDF reports.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/diawise/diawise/internal/auth"
	"github.com/diawise/diawise/internal/history"
	"github.com/diawise/diawise/internal/predict"
)

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger      *slog.Logger
	Predictor   *predict.Predictor // Required
	Recommender Recommender        // Optional: nil disables recommendations
	Users       *auth.Store        // Required
	History     *history.Store     // Optional: nil disables saving and history routes
	Pool        *pgxpool.Pool      // Optional: nil disables pool stats in /ready
	HMACSecret  []byte             // Required: 32+ bytes
	CORSOrigins []string           // Allowed origins for CORS
	IsDev       bool               // Enables HTTP cookies (no Secure flag)
	TrustProxy  bool               // Trust X-Real-IP/X-Forwarded-For headers
	RateBurst   int                // Rate limiter burst size per IP (0 = default 60)
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates the API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Predictor == nil {
		return nil, errors.New("predictor is required")
	}
	if cfg.Users == nil {
		return nil, errors.New("user store is required")
	}
	if len(cfg.HMACSecret) < 32 {
		return nil, errors.New("hmac secret must be at least 32 bytes")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sm := &sessionManager{
		hmacSecret: cfg.HMACSecret,
		isDev:      cfg.IsDev,
		logger:     logger,
	}

	ah := &authHandler{users: cfg.Users, sessions: sm, logger: logger}
	as := &assessHandler{
		predictor:   cfg.Predictor,
		recommender: cfg.Recommender,
		store:       cfg.History,
		logger:      logger,
	}
	ih := &importHandler{predictor: cfg.Predictor, logger: logger}
	rh := &reportHandler{
		predictor:   cfg.Predictor,
		recommender: cfg.Recommender,
		users:       cfg.Users,
		logger:      logger,
	}

	mux := http.NewServeMux()

	// CSRF token provisioning
	mux.HandleFunc("GET /api/v1/csrf-token", sm.csrfToken)

	// Accounts
	mux.HandleFunc("POST /api/v1/auth/register", ah.register)
	mux.HandleFunc("POST /api/v1/auth/login", ah.login)
	mux.HandleFunc("POST /api/v1/auth/logout", ah.logout)
	mux.HandleFunc("GET /api/v1/auth/me", ah.me)

	// Risk assessment and model introspection
	mux.HandleFunc("POST /api/v1/assess", as.assess)
	mux.HandleFunc("GET /api/v1/model/importance", as.featureImportance)

	// CSV import
	mux.HandleFunc("POST /api/v1/import", ih.upload)
	mux.HandleFunc("GET /api/v1/import/template", ih.template)

	// Ad-hoc PDF report
	mux.HandleFunc("POST /api/v1/report", rh.generate)

	// History (optional, requires a database-backed store)
	if cfg.History != nil {
		ph := &predictionHandler{store: cfg.History, users: cfg.Users, logger: logger}
		mux.HandleFunc("GET /api/v1/predictions", ph.list)
		mux.HandleFunc("GET /api/v1/predictions/trend", ph.trend)
		mux.HandleFunc("GET /api/v1/predictions/stats", ph.stats)
		mux.HandleFunc("GET /api/v1/predictions/{id}", ph.get)
		mux.HandleFunc("GET /api/v1/predictions/{id}/report", ph.downloadReport)
		mux.HandleFunc("POST /api/v1/health-logs", ph.createLog)
		mux.HandleFunc("GET /api/v1/health-logs", ph.listLogs)
	}

	// Rate limiter: per-IP token bucket (1 token/sec refill)
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(1.0, burst)

	// Build middleware stack (outermost first):
	//   Recovery → RequestID → Logging → CORS → RateLimit → User → CSRF → Routes
	// RequestID precedes Logging so request_id is available in log attributes.
	// CORS precedes RateLimit so preflight OPTIONS gets proper CORS headers.
	// User precedes CSRF so user-bound tokens can be validated.
	var handler http.Handler = mux
	handler = csrfMiddleware(sm, logger)(handler)
	handler = userMiddleware(sm)(handler)
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	isDev := cfg.IsDev
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w, isDev)
		handler.ServeHTTP(w, r)
	})

	// Health probes stay outside the middleware stack.
	topMux := http.NewServeMux()
	topMux.Handle("GET /health", health(logger))
	topMux.Handle("GET /ready", readiness(cfg.Pool, logger))
	topMux.Handle("/", final)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
