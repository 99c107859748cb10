// Package http exposes the JSON API: transaction CRUD, dashboard stats,
// accounts, goals, and health probes.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"bolso/internal/auth"
	applog "bolso/internal/log"
	"bolso/internal/middleware/ratelimit"
	"bolso/internal/middleware/security"
	"bolso/internal/middleware/trace"
	"bolso/internal/services"
	"bolso/internal/store"
)

type Server struct {
	http.Server

	transactions *services.TransactionService
	accounts     store.AccountStore
	goals        store.GoalStore
	identity     auth.Identity

	limiter  *ratelimit.Limiter
	detector *security.Detector

	shutdownOnce sync.Once
}

// Config carries the server tunables the composition root reads from the
// environment. Zero values mean defaults.
type Config struct {
	Addr               string
	RateLimitPerMinute int
	TrustedProxies     []string
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(cfg Config, svc *services.TransactionService, st store.Store, identity auth.Identity) (*Server, error) {
	detector, err := security.NewDetector(cfg.TrustedProxies...)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()

	s := &Server{
		transactions: svc,
		accounts:     st,
		goals:        st,
		identity:     identity,
		limiter:      ratelimit.NewLimiter(ratelimit.Config{PerMinute: cfg.RateLimitPerMinute}),
		detector:     detector,
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)
	mux.HandleFunc("/api/transactions", s.handleTransactions)
	mux.HandleFunc("/api/transactions/", s.handleTransactionByID)
	mux.HandleFunc("/api/dashboard", s.handleDashboard)
	mux.HandleFunc("/api/accounts", s.handleAccounts)
	mux.HandleFunc("/api/accounts/", s.handleAccountByID)
	mux.HandleFunc("/api/goals", s.handleGoals)
	mux.HandleFunc("/api/goals/", s.handleGoalByID)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(s.detector.ExtractClientIP)
	logmw := applog.Middleware(applog.New(applog.Config{Component: applog.ComponentHTTP}))

	limited := s.limiter.Middleware(s.detector.ExtractClientIP, rateLimited)(s.withThreatDetection(mux))
	handler := tracer.Middleware(logmw(headers.Middleware(security.NoStoreMiddleware(limited))))

	s.Server = http.Server{
		Addr:    cfg.Addr,
		Handler: handler,
	}

	return s, nil
}

// rateLimited writes the over-limit response in the API's error envelope.
func rateLimited(w http.ResponseWriter, _ *http.Request) {
	ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded").
		Header("Retry-After", "60").
		Write(w)
}

// Shutdown gracefully shuts down the server and its cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withThreatDetection logs requests matching known probe patterns. They are
// not blocked; the signal feeds the detector's metrics.
func (s *Server) withThreatDetection(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			slog.WarnContext(r.Context(), "Suspicious request detected",
				"path", r.URL.Path,
				"client_ip", s.detector.ExtractClientIP(r))
		}
		next.ServeHTTP(w, r)
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
