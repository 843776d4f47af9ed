// File: internal/infra/web/server.go
package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"telegram-pix-commerce/internal/domain/model"
)

// StatusSource reports the engine's tenant fleet for health and admin views.
type StatusSource interface {
	Status() []model.TenantStatus
	Uptime() time.Duration
}

// Server exposes health, metrics, and a small JWT-guarded admin API.
type Server struct {
	engine        StatusSource
	auth          *AuthManager
	adminPassword string
	log           *zerolog.Logger
	httpServer    *http.Server
}

func NewServer(port int, engine StatusSource, auth *AuthManager, adminPassword string, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "WebServer").Logger()
	s := &Server{
		engine:        engine,
		auth:          auth,
		adminPassword: adminPassword,
		log:           &l,
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Post("/api/login", s.handleLogin)
	r.Group(func(r chi.Router) {
		r.Use(s.auth.RequireAdmin)
		r.Get("/api/status", s.handleStatus)
		r.Post("/api/logout", s.handleLogout)
	})

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start blocks serving HTTP until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("http server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

type healthResponse struct {
	Status  string               `json:"status"`
	Uptime  string               `json:"uptime"`
	Tenants []model.TenantStatus `json:"tenants"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	tenants := s.engine.Status()
	status := "ok"
	for _, t := range tenants {
		if t.State == model.TenantStateFailed {
			status = "degraded"
			break
		}
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  status,
		Uptime:  s.engine.Uptime().Round(time.Second).String(),
		Tenants: tenants,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if s.adminPassword == "" ||
		subtle.ConstantTimeCompare([]byte(body.Password), []byte(s.adminPassword)) != 1 {
		s.log.Warn().Str("remote", r.RemoteAddr).Msg("admin login rejected")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	token, err := s.auth.Mint(w)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"uptime":  s.engine.Uptime().Round(time.Second).String(),
		"tenants": s.engine.Status(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
