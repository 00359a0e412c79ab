// Package server wires the stores, session managers, and handlers into one
// HTTP surface.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"chorebank/internal/auth"
	"chorebank/internal/dependent"
	"chorebank/internal/guardian"
	"chorebank/internal/handler"
	"chorebank/internal/middleware"
	"chorebank/internal/store"
	ws "chorebank/internal/websocket"
)

type Server struct {
	store       store.Store
	hub         *ws.Hub
	tokens      *auth.Tokens
	dependents  *dependent.Manager
	guardians   *guardian.Manager
	authH       *handler.AuthHandler
	dependentH  *handler.DependentHandler
	guardianH   *handler.GuardianHandler
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

func New(st store.Store, jwtSecret string, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))
	tokens := auth.NewTokens(jwtSecret)
	provider := auth.NewStoreProvider(st)

	dependents := dependent.NewManager(st, logger.With("component", "dependent"))
	guardians := guardian.NewManager(st, logger.With("component", "guardian"))

	return &Server{
		store:       st,
		hub:         hub,
		tokens:      tokens,
		dependents:  dependents,
		guardians:   guardians,
		authH:       handler.NewAuthHandler(provider, tokens, dependents, guardians, logger.With("component", "auth")),
		dependentH:  handler.NewDependentHandler(dependents, hub, logger.With("component", "dependent_api")),
		guardianH:   handler.NewGuardianHandler(guardians, hub, logger.With("component", "guardian_api")),
		rateLimiter: middleware.NewRateLimiter(),
		logger:      logger,
	}
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Shutdown releases every live session and its store subscriptions.
func (s *Server) Shutdown() {
	s.dependents.CloseAll()
	s.guardians.CloseAll()
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /api/auth/signup", s.rateLimitedHandler(s.authH.SignUp))
	outerMux.HandleFunc("POST /api/auth/signin", s.rateLimitedHandler(s.authH.SignIn))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes — wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.tokens)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/signout", s.authH.SignOut)

	// Live change notifications
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))

	// Dependent routes
	mux.Handle("GET /api/me/overview", middleware.RequireDependent(http.HandlerFunc(s.dependentH.Overview)))
	mux.Handle("GET /api/me/balance", middleware.RequireDependent(http.HandlerFunc(s.dependentH.Balance)))
	mux.Handle("POST /api/me/tasks/{id}/done", middleware.RequireDependent(http.HandlerFunc(s.dependentH.MarkDone)))
	mux.Handle("POST /api/me/rewards/{id}/redeem", middleware.RequireDependent(http.HandlerFunc(s.dependentH.Redeem)))
	mux.Handle("POST /api/me/messages/ack", middleware.RequireDependent(http.HandlerFunc(s.dependentH.AckMessage)))

	// Guardian routes
	mux.Handle("GET /api/children", middleware.RequireGuardian(http.HandlerFunc(s.guardianH.Children)))
	mux.Handle("POST /api/children/link", middleware.RequireGuardian(http.HandlerFunc(s.guardianH.LinkChild)))
	mux.Handle("POST /api/children/{id}/unlink", middleware.RequireGuardian(http.HandlerFunc(s.guardianH.UnlinkChild)))

	mux.Handle("GET /api/tasks", middleware.RequireGuardian(http.HandlerFunc(s.guardianH.ListTasks)))
	mux.Handle("POST /api/tasks", middleware.RequireGuardian(http.HandlerFunc(s.guardianH.CreateTask)))
	mux.Handle("POST /api/tasks/{id}/approve", middleware.RequireGuardian(http.HandlerFunc(s.guardianH.ApproveTask)))
	mux.Handle("DELETE /api/tasks/{id}", middleware.RequireGuardian(http.HandlerFunc(s.guardianH.DeleteTask)))

	mux.Handle("GET /api/rewards", middleware.RequireGuardian(http.HandlerFunc(s.guardianH.ListRewards)))
	mux.Handle("POST /api/rewards", middleware.RequireGuardian(http.HandlerFunc(s.guardianH.AddReward)))
	mux.Handle("DELETE /api/rewards/{id}", middleware.RequireGuardian(http.HandlerFunc(s.guardianH.DeleteReward)))
	mux.Handle("POST /api/guardian/messages/ack", middleware.RequireGuardian(http.HandlerFunc(s.guardianH.AckMessage)))
}
