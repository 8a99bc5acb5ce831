package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"focustrack-backend/internal/handlers"
	"focustrack-backend/internal/middleware"
	"focustrack-backend/internal/websocket"
)

func New(
	jwtAuth *middleware.JWTAuth,
	sessionHandler *handlers.SessionHandler,
	backupHandler *handlers.BackupHandler,
	statusHandler *handlers.StatusHandler,
	userHandler *handlers.UserHandler,
	signalHandler *handlers.SignalHandler,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Destructive-operation limiter (5 req/min per caller, keyed by uid)
	resetLimiter := middleware.NewRateLimiter(5, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Stateless record checks (public) ────
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/validate", sessionHandler.Validate)
			r.Post("/sanitize", sessionHandler.Sanitize)

			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Get("/active", sessionHandler.Active)
				r.Get("/range", sessionHandler.Range)
				r.Post("/cleanup", sessionHandler.Cleanup)
			})
		})

		// ──── Sync ────
		r.Route("/sync", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/status", statusHandler.SyncStatus)
			r.Get("/export", statusHandler.Export)
			r.Post("/ack", statusHandler.AcknowledgeBatch)
		})

		// ──── Backups / reset ────
		r.Route("/backups", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/", backupHandler.Create)
			r.Get("/", backupHandler.List)
			r.Post("/{key}/restore", backupHandler.Restore)
		})

		r.Group(func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Use(resetLimiter.Middleware)
			r.Post("/storage/reset", backupHandler.Reset)
		})

		// ──── Diagnostics ────
		r.Group(func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/diagnostics", statusHandler.Diagnostics)
		})

		// ──── User identity ────
		r.Route("/user", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/", userHandler.Get)
			r.Put("/", userHandler.Put)
		})

		// ──── Tracker signals ────
		r.Group(func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/signals", signalHandler.Post)
		})

		// WebSocket signal channel (token via query param)
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
