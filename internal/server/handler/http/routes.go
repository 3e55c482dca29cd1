// Package http provides HTTP routing and handlers for the task service.
package http

import (
	"net/http"

	"github.com/atinyakov/todosync/internal/middleware"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs and returns an HTTP handler that serves the task
// API under /api.
//
// Routes:
//
//	GET    /api/health          → liveness probe used by clients
//	POST   /api/register        → authHandler.Register
//	POST   /api/login           → authHandler.Login
//	GET    /api/profile         → authHandler.Profile    (bearer)
//	GET    /api/tasks           → taskHandler.List       (bearer)
//	POST   /api/tasks           → taskHandler.Create     (bearer)
//	POST   /api/tasks/sync      → syncHandler.Sync       (bearer)
//	GET    /api/tasks/{id}      → taskHandler.Get        (bearer)
//	PUT    /api/tasks/{id}      → taskHandler.Update     (bearer)
//	DELETE /api/tasks/{id}      → taskHandler.Delete     (bearer)
//
// Middleware chain (applied in order):
//  1. Heartbeat("/api/health")
//  2. RequestID and Recoverer
//  3. WithRequestLogging(logger)
//  4. AllowContentType("application/json") for requests with a body
//  5. BearerAuth(authn) on the protected group
func NewRouter(
	authHandler *AuthHandler,
	taskHandler *TaskHandler,
	syncHandler *SyncHandler,
	authn middleware.Authenticator,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Heartbeat("/api/health"))
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)

	// Log each request and its metadata
	r.Use(middleware.WithRequestLogging(logger))
	// Only allow requests with Content-Type: application/json
	r.Use(chiMiddleware.AllowContentType("application/json"))

	r.Route("/api", func(r chi.Router) {
		// Public endpoints
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)

		// Protected group: requires a valid bearer token
		r.Group(func(r chi.Router) {
			r.Use(middleware.BearerAuth(authn))

			r.Get("/profile", authHandler.Profile)

			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", taskHandler.List)
				r.Post("/", taskHandler.Create)
				r.Post("/sync", syncHandler.Sync)
				r.Get("/{id}", taskHandler.Get)
				r.Put("/{id}", taskHandler.Update)
				r.Delete("/{id}", taskHandler.Delete)
			})
		})
	})

	return r
}
