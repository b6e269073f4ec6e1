package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/guanavive/internal/http/handlers"
	"github.com/pribylovaa/guanavive/internal/http/middleware"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger   *slog.Logger
	Timeout  time.Duration
	BasePath string // например, "/api"; если пустой — роуты регистрируются на корне.
}

// NewRouter собирает http.Handler шлюза на chi.
func NewRouter(h *handlers.Handlers, opts Options) http.Handler {
	root := chi.NewRouter()

	// Внешний -> внутренний.
	root.Use(
		middleware.Recover(),
		middleware.RequestID(), // до Logging и до исходящих запросов к бэкенду
		middleware.Logging(opts.Logger),
		middleware.Timeout(opts.Timeout),
	)

	if opts.BasePath != "" {
		sub := chi.NewRouter()
		registerRoutes(sub, h)
		root.Mount(opts.BasePath, sub)
		return root
	}

	registerRoutes(root, h)
	return root
}

func registerRoutes(r chi.Router, h *handlers.Handlers) {
	// session
	r.Post("/session/login", h.Login)
	r.Post("/session/register", h.Register)
	r.Post("/session/logout", h.Logout)
	r.Get("/session/me", h.Me)
	r.Get("/session/status", h.Status)

	// resources
	s := h.Services
	r.Mount("/publications", handlers.Resource(s.Publications))
	r.Mount("/categories", handlers.Resource(s.Categories))
	r.Mount("/users", handlers.Resource(s.Users))
	r.Mount("/subscriptions", handlers.Resource(s.Subscriptions))
}
