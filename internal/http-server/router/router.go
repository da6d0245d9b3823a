package router

import (
	"net/http"

	"fraud-viewer/internal/http-server/handler/dashboard"
	"fraud-viewer/internal/http-server/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

type Handler struct {
	Dashboard *dashboard.DashboardHandler
}

func SetupRouter(h *Handler, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RecoveryMiddleware)
	r.Use(middleware.LoggingMiddleware)

	r.Get("/", h.Dashboard.Index)
	r.Post("/submit", h.Dashboard.Submit)

	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   allowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))

		r.Get("/health", h.Dashboard.Health)
		r.Get("/state", h.Dashboard.State)
		r.Post("/submit", h.Dashboard.Submit)

		r.Route("/submissions", func(r chi.Router) {
			r.Get("/", h.Dashboard.Submissions)
			r.Get("/{id}/predictions", h.Dashboard.ArchivedPredictions)
		})
	})

	return r
}
