package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func NewRouter(apiHandler *APIHandler, requireAuth bool) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)       // Basic request logging
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// All API routes will be under /api
	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Get("/", apiHandler.RootHandler)
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		})
		r.Post("/students", apiHandler.CreateStudentHandler)
		r.Get("/modules", apiHandler.ListModulesHandler)

		// Student-scoped routes, token-protected when a JWT secret is configured
		r.Group(func(r chi.Router) {
			if requireAuth {
				r.Use(apiHandler.JWTAuthMiddleware)
			}

			r.Get("/students/{studentID}", apiHandler.GetStudentHandler)

			r.Post("/messages", apiHandler.CreateMessageHandler)
			r.Get("/messages/{studentID}", apiHandler.ListMessagesHandler)

			r.Post("/chat", apiHandler.ChatHandler)

			r.Post("/progress", apiHandler.RecordProgressHandler)
			r.Get("/progress/{studentID}", apiHandler.ListProgressHandler)

			r.Post("/process-video-frame", apiHandler.ProcessVideoFrameHandler)
			r.Get("/media/{studentID}", apiHandler.ListMediaHandler)
		})
	})

	return r
}
