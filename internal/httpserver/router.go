package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"qwenmt-translator/internal/handlers"
	"qwenmt-translator/internal/metrics"
	"qwenmt-translator/internal/middleware"
)

// maxBodySize bounds request bodies on every route.
const maxBodySize = 512 * 1024

func SetupRouter(r *chi.Mux, baseLogger *zap.Logger, translateHandler *handlers.TranslateHandler) {

	r.Use(metrics.Middleware)

	// base middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)

	r.Use(middleware.LoggingContext(baseLogger))
	r.Use(middleware.Recoverer())
	r.Use(middleware.MaxBodySize(maxBodySize))

	// routes
	r.Route("/v1", func(r chi.Router) {
		r.Post("/translate", translateHandler.Translate)
		r.Post("/validate", translateHandler.Validate)
		r.Get("/languages", translateHandler.Languages)
	})

	// health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Handle("/metrics", metrics.Handler())
}
