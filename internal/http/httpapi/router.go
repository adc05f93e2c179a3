package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"server/internal/http/handlers"
	"server/internal/middleware"
)

// NewRouter assembles the HTTP surface: public operation and snippet routes
// behind JWT auth, and internal delivery and scheduler routes behind the
// pre-shared job secret.
func NewRouter(app *handlers.App, countryLookup middleware.CountryLookup) http.Handler {
	r := chi.NewRouter()

	r.Use(
		chimw.RealIP,
		chimw.Recoverer,
		middleware.RequestID,
		middleware.Logger(app.Logger),
		middleware.CORS(app.Cfg.AllowedOrigins),
		middleware.RateLimit(app.Cfg.RateLimitPerMin, time.Minute),
		middleware.I18N(app.Cfg.DefaultLocale, countryLookup),
	)

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.AuthJWT(app.Cfg.JWTSecret))

		r.Route("/operations", func(r chi.Router) {
			r.Post("/", app.CreateOperation)
			r.Get("/", app.ListOperations)
			r.Get("/{id}", app.GetOperation)
		})

		r.Route("/preferences", func(r chi.Router) {
			r.Get("/", app.GetPreferences)
			r.Put("/", app.UpdatePreferences)
		})

		r.Route("/snippets", func(r chi.Router) {
			r.Get("/", app.ListSnippets)
			r.Post("/", app.CreateSnippet)
		})
	})

	r.Route("/internal", func(r chi.Router) {
		r.Use(middleware.InternalAuth(app.Cfg.InternalJobSecret))

		r.Post("/jobs/{type}", app.RunJob)
		r.Post("/scheduler/run", app.RunSchedulerScan)
		r.Post("/scheduler/users/{id}", app.TriggerUserReflection)
	})

	return r
}
