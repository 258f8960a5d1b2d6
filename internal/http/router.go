package httpapi

import (
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"draftdesk/internal/http/handlers"
	"draftdesk/internal/middleware"
)

// RouterOptions tunes the middleware around the handler set.
type RouterOptions struct {
	LoginRatePerMin int
}

// NewRouter wires every API route. Everything except health, login, and
// first-run setup sits behind the session check.
func NewRouter(app *handlers.App, opts RouterOptions) stdhttp.Handler {
	if opts.LoginRatePerMin <= 0 {
		opts.LoginRatePerMin = 20
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, chimw.RealIP, chimw.Recoverer)
	r.Use(middleware.Logger(app.Logger))

	r.Get("/healthz", app.Health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.RateLimit(opts.LoginRatePerMin, time.Minute)).Post("/login", app.Login)
			r.Post("/logout", app.Logout)
			r.Get("/session", app.Session)
			r.Post("/init", app.InitSuperAdmin)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(app.Admins))

			r.Route("/admins", func(r chi.Router) {
				r.With(middleware.RequireSuperAdmin).Post("/", app.CreateAdmin)
				r.With(middleware.RequireSuperAdmin).Get("/", app.ListAdmins)
			})

			r.Route("/clients", func(r chi.Router) {
				r.Post("/", app.CreateClient)
				r.Get("/", app.ListClients)
				r.Get("/{id}", app.GetClient)
				r.Put("/{id}", app.UpdateClient)
				r.Delete("/{id}", app.DeleteClient)
			})

			r.Route("/style-presets", func(r chi.Router) {
				r.Post("/", app.CreateStylePreset)
				r.Get("/", app.ListStylePresets)
				r.Get("/{id}", app.GetStylePreset)
			})

			r.Route("/jobs", func(r chi.Router) {
				r.Post("/", app.CreateJob)
				r.Get("/", app.ListJobs)
				r.Get("/{id}", app.GetJob)
				r.Delete("/{id}", app.DeleteJob)
				r.Post("/{id}/retry", app.RetryJob)
				r.Post("/{id}/download", app.MarkDownloaded)
				r.Get("/{id}/archive", app.ArchiveJob)
			})

			r.Get("/batches/{id}", app.GetBatch)
			r.Get("/stats/creators", app.CreatorStats)
			r.Post("/cleanup/images", app.CleanupImages)
		})
	})

	return r
}
