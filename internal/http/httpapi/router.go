package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"printforge/internal/http/handlers"
	"printforge/internal/infra"
	"printforge/internal/middleware"
)

// NewRouter wires the API surface. outputDir is served under /output/ so
// concept images and downloaded meshes are reachable from their stored URLs.
func NewRouter(app *handlers.App, logger infra.Logger, lookup middleware.CountryLookup, outputDir string) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(logger),
		middleware.I18N("en", lookup),
	)

	r.Get("/v1/healthz", app.Health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/jobs", app.JobsCreate)
		r.Get("/jobs", app.JobsList)
		r.Post("/concepts", app.ConceptsCreate)
		r.Get("/job/{job_id}", app.JobStatus)
		r.Get("/job/{job_id}/bundle", app.JobBundle)

		r.Post("/webhook/payment", app.PaymentWebhook)

		r.Get("/materials", app.Materials)
		r.Get("/mesh-styles", app.MeshStyles)
		r.Get("/config", app.PublicConfig)
	})

	fileServer := http.StripPrefix("/output/", http.FileServer(http.Dir(outputDir)))
	r.Get("/output/*", func(w http.ResponseWriter, req *http.Request) {
		fileServer.ServeHTTP(w, req)
	})

	return r
}
