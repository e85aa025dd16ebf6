package httpapi

import (
	"net/http"
	"time"

	"cramdesk/internal/http/handlers"
	appmw "cramdesk/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter assembles the HTTP surface. lookup resolves client countries for
// locale detection and may be nil.
func NewRouter(app *handlers.App, lookup appmw.CountryLookup) http.Handler {
	r := chi.NewRouter()

	r.Use(
		appmw.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		appmw.CORS(app.Config.AllowedOrigins),
		appmw.I18N("en", lookup),
		appmw.Logger(app.Logger),
	)

	r.Get("/v1/healthz", app.Health)
	r.Handle("/metrics", promhttp.Handler())

	// Stripe signs its own requests; webhook delivery skips the session
	// auth and rate limit.
	r.Post("/v1/billing/webhook", app.StripeWebhook)

	r.Group(func(r chi.Router) {
		r.Use(appmw.RateLimit(app.Config.RateLimitPerMin, time.Minute))

		r.Post("/v1/auth/google/verify", app.AuthGoogleVerify)
		r.Get("/v1/billing/tiers", app.BillingTiers)

		r.Group(func(r chi.Router) {
			r.Use(appmw.AuthJWT(app.JWTSecret))

			r.Get("/v1/me", app.Me)
			r.Get("/v1/me/usage", app.UsageSummary)

			r.Post("/v1/billing/checkout", app.CheckoutCreate)

			r.Route("/v1/documents", func(r chi.Router) {
				r.Post("/", app.DocumentUpload)
				r.Get("/", app.DocumentList)
				r.Route("/{document_id}", func(r chi.Router) {
					r.Get("/", app.DocumentGet)
					r.Delete("/", app.DocumentDelete)

					r.Post("/summary", app.SummaryGenerate)
					r.Post("/quiz", app.QuizGenerate)
					r.Post("/flashcards", app.FlashcardsGenerate)
					r.Post("/writer", app.WriterGenerate)
					r.Post("/translation", app.TranslationGenerate)

					r.Get("/study-aids", app.StudyAidList)
					r.Get("/export", app.StudyAidExport)
				})
			})
		})
	})

	return r
}
