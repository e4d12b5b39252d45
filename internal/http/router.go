package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robertarktes/travel-storefront/internal/idempotency"
	"github.com/robertarktes/travel-storefront/internal/rateLimit"
	"github.com/robertarktes/travel-storefront/internal/session"
)

func SetupRouter(h *Handlers, state *session.State, rl *rateLimit.RateLimiter, idemp *idempotency.Idempotency) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(state.Logger))
	r.Use(TracingMiddleware)
	r.Use(MetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   state.Config.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Idempotency-Key", "X-Client-ID", "X-Request-Id"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(IdentityMiddleware(state.Auth))

	r.Get("/v1/healthz", h.Healthz)
	r.Get("/v1/readyz", h.Readyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	// The gateway retries on its own schedule, so the webhook is not rate limited.
	r.Post("/v1/payments/webhook", h.PaymentWebhook)

	r.Group(func(r chi.Router) {
		r.Use(RateLimitMiddleware(rl))

		r.Get("/v1/home", h.Home)
		r.Get("/v1/destinations", h.ListDestinations)
		r.Get("/v1/destinations/{id}", h.GetDestination)
		r.Get("/v1/packages", h.ListPackages)
		r.Get("/v1/packages/{id}", h.GetPackage)
		r.Get("/v1/categories/{type}", h.ListCategory)
		r.Get("/v1/deals", h.ListDeals)
		r.Get("/v1/estimate", h.Estimate)

		r.Post("/v1/auth/signup", h.SignUp)
		r.Post("/v1/auth/signin", h.SignIn)
		r.Get("/v1/auth/session", h.Session)
		r.Post("/v1/contact", h.SubmitContact)

		r.Get("/v1/preferences/theme", h.GetTheme)
		r.Put("/v1/preferences/theme", h.SetTheme)
		r.Post("/v1/preferences/theme/toggle", h.ToggleTheme)

		r.Route("/v1/flows", func(r chi.Router) {
			r.Post("/", h.StartFlow)
			r.Get("/{id}", h.GetFlow)
			r.Put("/{id}/travelers", h.SetTravelers)
			r.Post("/{id}/travelers/{field}/{op}", h.AdjustTraveler)
			r.Post("/{id}/proceed", h.Proceed)
			r.Delete("/{id}", h.AbandonFlow)

			r.Group(func(r chi.Router) {
				r.Use(RequireIdentity)
				r.Use(IdempotencyMiddleware(idemp))
				r.Post("/{id}/payment-info", h.SubmitPaymentInfo)
				r.Post("/{id}/payment", h.InitiatePayment)
				r.Post("/{id}/payment/callback", h.PaymentCallback)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(RequireIdentity)
			r.Post("/v1/auth/signout", h.SignOut)
			r.Get("/v1/bookings", h.ListBookings)
			r.Get("/v1/bookings/{id}", h.GetBooking)
			r.Get("/v1/bookings/{id}/receipt", h.BookingReceipt)
		})
	})

	return r
}
