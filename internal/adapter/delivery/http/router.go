// Package http provides the HTTP delivery layer of the shortlink service:
// the router, the handlers and the middleware that identifies callers.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-playground/validator/v10"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/vadimbarashkov/shortlink/internal/metrics"
	"github.com/vadimbarashkov/shortlink/pkg/middleware/recoverer"
)

type routerOptions struct {
	allowedHeaders []string
}

// RouterOption configures the router built by NewRouter.
type RouterOption func(*routerOptions)

// WithAllowedHeaders adds request headers that cross-origin clients may send,
// such as a custom identity header.
func WithAllowedHeaders(headers ...string) RouterOption {
	return func(o *routerOptions) {
		o.allowedHeaders = append(o.allowedHeaders, headers...)
	}
}

// NewRouter initializes a chi router with the middleware and routes of the service.
// Routes under /urls require a caller identity resolved by identify.
func NewRouter(
	logger *httplog.Logger,
	identify IdentityFunc,
	urlUseCase urlUseCase,
	redirectUseCase redirectUseCase,
	analyticsUseCase analyticsUseCase,
	opts ...RouterOption,
) *chi.Mux {
	o := routerOptions{
		allowedHeaders: []string{"Content-Type", "Accept", DefaultIdentityHeader},
	}
	for _, opt := range opts {
		opt(&o)
	}

	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*"},
		AllowedMethods:   []string{"POST", "GET", "OPTIONS"},
		AllowedHeaders:   o.allowedHeaders,
		AllowCredentials: false,
		MaxAge:           84600,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(recoverer.New(logger.Logger))
	r.Use(instrument)

	r.Get("/ping", handlePing)
	r.Handle("/metrics", metrics.Handler())

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/swagger.yml"),
	))

	r.Get("/docs/swagger.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./docs/swagger.yml")
	})

	r.Route("/urls", func(r chi.Router) {
		r.Use(requireIdentity(identify))

		urlH := newURLHandler(urlUseCase, validator.New())
		analyticsH := newAnalyticsHandler(analyticsUseCase)

		r.Post("/shorten", urlH.shortenURL)
		r.Get("/myurls", urlH.listURLs)
		r.Get("/analytics/{shortCode}", analyticsH.clicksByCode)
		r.Get("/totalClicks", analyticsH.totalClicks)
	})

	redirectH := newRedirectHandler(redirectUseCase)
	r.Get("/{shortCode}", redirectH.redirect)

	return r
}
