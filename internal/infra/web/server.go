package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"momo-gateway/internal/usecase"
)

// Server exposes the gateway facade over HTTP.
type Server struct {
	gateway usecase.GatewayUseCase
	apiKey  string
	log     *zerolog.Logger
}

func NewServer(gateway usecase.GatewayUseCase, apiKey string, logger *zerolog.Logger) *Server {
	return &Server{gateway: gateway, apiKey: apiKey, log: logger}
}

// Router builds the chi router. Mutating routes sit behind bearer auth;
// webhooks authenticate with provider signatures instead.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/providers", s.handleProviderStats)
		r.Get("/providers/detect", s.handleDetect)
		r.Get("/providers/{provider}/quote", s.handleQuote)
		r.Get("/providers/{provider}/volume", s.handleVolume)
		r.Get("/payments/{provider}/{transactionID}/status", s.handleStatus)
		r.Post("/webhooks/{provider}", s.handleWebhook)

		r.Group(func(r chi.Router) {
			r.Use(s.bearerAuth)
			r.Post("/payments", s.handleCharge)
			r.Post("/refunds", s.handleRefund)
		})
	})

	return r
}
