package handlers

import (
	"net/http"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
)

type RouterConfig struct {
	AllowedOrigins []string
	WebhookSecret  string
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
}

func NewRouter(h *PaymentHandler, store Pinger, cfg RouterConfig) http.Handler {
	router := mux.NewRouter()

	payments := router.PathPrefix("/payments").Subrouter()
	payments.HandleFunc("/initialize", h.Initialize).Methods(http.MethodPost)
	payments.HandleFunc("/verify/{tx_ref}", h.Verify).Methods(http.MethodGet)
	payments.HandleFunc("/return", h.Return).Methods(http.MethodGet)

	callback := WebhookSignature(cfg.WebhookSecret)(http.HandlerFunc(h.Callback))
	payments.Handle("/callback", callback).Methods(http.MethodPost, http.MethodGet)

	router.HandleFunc("/healthz", Healthz(store)).Methods(http.MethodGet, http.MethodHead)
	if cfg.Metrics != nil {
		router.Handle("/metrics", cfg.Metrics).Methods(http.MethodGet)
	}

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	})(router)
}
