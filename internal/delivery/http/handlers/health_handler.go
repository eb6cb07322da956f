package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/LavaJover/shvark-checkout-service/internal/delivery/http/dto/payment/response"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// Healthz reports whether the transaction store answers.
func Healthz(store Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, response.HealthResponse{Status: "unavailable", Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, response.HealthResponse{Status: "ok"})
	}
}
