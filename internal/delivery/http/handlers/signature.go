package handlers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/LavaJover/shvark-checkout-service/internal/delivery/http/dto/payment/response"
)

const maxWebhookBody = 1 << 20

// WebhookSignature checks the gateway's HMAC-SHA256 of the raw body. With an
// empty secret every request passes. GET callbacks carry no body and are not
// signed by the gateway.
func WebhookSignature(secret string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		fn := func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
			if err != nil {
				writeJSON(w, http.StatusBadRequest, response.ErrorResponse{Error: "unreadable body"})
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			sig := r.Header.Get("x-chapa-signature")
			if sig == "" {
				sig = r.Header.Get("Chapa-Signature")
			}
			if !validSignature(body, secret, sig) {
				slog.Warn("webhook rejected: bad signature", "remote_addr", r.RemoteAddr)
				writeJSON(w, http.StatusUnauthorized, response.ErrorResponse{Error: "invalid signature"})
				return
			}
			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(fn)
	}
}

func validSignature(body []byte, secret, sig string) bool {
	if sig == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(sig))))
}
