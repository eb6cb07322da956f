package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/LavaJover/shvark-checkout-service/internal/delivery/http/dto/payment/request"
	"github.com/LavaJover/shvark-checkout-service/internal/delivery/http/dto/payment/response"
	"github.com/LavaJover/shvark-checkout-service/internal/domain"
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/reference"
	paymentdto "github.com/LavaJover/shvark-checkout-service/internal/usecase/dto/payment"
	usecase "github.com/LavaJover/shvark-checkout-service/internal/usecase/payment"
	"github.com/gorilla/mux"
)

type PaymentHandler struct {
	uc         usecase.PaymentUsecase
	dispatcher *Dispatcher
}

func NewPaymentHandler(uc usecase.PaymentUsecase, dispatcher *Dispatcher) *PaymentHandler {
	return &PaymentHandler{
		uc:         uc,
		dispatcher: dispatcher,
	}
}

// POST /payments/initialize
func (h *PaymentHandler) Initialize(w http.ResponseWriter, r *http.Request) {
	var req request.InitializeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, response.ErrorResponse{Error: "invalid json"})
		return
	}

	out, err := h.uc.Initiate(r.Context(), &paymentdto.InitiateInput{
		Amount:      req.Amount,
		Currency:    req.Currency,
		Email:       req.Email,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
		TxRef:       req.TxRef,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, response.InitializeResponse{
		CheckoutURL: out.CheckoutURL,
		TxRef:       out.Reference,
	})
}

// Callback acknowledges a gateway webhook and schedules verification. The
// payload is only a hint: its status is never used.
// POST /payments/callback, GET /payments/callback?trx_ref=
func (h *PaymentHandler) Callback(w http.ResponseWriter, r *http.Request) {
	ref := callbackReference(r)
	if !reference.IsValid(ref) {
		writeJSON(w, http.StatusBadRequest, response.ErrorResponse{Error: "missing or malformed tx_ref"})
		return
	}

	job := func(ctx context.Context) {
		tx, err := h.uc.Verify(ctx, ref, domain.TriggerWebhook)
		if err != nil {
			if errors.Is(err, domain.ErrUnknownReference) {
				slog.Warn("webhook for unknown reference", "tx_ref", ref)
				return
			}
			slog.Error("webhook verification failed", "tx_ref", ref, "error", err.Error())
			return
		}
		slog.Info("webhook processed", "tx_ref", ref, "status", tx.Status)
	}
	if !h.dispatcher.TrySubmit(job) {
		// очередь полна: подтверждаем только после проверки, вебхук не теряется
		slog.Warn("webhook queue full, verifying inline", "tx_ref", ref)
		h.dispatcher.Run(job)
	}

	writeJSON(w, http.StatusOK, response.CallbackResponse{Status: "received"})
}

// GET /payments/verify/{tx_ref}
func (h *PaymentHandler) Verify(w http.ResponseWriter, r *http.Request) {
	ref := mux.Vars(r)["tx_ref"]
	if !reference.IsValid(ref) {
		writeJSON(w, http.StatusBadRequest, response.ErrorResponse{Error: "malformed tx_ref"})
		return
	}

	tx, err := h.uc.Verify(r.Context(), ref, domain.TriggerManualPoll)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response.FromTransaction(tx))
}

// Return is where the gateway sends the payer's browser after checkout.
// GET /payments/return?tx_ref=
func (h *PaymentHandler) Return(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ref := q.Get("tx_ref")
	if ref == "" {
		ref = q.Get("trx_ref")
	}
	if !reference.IsValid(ref) {
		writeJSON(w, http.StatusBadRequest, response.ErrorResponse{Error: "missing or malformed tx_ref"})
		return
	}

	tx, err := h.uc.Verify(r.Context(), ref, domain.TriggerReturnRedirect)
	if err != nil {
		writeError(w, err)
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, response.FromTransaction(tx))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if err := returnTemplate.Execute(w, newReturnPage(tx)); err != nil {
		slog.Error("failed to render return page", "tx_ref", ref, "error", err.Error())
	}
}

// callbackReference reads tx_ref from a JSON body first, then from the query
// string where gateways put it for GET callbacks.
func callbackReference(r *http.Request) string {
	if r.Method == http.MethodPost && r.Body != nil {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err == nil && len(body) > 0 {
			var payload request.CallbackRequest
			if json.Unmarshal(body, &payload) == nil && payload.Reference() != "" {
				return strings.TrimSpace(payload.Reference())
			}
		}
	}

	q := r.URL.Query()
	if ref := q.Get("trx_ref"); ref != "" {
		return strings.TrimSpace(ref)
	}
	return strings.TrimSpace(q.Get("tx_ref"))
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnknownReference):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateReference):
		return http.StatusConflict
	case errors.Is(err, domain.ErrGatewayRejected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrGatewayUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrGatewayError):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		slog.Error("request failed", "error", msg)
		msg = "internal error"
	}
	writeJSON(w, code, response.ErrorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response", "error", err.Error())
	}
}
