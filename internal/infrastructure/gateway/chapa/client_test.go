package chapa

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []string
	retries  int
}

func (o *recordingObserver) ObserveGatewayCall(op, outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, op+":"+outcome)
}

func (o *recordingObserver) ObserveGatewayRetry(string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.retries++
}

func newTestClient(t *testing.T, h http.HandlerFunc, obs Observer) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		BaseURL:        srv.URL,
		SecretKey:      "CHASECK_TEST-secret",
		RequestTimeout: 100 * time.Millisecond,
		MaxAttempts:    5,
		BackoffBase:    time.Millisecond,
		BackoffFactor:  2,
	}, obs)
}

func initRequest() domain.InitializeRequest {
	return domain.InitializeRequest{
		Reference: "tkt-abc",
		Amount:    decimal.NewFromInt(2600),
		Currency:  "ETB",
		Payer: domain.Payer{
			Email:     "a@b.com",
			FirstName: "A",
			LastName:  "B",
		},
		CallbackURL: "https://tickets.example.com/payments/callback",
		ReturnURL:   "https://tickets.example.com/payments/return?tx_ref=tkt-abc",
		Title:       "Event tickets",
	}
}

func TestClient_Initialize_Success(t *testing.T) {
	var got initializeRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/transaction/initialize", r.URL.Path)
		assert.Equal(t, "Bearer CHASECK_TEST-secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"message":"Hosted Link","status":"success","data":{"checkout_url":"https://checkout.chapa.co/checkout/payment/xyz"}}`)
	}, nil)

	res, err := client.Initialize(context.Background(), initRequest())
	require.NoError(t, err)

	assert.Equal(t, "https://checkout.chapa.co/checkout/payment/xyz", res.CheckoutURL)
	assert.Contains(t, string(res.Raw), "Hosted Link")
	assert.Equal(t, "2600.00", got.Amount)
	assert.Equal(t, "ETB", got.Currency)
	assert.Equal(t, "tkt-abc", got.TxRef)
	assert.Equal(t, "a@b.com", got.Email)
	require.NotNil(t, got.Customization)
	assert.Equal(t, "Event tickets", got.Customization.Title)
}

func TestClient_Initialize_RejectedIsNotRetried(t *testing.T) {
	var calls int32
	obs := &recordingObserver{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"message":{"email":["The email must be a valid email address."]},"status":"failed","data":null}`)
	}, obs)

	_, err := client.Initialize(context.Background(), initRequest())

	require.ErrorIs(t, err, domain.ErrGatewayRejected)
	assert.Contains(t, err.Error(), "valid email")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, 0, obs.retries)
	assert.Equal(t, []string{"initialize:rejected"}, obs.outcomes)
}

func TestClient_Initialize_ServerErrorRetriedWithSameReference(t *testing.T) {
	var calls int32
	refs := make(chan string, 5)
	obs := &recordingObserver{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body initializeRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		refs <- body.TxRef

		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			io.WriteString(w, `{"message":"upstream down","status":"failed"}`)
			return
		}
		io.WriteString(w, `{"status":"success","data":{"checkout_url":"https://checkout.example/1"}}`)
	}, obs)

	res, err := client.Initialize(context.Background(), initRequest())
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.example/1", res.CheckoutURL)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, 2, obs.retries)

	close(refs)
	for ref := range refs {
		assert.Equal(t, "tkt-abc", ref)
	}
}

func TestClient_Initialize_MissingCheckoutURL(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"message":"something odd","status":"failed","data":null}`)
	}, nil)

	_, err := client.Initialize(context.Background(), initRequest())
	require.ErrorIs(t, err, domain.ErrGatewayError)
	assert.Contains(t, err.Error(), "something odd")
}

func TestClient_Verify_StatusMapping(t *testing.T) {
	tests := []struct {
		remote string
		want   domain.RemoteStatus
	}{
		{"success", domain.RemoteStatusSuccess},
		{"failed", domain.RemoteStatusFailed},
		{"cancelled", domain.RemoteStatusFailed},
		{"pending", domain.RemoteStatusPending},
		{"reversed", domain.RemoteStatusUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.remote, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/v1/transaction/verify/tkt-abc", r.URL.Path)
				io.WriteString(w, `{"message":"Payment details","status":"success","data":{"status":"`+tt.remote+`","tx_ref":"tkt-abc","currency":"ETB","amount":"2600.00"}}`)
			}, nil)

			res, err := client.Verify(context.Background(), "tkt-abc")
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Status)
			assert.Equal(t, "ETB", res.Currency)
			assert.True(t, res.Amount.Equal(decimal.NewFromInt(2600)))
			assert.NotEmpty(t, res.Raw)
		})
	}
}

func TestClient_Verify_NullDataIsUnknown(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"message":"Payment details","status":"success","data":null}`)
	}, nil)

	res, err := client.Verify(context.Background(), "tkt-abc")
	require.NoError(t, err)
	assert.Equal(t, domain.RemoteStatusUnknown, res.Status)
}

func TestClient_Verify_TimeoutsExhaustAttempts(t *testing.T) {
	var calls int32
	obs := &recordingObserver{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}, obs)

	_, err := client.Verify(context.Background(), "tkt-abc")

	require.ErrorIs(t, err, domain.ErrGatewayUnavailable)
	assert.Equal(t, int32(5), atomic.LoadInt32(&calls))
	assert.Equal(t, 4, obs.retries)
}

func TestClient_Verify_NotFoundIsRejected(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"message":"Invalid transaction or Transaction not found","status":"failed","data":null}`)
	}, nil)

	_, err := client.Verify(context.Background(), "tkt-missing")
	require.ErrorIs(t, err, domain.ErrGatewayRejected)
	assert.Contains(t, err.Error(), "Transaction not found")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_Verify_ContextCancelStopsRetrying(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}, nil)
	client.retry.base = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := client.Verify(ctx, "tkt-abc")
	require.ErrorIs(t, err, domain.ErrGatewayError)
	assert.Contains(t, err.Error(), "retry aborted")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRetryPolicy_Schedule(t *testing.T) {
	p := retryPolicy{maxAttempts: 4, base: 500 * time.Millisecond, factor: 2}
	b := p.backOff(context.Background())
	b.Reset()

	var delays []time.Duration
	for {
		d := b.NextBackOff()
		if d == backoff.Stop {
			break
		}
		delays = append(delays, d)
	}
	assert.Equal(t, []time.Duration{500 * time.Millisecond, time.Second, 2 * time.Second}, delays)
}

func TestRetryPolicy_AtLeastOneAttempt(t *testing.T) {
	p := retryPolicy{maxAttempts: 0, base: time.Millisecond, factor: 2}
	assert.Equal(t, 1, p.attempts())

	b := p.backOff(context.Background())
	b.Reset()
	assert.Equal(t, backoff.Stop, b.NextBackOff())
}

func TestRetryPolicy_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := retryPolicy{maxAttempts: 5, base: time.Millisecond, factor: 2}.backOff(ctx)
	assert.Equal(t, backoff.Stop, b.NextBackOff())
}
