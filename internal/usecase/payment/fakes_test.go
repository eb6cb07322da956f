package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/memory"
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

var baseTime = time.Date(2026, 4, 2, 12, 0, 0, 0, time.UTC)

type fakeGateway struct {
	initCalls   atomic.Int32
	verifyCalls atomic.Int32

	initFn   func(req domain.InitializeRequest) (*domain.InitializeResult, error)
	verifyFn func(ctx context.Context, ref string) (*domain.VerifyResult, error)

	mu       sync.Mutex
	requests []domain.InitializeRequest
}

func (g *fakeGateway) Initialize(_ context.Context, req domain.InitializeRequest) (*domain.InitializeResult, error) {
	g.initCalls.Add(1)
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()
	if g.initFn != nil {
		return g.initFn(req)
	}
	return &domain.InitializeResult{
		CheckoutURL: "https://checkout.example/" + req.Reference,
		Raw:         json.RawMessage(`{"status":"success"}`),
	}, nil
}

func (g *fakeGateway) Verify(ctx context.Context, ref string) (*domain.VerifyResult, error) {
	g.verifyCalls.Add(1)
	if g.verifyFn != nil {
		return g.verifyFn(ctx, ref)
	}
	return nil, fmt.Errorf("%w: no verify behaviour", domain.ErrGatewayError)
}

func remote(status domain.RemoteStatus, amount int64, currency string) *domain.VerifyResult {
	return &domain.VerifyResult{
		Status:   status,
		Amount:   decimal.NewFromInt(amount),
		Currency: currency,
		Raw:      json.RawMessage(fmt.Sprintf(`{"data":{"status":%q}}`, status)),
	}
}

type sequentialRefs struct {
	n atomic.Int32
}

func (s *sequentialRefs) NewReference() string {
	return fmt.Sprintf("tkt-%d", s.n.Add(1))
}

type MockHook struct {
	mock.Mock
}

func (m *MockHook) OnPaymentSuccess(ctx context.Context, tx *domain.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

type recordingAttempts struct {
	mu       sync.Mutex
	attempts []domain.VerificationAttempt
}

func (r *recordingAttempts) LogAttempt(_ context.Context, a domain.VerificationAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, a)
	return nil
}

func (r *recordingAttempts) all() []domain.VerificationAttempt {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.VerificationAttempt(nil), r.attempts...)
}

type fixture struct {
	uc       *DefaultPaymentUsecase
	repo     *memory.TransactionRepository
	gateway  *fakeGateway
	hook     *MockHook
	attempts *recordingAttempts
	metrics  *metrics.PaymentMetrics
}

func testConfig() Config {
	return Config{
		TTL:                  30 * time.Minute,
		VerifyTimeout:        2 * time.Second,
		ConflictWait:         2 * time.Second,
		ConflictPollInterval: 5 * time.Millisecond,
		CallbackURL:          "https://tickets.example/payments/callback",
		ReturnURL:            "https://tickets.example/payments/return",
		Title:                "Event tickets",
		SweepBatchSize:       10,
		VerifyBeforeExpire:   true,
		StuckAfter:           5 * time.Minute,
	}
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	f := &fixture{
		repo:     memory.NewTransactionRepository(),
		gateway:  &fakeGateway{},
		hook:     new(MockHook),
		attempts: &recordingAttempts{},
		metrics:  metrics.NewPaymentMetrics(prometheus.NewRegistry()),
	}
	f.uc = NewDefaultPaymentUsecase(f.repo, f.gateway, &sequentialRefs{}, f.hook, f.attempts, f.metrics, cfg)
	f.uc.now = func() time.Time { return baseTime }
	return f
}

// seed stores a transaction directly, bypassing Initiate.
func (f *fixture) seed(t *testing.T, ref string, status domain.TransactionStatus) *domain.Transaction {
	t.Helper()
	tx := &domain.Transaction{
		Reference:   ref,
		Amount:      decimal.NewFromInt(2600),
		Currency:    "ETB",
		Payer:       domain.Payer{Email: "a@b.com", FirstName: "A", LastName: "B"},
		Status:      status,
		CheckoutURL: "https://checkout.example/" + ref,
		CreatedAt:   baseTime,
		UpdatedAt:   baseTime,
		ExpiresAt:   baseTime.Add(30 * time.Minute),
	}
	if err := f.repo.Create(context.Background(), tx); err != nil {
		t.Fatalf("seed %s: %v", ref, err)
	}
	return tx
}
