package background

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
	paymentdto "github.com/LavaJover/shvark-checkout-service/internal/usecase/dto/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPaymentUsecase struct {
	mock.Mock
}

func (m *MockPaymentUsecase) Initiate(ctx context.Context, input *paymentdto.InitiateInput) (*paymentdto.InitiateOutput, error) {
	args := m.Called(ctx, input)
	if out := args.Get(0); out != nil {
		return out.(*paymentdto.InitiateOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPaymentUsecase) Verify(ctx context.Context, reference string, trigger domain.Trigger) (*domain.Transaction, error) {
	args := m.Called(ctx, reference, trigger)
	if tx := args.Get(0); tx != nil {
		return tx.(*domain.Transaction), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPaymentUsecase) ExpireStale(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockPaymentUsecase) RecoverStuck(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type chanSubscriber struct {
	ch chan domain.Message
}

func (s *chanSubscriber) Subscribe(context.Context, string, string) (<-chan domain.Message, error) {
	return s.ch, nil
}

type countingProber struct {
	calls chan struct{}
}

func (p *countingProber) Probe(context.Context) error {
	select {
	case p.calls <- struct{}{}:
	default:
	}
	return nil
}

func TestRunSweepOnce(t *testing.T) {
	uc := new(MockPaymentUsecase)
	uc.On("RecoverStuck", mock.Anything).Return(1, nil).Once()
	uc.On("ExpireStale", mock.Anything).Return(3, nil).Once()

	bt := NewBackgroundTasks(uc, nil, nil, Config{})
	require.NoError(t, bt.RunSweepOnce(context.Background()))
	uc.AssertExpectations(t)
}

func TestRunSweepOnce_JoinsErrors(t *testing.T) {
	uc := new(MockPaymentUsecase)
	uc.On("RecoverStuck", mock.Anything).Return(0, errors.New("store down"))
	uc.On("ExpireStale", mock.Anything).Return(0, errors.New("gateway down"))

	bt := NewBackgroundTasks(uc, nil, nil, Config{})
	err := bt.RunSweepOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store down")
	assert.Contains(t, err.Error(), "gateway down")
}

func TestHandleVerifyRequest(t *testing.T) {
	uc := new(MockPaymentUsecase)
	uc.On("Verify", mock.Anything, "tkt-1", domain.TriggerManualPoll).
		Return(&domain.Transaction{Reference: "tkt-1", Status: domain.StatusSuccess}, nil).Twice()

	bt := NewBackgroundTasks(uc, nil, nil, Config{})
	ctx := context.Background()

	bt.HandleVerifyRequest(ctx, domain.Message{Value: []byte(`{"tx_ref":"tkt-1"}`)})
	bt.HandleVerifyRequest(ctx, domain.Message{Key: []byte("tkt-1"), Value: []byte(`{}`)})
	bt.HandleVerifyRequest(ctx, domain.Message{Value: []byte(`garbage`)})
	bt.HandleVerifyRequest(ctx, domain.Message{Value: []byte(`{"tx_ref":"../etc"}`)})

	uc.AssertExpectations(t)
}

func TestStartAll_ConsumesAndStops(t *testing.T) {
	uc := new(MockPaymentUsecase)
	done := make(chan struct{})
	uc.On("Verify", mock.Anything, "tkt-9", domain.TriggerManualPoll).
		Run(func(mock.Arguments) { close(done) }).
		Return(&domain.Transaction{Reference: "tkt-9", Status: domain.StatusFailed}, nil).Once()

	sub := &chanSubscriber{ch: make(chan domain.Message, 1)}
	prober := &countingProber{calls: make(chan struct{}, 1)}
	bt := NewBackgroundTasks(uc, sub, prober, Config{
		SweepInterval:       time.Hour,
		VerifyRequestsTopic: "payment-verify-requests",
		GroupID:             "checkout-service",
	})

	ctx, cancel := context.WithCancel(context.Background())
	bt.StartAll(ctx)

	sub.ch <- domain.Message{Value: []byte(`{"tx_ref":"tkt-9"}`)}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("verify request was not consumed")
	}
	select {
	case <-prober.calls:
	case <-time.After(time.Second):
		t.Fatal("health was not probed")
	}

	cancel()
	close(sub.ch)
	bt.Wait()
	uc.AssertExpectations(t)
}
