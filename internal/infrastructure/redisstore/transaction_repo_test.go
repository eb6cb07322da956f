package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 4, 2, 12, 0, 0, 0, time.UTC)

func setupTestRepo() (*TransactionRepository, redismock.ClientMock) {
	db, mock := redismock.NewClientMock()
	repo := NewTransactionRepository(db)
	repo.now = func() time.Time { return fixedNow }
	return repo, mock
}

func sampleTx() *domain.Transaction {
	return &domain.Transaction{
		Reference:   "tkt-1",
		Amount:      decimal.NewFromInt(2600),
		Currency:    "ETB",
		Payer:       domain.Payer{Email: "a@b.com", FirstName: "A", LastName: "B"},
		Status:      domain.StatusAwaitingPayment,
		CheckoutURL: "https://checkout.example/1",
		CreatedAt:   fixedNow,
		UpdatedAt:   fixedNow,
		ExpiresAt:   fixedNow.Add(30 * time.Minute),
	}
}

func sampleHash() map[string]string {
	return map[string]string{
		"reference":        "tkt-1",
		"amount":           "2600",
		"currency":         "ETB",
		"payer_email":      "a@b.com",
		"payer_first_name": "A",
		"payer_last_name":  "B",
		"payer_phone":      "",
		"status":           "awaiting_payment",
		"checkout_url":     "https://checkout.example/1",
		"created_at":       formatMillis(fixedNow),
		"updated_at":       formatMillis(fixedNow),
		"expires_at":       formatMillis(fixedNow.Add(30 * time.Minute)),
	}
}

func TestTransactionRepository_Create(t *testing.T) {
	repo, mock := setupTestRepo()
	defer mock.ClearExpect()
	tx := sampleTx()

	mock.ExpectEval(createScript, []string{"checkout:tx:tkt-1", expiryIndex}, createArgs(tx)...).SetVal(int64(1))

	require.NoError(t, repo.Create(context.Background(), tx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepository_Create_Duplicate(t *testing.T) {
	repo, mock := setupTestRepo()
	defer mock.ClearExpect()
	tx := sampleTx()

	mock.ExpectEval(createScript, []string{"checkout:tx:tkt-1", expiryIndex}, createArgs(tx)...).SetVal(int64(0))

	assert.ErrorIs(t, repo.Create(context.Background(), tx), domain.ErrDuplicateReference)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepository_Get(t *testing.T) {
	repo, mock := setupTestRepo()
	defer mock.ClearExpect()

	hash := sampleHash()
	hash["last_gateway_response"] = `{"status":"success"}`
	mock.ExpectHGetAll("checkout:tx:tkt-1").SetVal(hash)

	tx, err := repo.Get(context.Background(), "tkt-1")
	require.NoError(t, err)

	assert.Equal(t, "tkt-1", tx.Reference)
	assert.True(t, tx.Amount.Equal(decimal.NewFromInt(2600)))
	assert.Equal(t, domain.StatusAwaitingPayment, tx.Status)
	assert.Equal(t, fixedNow.Add(30*time.Minute), tx.ExpiresAt)
	assert.JSONEq(t, `{"status":"success"}`, string(tx.LastGatewayResponse))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepository_Get_NotFound(t *testing.T) {
	repo, mock := setupTestRepo()
	defer mock.ClearExpect()

	mock.ExpectHGetAll("checkout:tx:missing").SetVal(map[string]string{})

	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
}

func TestTransactionRepository_Transition(t *testing.T) {
	keys := []string{"checkout:tx:tkt-1", expiryIndex, verifyingIdx}
	now := formatMillis(fixedNow)

	tests := []struct {
		name     string
		expected domain.TransactionStatus
		next     domain.TransactionStatus
		raw      json.RawMessage
		open     string
		result   int64
		wantErr  error
	}{
		{"claim", domain.StatusAwaitingPayment, domain.StatusVerifying, nil, "0", 1, nil},
		{"settle", domain.StatusVerifying, domain.StatusSuccess, json.RawMessage(`{"status":"success"}`), "0", 1, nil},
		{"verification failed stays indexed", domain.StatusVerifying, domain.StatusVerificationFailed, json.RawMessage(`{"status":"failed"}`), "1", 1, nil},
		{"retry from verification failed", domain.StatusVerificationFailed, domain.StatusVerifying, nil, "0", 1, nil},
		{"back to awaiting", domain.StatusVerifying, domain.StatusAwaitingPayment, json.RawMessage(`{"data":{"status":"pending"}}`), "1", 1, nil},
		{"conflict", domain.StatusAwaitingPayment, domain.StatusVerifying, nil, "0", 0, domain.ErrConflict},
		{"missing", domain.StatusAwaitingPayment, domain.StatusVerifying, nil, "0", -1, domain.ErrTransactionNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := setupTestRepo()
			defer mock.ClearExpect()

			mock.ExpectEval(transitionScript, keys,
				string(tt.expected), string(tt.next), now, string(tt.raw), "tkt-1", tt.open,
			).SetVal(tt.result)

			err := repo.Transition(context.Background(), "tkt-1", tt.expected, tt.next, tt.raw)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestTransactionRepository_Transition_RedisError(t *testing.T) {
	repo, mock := setupTestRepo()
	defer mock.ClearExpect()

	mock.ExpectEval(transitionScript, []string{"checkout:tx:tkt-1", expiryIndex, verifyingIdx},
		"awaiting_payment", "verifying", formatMillis(fixedNow), "", "tkt-1", "0",
	).SetErr(errors.New("connection reset"))

	err := repo.Transition(context.Background(), "tkt-1", domain.StatusAwaitingPayment, domain.StatusVerifying, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.NotErrorIs(t, err, domain.ErrConflict)
}

func TestTransactionRepository_FindExpired(t *testing.T) {
	repo, mock := setupTestRepo()
	defer mock.ClearExpect()

	mock.ExpectZRangeByScore(expiryIndex, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   "(" + formatMillis(fixedNow),
		Count: 10,
	}).SetVal([]string{"tkt-1", "tkt-gone", "tkt-2", "tkt-3"})

	mock.ExpectHGetAll("checkout:tx:tkt-1").SetVal(sampleHash())
	mock.ExpectHGetAll("checkout:tx:tkt-gone").SetVal(map[string]string{})
	settled := sampleHash()
	settled["reference"] = "tkt-2"
	settled["status"] = "success"
	mock.ExpectHGetAll("checkout:tx:tkt-2").SetVal(settled)
	review := sampleHash()
	review["reference"] = "tkt-3"
	review["status"] = "verification_failed"
	mock.ExpectHGetAll("checkout:tx:tkt-3").SetVal(review)

	txs, err := repo.FindExpired(context.Background(), fixedNow, 10)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "tkt-1", txs[0].Reference)
	assert.Equal(t, "tkt-3", txs[1].Reference)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepository_FindStuck(t *testing.T) {
	repo, mock := setupTestRepo()
	defer mock.ClearExpect()

	cutoff := fixedNow.Add(-2 * time.Minute)
	mock.ExpectZRangeByScore(verifyingIdx, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   "(" + formatMillis(cutoff),
		Count: 5,
	}).SetVal([]string{"tkt-1"})

	hash := sampleHash()
	hash["status"] = "verifying"
	mock.ExpectHGetAll("checkout:tx:tkt-1").SetVal(hash)

	txs, err := repo.FindStuck(context.Background(), cutoff, 5)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, domain.StatusVerifying, txs[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepository_Ping(t *testing.T) {
	repo, mock := setupTestRepo()
	defer mock.ClearExpect()

	mock.ExpectPing().SetVal("PONG")
	assert.NoError(t, repo.Ping(context.Background()))
}
