package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
)

// TransactionRepository keeps transactions in process memory. It is meant for
// local runs and tests; it gives the same compare-and-set guarantees as the
// shared stores but only within one process.
type TransactionRepository struct {
	mu  sync.RWMutex
	txs map[string]*domain.Transaction
	now func() time.Time
}

func NewTransactionRepository() *TransactionRepository {
	return &TransactionRepository{
		txs: make(map[string]*domain.Transaction),
		now: time.Now,
	}
}

func (r *TransactionRepository) Create(_ context.Context, tx *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.txs[tx.Reference]; ok {
		return domain.ErrDuplicateReference
	}
	r.txs[tx.Reference] = clone(tx)
	return nil
}

func (r *TransactionRepository) Get(_ context.Context, reference string) (*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tx, ok := r.txs[reference]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	return clone(tx), nil
}

func (r *TransactionRepository) Transition(_ context.Context, reference string, expected, next domain.TransactionStatus, raw json.RawMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, ok := r.txs[reference]
	if !ok {
		return domain.ErrTransactionNotFound
	}
	if tx.Status != expected {
		return domain.ErrConflict
	}

	tx.Status = next
	tx.UpdatedAt = r.now()
	if raw != nil {
		tx.LastGatewayResponse = append(json.RawMessage(nil), raw...)
	}
	return nil
}

func (r *TransactionRepository) FindExpired(_ context.Context, before time.Time, limit int) ([]*domain.Transaction, error) {
	open := domain.OpenStatuses()
	return r.find(limit, func(tx *domain.Transaction) bool {
		return containsStatus(open, tx.Status) && tx.ExpiresAt.Before(before)
	}), nil
}

func (r *TransactionRepository) FindStuck(_ context.Context, updatedBefore time.Time, limit int) ([]*domain.Transaction, error) {
	return r.find(limit, func(tx *domain.Transaction) bool {
		return tx.Status == domain.StatusVerifying && tx.UpdatedAt.Before(updatedBefore)
	}), nil
}

func (r *TransactionRepository) Ping(context.Context) error {
	return nil
}

func (r *TransactionRepository) find(limit int, match func(*domain.Transaction) bool) []*domain.Transaction {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Transaction
	for _, tx := range r.txs {
		if match(tx) {
			out = append(out, clone(tx))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ExpiresAt.Before(out[j].ExpiresAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func containsStatus(list []domain.TransactionStatus, s domain.TransactionStatus) bool {
	for _, candidate := range list {
		if candidate == s {
			return true
		}
	}
	return false
}

func clone(tx *domain.Transaction) *domain.Transaction {
	c := *tx
	if tx.LastGatewayResponse != nil {
		c.LastGatewayResponse = append(json.RawMessage(nil), tx.LastGatewayResponse...)
	}
	return &c
}
