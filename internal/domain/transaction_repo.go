package domain

import (
	"context"
	"encoding/json"
	"time"
)

type TransactionRepository interface {
	Create(ctx context.Context, tx *Transaction) error
	Get(ctx context.Context, reference string) (*Transaction, error)
	// Transition is the only way a stored status changes. It writes next only
	// while the stored status still equals expected and returns ErrConflict
	// otherwise. A nil raw keeps the previous gateway response.
	Transition(ctx context.Context, reference string, expected, next TransactionStatus, raw json.RawMessage) error
	FindExpired(ctx context.Context, before time.Time, limit int) ([]*Transaction, error)
	FindStuck(ctx context.Context, updatedBefore time.Time, limit int) ([]*Transaction, error)
	Ping(ctx context.Context) error
}
