package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const (
	keyPrefix    = "checkout:tx:"
	expiryIndex  = "checkout:tx:index:expiry"
	verifyingIdx = "checkout:tx:index:verifying"
)

// createScript stores the hash only if the key is absent and indexes the
// reference by expiry.
// ARGV: expires_at ms, reference, field/value pairs...
const createScript = `
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
redis.call('HSET', KEYS[1], unpack(ARGV, 3))
redis.call('ZADD', KEYS[2], ARGV[1], ARGV[2])
return 1
`

// transitionScript is the compare-and-set on status.
// ARGV: expected, next, updated_at ms, raw response or "", reference, open flag.
// Returns -1 when the key is missing, 0 on status mismatch, 1 on write.
const transitionScript = `
local current = redis.call('HGET', KEYS[1], 'status')
if not current then
  return -1
end
if current ~= ARGV[1] then
  return 0
end
redis.call('HSET', KEYS[1], 'status', ARGV[2], 'updated_at', ARGV[3])
if ARGV[4] ~= '' then
  redis.call('HSET', KEYS[1], 'last_gateway_response', ARGV[4])
end
if ARGV[2] == 'verifying' then
  redis.call('ZADD', KEYS[3], ARGV[3], ARGV[5])
else
  redis.call('ZREM', KEYS[3], ARGV[5])
end
if ARGV[6] == '1' then
  redis.call('ZADD', KEYS[2], redis.call('HGET', KEYS[1], 'expires_at'), ARGV[5])
else
  redis.call('ZREM', KEYS[2], ARGV[5])
end
return 1
`

type TransactionRepository struct {
	client redis.Cmdable
	now    func() time.Time
}

func NewTransactionRepository(client redis.Cmdable) *TransactionRepository {
	return &TransactionRepository{client: client, now: time.Now}
}

func txKey(reference string) string {
	return keyPrefix + reference
}

func (r *TransactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	res, err := r.client.Eval(ctx, createScript, []string{txKey(tx.Reference), expiryIndex}, createArgs(tx)...).Int64()
	if err != nil {
		return fmt.Errorf("redis create %s: %w", tx.Reference, err)
	}
	if res == 0 {
		return domain.ErrDuplicateReference
	}
	return nil
}

func (r *TransactionRepository) Get(ctx context.Context, reference string) (*domain.Transaction, error) {
	fields, err := r.client.HGetAll(ctx, txKey(reference)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", reference, err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrTransactionNotFound
	}
	return fromHash(fields)
}

func (r *TransactionRepository) Transition(ctx context.Context, reference string, expected, next domain.TransactionStatus, raw json.RawMessage) error {
	open := "0"
	for _, s := range domain.OpenStatuses() {
		if s == next {
			open = "1"
		}
	}

	res, err := r.client.Eval(ctx, transitionScript,
		[]string{txKey(reference), expiryIndex, verifyingIdx},
		string(expected),
		string(next),
		formatMillis(r.now()),
		string(raw),
		reference,
		open,
	).Int64()
	if err != nil {
		return fmt.Errorf("redis transition %s: %w", reference, err)
	}

	switch res {
	case 1:
		return nil
	case 0:
		return domain.ErrConflict
	default:
		return domain.ErrTransactionNotFound
	}
}

func (r *TransactionRepository) FindExpired(ctx context.Context, before time.Time, limit int) ([]*domain.Transaction, error) {
	txs, err := r.scanIndex(ctx, expiryIndex, before, limit)
	if err != nil {
		return nil, err
	}

	open := domain.OpenStatuses()
	out := txs[:0]
	for _, tx := range txs {
		for _, s := range open {
			if tx.Status == s {
				out = append(out, tx)
				break
			}
		}
	}
	return out, nil
}

func (r *TransactionRepository) FindStuck(ctx context.Context, updatedBefore time.Time, limit int) ([]*domain.Transaction, error) {
	txs, err := r.scanIndex(ctx, verifyingIdx, updatedBefore, limit)
	if err != nil {
		return nil, err
	}

	out := txs[:0]
	for _, tx := range txs {
		if tx.Status == domain.StatusVerifying {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (r *TransactionRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// scanIndex loads the transactions whose score in index is strictly below until.
func (r *TransactionRepository) scanIndex(ctx context.Context, index string, until time.Time, limit int) ([]*domain.Transaction, error) {
	rangeBy := &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + formatMillis(until),
	}
	if limit > 0 {
		rangeBy.Count = int64(limit)
	}

	refs, err := r.client.ZRangeByScore(ctx, index, rangeBy).Result()
	if err != nil {
		return nil, fmt.Errorf("redis scan %s: %w", index, err)
	}

	txs := make([]*domain.Transaction, 0, len(refs))
	for _, ref := range refs {
		tx, err := r.Get(ctx, ref)
		if errors.Is(err, domain.ErrTransactionNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func createArgs(tx *domain.Transaction) []interface{} {
	args := []interface{}{
		formatMillis(tx.ExpiresAt),
		tx.Reference,
		"reference", tx.Reference,
		"amount", tx.Amount.String(),
		"currency", tx.Currency,
		"payer_email", tx.Payer.Email,
		"payer_first_name", tx.Payer.FirstName,
		"payer_last_name", tx.Payer.LastName,
		"payer_phone", tx.Payer.Phone,
		"status", string(tx.Status),
		"checkout_url", tx.CheckoutURL,
		"created_at", formatMillis(tx.CreatedAt),
		"updated_at", formatMillis(tx.UpdatedAt),
		"expires_at", formatMillis(tx.ExpiresAt),
	}
	if len(tx.LastGatewayResponse) > 0 {
		args = append(args, "last_gateway_response", string(tx.LastGatewayResponse))
	}
	return args
}

func fromHash(fields map[string]string) (*domain.Transaction, error) {
	amount, err := decimal.NewFromString(fields["amount"])
	if err != nil {
		return nil, fmt.Errorf("redis: bad amount for %s: %w", fields["reference"], err)
	}

	tx := &domain.Transaction{
		Reference: fields["reference"],
		Amount:    amount,
		Currency:  fields["currency"],
		Payer: domain.Payer{
			Email:     fields["payer_email"],
			FirstName: fields["payer_first_name"],
			LastName:  fields["payer_last_name"],
			Phone:     fields["payer_phone"],
		},
		Status:      domain.TransactionStatus(fields["status"]),
		CheckoutURL: fields["checkout_url"],
		CreatedAt:   parseMillis(fields["created_at"]),
		UpdatedAt:   parseMillis(fields["updated_at"]),
		ExpiresAt:   parseMillis(fields["expires_at"]),
	}
	if raw := fields["last_gateway_response"]; raw != "" {
		tx.LastGatewayResponse = json.RawMessage(raw)
	}
	return tx, nil
}

func formatMillis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func parseMillis(s string) time.Time {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil || ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
