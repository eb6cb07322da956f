package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/postgres/mappers"
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/postgres/models"
	"gorm.io/gorm"
)

type DefaultTransactionRepository struct {
	DB *gorm.DB
}

func NewDefaultTransactionRepository(db *gorm.DB) *DefaultTransactionRepository {
	return &DefaultTransactionRepository{DB: db}
}

func (r *DefaultTransactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	model := mappers.ToGORMTransaction(tx)
	if err := r.DB.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrDuplicateReference
		}
		return err
	}
	return nil
}

func (r *DefaultTransactionRepository) Get(ctx context.Context, reference string) (*domain.Transaction, error) {
	var model models.TransactionModel
	if err := r.DB.WithContext(ctx).First(&model, "reference = ?", reference).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, err
	}
	return mappers.ToDomainTransaction(&model)
}

// Transition is a single conditional UPDATE; the status predicate in the
// WHERE clause makes it a compare-and-set across every instance sharing the
// database.
func (r *DefaultTransactionRepository) Transition(ctx context.Context, reference string, expected, next domain.TransactionStatus, raw json.RawMessage) error {
	updates := map[string]interface{}{
		"status":     next,
		"updated_at": time.Now(),
	}
	if raw != nil {
		updates["last_gateway_response"] = []byte(raw)
	}

	result := r.DB.WithContext(ctx).
		Model(&models.TransactionModel{}).
		Where("reference = ? AND status = ?", reference, expected).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 1 {
		return nil
	}

	var count int64
	if err := r.DB.WithContext(ctx).
		Model(&models.TransactionModel{}).
		Where("reference = ?", reference).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return domain.ErrTransactionNotFound
	}
	return domain.ErrConflict
}

func (r *DefaultTransactionRepository) FindExpired(ctx context.Context, before time.Time, limit int) ([]*domain.Transaction, error) {
	var txModels []models.TransactionModel
	if err := r.DB.WithContext(ctx).
		Where("status IN ?", domain.OpenStatuses()).
		Where("expires_at < ?", before).
		Order("expires_at").
		Limit(normalizeLimit(limit)).
		Find(&txModels).Error; err != nil {
		return nil, err
	}
	return toDomainTransactions(txModels)
}

func (r *DefaultTransactionRepository) FindStuck(ctx context.Context, updatedBefore time.Time, limit int) ([]*domain.Transaction, error) {
	var txModels []models.TransactionModel
	if err := r.DB.WithContext(ctx).
		Where("status = ?", domain.StatusVerifying).
		Where("updated_at < ?", updatedBefore).
		Order("updated_at").
		Limit(normalizeLimit(limit)).
		Find(&txModels).Error; err != nil {
		return nil, err
	}
	return toDomainTransactions(txModels)
}

func (r *DefaultTransactionRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func toDomainTransactions(txModels []models.TransactionModel) ([]*domain.Transaction, error) {
	txs := make([]*domain.Transaction, 0, len(txModels))
	for i := range txModels {
		tx, err := mappers.ToDomainTransaction(&txModels[i])
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// gorm treats -1 as "no limit"
func normalizeLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}
