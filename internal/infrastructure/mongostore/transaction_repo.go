package mongostore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CollectionName = "transactions"

type transactionDocument struct {
	Reference           string    `bson:"reference"`
	Amount              string    `bson:"amount"`
	Currency            string    `bson:"currency"`
	PayerEmail          string    `bson:"payer_email"`
	PayerFirstName      string    `bson:"payer_first_name"`
	PayerLastName       string    `bson:"payer_last_name"`
	PayerPhone          string    `bson:"payer_phone,omitempty"`
	Status              string    `bson:"status"`
	CheckoutURL         string    `bson:"checkout_url"`
	LastGatewayResponse string    `bson:"last_gateway_response,omitempty"`
	CreatedAt           time.Time `bson:"created_at"`
	UpdatedAt           time.Time `bson:"updated_at"`
	ExpiresAt           time.Time `bson:"expires_at"`
}

type TransactionRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewTransactionRepository(coll *mongo.Collection) *TransactionRepository {
	return &TransactionRepository{coll: coll, now: time.Now}
}

// EnsureIndexes creates the unique reference index the compare-and-set relies
// on, plus the lookup indexes for the sweeps.
func (r *TransactionRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "reference", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "expires_at", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "updated_at", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create transaction indexes: %w", err)
	}
	return nil
}

func (r *TransactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	if _, err := r.coll.InsertOne(ctx, toDocument(tx)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateReference
		}
		return fmt.Errorf("mongo insert %s: %w", tx.Reference, err)
	}
	return nil
}

func (r *TransactionRepository) Get(ctx context.Context, reference string) (*domain.Transaction, error) {
	var doc transactionDocument
	err := r.coll.FindOne(ctx, bson.M{"reference": reference}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongo find %s: %w", reference, err)
	}
	return fromDocument(&doc)
}

func (r *TransactionRepository) Transition(ctx context.Context, reference string, expected, next domain.TransactionStatus, raw json.RawMessage) error {
	set := bson.M{
		"status":     string(next),
		"updated_at": r.now().UTC(),
	}
	if raw != nil {
		set["last_gateway_response"] = string(raw)
	}

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"reference": reference, "status": string(expected)},
		bson.M{"$set": set},
	)
	if err != nil {
		return fmt.Errorf("mongo transition %s: %w", reference, err)
	}
	if res.MatchedCount == 1 {
		return nil
	}

	n, err := r.coll.CountDocuments(ctx, bson.M{"reference": reference})
	if err != nil {
		return fmt.Errorf("mongo count %s: %w", reference, err)
	}
	if n == 0 {
		return domain.ErrTransactionNotFound
	}
	return domain.ErrConflict
}

func (r *TransactionRepository) FindExpired(ctx context.Context, before time.Time, limit int) ([]*domain.Transaction, error) {
	open := make([]string, 0, 2)
	for _, s := range domain.OpenStatuses() {
		open = append(open, string(s))
	}
	filter := bson.M{
		"status":     bson.M{"$in": open},
		"expires_at": bson.M{"$lt": before.UTC()},
	}
	return r.find(ctx, filter, "expires_at", limit)
}

func (r *TransactionRepository) FindStuck(ctx context.Context, updatedBefore time.Time, limit int) ([]*domain.Transaction, error) {
	filter := bson.M{
		"status":     string(domain.StatusVerifying),
		"updated_at": bson.M{"$lt": updatedBefore.UTC()},
	}
	return r.find(ctx, filter, "updated_at", limit)
}

func (r *TransactionRepository) Ping(ctx context.Context) error {
	return r.coll.Database().Client().Ping(ctx, nil)
}

func (r *TransactionRepository) find(ctx context.Context, filter bson.M, sortKey string, limit int) ([]*domain.Transaction, error) {
	opts := options.Find().SetSort(bson.D{{Key: sortKey, Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo find: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []transactionDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo decode: %w", err)
	}

	txs := make([]*domain.Transaction, 0, len(docs))
	for i := range docs {
		tx, err := fromDocument(&docs[i])
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func toDocument(tx *domain.Transaction) *transactionDocument {
	return &transactionDocument{
		Reference:           tx.Reference,
		Amount:              tx.Amount.String(),
		Currency:            tx.Currency,
		PayerEmail:          tx.Payer.Email,
		PayerFirstName:      tx.Payer.FirstName,
		PayerLastName:       tx.Payer.LastName,
		PayerPhone:          tx.Payer.Phone,
		Status:              string(tx.Status),
		CheckoutURL:         tx.CheckoutURL,
		LastGatewayResponse: string(tx.LastGatewayResponse),
		CreatedAt:           tx.CreatedAt.UTC(),
		UpdatedAt:           tx.UpdatedAt.UTC(),
		ExpiresAt:           tx.ExpiresAt.UTC(),
	}
}

func fromDocument(doc *transactionDocument) (*domain.Transaction, error) {
	amount, err := decimal.NewFromString(doc.Amount)
	if err != nil {
		return nil, fmt.Errorf("mongo: bad amount for %s: %w", doc.Reference, err)
	}

	tx := &domain.Transaction{
		Reference: doc.Reference,
		Amount:    amount,
		Currency:  doc.Currency,
		Payer: domain.Payer{
			Email:     doc.PayerEmail,
			FirstName: doc.PayerFirstName,
			LastName:  doc.PayerLastName,
			Phone:     doc.PayerPhone,
		},
		Status:      domain.TransactionStatus(doc.Status),
		CheckoutURL: doc.CheckoutURL,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
		ExpiresAt:   doc.ExpiresAt,
	}
	if doc.LastGatewayResponse != "" {
		tx.LastGatewayResponse = json.RawMessage(doc.LastGatewayResponse)
	}
	return tx, nil
}
