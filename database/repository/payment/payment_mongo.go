package paymentRepo

import (
	"context"
	"fmt"
	"time"

	"tutorhive/database"
	"tutorhive/models"
	"tutorhive/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoPaymentRepo implements PaymentRepository using MongoDB.
type MongoPaymentRepo struct {
	coll *mongo.Collection
}

// NewMongoPaymentRepo constructs a new instance of MongoPaymentRepo.
func NewMongoPaymentRepo() PaymentRepository {
	repo := &MongoPaymentRepo{coll: database.DB().Collection("payments")}
	if err := repo.ensureIndexes(); err != nil {
		utils.GetLogger().Sugar().Errorf("failed to create payment indexes: %v", err)
	}
	return repo
}

// ensureIndexes creates the unique tx_ref index payments rely on.
func (repo *MongoPaymentRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "tx_ref", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "booking_id", Value: 1}}},
	}
	if _, err := repo.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create payment indexes: %w", err)
	}
	return nil
}

func (repo *MongoPaymentRepo) Create(ctx context.Context, payment *models.Payment) error {
	if _, err := repo.coll.InsertOne(ctx, payment); err != nil {
		return fmt.Errorf("insert payment failed: %w", err)
	}
	return nil
}

func (repo *MongoPaymentRepo) GetByTxRef(ctx context.Context, txRef string) (*models.Payment, error) {
	var p models.Payment
	if err := repo.coll.FindOne(ctx, bson.M{"tx_ref": txRef}).Decode(&p); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error fetching payment %s: %w", txRef, err)
	}
	return &p, nil
}

func (repo *MongoPaymentRepo) ListByBooking(ctx context.Context, bookingID string) ([]models.Payment, error) {
	cursor, err := repo.coll.Find(ctx, bson.M{"booking_id": bookingID})
	if err != nil {
		return nil, fmt.Errorf("error listing payments for booking %s: %w", bookingID, err)
	}
	defer cursor.Close(ctx)

	var out []models.Payment
	for cursor.Next(ctx) {
		var p models.Payment
		if err := cursor.Decode(&p); err != nil {
			return nil, fmt.Errorf("error decoding payment: %w", err)
		}
		out = append(out, p)
	}
	return out, cursor.Err()
}

func (repo *MongoPaymentRepo) Settle(ctx context.Context, txRef string, status models.PaymentStatus, raw map[string]any) (bool, error) {
	res, err := repo.coll.UpdateOne(ctx,
		bson.M{"tx_ref": txRef, "status": models.PaymentPending},
		bson.M{"$set": bson.M{"status": status, "raw_payload": raw, "updated_at": time.Now()}},
	)
	if err != nil {
		return false, fmt.Errorf("error settling payment %s: %w", txRef, err)
	}
	return res.MatchedCount == 0, nil
}
