package bookingRepo

import (
	"context"
	"fmt"
	"time"

	"tutorhive/database"
	"tutorhive/models"
	"tutorhive/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoBookingRepo implements BookingRepository using MongoDB.
type MongoBookingRepo struct {
	bookingColl *mongo.Collection
	claimColl   *mongo.Collection
}

// NewMongoBookingRepo constructs a new instance of MongoBookingRepo.
func NewMongoBookingRepo() BookingRepository {
	db := database.DB()
	repo := &MongoBookingRepo{
		bookingColl: db.Collection("bookings"),
		claimColl:   db.Collection("slot_claims"),
	}
	if err := repo.ensureIndexes(); err != nil {
		utils.GetLogger().Sugar().Errorf("failed to create booking indexes: %v", err)
	}
	return repo
}

func (repo *MongoBookingRepo) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	var b models.Booking
	if err := repo.bookingColl.FindOne(ctx, bson.M{"id": id}).Decode(&b); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error fetching booking %s: %w", id, err)
	}
	return &b, nil
}

func (repo *MongoBookingRepo) ListByTxRef(ctx context.Context, txRef string) ([]models.Booking, error) {
	return repo.list(ctx, bson.M{"tx_ref": txRef})
}

func (repo *MongoBookingRepo) list(ctx context.Context, filter bson.M) ([]models.Booking, error) {
	cursor, err := repo.bookingColl.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error listing bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.Booking
	for cursor.Next(ctx) {
		var b models.Booking
		if err := cursor.Decode(&b); err != nil {
			return nil, fmt.Errorf("error decoding booking: %w", err)
		}
		out = append(out, b)
	}
	return out, cursor.Err()
}

// ListActiveByTutorDates returns the non-cancelled bookings for a tutor over
// the given dates. Callers pass the neighbouring dates too so that sessions
// wrapping past midnight are visible to the overlap check.
func (repo *MongoBookingRepo) ListActiveByTutorDates(ctx context.Context, tutorID string, dates []string) ([]models.Booking, error) {
	return repo.list(ctx, bson.M{
		"tutor_id": tutorID,
		"date":     bson.M{"$in": dates},
		"status":   bson.M{"$ne": models.BookingCancelled},
	})
}

func (repo *MongoBookingRepo) ListByStudent(ctx context.Context, studentID string) ([]models.Booking, error) {
	return repo.list(ctx, bson.M{"student_id": studentID})
}

func (repo *MongoBookingRepo) ListByTutorDate(ctx context.Context, tutorID, date string) ([]models.Booking, error) {
	return repo.list(ctx, bson.M{"tutor_id": tutorID, "date": date})
}

func (repo *MongoBookingRepo) ListByGroup(ctx context.Context, groupID string) ([]models.Booking, error) {
	return repo.list(ctx, bson.M{
		"session.group.group_id": groupID,
		"status":                 bson.M{"$ne": models.BookingCancelled},
	})
}

func (repo *MongoBookingRepo) ListByRecurrence(ctx context.Context, recurrenceID string) ([]models.Booking, error) {
	return repo.list(ctx, bson.M{"recurrence_id": recurrenceID})
}

func (repo *MongoBookingRepo) GetClaim(ctx context.Context, key string) (*SlotClaim, error) {
	var c SlotClaim
	if err := repo.claimColl.FindOne(ctx, bson.M{"_id": key}).Decode(&c); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error fetching slot claim %s: %w", key, err)
	}
	return &c, nil
}

// MarkCancelled cancels a booking with a status-pinned $set. A concurrent
// gateway settle moves the booking to confirmed; the guarded update still
// matches it without touching is_paid.
func (repo *MongoBookingRepo) MarkCancelled(ctx context.Context, id string) (bool, error) {
	res, err := repo.bookingColl.UpdateOne(ctx,
		bson.M{"id": id, "status": bson.M{"$in": bson.A{models.BookingPending, models.BookingConfirmed}}},
		bson.M{"$set": bson.M{"status": models.BookingCancelled, "updated_at": time.Now()}},
	)
	if err != nil {
		return false, fmt.Errorf("error cancelling booking %s: %w", id, err)
	}
	return res.MatchedCount == 0, nil
}

// SetDispute writes the dispute subdocument once; a concurrent filing or a
// refund that already cleared is_paid makes the filter match nothing.
func (repo *MongoBookingRepo) SetDispute(ctx context.Context, id string, dispute models.Dispute) (bool, error) {
	res, err := repo.bookingColl.UpdateOne(ctx,
		bson.M{"id": id, "is_paid": true, "dispute.filed": bson.M{"$ne": true}},
		bson.M{"$set": bson.M{"dispute": dispute, "updated_at": time.Now()}},
	)
	if err != nil {
		return false, fmt.Errorf("error filing dispute for booking %s: %w", id, err)
	}
	return res.MatchedCount == 0, nil
}

// ResolveDispute commits a resolution while the dispute is still open.
func (repo *MongoBookingRepo) ResolveDispute(ctx context.Context, id string, dispute models.Dispute, refunded bool) (bool, error) {
	set := bson.M{"dispute": dispute, "updated_at": time.Now()}
	if refunded {
		set["status"] = models.BookingCancelled
		set["is_paid"] = false
	}
	res, err := repo.bookingColl.UpdateOne(ctx,
		bson.M{"id": id, "dispute.filed": true, "dispute.resolved": false},
		bson.M{"$set": set},
	)
	if err != nil {
		return false, fmt.Errorf("error resolving dispute for booking %s: %w", id, err)
	}
	return res.MatchedCount == 0, nil
}

// MarkCompleted flips the completion flag once; the filter makes replays
// match nothing, so completion stays idempotent without a read.
func (repo *MongoBookingRepo) MarkCompleted(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := repo.bookingColl.UpdateOne(ctx,
		bson.M{"id": id, "completed": false},
		bson.M{"$set": bson.M{"completed": true, "completed_at": at, "updated_at": time.Now()}},
	)
	if err != nil {
		return false, fmt.Errorf("error marking booking %s completed: %w", id, err)
	}
	return res.MatchedCount == 0, nil
}

// ConfirmPaid promotes a pending unpaid booking to confirmed. Replays of the
// gateway callback match nothing and are reported as already applied.
func (repo *MongoBookingRepo) ConfirmPaid(ctx context.Context, id string) (bool, error) {
	res, err := repo.bookingColl.UpdateOne(ctx,
		bson.M{"id": id, "is_paid": false, "status": models.BookingPending},
		bson.M{"$set": bson.M{"is_paid": true, "status": models.BookingConfirmed, "updated_at": time.Now()}},
	)
	if err != nil {
		return false, fmt.Errorf("error confirming booking %s: %w", id, err)
	}
	return res.MatchedCount == 0, nil
}
