package bookingRepo

import (
	"context"
	"fmt"
	"time"

	"tutorhive/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func (repo *MongoBookingRepo) withTransaction(ctx context.Context, txnFn func(sc mongo.SessionContext) error) error {
	client := repo.bookingColl.Database().Client()
	sess, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	return mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sc.StartTransaction(); err != nil {
			return err
		}
		if err := txnFn(sc); err != nil {
			_ = sc.AbortTransaction(sc)
			return err
		}
		return sc.CommitTransaction(sc)
	})
}

// CreateWithClaim inserts the booking and claims its slot in one transaction.
// The claim's _id is the slot key, so a concurrent writer racing for the same
// slot loses with a duplicate-key error and surfaces ErrClaimExists.
func (repo *MongoBookingRepo) CreateWithClaim(ctx context.Context, booking *models.Booking, claim *SlotClaim) error {
	return repo.withTransaction(ctx, func(sc mongo.SessionContext) error {
		if _, err := repo.claimColl.InsertOne(sc, claim); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return ErrClaimExists
			}
			return fmt.Errorf("insert slot claim failed: %w", err)
		}
		if _, err := repo.bookingColl.InsertOne(sc, booking); err != nil {
			return fmt.Errorf("insert booking failed: %w", err)
		}
		return nil
	})
}

// AttachToCohort joins an existing group cohort. The claim update filter
// embeds the capacity guard (size < max_size) and the subject match, so two
// concurrent attaches cannot push the cohort past its maximum: the loser's
// update matches nothing and gets ErrClaimGuard.
func (repo *MongoBookingRepo) AttachToCohort(ctx context.Context, booking *models.Booking, claimKey string) (*SlotClaim, error) {
	var attached SlotClaim
	err := repo.withTransaction(ctx, func(sc mongo.SessionContext) error {
		filter := bson.M{
			"_id":     claimKey,
			"kind":    models.SessionGroup,
			"subject": booking.Subject,
			"$expr":   bson.M{"$lt": bson.A{"$size", "$max_size"}},
		}
		res, err := repo.claimColl.UpdateOne(sc, filter, bson.M{"$inc": bson.M{"size": 1}})
		if err != nil {
			return fmt.Errorf("cohort claim update failed: %w", err)
		}
		if res.MatchedCount == 0 {
			return ErrClaimGuard
		}

		if err := repo.claimColl.FindOne(sc, bson.M{"_id": claimKey}).Decode(&attached); err != nil {
			return fmt.Errorf("cohort claim readback failed: %w", err)
		}

		booking.Session = models.Session{
			Kind: models.SessionGroup,
			Group: &models.GroupSession{
				GroupID: attached.GroupID,
				MaxSize: attached.MaxSize,
				Size:    attached.Size,
			},
		}
		if _, err := repo.bookingColl.InsertOne(sc, booking); err != nil {
			return fmt.Errorf("insert cohort booking failed: %w", err)
		}

		// Keep the denormalized size on the other members in step.
		_, err = repo.bookingColl.UpdateMany(sc,
			bson.M{"session.group.group_id": attached.GroupID, "id": bson.M{"$ne": booking.ID}},
			bson.M{"$set": bson.M{"session.group.size": attached.Size, "updated_at": time.Now()}},
		)
		if err != nil {
			return fmt.Errorf("cohort size fan-out failed: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &attached, nil
}

// ReleaseSlot undoes a booking's hold on its slot. Individual claims are
// deleted outright; cohort claims shrink by one and disappear with the last
// member.
func (repo *MongoBookingRepo) ReleaseSlot(ctx context.Context, booking *models.Booking) error {
	key := ClaimKey(booking.TutorID, booking.Date, booking.StartMin)

	if !booking.IsGroup() {
		if _, err := repo.claimColl.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
			return fmt.Errorf("delete slot claim failed: %w", err)
		}
		return nil
	}

	groupID := booking.Session.Group.GroupID
	return repo.withTransaction(ctx, func(sc mongo.SessionContext) error {
		res, err := repo.claimColl.UpdateOne(sc,
			bson.M{"_id": key, "group_id": groupID, "size": bson.M{"$gt": 0}},
			bson.M{"$inc": bson.M{"size": -1}},
		)
		if err != nil {
			return fmt.Errorf("cohort claim decrement failed: %w", err)
		}
		if res.MatchedCount == 0 {
			return ErrClaimGuard
		}
		if _, err := repo.claimColl.DeleteOne(sc, bson.M{"_id": key, "size": bson.M{"$lte": 0}}); err != nil {
			return fmt.Errorf("empty cohort claim cleanup failed: %w", err)
		}
		_, err = repo.bookingColl.UpdateMany(sc,
			bson.M{"session.group.group_id": groupID, "id": bson.M{"$ne": booking.ID}},
			bson.M{"$inc": bson.M{"session.group.size": -1}},
		)
		if err != nil {
			return fmt.Errorf("cohort size fan-out failed: %w", err)
		}
		return nil
	})
}

// MoveClaim relocates a claim (and every booking holding it) to a new slot in
// one transaction. Used by reschedule: the caller has already validated the
// destination, this is only the commit phase.
func (repo *MongoBookingRepo) MoveClaim(ctx context.Context, oldKey string, claim *SlotClaim, bookingIDs []string, newDate string, newStartMin int, note string) error {
	return repo.withTransaction(ctx, func(sc mongo.SessionContext) error {
		res, err := repo.claimColl.DeleteOne(sc, bson.M{"_id": oldKey})
		if err != nil {
			return fmt.Errorf("delete old slot claim failed: %w", err)
		}
		if res.DeletedCount == 0 {
			return ErrNotFound
		}
		if _, err := repo.claimColl.InsertOne(sc, claim); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return ErrClaimExists
			}
			return fmt.Errorf("insert new slot claim failed: %w", err)
		}

		now := time.Now()
		for _, id := range bookingIDs {
			var b models.Booking
			if err := repo.bookingColl.FindOne(sc, bson.M{"id": id}).Decode(&b); err != nil {
				return fmt.Errorf("reschedule readback for %s failed: %w", id, err)
			}
			_, err := repo.bookingColl.UpdateOne(sc, bson.M{"id": id}, bson.M{"$set": bson.M{
				"date":       newDate,
				"start_min":  newStartMin,
				"updated_at": now,
				"reschedule": models.Reschedule{
					WasRescheduled: true,
					OldDate:        b.Date,
					OldStartMin:    b.StartMin,
					Note:           note,
				},
			}})
			if err != nil {
				return fmt.Errorf("reschedule update for %s failed: %w", id, err)
			}
		}
		return nil
	})
}
