package tutorRepo

import (
	"context"
	"fmt"
	"time"

	"tutorhive/database"
	"tutorhive/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoTutorRepo implements TutorRepository using MongoDB.
type MongoTutorRepo struct {
	coll *mongo.Collection
}

// NewMongoTutorRepo constructs a new instance of MongoTutorRepo.
func NewMongoTutorRepo() TutorRepository {
	return &MongoTutorRepo{coll: database.DB().Collection("tutors")}
}

func (repo *MongoTutorRepo) GetByID(ctx context.Context, id string) (*models.TutorProfile, error) {
	var t models.TutorProfile
	if err := repo.coll.FindOne(ctx, bson.M{"id": id}).Decode(&t); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error fetching tutor %s: %w", id, err)
	}
	return &t, nil
}

func (repo *MongoTutorRepo) Upsert(ctx context.Context, tutor *models.TutorProfile) error {
	tutor.UpdatedAt = time.Now()
	opts := options.Replace().SetUpsert(true)
	if _, err := repo.coll.ReplaceOne(ctx, bson.M{"id": tutor.ID}, tutor, opts); err != nil {
		return fmt.Errorf("error upserting tutor %s: %w", tutor.ID, err)
	}
	return nil
}

func (repo *MongoTutorRepo) SetWeeklyAvailability(ctx context.Context, id string, weekly models.WeeklyAvailability) error {
	res, err := repo.coll.UpdateOne(ctx,
		bson.M{"id": id},
		bson.M{"$set": bson.M{"weekly": weekly, "updated_at": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("error setting availability for tutor %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
