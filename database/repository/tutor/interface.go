package tutorRepo

import (
	"context"
	"errors"

	"tutorhive/models"
)

var ErrNotFound = errors.New("tutor not found")

// TutorRepository is the storage contract for tutor scheduling profiles.
type TutorRepository interface {
	GetByID(ctx context.Context, id string) (*models.TutorProfile, error)
	Upsert(ctx context.Context, tutor *models.TutorProfile) error
	SetWeeklyAvailability(ctx context.Context, id string, weekly models.WeeklyAvailability) error
}
