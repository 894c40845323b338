package userRepo

import (
	"context"
	"errors"

	"tutorhive/models"
)

var ErrNotFound = errors.New("user not found")

// UserRepository is the read-mostly view of the external profile store. The
// scheduling core only looks parties up and appends inbox notifications.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	AppendNotification(ctx context.Context, userID string, n models.Notification) error
}
