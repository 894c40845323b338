package notification

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	userRepo "tutorhive/database/repository/user"
	"tutorhive/models"
)

// TypeNotificationDeliver is the asynq task that pushes a persisted
// notification to the delivery collaborator.
const TypeNotificationDeliver = "notification:deliver"

// DeliverPayload is the asynq task payload.
type DeliverPayload struct {
	NotificationID string `json:"notificationId"`
	UserID         string `json:"userId"`
	Message        string `json:"message"`
}

// NotificationService delivers fire-and-forget notifications to users.
// Failures are logged and never surfaced to booking operations.
type NotificationService interface {
	Notify(ctx context.Context, userID, eventType, message string, data map[string]any)
}

// DefaultNotificationService persists notifications to the user's inbox and
// queues an async delivery task.
type DefaultNotificationService struct {
	Users  userRepo.UserRepository
	Tasks  *asynq.Client
	Logger *zap.Logger
}

func (s *DefaultNotificationService) Notify(ctx context.Context, userID, eventType, message string, data map[string]any) {
	n := models.Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		Type:      eventType,
		Message:   message,
		Data:      data,
		CreatedAt: time.Now(),
	}
	if err := s.Users.AppendNotification(ctx, userID, n); err != nil {
		s.Logger.Warn("failed to append notification",
			zap.String("userID", userID), zap.String("type", eventType), zap.Error(err))
		return
	}

	if s.Tasks == nil {
		return
	}
	payload, err := json.Marshal(DeliverPayload{NotificationID: n.ID, UserID: userID, Message: message})
	if err != nil {
		s.Logger.Error("failed to marshal notification payload", zap.Error(err))
		return
	}
	if _, err := s.Tasks.EnqueueContext(ctx, asynq.NewTask(TypeNotificationDeliver, payload), asynq.MaxRetry(3)); err != nil {
		s.Logger.Warn("failed to enqueue notification delivery",
			zap.String("userID", userID), zap.Error(err))
	}
}
