package cron

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"tutorhive/config"
	bookingRepo "tutorhive/database/repository/booking"
	"tutorhive/models"
	"tutorhive/services/notification"
	"tutorhive/services/scheduling"
	"tutorhive/utils"
)

const TypeReminderSend = "reminder:send"

type reminderPayload struct {
	BookingID string `json:"bookingId"`
}

// ReminderScheduler enqueues session reminders on the asynq queue. It
// satisfies scheduling.ReminderScheduler.
type ReminderScheduler struct {
	Client *asynq.Client
}

// ScheduleSessionReminder queues a reminder to fire ahead of the session
// start. Sessions closer than the lead time get the reminder immediately.
func (rs *ReminderScheduler) ScheduleSessionReminder(ctx context.Context, bookingID string, sessionStart time.Time) error {
	payload, err := json.Marshal(reminderPayload{BookingID: bookingID})
	if err != nil {
		return fmt.Errorf("marshal reminder payload: %w", err)
	}
	runAt := sessionStart.Add(-time.Duration(config.AppConfig.ReminderLeadHours) * time.Hour)
	opts := []asynq.Option{asynq.MaxRetry(3)}
	if runAt.After(time.Now()) {
		opts = append(opts, asynq.ProcessAt(runAt))
	}
	if _, err := rs.Client.EnqueueContext(ctx, asynq.NewTask(TypeReminderSend, payload), opts...); err != nil {
		return fmt.Errorf("enqueue reminder for booking %s: %w", bookingID, err)
	}
	return nil
}

// InitReminderWorker runs the async worker in background.
func InitReminderWorker(bookings bookingRepo.BookingRepository, notifSvc notification.NotificationService) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisTaskDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeReminderSend, handleReminderTask(bookings, notifSvc))
	mux.HandleFunc(notification.TypeNotificationDeliver, handleDeliverTask())

	go func() {
		log.Println("[ReminderWorker] starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[ReminderWorker] attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[ReminderWorker] max retry attempts reached. Exiting.")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second)
			} else {
				break
			}
		}
	}()
}

// handleReminderTask notifies both parties ahead of a session. Bookings that
// are no longer confirmed by run time are skipped.
func handleReminderTask(bookings bookingRepo.BookingRepository, notifSvc notification.NotificationService) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		logger := utils.GetLogger()

		var p reminderPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return fmt.Errorf("unmarshal reminder payload: %w", err)
		}

		b, err := bookings.GetByID(ctx, p.BookingID)
		if err != nil {
			logger.Warn("reminder: booking lookup failed",
				zap.String("bookingID", p.BookingID), zap.Error(err))
			return nil // gone bookings are not retryable
		}
		if b.Status != models.BookingConfirmed || b.Completed {
			logger.Debug("reminder: booking no longer eligible",
				zap.String("bookingID", b.ID), zap.String("status", string(b.Status)))
			return nil
		}

		msg := fmt.Sprintf("Upcoming %s session on %s at %s", b.Subject, b.Date, scheduling.FormatClock(b.StartMin))
		notifSvc.Notify(ctx, b.StudentID, "session_reminder", msg, map[string]any{"bookingId": b.ID})
		notifSvc.Notify(ctx, b.TutorID, "session_reminder", msg, map[string]any{"bookingId": b.ID})
		return nil
	}
}

// handleDeliverTask hands a queued notification to the external delivery
// collaborator. Delivery transport is outside this core; the task exists so
// booking operations never block on it.
func handleDeliverTask() asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var p notification.DeliverPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return fmt.Errorf("unmarshal delivery payload: %w", err)
		}
		utils.GetLogger().Info("notification delivered",
			zap.String("userID", p.UserID), zap.String("notificationID", p.NotificationID))
		return nil
	}
}
