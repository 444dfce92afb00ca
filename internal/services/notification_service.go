package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"taskchat/internal/apperr"
	"taskchat/internal/database"
	"taskchat/internal/metrics"
	"taskchat/internal/models"
	"taskchat/pkg/logger"
)

// Notifier pushes a frame to every open connection of a user and returns
// how many connections accepted it.
type Notifier interface {
	SendToUser(userID int64, payload any) int
}

type NotificationService struct {
	db       database.NotificationRepository
	notifier Notifier
	now      func() time.Time
}

func NewNotificationService(db database.NotificationRepository, notifier Notifier) *NotificationService {
	return &NotificationService{
		db:       db,
		notifier: notifier,
		now:      time.Now,
	}
}

// Publish stores a notification for userID and pushes it to the user's
// open connections. An offline user keeps it unread for later retrieval.
func (s *NotificationService) Publish(ctx context.Context, userID, taskID int64, typ models.NotificationType, message string) (*models.Notification, error) {
	message = strings.TrimSpace(message)
	if userID <= 0 || taskID <= 0 || typ == "" || message == "" {
		return nil, apperr.Validation("publish notification", "missing required parameters")
	}
	if !typ.Valid() {
		return nil, apperr.Validation("publish notification", fmt.Sprintf("unknown notification type %q", typ))
	}

	id, err := s.db.CreateNotification(ctx, userID, taskID, typ, message)
	if err != nil {
		metrics.Notifications.WithLabelValues(string(typ), "error").Inc()
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	n, err := s.db.GetNotification(ctx, id)
	if err != nil {
		metrics.Notifications.WithLabelValues(string(typ), "error").Inc()
		return nil, fmt.Errorf("failed to load notification %d: %w", id, err)
	}

	delivered := 0
	if s.notifier != nil {
		delivered = s.notifier.SendToUser(userID, models.NotificationFrame{
			Type: models.FrameNotification,
			Data: n,
		})
	}
	if delivered > 0 {
		metrics.Notifications.WithLabelValues(string(typ), "pushed").Inc()
	} else {
		metrics.Notifications.WithLabelValues(string(typ), "offline").Inc()
	}
	logger.Debug("Notification %d (%s) for user %d pushed to %d connections", n.ID, typ, userID, delivered)

	return n, nil
}

// Unread returns the user's unread notifications, newest first.
func (s *NotificationService) Unread(ctx context.Context, userID int64) ([]*models.Notification, error) {
	if userID <= 0 {
		return nil, apperr.Validation("unread notifications", "user id is required")
	}
	return s.db.UnreadNotifications(ctx, userID)
}

// MarkAsRead reports whether a notification owned by userID changed from
// unread to read.
func (s *NotificationService) MarkAsRead(ctx context.Context, id, userID int64) (bool, error) {
	if id <= 0 || userID <= 0 {
		return false, apperr.Validation("mark notification read", "invalid notification id")
	}
	return s.db.MarkNotificationRead(ctx, id, userID)
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID int64) (int64, error) {
	if userID <= 0 {
		return 0, apperr.Validation("mark all notifications read", "user id is required")
	}
	return s.db.MarkAllNotificationsRead(ctx, userID)
}

// DeleteOld removes notifications older than maxAge.
func (s *NotificationService) DeleteOld(ctx context.Context, maxAge time.Duration) (int64, error) {
	if maxAge <= 0 {
		return 0, apperr.Validation("delete old notifications", "max age must be positive")
	}
	n, err := s.db.DeleteNotificationsBefore(ctx, s.now().Add(-maxAge))
	if err != nil {
		return 0, fmt.Errorf("failed to delete old notifications: %w", err)
	}
	return n, nil
}
