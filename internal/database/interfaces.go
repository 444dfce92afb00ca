package database

import (
	"context"
	"time"

	"taskchat/internal/models"
)

type UserRepository interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	CreateUser(ctx context.Context, username, email, passwordHash string) (*models.User, error)
}

type MessageRepository interface {
	// CreateMessage persists msg and returns it with ID and CreatedAt set.
	CreateMessage(ctx context.Context, msg *models.ChatMessage) (*models.ChatMessage, error)
	ChannelMessages(ctx context.Context, channelID int64, limit int) ([]*models.ChatMessage, error)
	DirectMessages(ctx context.Context, userA, userB int64, limit int) ([]*models.ChatMessage, error)
}

type NotificationRepository interface {
	CreateNotification(ctx context.Context, userID, taskID int64, typ models.NotificationType, message string) (int64, error)
	GetNotification(ctx context.Context, id int64) (*models.Notification, error)
	UnreadNotifications(ctx context.Context, userID int64) ([]*models.Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID int64) (bool, error)
	MarkAllNotificationsRead(ctx context.Context, userID int64) (int64, error)
	DeleteNotificationsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type TaskRepository interface {
	CreateTask(ctx context.Context, task *models.Task) (*models.Task, error)
	GetTask(ctx context.Context, id int64) (*models.Task, error)
	UpdateTask(ctx context.Context, task *models.Task) (*models.Task, error)
	ListTasksForUser(ctx context.Context, userID int64) ([]*models.Task, error)
}

type Database interface {
	UserRepository
	MessageRepository
	NotificationRepository
	TaskRepository
	Ping(ctx context.Context) error
	Close() error
}
