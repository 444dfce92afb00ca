package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"taskchat/internal/apperr"
	"taskchat/internal/database"
	"taskchat/internal/models"
)

type sentFrame struct {
	userID  int64
	payload any
}

// recordingNotifier stands in for the connection registry. Users listed
// in online accept one frame per call.
type recordingNotifier struct {
	mu     sync.Mutex
	online map[int64]bool
	sent   []sentFrame
}

func newRecordingNotifier(online ...int64) *recordingNotifier {
	n := &recordingNotifier{online: make(map[int64]bool)}
	for _, id := range online {
		n.online[id] = true
	}
	return n
}

func (n *recordingNotifier) SendToUser(userID int64, payload any) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.online[userID] {
		return 0
	}
	n.sent = append(n.sent, sentFrame{userID: userID, payload: payload})
	return 1
}

func (n *recordingNotifier) frames() []sentFrame {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentFrame(nil), n.sent...)
}

// failingNotifications fails every notification write.
type failingNotifications struct {
	*database.MemoryDB
}

func (failingNotifications) CreateNotification(ctx context.Context, userID, taskID int64, typ models.NotificationType, message string) (int64, error) {
	return 0, apperr.Store("create notification", errors.New("connection reset"))
}

func TestNotificationService_PublishPushesEnrichedFrame(t *testing.T) {
	db := database.NewMemoryDB()
	ctx := context.Background()
	task, _ := db.CreateTask(ctx, &models.Task{UserID: 1, Title: "Release", Status: models.TaskStatusTodo, Priority: models.TaskPriorityHigh})
	notifier := newRecordingNotifier(2)
	svc := NewNotificationService(db, notifier)

	n, err := svc.Publish(ctx, 2, task.ID, models.NotificationTaskAssigned, "You were assigned")
	if err != nil {
		t.Fatalf("Publish() error: %v", err)
	}
	if n.IsRead || n.TypeDisplay != "Task Assigned" || n.TaskTitle == nil || *n.TaskTitle != "Release" {
		t.Errorf("unexpected notification %+v", n)
	}

	frames := notifier.frames()
	if len(frames) != 1 || frames[0].userID != 2 {
		t.Fatalf("frames = %+v, want one frame for user 2", frames)
	}
	frame, ok := frames[0].payload.(models.NotificationFrame)
	if !ok || frame.Type != models.FrameNotification || frame.Data.ID != n.ID {
		t.Errorf("unexpected frame %+v", frames[0].payload)
	}
}

func TestNotificationService_OfflineUserKeepsUnread(t *testing.T) {
	db := database.NewMemoryDB()
	ctx := context.Background()
	svc := NewNotificationService(db, newRecordingNotifier())

	if _, err := svc.Publish(ctx, 5, 1, models.NotificationTaskReminder, "Due tomorrow"); err != nil {
		t.Fatalf("Publish() to offline user error: %v", err)
	}
	unread, err := svc.Unread(ctx, 5)
	if err != nil {
		t.Fatalf("Unread() error: %v", err)
	}
	if len(unread) != 1 || unread[0].Message != "Due tomorrow" {
		t.Fatalf("unread = %+v", unread)
	}
}

func TestNotificationService_PublishValidation(t *testing.T) {
	svc := NewNotificationService(database.NewMemoryDB(), newRecordingNotifier(1))
	tests := []struct {
		name    string
		userID  int64
		taskID  int64
		typ     models.NotificationType
		message string
	}{
		{"missing user", 0, 1, models.NotificationTaskAssigned, "m"},
		{"missing task", 1, 0, models.NotificationTaskAssigned, "m"},
		{"unknown type", 1, 1, "task_archived", "m"},
		{"blank message", 1, 1, models.NotificationTaskAssigned, "  "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Publish(context.Background(), tt.userID, tt.taskID, tt.typ, tt.message)
			if !errors.Is(err, apperr.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestNotificationService_StoreFailureIsNotPushed(t *testing.T) {
	notifier := newRecordingNotifier(1)
	svc := NewNotificationService(failingNotifications{database.NewMemoryDB()}, notifier)

	_, err := svc.Publish(context.Background(), 1, 1, models.NotificationTaskAssigned, "m")
	if !errors.Is(err, apperr.ErrStore) {
		t.Fatalf("expected store error, got %v", err)
	}
	if len(notifier.frames()) != 0 {
		t.Fatal("a notification that failed to persist was pushed")
	}
}

func TestNotificationService_ReadState(t *testing.T) {
	db := database.NewMemoryDB()
	ctx := context.Background()
	svc := NewNotificationService(db, nil)

	first, _ := svc.Publish(ctx, 1, 1, models.NotificationTaskAssigned, "one")
	svc.Publish(ctx, 1, 1, models.NotificationTaskCompleted, "two")

	if ok, err := svc.MarkAsRead(ctx, first.ID, 2); err != nil || ok {
		t.Fatalf("MarkAsRead by another user = %v, %v", ok, err)
	}
	if ok, err := svc.MarkAsRead(ctx, first.ID, 1); err != nil || !ok {
		t.Fatalf("MarkAsRead by owner = %v, %v", ok, err)
	}
	if n, err := svc.MarkAllAsRead(ctx, 1); err != nil || n != 1 {
		t.Fatalf("MarkAllAsRead = %d, %v; want 1", n, err)
	}
	if n, _ := svc.MarkAllAsRead(ctx, 1); n != 0 {
		t.Fatalf("second MarkAllAsRead = %d, want 0", n)
	}
	if _, err := svc.MarkAsRead(ctx, 0, 1); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error for id 0, got %v", err)
	}
}

func TestNotificationService_DeleteOld(t *testing.T) {
	db := database.NewMemoryDB()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := NewNotificationService(db, nil)
	svc.now = func() time.Time { return now }

	db.Now = func() time.Time { return now.Add(-31 * 24 * time.Hour) }
	svc.Publish(ctx, 1, 1, models.NotificationTaskReminder, "stale")
	db.Now = func() time.Time { return now.Add(-time.Hour) }
	svc.Publish(ctx, 1, 1, models.NotificationTaskReminder, "fresh")

	n, err := svc.DeleteOld(ctx, 30*24*time.Hour)
	if err != nil || n != 1 {
		t.Fatalf("DeleteOld = %d, %v; want 1", n, err)
	}
	if _, err := svc.DeleteOld(ctx, 0); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error for zero max age, got %v", err)
	}
}
