package models

import "time"

type NotificationType string

const (
	NotificationTaskAssigned        NotificationType = "task_assigned"
	NotificationTaskStatusChanged   NotificationType = "task_status_changed"
	NotificationTaskDueDateChanged  NotificationType = "task_due_date_changed"
	NotificationTaskPriorityChanged NotificationType = "task_priority_changed"
	NotificationTaskCompleted       NotificationType = "task_completed"
	NotificationTaskReminder        NotificationType = "task_reminder"
)

var notificationDisplay = map[NotificationType]string{
	NotificationTaskAssigned:        "Task Assigned",
	NotificationTaskStatusChanged:   "Status Changed",
	NotificationTaskDueDateChanged:  "Due Date Changed",
	NotificationTaskPriorityChanged: "Priority Changed",
	NotificationTaskCompleted:       "Task Completed",
	NotificationTaskReminder:        "Task Reminder",
}

func (t NotificationType) Valid() bool {
	_, ok := notificationDisplay[t]
	return ok
}

// Display returns the human label for t, or t itself when unknown.
func (t NotificationType) Display() string {
	if d, ok := notificationDisplay[t]; ok {
		return d
	}
	return string(t)
}

// Notification is a stored notification joined with the task context
// shown next to it.
type Notification struct {
	ID           int64            `json:"id"`
	UserID       int64            `json:"user_id"`
	TaskID       int64            `json:"task_id"`
	Type         NotificationType `json:"type"`
	Message      string           `json:"message"`
	IsRead       bool             `json:"is_read"`
	CreatedAt    time.Time        `json:"created_at"`
	TaskTitle    *string          `json:"task_title"`
	TaskStatus   *string          `json:"task_status"`
	TaskPriority *string          `json:"task_priority"`
	TaskDueDate  *time.Time       `json:"task_due_date"`
	TypeDisplay  string           `json:"type_display"`
}

type NotificationsResponse struct {
	Notifications []*Notification `json:"notifications"`
}
