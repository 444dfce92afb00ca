package database

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"taskchat/internal/apperr"
	"taskchat/internal/models"
)

type notificationRow struct {
	id        int64
	userID    int64
	taskID    int64
	typ       models.NotificationType
	message   string
	isRead    bool
	createdAt time.Time
}

// MemoryDB is an in-process Database used for local development
// (DATABASE_URL=memory) and as the store in tests.
type MemoryDB struct {
	mu            sync.RWMutex
	nextID        int64
	users         map[int64]*models.User
	messages      []*models.ChatMessage
	notifications map[int64]*notificationRow
	tasks         map[int64]*models.Task

	// Now stamps created rows; tests may replace it.
	Now func() time.Time
}

func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		users:         make(map[int64]*models.User),
		notifications: make(map[int64]*notificationRow),
		tasks:         make(map[int64]*models.Task),
		Now:           time.Now,
	}
}

func (db *MemoryDB) Ping(ctx context.Context) error { return nil }

func (db *MemoryDB) Close() error { return nil }

func (db *MemoryDB) id() int64 {
	db.nextID++
	return db.nextID
}

// User Repository Implementation
func (db *MemoryDB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	for _, u := range db.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("get user by email", "not found")
}

func (db *MemoryDB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	u, ok := db.users[id]
	if !ok {
		return nil, apperr.NotFound("get user by id", "not found")
	}
	cp := *u
	cp.PasswordHash = ""
	return &cp, nil
}

func (db *MemoryDB) CreateUser(ctx context.Context, username, email, passwordHash string) (*models.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, u := range db.users {
		if u.Username == username || strings.EqualFold(u.Email, email) {
			return nil, apperr.Validation("create user", "username or email already exists")
		}
	}
	u := &models.User{
		ID:           db.id(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    db.Now().UTC(),
	}
	db.users[u.ID] = u
	cp := *u
	return &cp, nil
}

// Message Repository Implementation
func (db *MemoryDB) CreateMessage(ctx context.Context, msg *models.ChatMessage) (*models.ChatMessage, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	saved := *msg
	saved.ID = db.id()
	saved.CreatedAt = db.Now().UTC()
	if u, ok := db.users[msg.SenderID]; ok {
		saved.SenderUsername = u.Username
	}
	db.messages = append(db.messages, &saved)
	out := saved
	return &out, nil
}

func (db *MemoryDB) ChannelMessages(ctx context.Context, channelID int64, limit int) ([]*models.ChatMessage, error) {
	return db.latestMessages(limit, func(m *models.ChatMessage) bool {
		return m.MessageType == models.MessageTypeChannel && m.TargetID == channelID
	}), nil
}

func (db *MemoryDB) DirectMessages(ctx context.Context, userA, userB int64, limit int) ([]*models.ChatMessage, error) {
	return db.latestMessages(limit, func(m *models.ChatMessage) bool {
		if m.MessageType != models.MessageTypeDirect {
			return false
		}
		return (m.SenderID == userA && m.TargetID == userB) || (m.SenderID == userB && m.TargetID == userA)
	}), nil
}

// latestMessages returns up to limit matching messages, oldest first.
func (db *MemoryDB) latestMessages(limit int, match func(*models.ChatMessage) bool) []*models.ChatMessage {
	db.mu.RLock()
	defer db.mu.RUnlock()
	var out []*models.ChatMessage
	for i := len(db.messages) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if m := db.messages[i]; match(m) {
			cp := *m
			out = append(out, &cp)
		}
	}
	reverseMessages(out)
	return out
}

// Notification Repository Implementation
func (db *MemoryDB) CreateNotification(ctx context.Context, userID, taskID int64, typ models.NotificationType, message string) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	row := &notificationRow{
		id:        db.id(),
		userID:    userID,
		taskID:    taskID,
		typ:       typ,
		message:   message,
		createdAt: db.Now().UTC(),
	}
	db.notifications[row.id] = row
	return row.id, nil
}

// enrich joins row with its task; callers hold db.mu.
func (db *MemoryDB) enrich(row *notificationRow) *models.Notification {
	n := &models.Notification{
		ID:          row.id,
		UserID:      row.userID,
		TaskID:      row.taskID,
		Type:        row.typ,
		Message:     row.message,
		IsRead:      row.isRead,
		CreatedAt:   row.createdAt,
		TypeDisplay: row.typ.Display(),
	}
	if t, ok := db.tasks[row.taskID]; ok {
		title, status, priority := t.Title, string(t.Status), string(t.Priority)
		n.TaskTitle, n.TaskStatus, n.TaskPriority = &title, &status, &priority
		if t.DueDate != nil {
			due := *t.DueDate
			n.TaskDueDate = &due
		}
	}
	return n
}

func (db *MemoryDB) GetNotification(ctx context.Context, id int64) (*models.Notification, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	row, ok := db.notifications[id]
	if !ok {
		return nil, apperr.NotFound("get notification", "not found")
	}
	return db.enrich(row), nil
}

func (db *MemoryDB) UnreadNotifications(ctx context.Context, userID int64) ([]*models.Notification, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := []*models.Notification{}
	for _, row := range db.notifications {
		if row.userID == userID && !row.isRead {
			out = append(out, db.enrich(row))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (db *MemoryDB) MarkNotificationRead(ctx context.Context, id, userID int64) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	row, ok := db.notifications[id]
	if !ok || row.userID != userID || row.isRead {
		return false, nil
	}
	row.isRead = true
	return true, nil
}

func (db *MemoryDB) MarkAllNotificationsRead(ctx context.Context, userID int64) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	var n int64
	for _, row := range db.notifications {
		if row.userID == userID && !row.isRead {
			row.isRead = true
			n++
		}
	}
	return n, nil
}

func (db *MemoryDB) DeleteNotificationsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	var n int64
	for id, row := range db.notifications {
		if row.createdAt.Before(cutoff) {
			delete(db.notifications, id)
			n++
		}
	}
	return n, nil
}

// Task Repository Implementation
func copyTask(t *models.Task) *models.Task {
	cp := *t
	if t.AssignedTo != nil {
		a := *t.AssignedTo
		cp.AssignedTo = &a
	}
	if t.DueDate != nil {
		d := *t.DueDate
		cp.DueDate = &d
	}
	return &cp
}

func (db *MemoryDB) CreateTask(ctx context.Context, task *models.Task) (*models.Task, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	t := copyTask(task)
	t.ID = db.id()
	t.CreatedAt = db.Now().UTC()
	t.UpdatedAt = t.CreatedAt
	db.tasks[t.ID] = t
	return copyTask(t), nil
}

func (db *MemoryDB) GetTask(ctx context.Context, id int64) (*models.Task, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	t, ok := db.tasks[id]
	if !ok {
		return nil, apperr.NotFound("get task", "not found")
	}
	return copyTask(t), nil
}

func (db *MemoryDB) UpdateTask(ctx context.Context, task *models.Task) (*models.Task, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	existing, ok := db.tasks[task.ID]
	if !ok {
		return nil, apperr.NotFound("update task", "not found")
	}
	t := copyTask(task)
	t.UserID = existing.UserID
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = db.Now().UTC()
	db.tasks[t.ID] = t
	return copyTask(t), nil
}

func (db *MemoryDB) ListTasksForUser(ctx context.Context, userID int64) ([]*models.Task, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := []*models.Task{}
	for _, t := range db.tasks {
		if t.UserID == userID || (t.AssignedTo != nil && *t.AssignedTo == userID) {
			out = append(out, copyTask(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}
