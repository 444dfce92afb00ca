package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskchat/internal/apperr"
	"taskchat/internal/models"
	"taskchat/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

type PostgresDB struct {
	pool *pgxpool.Pool
}

func NewPostgresDB(ctx context.Context, databaseURL string) (*PostgresDB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Connected to database successfully")
	return &PostgresDB{pool: pool}, nil
}

func (db *PostgresDB) Ping(ctx context.Context) error {
	if err := db.pool.Ping(ctx); err != nil {
		return apperr.Store("ping", err)
	}
	return nil
}

func (db *PostgresDB) Close() error {
	db.pool.Close()
	return nil
}

// wrap classifies a pgx error. pgx.ErrNoRows becomes NotFound.
func wrap(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(op, "not found")
	}
	return apperr.Store(op, err)
}

// wrapTask is wrap for task writes. A dangling assigned_to reference is
// the caller's fault, not the store's.
func wrapTask(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		return apperr.Validation(op, "unknown assignee")
	}
	return wrap(op, err)
}

// User Repository Implementation
func (db *PostgresDB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT id, username, email, password_hash, created_at FROM users WHERE email = $1`

	user := &models.User{}
	err := db.pool.QueryRow(ctx, query, email).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt,
	)
	if err != nil {
		return nil, wrap("get user by email", err)
	}

	return user, nil
}

func (db *PostgresDB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT id, username, email, created_at FROM users WHERE id = $1`

	user := &models.User{}
	err := db.pool.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Username, &user.Email, &user.CreatedAt,
	)
	if err != nil {
		return nil, wrap("get user by id", err)
	}

	return user, nil
}

func (db *PostgresDB) CreateUser(ctx context.Context, username, email, passwordHash string) (*models.User, error) {
	query := `
		INSERT INTO users (username, email, password_hash, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, username, email, created_at`

	user := &models.User{PasswordHash: passwordHash}
	err := db.pool.QueryRow(ctx, query, username, email, passwordHash).Scan(
		&user.ID, &user.Username, &user.Email, &user.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, apperr.Validation("create user", "username or email already exists")
		}
		return nil, wrap("create user", err)
	}

	return user, nil
}

// Message Repository Implementation
func (db *PostgresDB) CreateMessage(ctx context.Context, msg *models.ChatMessage) (*models.ChatMessage, error) {
	query := `
		INSERT INTO messages (content, sender_id, target_id, message_type, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, created_at`

	saved := *msg
	err := db.pool.QueryRow(ctx, query, msg.Content, msg.SenderID, msg.TargetID, string(msg.MessageType)).Scan(
		&saved.ID, &saved.CreatedAt,
	)
	if err != nil {
		return nil, wrap("create message", err)
	}

	return &saved, nil
}

const messageColumns = `m.id, m.content, m.sender_id, u.username, m.target_id, m.message_type, m.created_at`

func (db *PostgresDB) ChannelMessages(ctx context.Context, channelID int64, limit int) ([]*models.ChatMessage, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages m
		JOIN users u ON m.sender_id = u.id
		WHERE m.target_id = $1 AND m.message_type = 'channel'
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT $2`

	return db.queryMessages(ctx, "channel messages", query, channelID, limit)
}

func (db *PostgresDB) DirectMessages(ctx context.Context, userA, userB int64, limit int) ([]*models.ChatMessage, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages m
		JOIN users u ON m.sender_id = u.id
		WHERE m.message_type = 'direct'
		AND ((m.sender_id = $1 AND m.target_id = $2) OR (m.sender_id = $2 AND m.target_id = $1))
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT $3`

	return db.queryMessages(ctx, "direct messages", query, userA, userB, limit)
}

func (db *PostgresDB) queryMessages(ctx context.Context, op, query string, args ...any) ([]*models.ChatMessage, error) {
	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	var messages []*models.ChatMessage
	for rows.Next() {
		msg := &models.ChatMessage{}
		var messageType string
		if err := rows.Scan(&msg.ID, &msg.Content, &msg.SenderID, &msg.SenderUsername, &msg.TargetID, &messageType, &msg.CreatedAt); err != nil {
			return nil, wrap(op, err)
		}
		msg.MessageType = models.MessageType(messageType)
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}

	reverseMessages(messages)
	return messages, nil
}

// Reverse to show oldest first
func reverseMessages(messages []*models.ChatMessage) {
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
}

// Notification Repository Implementation
func (db *PostgresDB) CreateNotification(ctx context.Context, userID, taskID int64, typ models.NotificationType, message string) (int64, error) {
	query := `
		INSERT INTO notifications (user_id, task_id, type, message, is_read, created_at)
		VALUES ($1, $2, $3, $4, FALSE, NOW())
		RETURNING id`

	var id int64
	if err := db.pool.QueryRow(ctx, query, userID, taskID, string(typ), message).Scan(&id); err != nil {
		return 0, wrap("create notification", err)
	}
	return id, nil
}

const notificationSelect = `
	SELECT n.id, n.user_id, n.task_id, n.type, n.message, n.is_read, n.created_at,
	       t.title, t.status, t.priority, t.due_date
	FROM notifications n
	LEFT JOIN tasks t ON n.task_id = t.id`

func scanNotification(row pgx.Row) (*models.Notification, error) {
	n := &models.Notification{}
	var typ string
	err := row.Scan(
		&n.ID, &n.UserID, &n.TaskID, &typ, &n.Message, &n.IsRead, &n.CreatedAt,
		&n.TaskTitle, &n.TaskStatus, &n.TaskPriority, &n.TaskDueDate,
	)
	if err != nil {
		return nil, err
	}
	n.Type = models.NotificationType(typ)
	n.TypeDisplay = n.Type.Display()
	return n, nil
}

func (db *PostgresDB) GetNotification(ctx context.Context, id int64) (*models.Notification, error) {
	n, err := scanNotification(db.pool.QueryRow(ctx, notificationSelect+` WHERE n.id = $1`, id))
	if err != nil {
		return nil, wrap("get notification", err)
	}
	return n, nil
}

func (db *PostgresDB) UnreadNotifications(ctx context.Context, userID int64) ([]*models.Notification, error) {
	query := notificationSelect + `
		WHERE n.user_id = $1 AND n.is_read = FALSE
		ORDER BY n.created_at DESC, n.id DESC`

	rows, err := db.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, wrap("unread notifications", err)
	}
	defer rows.Close()

	notifications := []*models.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, wrap("unread notifications", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("unread notifications", err)
	}
	return notifications, nil
}

func (db *PostgresDB) MarkNotificationRead(ctx context.Context, id, userID int64) (bool, error) {
	query := `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2 AND is_read = FALSE`
	tag, err := db.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return false, wrap("mark notification read", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (db *PostgresDB) MarkAllNotificationsRead(ctx context.Context, userID int64) (int64, error) {
	query := `UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE`
	tag, err := db.pool.Exec(ctx, query, userID)
	if err != nil {
		return 0, wrap("mark all notifications read", err)
	}
	return tag.RowsAffected(), nil
}

func (db *PostgresDB) DeleteNotificationsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := db.pool.Exec(ctx, `DELETE FROM notifications WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, wrap("delete old notifications", err)
	}
	return tag.RowsAffected(), nil
}

// Task Repository Implementation
const taskColumns = `id, user_id, assigned_to, title, description, status, priority, due_date, completed, created_at, updated_at`

func scanTask(row pgx.Row) (*models.Task, error) {
	t := &models.Task{}
	var status, priority string
	err := row.Scan(
		&t.ID, &t.UserID, &t.AssignedTo, &t.Title, &t.Description,
		&status, &priority, &t.DueDate, &t.Completed, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Status = models.TaskStatus(status)
	t.Priority = models.TaskPriority(priority)
	return t, nil
}

func (db *PostgresDB) CreateTask(ctx context.Context, task *models.Task) (*models.Task, error) {
	query := `
		INSERT INTO tasks (user_id, assigned_to, title, description, status, priority, due_date, completed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING ` + taskColumns

	created, err := scanTask(db.pool.QueryRow(ctx, query,
		task.UserID, task.AssignedTo, task.Title, task.Description,
		string(task.Status), string(task.Priority), task.DueDate, task.Completed,
	))
	if err != nil {
		return nil, wrapTask("create task", err)
	}
	return created, nil
}

func (db *PostgresDB) GetTask(ctx context.Context, id int64) (*models.Task, error) {
	task, err := scanTask(db.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if err != nil {
		return nil, wrap("get task", err)
	}
	return task, nil
}

func (db *PostgresDB) UpdateTask(ctx context.Context, task *models.Task) (*models.Task, error) {
	query := `
		UPDATE tasks
		SET assigned_to = $2, title = $3, description = $4, status = $5, priority = $6,
		    due_date = $7, completed = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + taskColumns

	updated, err := scanTask(db.pool.QueryRow(ctx, query,
		task.ID, task.AssignedTo, task.Title, task.Description,
		string(task.Status), string(task.Priority), task.DueDate, task.Completed,
	))
	if err != nil {
		return nil, wrapTask("update task", err)
	}
	return updated, nil
}

func (db *PostgresDB) ListTasksForUser(ctx context.Context, userID int64) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = $1 OR assigned_to = $1 ORDER BY created_at DESC, id DESC`

	rows, err := db.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, wrap("list tasks", err)
	}
	defer rows.Close()

	tasks := []*models.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, wrap("list tasks", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list tasks", err)
	}
	return tasks, nil
}
