package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"taskchat/internal/apperr"
	"taskchat/internal/database"
	"taskchat/internal/models"
	"taskchat/pkg/logger"
)

type TaskService struct {
	tasks         database.TaskRepository
	notifications *NotificationService
}

func NewTaskService(tasks database.TaskRepository, notifications *NotificationService) *TaskService {
	return &TaskService{
		tasks:         tasks,
		notifications: notifications,
	}
}

type pendingNotification struct {
	userID  int64
	typ     models.NotificationType
	message string
}

func (s *TaskService) List(ctx context.Context, actor models.Identity) ([]*models.Task, error) {
	return s.tasks.ListTasksForUser(ctx, actor.UserID)
}

// Create stores a task owned by actor. A publish failure is returned
// alongside the committed task.
func (s *TaskService) Create(ctx context.Context, actor models.Identity, req *models.CreateTaskRequest) (*models.Task, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperr.Validation("create task", "title is required")
	}
	priority := req.Priority
	if priority == "" {
		priority = models.TaskPriorityMedium
	}
	if !priority.Valid() {
		return nil, apperr.Validation("create task", "invalid priority")
	}
	if req.AssignedTo != nil && *req.AssignedTo <= 0 {
		return nil, apperr.Validation("create task", "invalid assignee")
	}

	task, err := s.tasks.CreateTask(ctx, &models.Task{
		UserID:      actor.UserID,
		AssignedTo:  req.AssignedTo,
		Title:       title,
		Description: req.Description,
		Status:      models.TaskStatusTodo,
		Priority:    priority,
		DueDate:     req.DueDate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	var pending []pendingNotification
	if task.AssignedTo != nil && *task.AssignedTo != actor.UserID {
		pending = append(pending, pendingNotification{
			userID:  *task.AssignedTo,
			typ:     models.NotificationTaskAssigned,
			message: fmt.Sprintf("%s assigned you to %q", actor.Username, task.Title),
		})
	}
	return task, s.publish(ctx, task, pending)
}

// Update applies req to a task the actor owns or is assigned to and
// notifies the other parties of what changed. The update commits before
// any notification is published.
func (s *TaskService) Update(ctx context.Context, actor models.Identity, taskID int64, req *models.UpdateTaskRequest) (*models.Task, error) {
	old, err := s.tasks.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !isParty(old, actor.UserID) {
		return nil, apperr.NotFound("update task", "task not found")
	}

	next := *old
	if err := applyUpdate(&next, req); err != nil {
		return nil, err
	}

	updated, err := s.tasks.UpdateTask(ctx, &next)
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	return updated, s.publish(ctx, updated, diffTask(old, updated, actor))
}

func applyUpdate(t *models.Task, req *models.UpdateTaskRequest) error {
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return apperr.Validation("update task", "title is required")
		}
		t.Title = title
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if req.Priority != nil {
		if !req.Priority.Valid() {
			return apperr.Validation("update task", "invalid priority")
		}
		t.Priority = *req.Priority
	}
	if req.AssignedTo != nil {
		if *req.AssignedTo <= 0 {
			return apperr.Validation("update task", "invalid assignee")
		}
		assignee := *req.AssignedTo
		t.AssignedTo = &assignee
	}
	if req.DueDate != nil {
		due := *req.DueDate
		t.DueDate = &due
	}

	// Status and the completed flag move together.
	switch {
	case req.Status != nil:
		if !req.Status.Valid() {
			return apperr.Validation("update task", "invalid status")
		}
		t.Status = *req.Status
		t.Completed = t.Status == models.TaskStatusDone
	case req.Completed != nil:
		t.Completed = *req.Completed
		if t.Completed {
			t.Status = models.TaskStatusDone
		} else if t.Status == models.TaskStatusDone {
			t.Status = models.TaskStatusTodo
		}
	}
	return nil
}

// diffTask lists the notifications owed to parties other than the actor.
func diffTask(old, updated *models.Task, actor models.Identity) []pendingNotification {
	var out []pendingNotification
	others := func(typ models.NotificationType, message string) {
		for _, id := range updated.Parties() {
			if id != actor.UserID {
				out = append(out, pendingNotification{userID: id, typ: typ, message: message})
			}
		}
	}

	if updated.AssignedTo != nil && !sameID(old.AssignedTo, updated.AssignedTo) && *updated.AssignedTo != actor.UserID {
		out = append(out, pendingNotification{
			userID:  *updated.AssignedTo,
			typ:     models.NotificationTaskAssigned,
			message: fmt.Sprintf("%s assigned you to %q", actor.Username, updated.Title),
		})
	}
	if old.Status != updated.Status {
		others(models.NotificationTaskStatusChanged,
			fmt.Sprintf("%s moved %q from %s to %s", actor.Username, updated.Title, old.Status, updated.Status))
	}
	if !old.Completed && updated.Completed {
		others(models.NotificationTaskCompleted,
			fmt.Sprintf("%s completed %q", actor.Username, updated.Title))
	}
	if old.Priority != updated.Priority {
		others(models.NotificationTaskPriorityChanged,
			fmt.Sprintf("%s changed the priority of %q to %s", actor.Username, updated.Title, updated.Priority))
	}
	if updated.DueDate != nil && !sameDueDate(old, updated) {
		others(models.NotificationTaskDueDateChanged,
			fmt.Sprintf("%s moved the due date of %q to %s", actor.Username, updated.Title, updated.DueDate.Format("2006-01-02")))
	}
	return out
}

// publish sends every pending notification and joins the failures.
func (s *TaskService) publish(ctx context.Context, task *models.Task, pending []pendingNotification) error {
	if s.notifications == nil || len(pending) == 0 {
		return nil
	}
	var errs []error
	for _, p := range pending {
		if _, err := s.notifications.Publish(ctx, p.userID, task.ID, p.typ, p.message); err != nil {
			logger.Error("Error publishing %s for task %d to user %d: %v", p.typ, task.ID, p.userID, err)
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("task %d saved but notifications failed: %w", task.ID, err)
	}
	return nil
}

func isParty(t *models.Task, userID int64) bool {
	return t.UserID == userID || (t.AssignedTo != nil && *t.AssignedTo == userID)
}

func sameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sameDueDate(old, updated *models.Task) bool {
	a, b := old.DueDate, updated.DueDate
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
