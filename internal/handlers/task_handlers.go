package handlers

import (
	"net/http"

	"taskchat/internal/models"
	"taskchat/internal/services"
	"taskchat/pkg/logger"
)

type TaskHandlers struct {
	tasks *services.TaskService
}

func NewTaskHandlers(tasks *services.TaskService) *TaskHandlers {
	return &TaskHandlers{tasks: tasks}
}

func (h *TaskHandlers) List(w http.ResponseWriter, r *http.Request) {
	user, _ := IdentityFrom(r.Context())

	tasks, err := h.tasks.List(r.Context(), user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandlers) Create(w http.ResponseWriter, r *http.Request) {
	user, _ := IdentityFrom(r.Context())

	var req models.CreateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	task, err := h.tasks.Create(r.Context(), user, &req)
	if err != nil {
		if task != nil {
			logger.Warn("Task %d created with notification errors", task.ID)
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (h *TaskHandlers) Update(w http.ResponseWriter, r *http.Request) {
	user, _ := IdentityFrom(r.Context())

	taskID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req models.UpdateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	task, err := h.tasks.Update(r.Context(), user, taskID, &req)
	if err != nil {
		if task != nil {
			logger.Warn("Task %d updated with notification errors", task.ID)
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}
