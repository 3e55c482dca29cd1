package http

import (
	"context"
	"net/http"

	"github.com/atinyakov/todosync/internal/middleware"
	"github.com/atinyakov/todosync/internal/models"
	"github.com/go-chi/chi/v5"
)

// TaskService defines the per-task operations required by TaskHandler.
type TaskService interface {
	List(ctx context.Context, owner string, status models.Status, query string) ([]models.Task, error)
	Create(ctx context.Context, owner, title, description string) (*models.Task, error)
	Get(ctx context.Context, owner, id string) (*models.Task, error)
	Update(ctx context.Context, owner, id string, c models.TaskChanges) (*models.Task, error)
	Delete(ctx context.Context, owner, id string) error
}

// TaskHandler serves the online, one-task-at-a-time endpoints.
type TaskHandler struct {
	TaskService TaskService
}

type createTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type updateTaskRequest struct {
	Title       *string        `json:"title"`
	Description *string        `json:"description"`
	Status      *models.Status `json:"status"`
}

// List handles GET /api/tasks?status=&q=.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tasks, err := h.TaskService.List(r.Context(),
		middleware.GetUserIDFromContext(r.Context()),
		models.Status(q.Get("status")),
		q.Get("q"),
	)
	if err != nil {
		writeError(w, err, "failed to list tasks")
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// Create handles POST /api/tasks.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := decodeBody(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request")
		return
	}
	task, err := h.TaskService.Create(r.Context(), middleware.GetUserIDFromContext(r.Context()), req.Title, req.Description)
	if err != nil {
		writeError(w, err, "failed to create task")
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// Get handles GET /api/tasks/{id}.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	task, err := h.TaskService.Get(r.Context(), middleware.GetUserIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err, "failed to get task")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// Update handles PUT /api/tasks/{id}. Absent fields are left unchanged.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateTaskRequest
	if err := decodeBody(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request")
		return
	}
	task, err := h.TaskService.Update(r.Context(),
		middleware.GetUserIDFromContext(r.Context()),
		chi.URLParam(r, "id"),
		models.TaskChanges{Title: req.Title, Description: req.Description, Status: req.Status},
	)
	if err != nil {
		writeError(w, err, "failed to update task")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// Delete handles DELETE /api/tasks/{id}. The task is soft-deleted.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.TaskService.Delete(r.Context(), middleware.GetUserIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err, "failed to delete task")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
