package service

import (
	"context"
	"strings"

	"github.com/atinyakov/todosync/internal/models"
)

// TaskService implements the direct (online) task operations.
type TaskService struct {
	// store is the underlying persistence repository.
	store TaskStore
}

// NewTaskService constructs a TaskService with the provided TaskStore.
func NewTaskService(store TaskStore) *TaskService {
	return &TaskService{store: store}
}

// List returns the owner's active tasks, newest first, optionally
// restricted to a status and to tasks whose title or description
// contains query.
func (s *TaskService) List(ctx context.Context, owner string, status models.Status, query string) ([]models.Task, error) {
	if owner == "" {
		return nil, ErrUnauthorized
	}
	if status != "" && !status.Valid() {
		return nil, invalidf("invalid status %q", status)
	}

	tasks, err := s.store.Find(ctx, models.TaskFilter{
		Owner:      owner,
		ActiveOnly: true,
		Status:     status,
		Search:     strings.TrimSpace(query),
	})
	if err != nil {
		return nil, &StoreError{Op: "list tasks", Err: err}
	}
	return tasks, nil
}

// Create stores a new pending task.
func (s *TaskService) Create(ctx context.Context, owner, title, description string) (*models.Task, error) {
	if owner == "" {
		return nil, ErrUnauthorized
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, invalidf("title is required")
	}

	task, err := s.store.Insert(ctx, owner, models.TaskDraft{
		Title:       title,
		Description: strings.TrimSpace(description),
		Status:      models.StatusPending,
	})
	if err != nil {
		return nil, &StoreError{Op: "create task", Err: err}
	}
	return &task, nil
}

// Get returns one active task of the owner.
func (s *TaskService) Get(ctx context.Context, owner, id string) (*models.Task, error) {
	if owner == "" {
		return nil, ErrUnauthorized
	}
	tasks, err := s.store.Find(ctx, models.TaskFilter{Owner: owner, ID: id, ActiveOnly: true})
	if err != nil {
		return nil, &StoreError{Op: "get task", Err: err}
	}
	if len(tasks) == 0 {
		return nil, ErrNotFound
	}
	return &tasks[0], nil
}

// Update merges c into one active task of the owner and returns the result.
// Ownership and the soft-delete flag cannot be changed this way.
func (s *TaskService) Update(ctx context.Context, owner, id string, c models.TaskChanges) (*models.Task, error) {
	if owner == "" {
		return nil, ErrUnauthorized
	}
	c.Deleted = nil
	if c.Title != nil {
		t := strings.TrimSpace(*c.Title)
		if t == "" {
			return nil, invalidf("title cannot be empty")
		}
		c.Title = &t
	}
	if c.Status != nil && !c.Status.Valid() {
		return nil, invalidf("invalid status %q", *c.Status)
	}

	n, err := s.store.UpdateMatching(ctx, models.TaskFilter{Owner: owner, ID: id, ActiveOnly: true}, c)
	if err != nil {
		return nil, &StoreError{Op: "update task", Err: err}
	}
	if n == 0 && !c.Empty() {
		return nil, ErrNotFound
	}
	return s.Get(ctx, owner, id)
}

// Delete soft-deletes one task of the owner.
func (s *TaskService) Delete(ctx context.Context, owner, id string) error {
	if owner == "" {
		return ErrUnauthorized
	}
	deleted := true
	n, err := s.store.UpdateMatching(ctx, models.TaskFilter{Owner: owner, ID: id}, models.TaskChanges{Deleted: &deleted})
	if err != nil {
		return &StoreError{Op: "delete task", Err: err}
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
