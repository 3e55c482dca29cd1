// Package service provides the business logic of the task service: batch
// reconciliation of offline client queues, plain task CRUD and account
// management, delegating persistence to store interfaces.
package service

import (
	"context"

	"github.com/atinyakov/todosync/internal/models"
)

// TaskStore is the durable document store holding every user's tasks.
// Every operation is scoped by the owner carried in the filter or argument.
type TaskStore interface {
	// Find returns the tasks matching f, most recently created first.
	Find(ctx context.Context, f models.TaskFilter) ([]models.Task, error)
	// Insert stores a new task owned by owner and returns it with its
	// durable identifier and timestamps.
	Insert(ctx context.Context, owner string, d models.TaskDraft) (models.Task, error)
	// UpdateMatching merges c into every task matching f and returns the
	// number of tasks affected.
	UpdateMatching(ctx context.Context, f models.TaskFilter, c models.TaskChanges) (int64, error)
}

// TxTaskStore is a TaskStore able to run a group of operations atomically.
type TxTaskStore interface {
	TaskStore
	// InTx runs fn against a store bound to a single transaction. The
	// transaction is committed when fn returns nil and rolled back otherwise.
	InTx(ctx context.Context, fn func(TaskStore) error) error
}

// UserStore persists user accounts.
type UserStore interface {
	// CreateUser stores u. It returns ErrEmailTaken when the email is in use.
	CreateUser(ctx context.Context, u models.User) error
	// GetUserByEmail returns ErrNotFound when no user has that email.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// GetUserByID returns ErrNotFound when no user has that id.
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}
