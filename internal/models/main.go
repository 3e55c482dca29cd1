// Package models defines the core data structures for users, tasks and
// queued sync actions shared by the server and the offline client.
package models

import (
	"strings"
	"time"
)

// TempIDPrefix marks identifiers issued by the client before a task has
// been persisted by the server.
const TempIDPrefix = "client-"

// IsTemporaryID reports whether id was issued by a client and has not
// yet been replaced by a durable identifier.
func IsTemporaryID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}

// User represents an application user with credentials.
type User struct {
	// ID is the unique identifier for the user.
	ID string `json:"id"`
	// Name is the display name chosen at registration.
	Name string `json:"name"`
	// Email is the lower-cased login of the user.
	Email string `json:"email"`
	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash []byte `json:"-"`
	// CreatedAt is the moment the account was created.
	CreatedAt time.Time `json:"createdAt"`
}

// Status is the completion state of a task.
type Status string

const (
	// StatusPending is the default state of a new task.
	StatusPending Status = "Pending"
	// StatusCompleted marks a finished task.
	StatusCompleted Status = "Completed"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusCompleted
}

// Task is a single user-owned to-do item.
type Task struct {
	// ID is the durable identifier, or a temporary one on the client
	// until the first successful sync.
	ID string `json:"_id"`
	// Owner is the identifier of the owning user. It never changes.
	Owner string `json:"user,omitempty"`
	// Title is the non-empty task title.
	Title string `json:"title"`
	// Description is optional free text.
	Description string `json:"description"`
	// Status is Pending or Completed.
	Status Status `json:"status"`
	// Deleted is the soft-delete flag.
	Deleted bool `json:"isDeleted"`
	// CreatedAt and UpdatedAt are assigned by the durable store.
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	// ClientRef is the temporary identifier the task was created from.
	ClientRef string `json:"-"`
}

// TaskDraft carries the fields of a task that is about to be inserted.
type TaskDraft struct {
	Title       string
	Description string
	Status      Status
	// ClientRef is the temporary identifier of the originating create
	// action, empty for tasks created directly over REST.
	ClientRef string
}

// TaskChanges is a partial set of fields to merge into a stored task.
// Nil fields are left untouched.
type TaskChanges struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *Status `json:"status,omitempty"`
	Deleted     *bool   `json:"isDeleted,omitempty"`
}

// Empty reports whether no field is set.
func (c TaskChanges) Empty() bool {
	return c.Title == nil && c.Description == nil && c.Status == nil && c.Deleted == nil
}

// Apply merges the changes into t and returns the result.
func (c TaskChanges) Apply(t Task) Task {
	if c.Title != nil {
		t.Title = *c.Title
	}
	if c.Description != nil {
		t.Description = *c.Description
	}
	if c.Status != nil {
		t.Status = *c.Status
	}
	if c.Deleted != nil {
		t.Deleted = *c.Deleted
	}
	return t
}

// TaskFilter selects tasks of a single owner.
type TaskFilter struct {
	// Owner is mandatory; every store query is scoped by it.
	Owner string
	// ID restricts the match to a single task.
	ID string
	// ClientRef restricts the match to tasks created from a temporary id.
	ClientRef string
	// ActiveOnly excludes soft-deleted tasks.
	ActiveOnly bool
	// Status, when set, restricts the match to that status.
	Status Status
	// Search is a case-insensitive substring of title or description.
	Search string
}
