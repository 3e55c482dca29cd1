// Package storage persists the offline client's state: the last known task
// list, the queue of pending sync actions and the session token.
package storage

import (
	"errors"
	"fmt"

	"github.com/atinyakov/todosync/internal/models"
)

// Queue is the durable, ordered log of actions not yet accepted by the
// server. It never reorders or deduplicates.
type Queue interface {
	// Enqueue appends a to the end of the queue.
	Enqueue(a models.SyncAction) error
	// PeekAll returns every queued action in enqueue order without
	// removing anything.
	PeekAll() ([]models.SyncAction, error)
	// Clear empties the queue.
	Clear() error
	// Ack removes the first n actions and rewrites temporary identifiers
	// in the remaining ones using ids.
	Ack(n int, ids map[string]string) error
}

// Cache holds the last known task list.
type Cache interface {
	// Load returns the cached list, empty if nothing was saved yet.
	Load() ([]models.Task, error)
	// Save replaces the cached list.
	Save(tasks []models.Task) error
}

// Session holds the bearer token of the logged in user.
type Session interface {
	Token() (string, error)
	SetToken(token string) error
	ClearToken() error
}

// Store is everything the client keeps between runs.
type Store interface {
	Queue
	Cache
	Session
	Close() error
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// ErrUnknownBackend is returned by Open for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown storage backend")

// Open returns the Store named by backend rooted at dir.
func Open(backend, dir string) (Store, error) {
	switch backend {
	case BackendFile, "":
		return NewFileStore(dir)
	case BackendSQLite:
		return NewSQLiteStore(dir)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

// ackActions returns what is left of actions once the first n have been
// accepted, with identifiers remapped.
func ackActions(actions []models.SyncAction, n int, ids map[string]string) []models.SyncAction {
	if n > len(actions) {
		n = len(actions)
	}
	if n < 0 {
		n = 0
	}
	rest := make([]models.SyncAction, len(actions)-n)
	copy(rest, actions[n:])
	return models.RemapActions(rest, ids)
}
