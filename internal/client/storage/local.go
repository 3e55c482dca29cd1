package storage

import (
	"slices"
	"sync"
	"time"

	"github.com/atinyakov/todosync/internal/models"
)

// Local pairs the cache with the queue so that a mutation is either both
// applied to the cached list and queued, or neither.
type Local struct {
	mu    sync.Mutex
	store Store
	now   func() time.Time
}

// NewLocal wraps store.
func NewLocal(store Store) *Local {
	return &Local{store: store, now: time.Now}
}

// Store returns the wrapped store.
func (l *Local) Store() Store {
	return l.store
}

// Tasks returns the cached list, soft-deleted entries included.
func (l *Local) Tasks() ([]models.Task, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.Load()
}

// Pending returns the queued actions.
func (l *Local) Pending() ([]models.SyncAction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.PeekAll()
}

// Record applies a to the cached list and appends it to the queue. If the
// queue cannot be written the previous list is restored.
func (l *Local) Record(a models.SyncAction) ([]models.Task, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	before, err := l.store.Load()
	if err != nil {
		return nil, err
	}
	after := ApplyAction(slices.Clone(before), a, l.now())
	if err := l.store.Save(after); err != nil {
		return nil, err
	}
	if err := l.store.Enqueue(a); err != nil {
		_ = l.store.Save(before)
		return nil, err
	}
	return after, nil
}

// Commit records a successful sync of the first n queued actions: the
// cached list becomes server with every still-queued action re-applied on
// top, and the shipped actions leave the queue.
func (l *Local) Commit(n int, ids map[string]string, server []models.Task) ([]models.Task, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	queued, err := l.store.PeekAll()
	if err != nil {
		return nil, err
	}
	rest := ackActions(queued, n, ids)

	tasks := slices.Clone(server)
	if tasks == nil {
		tasks = []models.Task{}
	}
	now := l.now()
	for _, a := range rest {
		tasks = ApplyAction(tasks, a, now)
	}

	if err := l.store.Save(tasks); err != nil {
		return nil, err
	}
	if n > 0 || len(ids) > 0 {
		if err := l.store.Ack(n, ids); err != nil {
			return nil, err
		}
	}
	return tasks, nil
}

// Reset replaces the cached list with server, keeping queued actions
// applied on top.
func (l *Local) Reset(server []models.Task) ([]models.Task, error) {
	return l.Commit(0, nil, server)
}

// ApplyAction applies a to tasks the way the server will: creates are
// prepended, updates merge fields and deletes set the soft-delete flag.
// Actions on unknown identifiers are ignored.
func ApplyAction(tasks []models.Task, a models.SyncAction, now time.Time) []models.Task {
	p, err := a.Decode()
	if err != nil {
		return tasks
	}
	i := slices.IndexFunc(tasks, func(t models.Task) bool { return t.ID == p.ID })

	switch a.Type {
	case models.ActionCreate:
		if i >= 0 || p.ID == "" {
			return tasks
		}
		t := models.Task{ID: p.ID, Status: models.StatusPending, CreatedAt: now, UpdatedAt: now}
		t = p.Changes().Apply(t)
		return append([]models.Task{t}, tasks...)

	case models.ActionUpdate:
		if i < 0 {
			return tasks
		}
		tasks[i] = p.Changes().Apply(tasks[i])
		tasks[i].UpdatedAt = now

	case models.ActionDelete:
		if i < 0 {
			return tasks
		}
		tasks[i].Deleted = true
		tasks[i].UpdatedAt = now
	}
	return tasks
}
