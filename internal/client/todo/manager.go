// Package todo implements the client's optimistic task operations. Every
// mutation is applied to the local cache at once and queued for sync.
package todo

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/atinyakov/todosync/internal/client/storage"
	"github.com/atinyakov/todosync/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrEmptyTitle is returned when a title is blank after trimming.
	ErrEmptyTitle = errors.New("title is required")
	// ErrNotFound is returned for an identifier absent from the cache.
	ErrNotFound = errors.New("task not found")
)

// Filter selects tasks by status.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterPending   Filter = "pending"
	FilterCompleted Filter = "completed"
)

// Syncer is notified after every recorded mutation.
type Syncer interface {
	Trigger()
}

// Fetcher loads the server's current list.
type Fetcher interface {
	ListTasks(ctx context.Context) ([]models.Task, error)
}

// Manager performs task operations against the local state.
type Manager struct {
	local  *storage.Local
	syncer Syncer
	log    *zap.Logger
	newID  func() string
}

// NewManager returns a Manager. syncer may be nil.
func NewManager(local *storage.Local, syncer Syncer, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		local:  local,
		syncer: syncer,
		log:    log,
		newID:  func() string { return models.TempIDPrefix + uuid.NewString() },
	}
}

// Add creates a pending task under a temporary identifier.
func (m *Manager) Add(title, description string) (models.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return models.Task{}, ErrEmptyTitle
	}
	t := models.Task{
		ID:          m.newID(),
		Title:       title,
		Description: strings.TrimSpace(description),
		Status:      models.StatusPending,
	}
	tasks, err := m.record(models.NewCreateAction(t))
	if err != nil {
		return models.Task{}, err
	}
	return find(tasks, t.ID)
}

// Toggle flips a task between Pending and Completed.
func (m *Manager) Toggle(id string) (models.Task, error) {
	t, err := m.Get(id)
	if err != nil {
		return models.Task{}, err
	}
	next := models.StatusCompleted
	if t.Status == models.StatusCompleted {
		next = models.StatusPending
	}
	return m.update(id, models.TaskChanges{Status: &next})
}

// Edit replaces the title and, when description is non-nil, the description.
func (m *Manager) Edit(id, title string, description *string) (models.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return models.Task{}, ErrEmptyTitle
	}
	if _, err := m.Get(id); err != nil {
		return models.Task{}, err
	}
	c := models.TaskChanges{Title: &title}
	if description != nil {
		d := strings.TrimSpace(*description)
		c.Description = &d
	}
	return m.update(id, c)
}

// Delete soft-deletes a task.
func (m *Manager) Delete(id string) error {
	if _, err := m.Get(id); err != nil {
		return err
	}
	_, err := m.record(models.NewDeleteAction(id))
	return err
}

// Get returns an active cached task.
func (m *Manager) Get(id string) (models.Task, error) {
	tasks, err := m.local.Tasks()
	if err != nil {
		return models.Task{}, err
	}
	return find(tasks, id)
}

// List returns active cached tasks matching filter whose title or
// description contains search, case-insensitively.
func (m *Manager) List(filter Filter, search string) ([]models.Task, error) {
	tasks, err := m.local.Tasks()
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(search))

	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Deleted {
			continue
		}
		switch filter {
		case FilterPending:
			if t.Status != models.StatusPending {
				continue
			}
		case FilterCompleted:
			if t.Status != models.StatusCompleted {
				continue
			}
		}
		if q != "" && !strings.Contains(strings.ToLower(t.Title), q) && !strings.Contains(strings.ToLower(t.Description), q) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// Refresh replaces the cache with the server's list, keeping queued
// actions applied on top. When the server cannot be reached the cached
// list is returned together with the fetch error.
func (m *Manager) Refresh(ctx context.Context, f Fetcher) ([]models.Task, error) {
	remote, err := f.ListTasks(ctx)
	if err != nil {
		m.log.Warn("using cached tasks", zap.Error(err))
		cached, cerr := m.local.Tasks()
		if cerr != nil {
			return nil, cerr
		}
		return cached, err
	}
	tasks, err := m.local.Reset(remote)
	if err != nil {
		return nil, err
	}
	if pending, _ := m.local.Pending(); len(pending) > 0 && m.syncer != nil {
		m.syncer.Trigger()
	}
	return tasks, nil
}

func (m *Manager) update(id string, c models.TaskChanges) (models.Task, error) {
	tasks, err := m.record(models.NewUpdateAction(id, c))
	if err != nil {
		return models.Task{}, err
	}
	return find(tasks, id)
}

func (m *Manager) record(a models.SyncAction) ([]models.Task, error) {
	tasks, err := m.local.Record(a)
	if err != nil {
		return nil, err
	}
	if m.syncer != nil {
		m.syncer.Trigger()
	}
	return tasks, nil
}

func find(tasks []models.Task, id string) (models.Task, error) {
	i := slices.IndexFunc(tasks, func(t models.Task) bool { return t.ID == id && !t.Deleted })
	if i < 0 {
		return models.Task{}, ErrNotFound
	}
	return tasks[i], nil
}
