package repository

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/atinyakov/todosync/internal/models"
	"github.com/atinyakov/todosync/internal/service"
	"github.com/google/uuid"
)

// MemoryTaskRepository is an in-process service.TxTaskStore. It is used
// when the server runs without a database and in tests.
type MemoryTaskRepository struct {
	mu    sync.Mutex
	tasks []memTask
	seq   int64
	now   func() time.Time
}

type memTask struct {
	models.Task
	seq int64
}

// NewMemoryTaskRepository returns an empty in-memory task store.
func NewMemoryTaskRepository() *MemoryTaskRepository {
	return &MemoryTaskRepository{now: time.Now}
}

// Find returns the tasks matching f, newest first.
func (r *MemoryTaskRepository) Find(ctx context.Context, f models.TaskFilter) ([]models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.find(f), nil
}

// Insert stores a new task owned by owner.
func (r *MemoryTaskRepository) Insert(ctx context.Context, owner string, d models.TaskDraft) (models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insert(owner, d), nil
}

// UpdateMatching merges c into the tasks matching f.
func (r *MemoryTaskRepository) UpdateMatching(ctx context.Context, f models.TaskFilter, c models.TaskChanges) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.update(f, c), nil
}

// InTx runs fn with exclusive access to the store and restores the
// previous contents if fn fails.
func (r *MemoryTaskRepository) InTx(ctx context.Context, fn func(service.TaskStore) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := slices.Clone(r.tasks)
	seq := r.seq
	if err := fn(memTx{r}); err != nil {
		r.tasks = snapshot
		r.seq = seq
		return err
	}
	return nil
}

// memTx exposes the unlocked operations while InTx holds the lock.
type memTx struct {
	r *MemoryTaskRepository
}

func (t memTx) Find(ctx context.Context, f models.TaskFilter) ([]models.Task, error) {
	return t.r.find(f), nil
}

func (t memTx) Insert(ctx context.Context, owner string, d models.TaskDraft) (models.Task, error) {
	return t.r.insert(owner, d), nil
}

func (t memTx) UpdateMatching(ctx context.Context, f models.TaskFilter, c models.TaskChanges) (int64, error) {
	return t.r.update(f, c), nil
}

func matches(t models.Task, f models.TaskFilter) bool {
	if t.Owner != f.Owner {
		return false
	}
	if f.ID != "" && t.ID != f.ID {
		return false
	}
	if f.ClientRef != "" && t.ClientRef != f.ClientRef {
		return false
	}
	if f.ActiveOnly && t.Deleted {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(t.Title), q) && !strings.Contains(strings.ToLower(t.Description), q) {
			return false
		}
	}
	return true
}

func (r *MemoryTaskRepository) find(f models.TaskFilter) []models.Task {
	var hits []memTask
	for _, t := range r.tasks {
		if matches(t.Task, f) {
			hits = append(hits, t)
		}
	}
	slices.SortFunc(hits, func(a, b memTask) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return int(b.seq - a.seq)
	})

	out := make([]models.Task, 0, len(hits))
	for _, t := range hits {
		out = append(out, t.Task)
	}
	return out
}

func (r *MemoryTaskRepository) insert(owner string, d models.TaskDraft) models.Task {
	now := r.now().UTC()
	r.seq++
	t := models.Task{
		ID:          uuid.NewString(),
		Owner:       owner,
		Title:       d.Title,
		Description: d.Description,
		Status:      d.Status,
		ClientRef:   d.ClientRef,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if t.Status == "" {
		t.Status = models.StatusPending
	}
	r.tasks = append(r.tasks, memTask{Task: t, seq: r.seq})
	return t
}

func (r *MemoryTaskRepository) update(f models.TaskFilter, c models.TaskChanges) int64 {
	if c.Empty() {
		return 0
	}
	var n int64
	for i := range r.tasks {
		if !matches(r.tasks[i].Task, f) {
			continue
		}
		r.tasks[i].Task = c.Apply(r.tasks[i].Task)
		r.tasks[i].UpdatedAt = r.now().UTC()
		n++
	}
	return n
}

// MemoryUserRepository is an in-process service.UserStore.
type MemoryUserRepository struct {
	mu    sync.Mutex
	users map[string]models.User
}

// NewMemoryUserRepository returns an empty in-memory user store.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]models.User)}
}

// CreateUser stores u unless its email is already registered.
func (r *MemoryUserRepository) CreateUser(ctx context.Context, u models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return service.ErrEmailTaken
		}
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	r.users[u.ID] = u
	return nil
}

// GetUserByEmail returns the user registered with email.
func (r *MemoryUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, service.ErrNotFound
}

// GetUserByID returns the user with the given id.
func (r *MemoryUserRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, service.ErrNotFound
	}
	return &u, nil
}
