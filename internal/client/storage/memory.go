package storage

import (
	"slices"
	"sync"

	"github.com/atinyakov/todosync/internal/models"
)

// MemoryStore is a Store that lives only as long as the process.
type MemoryStore struct {
	mu      sync.Mutex
	actions []models.SyncAction
	tasks   []models.Task
	token   string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Enqueue(a models.SyncAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions = append(s.actions, a)
	return nil
}

func (s *MemoryStore) PeekAll() ([]models.SyncAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := slices.Clone(s.actions)
	if out == nil {
		out = []models.SyncAction{}
	}
	return out, nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions = nil
	return nil
}

func (s *MemoryStore) Ack(n int, ids map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions = ackActions(s.actions, n, ids)
	return nil
}

func (s *MemoryStore) Load() ([]models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := slices.Clone(s.tasks)
	if out == nil {
		out = []models.Task{}
	}
	return out, nil
}

func (s *MemoryStore) Save(tasks []models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = slices.Clone(tasks)
	return nil
}

func (s *MemoryStore) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

func (s *MemoryStore) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *MemoryStore) ClearToken() error {
	return s.SetToken("")
}

func (s *MemoryStore) Close() error {
	return nil
}
