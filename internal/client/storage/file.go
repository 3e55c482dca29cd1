package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/atinyakov/todosync/internal/models"
)

const (
	queueFile   = "queue.json"
	tasksFile   = "tasks.json"
	sessionFile = "session.json"
)

// FileStore keeps each part of the client state in its own JSON file under
// a directory. Every write replaces the file atomically.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

type sessionData struct {
	Token string `json:"token"`
}

// NewFileStore returns a FileStore rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) Enqueue(a models.SyncAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var actions []models.SyncAction
	if err := s.read(queueFile, &actions); err != nil {
		return err
	}
	return s.write(queueFile, append(actions, a))
}

func (s *FileStore) PeekAll() ([]models.SyncAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	actions := []models.SyncAction{}
	if err := s.read(queueFile, &actions); err != nil {
		return nil, err
	}
	if actions == nil {
		actions = []models.SyncAction{}
	}
	return actions, nil
}

func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(queueFile, []models.SyncAction{})
}

func (s *FileStore) Ack(n int, ids map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var actions []models.SyncAction
	if err := s.read(queueFile, &actions); err != nil {
		return err
	}
	return s.write(queueFile, ackActions(actions, n, ids))
}

func (s *FileStore) Load() ([]models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var tasks []models.Task
	if err := s.read(tasksFile, &tasks); err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	return tasks, nil
}

func (s *FileStore) Save(tasks []models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tasks == nil {
		tasks = []models.Task{}
	}
	return s.write(tasksFile, tasks)
}

func (s *FileStore) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sess sessionData
	if err := s.read(sessionFile, &sess); err != nil {
		return "", err
	}
	return sess.Token, nil
}

func (s *FileStore) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(sessionFile, sessionData{Token: token})
}

func (s *FileStore) ClearToken() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(filepath.Join(s.dir, sessionFile))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Close is a no-op; files are closed after every operation.
func (s *FileStore) Close() error {
	return nil
}

// read decodes name into v. A missing file leaves v untouched.
func (s *FileStore) read(name string, v any) error {
	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

// write encodes v into a temp file next to name and renames it into place,
// so readers never observe a partial file.
func (s *FileStore) write(name string, v any) error {
	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := json.NewEncoder(tmp).Encode(v); err != nil {
		tmp.Close()
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(s.dir, name))
}
