package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/atinyakov/todosync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	out := map[string]Store{BackendMemory: NewMemoryStore()}

	fs, err := NewFileStore(filepath.Join(t.TempDir(), "file"))
	require.NoError(t, err)
	out[BackendFile] = fs

	ss, err := NewSQLiteStore(filepath.Join(t.TempDir(), "sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { ss.Close() })
	out[BackendSQLite] = ss

	return out
}

func TestStore_QueueOrderAndClear(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			empty, err := s.PeekAll()
			require.NoError(t, err)
			assert.Empty(t, empty)

			a1 := models.NewCreateAction(models.Task{ID: "client-1", Title: "a", Status: models.StatusPending})
			a2 := models.NewDeleteAction("client-1")
			require.NoError(t, s.Enqueue(a1))
			require.NoError(t, s.Enqueue(a2))

			got, err := s.PeekAll()
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, models.ActionCreate, got[0].Type)
			assert.Equal(t, models.ActionDelete, got[1].Type)
			assert.JSONEq(t, string(a1.Payload), string(got[0].Payload))

			again, err := s.PeekAll()
			require.NoError(t, err)
			assert.Len(t, again, 2, "PeekAll must not consume")

			require.NoError(t, s.Clear())
			got, err = s.PeekAll()
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestStore_AckRemapsRemaining(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Enqueue(models.NewCreateAction(models.Task{ID: "client-1", Title: "a"})))
			done := models.StatusCompleted
			require.NoError(t, s.Enqueue(models.NewUpdateAction("client-1", models.TaskChanges{Status: &done})))
			require.NoError(t, s.Enqueue(models.NewDeleteAction("srv-9")))

			require.NoError(t, s.Ack(1, map[string]string{"client-1": "srv-1"}))

			got, err := s.PeekAll()
			require.NoError(t, err)
			require.Len(t, got, 2)

			p, err := got[0].Decode()
			require.NoError(t, err)
			assert.Equal(t, "srv-1", p.ID)
			require.NotNil(t, p.Status)
			assert.Equal(t, models.StatusCompleted, *p.Status)

			p, err = got[1].Decode()
			require.NoError(t, err)
			assert.Equal(t, "srv-9", p.ID)

			require.NoError(t, s.Ack(10, nil))
			got, err = s.PeekAll()
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestStore_CacheRoundTrip(t *testing.T) {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			tasks, err := s.Load()
			require.NoError(t, err)
			assert.Empty(t, tasks)

			want := []models.Task{
				{ID: "b", Title: "second", Status: models.StatusPending, CreatedAt: created},
				{ID: "a", Title: "first", Description: "d", Status: models.StatusCompleted, CreatedAt: created},
			}
			require.NoError(t, s.Save(want))

			got, err := s.Load()
			require.NoError(t, err)
			assert.Equal(t, want, got)

			require.NoError(t, s.Save(want[:1]))
			got, err = s.Load()
			require.NoError(t, err)
			assert.Equal(t, want[:1], got)
		})
	}
}

func TestStore_Session(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			tok, err := s.Token()
			require.NoError(t, err)
			assert.Empty(t, tok)

			require.NoError(t, s.SetToken("t1"))
			require.NoError(t, s.SetToken("t2"))
			tok, err = s.Token()
			require.NoError(t, err)
			assert.Equal(t, "t2", tok)

			require.NoError(t, s.ClearToken())
			require.NoError(t, s.ClearToken())
			tok, err = s.Token()
			require.NoError(t, err)
			assert.Empty(t, tok)
		})
	}
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Enqueue(models.NewDeleteAction("x")))
	require.NoError(t, s.Save([]models.Task{{ID: "x", Title: "t"}}))

	reopened, err := NewFileStore(dir)
	require.NoError(t, err)
	q, err := reopened.PeekAll()
	require.NoError(t, err)
	assert.Len(t, q, 1)
	tasks, err := reopened.Load()
	require.NoError(t, err)
	assert.Len(t, tasks, 1)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotEqual(t, ".tmp", filepath.Ext(e.Name()), "temp file left behind: %s", e.Name())
	}
}

func TestFileStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, tasksFile), []byte("{not json"), 0o600))

	s, err := NewFileStore(dir)
	require.NoError(t, err)
	_, err = s.Load()
	assert.Error(t, err)
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := NewSQLiteStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Enqueue(models.NewDeleteAction("x")))
	require.NoError(t, s.SetToken("tok"))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	q, err := reopened.PeekAll()
	require.NoError(t, err)
	assert.Len(t, q, 1)
	tok, err := reopened.Token()
	require.NoError(t, err)
	assert.Equal(t, "tok", tok)
}

func TestOpen(t *testing.T) {
	s, err := Open(BackendMemory, "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open("", t.TempDir())
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	_, err = Open("bolt", t.TempDir())
	assert.ErrorIs(t, err, ErrUnknownBackend)
}

func TestAckActions_Bounds(t *testing.T) {
	actions := []models.SyncAction{models.NewDeleteAction("a"), models.NewDeleteAction("b")}
	assert.Len(t, ackActions(actions, -1, nil), 2)
	assert.Len(t, ackActions(actions, 1, nil), 1)
	assert.Empty(t, ackActions(actions, 5, nil))

	var raw map[string]string
	require.NoError(t, json.Unmarshal(ackActions(actions, 1, nil)[0].Payload, &raw))
	assert.Equal(t, "b", raw["_id"])
}
