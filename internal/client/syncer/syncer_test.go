package syncer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/atinyakov/todosync/internal/client/storage"
	"github.com/atinyakov/todosync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRemote struct {
	mu        sync.Mutex
	healthErr error
	syncFn    func(actions []models.SyncAction) (*SyncResponse, error)
	calls     int
}

func (f *fakeRemote) Health(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.healthErr
}

func (f *fakeRemote) Sync(_ context.Context, actions []models.SyncAction) (*SyncResponse, error) {
	f.mu.Lock()
	f.calls++
	fn := f.syncFn
	f.mu.Unlock()
	return fn(actions)
}

func newFixture(t *testing.T, remote *fakeRemote) (*Syncer, *storage.Local, *storage.MemoryStore) {
	t.Helper()
	mem := storage.NewMemoryStore()
	require.NoError(t, mem.SetToken("tok"))
	local := storage.NewLocal(mem)
	return New(remote, local, zap.NewNop()), local, mem
}

func createMilk(t *testing.T, local *storage.Local) {
	t.Helper()
	_, err := local.Record(models.NewCreateAction(models.Task{ID: "client-1", Title: "milk", Status: models.StatusPending}))
	require.NoError(t, err)
}

func TestSync_Offline(t *testing.T) {
	remote := &fakeRemote{healthErr: errors.New("no route")}
	s, local, mem := newFixture(t, remote)
	createMilk(t, local)

	res, err := s.Sync(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Offline)
	assert.Zero(t, remote.calls)

	q, _ := mem.PeekAll()
	assert.Len(t, q, 1)
}

func TestSync_EmptyQueue(t *testing.T) {
	remote := &fakeRemote{}
	s, _, _ := newFixture(t, remote)

	res, err := s.Sync(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Sent)
	assert.Zero(t, remote.calls)
}

func TestSync_FailureLeavesStateIntact(t *testing.T) {
	for name, syncErr := range map[string]error{
		"server":  &StatusError{Code: 500, Message: "sync failed"},
		"invalid": &StatusError{Code: 400, Message: "bad"},
		"network": errors.New("request failed: reset"),
	} {
		t.Run(name, func(t *testing.T) {
			remote := &fakeRemote{syncFn: func([]models.SyncAction) (*SyncResponse, error) { return nil, syncErr }}
			s, local, mem := newFixture(t, remote)
			createMilk(t, local)
			before, _ := mem.Load()

			_, err := s.Sync(context.Background())
			require.Error(t, err)

			q, _ := mem.PeekAll()
			assert.Len(t, q, 1)
			after, _ := mem.Load()
			assert.Equal(t, before, after)
			tok, _ := mem.Token()
			assert.Equal(t, "tok", tok)
		})
	}
}

func TestSync_UnauthorizedClearsToken(t *testing.T) {
	remote := &fakeRemote{syncFn: func([]models.SyncAction) (*SyncResponse, error) { return nil, ErrUnauthorized }}
	s, local, mem := newFixture(t, remote)
	createMilk(t, local)

	_, err := s.Sync(context.Background())
	require.ErrorIs(t, err, ErrUnauthorized)

	tok, _ := mem.Token()
	assert.Empty(t, tok)
	q, _ := mem.PeekAll()
	assert.Len(t, q, 1)
}

func TestSync_SuccessReplacesCacheAndClearsQueue(t *testing.T) {
	remote := &fakeRemote{syncFn: func(actions []models.SyncAction) (*SyncResponse, error) {
		return &SyncResponse{
			Tasks: []models.Task{{ID: "srv-1", Title: "milk", Status: models.StatusPending}},
			IDs:   map[string]string{"client-1": "srv-1"},
		}, nil
	}}
	s, local, mem := newFixture(t, remote)
	createMilk(t, local)

	res, err := s.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, "srv-1", res.IDs["client-1"])

	q, _ := mem.PeekAll()
	assert.Empty(t, q)
	cached, _ := mem.Load()
	require.Len(t, cached, 1)
	assert.Equal(t, "srv-1", cached[0].ID)
}

func TestSync_SingleFlightAndNoLostMutations(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	remote := &fakeRemote{syncFn: func(actions []models.SyncAction) (*SyncResponse, error) {
		close(entered)
		<-release
		return &SyncResponse{
			Tasks: []models.Task{{ID: "srv-1", Title: "milk", Status: models.StatusPending}},
			IDs:   map[string]string{"client-1": "srv-1"},
		}, nil
	}}
	s, local, mem := newFixture(t, remote)
	createMilk(t, local)

	done := make(chan Result)
	go func() {
		res, _ := s.Sync(context.Background())
		done <- res
	}()
	<-entered

	res, err := s.Sync(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Skipped)

	done2 := models.StatusCompleted
	_, err = local.Record(models.NewUpdateAction("client-1", models.TaskChanges{Status: &done2}))
	require.NoError(t, err)

	close(release)
	first := <-done
	assert.Equal(t, 1, first.Sent)

	q, _ := mem.PeekAll()
	require.Len(t, q, 1)
	p, err := q[0].Decode()
	require.NoError(t, err)
	assert.Equal(t, "srv-1", p.ID)

	cached, _ := mem.Load()
	require.Len(t, cached, 1)
	assert.Equal(t, models.StatusCompleted, cached[0].Status)
	assert.Equal(t, 1, remote.calls)
}

func TestRun_SyncsOnTrigger(t *testing.T) {
	synced := make(chan Result, 4)
	remote := &fakeRemote{syncFn: func(actions []models.SyncAction) (*SyncResponse, error) {
		return &SyncResponse{Tasks: []models.Task{}, IDs: map[string]string{}}, nil
	}}
	s, local, _ := newFixture(t, remote)
	s.OnResult = func(r Result, err error) {
		if r.Sent > 0 {
			synced <- r
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.StartAutoSync(ctx, time.Hour)

	createMilk(t, local)
	s.Trigger()

	select {
	case r := <-synced:
		assert.Equal(t, 1, r.Sent)
	case <-time.After(2 * time.Second):
		t.Fatal("triggered sync did not happen")
	}
}

func TestTrigger_NeverBlocks(t *testing.T) {
	s := New(&fakeRemote{}, storage.NewLocal(storage.NewMemoryStore()), nil)
	for i := 0; i < 10; i++ {
		s.Trigger()
	}
}
