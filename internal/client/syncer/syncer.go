package syncer

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/atinyakov/todosync/internal/client/storage"
	"github.com/atinyakov/todosync/internal/models"
	"go.uber.org/zap"
)

// Remote is the part of the API the Syncer needs.
type Remote interface {
	Health(ctx context.Context) error
	Sync(ctx context.Context, actions []models.SyncAction) (*SyncResponse, error)
}

// Result describes one sync attempt.
type Result struct {
	// Skipped is set when another attempt was already in flight.
	Skipped bool
	// Offline is set when the connectivity probe failed.
	Offline bool
	// Sent is the number of actions accepted by the server.
	Sent int
	// Tasks is the cached list after a successful attempt.
	Tasks []models.Task
	// IDs maps temporary identifiers to durable ones.
	IDs map[string]string
}

// Syncer replays the queue against the server. At most one attempt runs at
// a time.
type Syncer struct {
	remote  Remote
	local   *storage.Local
	log     *zap.Logger
	running atomic.Bool
	trigger chan struct{}

	// OnResult, if set, is called after every attempt made by Run.
	OnResult func(Result, error)
}

// New returns a Syncer.
func New(remote Remote, local *storage.Local, log *zap.Logger) *Syncer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Syncer{
		remote:  remote,
		local:   local,
		log:     log,
		trigger: make(chan struct{}, 1),
	}
}

// Sync makes one attempt. Being offline or having nothing queued is not an
// error. On any failure the queue and cache are left as they were; a 401
// additionally discards the stored token.
func (s *Syncer) Sync(ctx context.Context) (Result, error) {
	if !s.running.CompareAndSwap(false, true) {
		return Result{Skipped: true}, nil
	}
	defer s.running.Store(false)

	if err := s.remote.Health(ctx); err != nil {
		s.log.Debug("offline, sync postponed", zap.Error(err))
		return Result{Offline: true}, nil
	}

	actions, err := s.local.Pending()
	if err != nil {
		return Result{}, err
	}
	if len(actions) == 0 {
		return Result{}, nil
	}

	resp, err := s.remote.Sync(ctx, actions)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			if cerr := s.local.Store().ClearToken(); cerr != nil {
				s.log.Error("failed to clear session", zap.Error(cerr))
			}
		}
		s.log.Warn("sync failed", zap.Int("pending", len(actions)), zap.Error(err))
		return Result{}, err
	}

	tasks, err := s.local.Commit(len(actions), resp.IDs, resp.Tasks)
	if err != nil {
		s.log.Error("failed to store sync result", zap.Error(err))
		return Result{}, err
	}
	s.log.Info("sync completed", zap.Int("sent", len(actions)), zap.Int("tasks", len(tasks)))
	return Result{Sent: len(actions), Tasks: tasks, IDs: resp.IDs}, nil
}

// Trigger asks a running Run loop to attempt a sync soon. It never blocks.
func (s *Syncer) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// StartAutoSync runs Run in a new goroutine.
func (s *Syncer) StartAutoSync(ctx context.Context, interval time.Duration) {
	go s.Run(ctx, interval)
}

// Run attempts a sync at start, on every Trigger and on every tick of
// interval, until ctx is done. Ticks double as the connectivity poll, so
// the first tick after connectivity returns replays the queue.
func (s *Syncer) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	online := true
	attempt := func(reason string) {
		res, err := s.Sync(ctx)
		if !res.Skipped {
			switch {
			case res.Offline && online:
				s.log.Info("connection lost")
			case !res.Offline && !online:
				s.log.Info("connection restored", zap.String("reason", reason))
			}
			online = !res.Offline
		}
		if s.OnResult != nil {
			s.OnResult(res, err)
		}
	}

	attempt("start")
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.trigger:
			attempt("mutation")
		case <-ticker.C:
			attempt("tick")
		}
	}
}
