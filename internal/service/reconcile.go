package service

import (
	"context"
	"errors"
	"strings"

	"github.com/atinyakov/todosync/internal/models"
)

// ReconcileResult is the authoritative state of an owner after a batch.
type ReconcileResult struct {
	// Tasks holds every non-deleted task of the owner, newest first.
	Tasks []models.Task
	// IDs maps the temporary identifiers resolved in this batch to
	// their durable identifiers.
	IDs map[string]string
}

// Reconciler applies queued client actions against the durable store.
type Reconciler struct {
	store TxTaskStore
}

// NewReconciler constructs a Reconciler over store.
func NewReconciler(store TxTaskStore) *Reconciler {
	return &Reconciler{store: store}
}

// step is a validated action ready to be applied.
type step struct {
	kind    models.ActionType
	id      string
	draft   models.TaskDraft
	changes models.TaskChanges
}

// Reconcile applies actions in order for owner and returns the owner's
// resulting task list.
//
// Temporary identifiers created earlier in the batch are resolved to the
// durable identifiers assigned during the same call. Updates and deletes
// that match no task of the owner are skipped. The whole batch is
// validated up front and applied in one transaction, so it either fully
// applies or leaves the store untouched.
func (r *Reconciler) Reconcile(ctx context.Context, owner string, actions []models.SyncAction) (*ReconcileResult, error) {
	if owner == "" {
		return nil, ErrUnauthorized
	}

	steps, err := parseActions(actions)
	if err != nil {
		return nil, err
	}

	var result ReconcileResult
	err = r.store.InTx(ctx, func(tx TaskStore) error {
		ids, err := apply(ctx, tx, owner, steps)
		if err != nil {
			return err
		}
		tasks, err := tx.Find(ctx, models.TaskFilter{Owner: owner, ActiveOnly: true})
		if err != nil {
			return &StoreError{Op: "list tasks", Err: err}
		}
		result = ReconcileResult{Tasks: tasks, IDs: ids}
		return nil
	})
	if err != nil {
		var se *StoreError
		if errors.As(err, &se) {
			return nil, err
		}
		return nil, &StoreError{Op: "reconcile", Err: err}
	}
	return &result, nil
}

func apply(ctx context.Context, tx TaskStore, owner string, steps []step) (map[string]string, error) {
	idMap := make(map[string]string)

	for _, s := range steps {
		id := s.id
		if real, ok := idMap[id]; ok {
			id = real
		}

		switch s.kind {
		case models.ActionCreate:
			// A temporary id resolved earlier in the batch already has its task.
			if id != s.id {
				continue
			}
			if s.id != "" {
				existing, err := tx.Find(ctx, models.TaskFilter{Owner: owner, ClientRef: s.id})
				if err != nil {
					return nil, &StoreError{Op: "find by client ref", Err: err}
				}
				if len(existing) > 0 {
					idMap[s.id] = existing[0].ID
					continue
				}
			}
			draft := s.draft
			draft.ClientRef = s.id
			task, err := tx.Insert(ctx, owner, draft)
			if err != nil {
				return nil, &StoreError{Op: "create task", Err: err}
			}
			if s.id != "" {
				idMap[s.id] = task.ID
			}

		case models.ActionUpdate:
			if _, err := tx.UpdateMatching(ctx, models.TaskFilter{Owner: owner, ID: id}, s.changes); err != nil {
				return nil, &StoreError{Op: "update task", Err: err}
			}

		case models.ActionDelete:
			deleted := true
			if _, err := tx.UpdateMatching(ctx, models.TaskFilter{Owner: owner, ID: id}, models.TaskChanges{Deleted: &deleted}); err != nil {
				return nil, &StoreError{Op: "delete task", Err: err}
			}
		}
	}
	return idMap, nil
}

// parseActions validates the whole batch before anything is written.
func parseActions(actions []models.SyncAction) ([]step, error) {
	steps := make([]step, 0, len(actions))
	for i, a := range actions {
		p, err := a.Decode()
		if err != nil {
			return nil, invalidf("action %d: invalid payload", i)
		}
		if p.Status != nil && !p.Status.Valid() {
			return nil, invalidf("action %d: invalid status %q", i, *p.Status)
		}
		changes := p.Changes()

		s := step{kind: a.Type, id: p.ID}
		switch a.Type {
		case models.ActionCreate:
			if changes.Title == nil || *changes.Title == "" {
				return nil, invalidf("action %d: title is required", i)
			}
			s.draft = models.TaskDraft{Title: *changes.Title, Status: models.StatusPending}
			if changes.Description != nil {
				s.draft.Description = *changes.Description
			}
			if changes.Status != nil {
				s.draft.Status = *changes.Status
			}

		case models.ActionUpdate:
			if strings.TrimSpace(p.ID) == "" {
				return nil, invalidf("action %d: _id is required", i)
			}
			if changes.Title != nil && *changes.Title == "" {
				return nil, invalidf("action %d: title cannot be empty", i)
			}
			s.changes = changes

		case models.ActionDelete:
			if strings.TrimSpace(p.ID) == "" {
				return nil, invalidf("action %d: _id is required", i)
			}

		default:
			return nil, invalidf("action %d: unknown action type %q", i, a.Type)
		}
		steps = append(steps, s)
	}
	return steps, nil
}
