package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/atinyakov/todosync/internal/middleware"
	"github.com/atinyakov/todosync/internal/models"
	"github.com/atinyakov/todosync/internal/service"
)

// SyncService defines the reconciliation operation required by SyncHandler.
type SyncService interface {
	// Reconcile applies actions in order for owner and returns the owner's
	// active tasks together with the temporary-to-durable id map.
	Reconcile(ctx context.Context, owner string, actions []models.SyncAction) (*service.ReconcileResult, error)
}

// SyncHandler handles HTTP requests for queue reconciliation.
type SyncHandler struct {
	SyncService SyncService
}

// SyncResponse is the body of a successful reconciliation.
type SyncResponse struct {
	Message string            `json:"message"`
	Tasks   []models.Task     `json:"tasks"`
	IDs     map[string]string `json:"ids"`
}

// Sync handles POST /api/tasks/sync requests.
// It decodes a JSON body with an "actions" array, applies it through the
// SyncService and writes back the authoritative list.
func (h *SyncHandler) Sync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserIDFromContext(ctx)

	var req struct {
		Actions json.RawMessage `json:"actions"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid body")
		return
	}

	var actions []models.SyncAction
	if len(req.Actions) == 0 || req.Actions[0] != '[' {
		writeMessage(w, http.StatusBadRequest, "invalid actions format")
		return
	}
	if err := json.Unmarshal(req.Actions, &actions); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid actions format")
		return
	}

	result, err := h.SyncService.Reconcile(ctx, userID, actions)
	if err != nil {
		writeError(w, err, "sync failed")
		return
	}

	tasks := result.Tasks
	if tasks == nil {
		tasks = []models.Task{}
	}
	ids := result.IDs
	if ids == nil {
		ids = map[string]string{}
	}
	writeJSON(w, http.StatusOK, SyncResponse{Message: "sync completed", Tasks: tasks, IDs: ids})
}
