package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ActionType is the kind of a queued sync action.
type ActionType string

const (
	ActionCreate ActionType = "create"
	ActionUpdate ActionType = "update"
	ActionDelete ActionType = "delete"
)

// SyncAction is one queued client intent, exactly as it travels on the wire.
type SyncAction struct {
	Type    ActionType      `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ActionPayload is the decoded form of every action payload. Create
// carries a full draft, Update a partial field set, Delete only the id.
type ActionPayload struct {
	ID          string  `json:"_id,omitempty"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *Status `json:"status,omitempty"`
}

// Decode parses the payload of a.
func (a SyncAction) Decode() (ActionPayload, error) {
	var p ActionPayload
	if len(a.Payload) == 0 || string(a.Payload) == "null" {
		return p, nil
	}
	if err := json.Unmarshal(a.Payload, &p); err != nil {
		return p, fmt.Errorf("decode %s payload: %w", a.Type, err)
	}
	return p, nil
}

// Changes returns the mergeable fields of the payload. Title and
// description are trimmed the same way the client trims its input.
func (p ActionPayload) Changes() TaskChanges {
	var c TaskChanges
	if p.Title != nil {
		t := strings.TrimSpace(*p.Title)
		c.Title = &t
	}
	if p.Description != nil {
		d := strings.TrimSpace(*p.Description)
		c.Description = &d
	}
	if p.Status != nil {
		s := *p.Status
		c.Status = &s
	}
	return c
}

// NewCreateAction builds a create action for a task carrying a temporary id.
func NewCreateAction(t Task) SyncAction {
	return mustAction(ActionCreate, ActionPayload{
		ID:          t.ID,
		Title:       &t.Title,
		Description: &t.Description,
		Status:      &t.Status,
	})
}

// NewUpdateAction builds an update action merging c into the task id.
func NewUpdateAction(id string, c TaskChanges) SyncAction {
	return mustAction(ActionUpdate, ActionPayload{
		ID:          id,
		Title:       c.Title,
		Description: c.Description,
		Status:      c.Status,
	})
}

// NewDeleteAction builds a delete action for the task id.
func NewDeleteAction(id string) SyncAction {
	return mustAction(ActionDelete, ActionPayload{ID: id})
}

func mustAction(t ActionType, p ActionPayload) SyncAction {
	// ActionPayload holds only strings and pointers to strings.
	b, _ := json.Marshal(p)
	return SyncAction{Type: t, Payload: b}
}

// RemapActions rewrites the payload identifiers of actions found in ids.
// Actions whose id is not in ids are returned unchanged.
func RemapActions(actions []SyncAction, ids map[string]string) []SyncAction {
	if len(ids) == 0 {
		return actions
	}
	out := make([]SyncAction, 0, len(actions))
	for _, a := range actions {
		p, err := a.Decode()
		if err != nil {
			out = append(out, a)
			continue
		}
		real, ok := ids[p.ID]
		if !ok {
			out = append(out, a)
			continue
		}
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(a.Payload, &raw); err != nil {
			out = append(out, a)
			continue
		}
		raw["_id"], _ = json.Marshal(real)
		b, _ := json.Marshal(raw)
		out = append(out, SyncAction{Type: a.Type, Payload: b})
	}
	return out
}
