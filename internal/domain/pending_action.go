package domain

import "encoding/json"

// ActionType names a mutation recorded while offline.
type ActionType string

const (
	ActionAddWorkout    ActionType = "add_workout"
	ActionUpdateWorkout ActionType = "update_workout"
	ActionDeleteWorkout ActionType = "delete_workout"
	ActionAddMedia      ActionType = "add_media"
	ActionRemoveMedia   ActionType = "remove_media"
)

// Valid reports whether t is one of the known action types.
func (t ActionType) Valid() bool {
	switch t {
	case ActionAddWorkout, ActionUpdateWorkout, ActionDeleteWorkout, ActionAddMedia, ActionRemoveMedia:
		return true
	}
	return false
}

// PendingAction is a mutation awaiting best-effort replay once online.
// Timestamp is unix milliseconds.
type PendingAction struct {
	ID        string          `json:"id"`
	Type      ActionType      `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}
