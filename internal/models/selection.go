package models

import (
	"time"
)

// RandomTaskName is the display name of the "let the filter decide" option
const RandomTaskName = "random task"

// SelectionState is what a player has picked in the lobby.
// A nil ChosenTask means the random option.
type SelectionState struct {
	ChosenTask *Task    `json:"chosen_task,omitempty"`
	ChosenTags []string `json:"chosen_tags"`
	Level      Level    `json:"level"`
}

// IsTaskChosen reports whether a concrete task is selected
func (s *SelectionState) IsTaskChosen() bool {
	return s.ChosenTask != nil
}

// Clone returns a deep copy safe to hand to other readers
func (s SelectionState) Clone() SelectionState {
	out := SelectionState{
		Level:      s.Level,
		ChosenTags: append([]string{}, s.ChosenTags...),
	}
	if s.ChosenTask != nil {
		task := *s.ChosenTask
		task.Tags = append([]string{}, s.ChosenTask.Tags...)
		out.ChosenTask = &task
	}
	return out
}

// Selection is a lobby session owned by one player
type Selection struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	State     SelectionState `json:"state"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// IsIdle reports whether the session was untouched for longer than ttl
func (s *Selection) IsIdle(ttl time.Duration, now time.Time) bool {
	if ttl <= 0 {
		return false
	}
	return now.Sub(s.UpdatedAt) > ttl
}

// TaskOption is one entry of the task picker
type TaskOption struct {
	ID     string    `json:"id,omitempty"`
	Name   string    `json:"name"`
	Tags   []string  `json:"tags"`
	Random bool      `json:"random,omitempty"`
	Label  TaskLabel `json:"label"`
}

// TagButton is one entry of the tag filter bar
type TagButton struct {
	Name     string `json:"name"`
	Chosen   bool   `json:"chosen"`
	Disabled bool   `json:"disabled"`
}

// SelectionView is what the lobby UI renders for a session
type SelectionView struct {
	ID           string         `json:"id"`
	State        SelectionState `json:"state"`
	IsTaskChosen bool           `json:"is_task_chosen"`
	Options      []TaskOption   `json:"options"`
	Tags         []TagButton    `json:"tags"`
}

// CreateSelectionRequest opens a lobby session
type CreateSelectionRequest struct {
	UserID string `json:"user_id"`
	Level  string `json:"level"`
}

// ToggleTagRequest flips one tag of the filter
type ToggleTagRequest struct {
	Tag string `json:"tag"`
}

// ChooseTaskRequest picks a concrete task
type ChooseTaskRequest struct {
	TaskID string `json:"task_id"`
}

// SetLevelRequest switches the difficulty
type SetLevelRequest struct {
	Level string `json:"level"`
}
