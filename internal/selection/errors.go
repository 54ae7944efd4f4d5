package selection

import "errors"

var (
	// ErrSelectionNotFound indicates no session exists under the id.
	ErrSelectionNotFound = errors.New("selection not found")

	// ErrTaskNotFound indicates the task is not in the catalog at the session's level.
	ErrTaskNotFound = errors.New("task not found")

	// ErrInvalidLevel indicates a level outside the known difficulty labels.
	ErrInvalidLevel = errors.New("invalid level")

	// ErrTagsLocked indicates a tag toggle while a concrete task is chosen.
	ErrTagsLocked = errors.New("tags are locked while a task is chosen")
)
