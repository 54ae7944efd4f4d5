package storage

import "errors"

var (
	// ErrTaskNotFound indicates no stored task has the id.
	ErrTaskNotFound = errors.New("task not found")
)
