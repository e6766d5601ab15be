package leave

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrDuplicateEmployee = errors.New("employee already exists")
	ErrInactiveEmployee  = errors.New("employee is no longer active")
)
