package contract

import (
	"errors"
	"fmt"
)

var (
	ErrValidation          = errors.New("validation failed")
	ErrUpstreamUnavailable = errors.New("upstream model unavailable")
	ErrModelInvoke         = errors.New("model invoke failed")
	ErrPersistence         = errors.New("persistence failed")
	ErrCancelled           = errors.New("request cancelled")
	ErrNotFound            = errors.New("not found")

	ErrToolNotFound  = errors.New("tool not found")
	ErrToolTimeout   = errors.New("tool timed out")
	ErrToolExecution = errors.New("tool execution failed")
	ErrDuplicateTool = errors.New("tool already registered")
)

// ErrConversationNotFound is returned when a supplied conversation id is unknown
// or owned by another user. It is a validation error from the caller's view.
var ErrConversationNotFound = fmt.Errorf("%w: conversation not found", ErrValidation)
