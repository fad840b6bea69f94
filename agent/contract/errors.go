package contract

import (
	"context"
	"errors"
)

var (
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrPromptMissing   = errors.New("required prompt is missing")
	ErrValidation      = errors.New("validation failed")
	ErrRepository      = errors.New("order repository failed")
)

// IsCapabilityFailure reports whether err is terminal for a turn: a failed or
// timed out call to the generation capability or the order repository.
func IsCapabilityFailure(err error) bool {
	return errors.Is(err, ErrModelInvoke) ||
		errors.Is(err, ErrRepository) ||
		errors.Is(err, context.DeadlineExceeded)
}
