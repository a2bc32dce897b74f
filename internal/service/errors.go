package service

import (
	"errors"
	"fmt"

	"github.com/gurkanbulca/teamportal/internal/docstore"
	"github.com/gurkanbulca/teamportal/internal/lifecycle"
)

var (
	// ErrValidation marks input rejected before any write.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks a reference to a record that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a write that would break an invariant, such as a lost
	// version race or an occurrence number collision.
	ErrConflict = errors.New("conflict")
	// ErrInvalidTransition marks a status change the state machine forbids.
	ErrInvalidTransition = lifecycle.ErrInvalidTransition
)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// storeError classifies a repository error.
func storeError(op string, err error) error {
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		return fmt.Errorf("%s: %w: %w", op, ErrNotFound, err)
	case errors.Is(err, docstore.ErrVersionConflict), errors.Is(err, docstore.ErrAlreadyExists):
		return fmt.Errorf("%s: %w: %w", op, ErrConflict, err)
	case errors.Is(err, docstore.ErrInvalidQuery):
		return fmt.Errorf("%s: %w: %w", op, ErrValidation, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
