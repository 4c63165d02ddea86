package dock

import (
	"errors"
	"fmt"

	"github.com/muelle-planner/platform/pkg/schema"
)

var (
	ErrNotFound    = errors.New("record not found")
	ErrValidation  = errors.New("validation failed")
	ErrDuplicateID = errors.New("duplicate record id")

	errRequired = errors.New("field required")
)

type ValidationError struct {
	Field  schema.Field
	reason error
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.reason)
}

func (e ValidationError) Unwrap() []error {
	return []error{ErrValidation, e.reason}
}

func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

func notFound(id int) error {
	return fmt.Errorf("record %d: %w", id, ErrNotFound)
}
