package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	// ErrValidation covers malformed input: bad RRULE at write time, both
	// above and below references set, unknown priority, missing fields.
	ErrValidation = errors.New("validation failed")

	// ErrForbidden covers mutations of default rows: deleting or reordering
	// the inbox project or a default section, or editing non-view fields on
	// the default project.
	ErrForbidden = errors.New("forbidden mutation")

	// ErrNotFound covers rows that do not exist or belong to another owner.
	// Ownership misses deliberately look identical to missing rows.
	ErrNotFound = errors.New("not found")

	// ErrConflict surfaces after ordering transaction retries are exhausted.
	ErrConflict = errors.New("ordering conflict")
)

func validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// notFound maps gorm's record miss onto the service taxonomy so handlers can
// translate with errors.Is; other database errors pass through untouched.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
