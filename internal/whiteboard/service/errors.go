package service

import (
	"errors"
	"fmt"

	"github.com/compdash/compdash/backend/go-services/internal/whiteboard"
)

var (
	// ErrInvalidBaseVersion is returned when baseVersion is negative or not finite.
	ErrInvalidBaseVersion = errors.New("baseVersion must be a non-negative finite number")
	// ErrStorage wraps failures of the persistence backend.
	ErrStorage = errors.New("whiteboard storage failure")
)

// ConflictError reports that the caller's base version is not the stored one.
// Current is the authoritative snapshot the caller should rebase onto.
type ConflictError struct {
	BaseVersion float64
	Current     *whiteboard.Snapshot
	ETag        string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("version conflict: base %v, current %d", e.BaseVersion, e.Current.Version)
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}
