package nav

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidLocation rejects a malformed URL before any side effect.
	ErrInvalidLocation = errors.New("invalid location")
	// ErrBusy rejects an intent while a load is already in flight.
	ErrBusy = errors.New("navigation busy")
	// ErrAtHistoryBoundary rejects a back/forward step with nowhere to go.
	ErrAtHistoryBoundary = errors.New("at history boundary")
)

// LoadError reports a load the rendering surface could not complete.
type LoadError struct {
	Location Location
	Reason   string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load failed for %s: %s", e.Location, e.Reason)
}
