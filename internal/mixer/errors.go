package mixer

import (
	"errors"
	"fmt"

	"morningcast/internal/services"
)

var (
	// ErrNoTracksToMix is returned when a crossfade is requested without inputs.
	ErrNoTracksToMix = errors.New("no tracks to mix")
	// ErrMissingMedia reports a song file that is not on disk.
	ErrMissingMedia = errors.New("missing media file")
)

// FilterError identifies the assembly stage whose filter graph failed. It
// matches services.ErrExternalTool.
type FilterError struct {
	Stage string
	Err   error
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("mixer %s: %v", e.Stage, e.Err)
}

func (e *FilterError) Unwrap() error { return e.Err }

// Is reports whether target is the external tool marker.
func (e *FilterError) Is(target error) bool {
	return target == services.ErrExternalTool
}
