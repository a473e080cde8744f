package layout

import "errors"

var (
	// ErrInvalidID is returned when adding an empty widget id.
	ErrInvalidID = errors.New("layout: invalid widget id")

	// ErrCorrupt is returned by backends whose stored slots cannot be read.
	ErrCorrupt = errors.New("layout: corrupt layout data")
)
