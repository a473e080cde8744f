package widget

import (
	"errors"
	"fmt"
)

// Sentinel errors for widget resolution.
var (
	// ErrUnknownType is matched by every *LookupError.
	ErrUnknownType = errors.New("widget: unknown type")

	// ErrDuplicateID is returned when a catalogue repeats a widget id.
	ErrDuplicateID = errors.New("widget: duplicate id")

	// ErrDuplicateType is returned when two entries register the same type.
	ErrDuplicateType = errors.New("widget: duplicate type")

	// ErrInvalidEntry is returned for an entry without a renderer or with
	// a footprint outside the grid.
	ErrInvalidEntry = errors.New("widget: invalid entry")

	// ErrInvalidDescriptor is returned for a descriptor without an id or
	// with an unknown mount point.
	ErrInvalidDescriptor = errors.New("widget: invalid descriptor")

	// ErrInvalidConfig is returned when a widget config does not decode
	// into its type's schema.
	ErrInvalidConfig = errors.New("widget: invalid config")
)

// LookupError reports a widget type with no registry entry.
type LookupError struct {
	Type Type
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("widget: unknown type %q", e.Type)
}

// Is makes errors.Is(err, ErrUnknownType) true for any *LookupError.
func (e *LookupError) Is(target error) bool {
	return target == ErrUnknownType
}
