package plugin

import "errors"

var (
	// ErrNotFound is returned when no plugin of the requested type has the id.
	ErrNotFound = errors.New("plugin: not found")

	// ErrRejected is returned when a plugin answers a command with a negative ack.
	ErrRejected = errors.New("plugin: command rejected")

	// ErrTimeout is returned when a plugin does not answer a command in time.
	ErrTimeout = errors.New("plugin: command timed out")
)
