// Package layout persists the ordered set of active dashboard widgets.
//
// A Store holds the ids of the active widgets in display order. It is backed
// by a single fixed slot, "widget-grid-layout", whose value is a JSON array
// of ids. Every mutation writes the full set to the Backend before memory
// is updated, so a failed write leaves the store unchanged and the persisted
// value always matches List.
//
// Backends:
//   - MemoryBackend: process-local, for tests and throwaway sessions
//   - FileBackend: a JSON object of slots in one file, replaced atomically
//   - SQLiteBackend: a row in the settings key/value table
package layout
