package layout

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
)

// Slot is the persistence slot holding the layout.
const Slot = "widget-grid-layout"

// Logger defines the logging interface used by the Store.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// Store is the write-through set of active widget ids.
//
// All methods are safe for concurrent use; mutations are serialised so
// backend writes happen in the order the mutations were made.
type Store struct {
	backend  Backend
	defaults []string
	logger   Logger

	mu  sync.Mutex
	ids []string
}

// Open loads the layout from backend.
//
// On first run (slot never written) the store starts with defaults, which
// is written through immediately. A slot that does not hold a JSON array of
// strings is logged and replaced by defaults the same way.
//
// Parameters:
//   - ctx: Context for the backend calls
//   - backend: Slot storage
//   - defaults: Every registered widget id, in registry order
//   - logger: Optional logger (nil for none)
//
// Returns:
//   - *Store: the opened store
//   - error: If the backend cannot be read or written
func Open(ctx context.Context, backend Backend, defaults []string, logger Logger) (*Store, error) {
	if logger == nil {
		logger = noopLogger{}
	}
	s := &Store{
		backend:  backend,
		defaults: dedupe(defaults),
		logger:   logger,
	}

	data, found, err := backend.Load(ctx, Slot)
	if err != nil {
		return nil, fmt.Errorf("loading layout: %w", err)
	}
	if found {
		var ids []string
		jsonErr := json.Unmarshal(data, &ids)
		if jsonErr == nil {
			unique := dedupe(ids)
			if len(unique) == len(ids) {
				s.ids = unique
				return s, nil
			}
			// Persist the cleaned set so the slot matches memory.
			if err := s.write(ctx, unique); err != nil {
				return nil, err
			}
			return s, nil
		}
		logger.Warn("stored layout unreadable, resetting to defaults", "slot", Slot, "error", jsonErr)
	}

	if err := s.write(ctx, slices.Clone(s.defaults)); err != nil {
		return nil, err
	}
	return s, nil
}

// List returns the active ids in display order.
func (s *Store) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.ids)
}

// Contains reports whether id is active.
func (s *Store) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.ids, id)
}

// Add appends id to the active set. Adding an active id does nothing.
func (s *Store) Add(ctx context.Context, id string) error {
	if id == "" {
		return ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if slices.Contains(s.ids, id) {
		return nil
	}
	next := append(slices.Clone(s.ids), id)
	return s.writeLocked(ctx, next)
}

// Remove drops id from the active set. Removing an inactive id does nothing.
func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.Index(s.ids, id)
	if i < 0 {
		return nil
	}
	next := slices.Delete(slices.Clone(s.ids), i, i+1)
	return s.writeLocked(ctx, next)
}

// Toggle removes id when active and adds it otherwise. It reports whether
// id is active afterwards.
func (s *Store) Toggle(ctx context.Context, id string) (bool, error) {
	if s.Contains(id) {
		if err := s.Remove(ctx, id); err != nil {
			return true, err
		}
		return false, nil
	}
	if err := s.Add(ctx, id); err != nil {
		return false, err
	}
	return true, nil
}

// Reset restores the defaults the store was opened with.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(ctx, slices.Clone(s.defaults))
}

func (s *Store) write(ctx context.Context, next []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(ctx, next)
}

// writeLocked persists next and, only on success, makes it current.
func (s *Store) writeLocked(ctx context.Context, next []string) error {
	if next == nil {
		next = []string{}
	}
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encoding layout: %w", err)
	}
	if err := s.backend.Save(ctx, Slot, data); err != nil {
		return fmt.Errorf("saving layout: %w", err)
	}
	s.ids = next
	return nil
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
