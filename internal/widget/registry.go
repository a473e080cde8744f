package widget

import (
	"fmt"
)

// Columns is the width of the dashboard grid in cells.
const Columns = 4

// Body is the content drawn inside a widget frame.
type Body interface {
	// Ready reports whether the body's first data fetch has resolved.
	// The frame shows a loading placeholder until it has.
	Ready() bool

	// View renders the body into at most width x height cells.
	View(width, height int) string
}

// Renderer builds the body of a resolved widget from its bound config.
type Renderer func(d Descriptor, cfg Config) Body

// Entry is the registry record for one widget type.
type Entry struct {
	Type     Type
	Renderer Renderer
	Icon     Icon

	// Cols and Rows are the grid footprint in cells.
	Cols int
	Rows int
}

func (e Entry) validate() error {
	if e.Renderer == nil {
		return fmt.Errorf("%w: %s has no renderer", ErrInvalidEntry, e.Type)
	}
	if e.Cols < 1 || e.Cols > Columns || e.Rows < 1 {
		return fmt.Errorf("%w: %s footprint %dx%d", ErrInvalidEntry, e.Type, e.Cols, e.Rows)
	}
	return nil
}

// Registry resolves widget descriptors. It is immutable once built and
// safe for concurrent use.
type Registry struct {
	origin    string
	entries   map[Type]Entry
	catalogue []Descriptor
	byID      map[string]int
	configs   []Config
}

// NewRegistry builds a registry from entries and the widget catalogue.
//
// Parameters:
//   - origin: API origin prefixed to bound data sources (e.g. "http://localhost:8080")
//   - entries: one entry per widget type
//   - catalogue: every known widget, in display order
//
// Returns:
//   - *Registry: the registry
//   - error: ErrDuplicateType, ErrInvalidEntry, ErrDuplicateID,
//     ErrInvalidDescriptor, ErrInvalidConfig or a *LookupError
func NewRegistry(origin string, entries []Entry, catalogue []Descriptor) (*Registry, error) {
	r := &Registry{
		origin:  origin,
		entries: make(map[Type]Entry, len(entries)),
		byID:    make(map[string]int, len(catalogue)),
	}

	for _, e := range entries {
		if _, dup := r.entries[e.Type]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateType, e.Type)
		}
		if err := e.validate(); err != nil {
			return nil, err
		}
		r.entries[e.Type] = e
	}

	for _, d := range catalogue {
		if err := d.validate(); err != nil {
			return nil, err
		}
		if _, dup := r.byID[d.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, d.ID)
		}
		if _, ok := r.entries[d.Type]; !ok {
			return nil, fmt.Errorf("widget %s: %w", d.ID, &LookupError{Type: d.Type})
		}
		cfg, err := DecodeConfig(d.Type, d.Config)
		if err != nil {
			return nil, fmt.Errorf("widget %s: %w", d.ID, err)
		}
		r.byID[d.ID] = len(r.catalogue)
		r.catalogue = append(r.catalogue, d)
		r.configs = append(r.configs, cfg)
	}

	return r, nil
}

// Lookup returns the entry for t, or a *LookupError.
func (r *Registry) Lookup(t Type) (Entry, error) {
	e, ok := r.entries[t]
	if !ok {
		return Entry{}, &LookupError{Type: t}
	}
	return e, nil
}

// Catalogue returns every known widget in registry order.
func (r *Registry) Catalogue() []Descriptor {
	return append([]Descriptor(nil), r.catalogue...)
}

// IDs returns the ids of the widgets mounted at m, in registry order.
func (r *Registry) IDs(m MountPoint) []string {
	ids := make([]string, 0, len(r.catalogue))
	for _, d := range r.catalogue {
		if d.MountPoint == m {
			ids = append(ids, d.ID)
		}
	}
	return ids
}

// Descriptor returns the catalogue entry with the given id.
func (r *Registry) Descriptor(id string) (Descriptor, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Descriptor{}, false
	}
	return r.catalogue[i], true
}

// Resolve binds d to ctx and builds its renderable.
//
// Descriptors from the catalogue reuse the config decoded when the
// registry was built; any other descriptor is decoded here.
func (r *Registry) Resolve(d Descriptor, ctx Context) (*Renderable, error) {
	entry, err := r.Lookup(d.Type)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if i, ok := r.byID[d.ID]; ok && r.catalogue[i].Type == d.Type && string(r.catalogue[i].Config) == string(d.Config) {
		cfg = r.configs[i]
	} else if cfg, err = DecodeConfig(d.Type, d.Config); err != nil {
		return nil, fmt.Errorf("widget %s: %w", d.ID, err)
	}
	cfg = cfg.bind(ctx, r.origin)

	return &Renderable{
		ID:     d.ID,
		Name:   d.Name,
		Icon:   entry.Icon,
		Cols:   entry.Cols,
		Rows:   entry.Rows,
		Config: cfg,
		Body:   entry.Renderer(d, cfg),
	}, nil
}
