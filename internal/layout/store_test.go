package layout

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"testing"
)

var registryOrder = []string{"device-list", "bluetooth-scan", "scanner-list", "adapter-list"}

// flakyBackend wraps a MemoryBackend and fails Save while failing is set.
type flakyBackend struct {
	*MemoryBackend
	failing bool
	saves   int
}

var errDiskFull = errors.New("disk full")

func (f *flakyBackend) Save(ctx context.Context, slot string, data []byte) error {
	if f.failing {
		return errDiskFull
	}
	f.saves++
	return f.MemoryBackend.Save(ctx, slot, data)
}

func persisted(t *testing.T, b Backend) []string {
	t.Helper()
	data, found, err := b.Load(context.Background(), Slot)
	if err != nil || !found {
		t.Fatalf("Load() = found %v, err %v", found, err)
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		t.Fatalf("persisted value %s: %v", data, err)
	}
	return ids
}

func openStore(t *testing.T, b Backend) *Store {
	t.Helper()
	s, err := Open(context.Background(), b, registryOrder, nil)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	return s
}

func TestOpen_FirstRunUsesRegistryOrder(t *testing.T) {
	b := NewMemoryBackend()
	s := openStore(t, b)

	if got := s.List(); !slices.Equal(got, registryOrder) {
		t.Errorf("List() = %v, want %v", got, registryOrder)
	}
	if got := persisted(t, b); !slices.Equal(got, registryOrder) {
		t.Errorf("persisted = %v, want defaults written through", got)
	}
}

func TestOpen_LoadsSavedLayout(t *testing.T) {
	tests := []struct {
		name      string
		stored    string
		want      []string
		wantSaves int
	}{
		{"clean", `["adapter-list","device-list"]`, []string{"adapter-list", "device-list"}, 0},
		{"duplicates", `["adapter-list","device-list","adapter-list"]`, []string{"adapter-list", "device-list"}, 1},
		{"blank ids", `["","scanner-list",""]`, []string{"scanner-list"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &flakyBackend{MemoryBackend: NewMemoryBackend()}
			if err := b.MemoryBackend.Save(context.Background(), Slot, []byte(tt.stored)); err != nil {
				t.Fatal(err)
			}

			s := openStore(t, b)
			if got := s.List(); !slices.Equal(got, tt.want) {
				t.Errorf("List() = %v, want %v", got, tt.want)
			}
			if got := persisted(t, b); !slices.Equal(got, s.List()) {
				t.Errorf("persisted = %v, memory = %v", got, s.List())
			}
			if b.saves != tt.wantSaves {
				t.Errorf("saves = %d, want %d", b.saves, tt.wantSaves)
			}
		})
	}
}

func TestOpen_CleanupWriteFails(t *testing.T) {
	b := &flakyBackend{MemoryBackend: NewMemoryBackend(), failing: true}
	if err := b.MemoryBackend.Save(context.Background(), Slot, []byte(`["a","a"]`)); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(context.Background(), b, registryOrder, nil); !errors.Is(err, errDiskFull) {
		t.Errorf("Open() error = %v, want %v", err, errDiskFull)
	}
}

func TestOpen_EmptySavedLayoutStaysEmpty(t *testing.T) {
	b := NewMemoryBackend()
	if err := b.Save(context.Background(), Slot, []byte(`[]`)); err != nil {
		t.Fatal(err)
	}

	if got := openStore(t, b).List(); len(got) != 0 {
		t.Errorf("List() = %v, want empty", got)
	}
}

func TestOpen_CorruptLayoutResets(t *testing.T) {
	b := NewMemoryBackend()
	if err := b.Save(context.Background(), Slot, []byte(`{"not":"a list"}`)); err != nil {
		t.Fatal(err)
	}

	s := openStore(t, b)
	if got := s.List(); !slices.Equal(got, registryOrder) {
		t.Errorf("List() = %v, want defaults", got)
	}
	if got := persisted(t, b); !slices.Equal(got, registryOrder) {
		t.Errorf("persisted = %v, want defaults", got)
	}
}

func TestStore_AddIsIdempotent(t *testing.T) {
	b := &flakyBackend{MemoryBackend: NewMemoryBackend()}
	s := openStore(t, b)
	ctx := context.Background()

	if err := s.Add(ctx, "history"); err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	saves := b.saves
	if err := s.Add(ctx, "history"); err != nil {
		t.Fatalf("second Add() error: %v", err)
	}

	want := append(slices.Clone(registryOrder), "history")
	if got := s.List(); !slices.Equal(got, want) {
		t.Errorf("List() = %v, want %v", got, want)
	}
	if b.saves != saves {
		t.Errorf("second Add wrote %d times, want 0", b.saves-saves)
	}
	if err := s.Add(ctx, ""); !errors.Is(err, ErrInvalidID) {
		t.Errorf("Add(\"\") error = %v, want ErrInvalidID", err)
	}
}

func TestStore_RemoveAbsentIsNoop(t *testing.T) {
	s := openStore(t, NewMemoryBackend())

	if err := s.Remove(context.Background(), "never-added"); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}
	if got := s.List(); !slices.Equal(got, registryOrder) {
		t.Errorf("List() = %v", got)
	}
}

func TestStore_FailedWriteLeavesMemoryUnchanged(t *testing.T) {
	b := &flakyBackend{MemoryBackend: NewMemoryBackend()}
	s := openStore(t, b)
	ctx := context.Background()
	b.failing = true

	if err := s.Remove(ctx, "device-list"); !errors.Is(err, errDiskFull) {
		t.Fatalf("Remove() error = %v, want errDiskFull", err)
	}
	if err := s.Add(ctx, "history"); !errors.Is(err, errDiskFull) {
		t.Fatalf("Add() error = %v, want errDiskFull", err)
	}
	if got := s.List(); !slices.Equal(got, registryOrder) {
		t.Errorf("List() = %v, want unchanged", got)
	}
	if got := persisted(t, b); !slices.Equal(got, s.List()) {
		t.Errorf("persisted %v != memory %v", got, s.List())
	}
}

// TestStore_PersistedMatchesMemory replays operation sequences and checks
// the slot after each step, then reopens from the same backend.
func TestStore_PersistedMatchesMemory(t *testing.T) {
	type op struct {
		kind string
		id   string
	}
	tests := []struct {
		name string
		ops  []op
		want []string
	}{
		{
			name: "remove then add appends",
			ops:  []op{{"remove", "device-list"}, {"add", "device-list"}},
			want: []string{"bluetooth-scan", "scanner-list", "adapter-list", "device-list"},
		},
		{
			name: "remove everything",
			ops:  []op{{"remove", "device-list"}, {"remove", "bluetooth-scan"}, {"remove", "scanner-list"}, {"remove", "adapter-list"}},
			want: []string{},
		},
		{
			name: "toggle twice",
			ops:  []op{{"toggle", "scanner-list"}, {"toggle", "history"}, {"toggle", "scanner-list"}},
			want: []string{"device-list", "bluetooth-scan", "adapter-list", "history", "scanner-list"},
		},
		{
			name: "reset",
			ops:  []op{{"remove", "device-list"}, {"add", "history"}, {"reset", ""}},
			want: registryOrder,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewMemoryBackend()
			s := openStore(t, b)
			ctx := context.Background()

			for _, o := range tt.ops {
				var err error
				switch o.kind {
				case "add":
					err = s.Add(ctx, o.id)
				case "remove":
					err = s.Remove(ctx, o.id)
				case "toggle":
					_, err = s.Toggle(ctx, o.id)
				case "reset":
					err = s.Reset(ctx)
				}
				if err != nil {
					t.Fatalf("%s(%s) error: %v", o.kind, o.id, err)
				}
				if got := persisted(t, b); !slices.Equal(got, s.List()) {
					t.Fatalf("after %s(%s): persisted %v != memory %v", o.kind, o.id, got, s.List())
				}
			}

			if got := s.List(); !slices.Equal(got, tt.want) {
				t.Errorf("List() = %v, want %v", got, tt.want)
			}
			if got := openStore(t, b).List(); !slices.Equal(got, tt.want) {
				t.Errorf("reopened List() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStore_ToggleReportsState(t *testing.T) {
	s := openStore(t, NewMemoryBackend())
	ctx := context.Background()

	active, err := s.Toggle(ctx, "device-list")
	if err != nil || active {
		t.Errorf("Toggle(active) = %v, %v; want false, nil", active, err)
	}
	active, err = s.Toggle(ctx, "device-list")
	if err != nil || !active {
		t.Errorf("Toggle(inactive) = %v, %v; want true, nil", active, err)
	}
	if !s.Contains("device-list") {
		t.Error("Contains() = false after re-adding")
	}
}
