package widget

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

type stubBody struct {
	ready bool
	text  string
}

func (b *stubBody) Ready() bool { return b.ready }
func (b *stubBody) View(_, _ int) string { return b.text }
func stubRenderer(d Descriptor, _ Config) Body { return &stubBody{ready: true, text: "body of " + d.ID} }

// recordingRenderer captures the bound config handed to the renderer.
type recordingRenderer struct {
	got Config
}

func (r *recordingRenderer) render(_ Descriptor, cfg Config) Body {
	r.got = cfg
	return &stubBody{}
}

func testEntries() []Entry {
	return []Entry{
		{Type: TypeDeviceList, Renderer: stubRenderer, Icon: IconNetwork, Cols: 4, Rows: 2},
		{Type: TypeBluetoothScan, Renderer: stubRenderer, Icon: IconBluetooth, Cols: 3, Rows: 2},
		{Type: TypeStateList, Renderer: stubRenderer, Icon: IconActivity, Cols: 1, Rows: 1},
		{Type: TypeLineChart, Renderer: stubRenderer, Icon: IconLineChart, Cols: 2, Rows: 2},
		{Type: TypeKeyValueList, Renderer: stubRenderer, Icon: IconList, Cols: 2, Rows: 1},
	}
}

func testCatalogue() []Descriptor {
	return []Descriptor{
		{ID: "device-list", Type: TypeDeviceList, Name: "Device List", MountPoint: MountRoot},
		{ID: "bluetooth-scan", Type: TypeBluetoothScan, Name: "Bluetooth Devices Around", MountPoint: MountRoot},
		{ID: "scanner-list", Type: TypeStateList, Name: "Scanners States", MountPoint: MountRoot, Config: json.RawMessage(`{"source":"scanners"}`)},
		{ID: "adapter-list", Type: TypeStateList, Name: "Adapters States", MountPoint: MountRoot, Config: json.RawMessage(`{"source":"adapters"}`)},
		{
			ID:         "history",
			Type:       TypeLineChart,
			Name:       "History",
			MountPoint: MountCapability,
			Config:     json.RawMessage(`{"dataUrl":"/api/history/device/{deviceId}/capabilities/{capabilityType}"}`),
		},
	}
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry("http://localhost:8080/", testEntries(), testCatalogue())
	if err != nil {
		t.Fatalf("NewRegistry() error: %v", err)
	}
	return r
}

func TestRegistry_LookupEveryType(t *testing.T) {
	r := newTestRegistry(t)

	for _, e := range testEntries() {
		got, err := r.Lookup(e.Type)
		if err != nil {
			t.Errorf("Lookup(%s) error: %v", e.Type, err)
			continue
		}
		if got.Renderer == nil || got.Icon != e.Icon {
			t.Errorf("Lookup(%s) = %+v", e.Type, got)
		}
	}
}

func TestRegistry_LookupUnknown(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Lookup("pie-chart")
	if !errors.Is(err, ErrUnknownType) {
		t.Fatalf("Lookup(unknown) error = %v, want ErrUnknownType", err)
	}
	var lookupErr *LookupError
	if !errors.As(err, &lookupErr) || lookupErr.Type != "pie-chart" {
		t.Errorf("error = %#v, want *LookupError{pie-chart}", err)
	}

	if _, err := r.Resolve(Descriptor{ID: "x", Type: "pie-chart", MountPoint: MountRoot}, Context{}); !errors.Is(err, ErrUnknownType) {
		t.Errorf("Resolve(unknown) error = %v", err)
	}
}

func TestNewRegistry_FailsFast(t *testing.T) {
	tests := []struct {
		name      string
		entries   []Entry
		catalogue []Descriptor
		wantErr   error
	}{
		{
			name:      "unknown type in catalogue",
			entries:   testEntries(),
			catalogue: []Descriptor{{ID: "a", Type: "pie-chart", MountPoint: MountRoot}},
			wantErr:   ErrUnknownType,
		},
		{
			name:    "duplicate id",
			entries: testEntries(),
			catalogue: []Descriptor{
				{ID: "a", Type: TypeDeviceList, MountPoint: MountRoot},
				{ID: "a", Type: TypeBluetoothScan, MountPoint: MountRoot},
			},
			wantErr: ErrDuplicateID,
		},
		{
			name:    "duplicate type",
			entries: append(testEntries(), Entry{Type: TypeDeviceList, Renderer: stubRenderer, Cols: 1, Rows: 1}),
			wantErr: ErrDuplicateType,
		},
		{
			name:    "missing renderer",
			entries: []Entry{{Type: TypeDeviceList, Cols: 1, Rows: 1}},
			wantErr: ErrInvalidEntry,
		},
		{
			name:    "footprint wider than grid",
			entries: []Entry{{Type: TypeDeviceList, Renderer: stubRenderer, Cols: 5, Rows: 1}},
			wantErr: ErrInvalidEntry,
		},
		{
			name:      "bad mount point",
			entries:   testEntries(),
			catalogue: []Descriptor{{ID: "a", Type: TypeDeviceList, MountPoint: "sidebar"}},
			wantErr:   ErrInvalidDescriptor,
		},
		{
			name:      "invalid template",
			entries:   testEntries(),
			catalogue: []Descriptor{{ID: "a", Type: TypeLineChart, MountPoint: MountRoot, Config: json.RawMessage(`{"dataUrl":"/api/{deviceId"}`)}},
			wantErr:   ErrInvalidConfig,
		},
		{
			name:      "missing data source",
			entries:   testEntries(),
			catalogue: []Descriptor{{ID: "a", Type: TypeKeyValueList, MountPoint: MountRoot, Config: json.RawMessage(`{}`)}},
			wantErr:   ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry("", tt.entries, tt.catalogue)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("NewRegistry() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRegistry_IDsInOrder(t *testing.T) {
	r := newTestRegistry(t)

	want := []string{"device-list", "bluetooth-scan", "scanner-list", "adapter-list"}
	got := r.IDs(MountRoot)
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("IDs(root) = %v, want %v", got, want)
	}
	if got := r.IDs(MountCapability); len(got) != 1 || got[0] != "history" {
		t.Errorf("IDs(capability) = %v", got)
	}
	if d, ok := r.Descriptor("scanner-list"); !ok || d.Name != "Scanners States" {
		t.Errorf("Descriptor(scanner-list) = %+v, %v", d, ok)
	}
}

func TestRegistry_ResolveBindsDataSource(t *testing.T) {
	rec := &recordingRenderer{}
	entries := []Entry{{Type: TypeLineChart, Renderer: rec.render, Icon: IconLineChart, Cols: 2, Rows: 2}}
	r, err := NewRegistry("http://localhost:8080/", entries, testCatalogue()[4:])
	if err != nil {
		t.Fatalf("NewRegistry() error: %v", err)
	}
	desc, _ := r.Descriptor("history")

	tests := []struct {
		name string
		ctx  Context
		want string
	}{
		{
			"both present",
			Context{DeviceID: "dev-1", CapabilityType: "temperature"},
			"http://localhost:8080/api/history/device/dev-1/capabilities/temperature",
		},
		{
			"capability absent keeps placeholder",
			Context{DeviceID: "dev-1"},
			"http://localhost:8080/api/history/device/dev-1/capabilities/{capabilityType}",
		},
		{
			"no context",
			Context{},
			"http://localhost:8080/api/history/device/{deviceId}/capabilities/{capabilityType}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rend, err := r.Resolve(desc, tt.ctx)
			if err != nil {
				t.Fatalf("Resolve() error: %v", err)
			}
			cfg, ok := rec.got.(LineChartConfig)
			if !ok {
				t.Fatalf("renderer got %T, want LineChartConfig", rec.got)
			}
			if cfg.URL != tt.want {
				t.Errorf("URL = %q, want %q", cfg.URL, tt.want)
			}
			if rend.Cols != 2 || rend.Rows != 2 || rend.Name != "History" {
				t.Errorf("renderable = %+v", rend)
			}
		})
	}
}

func TestRegistry_ResolveDescriptorOutsideCatalogue(t *testing.T) {
	r := newTestRegistry(t)

	d := Descriptor{
		ID:         "plugin-kv",
		Type:       TypeKeyValueList,
		Name:       "Details",
		MountPoint: MountDevice,
		Config:     json.RawMessage(`{"dataUrl":"/api/devices/{deviceId}","keys":["name"]}`),
	}
	rend, err := r.Resolve(d, Context{DeviceID: "abc"})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	cfg := rend.Config.(KeyValueListConfig)
	if cfg.URL != "http://localhost:8080/api/devices/abc" || len(cfg.Keys) != 1 {
		t.Errorf("config = %+v", cfg)
	}
}

func TestRenderable_View(t *testing.T) {
	loading := &Renderable{Name: "Device List", Icon: IconNetwork, Body: &stubBody{}}
	ready := &Renderable{Name: "Device List", Icon: IconNetwork, Body: &stubBody{ready: true, text: "kitchen"}}

	tests := []struct {
		name     string
		r        *Renderable
		opts     FrameOptions
		contains []string
		excludes []string
	}{
		{"loading placeholder", loading, FrameOptions{}, []string{"⊞ Device List", LoadingText}, []string{"kitchen"}},
		{"body once ready", ready, FrameOptions{}, []string{"kitchen"}, []string{LoadingText, "✕"}},
		{"edit mode marker", ready, FrameOptions{Editing: true}, []string{"✕"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.r.View(30, 6, tt.opts)
			for _, s := range tt.contains {
				if !strings.Contains(out, s) {
					t.Errorf("View() missing %q:\n%s", s, out)
				}
			}
			for _, s := range tt.excludes {
				if strings.Contains(out, s) {
					t.Errorf("View() contains %q:\n%s", s, out)
				}
			}
			if w, h := lipgloss.Width(out), lipgloss.Height(out); w != 30 || h != 6 {
				t.Errorf("View() size = %dx%d, want 30x6", w, h)
			}
		})
	}
}
