package dashboard

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nerrad567/gohome/internal/device"
	"github.com/nerrad567/gohome/internal/infrastructure/influxdb"
	"github.com/nerrad567/gohome/internal/plugin"
	"github.com/nerrad567/gohome/internal/resource"
	"github.com/nerrad567/gohome/internal/widget"
)

// Logger is the logging interface used by the dashboard.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// Fetcher fetches a bound widget data source and decodes it into v.
type Fetcher interface {
	GetJSON(ctx context.Context, url string, v any) error
}

// Sources is everything widget bodies draw from.
type Sources struct {
	Resources *resource.Set
	Peers     *PeerTable
	Fetcher   Fetcher

	// Options are applied to the per-widget data-source resources.
	Options []resource.Option
}

// Entries returns the registry entry of every widget type.
func (s Sources) Entries() []widget.Entry {
	return []widget.Entry{
		{Type: widget.TypeDeviceList, Icon: widget.IconNetwork, Cols: 4, Rows: 2, Renderer: s.deviceList},
		{Type: widget.TypeBluetoothScan, Icon: widget.IconBluetooth, Cols: 3, Rows: 2, Renderer: s.bluetoothScan},
		{Type: widget.TypeStateList, Icon: widget.IconActivity, Cols: 1, Rows: 1, Renderer: s.stateList},
		{Type: widget.TypeLineChart, Icon: widget.IconLineChart, Cols: 2, Rows: 2, Renderer: s.lineChart},
		{Type: widget.TypeKeyValueList, Icon: widget.IconList, Cols: 2, Rows: 1, Renderer: s.keyValueList},
	}
}

// NewRegistry builds the widget registry over src for catalogue.
func NewRegistry(origin string, src Sources, catalogue []widget.Descriptor) (*widget.Registry, error) {
	return widget.NewRegistry(origin, src.Entries(), catalogue)
}

var (
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	nameStyle   = lipgloss.NewStyle().Bold(true)
	linkedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	chartStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	stateStyles = map[plugin.State]lipgloss.Style{
		plugin.StateRunning:    lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		plugin.StateStopped:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		plugin.StateRestarting: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	}
)

// loader is implemented by bodies that fetch their own data.
type loader interface {
	Load(ctx context.Context) error
	Refresh(ctx context.Context) error
}

// resolved reports whether a resource's first fetch has finished.
func resolved[T any](s resource.Snapshot[T]) bool {
	return s.HasData || s.Err != nil
}

// clipLines keeps at most h lines.
func clipLines(lines []string, h int) string {
	if len(lines) > h {
		lines = lines[:h]
	}
	return strings.Join(lines, "\n")
}

// ============================================================================
// Device list
// ============================================================================

type deviceListBody struct {
	devices  *resource.Devices
	adapters *resource.Plugins

	// selected is the id of the device under the cursor and adapter the
	// index of the adapter under the cursor. They only change on the
	// program's goroutine.
	selected string
	adapter  int
}

func (s Sources) deviceList(widget.Descriptor, widget.Config) widget.Body {
	return &deviceListBody{devices: s.Resources.Devices, adapters: s.Resources.Adapters}
}

func (b *deviceListBody) Ready() bool {
	return resolved(b.devices.Snapshot())
}

func (b *deviceListBody) View(_, height int) string {
	snap := b.devices.Snapshot()
	adapters := b.adapters.Snapshot().Data

	var lines []string
	if snap.Err != nil {
		lines = append(lines, errStyle.Render("⚠ "+snap.Err.Error()))
	}
	if len(snap.Data) == 0 {
		lines = append(lines, dimStyle.Render("No devices registered"))
		return clipLines(lines, height)
	}

	current, _, _ := b.current()
	for _, d := range snap.Data {
		marker, cursor := "  ", -1
		if d.ID == current.ID {
			marker, cursor = cursorStyle.Render("› "), b.adapter
		}
		lines = append(lines,
			marker+nameStyle.Render(d.Name)+dimStyle.Render(fmt.Sprintf("  %s · %s", d.Address, d.Protocol)),
			"    "+formatLinks(resource.LinkedAdapters(d, adapters), cursor),
		)
		if caps := formatCapabilities(d.Capabilities); caps != "" {
			lines = append(lines, "    "+caps)
		}
	}
	return clipLines(lines, height)
}

// formatLinks draws one badge per adapter. The badge at cursor, if any,
// is bracketed.
func formatLinks(links []resource.AdapterLink, cursor int) string {
	if len(links) == 0 {
		return dimStyle.Render("no adapters connected")
	}
	cursor = min(cursor, len(links)-1)
	parts := make([]string, len(links))
	for i, l := range links {
		if l.Linked {
			parts[i] = linkedStyle.Render("✓ " + adapterName(l.Adapter))
		} else {
			parts[i] = dimStyle.Render("✗ " + adapterName(l.Adapter))
		}
		if i == cursor {
			parts[i] = cursorStyle.Render("[") + parts[i] + cursorStyle.Render("]")
		}
	}
	return strings.Join(parts, "  ")
}

func adapterName(p plugin.Plugin) string {
	if p.Name == "" {
		return p.ID
	}
	return p.Name
}

var unitSuffix = map[device.Unit]string{
	device.UnitCelsius: "°C",
	device.UnitPercent: "%",
	device.UnitVolt:    "V",
}

func formatCapabilities(caps map[device.CapabilityType]device.Capability) string {
	if len(caps) == 0 {
		return ""
	}
	names := make([]string, 0, len(caps))
	for name := range caps {
		names = append(names, string(name))
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		c := caps[device.CapabilityType(name)]
		parts[i] = fmt.Sprintf("%s %v%s", name, c.Value, unitSuffix[c.Unit])
	}
	return strings.Join(parts, " · ")
}

// ============================================================================
// Bluetooth scan
// ============================================================================

// WaitingText is shown by the Bluetooth widget while the push channel is
// not connected.
const WaitingText = "Waiting for connection…"

type bluetoothBody struct {
	peers *PeerTable
}

func (s Sources) bluetoothScan(widget.Descriptor, widget.Config) widget.Body {
	return &bluetoothBody{peers: s.Peers}
}

func (b *bluetoothBody) Ready() bool { return true }

func (b *bluetoothBody) View(_, height int) string {
	if !b.peers.Connected() {
		return dimStyle.Render(WaitingText)
	}
	peers := b.peers.Peers()
	if len(peers) == 0 {
		return dimStyle.Render("No devices seen yet")
	}
	lines := make([]string, len(peers))
	for i, p := range peers {
		name := p.Name
		if name == "" {
			name = dimStyle.Render("(unnamed)")
		}
		lines[i] = fmt.Sprintf("%-17s  %s", p.Address, name)
	}
	return clipLines(lines, height)
}

// ============================================================================
// State lists
// ============================================================================

type stateListBody struct {
	source  widget.StateSource
	plugins *resource.Plugins
}

func (s Sources) stateList(_ widget.Descriptor, cfg widget.Config) widget.Body {
	src := cfg.(widget.StateListConfig).Source
	return &stateListBody{source: src, plugins: s.pluginsFor(src)}
}

// pluginsFor returns the collection a state list shows.
func (s Sources) pluginsFor(src widget.StateSource) *resource.Plugins {
	if src == widget.SourceScanners {
		return s.Resources.Scanners
	}
	return s.Resources.Adapters
}

func (b *stateListBody) Ready() bool {
	return resolved(b.plugins.Snapshot())
}

func (b *stateListBody) View(_, height int) string {
	snap := b.plugins.Snapshot()
	var lines []string
	if snap.Err != nil {
		lines = append(lines, errStyle.Render("⚠ "+snap.Err.Error()))
	}
	if len(snap.Data) == 0 {
		lines = append(lines, dimStyle.Render("No "+string(b.source)+" connected"))
		return clipLines(lines, height)
	}

	eligible, _ := FirstEligible(snap.Data)
	for _, p := range snap.Data {
		name := p.Name
		if name == "" {
			name = p.ID
		}
		style, ok := stateStyles[p.State]
		if !ok {
			style = stateStyles[plugin.StateRunning]
		}
		line := style.Render("●") + " " + name + " " + dimStyle.Render(string(p.State))
		if action := resource.ActionFor(p.State); action != resource.ActionNone {
			hint := "[" + action.String() + "]"
			if p.ID == eligible.ID {
				hint = "[s] " + action.String()
			}
			line += " " + dimStyle.Render(hint)
		}
		lines = append(lines, line)
	}
	return clipLines(lines, height)
}

// FirstEligible returns the first plugin that offers an action.
func FirstEligible(plugins []plugin.Plugin) (plugin.Plugin, bool) {
	for _, p := range plugins {
		if resource.ActionFor(p.State) != resource.ActionNone {
			return p, true
		}
	}
	return plugin.Plugin{}, false
}

// ============================================================================
// Data-source widgets
// ============================================================================

// fetchBody draws a value fetched from a widget's data source.
type fetchBody[T any] struct {
	res    *resource.Resource[T]
	render func(data T, width, height int) string
}

func newFetchBody[T any](s Sources, name, url string, render func(T, int, int) string) *fetchBody[T] {
	fetch := func(ctx context.Context) (T, error) {
		var v T
		err := s.Fetcher.GetJSON(ctx, url, &v)
		return v, err
	}
	return &fetchBody[T]{res: resource.New[T](name, fetch, s.Options...), render: render}
}

func (b *fetchBody[T]) Ready() bool {
	return resolved(b.res.Snapshot())
}

func (b *fetchBody[T]) Load(ctx context.Context) error {
	return b.res.Activate(ctx)
}

func (b *fetchBody[T]) Refresh(ctx context.Context) error {
	return b.res.Refresh(ctx)
}

func (b *fetchBody[T]) View(width, height int) string {
	snap := b.res.Snapshot()
	if !snap.HasData {
		if snap.Err == nil {
			return ""
		}
		return errStyle.Render("⚠ " + snap.Err.Error())
	}
	if snap.Err != nil && height > 1 {
		return b.render(snap.Data, width, height-1) + "\n" + errStyle.Render("⚠ stale: "+snap.Err.Error())
	}
	return b.render(snap.Data, width, height)
}

func (s Sources) lineChart(d widget.Descriptor, cfg widget.Config) widget.Body {
	return newFetchBody(s, d.ID, cfg.(widget.LineChartConfig).URL, renderChart)
}

func (s Sources) keyValueList(d widget.Descriptor, cfg widget.Config) widget.Body {
	kv := cfg.(widget.KeyValueListConfig)
	return newFetchBody(s, d.ID, kv.URL, func(data map[string]any, width, height int) string {
		return renderKeyValues(data, kv.Keys, height)
	})
}

// chartLevels are the eighth-block glyphs, from empty to full.
var chartLevels = []rune(" ▁▂▃▄▅▆▇█")

// renderChart draws the latest points of h as a bar chart with a summary
// line above it.
func renderChart(h influxdb.History, width, height int) string {
	if len(h.Points) == 0 {
		return dimStyle.Render("No data")
	}
	pts := h.Points
	if len(pts) > width {
		pts = pts[len(pts)-width:]
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, p := range pts {
		lo = math.Min(lo, p.Y)
		hi = math.Max(hi, p.Y)
	}
	last := pts[len(pts)-1]
	summary := fmt.Sprintf("%s %.2f", h.YLabel, last.Y) +
		dimStyle.Render(fmt.Sprintf("  min %.2f max %.2f", lo, hi))

	rows := height - 1
	if rows < 1 {
		return summary
	}

	// Each column is filled in eighths of a row.
	eighths := make([]int, len(pts))
	for i, p := range pts {
		frac := 1.0
		if hi > lo {
			frac = (p.Y - lo) / (hi - lo)
		}
		eighths[i] = max(1, int(math.Round(frac*float64(rows*8))))
	}

	lines := make([]string, 0, rows+1)
	lines = append(lines, summary)
	var sb strings.Builder
	for r := rows - 1; r >= 0; r-- {
		sb.Reset()
		for _, e := range eighths {
			fill := min(max(e-r*8, 0), 8)
			sb.WriteRune(chartLevels[fill])
		}
		lines = append(lines, chartStyle.Render(sb.String()))
	}
	return strings.Join(lines, "\n")
}

// renderKeyValues draws one "key: value" row per entry, in the order of
// keys when given, otherwise sorted by key.
func renderKeyValues(data map[string]any, keys []string, height int) string {
	if len(keys) == 0 {
		keys = make([]string, 0, len(data))
		for k := range data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
	}
	if len(keys) == 0 {
		return dimStyle.Render("No data")
	}

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		v, ok := data[k]
		value := fmt.Sprint(v)
		if !ok {
			value = dimStyle.Render("-")
		}
		lines = append(lines, nameStyle.Render(k)+": "+value)
	}
	return clipLines(lines, height)
}
