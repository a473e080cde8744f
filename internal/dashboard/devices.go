package dashboard

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nerrad567/gohome/internal/device"
	"github.com/nerrad567/gohome/internal/grid"
	"github.com/nerrad567/gohome/internal/resource"
	"github.com/nerrad567/gohome/internal/widget"
)

// current returns the device under the cursor and its index. The cursor
// falls back to the first device when its device is gone.
func (b *deviceListBody) current() (device.Device, int, bool) {
	devices := b.devices.Snapshot().Data
	if len(devices) == 0 {
		return device.Device{}, -1, false
	}
	for i, d := range devices {
		if d.ID == b.selected {
			return d, i, true
		}
	}
	return devices[0], 0, true
}

func (b *deviceListBody) moveDevice(delta int) {
	devices := b.devices.Snapshot().Data
	if len(devices) == 0 {
		return
	}
	_, i, _ := b.current()
	i = min(max(i+delta, 0), len(devices)-1)
	if devices[i].ID != b.selected {
		b.selected = devices[i].ID
		b.adapter = 0
	}
}

func (b *deviceListBody) moveAdapter(delta int) {
	n := len(b.adapters.Snapshot().Data)
	if n == 0 {
		return
	}
	b.adapter = min(max(b.adapter+delta, 0), n-1)
}

// currentLink returns the device and the adapter under the cursor.
func (b *deviceListBody) currentLink() (device.Device, resource.AdapterLink, bool) {
	d, _, ok := b.current()
	if !ok {
		return d, resource.AdapterLink{}, false
	}
	links := resource.LinkedAdapters(d, b.adapters.Snapshot().Data)
	if len(links) == 0 {
		return d, resource.AdapterLink{}, false
	}
	return d, links[min(b.adapter, len(links)-1)], true
}

// focusedDeviceList returns the device list body when it has the focus.
func (m *Model) focusedDeviceList() (*deviceListBody, bool) {
	id, ok := m.layout.Focused()
	if !ok {
		return nil, false
	}
	r, ok := m.renderables[id]
	if !ok {
		return nil, false
	}
	b, ok := r.Body.(*deviceListBody)
	return b, ok
}

// updateDeviceList handles the keys the focused device list owns.
// handled is false for every other key.
func (m *Model) updateDeviceList(b *deviceListBody, msg tea.KeyMsg) (cmd tea.Cmd, handled bool) {
	switch {
	case key.Matches(msg, m.keys.Up):
		b.moveDevice(-1)
	case key.Matches(msg, m.keys.Down):
		b.moveDevice(1)
	case key.Matches(msg, m.keys.Left):
		b.moveAdapter(-1)
	case key.Matches(msg, m.keys.Right):
		b.moveAdapter(1)
	case key.Matches(msg, m.keys.Link):
		return m.toggleLink(b), true
	case key.Matches(msg, m.keys.Delete):
		d, _, ok := b.current()
		if !ok {
			m.setStatus("no device to delete")
			return nil, true
		}
		m.confirm = &d
		m.setStatus(fmt.Sprintf("delete %s? y confirms, any other key cancels", d.Name))
	case key.Matches(msg, m.keys.Open):
		d, _, ok := b.current()
		if !ok {
			return nil, true
		}
		return m.openDetail(d), true
	default:
		return nil, false
	}
	return nil, true
}

// toggleLink links the device under the cursor to the adapter under the
// cursor, or unlinks it when already linked.
func (m *Model) toggleLink(b *deviceListBody) tea.Cmd {
	d, link, ok := b.currentLink()
	if !ok {
		m.setStatus("no adapter to link")
		return nil
	}

	verb, apply := "link", m.res.Devices.LinkAdapter
	if link.Linked {
		verb, apply = "unlink", m.res.Devices.UnlinkAdapter
	}
	target := d.Name + " ↔ " + adapterName(link.Adapter)
	m.setStatus(verb + " " + target + "…")
	return func() tea.Msg {
		return deviceMsg{verb: verb, target: target, err: apply(m.ctx, d.ID, link.Adapter.ID)}
	}
}

func (m *Model) updateConfirm(msg tea.KeyMsg) tea.Cmd {
	d := *m.confirm
	m.confirm = nil
	if msg.String() == "ctrl+c" {
		return tea.Quit
	}
	if !key.Matches(msg, m.keys.Confirm) {
		m.setStatus("delete cancelled")
		return nil
	}
	m.setStatus("delete " + d.Name + "…")
	return func() tea.Msg {
		return deviceMsg{verb: "delete", target: d.Name, err: m.res.Devices.Delete(m.ctx, d.ID)}
	}
}

// deviceDetail is the screen of one device: its identity, its adapter
// links and the plugin widgets mounted on devices and capabilities.
type deviceDetail struct {
	deviceID string
	layout   *grid.Layout
	loaders  []loader
}

// openDetail resolves the device and capability widgets for d and starts
// their first fetch.
func (m *Model) openDetail(d device.Device) tea.Cmd {
	detail := &deviceDetail{deviceID: d.ID}
	var items []grid.Item
	var cmds []tea.Cmd

	add := func(desc widget.Descriptor, ctx widget.Context, itemID string) {
		r, err := m.registry.Resolve(desc, ctx)
		if err != nil {
			m.logger.Warn("skipping device widget", "widget_id", desc.ID, "device_id", d.ID, "error", err)
			return
		}
		if l, ok := r.Body.(loader); ok {
			detail.loaders = append(detail.loaders, l)
			cmds = append(cmds, m.load(l))
		}
		items = append(items, grid.Item{
			ID:   itemID,
			Cols: r.Cols,
			Rows: r.Rows,
			Render: func(w, h int, state grid.CellState) string {
				return r.View(w, h, widget.FrameOptions{Focused: state.Focused})
			},
		})
	}

	for _, id := range m.registry.IDs(widget.MountDevice) {
		desc, _ := m.registry.Descriptor(id)
		add(desc, widget.Context{DeviceID: d.ID}, id)
	}
	for _, capability := range capabilityTypes(d) {
		for _, id := range m.registry.IDs(widget.MountCapability) {
			desc, _ := m.registry.Descriptor(id)
			desc.Name += " · " + capability
			add(desc, widget.Context{DeviceID: d.ID, CapabilityType: capability}, id+"/"+capability)
		}
	}

	detail.layout = m.engine.Arrange(items)
	m.detail = detail
	return tea.Batch(cmds...)
}

func capabilityTypes(d device.Device) []string {
	types := make([]string, 0, len(d.Capabilities))
	for t := range d.Capabilities {
		types = append(types, string(t))
	}
	sort.Strings(types)
	return types
}

func (m *Model) updateDetail(msg tea.KeyMsg) tea.Cmd {
	switch {
	case msg.String() == "ctrl+c", key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.Close):
		m.detail = nil
	case key.Matches(msg, m.keys.Next):
		m.detail.layout.FocusNext()
	case key.Matches(msg, m.keys.Prev):
		m.detail.layout.FocusPrev()
	case key.Matches(msg, m.keys.Refresh):
		return m.refresh()
	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return cmd
	}
	return nil
}

func (m *Model) detailView() string {
	var d device.Device
	found := false
	for _, candidate := range m.res.Devices.Snapshot().Data {
		if candidate.ID == m.detail.deviceID {
			d, found = candidate, true
			break
		}
	}
	if !found {
		return dimStyle.Render("This device no longer exists. Press esc to go back.")
	}

	lines := []string{
		nameStyle.Render(d.Name) + dimStyle.Render(fmt.Sprintf("  %s · %s · %s", d.Address, d.AddressType, d.Protocol)),
		formatLinks(resource.LinkedAdapters(d, m.res.Adapters.Snapshot().Data), -1),
	}
	if caps := formatCapabilities(d.Capabilities); caps != "" {
		lines = append(lines, caps)
	}
	lines = append(lines, "")
	if m.detail.layout.Len() == 0 {
		lines = append(lines, dimStyle.Render("No device widgets installed"))
	} else {
		lines = append(lines, m.detail.layout.Render(m.cellWidth()))
	}
	return strings.Join(lines, "\n")
}
