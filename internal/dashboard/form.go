package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nerrad567/gohome/internal/device"
)

// deviceForm registers a discovered Bluetooth peer as a device. The
// request is validated locally; an invalid form never reaches the core.
type deviceForm struct {
	peers     []Peer
	peer      int
	protocols []device.Protocol
	protocol  int
	name      textinput.Model
	err       error
}

// newDeviceForm offers the peers not yet registered and the protocols
// that decode BLE payloads.
func newDeviceForm(peers []Peer, known []device.Device, protocols []device.Protocol) *deviceForm {
	registered := make(map[string]bool, len(known))
	for _, d := range known {
		registered[device.NormaliseAddress(d.AddressType, d.Address)] = true
	}

	f := &deviceForm{name: textinput.New()}
	for _, p := range peers {
		if !registered[device.NormaliseAddress(device.AddressBLE, p.Address)] {
			f.peers = append(f.peers, p)
		}
	}
	for _, p := range protocols {
		if p.AddressType == device.AddressBLE {
			f.protocols = append(f.protocols, p)
		}
	}

	f.name.Prompt = ""
	f.name.Placeholder = "device name"
	f.name.CharLimit = 100
	f.name.Cursor.SetMode(cursor.CursorStatic)
	f.name.Focus()
	f.selectPeer(0)
	return f
}

// selectPeer moves to peer i and proposes its advertised name.
func (f *deviceForm) selectPeer(i int) {
	if i < 0 || i >= len(f.peers) {
		return
	}
	f.peer = i
	f.name.SetValue(f.peers[i].Name)
	f.name.CursorEnd()
	f.err = nil
}

func (f *deviceForm) nextProtocol() {
	if len(f.protocols) > 0 {
		f.protocol = (f.protocol + 1) % len(f.protocols)
	}
}

func (f *deviceForm) updateName(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.name, cmd = f.name.Update(msg)
	f.err = nil
	return cmd
}

// request builds the creation request from the current selection.
func (f *deviceForm) request() device.CreateRequest {
	req := device.CreateRequest{
		Name:        strings.TrimSpace(f.name.Value()),
		AddressType: device.AddressBLE,
	}
	if f.peer < len(f.peers) {
		req.Address = device.NormaliseAddress(device.AddressBLE, f.peers[f.peer].Address)
	}
	if f.protocol < len(f.protocols) {
		req.Protocol = f.protocols[f.protocol].ID
	}
	return req
}

// submit returns the request when it is valid. Otherwise the failure is
// kept for display.
func (f *deviceForm) submit() (device.CreateRequest, bool) {
	req := f.request()
	if err := device.ValidateCreateRequest(req); err != nil {
		f.err = err
		return req, false
	}
	return req, true
}

func (f *deviceForm) View() string {
	lines := []string{
		nameStyle.Render("Register device") + dimStyle.Render("  enter creates, esc cancels"),
		"",
	}

	peer := dimStyle.Render("no unregistered peers seen yet")
	if f.peer < len(f.peers) {
		p := f.peers[f.peer]
		peer = fmt.Sprintf("%s %s", p.Address, dimStyle.Render(fmt.Sprintf("(%d of %d, ↑/↓)", f.peer+1, len(f.peers))))
	}
	lines = append(lines, "Peer      "+peer)
	lines = append(lines, "Name      "+f.name.View())

	protocol := dimStyle.Render("none available")
	if f.protocol < len(f.protocols) {
		protocol = f.protocols[f.protocol].Name + dimStyle.Render("  (tab)")
	}
	lines = append(lines, "Protocol  "+protocol)

	if f.err != nil {
		lines = append(lines, "", errStyle.Render("⚠ "+f.err.Error()))
	}
	return strings.Join(lines, "\n")
}
