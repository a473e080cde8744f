// Package dashboard is the GoHome terminal dashboard.
//
// The dashboard is a bubbletea program. It keeps the REST collections in
// resource.Set, resolves the active widgets through a widget.Registry,
// persists which widgets are active in a layout.Store, and arranges the
// resolved widgets with the grid engine.
//
// Live Bluetooth sightings arrive on a topic subscription and are folded
// into a PeerTable. Every state change, whether from a fetch or a push
// message, wakes the program through a single coalescing channel.
//
// Keys:
//
//	e      toggle edit mode
//	tab    focus next widget (shift+tab: previous)
//	x      remove the focused widget (edit mode only)
//	m      open the widget manager; enter toggles the selected widget
//	s      start or stop the first eligible plugin of a state list
//	n      register a discovered Bluetooth peer as a device
//	r      refresh every collection and data source
//	?      toggle full help
//	q      quit
//
// With the device list focused:
//
//	↑/↓    pick a device
//	←/→    pick an adapter
//	l      link or unlink the device and the adapter
//	d      delete the device (y confirms)
//	enter  open the device, with its device and capability widgets
package dashboard
