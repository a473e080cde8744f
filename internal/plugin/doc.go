// Package plugin tracks the GoHome plugins connected to the bus.
//
// Plugins are separate processes. Scanners (Bluetooth, HTTP) publish
// device readings; adapters (HomeKit, history) consume them. Each plugin
// announces itself on gohome/plugin/connected and reports state changes
// on gohome/plugin/newstate. The Manager keeps the current view and sends
// start/stop commands, waiting for the plugin's ack or negative ack.
//
// The Manager does not subscribe to MQTT itself; the eventbus package
// feeds it decoded announcements through the Handle* methods.
package plugin
