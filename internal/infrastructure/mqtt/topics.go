package mqtt

import "fmt"

// Topic prefixes of the GoHome bus. Plugins (scanners and adapters) run as
// separate processes and talk to the core exclusively over these topics.
const (
	// TopicPrefix is the root of every GoHome topic.
	TopicPrefix = "gohome"

	// TopicPrefixPlugin is the base for plugin lifecycle topics.
	TopicPrefixPlugin = "gohome/plugin"

	// TopicPrefixDevice is the base for core → adapter device topics.
	TopicPrefixDevice = "gohome/device"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "gohome/system"
)

// Topics provides builders for GoHome MQTT topics.
//
//	topics := mqtt.Topics{}
//	topics.PluginStart("bluetooth-scanner")
//	// Returns: "gohome/plugin/start/bluetooth-scanner"
type Topics struct{}

// =============================================================================
// Scanner → Core
// =============================================================================

// RawData is where scanners publish parsed capability readings.
//
// Example: gohome/raw_data
func (Topics) RawData() string {
	return TopicPrefix + "/raw_data"
}

// BluetoothFound is where the bluetooth scanner announces every peer it sees.
//
// Example: gohome/bluetooth/found
func (Topics) BluetoothFound() string {
	return TopicPrefix + "/bluetooth/found"
}

// =============================================================================
// Plugin lifecycle
// =============================================================================

// PluginConnected is published by a plugin when it comes up.
func (Topics) PluginConnected() string {
	return TopicPrefixPlugin + "/connected"
}

// PluginDisconnected is published by a plugin when it goes away.
func (Topics) PluginDisconnected() string {
	return TopicPrefixPlugin + "/disconnected"
}

// PluginNewState is published by a plugin after its state changes.
func (Topics) PluginNewState() string {
	return TopicPrefixPlugin + "/newstate"
}

// PluginAck is published by a plugin that executed a start/stop command.
func (Topics) PluginAck() string {
	return TopicPrefixPlugin + "/ack"
}

// PluginNegativeAck is published by a plugin that refused a command.
func (Topics) PluginNegativeAck() string {
	return TopicPrefixPlugin + "/negative-ack"
}

// PluginStart returns the command topic that starts one plugin.
//
// Example: gohome/plugin/start/homekit-adapter
func (Topics) PluginStart(pluginID string) string {
	return fmt.Sprintf("%s/start/%s", TopicPrefixPlugin, pluginID)
}

// PluginStop returns the command topic that stops one plugin.
//
// Example: gohome/plugin/stop/homekit-adapter
func (Topics) PluginStop(pluginID string) string {
	return fmt.Sprintf("%s/stop/%s", TopicPrefixPlugin, pluginID)
}

// =============================================================================
// Core → Adapter
// =============================================================================

// DeviceRegister tells an adapter a device was linked to it.
//
// Example: gohome/device/register/homekit-adapter
func (Topics) DeviceRegister(adapterID string) string {
	return fmt.Sprintf("%s/register/%s", TopicPrefixDevice, adapterID)
}

// DeviceUnregister tells an adapter a device was unlinked from it.
//
// Example: gohome/device/unregister/homekit-adapter
func (Topics) DeviceUnregister(adapterID string) string {
	return fmt.Sprintf("%s/unregister/%s", TopicPrefixDevice, adapterID)
}

// DeviceUpdated carries capability updates for devices linked to an adapter.
//
// Example: gohome/device/updated/homekit-adapter
func (Topics) DeviceUpdated(adapterID string) string {
	return fmt.Sprintf("%s/updated/%s", TopicPrefixDevice, adapterID)
}

// =============================================================================
// System
// =============================================================================

// SystemStatus returns the retained core status topic (also the LWT topic).
//
// Example: gohome/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// AllPluginEvents matches every plugin lifecycle topic, commands included.
//
// Pattern: gohome/plugin/#
func (Topics) AllPluginEvents() string {
	return TopicPrefixPlugin + "/#"
}

// AllTopics matches all GoHome traffic.
//
// Pattern: gohome/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}
