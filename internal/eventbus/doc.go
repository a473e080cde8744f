// Package eventbus connects the MQTT plugin bus to the GoHome core.
//
// Plugins (scanners and adapters) run as separate processes and talk to
// the core over MQTT:
//
//	gohome/plugin/{connected,disconnected,newstate,ack,negative-ack}  → plugin.Manager
//	gohome/bluetooth/found                                            → hub topic_bluetooth_device
//	gohome/raw_data                                                   → device.Registry.ApplyReading
//	                                                                      → InfluxDB history
//	                                                                      → gohome/device/updated/{adapterId}
//	                                                                      → hub topic_device_state
//
// Payloads that do not decode are logged by the MQTT client and counted
// on the gohome_bus_events_rejected_total metric.
package eventbus
