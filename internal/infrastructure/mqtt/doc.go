// Package mqtt provides MQTT client connectivity for the GoHome core.
//
// Plugins (Bluetooth and HTTP scanners, HomeKit and history adapters) run
// as separate processes. The broker is the only link between them and
// the core:
//
//	Scanners ──gohome/raw_data──▶ Core ──gohome/device/updated/{id}──▶ Adapters
//	Plugins  ──gohome/plugin/*──▶ Core ──gohome/plugin/{start,stop}/{id}──▶ Plugins
//
// This package manages:
//   - Connection with auto-reconnect and subscription restore
//   - Publishing with QoS validation and a payload size cap
//   - Last Will and Testament on gohome/system/status
//   - Topic builders (Topics) so no caller formats topic strings by hand
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.PluginConnected(), 1, handler)
//	err = client.PublishJSON(mqtt.Topics{}.PluginStart("homekit-adapter"), []any{})
package mqtt
