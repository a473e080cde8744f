package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/gohome/internal/device"
	"github.com/nerrad567/gohome/internal/infrastructure/mqtt"
	"github.com/nerrad567/gohome/internal/plugin"
	"github.com/nerrad567/gohome/internal/topic"
)

// Subscriber is the MQTT side of the bus. *mqtt.Client satisfies it.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Plugins receives plugin lifecycle events and forwards capability
// updates to adapters. *plugin.Manager satisfies it.
type Plugins interface {
	HandleConnected(p plugin.Plugin)
	HandleDisconnected(p plugin.Plugin)
	HandleStateChanged(p plugin.Plugin)
	HandleAck(p plugin.Plugin)
	HandleNegativeAck(p plugin.Plugin)
	ForwardUpdate(adapterID string, update any) error
}

// Devices applies scanner readings. *device.Registry satisfies it.
type Devices interface {
	ApplyReading(ctx context.Context, reading device.Reading) (*device.Device, []device.Capability, error)
}

// Broadcaster pushes a message to the subscribers of a topic.
// *api.Hub satisfies it.
type Broadcaster interface {
	Broadcast(t topic.Topic, message any) error
}

// History records capability values. *influxdb.Client satisfies it.
type History interface {
	WriteCapability(deviceID, capability, unit string, value any, ts time.Time) bool
}

// Logger defines the logging interface used by the Bus.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Deps holds the collaborators of a Bus. History may be nil.
type Deps struct {
	MQTT    Subscriber
	Plugins Plugins
	Devices Devices
	Hub     Broadcaster
	History History
	Logger  Logger
	QoS     byte
}

// Bus routes MQTT events into the core: plugin lifecycle to the plugin
// manager, discovered Bluetooth peers to the push hub, and scanner
// readings through the device registry to history, adapters and the hub.
type Bus struct {
	deps   Deps
	topics mqtt.Topics

	mu         sync.Mutex
	ctx        context.Context
	subscribed []string
}

// New creates a Bus. Call Start to subscribe.
func New(deps Deps) *Bus {
	if deps.Logger == nil {
		deps.Logger = noopLogger{}
	}
	return &Bus{deps: deps}
}

// Start subscribes to every core topic. ctx bounds the work done by
// handlers; cancel it and call Stop on shutdown.
//
// A failed subscription unwinds the ones already made.
func (b *Bus) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ctx != nil {
		return errors.New("eventbus: already started")
	}
	b.ctx = ctx

	routes := []struct {
		topic   string
		handler mqtt.MessageHandler
	}{
		{b.topics.PluginConnected(), b.pluginHandler(b.deps.Plugins.HandleConnected)},
		{b.topics.PluginDisconnected(), b.pluginHandler(b.deps.Plugins.HandleDisconnected)},
		{b.topics.PluginNewState(), b.pluginHandler(b.deps.Plugins.HandleStateChanged)},
		{b.topics.PluginAck(), b.pluginHandler(b.deps.Plugins.HandleAck)},
		{b.topics.PluginNegativeAck(), b.pluginHandler(b.deps.Plugins.HandleNegativeAck)},
		{b.topics.BluetoothFound(), b.handleBluetoothFound},
		{b.topics.RawData(), b.handleRawData},
	}

	for _, r := range routes {
		if err := b.deps.MQTT.Subscribe(r.topic, b.deps.QoS, r.handler); err != nil {
			b.unsubscribeLocked()
			b.ctx = nil
			return fmt.Errorf("subscribing to %s: %w", r.topic, err)
		}
		b.subscribed = append(b.subscribed, r.topic)
	}

	b.deps.Logger.Info("event bus started", "subscriptions", len(b.subscribed))
	return nil
}

// Stop removes every subscription made by Start.
func (b *Bus) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.unsubscribeLocked()
	b.ctx = nil
}

func (b *Bus) unsubscribeLocked() {
	for _, t := range b.subscribed {
		if err := b.deps.MQTT.Unsubscribe(t); err != nil {
			b.deps.Logger.Warn("unsubscribe failed", "topic", t, "error", err)
		}
	}
	b.subscribed = nil
}

func (b *Bus) context() context.Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ctx == nil {
		return context.Background()
	}
	return b.ctx
}

// =============================================================================
// Handlers
// =============================================================================

func (b *Bus) pluginHandler(fn func(plugin.Plugin)) mqtt.MessageHandler {
	return func(t string, payload []byte) error {
		recordEvent(t)
		var p plugin.Plugin
		if err := json.Unmarshal(payload, &p); err != nil {
			recordRejected()
			return fmt.Errorf("decoding plugin event: %w", err)
		}
		fn(p)
		return nil
	}
}

func (b *Bus) handleBluetoothFound(t string, payload []byte) error {
	recordEvent(t)
	var peer topic.BluetoothPeer
	if err := json.Unmarshal(payload, &peer); err != nil {
		recordRejected()
		return fmt.Errorf("decoding bluetooth peer: %w", err)
	}
	if peer.Address == "" {
		recordRejected()
		return errors.New("bluetooth peer without address")
	}
	if peer.Protocols == nil {
		peer.Protocols = []string{}
	}
	return b.deps.Hub.Broadcast(topic.BluetoothDevice, peer)
}

func (b *Bus) handleRawData(t string, payload []byte) error {
	recordEvent(t)
	var reading device.Reading
	if err := json.Unmarshal(payload, &reading); err != nil {
		recordRejected()
		return fmt.Errorf("decoding reading: %w", err)
	}

	dev, changed, err := b.deps.Devices.ApplyReading(b.context(), reading)
	if errors.Is(err, device.ErrDeviceNotFound) {
		recordUnknownReading()
		b.deps.Logger.Debug("reading for unregistered address", "address", reading.Address)
		return nil
	}
	if err != nil {
		return fmt.Errorf("applying reading: %w", err)
	}

	recordChanges(len(changed))
	for _, c := range changed {
		b.publishChange(dev, c)
	}
	return nil
}

// publishChange fans one changed capability out to history, every linked
// adapter and the push hub. A failing sink does not stop the others.
func (b *Bus) publishChange(dev *device.Device, c device.Capability) {
	update := device.StateUpdate{
		DeviceID:       dev.ID,
		DeviceName:     dev.Name,
		CapabilityType: c.Name,
		Timestamp:      dev.LastUpdated,
		Value:          c.Value,
		Unit:           c.Unit,
	}

	if b.deps.History != nil {
		b.deps.History.WriteCapability(dev.ID, string(c.Name), string(c.Unit), c.Value, dev.LastUpdated)
	}

	for _, adapterID := range dev.AdapterIDs {
		if err := b.deps.Plugins.ForwardUpdate(adapterID, update); err != nil {
			b.deps.Logger.Warn("forwarding update to adapter failed",
				"adapter_id", adapterID, "device_id", dev.ID, "error", err)
		}
	}

	if err := b.deps.Hub.Broadcast(topic.DeviceState, update); err != nil {
		b.deps.Logger.Warn("broadcasting device state failed", "device_id", dev.ID, "error", err)
	}
}
