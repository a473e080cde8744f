package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gohome/internal/device"
	"github.com/nerrad567/gohome/internal/infrastructure/mqtt"
	"github.com/nerrad567/gohome/internal/plugin"
	"github.com/nerrad567/gohome/internal/topic"
)

type fakeMQTT struct {
	handlers     map[string]mqtt.MessageHandler
	unsubscribed []string
	failOn       string
}

func newFakeMQTT() *fakeMQTT {
	return &fakeMQTT{handlers: make(map[string]mqtt.MessageHandler)}
}

func (f *fakeMQTT) Subscribe(t string, _ byte, h mqtt.MessageHandler) error {
	if t == f.failOn {
		return errors.New("subscribe refused")
	}
	f.handlers[t] = h
	return nil
}

func (f *fakeMQTT) Unsubscribe(t string) error {
	delete(f.handlers, t)
	f.unsubscribed = append(f.unsubscribed, t)
	return nil
}

func (f *fakeMQTT) deliver(t *testing.T, topicName string, payload string) error {
	t.Helper()
	h, ok := f.handlers[topicName]
	if !ok {
		t.Fatalf("no handler for %s", topicName)
	}
	return h(topicName, []byte(payload))
}

type fakePlugins struct {
	mu         sync.Mutex
	events     []string
	forwarded  map[string][]device.StateUpdate
	forwardErr error
}

func newFakePlugins() *fakePlugins {
	return &fakePlugins{forwarded: make(map[string][]device.StateUpdate)}
}

func (f *fakePlugins) record(kind string, p plugin.Plugin) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, kind+":"+p.ID)
}

func (f *fakePlugins) HandleConnected(p plugin.Plugin)    { f.record("connected", p) }
func (f *fakePlugins) HandleDisconnected(p plugin.Plugin) { f.record("disconnected", p) }
func (f *fakePlugins) HandleStateChanged(p plugin.Plugin) { f.record("newstate", p) }
func (f *fakePlugins) HandleAck(p plugin.Plugin)          { f.record("ack", p) }
func (f *fakePlugins) HandleNegativeAck(p plugin.Plugin)  { f.record("nack", p) }

func (f *fakePlugins) ForwardUpdate(adapterID string, update any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.forwardErr != nil {
		return f.forwardErr
	}
	f.forwarded[adapterID] = append(f.forwarded[adapterID], update.(device.StateUpdate))
	return nil
}

type fakeDevices struct {
	device  *device.Device
	changed []device.Capability
	err     error
	got     []device.Reading
}

func (f *fakeDevices) ApplyReading(_ context.Context, r device.Reading) (*device.Device, []device.Capability, error) {
	f.got = append(f.got, r)
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.device, f.changed, nil
}

type broadcast struct {
	topic   topic.Topic
	message any
}

type fakeHub struct {
	sent []broadcast
}

func (f *fakeHub) Broadcast(t topic.Topic, message any) error {
	f.sent = append(f.sent, broadcast{t, message})
	return nil
}

type fakeHistory struct {
	points []string
}

func (f *fakeHistory) WriteCapability(deviceID, capability, unit string, value any, _ time.Time) bool {
	f.points = append(f.points, fmt.Sprintf("%s/%s=%v%s", deviceID, capability, value, unit))
	return true
}

type fixture struct {
	bus     *Bus
	mqtt    *fakeMQTT
	plugins *fakePlugins
	devices *fakeDevices
	hub     *fakeHub
	history *fakeHistory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		mqtt:    newFakeMQTT(),
		plugins: newFakePlugins(),
		devices: &fakeDevices{},
		hub:     &fakeHub{},
		history: &fakeHistory{},
	}
	f.bus = New(Deps{
		MQTT:    f.mqtt,
		Plugins: f.plugins,
		Devices: f.devices,
		Hub:     f.hub,
		History: f.history,
	})
	if err := f.bus.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(f.bus.Stop)
	return f
}

func TestBus_StartSubscribesEveryTopic(t *testing.T) {
	f := newFixture(t)
	var topics mqtt.Topics

	want := []string{
		topics.PluginConnected(), topics.PluginDisconnected(), topics.PluginNewState(),
		topics.PluginAck(), topics.PluginNegativeAck(), topics.BluetoothFound(), topics.RawData(),
	}
	for _, w := range want {
		if _, ok := f.mqtt.handlers[w]; !ok {
			t.Errorf("missing subscription %s", w)
		}
	}

	if err := f.bus.Start(context.Background()); err == nil {
		t.Error("second Start() expected error")
	}

	f.bus.Stop()
	if len(f.mqtt.handlers) != 0 {
		t.Errorf("handlers after Stop = %d, want 0", len(f.mqtt.handlers))
	}
}

func TestBus_StartUnwindsOnFailure(t *testing.T) {
	m := newFakeMQTT()
	m.failOn = mqtt.Topics{}.BluetoothFound()
	bus := New(Deps{MQTT: m, Plugins: newFakePlugins(), Devices: &fakeDevices{}, Hub: &fakeHub{}})

	if err := bus.Start(context.Background()); err == nil {
		t.Fatal("Start() expected error")
	}
	if len(m.handlers) != 0 {
		t.Errorf("handlers after failed Start = %d, want 0", len(m.handlers))
	}
}

func TestBus_PluginEvents(t *testing.T) {
	f := newFixture(t)
	var topics mqtt.Topics
	payload := `{"id":"homekit-adapter","name":"HomeKit","type":"plugin_adapter","state":"running"}`

	for _, tp := range []string{
		topics.PluginConnected(), topics.PluginNewState(), topics.PluginAck(),
		topics.PluginNegativeAck(), topics.PluginDisconnected(),
	} {
		if err := f.mqtt.deliver(t, tp, payload); err != nil {
			t.Errorf("deliver(%s) error = %v", tp, err)
		}
	}

	want := []string{
		"connected:homekit-adapter", "newstate:homekit-adapter", "ack:homekit-adapter",
		"nack:homekit-adapter", "disconnected:homekit-adapter",
	}
	if fmt.Sprint(f.plugins.events) != fmt.Sprint(want) {
		t.Errorf("events = %v, want %v", f.plugins.events, want)
	}

	if err := f.mqtt.deliver(t, topics.PluginConnected(), `{`); err == nil {
		t.Error("malformed plugin event expected error")
	}
}

func TestBus_BluetoothFound(t *testing.T) {
	f := newFixture(t)
	var topics mqtt.Topics

	err := f.mqtt.deliver(t, topics.BluetoothFound(), `{"name":"ATC_1234","address":"A4:C1:38:00:11:22"}`)
	if err != nil {
		t.Fatalf("deliver error = %v", err)
	}
	if len(f.hub.sent) != 1 || f.hub.sent[0].topic != topic.BluetoothDevice {
		t.Fatalf("broadcasts = %+v", f.hub.sent)
	}
	peer := f.hub.sent[0].message.(topic.BluetoothPeer)
	if peer.Address != "A4:C1:38:00:11:22" || peer.Protocols == nil {
		t.Errorf("peer = %+v", peer)
	}

	if err := f.mqtt.deliver(t, topics.BluetoothFound(), `{"name":"nameless"}`); err == nil {
		t.Error("peer without address expected error")
	}
	if len(f.hub.sent) != 1 {
		t.Errorf("broadcasts = %d, want 1", len(f.hub.sent))
	}
}

func TestBus_RawDataFansOutChanges(t *testing.T) {
	f := newFixture(t)
	stamp := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.devices.device = &device.Device{
		ID:          "dev-1",
		Name:        "Living room",
		AdapterIDs:  []string{"homekit-adapter", "history-adapter"},
		LastUpdated: stamp,
	}
	f.devices.changed = []device.Capability{
		{Name: device.CapTemperature, Value: 21.5, Type: device.ValueFloat, Unit: device.UnitCelsius},
		{Name: device.CapHumidity, Value: 40.0, Type: device.ValueFloat, Unit: device.UnitPercent},
	}

	payload, _ := json.Marshal(device.Reading{
		Address:     "a4:c1:38:00:11:22",
		AddressType: device.AddressBLE,
		Data:        f.devices.changed,
	})
	if err := f.mqtt.deliver(t, mqtt.Topics{}.RawData(), string(payload)); err != nil {
		t.Fatalf("deliver error = %v", err)
	}

	if len(f.devices.got) != 1 || f.devices.got[0].Address != "a4:c1:38:00:11:22" {
		t.Errorf("readings = %+v", f.devices.got)
	}
	if len(f.history.points) != 2 || f.history.points[0] != "dev-1/temperature=21.5celsius" {
		t.Errorf("history = %v", f.history.points)
	}
	for _, adapterID := range []string{"homekit-adapter", "history-adapter"} {
		updates := f.plugins.forwarded[adapterID]
		if len(updates) != 2 {
			t.Fatalf("forwarded to %s = %d, want 2", adapterID, len(updates))
		}
		if updates[0].DeviceID != "dev-1" || updates[0].CapabilityType != device.CapTemperature || !updates[0].Timestamp.Equal(stamp) {
			t.Errorf("update = %+v", updates[0])
		}
	}
	if len(f.hub.sent) != 2 || f.hub.sent[1].topic != topic.DeviceState {
		t.Errorf("broadcasts = %+v", f.hub.sent)
	}
}

func TestBus_RawDataAdapterFailureStillBroadcasts(t *testing.T) {
	f := newFixture(t)
	f.plugins.forwardErr = errors.New("broker down")
	f.devices.device = &device.Device{ID: "dev-1", AdapterIDs: []string{"homekit-adapter"}}
	f.devices.changed = []device.Capability{{Name: device.CapBattery, Value: 90.0}}

	if err := f.mqtt.deliver(t, mqtt.Topics{}.RawData(), `{"address":"x","address_type":"basic"}`); err != nil {
		t.Fatalf("deliver error = %v", err)
	}
	if len(f.hub.sent) != 1 {
		t.Errorf("broadcasts = %d, want 1", len(f.hub.sent))
	}
}

func TestBus_RawDataErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		payload string
		wantErr bool
	}{
		{"unregistered address is ignored", device.ErrDeviceNotFound, `{"address":"x"}`, false},
		{"registry failure", errors.New("disk full"), `{"address":"x"}`, true},
		{"malformed payload", nil, `[1,2`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.devices.err = tt.err

			err := f.mqtt.deliver(t, mqtt.Topics{}.RawData(), tt.payload)
			if (err != nil) != tt.wantErr {
				t.Errorf("deliver error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(f.hub.sent) != 0 {
				t.Errorf("broadcasts = %d, want 0", len(f.hub.sent))
			}
		})
	}
}

func TestBus_NoHistory(t *testing.T) {
	m := newFakeMQTT()
	hub := &fakeHub{}
	bus := New(Deps{
		MQTT:    m,
		Plugins: newFakePlugins(),
		Devices: &fakeDevices{
			device:  &device.Device{ID: "dev-1"},
			changed: []device.Capability{{Name: device.CapTemperature, Value: 20.0}},
		},
		Hub: hub,
	})
	if err := bus.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer bus.Stop()

	if err := m.deliver(t, mqtt.Topics{}.RawData(), `{"address":"x"}`); err != nil {
		t.Fatalf("deliver error = %v", err)
	}
	if len(hub.sent) != 1 {
		t.Errorf("broadcasts = %d, want 1", len(hub.sent))
	}
}
