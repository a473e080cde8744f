package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/nerrad567/gohome/internal/device"
	"github.com/nerrad567/gohome/internal/plugin"
	"github.com/nerrad567/gohome/internal/topic"
)

// fakeAPI is an in-memory REST API and data-source server.
type fakeAPI struct {
	mu       sync.Mutex
	devices  []device.Device
	plugins  map[plugin.Type][]plugin.Plugin
	sources  map[string]string
	fetched  []string
	commands []string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		devices: []device.Device{{
			ID:         "d1",
			Name:       "Kitchen",
			Address:    "A4:C1:38:00:00:01",
			Protocol:   device.ProtocolBTHome,
			AdapterIDs: []string{"mqtt-adapter"},
			Capabilities: map[device.CapabilityType]device.Capability{
				device.CapTemperature: {Name: device.CapTemperature, Value: 21.5, Unit: device.UnitCelsius},
			},
		}},
		plugins: map[plugin.Type][]plugin.Plugin{
			plugin.TypeAdapter: {
				{ID: "http-adapter", Name: "HTTP", Type: plugin.TypeAdapter, State: plugin.StateStopped},
				{ID: "mqtt-adapter", Name: "MQTT", Type: plugin.TypeAdapter, State: plugin.StateRunning},
			},
			plugin.TypeScanner: {{ID: "ble-scanner", Name: "BLE", Type: plugin.TypeScanner, State: plugin.StateStopped}},
		},
		sources: map[string]string{},
	}
}

func (f *fakeAPI) ListDevices(context.Context) ([]device.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.devices), nil
}

func (f *fakeAPI) CreateDevice(_ context.Context, req device.CreateRequest) (*device.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := device.Device{ID: req.Address, Name: req.Name, Address: req.Address}
	f.devices = append(f.devices, d)
	return &d, nil
}

func (f *fakeAPI) DeleteDevice(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, "delete "+id)
	f.devices = slices.DeleteFunc(f.devices, func(d device.Device) bool { return d.ID == id })
	return nil
}

func (f *fakeAPI) LinkAdapter(_ context.Context, deviceID, adapterID string) (*device.Device, error) {
	return f.setLink(deviceID, adapterID, true)
}

func (f *fakeAPI) UnlinkAdapter(_ context.Context, deviceID, adapterID string) (*device.Device, error) {
	return f.setLink(deviceID, adapterID, false)
}

func (f *fakeAPI) setLink(deviceID, adapterID string, linked bool) (*device.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	verb := "unlink"
	if linked {
		verb = "link"
	}
	f.commands = append(f.commands, verb+" "+deviceID+" "+adapterID)
	for i := range f.devices {
		d := &f.devices[i]
		if d.ID != deviceID {
			continue
		}
		d.AdapterIDs = slices.DeleteFunc(slices.Clone(d.AdapterIDs), func(id string) bool { return id == adapterID })
		if linked {
			d.AdapterIDs = append(d.AdapterIDs, adapterID)
		}
		out := *d
		return &out, nil
	}
	return nil, device.ErrDeviceNotFound
}

func (f *fakeAPI) ListPlugins(_ context.Context, t plugin.Type) ([]plugin.Plugin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.plugins[t]), nil
}

func (f *fakeAPI) setState(t plugin.Type, id string, s plugin.State, verb string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.plugins[t] {
		if f.plugins[t][i].ID == id {
			f.plugins[t][i].State = s
			f.commands = append(f.commands, verb+" "+id)
			return nil
		}
	}
	return plugin.ErrNotFound
}

func (f *fakeAPI) StartPlugin(_ context.Context, t plugin.Type, id string) error {
	return f.setState(t, id, plugin.StateRunning, "start")
}

func (f *fakeAPI) StopPlugin(_ context.Context, t plugin.Type, id string) error {
	return f.setState(t, id, plugin.StateStopped, "stop")
}

func (f *fakeAPI) ListProtocols(context.Context) ([]device.Protocol, error) {
	return device.Protocols(), nil
}

func (f *fakeAPI) GetJSON(_ context.Context, url string, v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, url)
	body, ok := f.sources[url]
	if !ok {
		return fmt.Errorf("no data source at %s", url)
	}
	return json.Unmarshal([]byte(body), v)
}

func (f *fakeAPI) recorded() (fetched, commands []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.fetched), slices.Clone(f.commands)
}

func topicPeer(address, name string) topic.BluetoothPeer {
	return topic.BluetoothPeer{Address: address, Name: name}
}
