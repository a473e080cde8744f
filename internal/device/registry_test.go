package device

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// MockRepository is a test implementation of Repository.
type MockRepository struct {
	mu      sync.Mutex
	devices map[string]*Device

	// For testing error paths
	createErr error
	updateErr error
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		devices: make(map[string]*Device),
	}
}

func (m *MockRepository) GetByID(_ context.Context, id string) (*Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if d, ok := m.devices[id]; ok {
		return d.DeepCopy(), nil
	}
	return nil, ErrDeviceNotFound
}

func (m *MockRepository) GetByAddress(_ context.Context, address string, addressType AddressType) (*Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, d := range m.devices {
		if d.Address == address && d.AddressType == addressType {
			return d.DeepCopy(), nil
		}
	}
	return nil, ErrDeviceNotFound
}

func (m *MockRepository) List(_ context.Context) ([]Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	devices := make([]Device, 0, len(m.devices))
	for _, d := range m.devices {
		devices = append(devices, *d.DeepCopy())
	}
	return devices, nil
}

func (m *MockRepository) Create(_ context.Context, device *Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createErr != nil {
		return m.createErr
	}
	for _, d := range m.devices {
		if d.Address == device.Address && d.AddressType == device.AddressType {
			return ErrDeviceExists
		}
	}
	m.devices[device.ID] = device.DeepCopy()
	return nil
}

func (m *MockRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.devices[id]; !ok {
		return ErrDeviceNotFound
	}
	delete(m.devices, id)
	return nil
}

func (m *MockRepository) SetAdapters(_ context.Context, id string, adapterIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.updateErr != nil {
		return m.updateErr
	}
	d, ok := m.devices[id]
	if !ok {
		return ErrDeviceNotFound
	}
	d.AdapterIDs = append([]string{}, adapterIDs...)
	return nil
}

func (m *MockRepository) UpdateCapabilities(_ context.Context, id string, caps map[CapabilityType]Capability, lastUpdated time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.updateErr != nil {
		return m.updateErr
	}
	d, ok := m.devices[id]
	if !ok {
		return ErrDeviceNotFound
	}
	cpy := (&Device{Capabilities: caps}).DeepCopy()
	d.Capabilities = cpy.Capabilities
	d.LastUpdated = lastUpdated
	return nil
}

func validRequest() CreateRequest {
	return CreateRequest{
		Address:     "aa:bb:cc:dd:ee:ff",
		Name:        "Sensor1",
		AdapterIDs:  []string{"homekit-adapter", "homekit-adapter"},
		AddressType: AddressBLE,
		Protocol:    ProtocolBTHome,
	}
}

func TestRegistry_CreateDevice(t *testing.T) {
	repo := NewMockRepository()
	reg := NewRegistry(repo)
	ctx := context.Background()

	d, err := reg.CreateDevice(ctx, validRequest())
	if err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}
	if d.ID == "" {
		t.Error("CreateDevice() should assign an ID")
	}
	if d.Address != "AA:BB:CC:DD:EE:FF" {
		t.Errorf("Address = %q, want normalised upper-case MAC", d.Address)
	}
	if len(d.AdapterIDs) != 1 {
		t.Errorf("AdapterIDs = %v, want duplicates collapsed", d.AdapterIDs)
	}
	if reg.GetDeviceCount() != 1 {
		t.Errorf("GetDeviceCount() = %d, want 1", reg.GetDeviceCount())
	}

	// Same address with different case is the same device.
	if _, err := reg.CreateDevice(ctx, validRequest()); !errors.Is(err, ErrDeviceExists) {
		t.Errorf("second CreateDevice() error = %v, want ErrDeviceExists", err)
	}
}

func TestRegistry_CreateDevice_Invalid(t *testing.T) {
	reg := NewRegistry(NewMockRepository())

	tests := []struct {
		name    string
		mutate  func(r *CreateRequest)
		wantErr error
	}{
		{name: "missing name", mutate: func(r *CreateRequest) { r.Name = " " }, wantErr: ErrInvalidName},
		{name: "bad mac", mutate: func(r *CreateRequest) { r.Address = "not-a-mac" }, wantErr: ErrInvalidAddress},
		{name: "unknown address type", mutate: func(r *CreateRequest) { r.AddressType = "zigbee" }, wantErr: ErrInvalidAddressType},
		{name: "unknown protocol", mutate: func(r *CreateRequest) { r.Protocol = "knx" }, wantErr: ErrInvalidProtocol},
		{name: "protocol for other address type", mutate: func(r *CreateRequest) { r.Protocol = ProtocolHTTP }, wantErr: ErrInvalidProtocol},
		{name: "empty adapter id", mutate: func(r *CreateRequest) { r.AdapterIDs = []string{""} }, wantErr: ErrInvalidAdapterID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			_, err := reg.CreateDevice(context.Background(), req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CreateDevice() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRegistry_GetDevice_ReturnsCopy(t *testing.T) {
	reg := NewRegistry(NewMockRepository())
	ctx := context.Background()

	created, err := reg.CreateDevice(ctx, validRequest())
	if err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}

	got, err := reg.GetDevice(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetDevice() error = %v", err)
	}
	got.Name = "mutated"
	got.AdapterIDs[0] = "mutated"

	again, err := reg.GetDevice(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetDevice() error = %v", err)
	}
	if again.Name != "Sensor1" || again.AdapterIDs[0] != "homekit-adapter" {
		t.Errorf("cache was mutated through a returned device: %+v", again)
	}

	if _, err := reg.GetDevice(ctx, "missing"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("GetDevice() missing error = %v, want ErrDeviceNotFound", err)
	}
}

func TestRegistry_RefreshCache(t *testing.T) {
	repo := NewMockRepository()
	repo.devices["dev-1"] = testDevice("dev-1", "Kitchen", "AA:BB:CC:DD:EE:01")
	repo.devices["dev-2"] = testDevice("dev-2", "Attic", "AA:BB:CC:DD:EE:02")

	reg := NewRegistry(repo)
	if err := reg.RefreshCache(context.Background()); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}
	if reg.GetDeviceCount() != 2 {
		t.Errorf("GetDeviceCount() = %d, want 2", reg.GetDeviceCount())
	}

	devices, err := reg.ListDevices(context.Background())
	if err != nil {
		t.Fatalf("ListDevices() error = %v", err)
	}
	if devices[0].Name != "Attic" || devices[1].Name != "Kitchen" {
		t.Errorf("ListDevices() order = [%s %s], want [Attic Kitchen]", devices[0].Name, devices[1].Name)
	}
}

func TestRegistry_DeleteDevice(t *testing.T) {
	reg := NewRegistry(NewMockRepository())
	ctx := context.Background()

	d, err := reg.CreateDevice(ctx, validRequest())
	if err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}
	if err := reg.DeleteDevice(ctx, d.ID); err != nil {
		t.Fatalf("DeleteDevice() error = %v", err)
	}
	if reg.GetDeviceCount() != 0 {
		t.Errorf("GetDeviceCount() = %d, want 0", reg.GetDeviceCount())
	}

	// The address is free again and readings no longer resolve.
	_, _, err = reg.ApplyReading(ctx, Reading{Address: d.Address, AddressType: AddressBLE})
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("ApplyReading() after delete error = %v, want ErrDeviceNotFound", err)
	}
}

func TestRegistry_LinkUnlinkAdapter(t *testing.T) {
	reg := NewRegistry(NewMockRepository())
	ctx := context.Background()

	req := validRequest()
	req.AdapterIDs = nil
	d, err := reg.CreateDevice(ctx, req)
	if err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}

	linked, err := reg.LinkAdapter(ctx, d.ID, "history-adapter")
	if err != nil {
		t.Fatalf("LinkAdapter() error = %v", err)
	}
	if !linked.HasAdapter("history-adapter") {
		t.Errorf("AdapterIDs = %v, want history-adapter", linked.AdapterIDs)
	}

	// Linking twice is a no-op.
	again, err := reg.LinkAdapter(ctx, d.ID, "history-adapter")
	if err != nil {
		t.Fatalf("second LinkAdapter() error = %v", err)
	}
	if len(again.AdapterIDs) != 1 {
		t.Errorf("AdapterIDs = %v, want one entry", again.AdapterIDs)
	}

	unlinked, err := reg.UnlinkAdapter(ctx, d.ID, "history-adapter")
	if err != nil {
		t.Fatalf("UnlinkAdapter() error = %v", err)
	}
	if unlinked.HasAdapter("history-adapter") {
		t.Errorf("AdapterIDs = %v, want history-adapter removed", unlinked.AdapterIDs)
	}

	if _, err := reg.UnlinkAdapter(ctx, d.ID, "never-linked"); err != nil {
		t.Errorf("UnlinkAdapter() of absent link error = %v, want nil", err)
	}
	if _, err := reg.LinkAdapter(ctx, "missing", "history-adapter"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("LinkAdapter() missing device error = %v, want ErrDeviceNotFound", err)
	}
	if _, err := reg.LinkAdapter(ctx, d.ID, ""); !errors.Is(err, ErrInvalidAdapterID) {
		t.Errorf("LinkAdapter() empty adapter error = %v, want ErrInvalidAdapterID", err)
	}
}

func TestRegistry_LinkAdapter_PersistFailureKeepsCache(t *testing.T) {
	repo := NewMockRepository()
	reg := NewRegistry(repo)
	ctx := context.Background()

	d, err := reg.CreateDevice(ctx, validRequest())
	if err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}

	repo.updateErr = errors.New("disk full")
	if _, err := reg.LinkAdapter(ctx, d.ID, "history-adapter"); err == nil {
		t.Fatal("LinkAdapter() expected error")
	}

	got, err := reg.GetDevice(ctx, d.ID)
	if err != nil {
		t.Fatalf("GetDevice() error = %v", err)
	}
	if got.HasAdapter("history-adapter") {
		t.Error("cache should not record a link that failed to persist")
	}
}

func TestRegistry_ApplyReading(t *testing.T) {
	reg := NewRegistry(NewMockRepository())
	ctx := context.Background()

	d, err := reg.CreateDevice(ctx, validRequest())
	if err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}

	stamp := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	reading := Reading{
		Address:     "aa:bb:cc:dd:ee:ff",
		AddressType: AddressBLE,
		Timestamp:   stamp,
		Data: []Capability{
			{Name: CapTemperature, Value: 21.5, Type: ValueFloat, Unit: UnitCelsius},
			{Name: CapHumidity, Value: 40.0, Type: ValueFloat, Unit: UnitPercent},
		},
	}

	updated, changed, err := reg.ApplyReading(ctx, reading)
	if err != nil {
		t.Fatalf("ApplyReading() error = %v", err)
	}
	if updated.ID != d.ID {
		t.Errorf("ApplyReading() device = %s, want %s", updated.ID, d.ID)
	}
	if len(changed) != 2 {
		t.Errorf("first reading changed %d capabilities, want 2", len(changed))
	}
	if !updated.LastUpdated.Equal(stamp) {
		t.Errorf("LastUpdated = %v, want %v", updated.LastUpdated, stamp)
	}

	// Same temperature, new humidity: only humidity changed.
	reading.Data[1].Value = 41.0
	_, changed, err = reg.ApplyReading(ctx, reading)
	if err != nil {
		t.Fatalf("ApplyReading() error = %v", err)
	}
	if len(changed) != 1 || changed[0].Name != CapHumidity {
		t.Errorf("changed = %+v, want only humidity", changed)
	}

	got, err := reg.GetDevice(ctx, d.ID)
	if err != nil {
		t.Fatalf("GetDevice() error = %v", err)
	}
	if got.Capabilities[CapHumidity].Value != 41.0 {
		t.Errorf("humidity = %v, want 41", got.Capabilities[CapHumidity].Value)
	}
}

func TestRegistry_ApplyReading_UnknownAddress(t *testing.T) {
	reg := NewRegistry(NewMockRepository())

	_, _, err := reg.ApplyReading(context.Background(), Reading{Address: "11:22:33:44:55:66", AddressType: AddressBLE})
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("ApplyReading() error = %v, want ErrDeviceNotFound", err)
	}
}

func TestRegistry_ConcurrentReadings(t *testing.T) {
	reg := NewRegistry(NewMockRepository())
	ctx := context.Background()

	if _, err := reg.CreateDevice(ctx, validRequest()); err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}

	caps := []CapabilityType{CapTemperature, CapHumidity, CapBattery, CapButtonEvent}
	var wg sync.WaitGroup
	for _, c := range caps {
		wg.Add(1)
		go func(c CapabilityType) {
			defer wg.Done()
			_, _, err := reg.ApplyReading(ctx, Reading{
				Address:     "AA:BB:CC:DD:EE:FF",
				AddressType: AddressBLE,
				Data:        []Capability{{Name: c, Value: 1.0, Type: ValueFloat}},
			})
			if err != nil {
				t.Errorf("ApplyReading(%s) error = %v", c, err)
			}
		}(c)
	}
	wg.Wait()

	devices, err := reg.ListDevices(ctx)
	if err != nil {
		t.Fatalf("ListDevices() error = %v", err)
	}
	if got := len(devices[0].Capabilities); got != len(caps) {
		t.Errorf("capabilities = %d, want %d (no lost updates)", got, len(caps))
	}
}
