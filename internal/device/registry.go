package device

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"sort"
	"sync"
	"time"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry provides device management with caching and thread safety.
// It wraps a Repository and adds an in-memory cache indexed by ID and by
// on-air address, which is how scanner readings find their device.
//
// Mutations are serialised so that concurrent readings for one device
// cannot lose each other's capability updates.
//
// All public methods are thread-safe.
type Registry struct {
	repo Repository

	cache     map[string]*Device // by ID
	byAddress map[addressKey]string
	cacheMu   sync.RWMutex

	writeMu sync.Mutex
	logger  Logger
}

type addressKey struct {
	address     string
	addressType AddressType
}

// NewRegistry creates a new device registry.
// The repository is used for persistence; the registry adds caching.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:      repo,
		cache:     make(map[string]*Device),
		byAddress: make(map[addressKey]string),
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache reloads all devices from the repository into the cache.
// This should be called on application startup.
func (r *Registry) RefreshCache(ctx context.Context) error {
	devices, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}

	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	r.cache = make(map[string]*Device, len(devices))
	r.byAddress = make(map[addressKey]string, len(devices))
	for i := range devices {
		r.putLocked(&devices[i])
	}

	r.logger.Info("device cache refreshed", "count", len(devices))
	return nil
}

// GetDevice retrieves a device by ID.
// Returns ErrDeviceNotFound if the device does not exist.
// The returned device is a deep copy; callers can safely modify it.
func (r *Registry) GetDevice(ctx context.Context, id string) (*Device, error) {
	r.cacheMu.RLock()
	cached, ok := r.cache[id]
	r.cacheMu.RUnlock()
	if ok {
		return cached.DeepCopy(), nil
	}

	device, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	r.cacheMu.Lock()
	r.putLocked(device)
	r.cacheMu.Unlock()

	return device, nil
}

// ListDevices retrieves all devices sorted by name, then ID.
// The returned devices are deep copies; callers can safely modify them.
func (r *Registry) ListDevices(ctx context.Context) ([]Device, error) {
	r.cacheMu.RLock()
	if len(r.cache) == 0 {
		r.cacheMu.RUnlock()
		return r.repo.List(ctx)
	}
	devices := make([]Device, 0, len(r.cache))
	for _, d := range r.cache {
		devices = append(devices, *d.DeepCopy())
	}
	r.cacheMu.RUnlock()

	sort.Slice(devices, func(i, j int) bool {
		if devices[i].Name != devices[j].Name {
			return devices[i].Name < devices[j].Name
		}
		return devices[i].ID < devices[j].ID
	})
	return devices, nil
}

// CreateDevice validates req, assigns an ID and persists the new device.
// Duplicate adapter IDs in the request are collapsed.
func (r *Registry) CreateDevice(ctx context.Context, req CreateRequest) (*Device, error) {
	if err := ValidateCreateRequest(req); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	device := &Device{
		ID:           GenerateID(),
		Address:      NormaliseAddress(req.AddressType, req.Address),
		AddressType:  req.AddressType,
		Name:         req.Name,
		Protocol:     req.Protocol,
		AdapterIDs:   dedupe(req.AdapterIDs),
		Capabilities: map[CapabilityType]Capability{},
		CreatedAt:    now,
		LastUpdated:  now,
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	if err := r.repo.Create(ctx, device); err != nil {
		return nil, err
	}

	r.cacheMu.Lock()
	r.putLocked(device)
	r.cacheMu.Unlock()

	r.logger.Info("device created", "id", device.ID, "name", device.Name, "address", device.Address)
	return device.DeepCopy(), nil
}

// DeleteDevice removes a device.
func (r *Registry) DeleteDevice(ctx context.Context, id string) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}

	r.cacheMu.Lock()
	if d, ok := r.cache[id]; ok {
		delete(r.byAddress, addressKey{d.Address, d.AddressType})
		delete(r.cache, id)
	}
	r.cacheMu.Unlock()

	r.logger.Info("device deleted", "id", id)
	return nil
}

// LinkAdapter links a device to an adapter. Linking an already linked
// adapter is a no-op. Returns the updated device.
func (r *Registry) LinkAdapter(ctx context.Context, deviceID, adapterID string) (*Device, error) {
	if adapterID == "" {
		return nil, ErrInvalidAdapterID
	}
	return r.updateAdapters(ctx, deviceID, func(ids []string) []string {
		if slices.Contains(ids, adapterID) {
			return ids
		}
		return append(ids, adapterID)
	})
}

// UnlinkAdapter removes a link between a device and an adapter. Unlinking
// an adapter that is not linked is a no-op. Returns the updated device.
func (r *Registry) UnlinkAdapter(ctx context.Context, deviceID, adapterID string) (*Device, error) {
	if adapterID == "" {
		return nil, ErrInvalidAdapterID
	}
	return r.updateAdapters(ctx, deviceID, func(ids []string) []string {
		return slices.DeleteFunc(ids, func(id string) bool { return id == adapterID })
	})
}

func (r *Registry) updateAdapters(ctx context.Context, deviceID string, change func([]string) []string) (*Device, error) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	device, err := r.GetDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	before := slices.Clone(device.AdapterIDs)
	device.AdapterIDs = change(device.AdapterIDs)
	if slices.Equal(before, device.AdapterIDs) {
		return device, nil
	}

	if err := r.repo.SetAdapters(ctx, deviceID, device.AdapterIDs); err != nil {
		return nil, err
	}

	r.cacheMu.Lock()
	r.putLocked(device)
	r.cacheMu.Unlock()

	r.logger.Info("device adapters updated", "id", deviceID, "adapter_ids", device.AdapterIDs)
	return device.DeepCopy(), nil
}

// ApplyReading merges a scanner reading into the capabilities of the
// device registered at the reading's address.
//
// Returns the updated device and the capabilities whose value changed
// (or that were seen for the first time). Returns ErrDeviceNotFound when
// no device is registered at the address; callers usually ignore it since
// scanners report every peer in range.
func (r *Registry) ApplyReading(ctx context.Context, reading Reading) (*Device, []Capability, error) {
	key := addressKey{NormaliseAddress(reading.AddressType, reading.Address), reading.AddressType}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	r.cacheMu.RLock()
	id, ok := r.byAddress[key]
	var device *Device
	if ok {
		device = r.cache[id].DeepCopy()
	}
	r.cacheMu.RUnlock()

	if !ok {
		found, err := r.repo.GetByAddress(ctx, key.address, key.addressType)
		if err != nil {
			return nil, nil, err
		}
		device = found
	}

	if device.Capabilities == nil {
		device.Capabilities = map[CapabilityType]Capability{}
	}

	var changed []Capability
	for _, c := range reading.Data {
		prev, seen := device.Capabilities[c.Name]
		if !seen || !reflect.DeepEqual(prev.Value, c.Value) || prev.Unit != c.Unit {
			changed = append(changed, c)
		}
		device.Capabilities[c.Name] = c
	}

	stamp := reading.Timestamp
	if stamp.IsZero() {
		stamp = time.Now()
	}
	device.LastUpdated = stamp.UTC()

	if err := r.repo.UpdateCapabilities(ctx, device.ID, device.Capabilities, device.LastUpdated); err != nil {
		return nil, nil, err
	}

	r.cacheMu.Lock()
	r.putLocked(device)
	r.cacheMu.Unlock()

	r.logger.Debug("device reading applied", "id", device.ID, "changed", len(changed))
	return device.DeepCopy(), changed, nil
}

// GetDeviceCount returns the number of cached devices.
func (r *Registry) GetDeviceCount() int {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return len(r.cache)
}

// putLocked stores a copy of d in the cache. Caller holds cacheMu.
func (r *Registry) putLocked(d *Device) {
	if old, ok := r.cache[d.ID]; ok {
		delete(r.byAddress, addressKey{old.Address, old.AddressType})
	}
	r.cache[d.ID] = d.DeepCopy()
	r.byAddress[addressKey{d.Address, d.AddressType}] = d.ID
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
