// Package device provides the device registry for GoHome.
//
// A device is a sensor identified on the air by an address (a BLE MAC or
// a free-form "basic" address) and decoded by one protocol. Scanners
// publish readings keyed by address; the registry maps each reading onto
// the device's capabilities and reports which values changed, so callers
// can fan the change out to linked adapters, history storage and
// dashboard subscribers.
//
// # Architecture
//
//	┌──────────────────┐    ┌──────────────────┐    ┌──────────────────┐
//	│     Registry     │    │    Repository    │    │    Validation    │
//	│   (registry.go)  │───▶│  (repository.go) │    │ (validation.go)  │
//	│                  │    │                  │    │                  │
//	│ • ID/addr cache  │    │ • SQLite queries │    │ • Name, address  │
//	│ • Link/unlink    │    │ • JSON columns   │    │ • Protocol match │
//	│ • ApplyReading   │    │                  │    │                  │
//	└──────────────────┘    └──────────────────┘    └──────────────────┘
//
// # Key Types
//
//   - Device: the registered sensor with its adapter links and capabilities
//   - Capability: one measurement (temperature, humidity, ...) with value and unit
//   - Protocol: a payload decoder bound to one AddressType
//   - Reading: a batch of parsed capability values for one address
//
// # Usage
//
//	repo := device.NewSQLiteRepository(db.DB)
//	registry := device.NewRegistry(repo)
//	if err := registry.RefreshCache(ctx); err != nil {
//	    return err
//	}
//
//	d, err := registry.CreateDevice(ctx, device.CreateRequest{
//	    Name: "Living Room", Address: "AA:BB:CC:DD:EE:FF",
//	    AddressType: device.AddressBLE, Protocol: device.ProtocolBTHome,
//	})
//
// # Thread Safety
//
// All Registry methods are safe for concurrent use. Returned devices are
// deep copies.
package device
