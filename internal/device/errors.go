package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDeviceNotFound is returned when a device ID or address does not exist.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrDeviceExists is returned when creating a device whose address is already registered.
	ErrDeviceExists = errors.New("device: already exists")

	// ErrInvalidDevice is returned when device validation fails.
	ErrInvalidDevice = errors.New("device: invalid")

	// ErrInvalidName is returned when a device name is empty or too long.
	ErrInvalidName = errors.New("device: invalid name")

	// ErrInvalidAddress is returned when an address is empty or malformed for its type.
	ErrInvalidAddress = errors.New("device: invalid address")

	// ErrInvalidAddressType is returned when an address type is not recognised.
	ErrInvalidAddressType = errors.New("device: invalid address type")

	// ErrInvalidProtocol is returned when a protocol is unknown or does not
	// match the device's address type.
	ErrInvalidProtocol = errors.New("device: invalid protocol")

	// ErrInvalidAdapterID is returned when an adapter ID is empty.
	ErrInvalidAdapterID = errors.New("device: invalid adapter id")
)
