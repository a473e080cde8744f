package device

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Validation constants.
const (
	maxNameLength    = 100
	maxAddressLength = 128
	maxAdapterLinks  = 32
)

// bleAddressRegex matches a colon-separated 48-bit MAC address.
var bleAddressRegex = regexp.MustCompile(`^[0-9A-Fa-f]{2}(:[0-9A-Fa-f]{2}){5}$`)

// ValidateCreateRequest checks a device creation request.
// Returns an error describing the first validation failure found.
func ValidateCreateRequest(req CreateRequest) error {
	if err := ValidateName(req.Name); err != nil {
		return err
	}
	if err := ValidateAddress(req.AddressType, req.Address); err != nil {
		return err
	}
	if err := ValidateProtocol(req.Protocol, req.AddressType); err != nil {
		return err
	}
	if len(req.AdapterIDs) > maxAdapterLinks {
		return fmt.Errorf("%w: at most %d adapters", ErrInvalidDevice, maxAdapterLinks)
	}
	for _, id := range req.AdapterIDs {
		if strings.TrimSpace(id) == "" {
			return ErrInvalidAdapterID
		}
	}
	return nil
}

// ValidateName checks that a device name is present and not too long.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidName)
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	return nil
}

// ValidateAddressType checks that t is a known address type.
func ValidateAddressType(t AddressType) error {
	if !slices.Contains(AllAddressTypes(), t) {
		return fmt.Errorf("%w: %q", ErrInvalidAddressType, t)
	}
	return nil
}

// ValidateAddress checks an address against the rules for its type.
// BLE addresses must be MAC-formatted; basic addresses only need to be
// non-empty.
func ValidateAddress(t AddressType, address string) error {
	if err := ValidateAddressType(t); err != nil {
		return err
	}
	if address == "" {
		return fmt.Errorf("%w: address is required", ErrInvalidAddress)
	}
	if len(address) > maxAddressLength {
		return fmt.Errorf("%w: address exceeds %d bytes", ErrInvalidAddress, maxAddressLength)
	}
	if t == AddressBLE && !bleAddressRegex.MatchString(address) {
		return fmt.Errorf("%w: %q is not a BLE MAC address", ErrInvalidAddress, address)
	}
	return nil
}

// ValidateProtocol checks that the protocol exists and decodes payloads
// for the given address type.
func ValidateProtocol(id string, t AddressType) error {
	p, ok := LookupProtocol(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidProtocol, id)
	}
	if p.AddressType != t {
		return fmt.Errorf("%w: %s requires %s addresses", ErrInvalidProtocol, id, p.AddressType)
	}
	return nil
}

// NormaliseAddress canonicalises an address for storage and lookup.
// BLE MACs are upper-cased so scanners and users agree on one spelling.
func NormaliseAddress(t AddressType, address string) string {
	address = strings.TrimSpace(address)
	if t == AddressBLE {
		return strings.ToUpper(address)
	}
	return address
}

// GenerateID generates a new unique device ID.
func GenerateID() string {
	return uuid.New().String()
}
