package device

// Protocol describes a payload format the scanners can decode into
// capabilities. Each protocol only applies to one address type.
type Protocol struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	AddressType AddressType `json:"address_type"`
}

// Known protocol identifiers.
const (
	ProtocolBTHome = "bthome"
	ProtocolHTTP   = "http"
)

// protocols is sorted by ID.
var protocols = []Protocol{
	{ID: ProtocolBTHome, Name: "BTHome v2", AddressType: AddressBLE},
	{ID: ProtocolHTTP, Name: "HTTP", AddressType: AddressBasic},
}

// Protocols returns the protocol catalogue sorted by ID.
func Protocols() []Protocol {
	out := make([]Protocol, len(protocols))
	copy(out, protocols)
	return out
}

// LookupProtocol returns the protocol with the given ID.
func LookupProtocol(id string) (Protocol, bool) {
	for _, p := range protocols {
		if p.ID == id {
			return p, true
		}
	}
	return Protocol{}, false
}
