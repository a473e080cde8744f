package topic

import (
	"encoding/json"
	"errors"
)

// Topic names a push channel on the /ws endpoint. The set is closed:
// the server only broadcasts on these.
type Topic string

// Push topics.
const (
	// BluetoothDevice carries every Bluetooth peer a scanner sees.
	BluetoothDevice Topic = "topic_bluetooth_device"

	// DeviceState carries per-capability updates of registered devices.
	DeviceState Topic = "topic_device_state"
)

// All returns every known topic.
func All() []Topic {
	return []Topic{BluetoothDevice, DeviceState}
}

// Valid reports whether t is a known topic.
func (t Topic) Valid() bool {
	for _, known := range All() {
		if t == known {
			return true
		}
	}
	return false
}

// Client actions.
const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
	ActionPublish     = "publish"

	// ActionBroadcast marks server deliveries.
	ActionBroadcast = "broadcast"
)

// Request is a frame sent by a client.
type Request struct {
	Action  string          `json:"action"`
	Topic   Topic           `json:"topic"`
	Message json.RawMessage `json:"message,omitempty"`
}

// Delivery is a frame sent by the server to the subscribers of Topic.
type Delivery struct {
	Action  string          `json:"action,omitempty"`
	Topic   Topic           `json:"topic"`
	Message json.RawMessage `json:"message"`
}

// BluetoothPeer is the message on BluetoothDevice.
type BluetoothPeer struct {
	Name      string   `json:"name"`
	Address   string   `json:"address"`
	Protocols []string `json:"protocols"`
}

// ErrNotConnected is returned by Send while the socket is not open.
// The message is dropped.
var ErrNotConnected = errors.New("topic: not connected")
