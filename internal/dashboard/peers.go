package dashboard

import (
	"sort"
	"sync"

	"github.com/nerrad567/gohome/internal/topic"
)

// PeerTable is the set of Bluetooth peers seen on the push channel, keyed
// by address. A later sighting replaces the name of an earlier one.
// It is safe for concurrent use.
type PeerTable struct {
	mu        sync.RWMutex
	names     map[string]string
	connected bool
	onChange  func()
}

// NewPeerTable creates an empty, disconnected table. onChange, if not nil,
// is called after every change.
func NewPeerTable(onChange func()) *PeerTable {
	return &PeerTable{
		names:    make(map[string]string),
		onChange: onChange,
	}
}

// Add records a sighting.
func (p *PeerTable) Add(peer topic.BluetoothPeer) {
	if peer.Address == "" {
		return
	}
	p.mu.Lock()
	p.names[peer.Address] = peer.Name
	p.mu.Unlock()
	p.notify()
}

// SetConnected records the state of the push channel.
func (p *PeerTable) SetConnected(connected bool) {
	p.mu.Lock()
	changed := p.connected != connected
	p.connected = connected
	p.mu.Unlock()
	if changed {
		p.notify()
	}
}

// Connected reports whether the push channel is open.
func (p *PeerTable) Connected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.connected
}

// Peer is one row of the table.
type Peer struct {
	Address string
	Name    string
}

// Peers returns the peers sorted by address.
func (p *PeerTable) Peers() []Peer {
	p.mu.RLock()
	peers := make([]Peer, 0, len(p.names))
	for addr, name := range p.names {
		peers = append(peers, Peer{Address: addr, Name: name})
	}
	p.mu.RUnlock()

	sort.Slice(peers, func(i, j int) bool { return peers[i].Address < peers[j].Address })
	return peers
}

func (p *PeerTable) notify() {
	if p.onChange != nil {
		p.onChange()
	}
}
