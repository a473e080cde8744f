package plugin

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nerrad567/gohome/internal/infrastructure/mqtt"
)

// DefaultCommandTimeout bounds how long Start and Stop wait for an ack.
const DefaultCommandTimeout = 5 * time.Second

// Publisher sends a JSON payload on an MQTT topic.
// *mqtt.Client satisfies this interface.
type Publisher interface {
	PublishJSON(topic string, v any) error
}

// Logger defines the logging interface used by the Manager.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// entry is one tracked plugin and its command reply slot.
type entry struct {
	plugin Plugin

	// replies receives true on ack and false on negative ack.
	replies chan bool

	// cmdMu serialises commands so a reply is matched to its command.
	cmdMu sync.Mutex
}

// Manager tracks plugins announced on the bus and sends them commands.
//
// All public methods are thread-safe.
type Manager struct {
	pub     Publisher
	timeout time.Duration
	topics  mqtt.Topics

	mu      sync.RWMutex
	entries map[string]*entry

	logger Logger
}

// NewManager creates a Manager that publishes commands through pub and
// waits up to timeout for each reply (DefaultCommandTimeout when <= 0).
func NewManager(pub Publisher, timeout time.Duration) *Manager {
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	return &Manager{
		pub:     pub,
		timeout: timeout,
		entries: make(map[string]*entry),
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(logger Logger) {
	m.logger = logger
}

// =============================================================================
// Bus events
// =============================================================================

// HandleConnected registers a plugin. A repeated announcement replaces
// the stored descriptor.
func (m *Manager) HandleConnected(p Plugin) {
	if !p.Valid() {
		m.logger.Warn("ignoring invalid plugin announcement", "id", p.ID, "type", p.Type)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[p.ID]; ok {
		e.plugin = p.clone()
		m.logger.Debug("plugin re-announced", "id", p.ID)
		return
	}
	m.entries[p.ID] = &entry{plugin: p.clone(), replies: make(chan bool, 1)}
	m.logger.Info("plugin connected", "id", p.ID, "type", p.Type, "state", p.State)
}

// HandleDisconnected forgets a plugin.
func (m *Manager) HandleDisconnected(p Plugin) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[p.ID]; !ok {
		m.logger.Debug("disconnect for unknown plugin", "id", p.ID)
		return
	}
	delete(m.entries, p.ID)
	m.logger.Info("plugin disconnected", "id", p.ID)
}

// HandleStateChanged records a plugin's new state and descriptor.
// Updates for plugins that never connected are ignored.
func (m *Manager) HandleStateChanged(p Plugin) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[p.ID]
	if !ok {
		m.logger.Debug("state change for unknown plugin", "id", p.ID)
		return
	}
	// Keep the registered type; a state change cannot move a plugin
	// between the adapter and scanner lists.
	p.Type = e.plugin.Type
	e.plugin = p.clone()
	m.logger.Info("plugin state changed", "id", p.ID, "state", p.State)
}

// HandleAck delivers a positive command reply.
func (m *Manager) HandleAck(p Plugin) {
	m.reply(p.ID, true)
}

// HandleNegativeAck delivers a negative command reply.
func (m *Manager) HandleNegativeAck(p Plugin) {
	m.reply(p.ID, false)
}

func (m *Manager) reply(id string, ok bool) {
	m.mu.RLock()
	e, found := m.entries[id]
	m.mu.RUnlock()
	if !found {
		return
	}

	select {
	case e.replies <- ok:
	default:
		m.logger.Debug("dropping unsolicited plugin reply", "id", id)
	}
}

// =============================================================================
// Queries
// =============================================================================

// Adapters returns every connected adapter sorted by id.
func (m *Manager) Adapters() []Plugin {
	return m.list(TypeAdapter)
}

// Scanners returns every connected scanner sorted by id.
func (m *Manager) Scanners() []Plugin {
	return m.list(TypeScanner)
}

// Plugins returns every connected plugin, adapters first, each group
// sorted by id.
func (m *Manager) Plugins() []Plugin {
	return append(m.Adapters(), m.Scanners()...)
}

// Get returns the plugin of type t with the given id.
func (m *Manager) Get(t Type, id string) (Plugin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[id]
	if !ok || e.plugin.Type != t {
		return Plugin{}, fmt.Errorf("%w: %s %q", ErrNotFound, t, id)
	}
	return e.plugin.clone(), nil
}

// Widgets returns the widgets declared by every connected plugin, sorted
// by widget id.
func (m *Manager) Widgets() []Widget {
	m.mu.RLock()
	widgets := []Widget{}
	for _, e := range m.entries {
		for _, w := range e.plugin.clone().Widgets {
			widgets = append(widgets, *w)
		}
	}
	m.mu.RUnlock()

	sort.Slice(widgets, func(i, j int) bool { return widgets[i].ID < widgets[j].ID })
	return widgets
}

func (m *Manager) list(t Type) []Plugin {
	m.mu.RLock()
	plugins := []Plugin{}
	for _, e := range m.entries {
		if e.plugin.Type == t {
			plugins = append(plugins, e.plugin.clone())
		}
	}
	m.mu.RUnlock()

	sort.Slice(plugins, func(i, j int) bool { return plugins[i].ID < plugins[j].ID })
	return plugins
}

// =============================================================================
// Commands
// =============================================================================

// Start asks a plugin to start and waits for its reply.
//
// Returns ErrNotFound for an unknown id, ErrRejected on a negative ack,
// ErrTimeout when no reply arrives in time, or the context error.
func (m *Manager) Start(ctx context.Context, t Type, id string) error {
	return m.command(ctx, t, id, m.topics.PluginStart(id))
}

// Stop asks a plugin to stop and waits for its reply.
func (m *Manager) Stop(ctx context.Context, t Type, id string) error {
	return m.command(ctx, t, id, m.topics.PluginStop(id))
}

func (m *Manager) command(ctx context.Context, t Type, id, topic string) error {
	m.mu.RLock()
	e, ok := m.entries[id]
	ok = ok && e.plugin.Type == t
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s %q", ErrNotFound, t, id)
	}

	e.cmdMu.Lock()
	defer e.cmdMu.Unlock()

	// Discard a late reply to an earlier, timed-out command.
	select {
	case <-e.replies:
	default:
	}

	if err := m.pub.PublishJSON(topic, []any{}); err != nil {
		return fmt.Errorf("publishing %s: %w", topic, err)
	}

	timer := time.NewTimer(m.timeout)
	defer timer.Stop()

	select {
	case ok := <-e.replies:
		if !ok {
			return fmt.Errorf("%w: %s %q", ErrRejected, t, id)
		}
		m.logger.Info("plugin command acknowledged", "id", id, "topic", topic)
		return nil
	case <-timer.C:
		return fmt.Errorf("%w: %s %q after %v", ErrTimeout, t, id, m.timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// =============================================================================
// Adapter notifications
// =============================================================================

// RegisterDevice tells an adapter that device was linked to it.
func (m *Manager) RegisterDevice(adapterID string, device any) error {
	return m.pub.PublishJSON(m.topics.DeviceRegister(adapterID), device)
}

// UnregisterDevice tells an adapter that device was unlinked from it.
func (m *Manager) UnregisterDevice(adapterID string, device any) error {
	return m.pub.PublishJSON(m.topics.DeviceUnregister(adapterID), device)
}

// ForwardUpdate sends a capability update to an adapter.
func (m *Manager) ForwardUpdate(adapterID string, update any) error {
	return m.pub.PublishJSON(m.topics.DeviceUpdated(adapterID), update)
}
