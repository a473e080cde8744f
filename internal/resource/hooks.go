package resource

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/gohome/internal/device"
	"github.com/nerrad567/gohome/internal/plugin"
)

// Client is the subset of the REST API the hooks need.
type Client interface {
	ListDevices(ctx context.Context) ([]device.Device, error)
	CreateDevice(ctx context.Context, req device.CreateRequest) (*device.Device, error)
	DeleteDevice(ctx context.Context, id string) error
	LinkAdapter(ctx context.Context, deviceID, adapterID string) (*device.Device, error)
	UnlinkAdapter(ctx context.Context, deviceID, adapterID string) (*device.Device, error)

	ListPlugins(ctx context.Context, t plugin.Type) ([]plugin.Plugin, error)
	StartPlugin(ctx context.Context, t plugin.Type, id string) error
	StopPlugin(ctx context.Context, t plugin.Type, id string) error

	ListProtocols(ctx context.Context) ([]device.Protocol, error)
}

// Devices is the device collection.
type Devices struct {
	*Resource[[]device.Device]
	client Client
}

// NewDevices creates the device resource.
func NewDevices(c Client, opts ...Option) *Devices {
	return &Devices{
		Resource: New[[]device.Device]("devices", c.ListDevices, opts...),
		client:   c,
	}
}

// Create registers a device.
func (d *Devices) Create(ctx context.Context, req device.CreateRequest) error {
	return d.Mutate(ctx, func(ctx context.Context) error {
		_, err := d.client.CreateDevice(ctx, req)
		return err
	})
}

// Delete removes a device.
func (d *Devices) Delete(ctx context.Context, id string) error {
	return d.Mutate(ctx, func(ctx context.Context) error {
		return d.client.DeleteDevice(ctx, id)
	})
}

// LinkAdapter links a device to an adapter.
func (d *Devices) LinkAdapter(ctx context.Context, deviceID, adapterID string) error {
	return d.Mutate(ctx, func(ctx context.Context) error {
		_, err := d.client.LinkAdapter(ctx, deviceID, adapterID)
		return err
	})
}

// UnlinkAdapter removes the link between a device and an adapter.
func (d *Devices) UnlinkAdapter(ctx context.Context, deviceID, adapterID string) error {
	return d.Mutate(ctx, func(ctx context.Context) error {
		_, err := d.client.UnlinkAdapter(ctx, deviceID, adapterID)
		return err
	})
}

// Plugins is the collection of connected plugins of one type.
type Plugins struct {
	*Resource[[]plugin.Plugin]
	client Client
	typ    plugin.Type
}

// NewAdapters creates the adapter resource.
func NewAdapters(c Client, opts ...Option) *Plugins {
	return newPlugins(c, plugin.TypeAdapter, "adapters", opts)
}

// NewScanners creates the scanner resource.
func NewScanners(c Client, opts ...Option) *Plugins {
	return newPlugins(c, plugin.TypeScanner, "scanners", opts)
}

func newPlugins(c Client, t plugin.Type, name string, opts []Option) *Plugins {
	fetch := func(ctx context.Context) ([]plugin.Plugin, error) {
		return c.ListPlugins(ctx, t)
	}
	return &Plugins{
		Resource: New[[]plugin.Plugin](name, fetch, opts...),
		client:   c,
		typ:      t,
	}
}

// Type returns the plugin type of the collection.
func (p *Plugins) Type() plugin.Type {
	return p.typ
}

// Start asks a plugin to start.
func (p *Plugins) Start(ctx context.Context, id string) error {
	return p.Mutate(ctx, func(ctx context.Context) error {
		return p.client.StartPlugin(ctx, p.typ, id)
	})
}

// Stop asks a plugin to stop.
func (p *Plugins) Stop(ctx context.Context, id string) error {
	return p.Mutate(ctx, func(ctx context.Context) error {
		return p.client.StopPlugin(ctx, p.typ, id)
	})
}

// Action is what a state list offers for a plugin.
type Action int

// Actions.
const (
	ActionNone Action = iota
	ActionStart
	ActionStop
)

func (a Action) String() string {
	switch a {
	case ActionStart:
		return "start"
	case ActionStop:
		return "stop"
	default:
		return ""
	}
}

// ActionFor returns the action offered for a plugin in state s.
func ActionFor(s plugin.State) Action {
	switch s {
	case plugin.StateStopped:
		return ActionStart
	case plugin.StateRestarting:
		return ActionNone
	default:
		return ActionStop
	}
}

// Toggle runs the action offered for plugin id and reports which one ran.
// It returns ActionNone without calling the API when the plugin is
// unknown or restarting.
func (p *Plugins) Toggle(ctx context.Context, id string) (Action, error) {
	var action Action
	for _, pl := range p.Snapshot().Data {
		if pl.ID == id {
			action = ActionFor(pl.State)
			break
		}
	}

	switch action {
	case ActionStart:
		return action, p.Start(ctx, id)
	case ActionStop:
		return action, p.Stop(ctx, id)
	default:
		return ActionNone, nil
	}
}

// NewProtocols creates the read-only protocol catalogue resource.
func NewProtocols(c Client, opts ...Option) *Resource[[]device.Protocol] {
	return New[[]device.Protocol]("protocols", c.ListProtocols, opts...)
}

// AdapterLink pairs a known adapter with whether a device is linked to it.
type AdapterLink struct {
	Adapter plugin.Plugin
	Linked  bool
}

// LinkedAdapters reports, for every known adapter, whether dev is linked
// to it. Adapter ids on the device that match no known adapter are left
// out and so shown as unlinked.
func LinkedAdapters(dev device.Device, adapters []plugin.Plugin) []AdapterLink {
	links := make([]AdapterLink, 0, len(adapters))
	for _, a := range adapters {
		links = append(links, AdapterLink{Adapter: a, Linked: dev.HasAdapter(a.ID)})
	}
	return links
}

// Set holds every resource the dashboard uses.
type Set struct {
	Devices   *Devices
	Adapters  *Plugins
	Scanners  *Plugins
	Protocols *Resource[[]device.Protocol]
}

// NewSet creates the dashboard resources over c.
func NewSet(c Client, opts ...Option) *Set {
	return &Set{
		Devices:   NewDevices(c, opts...),
		Adapters:  NewAdapters(c, opts...),
		Scanners:  NewScanners(c, opts...),
		Protocols: NewProtocols(c, opts...),
	}
}

// ActivateAll activates every resource concurrently. A failing fetch
// does not stop the others; the first error is returned.
func (s *Set) ActivateAll(ctx context.Context) error {
	return s.each(ctx, func(ctx context.Context, a activator) error { return a.Activate(ctx) })
}

// RefreshAll refreshes every resource concurrently.
func (s *Set) RefreshAll(ctx context.Context) error {
	return s.each(ctx, func(ctx context.Context, a activator) error { return a.Refresh(ctx) })
}

type activator interface {
	Name() string
	Activate(ctx context.Context) error
	Refresh(ctx context.Context) error
}

func (s *Set) each(ctx context.Context, fn func(context.Context, activator) error) error {
	var g errgroup.Group
	for _, a := range []activator{s.Devices, s.Adapters, s.Scanners, s.Protocols} {
		g.Go(func() error {
			if err := fn(ctx, a); err != nil {
				return fmt.Errorf("loading %s: %w", a.Name(), err)
			}
			return nil
		})
	}
	return g.Wait()
}
