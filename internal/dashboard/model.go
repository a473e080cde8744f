package dashboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nerrad567/gohome/internal/device"
	"github.com/nerrad567/gohome/internal/grid"
	"github.com/nerrad567/gohome/internal/layout"
	"github.com/nerrad567/gohome/internal/resource"
	"github.com/nerrad567/gohome/internal/widget"
)

// minCellWidth is the narrowest grid cell drawn, in columns.
const minCellWidth = 12

// Notifier wakes the program when shared state changes. Notifications
// arriving while one is pending are merged into it.
type Notifier struct {
	ch chan struct{}
}

// NewNotifier creates a notifier.
func NewNotifier() *Notifier {
	return &Notifier{ch: make(chan struct{}, 1)}
}

// Notify schedules a redraw. It never blocks.
func (n *Notifier) Notify() {
	select {
	case n.ch <- struct{}{}:
	default:
	}
}

func (n *Notifier) wait(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-n.ch:
			return changedMsg{}
		case <-ctx.Done():
			return nil
		}
	}
}

// Messages.
type (
	// changedMsg reports that a resource or the peer table changed.
	changedMsg struct{}

	// loadedMsg carries the result of loading the REST collections.
	loadedMsg struct{ err error }

	// actionMsg carries the result of a plugin command.
	actionMsg struct {
		id     string
		action resource.Action
		err    error
	}

	// deviceMsg carries the result of linking, unlinking or deleting a
	// device.
	deviceMsg struct {
		verb   string
		target string
		err    error
	}

	// createdMsg carries the result of registering a device.
	createdMsg struct {
		name string
		err  error
	}
)

// Deps are the collaborators of a Model.
type Deps struct {
	Registry  *widget.Registry
	Store     *layout.Store
	Resources *resource.Set
	Notifier  *Notifier
	Peers     *PeerTable
	RowHeight int
	Logger    Logger
}

// Model is the dashboard's bubbletea model.
type Model struct {
	ctx      context.Context
	registry *widget.Registry
	store    *layout.Store
	res      *resource.Set
	notifier *Notifier
	peers    *PeerTable
	logger   Logger

	engine      *grid.Engine
	layout      *grid.Layout
	renderables map[string]*widget.Renderable
	pending     []tea.Cmd

	keys     KeyMap
	help     help.Model
	viewport viewport.Model
	width    int
	height   int
	ready    bool

	editing  bool
	managing bool
	form     *deviceForm
	detail   *deviceDetail
	confirm  *device.Device
	cursor   int
	status   string
	failed   bool
}

// New creates the dashboard model and arranges the active widgets.
// ctx bounds every fetch and command the model starts.
func New(ctx context.Context, deps Deps) (*Model, error) {
	if deps.Registry == nil || deps.Store == nil || deps.Resources == nil {
		return nil, errors.New("dashboard: registry, store and resources are required")
	}
	if deps.Notifier == nil {
		deps.Notifier = NewNotifier()
	}
	if deps.Logger == nil {
		deps.Logger = noopLogger{}
	}

	m := &Model{
		ctx:         ctx,
		registry:    deps.Registry,
		store:       deps.Store,
		res:         deps.Resources,
		notifier:    deps.Notifier,
		peers:       deps.Peers,
		logger:      deps.Logger,
		engine:      grid.NewEngine(deps.RowHeight),
		renderables: make(map[string]*widget.Renderable),
		keys:        DefaultKeyMap(),
		help:        help.New(),
	}
	m.pending = append(m.pending, m.rebuild())
	return m, nil
}

// Init loads the collections and starts listening for changes.
func (m *Model) Init() tea.Cmd {
	cmds := append([]tea.Cmd{m.activate(), m.notifier.wait(m.ctx)}, m.pending...)
	m.pending = nil
	return tea.Batch(cmds...)
}

func (m *Model) activate() tea.Cmd {
	return func() tea.Msg {
		return loadedMsg{err: m.res.ActivateAll(m.ctx)}
	}
}

// rebuild resolves the active widgets and arranges them. Widgets
// resolved for the first time get their data-source load returned as a
// command. Stored ids that are not in the catalogue are skipped.
func (m *Model) rebuild() tea.Cmd {
	var focused string
	if m.layout != nil {
		focused, _ = m.layout.Focused()
	}

	// Widgets no longer active are resolved afresh if added back.
	for id := range m.renderables {
		if !m.store.Contains(id) {
			delete(m.renderables, id)
		}
	}

	var cmds []tea.Cmd
	ids := m.store.List()
	items := make([]grid.Item, 0, len(ids))
	for _, id := range ids {
		r, fresh, err := m.renderable(id)
		if err != nil {
			m.logger.Warn("skipping widget", "widget_id", id, "error", err)
			continue
		}
		if l, ok := r.Body.(loader); ok && fresh {
			cmds = append(cmds, m.load(l))
		}
		items = append(items, grid.Item{
			ID:   id,
			Cols: r.Cols,
			Rows: r.Rows,
			Render: func(w, h int, state grid.CellState) string {
				return r.View(w, h, widget.FrameOptions{Focused: state.Focused, Editing: state.Editing})
			},
			OnRemove: func() error {
				return m.store.Remove(m.ctx, id)
			},
		})
	}

	m.layout = m.engine.Arrange(items)
	m.layout.SetEditing(m.editing)
	if focused != "" {
		m.layout.Focus(focused)
	}
	m.syncViewport()
	return tea.Batch(cmds...)
}

// renderable returns the cached renderable of id, resolving it on first
// use. fresh is true when it was resolved by this call.
func (m *Model) renderable(id string) (r *widget.Renderable, fresh bool, err error) {
	if r, ok := m.renderables[id]; ok {
		return r, false, nil
	}
	d, ok := m.registry.Descriptor(id)
	if !ok {
		return nil, false, fmt.Errorf("widget %s is not in the catalogue", id)
	}
	r, err = m.registry.Resolve(d, widget.Context{})
	if err != nil {
		return nil, false, err
	}
	m.renderables[id] = r
	return r, true, nil
}

func (m *Model) load(l loader) tea.Cmd {
	return func() tea.Msg {
		// Failures are recorded in the body's snapshot.
		//nolint:errcheck // shown by the widget
		l.Load(m.ctx)
		return nil
	}
}

// Update handles messages and updates the model accordingly.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.resizeViewport()

	case changedMsg:
		cmd = m.notifier.wait(m.ctx)

	case loadedMsg:
		if msg.err != nil {
			m.setError(msg.err)
		}

	case actionMsg:
		if msg.err != nil {
			m.setError(fmt.Errorf("%s %s: %w", msg.action, msg.id, msg.err))
		} else {
			m.setStatus(fmt.Sprintf("%s %s: done", msg.action, msg.id))
		}

	case deviceMsg:
		if msg.err != nil {
			m.setError(fmt.Errorf("%s %s: %w", msg.verb, msg.target, msg.err))
		} else {
			m.setStatus(fmt.Sprintf("%s %s: done", msg.verb, msg.target))
		}

	case createdMsg:
		if msg.err != nil {
			m.setError(fmt.Errorf("creating %s: %w", msg.name, msg.err))
		} else {
			m.setStatus("created " + msg.name)
		}

	case tea.KeyMsg:
		switch {
		case m.confirm != nil:
			cmd = m.updateConfirm(msg)
		case m.form != nil:
			cmd = m.updateForm(msg)
		case m.detail != nil:
			cmd = m.updateDetail(msg)
		case m.managing:
			cmd = m.updateManager(msg)
		default:
			cmd = m.updateGrid(msg)
		}

	case tea.MouseMsg:
		m.viewport, cmd = m.viewport.Update(msg)
	}

	m.syncViewport()
	return m, cmd
}

func (m *Model) updateGrid(msg tea.KeyMsg) tea.Cmd {
	if b, ok := m.focusedDeviceList(); ok {
		if cmd, handled := m.updateDeviceList(b, msg); handled {
			return cmd
		}
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.resizeViewport()

	case key.Matches(msg, m.keys.Next):
		m.layout.FocusNext()

	case key.Matches(msg, m.keys.Prev):
		m.layout.FocusPrev()

	case key.Matches(msg, m.keys.Edit):
		m.editing = !m.editing
		m.layout.SetEditing(m.editing)

	case key.Matches(msg, m.keys.Remove):
		id, ok := m.layout.Focused()
		if !ok {
			return nil
		}
		if err := m.layout.Remove(id); err != nil {
			if errors.Is(err, grid.ErrNotEditing) {
				m.setStatus("press e to enter edit mode before removing widgets")
				return nil
			}
			m.setError(err)
			return nil
		}
		return m.rebuild()

	case key.Matches(msg, m.keys.Manage):
		m.managing = true
		m.cursor = 0

	case key.Matches(msg, m.keys.Action):
		return m.pluginAction()

	case key.Matches(msg, m.keys.NewDevice):
		m.openForm()

	case key.Matches(msg, m.keys.Refresh):
		return m.refresh()

	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return cmd
	}
	return nil
}

func (m *Model) updateManager(msg tea.KeyMsg) tea.Cmd {
	ids := m.registry.IDs(widget.MountRoot)
	switch {
	case key.Matches(msg, m.keys.Quit) && msg.String() == "ctrl+c":
		return tea.Quit

	case key.Matches(msg, m.keys.Close):
		m.managing = false

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(ids)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.Toggle):
		if m.cursor >= len(ids) {
			return nil
		}
		if _, err := m.store.Toggle(m.ctx, ids[m.cursor]); err != nil {
			m.setError(err)
			return nil
		}
		return m.rebuild()
	}
	return nil
}

func (m *Model) openForm() {
	var peers []Peer
	if m.peers != nil {
		peers = m.peers.Peers()
	}
	protocols := m.res.Protocols.Snapshot()
	if !protocols.HasData {
		protocols.Data = device.Protocols()
	}
	m.form = newDeviceForm(peers, m.res.Devices.Snapshot().Data, protocols.Data)
}

func (m *Model) updateForm(msg tea.KeyMsg) tea.Cmd {
	switch {
	case msg.String() == "ctrl+c":
		return tea.Quit

	case key.Matches(msg, m.keys.Cancel):
		m.form = nil

	case key.Matches(msg, m.keys.Up):
		m.form.selectPeer(m.form.peer - 1)

	case key.Matches(msg, m.keys.Down):
		m.form.selectPeer(m.form.peer + 1)

	case key.Matches(msg, m.keys.Cycle):
		m.form.nextProtocol()

	case key.Matches(msg, m.keys.Submit):
		req, ok := m.form.submit()
		if !ok {
			return nil
		}
		m.form = nil
		m.setStatus("creating " + req.Name + "…")
		return func() tea.Msg {
			return createdMsg{name: req.Name, err: m.res.Devices.Create(m.ctx, req)}
		}

	default:
		return m.form.updateName(msg)
	}
	return nil
}

// pluginAction starts or stops the first eligible plugin of the focused
// state list.
func (m *Model) pluginAction() tea.Cmd {
	id, ok := m.layout.Focused()
	if !ok {
		return nil
	}
	cfg, ok := m.renderables[id].Config.(widget.StateListConfig)
	if !ok {
		m.setStatus("focus a state list to start or stop plugins")
		return nil
	}

	plugins := m.res.Adapters
	if cfg.Source == widget.SourceScanners {
		plugins = m.res.Scanners
	}
	p, ok := FirstEligible(plugins.Snapshot().Data)
	if !ok {
		m.setStatus("no " + string(cfg.Source) + " to start or stop")
		return nil
	}

	action := resource.ActionFor(p.State)
	m.setStatus(fmt.Sprintf("%s %s…", action, p.ID))
	return func() tea.Msg {
		ran, err := plugins.Toggle(m.ctx, p.ID)
		if ran == resource.ActionNone {
			ran = action
		}
		return actionMsg{id: p.ID, action: ran, err: err}
	}
}

// refresh reloads the collections and the data sources of the widgets
// on screen.
func (m *Model) refresh() tea.Cmd {
	cmds := []tea.Cmd{func() tea.Msg {
		return loadedMsg{err: m.res.RefreshAll(m.ctx)}
	}}
	var loaders []loader
	for _, r := range m.renderables {
		if l, ok := r.Body.(loader); ok {
			loaders = append(loaders, l)
		}
	}
	if m.detail != nil {
		loaders = append(loaders, m.detail.loaders...)
	}
	for _, l := range loaders {
		cmds = append(cmds, func() tea.Msg {
			//nolint:errcheck // shown by the widget
			l.Refresh(m.ctx)
			return nil
		})
	}
	m.setStatus("refreshing…")
	return tea.Batch(cmds...)
}

func (m *Model) setStatus(s string) {
	m.status, m.failed = s, false
}

func (m *Model) setError(err error) {
	m.status, m.failed = err.Error(), true
}

// Editing reports whether edit mode is on.
func (m *Model) Editing() bool {
	return m.editing
}

// Active returns the ids of the arranged widgets in layout order.
func (m *Model) Active() []string {
	placements := m.layout.Placements()
	ids := make([]string, len(placements))
	for i, p := range placements {
		ids[i] = p.ID
	}
	return ids
}
