package monitor

import (
	"context"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/gputweak/gputweak/internal/config"
	"github.com/gputweak/gputweak/internal/gpu"
	"github.com/gputweak/gputweak/internal/history"
	"github.com/gputweak/gputweak/internal/poller"
)

// DeviceState is the poll state of one GPU as shown in the dashboard.
type DeviceState int

const (
	StateWaiting DeviceState = iota
	StateHealthy
	StateFailing
)

// String returns a human-readable state string.
func (s DeviceState) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StateHealthy:
		return "ok"
	case StateFailing:
		return "failing"
	default:
		return "unknown"
	}
}

// LayoutMode represents the responsive layout mode based on terminal size.
type LayoutMode int

const (
	// LayoutMinimal is for terminals < 80 columns: readings only, no graphs
	LayoutMinimal LayoutMode = iota
	// LayoutCompact is for terminals 80-120 columns: one graph per GPU
	LayoutCompact
	// LayoutStandard is for terminals 120+ columns: every tracked metric
	LayoutStandard
)

// Width breakpoints for layout modes
const (
	BreakpointCompact  = 80
	BreakpointStandard = 120
)

// HeightMinimal is the height below which the footer is hidden.
const HeightMinimal = 24

// DefaultRefresh is the redraw interval.
const DefaultRefresh = time.Second

// Options configures a Model.
type Options struct {
	// Host is shown in the header; empty means the local machine.
	Host       string
	Refresh    time.Duration
	Thresholds config.TemperatureThresholds
	// Clock overrides time.Now.
	Clock func() time.Time
	// Context bounds every poll. Defaults to context.Background.
	Context context.Context
}

// Model is the Bubble Tea model for the stats dashboard.
type Model struct {
	ctx        context.Context
	poller     *poller.Poller
	store      *history.Store
	devices    []gpu.Device
	host       string
	refresh    time.Duration
	thresholds config.TemperatureThresholds
	now        func() time.Time

	selected  int
	sortOrder SortOrder
	viewMode  ViewMode
	showHelp  bool
	quitting  bool
	width     int
	height    int

	// polling is true while a poll command is in flight; tickGen discards
	// poll ticks scheduled before the latest poll finished.
	polling    bool
	tickGen    int
	lastUpdate time.Time
	lastFailed int
	frame      int

	detailViewport viewport.Model
	viewportReady  bool
}

// pollTickMsg asks for the next poll round.
type pollTickMsg struct {
	gen int
}

// pollDoneMsg reports a finished poll round.
type pollDoneMsg struct {
	at     time.Time
	failed int
}

// redrawMsg signals a periodic redraw.
type redrawMsg time.Time

// NewModel creates a dashboard over p's devices. The store should already be
// bound to p so every refresh lands in it.
func NewModel(p *poller.Poller, store *history.Store, opts Options) Model {
	if opts.Refresh <= 0 {
		opts.Refresh = DefaultRefresh
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.Thresholds == (config.TemperatureThresholds{}) {
		opts.Thresholds = config.DefaultConfig().Monitor.Thresholds
	}

	devices := make([]gpu.Device, len(p.Devices()))
	copy(devices, p.Devices())

	m := Model{
		ctx:        opts.Context,
		poller:     p,
		store:      store,
		devices:    devices,
		host:       opts.Host,
		refresh:    opts.Refresh,
		thresholds: opts.Thresholds,
		now:        opts.Clock,
		selected:   -1,
		sortOrder:  SortByID,
		// Init starts the first poll.
		polling: true,
	}
	m.sortDevices()
	if len(m.devices) > 0 {
		m.selected = 0
	}
	return m
}

// Init triggers the first poll and starts the redraw timer.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.pollCmd(), m.redrawCmd())
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		handled, cmd := m.HandleKeyMsg(msg)
		if handled {
			return m, cmd
		}
		if m.viewMode == ViewDetail && m.viewportReady {
			var cmd tea.Cmd
			m.detailViewport, cmd = m.detailViewport.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		// Reserve space for header and footer
		headerHeight := 3
		footerHeight := 2
		viewportHeight := m.height - headerHeight - footerHeight
		if viewportHeight < 1 {
			viewportHeight = 1
		}

		if !m.viewportReady {
			m.detailViewport = viewport.New(m.width, viewportHeight)
			m.detailViewport.YPosition = headerHeight
			m.viewportReady = true
		} else {
			m.detailViewport.Width = m.width
			m.detailViewport.Height = viewportHeight
		}
		m.updateDetailViewportContent()

	case pollTickMsg:
		if msg.gen != m.tickGen || m.polling {
			return m, nil
		}
		return m, m.startPoll()

	case pollDoneMsg:
		m.polling = false
		m.lastUpdate = msg.at
		m.lastFailed = msg.failed
		m.sortDevices()
		m.updateDetailViewportContent()
		m.tickGen++
		return m, m.pollTickCmd()

	case redrawMsg:
		m.frame++
		m.updateDetailViewportContent()
		return m, m.redrawCmd()
	}

	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.showHelp {
		return m.renderHelpOverlay()
	}
	if m.viewMode == ViewDetail {
		return m.renderDetailView()
	}
	return m.renderDashboard()
}

// startPoll marks a poll in flight and returns it, or returns nil when one
// is already running.
func (m *Model) startPoll() tea.Cmd {
	if m.polling {
		return nil
	}
	m.polling = true
	return m.pollCmd()
}

// pollCmd runs one poll round off the UI goroutine.
func (m Model) pollCmd() tea.Cmd {
	p, ctx, now := m.poller, m.ctx, m.now
	return func() tea.Msg {
		errs := p.PollOnce(ctx)
		return pollDoneMsg{at: now(), failed: len(errs)}
	}
}

func (m Model) pollTickCmd() tea.Cmd {
	gen := m.tickGen
	return tea.Tick(m.poller.Interval(), func(time.Time) tea.Msg {
		return pollTickMsg{gen: gen}
	})
}

func (m Model) redrawCmd() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg {
		return redrawMsg(t)
	})
}

// Polling reports whether a poll round is in flight.
func (m Model) Polling() bool { return m.polling }

// SelectedDevice returns the currently selected GPU.
func (m Model) SelectedDevice() gpu.Device {
	if m.selected >= 0 && m.selected < len(m.devices) {
		return m.devices[m.selected]
	}
	return nil
}

// State returns the poll state of d.
func (m Model) State(d gpu.Device) DeviceState {
	st, ok := m.poller.Status(d.ID())
	switch {
	case !ok || st.LastAttempt.IsZero():
		return StateWaiting
	case st.Failures > 0:
		return StateFailing
	default:
		return StateHealthy
	}
}

// HealthyCount returns the number of GPUs whose last refresh succeeded.
func (m Model) HealthyCount() int {
	count := 0
	for _, d := range m.devices {
		if m.State(d) == StateHealthy {
			count++
		}
	}
	return count
}

// SecondsSinceUpdate returns how many seconds have passed since the last poll.
func (m Model) SecondsSinceUpdate() int {
	if m.lastUpdate.IsZero() {
		return 0
	}
	return int(m.now().Sub(m.lastUpdate).Seconds())
}

// LayoutMode returns the current layout mode based on terminal width.
func (m Model) LayoutMode() LayoutMode {
	switch {
	case m.width >= BreakpointStandard:
		return LayoutStandard
	case m.width >= BreakpointCompact:
		return LayoutCompact
	default:
		return LayoutMinimal
	}
}

// ShowFooter returns true if the terminal is tall enough to show the footer.
func (m Model) ShowFooter() bool {
	return m.height == 0 || m.height >= HeightMinimal
}

// sortDevices orders devices by the current sort order, keeping the
// selection on the same GPU.
func (m *Model) sortDevices() {
	if len(m.devices) == 0 {
		return
	}

	selectedID := -1
	if d := m.SelectedDevice(); d != nil {
		selectedID = d.ID()
	}

	sort.SliceStable(m.devices, func(i, j int) bool {
		a, b := m.devices[i], m.devices[j]
		switch m.sortOrder {
		case SortByTemp:
			if ta, tb := a.Variables().CoreTemp, b.Variables().CoreTemp; ta != tb {
				return ta > tb
			}
		case SortByCoreUse:
			if ua, ub := a.Variables().CoreUse, b.Variables().CoreUse; ua != ub {
				return ua > ub
			}
		}
		return a.ID() < b.ID()
	})

	for i, d := range m.devices {
		if d.ID() == selectedID {
			m.selected = i
			return
		}
	}
}
