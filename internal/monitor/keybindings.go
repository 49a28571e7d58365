package monitor

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// SortOrder defines how GPUs are ordered in the dashboard.
type SortOrder int

const (
	SortByID SortOrder = iota
	SortByTemp
	SortByCoreUse
	sortOrders
)

func (s SortOrder) String() string {
	switch s {
	case SortByTemp:
		return "temperature"
	case SortByCoreUse:
		return "core usage"
	default:
		return "id"
	}
}

// Next cycles to the next sort order.
func (s SortOrder) Next() SortOrder {
	return (s + 1) % sortOrders
}

// ViewMode defines the current display mode of the dashboard.
type ViewMode int

const (
	ViewList ViewMode = iota
	ViewDetail
)

// keyMap holds every binding the dashboard reacts to.
type keyMap struct {
	Quit    key.Binding
	Refresh key.Binding
	Sort    key.Binding
	Prev    key.Binding
	Next    key.Binding
	First   key.Binding
	Last    key.Binding
	Detail  key.Binding
	Back    key.Binding
	Help    key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q / Ctrl+C", "Quit"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "Poll now"),
	),
	Sort: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "Cycle sort order"),
	),
	Prev: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("up / k", "Select previous GPU"),
	),
	Next: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("down / j", "Select next GPU"),
	),
	First: key.NewBinding(
		key.WithKeys("home"),
		key.WithHelp("Home", "Select first GPU"),
	),
	Last: key.NewBinding(
		key.WithKeys("end"),
		key.WithHelp("End", "Select last GPU"),
	),
	Detail: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("Enter", "Show GPU detail"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("Esc", "Back / close"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "Toggle this help"),
	),
}

// bindings lists the keymap in help overlay order.
func (k keyMap) bindings() []key.Binding {
	return []key.Binding{k.Quit, k.Refresh, k.Sort, k.Prev, k.Next, k.First, k.Last, k.Detail, k.Back, k.Help}
}

// HandleKeyMsg applies a key press to the model. It reports whether the key
// was bound.
func (m *Model) HandleKeyMsg(msg tea.KeyMsg) (bool, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Help):
		m.showHelp = !m.showHelp
		return true, nil

	case key.Matches(msg, keys.Back):
		switch {
		case m.showHelp:
			m.showHelp = false
		case m.viewMode == ViewDetail:
			m.viewMode = ViewList
		}
		return true, nil

	case key.Matches(msg, keys.Quit):
		m.quitting = true
		return true, tea.Quit

	case key.Matches(msg, keys.Refresh):
		return true, m.startPoll()

	case m.viewMode == ViewDetail && key.Matches(msg, keys.Prev, keys.Next, keys.First, keys.Last):
		// Left for the detail viewport to scroll.
		return false, nil

	case key.Matches(msg, keys.Sort):
		m.sortOrder = m.sortOrder.Next()
		m.sortDevices()
		return true, nil

	case key.Matches(msg, keys.Prev):
		m.selected = max(m.selected-1, 0)
		return true, nil

	case key.Matches(msg, keys.Next):
		m.selected = max(min(m.selected+1, len(m.devices)-1), 0)
		return true, nil

	case key.Matches(msg, keys.First):
		m.selected = 0
		return true, nil

	case key.Matches(msg, keys.Last):
		m.selected = max(len(m.devices)-1, 0)
		return true, nil

	case key.Matches(msg, keys.Detail):
		if m.viewMode == ViewList && len(m.devices) > 0 {
			m.viewMode = ViewDetail
			m.updateDetailViewportContent()
			m.detailViewport.GotoTop()
		}
		return true, nil
	}

	return false, nil
}
