package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// LocalHost is the picker choice for running nvidia-settings on this machine.
const LocalHost = "local"

// HostOption is one entry in the host picker.
type HostOption struct {
	Name        string // SSH alias, or LocalHost
	Description string
	Search      string // extra text matched by the filter, e.g. the hostname
}

type hostItem struct {
	opt HostOption
}

func (i hostItem) Title() string       { return i.opt.Name }
func (i hostItem) Description() string { return i.opt.Description }
func (i hostItem) FilterValue() string { return strings.TrimSpace(i.opt.Name + " " + i.opt.Search) }

// HostPickerModel is a Bubble Tea model for choosing where the tool runs.
type HostPickerModel struct {
	list     list.Model
	selected *HostOption
	manual   bool
	quitting bool
}

type hostPickerKeyMap struct {
	Enter  key.Binding
	Manual key.Binding
	Quit   key.Binding
}

var hostPickerKeys = hostPickerKeyMap{
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "select"),
	),
	Manual: key.NewBinding(
		key.WithKeys("m"),
		key.WithHelp("m", "type a host"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q/esc", "cancel"),
	),
}

// NewHostPickerModel lists this machine first, then opts.
func NewHostPickerModel(opts []HostOption) HostPickerModel {
	items := make([]list.Item, 0, len(opts)+1)
	items = append(items, hostItem{opt: HostOption{Name: LocalHost, Description: "run nvidia-settings on this machine"}})
	for _, o := range opts {
		items = append(items, hostItem{opt: o})
	}

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(ColorPrimary).
		BorderForeground(ColorNeonGreen)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(ColorMuted)

	l := list.New(items, delegate, 80, 15)
	l.Title = "Where do your GPUs live?"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = lipgloss.NewStyle().
		Foreground(ColorPrimary).
		Bold(true).
		Padding(0, 0, 1, 0)
	l.Styles.HelpStyle = MutedStyle()
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{hostPickerKeys.Manual}
	}

	return HostPickerModel{list: l}
}

// Init implements tea.Model.
func (m HostPickerModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m HostPickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Typing into the filter must not trigger shortcuts.
		if m.list.FilterState() == list.Filtering {
			break
		}

		switch {
		case key.Matches(msg, hostPickerKeys.Enter):
			if item, ok := m.list.SelectedItem().(hostItem); ok {
				m.selected = &item.opt
			}
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, hostPickerKeys.Manual):
			m.manual = true
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, hostPickerKeys.Quit):
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height-2)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m HostPickerModel) View() string {
	if m.quitting {
		return ""
	}
	return m.list.View()
}

// Selected returns the chosen option, or nil if none was chosen.
func (m HostPickerModel) Selected() *HostOption { return m.selected }

// ManualEntry reports whether the user asked to type a host instead.
func (m HostPickerModel) ManualEntry() bool { return m.manual }

// PickHost runs the picker on the given terminal streams. It returns the
// chosen name, or manual=true when the user wants to type one, or
// cancelled=true.
func PickHost(opts []HostOption, in io.Reader, out io.Writer) (name string, manual, cancelled bool, err error) {
	p := tea.NewProgram(NewHostPickerModel(opts), tea.WithInput(in), tea.WithOutput(out))

	final, err := p.Run()
	if err != nil {
		return "", false, false, fmt.Errorf("host picker error: %w", err)
	}

	m, ok := final.(HostPickerModel)
	if !ok {
		return "", false, true, nil
	}
	if m.ManualEntry() {
		return "", true, false, nil
	}
	if m.Selected() == nil {
		return "", false, true, nil
	}
	return m.Selected().Name, false, false, nil
}
