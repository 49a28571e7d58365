package monitor

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/gputweak/gputweak/internal/errors"
	"github.com/gputweak/gputweak/internal/logger"
)

// DebugLogFile receives the log output of the dashboard when
// GPUTWEAK_DEBUG is set, since the terminal belongs to the UI.
const DebugLogFile = "gputweak-debug.log"

// Run shows the dashboard on the alternate screen and blocks until the user
// quits. Extra options are passed to the Bubble Tea program.
func Run(m Model, opts ...tea.ProgramOption) error {
	if logger.DebugEnabled() {
		f, err := tea.LogToFile(DebugLogFile, "stats")
		if err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Couldn't open "+DebugLogFile,
				"Run from a writable directory or unset "+logger.DebugEnv+".")
		}
		defer f.Close()
	}

	p := tea.NewProgram(m, append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)...)
	if _, err := p.Run(); err != nil {
		return errors.Wrap(err, "Dashboard stopped unexpectedly")
	}
	return nil
}
