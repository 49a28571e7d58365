// Package monitor implements the "gputweak stats" terminal dashboard.
//
// The dashboard shows one card per GPU with its current readings and a
// braille graph per tracked metric, plus a scrollable detail view for the
// selected GPU.
//
// # Architecture
//
// The package uses the Bubble Tea framework (Model-Update-View):
//
//   - Model: devices, selection, layout, poll state
//   - Update: keystrokes, poll ticks, finished polls, redraw ticks
//   - View: renders the current state to a string
//
// Readings come from a poller.Poller whose devices feed a history.Store.
// Graphs are produced by graph.Project and rasterized here onto braille
// cells, each holding 2x4 dots.
//
// # Message Flow
//
//  1. Init starts the first poll and the redraw timer.
//  2. A poll runs as a single tea.Cmd calling Poller.PollOnce; pollDoneMsg
//     arrives when every device was refreshed.
//  3. Only then is the next pollTickMsg scheduled, so polls never overlap.
//  4. redrawMsg fires every refresh interval (default 1s) and re-renders
//     the graphs so they scroll with time. It only reads the store.
//
// # Keyboard Shortcuts
//
//	q, Ctrl+C   - Quit
//	r           - Poll now
//	s           - Cycle sort order (id/temperature/core usage)
//	j/k, ↑/↓    - Select GPU
//	Enter       - GPU detail view
//	Esc         - Back
//	?           - Toggle help overlay
package monitor
