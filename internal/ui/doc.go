// Package ui provides terminal output components for gputweak's CLI.
//
// # Components Overview
//
//	Spinner     - Animated status indicator while the tool is queried
//	Tables      - GPU lists, key/value detail blocks and doctor results
//	Sparkline   - One-line history graphs for plain (non-TUI) output
//	HostPicker  - Interactive SSH host selection for 'config init'
//	Header      - Branded title block for 'version'
//
// # Color Scheme
//
// Semantic colors are ANSI codes for broad terminal compatibility:
//
//	ColorSuccess   (green)  - Healthy readings, passed checks
//	ColorError     (red)    - Failures, critical temperatures
//	ColorWarning   (yellow) - Warnings, warm temperatures
//	ColorInfo      (cyan)   - Informational messages
//	ColorMuted     (gray)   - Secondary text, timing info
//	ColorSecondary (blue)   - In-progress indicators
//
// Use DisableColors() to switch to monochrome output (for --no-color flag).
package ui
