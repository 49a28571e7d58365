package ui

// Unicode symbols for status indicators.
const (
	SymbolSuccess  = "✓" // Check passed
	SymbolFail     = "✗" // Check failed
	SymbolPending  = "○" // Not checked yet
	SymbolProgress = "◐" // In progress
	SymbolComplete = "●" // Done
	SymbolSkipped  = "⊘" // Skipped
)
