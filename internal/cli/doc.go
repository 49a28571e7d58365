// Package cli implements the gputweak command-line interface.
//
// Each file holds one cobra command and a plain function doing its work
// (listCommand, fanCommand, ...), so tests can drive the logic without
// going through flag parsing.
//
// # Commands
//
//	gputweak list               - GPUs visible to nvidia-settings
//	gputweak info <gpu>         - constants and current readings
//	gputweak query <gpu> <attr> - one raw attribute
//	gputweak stats [gpu...]     - live dashboard, or lines with --plain
//	gputweak fan <gpu> <n|auto> - fixed fan speed or automatic control
//	gputweak tweak <gpu>        - interactive fan form
//	gputweak doctor             - diagnose the setup
//	gputweak config init|show|set
//
// # Sessions
//
// Commands that talk to a GPU open a session: the loaded config with the
// global flags (--config, --host, --tool, --timeout) applied, a runner for
// the target (local process or SSH) and an nvidia.Adapter on top of it.
// newRunner is a variable so tests can swap in a scripted runner.
package cli
