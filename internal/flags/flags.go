package flags

// Package flags defines canonical CLI flag names shared across commands.
// Keeping these as constants helps avoid drift between Cobra flag wiring and
// help text that references the flags.
// IMPORTANT: These are flag *names* without leading dashes.
const (
	// Platform
	FlagURL        = "url"
	FlagConfig     = "config"
	FlagConfigFile = "config-file"

	// Gate / scan targeting
	FlagRepo = "repo"
	FlagPath = "path"

	// Output
	FlagConsoleFormat = "console-format"
	FlagReport        = "report"
	FlagOut           = "out"
	FlagOutFormat     = "out-format"
	FlagNoConsole     = "no-console"

	// Runtime
	FlagConcurrency = "concurrency"
	FlagTimeout     = "timeout"

	// Serve
	FlagListen = "listen"

	// Prefetch
	FlagDest     = "dest"
	FlagInterval = "interval"
)
