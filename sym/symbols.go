// Package sym defines the symbols attached to log lines and CLI headers.
// They are stable across CLI output and structured logs so operators can
// grep for a subsystem.
package sym

// System symbols.
const (
	AM         = "≡" // configuration
	Pulse      = "꩜" // scheduler driver runs
	PulseOpen  = "✿" // driver startup
	PulseClose = "❀" // driver shutdown
	DB         = "⊔" // storage layer
	AT         = "✦" // instances (a moment in time)
	Report     = "▣" // metrics reports
)

// Names maps each symbol to a short command-style name.
var Names = map[string]string{
	AM:         "am",
	Pulse:      "pulse",
	PulseOpen:  "pulse-open",
	PulseClose: "pulse-close",
	DB:         "db",
	AT:         "instance",
	Report:     "report",
}
