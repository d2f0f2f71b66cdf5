package config

// ///////////////////////////////////////////////
// Documentation Types
// ///////////////////////////////////////////////

// FieldDoc holds documentation and alternative examples for a single config field.
// The genconfig tool uses [FieldDoc] values to annotate the generated config.default.toml.
type FieldDoc struct {
	// Comment is shown as a header comment above the field in the example config.
	Comment string

	// Alternatives are shown as commented-out lines below the active value.
	Alternatives []string
}

// ///////////////////////////////////////////////
// Field Documentation Map
// ///////////////////////////////////////////////

// ConfigDocs maps TOML field paths (dot-separated, e.g. "record.idle_probe")
// to their [FieldDoc] entries.
var ConfigDocs = map[string]FieldDoc{
	// ── Root ──────────────────────────────────────────────────────
	"version": {
		Comment: "Config schema version, do not edit.",
	},

	// ── Record ───────────────────────────────────────────────────
	"record.poll_interval_seconds": {
		Comment: "Seconds between window snapshots. Each snapshot extends or opens interval rows.",
	},
	"record.inactivity_seconds": {
		Comment: "Seconds without keyboard or pointer input before the current run is closed\nwith reason \"inactive\".",
	},
	"record.idle_probe": {
		Comment: "How input idleness is detected. Options: \"auto\", \"xprintidle\", \"ioreg\", \"win32\", \"none\"\n  ioreg: macOS HIDIdleTime\n  none: never treat the user as inactive (only screen lock ends a run)",
		Alternatives: []string{
			`idle_probe = "none"`,
		},
	},
	"record.source": {
		Comment: "Where window snapshots come from. Options: \"auto\", \"x11\", \"win32\"",
	},

	// ── Analyze ──────────────────────────────────────────────────
	"analyze.rules_file": {
		Comment: "Classification rules, relative to the data directory.\nA commented default is written on first analyze.",
	},
	"analyze.threshold": {
		Comment: "Minimum size of an unmatched-title cluster worth showing.\nBelow 1 it is a fraction of the unmatched entries at that node, otherwise a count.",
		Alternatives: []string{
			`threshold = 3.0`,
		},
	},
	"analyze.examples": {
		Comment: "Maximum number of example clusters shown on each \"other\" line.",
	},
	"analyze.only_active": {
		Comment: "Only count time where the window had focus.",
	},

	// ── Store ────────────────────────────────────────────────────
	"store.file": {
		Comment: "SQLite event store, relative to the data directory.",
	},
	"store.busy_timeout_ms": {},

	// ── Log ──────────────────────────────────────────────────────
	"log.level": {
		Comment: "Minimum log level. Options: \"trace\", \"debug\", \"info\", \"warn\", \"error\"",
		Alternatives: []string{
			`level = "debug"`,
		},
	},
	"log.max_size_mb": {
		Comment: "Rotate the log file after this many megabytes.",
	},
}
