// Package paths centralizes file and directory names used across the project.
// All data directory file names are defined here as the single source of truth.
package paths

import "path/filepath"

// ///////////////////////////////////////////////
// Constants
// ///////////////////////////////////////////////

// Data directory file names.
const (
	LockFile     = "pctracker.lock"
	ConfigFile   = "config.toml"
	RulesFile    = "rules.toml"
	LogFile      = "pctracker.log"
	DatabaseFile = "database.sqlite3"
)

const (
	BinaryName = "pctracker"
	DataDirRel = ".pctracker" // relative to $HOME
)

// ///////////////////////////////////////////////
// DataDir
// ///////////////////////////////////////////////

// DataDir provides path construction methods rooted at a data directory.
type DataDir struct {
	Root string
}

// Lock returns the full path to the single-instance sentinel file.
func (d DataDir) Lock() string { return filepath.Join(d.Root, LockFile) }

// Config returns the full path to the config file.
func (d DataDir) Config() string { return filepath.Join(d.Root, ConfigFile) }

// Log returns the full path to the log file.
func (d DataDir) Log() string { return filepath.Join(d.Root, LogFile) }

// Resolve returns name unchanged when it is absolute, otherwise joined onto
// the data directory. Config values such as store.file and analyze.rules_file
// go through here.
func (d DataDir) Resolve(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(d.Root, name)
}

// Database returns the path of the event store given the configured file name,
// falling back to [DatabaseFile] when empty.
func (d DataDir) Database(name string) string {
	if name == "" {
		name = DatabaseFile
	}
	return d.Resolve(name)
}

// Rules returns the path of the rules file given the configured file name,
// falling back to [RulesFile] when empty.
func (d DataDir) Rules(name string) string {
	if name == "" {
		name = RulesFile
	}
	return d.Resolve(name)
}
