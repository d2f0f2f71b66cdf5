package migrate

import "fmt"

// Registry holds the version and migrations for a single schema target
// (config TOML, rules TOML, event store). Each target gets its own instance so
// that version numbers and migration lists are fully independent.
type Registry[T any] struct {
	// CurrentVersion is the latest schema version that this registry targets.
	CurrentVersion int
	// Migrations is the list of versioned upgrades. Exported so tests can
	// override the migration list for a given registry instance.
	Migrations []Migration[T]
}

// Register appends a migration to the registry. It panics if a migration
// with the same version is already registered, preventing silent conflicts.
func (r *Registry[T]) Register(m Migration[T]) {
	for _, existing := range r.Migrations {
		if existing.Version == m.Version {
			panic(fmt.Sprintf("migrate: duplicate migration version %d (description: %q)", m.Version, m.Description))
		}
	}
	r.Migrations = append(r.Migrations, m)
}

// NeedsMigration reports whether a target at fileVersion is behind the registry.
func (r *Registry[T]) NeedsMigration(fileVersion int) bool {
	return NeedsMigration(fileVersion, r.CurrentVersion, r.Migrations)
}

// Run applies registered migrations sequentially where fromVersion < m.Version.
func (r *Registry[T]) Run(target T, fromVersion int) (T, int, error) {
	return Run(target, fromVersion, r.Migrations)
}

// Config is the migration registry for config.toml files.
var Config = &Registry[[]byte]{CurrentVersion: 1}

// Rules is the migration registry for rules.toml files.
var Rules = &Registry[[]byte]{CurrentVersion: 1}
