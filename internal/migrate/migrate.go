// Package migrate applies sequential, versioned migrations to a target,
// upgrading it from one version to the next. The target is a type parameter:
// config and rules files migrate as raw TOML bytes, the event store migrates
// a live SQL transaction.
package migrate

import (
	"fmt"
	"log/slog"
	"sort"
)

// ///////////////////////////////////////////////
// Types
// ///////////////////////////////////////////////

// Migration upgrades a target of type T from the prior version to Version.
type Migration[T any] struct {
	// Version is the schema version this migration produces.
	Version int
	// Description is a short human-readable label for log output.
	Description string
	// Upgrade transforms the target to [Migration.Version]. Targets that are
	// mutated in place (a transaction) return their argument unchanged.
	Upgrade func(target T) (T, error)
}

// ///////////////////////////////////////////////
// Public API
// ///////////////////////////////////////////////

// Run applies migrations in version order where fromVersion < m.Version.
// Returns the transformed target, the final version reached, and any error.
// On error the version is the last one successfully applied.
func Run[T any](target T, fromVersion int, migrations []Migration[T]) (T, int, error) {
	sorted := make([]Migration[T], len(migrations))
	copy(sorted, migrations)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Version < sorted[j].Version
	})
	version := fromVersion
	for _, m := range sorted {
		if version >= m.Version {
			continue
		}
		slog.Info("applying migration", "version", m.Version, "description", m.Description)
		next, err := m.Upgrade(target)
		if err != nil {
			var zero T
			return zero, version, fmt.Errorf("migration to v%d failed: %w", m.Version, err)
		}
		target = next
		version = m.Version
	}
	return target, version, nil
}

// NeedsMigration reports whether a target at fileVersion would have any
// migrations applied given currentVersion and the registered migrations.
func NeedsMigration[T any](fileVersion, currentVersion int, migrations []Migration[T]) bool {
	if fileVersion != currentVersion {
		return true
	}
	for _, m := range migrations {
		if fileVersion < m.Version {
			return true
		}
	}
	return false
}
