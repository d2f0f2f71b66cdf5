package store

import (
	"context"
	"database/sql"
	"fmt"

	"tools.zach/dev/pctracker/internal/migrate"
)

// schema is the migration registry for the database, tracked in
// PRAGMA user_version.
var schema = &migrate.Registry[*sql.Tx]{
	CurrentVersion: 2,
	Migrations: []migrate.Migration[*sql.Tx]{
		{
			Version:     1,
			Description: "create runs and windows",
			Upgrade: execAll(
				`CREATE TABLE IF NOT EXISTS runs (
					id         INTEGER PRIMARY KEY,
					start      DATETIME NOT NULL,
					"end"      DATETIME NULL,
					end_reason TEXT NOT NULL DEFAULT ''
				)`,
				`CREATE INDEX IF NOT EXISTS idx_runs_start ON runs(start)`,
				`CREATE INDEX IF NOT EXISTS idx_runs_end ON runs("end")`,
				`CREATE TABLE IF NOT EXISTS windows (
					id     INTEGER PRIMARY KEY,
					start  DATETIME NOT NULL,
					"end"  DATETIME NOT NULL,
					active BOOLEAN NOT NULL,
					title  TEXT NOT NULL
				)`,
				`CREATE INDEX IF NOT EXISTS idx_windows_start ON windows(start)`,
				`CREATE INDEX IF NOT EXISTS idx_windows_end ON windows("end")`,
				`CREATE INDEX IF NOT EXISTS idx_windows_active ON windows(active) WHERE active=1`,
			),
		},
		{
			Version:     2,
			Description: "title column and index",
			Upgrade:     renameLegacyTitle,
		},
	},
}

func execAll(stmts ...string) func(*sql.Tx) (*sql.Tx, error) {
	return func(tx *sql.Tx) (*sql.Tx, error) {
		for _, stmt := range stmts {
			if _, err := tx.Exec(stmt); err != nil {
				return nil, err
			}
		}
		return tx, nil
	}
}

// renameLegacyTitle upgrades databases whose windows table still calls the
// title column "name", then indexes title.
func renameLegacyTitle(tx *sql.Tx) (*sql.Tx, error) {
	legacy, err := hasColumn(tx, "windows", "name")
	if err != nil {
		return nil, err
	}
	if legacy {
		stmts := []string{
			`DROP INDEX IF EXISTS idx_windows_name`,
			`ALTER TABLE windows RENAME COLUMN name TO title`,
		}
		if _, err := execAll(stmts...)(tx); err != nil {
			return nil, err
		}
	}
	return execAll(`CREATE INDEX IF NOT EXISTS idx_windows_title ON windows(title)`)(tx)
}

func hasColumn(tx *sql.Tx, table, column string) (bool, error) {
	rows, err := tx.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			cid       int
			name, typ string
			notnull   int
			dflt      sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &typ, &notnull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

// migrate applies pending schema migrations in one transaction.
func (s *Store) migrate(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var version int
	if err := tx.QueryRow(`PRAGMA user_version`).Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}
	if version > schema.CurrentVersion {
		return fmt.Errorf("database schema v%d is newer than supported v%d", version, schema.CurrentVersion)
	}
	if !schema.NeedsMigration(version) {
		return nil
	}
	if _, version, err = schema.Run(tx, version); err != nil {
		return err
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
		return fmt.Errorf("write user_version: %w", err)
	}
	return tx.Commit()
}
