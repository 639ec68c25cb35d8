package store

import (
	"fmt"

	"goac/internal/logging"
)

// migrations run in order; schema_version records the last applied index.
var migrations = []string{
	// 1: initial schema
	`CREATE TABLE IF NOT EXISTS accounts (
		addr           TEXT PRIMARY KEY,
		name           TEXT NOT NULL DEFAULT '',
		secret_key     TEXT NOT NULL,
		public_key     TEXT NOT NULL,
		prefer_encrypt TEXT NOT NULL DEFAULT 'nopreference',
		enabled        INTEGER NOT NULL DEFAULT 1,
		created_at     INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS peers (
		addr                TEXT PRIMARY KEY,
		keydata             TEXT NOT NULL DEFAULT '',
		prefer_encrypt      TEXT NOT NULL DEFAULT 'nopreference',
		last_seen           INTEGER NOT NULL DEFAULT 0,
		autocrypt_timestamp INTEGER NOT NULL DEFAULT 0,
		gossip_keydata      TEXT NOT NULL DEFAULT '',
		gossip_timestamp    INTEGER NOT NULL DEFAULT 0,
		state               TEXT NOT NULL DEFAULT 'nothing',
		created_at          INTEGER NOT NULL,
		updated_at          INTEGER NOT NULL
	);`,

	// 2: index for recommendation scans
	`CREATE INDEX IF NOT EXISTS idx_peers_last_seen ON peers(last_seen);`,
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER NOT NULL
	)`); err != nil {
		return fmt.Errorf("store: create schema_version: %w", err)
	}

	var version int
	row := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`)
	if err := row.Scan(&version); err != nil {
		return fmt.Errorf("store: read schema version: %w", err)
	}

	for i := version; i < len(migrations); i++ {
		logging.Store("applying migration %d", i+1)
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("store: begin migration %d: %w", i+1, err)
		}
		if _, err := tx.Exec(migrations[i]); err != nil {
			tx.Rollback()
			return fmt.Errorf("store: migration %d: %w", i+1, err)
		}
		if _, err := tx.Exec(`DELETE FROM schema_version`); err != nil {
			tx.Rollback()
			return fmt.Errorf("store: reset schema version: %w", err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_version (version) VALUES (?)`, i+1); err != nil {
			tx.Rollback()
			return fmt.Errorf("store: record schema version: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("store: commit migration %d: %w", i+1, err)
		}
	}
	return nil
}
