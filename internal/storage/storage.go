package storage

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is stored in PRAGMA user_version.
const schemaVersion = 2

// upgrades[v] brings a database at version v-1 to v. schema.sql already
// carries every column, so fresh databases skip them.
var upgrades = map[int][]string{
	2: {
		`ALTER TABLE player_matches ADD COLUMN mvps INTEGER NOT NULL DEFAULT 0`,
		`ALTER TABLE player_matches ADD COLUMN score INTEGER NOT NULL DEFAULT 0`,
		`ALTER TABLE player_matches ADD COLUMN adr REAL NOT NULL DEFAULT 0`,
		`UPDATE player_matches SET adr = ROUND(CAST(damage AS REAL) / rounds_played, 2) WHERE rounds_played > 0`,
	},
}

var ErrSchemaVersion = errors.New("database was written by a newer version")

// matchTables are cleared, in this order, when a match is replaced or dropped.
var matchTables = []string{
	"rounds", "kills", "weapon_stats", "flash_stats", "damage_stats",
	"player_matches", "clutch_stats", "multikill_stats", "first_blood_stats",
	"chat_messages", "voice_stats", "matches",
}

// DB wraps a sql.DB for the record store.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database at the given path and applies the schema.
func Open(path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would get its own empty database
		conn.SetMaxOpenConns(1)
	}
	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func migrate(conn *sql.DB) error {
	var version int
	if err := conn.QueryRow(`PRAGMA user_version`).Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version > schemaVersion {
		return fmt.Errorf("%w: schema %d, supported %d", ErrSchemaVersion, version, schemaVersion)
	}
	if version > 0 {
		for v := version + 1; v <= schemaVersion; v++ {
			for _, stmt := range upgrades[v] {
				if _, err := conn.Exec(stmt); err != nil {
					return fmt.Errorf("upgrade schema to %d: %w", v, err)
				}
			}
		}
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	if _, err := conn.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, schemaVersion)); err != nil {
		return fmt.Errorf("write schema version: %w", err)
	}
	return nil
}
