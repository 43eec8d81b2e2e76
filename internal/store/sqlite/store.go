package sqlite

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/mattn/go-sqlite3"
)

// StoreConfig configures the SQLite store.
type StoreConfig struct {
	DBPath string // path to SQLite database file, e.g. "data/screener.db"
}

// Store persists scan reports and open positions. A single Store serves both
// the screener (scan history) and the monitor (positions and decisions).
type Store struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// New opens the SQLite database with WAL mode and initializes the schema.
func New(cfg StoreConfig) (*Store, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Set connection pool for single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", cfg.DBPath)
	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS scans (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			universe      TEXT    NOT NULL,
			started_at    INTEGER NOT NULL,
			elapsed_ms    INTEGER NOT NULL,
			opportunities INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS scan_stages (
			scan_id     INTEGER NOT NULL,
			stage_index INTEGER NOT NULL,
			name        TEXT    NOT NULL,
			description TEXT    NOT NULL,
			input       INTEGER NOT NULL,
			passed      INTEGER NOT NULL,
			failed      INTEGER NOT NULL,
			pass_rate   REAL    NOT NULL,
			elapsed_ms  INTEGER NOT NULL,
			failures    TEXT,
			PRIMARY KEY (scan_id, stage_index)
		);

		CREATE TABLE IF NOT EXISTS opportunities (
			scan_id        INTEGER NOT NULL,
			symbol         TEXT    NOT NULL,
			tier           TEXT    NOT NULL,
			composite      REAL    NOT NULL,
			return_pct     REAL    NOT NULL,
			confidence_pct REAL    NOT NULL,
			days_to_target INTEGER NOT NULL,
			entry_price    REAL    NOT NULL,
			target_price   REAL    NOT NULL,
			stop_price     REAL    NOT NULL,
			shares         INTEGER NOT NULL,
			position_value REAL    NOT NULL,
			target_profit  REAL    NOT NULL,
			max_loss       REAL    NOT NULL,
			risk_reward    REAL    NOT NULL,
			scores         TEXT    NOT NULL,
			PRIMARY KEY (scan_id, symbol)
		);

		CREATE TABLE IF NOT EXISTS positions (
			symbol        TEXT    PRIMARY KEY,
			entry_price   REAL    NOT NULL,
			target_price  REAL    NOT NULL,
			stop_price    REAL    NOT NULL,
			shares        INTEGER NOT NULL,
			entered_on    INTEGER NOT NULL,
			max_hold_days INTEGER NOT NULL,
			status        TEXT    NOT NULL DEFAULT 'OPEN',
			closed_at     INTEGER
		);

		CREATE TABLE IF NOT EXISTS position_decisions (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol     TEXT    NOT NULL,
			status     TEXT    NOT NULL,
			price      REAL    NOT NULL,
			pnl_pct    REAL    NOT NULL,
			days_held  INTEGER NOT NULL,
			checked_at INTEGER NOT NULL
		);
	`)
	return err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
