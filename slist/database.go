package slist

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Database is the durable mirror of the in-memory tab collection plus the
// credential record, backed by SQLite.
type Database struct {
	db *sql.DB

	insertTabStmt  *sql.Stmt
	getSettingStmt *sql.Stmt
}

// NewDatabase opens (or creates) the SQLite database at dbPath, applies
// schema migrations, and prepares common statements.
func NewDatabase(dbPath string) (*Database, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	// Enable busy_timeout and foreign keys.
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	database := &Database{db: db}
	if err := database.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}
	return database, nil
}

// Close releases prepared statements and closes the DB.
func (d *Database) Close() error {
	if d.insertTabStmt != nil {
		d.insertTabStmt.Close()
	}
	if d.getSettingStmt != nil {
		d.getSettingStmt.Close()
	}
	return d.db.Close()
}

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sql.DB) error {
	// WAL improves write concurrency.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		// Each tab is stored as one JSON document; position preserves order.
		`CREATE TABLE IF NOT EXISTS tabs (
            id TEXT PRIMARY KEY,
            position INTEGER NOT NULL,
            data TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS settings (
            key TEXT PRIMARY KEY,
            value TEXT NOT NULL
        );`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}

	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
        ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion); err != nil {
		return fmt.Errorf("apply migration: %w", err)
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Prepared statements
// ---------------------------------------------------------------------------

func (d *Database) prepareStatements() error {
	var err error
	if d.insertTabStmt, err = d.db.Prepare(`INSERT INTO tabs(id,position,data) VALUES(?,?,?)`); err != nil {
		return err
	}
	if d.getSettingStmt, err = d.db.Prepare(`SELECT value FROM settings WHERE key=?`); err != nil {
		return err
	}
	return nil
}

// ---------------------------------------------------------------------------
// Tab collection
// ---------------------------------------------------------------------------

// GetTabs returns every persisted tab in order. An uninitialized or empty
// store yields an empty slice, not an error; read failures surface so the
// caller can decide whether first-run fallback is appropriate.
func (d *Database) GetTabs() ([]*Tab, error) {
	rows, err := d.db.Query(`SELECT data FROM tabs ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("%w: read tabs: %v", ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var tabs []*Tab
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("%w: scan tab: %v", ErrStorageUnavailable, err)
		}
		var tab Tab
		if err := json.Unmarshal([]byte(data), &tab); err != nil {
			return nil, fmt.Errorf("decode tab: %w", err)
		}
		if tab.Archive == nil {
			tab.Archive = []*ArchiveEntry{}
		}
		tabs = append(tabs, &tab)
	}
	return tabs, rows.Err()
}

// SaveTabs atomically replaces the whole tab table with the given snapshot.
// Clear and reinsert happen in one transaction, so a failure partway through
// never leaves a mix of old and new rows visible.
func (d *Database) SaveTabs(tabs []*Tab) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrStorageUnavailable, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM tabs`); err != nil {
		return fmt.Errorf("%w: clear tabs: %v", ErrStorageUnavailable, err)
	}

	insert := tx.Stmt(d.insertTabStmt)
	defer insert.Close()
	for i, tab := range tabs {
		data, err := json.Marshal(tab)
		if err != nil {
			return fmt.Errorf("encode tab %s: %w", tab.ID, err)
		}
		if _, err := insert.Exec(tab.ID, i, string(data)); err != nil {
			return fmt.Errorf("%w: insert tab %s: %v", ErrStorageUnavailable, tab.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Credential record
// ---------------------------------------------------------------------------

const passwordKey = "password"

// HasPassword reports whether a credential hash has ever been persisted.
// Storage errors read as "no credential" (first-run behavior).
func (d *Database) HasPassword() bool {
	var value string
	err := d.getSettingStmt.QueryRow(passwordKey).Scan(&value)
	return err == nil && value != ""
}

// SetPassword persists the one-way hash of the password, replacing any prior
// value. The plaintext password is never stored.
func (d *Database) SetPassword(password string) error {
	_, err := d.db.Exec(`INSERT INTO settings(key,value) VALUES(?,?)
        ON CONFLICT(key) DO UPDATE SET value=excluded.value`, passwordKey, HashPassword(password))
	if err != nil {
		return fmt.Errorf("%w: store credential: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// VerifyPassword reports whether the password matches the stored hash.
// Missing credential and storage errors both verify as false (fail closed).
func (d *Database) VerifyPassword(password string) bool {
	var stored string
	if err := d.getSettingStmt.QueryRow(passwordKey).Scan(&stored); err != nil {
		return false
	}
	return stored != "" && stored == HashPassword(password)
}
