package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

const (
	sqliteDriverName       = "sqlite"
	sqliteDSNOptions       = "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	missingPathMessage     = "storage path is required"
	openDatabaseErrorFmt   = "open sqlite db: %w"
	pingDatabaseErrorFmt   = "ping sqlite db: %w"
	createSchemaErrorFmt   = "create kv schema: %w"
	createEntriesTableStmt = `CREATE TABLE IF NOT EXISTS kv_entries (
		entry_key   TEXT PRIMARY KEY,
		entry_value BLOB NOT NULL
	)`
	selectEntryStmt = `SELECT entry_value FROM kv_entries WHERE entry_key = ?`
	upsertEntryStmt = `INSERT INTO kv_entries (entry_key, entry_value) VALUES (?, ?)
		ON CONFLICT(entry_key) DO UPDATE SET entry_value = excluded.entry_value`
	deleteEntryStmt = `DELETE FROM kv_entries WHERE entry_key = ?`
)

// SQLiteStore implements Gateway over a single key-value table in a local
// SQLite database.
type SQLiteStore struct {
	sqlDB *sql.DB
}

// OpenSQLite opens the store at the given path, creating the schema when
// missing.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New(missingPathMessage)
	}
	dataSourceName := filepath.Clean(path) + sqliteDSNOptions
	sqlDB, openErr := sql.Open(sqliteDriverName, dataSourceName)
	if openErr != nil {
		return nil, fmt.Errorf(openDatabaseErrorFmt, openErr)
	}
	if pingErr := sqlDB.Ping(); pingErr != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf(pingDatabaseErrorFmt, pingErr)
	}
	if _, schemaErr := sqlDB.Exec(createEntriesTableStmt); schemaErr != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf(createSchemaErrorFmt, schemaErr)
	}
	return &SQLiteStore{sqlDB: sqlDB}, nil
}

// Close closes the underlying database handle.
func (store *SQLiteStore) Close() error {
	if store == nil || store.sqlDB == nil {
		return nil
	}
	return store.sqlDB.Close()
}

// Get returns the stored value for the key.
func (store *SQLiteStore) Get(key string) ([]byte, bool, error) {
	var value []byte
	scanErr := store.sqlDB.QueryRow(selectEntryStmt, key).Scan(&value)
	if errors.Is(scanErr, sql.ErrNoRows) {
		return nil, false, nil
	}
	if scanErr != nil {
		return nil, false, scanErr
	}
	return value, true, nil
}

// Set writes the value under the key, replacing any previous value.
func (store *SQLiteStore) Set(key string, value []byte) error {
	_, execErr := store.sqlDB.Exec(upsertEntryStmt, key, value)
	return execErr
}

// Delete removes the entry for the key.
func (store *SQLiteStore) Delete(key string) error {
	_, execErr := store.sqlDB.Exec(deleteEntryStmt, key)
	return execErr
}
