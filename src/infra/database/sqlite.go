package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/contre95/snapsaver/src/media"
	_ "github.com/mattn/go-sqlite3"
)

// SqliteStore keeps the user settings and the decision history in SQLite.
type SqliteStore struct {
	db *sql.DB
}

// NewSqliteStore opens (or creates) the database at path.
func NewSqliteStore(path string) (*SqliteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// A single connection keeps :memory: databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	slog.Debug("Settings database opened", "path", path)
	return &SqliteStore{db: db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT
		);

		CREATE TABLE IF NOT EXISTS history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			decision TEXT NOT NULL,
			source_path TEXT NOT NULL,
			result_path TEXT,
			failed BOOLEAN DEFAULT FALSE,
			message TEXT,
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_history_created_at ON history(created_at);
	`)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (d *SqliteStore) Close() error {
	return d.db.Close()
}

// Get returns the value stored under key. Missing keys return ok=false.
func (d *SqliteStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := d.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

// Set stores value under key, replacing any previous value.
func (d *SqliteStore) Set(ctx context.Context, key, value string) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO settings (key, value, updated_at)
		VALUES (?, ?, datetime('now'))
	`, key, value)
	return err
}

// Delete removes key. Deleting a missing key is not an error.
func (d *SqliteStore) Delete(ctx context.Context, key string) error {
	_, err := d.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key)
	return err
}

// All returns every stored setting.
func (d *SqliteStore) All(ctx context.Context) (map[string]string, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		settings[key] = value
	}
	return settings, rows.Err()
}

// AddRecord appends a decision to the history.
func (d *SqliteStore) AddRecord(ctx context.Context, record media.Record) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO history (decision, source_path, result_path, failed, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, string(record.Decision), record.SourcePath, record.ResultPath, record.Failed, record.Message, record.CreatedAt.UTC().Format(time.RFC3339Nano))
	return err
}

// ListRecords returns the most recent decisions, newest first.
func (d *SqliteStore) ListRecords(ctx context.Context, limit int) ([]media.Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, decision, source_path, COALESCE(result_path, ''), failed, COALESCE(message, ''), created_at
		FROM history
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []media.Record
	for rows.Next() {
		var record media.Record
		var decision, createdAt string
		if err := rows.Scan(&record.ID, &decision, &record.SourcePath, &record.ResultPath, &record.Failed, &record.Message, &createdAt); err != nil {
			return nil, err
		}
		record.Decision = media.DecisionKind(decision)
		record.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			slog.Warn("SqliteStore.ListRecords: unparseable timestamp", "id", record.ID, "created_at", createdAt)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
