package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL DEFAULT '',
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS folders (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	name TEXT NOT NULL,
	is_system INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_folders_user_name ON folders(user_id, lower(name));

CREATE TABLE IF NOT EXISTS mined_clips (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	video_id TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	transcript TEXT NOT NULL DEFAULT '',
	analysis TEXT NOT NULL DEFAULT '',
	action_plan TEXT NOT NULL DEFAULT '[]',
	category TEXT NOT NULL DEFAULT 'Other',
	folder_id TEXT REFERENCES folders(id) ON DELETE SET NULL,
	source TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_clips_user_created ON mined_clips(user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_clips_user_video ON mined_clips(user_id, video_id);

CREATE TABLE IF NOT EXISTS intake_requests (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	url TEXT NOT NULL,
	video_id TEXT NOT NULL DEFAULT '',
	source TEXT NOT NULL,
	status TEXT NOT NULL,
	error TEXT,
	clip_id TEXT,
	processed_at TEXT,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_intake_status_created ON intake_requests(status, created_at);

CREATE TABLE IF NOT EXISTS user_api_tokens (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	token_hash TEXT NOT NULL UNIQUE,
	token_prefix TEXT NOT NULL,
	revoked_at TEXT,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tokens_user ON user_api_tokens(user_id);
-- Databases created before the one-active index may hold several; keep the newest.
UPDATE user_api_tokens SET revoked_at = created_at
WHERE revoked_at IS NULL AND EXISTS (
	SELECT 1 FROM user_api_tokens newer
	WHERE newer.user_id = user_api_tokens.user_id AND newer.revoked_at IS NULL
	AND (newer.created_at > user_api_tokens.created_at
		OR (newer.created_at = user_api_tokens.created_at AND newer.id > user_api_tokens.id))
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_tokens_user_active ON user_api_tokens(user_id) WHERE revoked_at IS NULL;

CREATE TABLE IF NOT EXISTS report_preferences (
	user_id TEXT PRIMARY KEY,
	frequency TEXT NOT NULL DEFAULT 'daily',
	time_of_day TEXT NOT NULL DEFAULT '08:00',
	day_of_week TEXT,
	timezone TEXT NOT NULL DEFAULT 'UTC',
	last_sent_at TEXT,
	updated_at TEXT NOT NULL
);
`

// SQLiteStore implements Store on an embedded SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies
// the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection serializes writers and keeps :memory: databases shared.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma failed (%s): %w", pragma, err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates missing tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Clips() ClipRepository     { return &sqliteClipRepository{db: s.db} }
func (s *SQLiteStore) Folders() FolderRepository { return &sqliteFolderRepository{db: s.db} }
func (s *SQLiteStore) Intakes() IntakeRepository { return &sqliteIntakeRepository{db: s.db} }
func (s *SQLiteStore) Tokens() TokenRepository   { return &sqliteTokenRepository{db: s.db} }
func (s *SQLiteStore) Reports() ReportRepository { return &sqliteReportRepository{db: s.db} }
func (s *SQLiteStore) Users() UserRepository     { return &sqliteUserRepository{db: s.db} }

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t.UTC()
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func timePtr(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
