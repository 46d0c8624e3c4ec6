package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/hilthontt/liveshare/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps one row per room key, last write wins. It is the only
// state shared across process restarts.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS rooms (
		key TEXT PRIMARY KEY,
		content TEXT NOT NULL DEFAULT '',
		selection_start INTEGER NOT NULL DEFAULT 0,
		selection_end INTEGER NOT NULL DEFAULT 0,
		language TEXT NOT NULL DEFAULT '',
		version INTEGER NOT NULL DEFAULT 0,
		host_token TEXT NOT NULL DEFAULT '',
		host_connected INTEGER NOT NULL DEFAULT 0,
		active INTEGER NOT NULL DEFAULT 0,
		created_by_ip TEXT NOT NULL DEFAULT '',
		expires_at INTEGER NOT NULL DEFAULT 0,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_rooms_active ON rooms(active);
	`

	_, err := db.Exec(schema)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save upserts the full room snapshot for its key.
func (s *SQLiteStore) Save(ctx context.Context, room *domain.Room) error {
	if room == nil || room.Key == "" {
		return errors.New("store: room key required")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rooms (key, content, selection_start, selection_end, language, version,
			host_token, host_connected, active, created_by_ip, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			content = excluded.content,
			selection_start = excluded.selection_start,
			selection_end = excluded.selection_end,
			language = excluded.language,
			version = excluded.version,
			host_token = excluded.host_token,
			host_connected = excluded.host_connected,
			active = excluded.active,
			created_by_ip = excluded.created_by_ip,
			expires_at = excluded.expires_at,
			updated_at = CURRENT_TIMESTAMP
	`, room.Key, room.Content, room.Selection.Start, room.Selection.End, room.Language,
		room.Version, room.HostToken, boolToInt(room.HostConnected), boolToInt(room.Active),
		room.CreatedByIP, room.ExpiresAt.UnixMilli())
	return err
}

// Load returns the persisted room for key, or (nil, nil) if none exists.
func (s *SQLiteStore) Load(ctx context.Context, key string) (*domain.Room, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT key, content, selection_start, selection_end, language, version,
			host_token, host_connected, active, created_by_ip, expires_at
		FROM rooms WHERE key = ?
	`, key)

	var (
		room          domain.Room
		hostConnected int
		active        int
		expiresAt     int64
	)
	err := row.Scan(&room.Key, &room.Content, &room.Selection.Start, &room.Selection.End,
		&room.Language, &room.Version, &room.HostToken, &hostConnected, &active,
		&room.CreatedByIP, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	room.HostConnected = hostConnected != 0
	room.Active = active != 0
	room.ExpiresAt = time.UnixMilli(expiresAt)
	return &room, nil
}

// ActiveKeys lists the keys of rooms persisted as active, used at boot to
// re-arm expiry timers.
func (s *SQLiteStore) ActiveKeys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key FROM rooms WHERE active = 1")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
