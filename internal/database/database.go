package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"hotelfront/internal/models"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// DB is the SQLite credential store. Token and role of a session live in one row,
// so both are written and removed by a single statement.
type DB struct {
	db     *sql.DB
	logger *zerolog.Logger
}

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	if path != ":memory:" {
		// Создаем директорию для БД, если её нет
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// :memory: databases are per connection
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("Credential database initialized")
	return &DB{db: db, logger: logger}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS credentials (
            session_id TEXT PRIMARY KEY,
            token TEXT NOT NULL,
            role TEXT NOT NULL,
            updated_at DATETIME NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS idx_credentials_updated_at ON credentials(updated_at)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

func (db *DB) Load(ctx context.Context, sessionID string) (models.Credential, error) {
	var cred models.Credential
	var role string
	err := db.db.QueryRowContext(ctx,
		`SELECT token, role FROM credentials WHERE session_id = ?`, sessionID,
	).Scan(&cred.Token, &role)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Credential{}, nil
	}
	if err != nil {
		return models.Credential{}, fmt.Errorf("failed to load credential: %w", err)
	}
	cred.Role = models.Role(role)
	return cred, nil
}

func (db *DB) Save(ctx context.Context, sessionID string, cred models.Credential) error {
	_, err := db.db.ExecContext(ctx, `
        INSERT INTO credentials (session_id, token, role, updated_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT(session_id) DO UPDATE SET
            token = excluded.token,
            role = excluded.role,
            updated_at = excluded.updated_at`,
		sessionID, cred.Token, string(cred.Role), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	return nil
}

func (db *DB) Clear(ctx context.Context, sessionID string) error {
	if _, err := db.db.ExecContext(ctx, `DELETE FROM credentials WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to clear credential: %w", err)
	}
	return nil
}

// PurgeOlderThan removes credentials not written since the cutoff and returns how many were removed.
func (db *DB) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := db.db.ExecContext(ctx, `DELETE FROM credentials WHERE updated_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge credentials: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		db.logger.Info().Int64("removed", n).Msg("Purged stale credentials")
	}
	return n, nil
}

func (db *DB) PingContext(ctx context.Context) error {
	return db.db.PingContext(ctx)
}

func (db *DB) Close() error {
	return db.db.Close()
}
