package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/hfdm/hfdm/storage/db"
	"github.com/oklog/ulid/v2"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

type Storage struct {
	db      *sql.DB
	Queries *db.Queries
}

func New(dbPath string) (*Storage, error) {
	if err := ensureDir(filepath.Dir(dbPath)); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	sqliteDB, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := sqliteDB.Ping(); err != nil {
		sqliteDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("running database migrations", "database", dbPath)
	if err := migrate(sqliteDB); err != nil {
		sqliteDB.Close()
		return nil, err
	}
	slog.Info("database migrations completed successfully")

	return &Storage{
		db:      sqliteDB,
		Queries: db.New(sqliteDB),
	}, nil
}

// NewFromDB wraps an already-migrated database handle.
func NewFromDB(database *sql.DB) *Storage {
	return &Storage{
		db:      database,
		Queries: db.New(database),
	}
}

func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return s.db.PingContext(ctx)
}

// UserProfile is the identity data an auth provider hands to storage.
type UserProfile struct {
	ExternalID string
	Email      string
	FullName   string
	ImageURL   string
}

// SyncUser upserts a user keyed by the provider's external id. The local id
// is assigned on first insert and kept on later syncs.
func (s *Storage) SyncUser(ctx context.Context, p UserProfile) (*db.User, error) {
	if p.ExternalID == "" {
		return nil, fmt.Errorf("external id is required")
	}

	err := s.Queries.UpsertUserByExternalID(ctx, db.UpsertUserByExternalIDParams{
		ID:         ulid.Make().String(),
		ExternalID: p.ExternalID,
		Email:      p.Email,
		FullName:   p.FullName,
		ImageUrl:   sql.NullString{String: p.ImageURL, Valid: p.ImageURL != ""},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	user, err := s.Queries.GetUserByExternalID(ctx, p.ExternalID)
	if err != nil {
		return nil, fmt.Errorf("failed to load synced user: %w", err)
	}

	return &user, nil
}

// FindOrCreateUserByEmail returns the stored user with this email, creating
// one keyed by "email:<address>" when none exists.
func (s *Storage) FindOrCreateUserByEmail(ctx context.Context, email, fullName string) (*db.User, error) {
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}

	user, err := s.Queries.GetUserByEmail(ctx, email)
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to look up user by email: %w", err)
	}

	return s.SyncUser(ctx, UserProfile{
		ExternalID: "email:" + email,
		Email:      email,
		FullName:   fullName,
	})
}

func migrate(database *sql.DB) error {
	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.Up(database, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func ensureDir(dir string) error {
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
