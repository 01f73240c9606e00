package storage

import (
	"database/sql"
	"fmt"

	"github.com/hfdm/hfdm/storage/db"
	_ "github.com/mattn/go-sqlite3"
)

// NewTestDB creates an in-memory SQLite database for testing
func NewTestDB() (*sql.DB, *db.Queries, func(), error) {
	database, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open test database: %w", err)
	}

	// Each pooled connection to :memory: is a separate database.
	database.SetMaxOpenConns(1)

	if err := migrate(database); err != nil {
		database.Close()
		return nil, nil, nil, err
	}

	cleanup := func() {
		database.Close()
	}

	return database, db.New(database), cleanup, nil
}

// NewTestStorage wraps NewTestDB in a Storage.
func NewTestStorage() (*Storage, func(), error) {
	database, _, cleanup, err := NewTestDB()
	if err != nil {
		return nil, nil, err
	}
	return NewFromDB(database), cleanup, nil
}
