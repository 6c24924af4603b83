package duckdb

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tinytelemetry/etlq/internal/duckdb/migrate"
	"github.com/tinytelemetry/etlq/internal/model"
)

// mirrorDSN opens a private in-memory database. External access (file
// readers, glob, extensions, httpfs) is switched off and the setting is
// locked so a query cannot turn it back on.
const mirrorDSN = "?enable_external_access=false&lock_configuration=true"

// Store is an in-memory DuckDB copy of the loaded records, used for
// read-only ad-hoc SQL.
type Store struct {
	db           *sql.DB
	mu           sync.RWMutex
	QueryTimeout time.Duration
}

// NewStore creates an empty mirror with the records schema applied.
// A non-positive queryTimeout selects model.DefaultQueryTimeout.
func NewStore(queryTimeout time.Duration) (*Store, error) {
	db, err := sql.Open("duckdb", mirrorDSN)
	if err != nil {
		return nil, fmt.Errorf("open mirror: %w", err)
	}
	if err := migrate.NewRunner(db).Run(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate mirror: %w", err)
	}

	if queryTimeout <= 0 {
		queryTimeout = model.DefaultQueryTimeout
	}
	return &Store{db: db, QueryTimeout: queryTimeout}, nil
}

// Close releases the mirror.
func (s *Store) Close() error {
	return s.db.Close()
}
