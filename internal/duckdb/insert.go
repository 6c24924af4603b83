package duckdb

import (
	"context"
	"fmt"
	"iter"

	"github.com/tinytelemetry/etlq/internal/model"
)

// insertBatchSize bounds how many rows go into one transaction.
const insertBatchSize = 2000

// InsertRecords appends records to the records table, preserving their
// order in the seq column. It returns the number of rows written.
func (s *Store) InsertRecords(ctx context.Context, records iter.Seq[model.Record]) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var next int64
	if err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(seq), 0) FROM records").Scan(&next); err != nil {
		return 0, fmt.Errorf("reading last seq: %w", err)
	}

	written := 0
	batch := make([]model.Record, 0, insertBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.insertBatchTx(ctx, next, batch); err != nil {
			return err
		}
		next += int64(len(batch))
		written += len(batch)
		batch = batch[:0]
		return nil
	}

	for r := range records {
		batch = append(batch, r)
		if len(batch) == insertBatchSize {
			if err := flush(); err != nil {
				return written, err
			}
		}
	}
	if err := flush(); err != nil {
		return written, err
	}
	return written, nil
}

// insertBatchTx inserts records in a single transaction, numbering them after start.
func (s *Store) insertBatchTx(ctx context.Context, start int64, records []model.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO records (seq, timestamp, severity, code, description) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, r := range records {
		if _, err := stmt.ExecContext(ctx, start+int64(i)+1, r.Timestamp, r.Severity, r.Code, r.Description); err != nil {
			return fmt.Errorf("record insert: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
