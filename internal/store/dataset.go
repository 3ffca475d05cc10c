package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tinytelemetry/druguse/internal/model"
)

// Column lists are built from model.Columns, a fixed set of identifiers.
var (
	columnList   = strings.Join(model.Columns, ", ")
	createTable  = buildCreateTable()
	insertRecord = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		model.TableName, columnList, strings.TrimSuffix(strings.Repeat("?, ", len(model.Columns)), ", "))
)

func buildCreateTable() string {
	defs := make([]string, len(model.Columns))
	for i, c := range model.Columns {
		defs[i] = c + " TEXT"
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", model.TableName, strings.Join(defs, ", "))
}

// ResetDataset drops any previous dataset table and creates an empty one
// with one TEXT column per expected field.
func (s *Store) ResetDataset() error {
	ctx, cancel := s.queryCtx()
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+model.TableName); err != nil {
		return fmt.Errorf("drop %s: %w", model.TableName, err)
	}
	if _, err := s.db.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("create %s: %w", model.TableName, err)
	}
	return nil
}

// InsertRecordBatch appends rows in order within a single transaction.
// Each row must have exactly len(model.Columns) entries.
func (s *Store) InsertRecordBatch(rows []RawRow) error {
	if len(rows) == 0 {
		return nil
	}

	ctx, cancel := s.queryCtx()
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insertBatchTx(ctx, rows)
}

// insertBatchTx inserts rows in a single transaction.
func (s *Store) insertBatchTx(ctx context.Context, rows []RawRow) error {
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

	stmt, err := tx.PrepareContext(ctx, insertRecord)
	if err != nil {
		return err
	}
	defer stmt.Close()

	args := make([]any, len(model.Columns))
	for _, row := range rows {
		if len(row) != len(model.Columns) {
			return fmt.Errorf("record insert: got %d values, want %d", len(row), len(model.Columns))
		}
		for i, v := range row {
			if v == nil {
				args[i] = nil
			} else {
				args[i] = *v
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("record insert: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// RecordImport stores bookkeeping for a completed import.
func (s *Store) RecordImport(run ImportRun) error {
	ctx, cancel := s.queryCtx()
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	at := run.ImportedAt
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO import_runs (source, row_count, imported_at) VALUES (?, ?, ?)",
		run.Source, run.Rows, at.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record import: %w", err)
	}
	return nil
}
