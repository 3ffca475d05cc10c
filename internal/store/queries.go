package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/tinytelemetry/druguse/internal/model"
)

// ErrNotFound is returned when no record matches a lookup.
var ErrNotFound = model.ErrNotFound

var (
	selectRecord = fmt.Sprintf("SELECT rowid, %s FROM %s WHERE age = ? ORDER BY rowid LIMIT 1",
		columnList, model.TableName)
	selectAll = fmt.Sprintf("SELECT rowid, %s FROM %s ORDER BY rowid", columnList, model.TableName)
)

// queryCtx returns a context with the store's configured query timeout.
func (s *Store) queryCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.QueryTimeout)
}

// AgeIndex returns every record's row identity and age label in insertion order.
func (s *Store) AgeIndex() ([]AgeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()
	rows, err := s.db.QueryContext(ctx, "SELECT rowid, age FROM "+model.TableName+" ORDER BY rowid")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []AgeEntry
	for rows.Next() {
		var e AgeEntry
		var age sql.NullString
		if err := rows.Scan(&e.RowID, &age); err != nil {
			log.Printf("store: scan error (AgeIndex): %v", err)
			continue
		}
		e.Age = age.String
		results = append(results, e)
	}
	return results, rows.Err()
}

// RecordByAge returns the first record, in insertion order, whose age label
// equals age. It returns ErrNotFound when there is none.
func (s *Store) RecordByAge(age string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	var rc recordCells
	err := s.db.QueryRowContext(ctx, selectRecord, age).Scan(rc.dest()...)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	return rc.record(), nil
}

// Records returns every record in insertion order.
func (s *Store) Records() ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()
	rows, err := s.db.QueryContext(ctx, selectAll)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Record
	for rows.Next() {
		var rc recordCells
		if err := rows.Scan(rc.dest()...); err != nil {
			log.Printf("store: scan error (Records): %v", err)
			continue
		}
		results = append(results, rc.record())
	}
	return results, rows.Err()
}

// recordCells is the scan target for one full dataset row.
type recordCells struct {
	rowID int64
	cells []sql.NullString
}

// DrugSeries returns (age, value) pairs for one drug column across all
// records in insertion order. Unknown drugs or metrics are rejected before
// any SQL is built.
func (s *Store) DrugSeries(drug string, metric model.Metric) ([]SeriesPoint, error) {
	col, err := model.Column(drug, metric)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()
	query := fmt.Sprintf("SELECT rowid, age, %s FROM %s ORDER BY rowid", col, model.TableName)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SeriesPoint
	for rows.Next() {
		var p SeriesPoint
		var age, value sql.NullString
		if err := rows.Scan(&p.RowID, &age, &value); err != nil {
			log.Printf("store: scan error (DrugSeries %s): %v", col, err)
			continue
		}
		p.Age = age.String
		p.Value = toField(value)
		results = append(results, p)
	}
	return results, rows.Err()
}

// RecordCount returns the number of imported records.
func (s *Store) RecordCount() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+model.TableName).Scan(&count)
	return count, err
}

// LastImport returns the most recent import run, if any.
func (s *Store) LastImport() (ImportRun, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	var run ImportRun
	var at string
	err := s.db.QueryRowContext(ctx,
		"SELECT source, row_count, imported_at FROM import_runs ORDER BY rowid DESC LIMIT 1",
	).Scan(&run.Source, &run.Rows, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return ImportRun{}, false, nil
	}
	if err != nil {
		return ImportRun{}, false, err
	}
	if t, perr := time.Parse(time.RFC3339Nano, at); perr == nil {
		run.ImportedAt = t
	} else {
		log.Printf("store: bad imported_at %q: %v", at, perr)
	}
	return run, true, nil
}

func toField(ns sql.NullString) Field {
	return Field{Text: ns.String, Valid: ns.Valid}
}

func (rc *recordCells) dest() []any {
	rc.cells = make([]sql.NullString, len(model.Columns))
	dest := make([]any, 0, len(rc.cells)+1)
	dest = append(dest, &rc.rowID)
	for i := range rc.cells {
		dest = append(dest, &rc.cells[i])
	}
	return dest
}

func (rc *recordCells) record() Record {
	rec := Record{
		RowID: rc.rowID,
		Age:   rc.cells[0].String,
		N:     toField(rc.cells[1]),
		Drugs: make([]model.DrugValues, len(model.Drugs)),
	}
	for i, d := range model.Drugs {
		rec.Drugs[i] = model.DrugValues{
			Drug:      d,
			Use:       toField(rc.cells[2+2*i]),
			Frequency: toField(rc.cells[3+2*i]),
		}
	}
	return rec
}
