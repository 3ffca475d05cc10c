package csvimport

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/tinytelemetry/druguse/internal/model"
)

// Config holds tunable parameters for an import.
type Config struct {
	Columns   []string // expected columns, defaults to model.Columns
	BatchSize int      // rows per insert transaction, defaults to model.DefaultBatchSize
}

// Result summarizes a completed import.
type Result struct {
	Source         string
	Rows           int64
	MissingColumns []string
}

// Importer streams CSV records into a dataset writer, one row per record.
type Importer struct {
	writer    model.DatasetWriter
	columns   []string
	batchSize int
	now       func() time.Time
}

// New creates an importer writing to writer.
func New(writer model.DatasetWriter, conf ...Config) *Importer {
	im := &Importer{
		writer:    writer,
		columns:   model.Columns,
		batchSize: model.DefaultBatchSize,
		now:       time.Now,
	}
	if len(conf) > 0 {
		if len(conf[0].Columns) > 0 {
			im.columns = conf[0].Columns
		}
		if conf[0].BatchSize > 0 {
			im.batchSize = conf[0].BatchSize
		}
	}
	return im
}

// ImportFile imports the CSV file at path.
func (im *Importer) ImportFile(path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	return im.Import(f, path)
}

// Import replaces the dataset with the records read from r. Fields are
// matched to columns by header name; a column the header lacks, or a row too
// short to reach it, is stored as NULL. Rows keep their CSV order.
//
// A read error aborts the import after the rows read so far are written.
func (im *Importer) Import(r io.Reader, source string) (Result, error) {
	res := Result{Source: source}

	cr := newCSVReader(r)
	header, err := readHeader(cr)
	if err != nil {
		return res, fmt.Errorf("read csv header: %w", err)
	}
	pos := columnPositions(header, im.columns)
	res.MissingColumns = missingColumns(pos, im.columns)
	if len(res.MissingColumns) > 0 {
		log.Printf("csvimport: header lacks %d columns, storing NULL: %v", len(res.MissingColumns), res.MissingColumns)
	}

	if err := im.writer.ResetDataset(); err != nil {
		return res, fmt.Errorf("reset dataset: %w", err)
	}

	pending := make([]model.RawRow, 0, im.batchSize)
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		if err := im.writer.InsertRecordBatch(pending); err != nil {
			return err
		}
		res.Rows += int64(len(pending))
		pending = make([]model.RawRow, 0, im.batchSize)
		return nil
	}

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if ferr := flush(); ferr != nil {
				log.Printf("csvimport: flush before abort failed: %v", ferr)
			}
			return res, fmt.Errorf("read csv record %d: %w", res.Rows+int64(len(pending))+1, err)
		}

		pending = append(pending, mapRecord(rec, pos))
		if len(pending) >= im.batchSize {
			if err := flush(); err != nil {
				return res, fmt.Errorf("insert batch: %w", err)
			}
		}
	}
	if err := flush(); err != nil {
		return res, fmt.Errorf("insert batch: %w", err)
	}

	if err := im.writer.RecordImport(model.ImportRun{
		Source:     source,
		Rows:       res.Rows,
		ImportedAt: im.now(),
	}); err != nil {
		return res, err
	}
	return res, nil
}

// mapRecord copies the fields of rec into column order. rec may be reused by
// the reader, so values are copied.
func mapRecord(rec []string, pos []int) model.RawRow {
	row := make(model.RawRow, len(pos))
	for i, p := range pos {
		if p < 0 || p >= len(rec) {
			continue
		}
		v := rec[p]
		row[i] = &v
	}
	return row
}
