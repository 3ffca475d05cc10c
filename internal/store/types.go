package store

import "github.com/tinytelemetry/druguse/internal/model"

// Type aliases re-export model types so store method signatures read naturally.
type Record = model.Record
type Field = model.Field
type AgeEntry = model.AgeEntry
type SeriesPoint = model.SeriesPoint
type ImportRun = model.ImportRun
type RawRow = model.RawRow
