package model

// DatasetReader provides the read-only queries used by the presentation layer.
type DatasetReader interface {
	AgeIndex() ([]AgeEntry, error)
	RecordByAge(age string) (Record, error)
	DrugSeries(drug string, metric Metric) ([]SeriesPoint, error)
	Records() ([]Record, error)
}

// StatusReader reports dataset bookkeeping for health checks.
type StatusReader interface {
	RecordCount() (int64, error)
	LastImport() (ImportRun, bool, error)
}

// DatasetWriter provides the write path used by the importer.
type DatasetWriter interface {
	ResetDataset() error
	InsertRecordBatch(rows []RawRow) error
	RecordImport(run ImportRun) error
}

// ReadAPI is the unified read contract for the HTTP server.
type ReadAPI interface {
	DatasetReader
	StatusReader
}
