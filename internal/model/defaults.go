package model

import "time"

// Shared defaults used by both the server and importer binaries.
const (
	DefaultDBPath       = "druguse.duckdb"
	DefaultDriver       = "duckdb"
	DefaultCSVPath      = "drug-use-by-age.csv"
	DefaultQueryTimeout = 30 * time.Second
	DefaultBatchSize    = 500
)
