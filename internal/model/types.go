package model

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

// TableName is the table holding the imported dataset.
const TableName = "drug_use"

// Metric selects which of a drug's two columns a series reads.
type Metric string

const (
	MetricUse       Metric = "use"
	MetricFrequency Metric = "frequency"
)

// ErrUnknownDrug is returned when a drug name is not in Drugs.
var ErrUnknownDrug = errors.New("unknown drug")

// ErrUnknownMetric is returned for a metric other than use or frequency.
var ErrUnknownMetric = errors.New("unknown metric")

// Drugs lists the tracked substances in display order. The spelling of
// pain_releiver follows the dataset header.
var Drugs = []string{
	"alcohol", "marijuana", "cocaine", "crack", "heroin", "hallucinogen",
	"inhalant", "pain_releiver", "oxycontin", "tranquilizer", "stimulant", "meth", "sedative",
}

// Columns is the ordered column set of the dataset table. It mirrors the CSV header.
var Columns = buildColumns()

func buildColumns() []string {
	cols := make([]string, 0, 2+2*len(Drugs))
	cols = append(cols, "age", "n")
	for _, d := range Drugs {
		cols = append(cols, d+"_use", d+"_frequency")
	}
	return cols
}

// DrugIndex returns the position of drug in Drugs, or -1.
func DrugIndex(drug string) int {
	for i, d := range Drugs {
		if d == drug {
			return i
		}
	}
	return -1
}

// IsDrug reports whether drug is one of the tracked substances.
func IsDrug(drug string) bool {
	return DrugIndex(drug) >= 0
}

// Column returns the column name for drug and metric. Only names from the
// closed Drugs list are accepted, so the result is safe to interpolate into SQL.
func Column(drug string, metric Metric) (string, error) {
	if !IsDrug(drug) {
		return "", ErrUnknownDrug
	}
	switch metric {
	case MetricUse, MetricFrequency:
		return drug + "_" + string(metric), nil
	default:
		return "", ErrUnknownMetric
	}
}

// Neighbors returns the drugs before and after drug, wrapping around the list.
func Neighbors(drug string) (prev, next string, err error) {
	idx := DrugIndex(drug)
	if idx < 0 {
		return "", "", ErrUnknownDrug
	}
	n := len(Drugs)
	return Drugs[(idx-1+n)%n], Drugs[(idx+1)%n], nil
}

// Field is one raw text cell. Valid is false when the value is NULL.
type Field struct {
	Text  string
	Valid bool
}

// Number parses the cell as a float. NULL, non-numeric, NaN and infinite
// values report false.
func (f Field) Number() (float64, bool) {
	if !f.Valid {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(f.Text), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ChartValue is Number with the chart fallback: anything unparseable is 0.
func (f Field) ChartValue() float64 {
	v, _ := f.Number()
	return v
}

// String returns the raw text, or an empty string for NULL.
func (f Field) String() string {
	return f.Text
}

// DrugValues holds the two raw cells recorded for one drug.
type DrugValues struct {
	Drug      string
	Use       Field
	Frequency Field
}

// NamedField pairs a column name with its cell.
type NamedField struct {
	Column string
	Value  Field
}

// Record is one imported row, corresponding to one age group.
type Record struct {
	RowID int64
	Age   string
	N     Field
	Drugs []DrugValues // in Drugs order
}

// Fields returns every column of the record in table order.
func (r Record) Fields() []NamedField {
	out := make([]NamedField, 0, len(Columns))
	out = append(out,
		NamedField{Column: "age", Value: Field{Text: r.Age, Valid: true}},
		NamedField{Column: "n", Value: r.N},
	)
	for _, dv := range r.Drugs {
		out = append(out,
			NamedField{Column: dv.Drug + "_use", Value: dv.Use},
			NamedField{Column: dv.Drug + "_frequency", Value: dv.Frequency},
		)
	}
	return out
}

// AgeEntry is one row of the age index.
type AgeEntry struct {
	RowID int64
	Age   string
}

// SeriesPoint is one (age, value) pair of a per-drug series.
type SeriesPoint struct {
	RowID int64
	Age   string
	Value Field
}

// ImportRun describes one completed import.
type ImportRun struct {
	Source     string
	Rows       int64
	ImportedAt time.Time
}

// RawRow is one row as read from the CSV, aligned with Columns. A nil entry is NULL.
type RawRow []*string

// ErrNotFound is returned when no record matches a lookup.
var ErrNotFound = errors.New("not found")
