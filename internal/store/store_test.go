package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/tinytelemetry/druguse/internal/model"
)

var drivers = []string{DriverDuckDB, DriverSQLite}

func newTestStore(t *testing.T, driver string) *Store {
	t.Helper()
	store, err := Open(Config{Driver: driver})
	if err != nil {
		t.Fatalf("Open(%s) failed: %v", driver, err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func str(s string) *string { return &s }

// testRow builds a full row where every drug's use is use and frequency is freq.
func testRow(age, use, freq string) RawRow {
	row := make(RawRow, len(model.Columns))
	row[0] = str(age)
	row[1] = str("100")
	for i := range model.Drugs {
		row[2+2*i] = str(use)
		row[3+2*i] = str(freq)
	}
	return row
}

func seed(t *testing.T, store *Store, rows ...RawRow) {
	t.Helper()
	if err := store.ResetDataset(); err != nil {
		t.Fatalf("ResetDataset: %v", err)
	}
	if err := store.InsertRecordBatch(rows); err != nil {
		t.Fatalf("InsertRecordBatch: %v", err)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	if !errors.Is(err, ErrUnknownDriver) {
		t.Fatalf("Open(oracle) err = %v, want ErrUnknownDriver", err)
	}
}

func TestAgeIndexPreservesInsertionOrder(t *testing.T) {
	for _, driver := range drivers {
		t.Run(driver, func(t *testing.T) {
			store := newTestStore(t, driver)
			seed(t, store,
				testRow("12", "3.9", "3"),
				testRow("65+", "49.3", "52"),
				testRow("13", "8.5", "6"),
			)
			// A second batch lands after the first.
			if err := store.InsertRecordBatch([]RawRow{testRow("22-23", "84.2", "52")}); err != nil {
				t.Fatalf("InsertRecordBatch: %v", err)
			}

			ages, err := store.AgeIndex()
			if err != nil {
				t.Fatalf("AgeIndex: %v", err)
			}
			want := []string{"12", "65+", "13", "22-23"}
			if len(ages) != len(want) {
				t.Fatalf("AgeIndex returned %d rows, want %d", len(ages), len(want))
			}
			for i, w := range want {
				if ages[i].Age != w {
					t.Errorf("ages[%d] = %q, want %q", i, ages[i].Age, w)
				}
				if i > 0 && ages[i].RowID <= ages[i-1].RowID {
					t.Errorf("rowid not increasing at %d: %d <= %d", i, ages[i].RowID, ages[i-1].RowID)
				}
			}
		})
	}
}

func TestRecordByAgeVerbatimAndNull(t *testing.T) {
	for _, driver := range drivers {
		t.Run(driver, func(t *testing.T) {
			store := newTestStore(t, driver)
			row := testRow("65+", "49.3", "-")
			row[1] = str("2448")
			row[3] = nil // alcohol_frequency missing
			seed(t, store, testRow("12", "3.9", "3"), row)

			rec, err := store.RecordByAge("65+")
			if err != nil {
				t.Fatalf("RecordByAge: %v", err)
			}
			if rec.Age != "65+" {
				t.Errorf("Age = %q, want 65+", rec.Age)
			}
			if rec.N != (Field{Text: "2448", Valid: true}) {
				t.Errorf("N = %+v, want 2448", rec.N)
			}
			if len(rec.Drugs) != len(model.Drugs) {
				t.Fatalf("len(Drugs) = %d, want %d", len(rec.Drugs), len(model.Drugs))
			}
			alcohol := rec.Drugs[0]
			if alcohol.Drug != "alcohol" || alcohol.Use.Text != "49.3" {
				t.Errorf("alcohol = %+v", alcohol)
			}
			if alcohol.Frequency.Valid {
				t.Errorf("alcohol frequency = %+v, want NULL", alcohol.Frequency)
			}
			if rec.Drugs[1].Frequency != (Field{Text: "-", Valid: true}) {
				t.Errorf("marijuana frequency = %+v, want verbatim dash", rec.Drugs[1].Frequency)
			}
		})
	}
}

func TestRecordByAgeNotFound(t *testing.T) {
	store := newTestStore(t, DriverDuckDB)
	seed(t, store, testRow("12", "3.9", "3"))

	if _, err := store.RecordByAge("999"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("RecordByAge(999) err = %v, want ErrNotFound", err)
	}
}

func TestRecordByAgeDuplicateReturnsFirst(t *testing.T) {
	store := newTestStore(t, DriverDuckDB)
	seed(t, store,
		testRow("12", "1", "1"),
		testRow("12", "2", "2"),
	)

	rec, err := store.RecordByAge("12")
	if err != nil {
		t.Fatalf("RecordByAge: %v", err)
	}
	ages, err := store.AgeIndex()
	if err != nil {
		t.Fatalf("AgeIndex: %v", err)
	}
	if rec.RowID != ages[0].RowID || rec.Drugs[0].Use.Text != "1" {
		t.Errorf("RecordByAge returned rowid %d use %q, want first row", rec.RowID, rec.Drugs[0].Use.Text)
	}
}

func TestDrugSeries(t *testing.T) {
	for _, driver := range drivers {
		t.Run(driver, func(t *testing.T) {
			store := newTestStore(t, driver)
			seed(t, store,
				testRow("12", "3.9", "3"),
				testRow("13", "-", "6"),
			)

			for _, drug := range model.Drugs {
				use, err := store.DrugSeries(drug, model.MetricUse)
				if err != nil {
					t.Fatalf("DrugSeries(%s, use): %v", drug, err)
				}
				freq, err := store.DrugSeries(drug, model.MetricFrequency)
				if err != nil {
					t.Fatalf("DrugSeries(%s, frequency): %v", drug, err)
				}
				if len(use) != 2 || len(freq) != 2 {
					t.Fatalf("%s: got %d use / %d frequency points, want 2", drug, len(use), len(freq))
				}
				if use[0].Age != "12" || use[1].Age != "13" {
					t.Errorf("%s: ages = %q, %q", drug, use[0].Age, use[1].Age)
				}
				if use[1].Value.Text != "-" || freq[1].Value.Text != "6" {
					t.Errorf("%s: values = %q, %q", drug, use[1].Value.Text, freq[1].Value.Text)
				}
			}
		})
	}
}

func TestRecordsInInsertionOrder(t *testing.T) {
	for _, driver := range drivers {
		t.Run(driver, func(t *testing.T) {
			store := newTestStore(t, driver)
			short := testRow("18-19", "58.7", "48")
			short[27] = nil // sedative_frequency
			seed(t, store, testRow("12", "3.9", "3"), short, testRow("65+", "49.3", "52"))

			recs, err := store.Records()
			if err != nil {
				t.Fatalf("Records: %v", err)
			}
			if len(recs) != 3 {
				t.Fatalf("len(Records) = %d, want 3", len(recs))
			}
			for i, want := range []string{"12", "18-19", "65+"} {
				if recs[i].Age != want {
					t.Errorf("Records[%d].Age = %q, want %q", i, recs[i].Age, want)
				}
			}
			if recs[0].RowID >= recs[1].RowID || recs[1].RowID >= recs[2].RowID {
				t.Errorf("rowids not increasing: %d %d %d", recs[0].RowID, recs[1].RowID, recs[2].RowID)
			}
			last := recs[1].Drugs[len(model.Drugs)-1]
			if last.Drug != "sedative" || last.Frequency.Valid || last.Use.Text != "58.7" {
				t.Errorf("sedative = %+v", last)
			}
		})
	}
}

func TestDrugSeriesRejectsUnknownDrug(t *testing.T) {
	store := newTestStore(t, DriverDuckDB)
	seed(t, store, testRow("12", "3.9", "3"))

	if _, err := store.DrugSeries("age FROM drug_use --", model.MetricUse); !errors.Is(err, model.ErrUnknownDrug) {
		t.Fatalf("DrugSeries(injection) err = %v, want ErrUnknownDrug", err)
	}
}

func TestResetDatasetDropsPreviousRows(t *testing.T) {
	store := newTestStore(t, DriverSQLite)
	seed(t, store, testRow("12", "1", "1"), testRow("13", "1", "1"))
	seed(t, store, testRow("14", "1", "1"))

	count, err := store.RecordCount()
	if err != nil {
		t.Fatalf("RecordCount: %v", err)
	}
	if count != 1 {
		t.Errorf("RecordCount = %d, want 1", count)
	}
}

func TestInsertRecordBatchRejectsShortRow(t *testing.T) {
	store := newTestStore(t, DriverDuckDB)
	if err := store.ResetDataset(); err != nil {
		t.Fatalf("ResetDataset: %v", err)
	}
	if err := store.InsertRecordBatch([]RawRow{{str("12")}}); err == nil {
		t.Fatal("expected error for short row")
	}
}

func TestLastImport(t *testing.T) {
	for _, driver := range drivers {
		t.Run(driver, func(t *testing.T) {
			store := newTestStore(t, driver)

			if _, ok, err := store.LastImport(); err != nil || ok {
				t.Fatalf("LastImport before any run = ok:%v err:%v", ok, err)
			}

			first := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
			if err := store.RecordImport(ImportRun{Source: "a.csv", Rows: 17, ImportedAt: first}); err != nil {
				t.Fatalf("RecordImport: %v", err)
			}
			if err := store.RecordImport(ImportRun{Source: "b.csv", Rows: 3, ImportedAt: first.Add(time.Hour)}); err != nil {
				t.Fatalf("RecordImport: %v", err)
			}

			run, ok, err := store.LastImport()
			if err != nil || !ok {
				t.Fatalf("LastImport = ok:%v err:%v", ok, err)
			}
			if run.Source != "b.csv" || run.Rows != 3 || !run.ImportedAt.Equal(first.Add(time.Hour)) {
				t.Errorf("LastImport = %+v", run)
			}
		})
	}
}

func TestFileStorePersistsAcrossOpen(t *testing.T) {
	for _, driver := range drivers {
		t.Run(driver, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "druguse."+driver)
			store, err := Open(Config{Driver: driver, Path: path})
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			seed(t, store, testRow("12", "3.9", "3"))
			if err := store.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}

			reopened, err := Open(Config{Driver: driver, Path: path})
			if err != nil {
				t.Fatalf("reopen: %v", err)
			}
			defer reopened.Close()
			count, err := reopened.RecordCount()
			if err != nil {
				t.Fatalf("RecordCount: %v", err)
			}
			if count != 1 {
				t.Errorf("RecordCount after reopen = %d, want 1", count)
			}
		})
	}
}
