package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/tinytelemetry/druguse/internal/backup"
	"github.com/tinytelemetry/druguse/internal/config"
	"github.com/tinytelemetry/druguse/internal/csvimport"
	"github.com/tinytelemetry/druguse/internal/store"
)

// runImport recreates the dataset from cfg.CSVPath, optionally snapshots the
// database, and reports to out.
func runImport(ctx context.Context, cfg config.Config, out io.Writer) error {
	st, err := store.Open(store.Config{
		Driver:       cfg.Driver,
		Path:         cfg.DBPath,
		QueryTimeout: cfg.QueryTimeout,
	})
	if err != nil {
		return withCode(exitImport, fmt.Errorf("open %s store: %w", cfg.Driver, err))
	}
	closed := false
	defer func() {
		if !closed {
			_ = st.Close()
		}
	}()

	res, err := csvimport.New(st, csvimport.Config{BatchSize: cfg.BatchSize}).ImportFile(cfg.CSVPath)
	if err != nil {
		log.Printf("csvimport: %s: %v (%d rows written)", cfg.CSVPath, err, res.Rows)
		return withCode(exitImport, fmt.Errorf("import %s: %w", cfg.CSVPath, err))
	}

	var snapshot string
	pub, err := backup.NewPublisher(st, backup.Config{
		LocalDir:       cfg.SnapshotDir,
		KeepLast:       cfg.KeepLast,
		BucketURL:      cfg.SnapshotBucket,
		S3Endpoint:     cfg.S3Endpoint,
		S3Region:       cfg.S3Region,
		S3AccessKey:    cfg.S3AccessKey,
		S3SecretKey:    cfg.S3SecretKey,
		S3SessionToken: cfg.S3SessionToken,
		S3UseSSL:       cfg.S3UseSSL,
	})
	if err != nil {
		return withCode(exitBackup, err)
	}
	if pub != nil {
		snapshot, err = pub.Publish(ctx)
		if err != nil {
			return withCode(exitBackup, err)
		}
	}

	closed = true
	if err := st.Close(); err != nil {
		return withCode(exitImport, fmt.Errorf("close store: %w", err))
	}

	printSummary(out, cfg, res, snapshot)
	fmt.Fprintf(out, "Database created successfully at %s\n", cfg.DBPath)
	return nil
}

func printSummary(out io.Writer, cfg config.Config, res csvimport.Result, snapshot string) {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	check := green.Render("●")

	lines := []string{
		fmt.Sprintf("  %s  Source      %s", check, dim.Render(res.Source)),
		fmt.Sprintf("  %s  Rows        %s", check, dim.Render(fmt.Sprint(res.Rows))),
		fmt.Sprintf("  %s  Storage     %s", check, dim.Render(cfg.Driver)),
	}
	if snapshot != "" {
		lines = append(lines, fmt.Sprintf("  %s  Snapshot    %s", check, dim.Render(snapshot)))
	}
	fmt.Fprintln(out, strings.Join(lines, "\n"))
}

func configureLogger(logFile string) func() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	log.SetOutput(os.Stderr)
	if logFile == "" {
		return func() {}
	}
	if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
		log.Printf("druguse-import: log dir: %v; logging to stderr", err)
		return func() {}
	}
	f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("druguse-import: log file: %v; logging to stderr", err)
		return func() {}
	}
	log.SetOutput(f)
	return func() {
		log.SetOutput(os.Stderr)
		_ = f.Close()
	}
}
