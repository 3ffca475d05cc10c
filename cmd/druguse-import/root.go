package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tinytelemetry/druguse/internal/config"
	"github.com/tinytelemetry/druguse/internal/model"
)

const (
	exitOK     = 0
	exitConfig = 2
	exitImport = 3
	exitBackup = 4
)

type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string { return e.err.Error() }
func (e *cliError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &cliError{code: code, err: err}
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ce *cliError
	if errors.As(err, &ce) {
		return ce.code
	}
	return 1
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "druguse-import",
		Short:         "Load the drug-use-by-age CSV into the report database",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath, cmd.Flags())
			if err != nil {
				return withCode(exitConfig, err)
			}
			cleanup := configureLogger(cfg.LogFile)
			defer cleanup()
			return runImport(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVar(&configPath, "config", "", "config file (default is ./druguse.yml when present)")
	f.String("csv", model.DefaultCSVPath, "CSV file to import")
	f.String("db-path", model.DefaultDBPath, "database file to (re)create")
	f.String("driver", model.DefaultDriver, "storage driver: duckdb or sqlite")
	f.Int("batch-size", model.DefaultBatchSize, "rows per insert transaction")
	f.String("log-file", "", "write logs to this file instead of stderr")
	f.String("snapshot-dir", "", "copy the database here after a successful import")
	f.String("snapshot-bucket", "", "upload snapshots to s3://bucket/prefix")
	f.Int("keep-last", 10, "local snapshots to keep")
	f.String("s3-endpoint", "", "S3-compatible endpoint")
	f.String("s3-region", "", "S3 region")
	f.String("s3-access-key", "", "S3 access key")
	f.String("s3-secret-key", "", "S3 secret key")
	f.String("s3-session-token", "", "S3 session token")
	f.Bool("s3-use-ssl", true, "use https for a bare S3 endpoint")

	return cmd
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		code := exitCode(err)
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(code)
	}
}
