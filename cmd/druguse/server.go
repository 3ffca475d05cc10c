package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/tinytelemetry/druguse/internal/config"
	"github.com/tinytelemetry/druguse/internal/httpserver"
	"github.com/tinytelemetry/druguse/internal/store"
	"golang.org/x/sync/errgroup"
)

// runServer opens the store and serves the report views until interrupted.
func runServer(cfg config.Config) error {
	cleanupLogger := configureRuntimeLogger(cfg.LogFile)
	defer cleanupLogger()

	st, err := store.Open(store.Config{
		Driver:       cfg.Driver,
		Path:         cfg.DBPath,
		QueryTimeout: cfg.QueryTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Driver, err)
	}
	defer st.Close()

	recordCount, err := st.RecordCount()
	if err != nil {
		log.Printf("druguse: dataset not readable yet (run druguse-import first): %v", err)
	}

	apiServer := httpserver.NewServer(cfg.Addr, st)
	if err := apiServer.Start(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	printStartupBanner(cfg, recordCount)
	log.Printf("druguse: listening on %s", cfg.Addr)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		select {
		case <-sigCh:
			fmt.Println("\nShutting down gracefully...")
			cancel()
		case <-gctx.Done():
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		done := make(chan error, 1)
		go func() { done <- apiServer.Stop() }()

		deadline := time.NewTimer(10 * time.Second)
		defer deadline.Stop()
		select {
		case err := <-done:
			return err
		case <-deadline.C:
			return fmt.Errorf("shutdown timed out")
		}
	})

	if err := g.Wait(); err != nil {
		log.Printf("druguse: shutdown: %v", err)
		return err
	}
	return nil
}

func configureRuntimeLogger(logFile string) func() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	log.SetOutput(os.Stderr)

	if logFile == "" {
		return func() {}
	}
	if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
		log.Printf("druguse: log dir: %v; logging to stderr", err)
		return func() {}
	}
	f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("druguse: log file: %v; logging to stderr", err)
		return func() {}
	}

	log.SetOutput(f)
	return func() {
		log.SetOutput(os.Stderr)
		_ = f.Close()
	}
}

func printStartupBanner(cfg config.Config, records int64) {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	cyan := lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	bold := lipgloss.NewStyle().Bold(true)

	check := green.Render("●")
	dot := dim.Render("●")

	var lines []string
	lines = append(lines, "")
	lines = append(lines, "    "+cyan.Bold(true).Render("druguse")+"  "+dim.Render("v"+version))
	lines = append(lines, "")

	separator := dim.Render("    ─────────────────────────────────")
	lines = append(lines, separator, "")

	lines = append(lines, bold.Render("    Server"), "")
	lines = append(lines, fmt.Sprintf("    %s  HTTP           %s", check, cyan.Render("http://"+cfg.Addr)))
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Storage"), "")
	lines = append(lines, fmt.Sprintf("    %s  %-14s %s", check, cfg.Driver, dim.Render(shortenPath(cfg.DBPath))))
	if records > 0 {
		lines = append(lines, fmt.Sprintf("    %s  Records        %s", check, dim.Render(fmt.Sprint(records))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Records        %s", dot, dim.Render("none imported")))
	}
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Config"), "")
	if cfg.ConfigPath != "" {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", check, dim.Render(shortenPath(cfg.ConfigPath))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", dot, dim.Render("default (no file)")))
	}

	lines = append(lines, "", separator, "")
	lines = append(lines, "    "+dim.Render("Press ")+yellow.Render("Ctrl+C")+dim.Render(" to stop"), "")

	fmt.Println(strings.Join(lines, "\n"))
}

func shortenPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return path
}
