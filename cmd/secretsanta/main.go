// cmd/secretsanta/main.go
//
// This is the entry point for the Secret Santa organizer.
// Run it from the directory that should hold the .secretsanta folder.
//
// Flow:
// 1. Load .env, then .secretsanta/config.yaml with SECRETSANTA_* overrides
// 2. Open the zap log and the session journal under .secretsanta/logs
// 3. Either run the headless `check` command or launch the TUI

package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kingrea/secretsanta/internal/backend"
	"github.com/kingrea/secretsanta/internal/config"
	"github.com/kingrea/secretsanta/internal/logbook"
	"github.com/kingrea/secretsanta/internal/logging"
	"github.com/kingrea/secretsanta/internal/session"
	"github.com/kingrea/secretsanta/internal/tui"
)

func main() {
	// A missing .env is normal; anything else is worth reporting.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error reading .env: %v\n", err)
		os.Exit(1)
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error getting working directory: %v\n", err)
		os.Exit(1)
	}

	if err := config.InitDir(cwd); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing .secretsanta directory: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load(cwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger, closeLog, err := logging.New(cfg.LogPath(), cfg.Settings.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening log: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = closeLog() }()

	journal, err := logbook.New(cfg.JournalPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening journal: %v\n", err)
		os.Exit(1)
	}

	ctrl, err := newController(cfg, logger, journal)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating backend client: %v\n", err)
		os.Exit(1)
	}
	logger.Info("session started",
		zap.String("base_url", cfg.Settings.Server.BaseURL),
		zap.String("export_dir", cfg.ExportDir()))

	if handled, code := handleCheckCommand(context.Background(), ctrl, os.Args[1:], os.Stdout); handled {
		_ = closeLog()
		os.Exit(code)
	}

	p := tea.NewProgram(
		tui.NewApp(ctrl),
		tea.WithAltScreen(),
	)
	if _, err := p.Run(); err != nil {
		logger.Error("tui exited", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}
}

func newController(cfg *config.Config, logger *zap.Logger, journal *logbook.Logbook) (*session.Controller, error) {
	client, err := backend.New(cfg.Settings.Server.BaseURL,
		backend.WithTimeout(cfg.Settings.Server.RequestTimeout),
		backend.WithLogger(logger.Named("backend")),
	)
	if err != nil {
		return nil, err
	}
	return session.New(client,
		session.WithLogger(logger),
		session.WithJournal(journal),
		session.WithDrawTimeout(cfg.Settings.Server.DrawTimeout),
		session.WithExportDir(cfg.ExportDir()),
		session.WithArchiveEmail(cfg.Settings.Draw.ArchiveEmail),
	), nil
}
