// Package export writes files the operator takes away from a session: the
// revealed results, blank templates and the roster in a chosen format.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/kingrea/secretsanta/internal/backend"
	"github.com/kingrea/secretsanta/internal/disclosure"
	"github.com/kingrea/secretsanta/internal/participant"
)

// ResultsFile is the name of the results export.
const ResultsFile = "secretsanta-results.json"

// Formats lists the roster formats the service can render.
var Formats = []string{"csv", "tsv", "json", "yaml", "toml"}

// FormatError reports a format outside Formats.
type FormatError struct {
	Format string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("export: unsupported format %q (expected one of %s)", e.Format, strings.Join(Formats, ", "))
}

// Service is the file-producing half of the backend client.
type Service interface {
	Template(ctx context.Context, format string) (backend.File, error)
	Download(ctx context.Context, participants []participant.Participant, format string) (backend.File, error)
}

// Exporter writes into a single directory.
type Exporter struct {
	dir     string
	gate    *disclosure.Gate
	service Service
	logger  *zap.Logger
}

// New returns an exporter rooted at dir.
func New(dir string, gate *disclosure.Gate, service Service, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{dir: dir, gate: gate, service: service, logger: logger}
}

// Dir is the export directory.
func (e *Exporter) Dir() string {
	return e.dir
}

// Results writes the assignment set as indented JSON. A concealed set is
// written too; only an empty gate is refused.
func (e *Exporter) Results() (string, error) {
	assignments, err := e.gate.Snapshot()
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(assignments, "", "  ")
	if err != nil {
		return "", fmt.Errorf("export: encode results: %w", err)
	}
	path, err := e.write(ResultsFile, append(data, '\n'))
	if err != nil {
		return "", err
	}
	e.logger.Info("results exported", zap.String("path", path), zap.Int("assignments", len(assignments)))
	return path, nil
}

// Template downloads a starter file for format.
func (e *Exporter) Template(ctx context.Context, format string) (string, error) {
	format, err := checkFormat(format)
	if err != nil {
		return "", err
	}
	file, err := e.service.Template(ctx, format)
	if err != nil {
		return "", err
	}
	path, err := e.write(file.Name, file.Data)
	if err != nil {
		return "", err
	}
	e.logger.Info("template saved", zap.String("path", path), zap.String("format", format))
	return path, nil
}

// Roster has the service render participants in format and saves the file.
func (e *Exporter) Roster(ctx context.Context, participants []participant.Participant, format string) (string, error) {
	format, err := checkFormat(format)
	if err != nil {
		return "", err
	}
	file, err := e.service.Download(ctx, participants, format)
	if err != nil {
		return "", err
	}
	path, err := e.write(file.Name, file.Data)
	if err != nil {
		return "", err
	}
	e.logger.Info("roster exported", zap.String("path", path), zap.Int("participants", len(participants)))
	return path, nil
}

func (e *Exporter) write(name string, data []byte) (string, error) {
	name = filepath.Base(filepath.Clean("/" + name))
	if name == "/" || name == "." {
		return "", fmt.Errorf("export: invalid file name")
	}
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("export: create %s: %w", e.dir, err)
	}
	path := filepath.Join(e.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("export: write %s: %w", path, err)
	}
	return path, nil
}

func checkFormat(format string) (string, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if !lo.Contains(Formats, format) {
		return "", &FormatError{Format: format}
	}
	return format, nil
}
