// Package importer hands roster files to the backend's import service and
// replaces the session roster with whatever it parsed.
package importer

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/kingrea/secretsanta/internal/backend"
	"github.com/kingrea/secretsanta/internal/participant"
	"github.com/kingrea/secretsanta/internal/validation"
)

// SupportedExtensions are the file types the import service parses.
var SupportedExtensions = []string{".json", ".yaml", ".yml", ".toml", ".csv", ".tsv"}

// UnsupportedFormatError rejects a file before anything is sent.
type UnsupportedFormatError struct {
	FileName  string
	Extension string
}

func (e *UnsupportedFormatError) Error() string {
	ext := e.Extension
	if ext == "" {
		ext = "(none)"
	}
	return fmt.Sprintf("importer: unsupported file format %s for %q; use JSON, YAML, TOML, CSV or TSV", ext, e.FileName)
}

// Service is the upload half of the backend client.
type Service interface {
	Upload(ctx context.Context, fileName string, data []byte) (backend.UploadResponse, error)
}

// Store is the roster operation an import needs.
type Store interface {
	ReplaceFromImport(participants []participant.Participant) error
}

// Result summarizes a successful import.
type Result struct {
	Count  int
	Format string
	// Validation is the report embedded in the upload response, if any.
	Validation *validation.Report
}

// Adapter submits files and applies the result to the roster.
type Adapter struct {
	service Service
	store   Store
	logger  *zap.Logger
}

// New wires an adapter to its service and roster.
func New(service Service, store Store, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{service: service, store: store, logger: logger}
}

// CheckExtension validates fileName without contacting the service.
func CheckExtension(fileName string) error {
	ext := strings.ToLower(filepath.Ext(fileName))
	for _, supported := range SupportedExtensions {
		if ext == supported {
			return nil
		}
	}
	return &UnsupportedFormatError{FileName: filepath.Base(fileName), Extension: ext}
}

// Submit uploads data and, on success, replaces the roster. Service and
// transport errors come back unwrapped so their text reaches the operator as-is.
func (a *Adapter) Submit(ctx context.Context, data []byte, fileName string) (Result, error) {
	if err := CheckExtension(fileName); err != nil {
		return Result{}, err
	}
	name := filepath.Base(fileName)
	resp, err := a.service.Upload(ctx, name, data)
	if err != nil {
		a.logger.Warn("upload failed", zap.String("file", name), zap.Error(err))
		return Result{}, err
	}
	if err := a.store.ReplaceFromImport(resp.Participants); err != nil {
		a.logger.Warn("imported roster rejected", zap.String("file", name), zap.Error(err))
		return Result{}, err
	}
	result := Result{Count: len(resp.Participants), Format: resp.Format}
	if resp.Validation != nil {
		report := validation.FromResponse(*resp.Validation).Imported()
		result.Validation = &report
	}
	a.logger.Info("roster imported",
		zap.String("file", name),
		zap.String("format", resp.Format),
		zap.Int("participants", result.Count))
	return result, nil
}

// Summary is the toast text for a successful import.
func (r Result) Summary() string {
	return fmt.Sprintf("Loaded %d participants from %s", r.Count, strings.ToUpper(r.Format))
}
