// Package session owns the state of one organizer session: the roster, the
// current assignment set behind its disclosure gate, and the notification
// catalog. Front ends drive it; it never renders anything itself.
package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kingrea/secretsanta/internal/disclosure"
	"github.com/kingrea/secretsanta/internal/draw"
	"github.com/kingrea/secretsanta/internal/export"
	"github.com/kingrea/secretsanta/internal/importer"
	"github.com/kingrea/secretsanta/internal/logbook"
	"github.com/kingrea/secretsanta/internal/notify"
	"github.com/kingrea/secretsanta/internal/participant"
	"github.com/kingrea/secretsanta/internal/roster"
	"github.com/kingrea/secretsanta/internal/validation"
)

// Backend is everything the session asks of the remote service.
// *backend.Client satisfies it.
type Backend interface {
	validation.Service
	importer.Service
	draw.Service
	notify.Service
	export.Service
}

// Controller composes the session components. Its methods are safe to call
// from a UI goroutine and from background commands at the same time.
type Controller struct {
	logger  *zap.Logger
	journal *logbook.Logbook

	mu     sync.Mutex
	roster *roster.Roster

	gate      *disclosure.Gate
	draws     *draw.Orchestrator
	importer  *importer.Adapter
	validator *validation.Client
	catalog   *notify.Catalog
	exporter  *export.Exporter

	archiveEmail string
}

type options struct {
	logger       *zap.Logger
	journal      *logbook.Logbook
	drawTimeout  time.Duration
	exportDir    string
	archiveEmail string
}

// Option customizes a Controller.
type Option func(*options)

// WithLogger sets the diagnostics logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithJournal sets the operator journal.
func WithJournal(j *logbook.Logbook) Option {
	return func(o *options) {
		if j != nil {
			o.journal = j
		}
	}
}

// WithDrawTimeout bounds each draw request.
func WithDrawTimeout(d time.Duration) Option {
	return func(o *options) {
		o.drawTimeout = d
	}
}

// WithExportDir sets where exports are written.
func WithExportDir(dir string) Option {
	return func(o *options) {
		if dir != "" {
			o.exportDir = dir
		}
	}
}

// WithArchiveEmail pre-fills the draw archive address.
func WithArchiveEmail(email string) Option {
	return func(o *options) {
		o.archiveEmail = email
	}
}

// New builds a controller with an empty roster and a hidden gate.
func New(service Backend, opts ...Option) *Controller {
	o := options{
		logger:    zap.NewNop(),
		journal:   logbook.InMemory(),
		exportDir: ".",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	c := &Controller{
		logger:       o.logger,
		journal:      o.journal,
		roster:       roster.New(),
		gate:         disclosure.NewGate(),
		archiveEmail: o.archiveEmail,
	}
	c.draws = draw.New(service, c.gate, draw.WithTimeout(o.drawTimeout), draw.WithLogger(o.logger.Named("draw")))
	c.importer = importer.New(service, lockedStore{c}, o.logger.Named("import"))
	c.validator = validation.New(service, o.logger.Named("validate"))
	c.catalog = notify.NewCatalog(service, o.logger.Named("notify"))
	c.exporter = export.New(o.exportDir, c.gate, service, o.logger.Named("export"))
	return c
}

// Journal returns the operator journal.
func (c *Controller) Journal() *logbook.Logbook {
	return c.journal
}

// ArchiveEmail is the configured default archive address, used to pre-fill
// the draw form.
func (c *Controller) ArchiveEmail() string {
	return c.archiveEmail
}

// AddParticipant builds a participant from raw form fields and appends it.
func (c *Controller) AddParticipant(name, notificationType, contactInfo, exclusions string) (int, error) {
	return c.Add(participant.New(name, notificationType, contactInfo, exclusions))
}

// Add appends p and returns the new roster size.
func (c *Controller) Add(p participant.Participant) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, err := c.roster.Add(p)
	if err != nil {
		return n, err
	}
	c.journal.Info("Added %s (%d participants)", p.Name, n)
	return n, nil
}

// Remove deletes the participant at index.
func (c *Controller) Remove(index int) (participant.Participant, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, err := c.roster.Remove(index)
	if err != nil {
		return p, err
	}
	c.journal.Info("Removed %s", p.Name)
	return p, nil
}

// NeedsClearConfirmation reports whether clearing would discard anyone.
func (c *Controller) NeedsClearConfirmation() bool {
	return c.Count() > 0
}

// Clear empties the roster. It reports false when it was already empty.
func (c *Controller) Clear() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.roster.Clear() {
		return false
	}
	c.journal.Info("Cleared all participants")
	return true
}

// Participants returns a copy of the roster.
func (c *Controller) Participants() []participant.Participant {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roster.List()
}

// Count returns the roster size.
func (c *Controller) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roster.Count()
}

// CanDraw reports whether the roster is big enough and no draw is running.
func (c *Controller) CanDraw() bool {
	c.mu.Lock()
	ok := c.roster.CanDraw()
	c.mu.Unlock()
	return ok && !c.draws.InFlight()
}

// Import submits file contents to the import service and replaces the roster.
func (c *Controller) Import(ctx context.Context, data []byte, fileName string) (importer.Result, error) {
	result, err := c.importer.Submit(ctx, data, fileName)
	if err != nil {
		c.journal.Error("Import of %s failed: %v", filepath.Base(fileName), err)
		return result, err
	}
	c.journal.Info("%s", result.Summary())
	if result.Validation != nil {
		c.journalReport(*result.Validation)
	}
	return result, nil
}

// ImportFile reads path and imports it. Unsupported extensions are rejected
// before the file is read.
func (c *Controller) ImportFile(ctx context.Context, path string) (importer.Result, error) {
	if err := importer.CheckExtension(path); err != nil {
		c.journal.Error("%v", err)
		return importer.Result{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		err = fmt.Errorf("session: read %s: %w", path, err)
		c.journal.Error("%v", err)
		return importer.Result{}, err
	}
	return c.Import(ctx, data, path)
}

// Validate asks the service whether the current roster can be drawn.
func (c *Controller) Validate(ctx context.Context) (validation.Report, error) {
	report, err := c.validator.Validate(ctx, c.Participants())
	if err != nil {
		c.journal.Error("Validation failed: %v", err)
		return report, err
	}
	c.journalReport(report)
	return report, nil
}

func (c *Controller) journalReport(r validation.Report) {
	if r.Valid() {
		c.journal.Info("%s: %d participants, min compatibility %d", r.Title(), r.TotalParticipants(), r.MinCompatibility())
		return
	}
	c.journal.Warn("%s: %d error(s)", r.Title(), len(r.Errors()))
}

// Drawing reports whether a draw request is outstanding.
func (c *Controller) Drawing() bool {
	return c.draws.InFlight()
}

// BeginDraw snapshots the roster, drops any previous assignment set and
// claims the draw slot.
func (c *Controller) BeginDraw(archiveEmail string) (draw.Request, error) {
	req, err := c.draws.Begin(c.Participants(), archiveEmail)
	if err != nil {
		c.journal.Warn("Draw not started: %v", err)
		return req, err
	}
	c.journal.Info("Drawing names for %d participants", len(req.Participants))
	return req, nil
}

// ExecuteDraw sends a prepared request. It may run on any goroutine.
func (c *Controller) ExecuteDraw(ctx context.Context, req draw.Request) (draw.Outcome, error) {
	return c.draws.Execute(ctx, req)
}

// FinishDraw releases the draw slot and stores a feasible result concealed.
func (c *Controller) FinishDraw(outcome draw.Outcome, err error) {
	c.draws.Finish(outcome, err)
	switch {
	case err != nil:
		c.journal.Error("Draw failed: %v", err)
	case outcome.Infeasible:
		c.journal.Warn("%s", outcome.Summary())
	default:
		c.journal.Info("%s (results hidden)", outcome.Summary())
	}
}

// Draw runs BeginDraw, ExecuteDraw and FinishDraw in one blocking call.
func (c *Controller) Draw(ctx context.Context, archiveEmail string) (draw.Outcome, error) {
	req, err := c.BeginDraw(archiveEmail)
	if err != nil {
		return draw.Outcome{}, err
	}
	outcome, err := c.ExecuteDraw(ctx, req)
	c.FinishDraw(outcome, err)
	return outcome, err
}

// NewDraw destroys the current assignment set.
func (c *Controller) NewDraw() error {
	if err := c.draws.Reset(); err != nil {
		return err
	}
	c.journal.Info("Ready for a new draw")
	return nil
}

// DisclosureState is the gate position of the current assignment set.
func (c *Controller) DisclosureState() disclosure.State {
	return c.gate.State()
}

// ResultLines is what may be shown for the current assignment set.
func (c *Controller) ResultLines() []string {
	return c.gate.Lines()
}

// Reveal runs both confirmations through confirmer.
func (c *Controller) Reveal(ctx context.Context, confirmer disclosure.Confirmer) (bool, error) {
	ok, err := c.gate.Reveal(ctx, confirmer)
	if ok {
		c.journal.Warn("Assignments revealed")
	}
	return ok, err
}

// AcknowledgeReveal records the first confirmation.
func (c *Controller) AcknowledgeReveal() error {
	return c.gate.Acknowledge()
}

// ConfirmReveal answers the final prompt.
func (c *Controller) ConfirmReveal(yes bool) error {
	if err := c.gate.Confirm(yes); err != nil {
		return err
	}
	if yes {
		c.journal.Warn("Assignments revealed")
	}
	return nil
}

// RefreshNotifications reloads the channel catalog. It never fails.
func (c *Controller) RefreshNotifications(ctx context.Context) notify.Status {
	st := c.catalog.Refresh(ctx)
	if !st.Known {
		c.journal.Warn("Notification status unavailable")
	}
	return st
}

// Notifications returns the last refreshed catalog status.
func (c *Controller) Notifications() notify.Status {
	return c.catalog.Current()
}

// NotificationOptions lists selectable notification targets.
func (c *Controller) NotificationOptions() []notify.Option {
	return notify.Options(c.catalog.Current())
}

// ExportResults writes the current assignment set, concealed or revealed.
func (c *Controller) ExportResults() (string, error) {
	path, err := c.exporter.Results()
	if err != nil {
		c.journal.Warn("Results not exported: %v", err)
		return "", err
	}
	c.journal.Info("Results exported to %s", path)
	return path, nil
}

// DownloadTemplate saves a starter file for format.
func (c *Controller) DownloadTemplate(ctx context.Context, format string) (string, error) {
	path, err := c.exporter.Template(ctx, format)
	if err != nil {
		c.journal.Error("Template download failed: %v", err)
		return "", err
	}
	c.journal.Info("Template saved to %s", path)
	return path, nil
}

// ExportRoster saves the roster rendered by the service in format.
func (c *Controller) ExportRoster(ctx context.Context, format string) (string, error) {
	path, err := c.exporter.Roster(ctx, c.Participants(), format)
	if err != nil {
		c.journal.Error("Roster export failed: %v", err)
		return "", err
	}
	c.journal.Info("Roster exported to %s", path)
	return path, nil
}

// lockedStore lets the import adapter replace the roster under the
// controller's lock.
type lockedStore struct {
	c *Controller
}

func (s lockedStore) ReplaceFromImport(participants []participant.Participant) error {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	return s.c.roster.ReplaceFromImport(participants)
}
