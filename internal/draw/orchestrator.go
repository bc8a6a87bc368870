// Package draw sends the roster to the draw service and hands the resulting
// assignment set to the disclosure gate, concealed.
package draw

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kingrea/secretsanta/internal/backend"
	"github.com/kingrea/secretsanta/internal/disclosure"
	"github.com/kingrea/secretsanta/internal/participant"
	"github.com/kingrea/secretsanta/internal/roster"
)

// DefaultTimeout bounds a draw request when no other deadline applies.
const DefaultTimeout = 60 * time.Second

// ErrDrawInProgress rejects a second draw while one is outstanding.
var ErrDrawInProgress = errors.New("draw: a draw is already in progress")

// Service is the draw half of the backend client.
type Service interface {
	Draw(ctx context.Context, req backend.DrawRequest) (backend.DrawResponse, error)
}

// Request is a prepared draw, produced by Begin.
type Request struct {
	Participants []participant.Participant
	ArchiveEmail string
}

// Outcome is a completed draw. Infeasible outcomes are expected results
// (for example, exclusions that leave someone with no recipient), not errors.
type Outcome struct {
	Assignments  []participant.Assignment
	Infeasible   bool
	Message      string
	ArchiveEmail string
}

// Summary is the operator-facing toast for a successful or infeasible draw.
func (o Outcome) Summary() string {
	if o.Infeasible {
		return "Draw failed: " + o.Message
	}
	if o.ArchiveEmail != "" {
		return fmt.Sprintf("Draw completed! Archive sent to %s", o.ArchiveEmail)
	}
	return "Draw completed successfully!"
}

// Orchestrator runs one draw at a time for a session.
type Orchestrator struct {
	service Service
	gate    *disclosure.Gate
	timeout time.Duration
	logger  *zap.Logger

	mu       sync.Mutex
	inFlight bool
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithLogger overrides the default no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// New wires an orchestrator to the service and the session's gate.
func New(service Service, gate *disclosure.Gate, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		service: service,
		gate:    gate,
		timeout: DefaultTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// InFlight reports whether a draw request is outstanding; the draw control
// stays disabled while it is true.
func (o *Orchestrator) InFlight() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inFlight
}

// Begin checks preconditions, discards any previous assignment set and marks
// a draw as in flight. Every successful Begin must be paired with Finish.
func (o *Orchestrator) Begin(participants []participant.Participant, archiveEmail string) (Request, error) {
	if len(participants) < roster.MinParticipants {
		return Request{}, roster.ErrInsufficientParticipants
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inFlight {
		return Request{}, ErrDrawInProgress
	}
	o.inFlight = true
	o.gate.Clear()
	req := Request{
		Participants: make([]participant.Participant, len(participants)),
		ArchiveEmail: strings.TrimSpace(archiveEmail),
	}
	for i, p := range participants {
		req.Participants[i] = p.Clone()
	}
	return req, nil
}

// Execute performs the request. It touches no orchestrator state, so it can
// run off the UI goroutine.
func (o *Orchestrator) Execute(ctx context.Context, req Request) (Outcome, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	started := time.Now()
	resp, err := o.service.Draw(ctx, backend.DrawRequest{
		Participants: req.Participants,
		ArchiveEmail: req.ArchiveEmail,
	})
	if err != nil {
		o.logger.Warn("draw request failed",
			zap.Int("participants", len(req.Participants)),
			zap.Duration("elapsed", time.Since(started)),
			zap.Error(err))
		return Outcome{}, fmt.Errorf("draw: %w", err)
	}
	if !resp.Success {
		o.logger.Info("draw infeasible", zap.String("reason", resp.Error))
		return Outcome{Infeasible: true, Message: resp.Error}, nil
	}
	if len(resp.Participants) != len(req.Participants) {
		return Outcome{}, fmt.Errorf("draw: service returned %d assignments for %d participants",
			len(resp.Participants), len(req.Participants))
	}
	o.logger.Info("draw completed",
		zap.Int("participants", len(resp.Participants)),
		zap.Bool("archived", req.ArchiveEmail != ""),
		zap.Duration("elapsed", time.Since(started)))
	return Outcome{Assignments: resp.Participants, ArchiveEmail: req.ArchiveEmail}, nil
}

// Finish clears the in-flight flag and, for a feasible outcome, loads the
// assignments into the gate concealed.
func (o *Orchestrator) Finish(outcome Outcome, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.inFlight = false
	if err != nil || outcome.Infeasible {
		return
	}
	o.gate.Load(outcome.Assignments)
}

// Run is Begin, Execute and Finish in one blocking call.
func (o *Orchestrator) Run(ctx context.Context, participants []participant.Participant, archiveEmail string) (Outcome, error) {
	req, err := o.Begin(participants, archiveEmail)
	if err != nil {
		return Outcome{}, err
	}
	outcome, err := o.Execute(ctx, req)
	o.Finish(outcome, err)
	return outcome, err
}

// Reset drops the current assignment set for a fresh draw. It is refused
// while a request is outstanding.
func (o *Orchestrator) Reset() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inFlight {
		return ErrDrawInProgress
	}
	o.gate.Clear()
	return nil
}
