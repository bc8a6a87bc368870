// Package validation asks the backend whether the current roster can be
// drawn and turns the answer into an immutable Report.
package validation

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kingrea/secretsanta/internal/backend"
	"github.com/kingrea/secretsanta/internal/participant"
	"github.com/kingrea/secretsanta/internal/roster"
)

// Service is the slice of the backend client the validator needs.
type Service interface {
	Validate(ctx context.Context, participants []participant.Participant) (backend.ValidationResponse, error)
}

// Client validates rosters against the remote service.
type Client struct {
	service Service
	logger  *zap.Logger
}

// New returns a validator client. A nil logger is replaced with a no-op.
func New(service Service, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{service: service, logger: logger}
}

// Validate checks participants remotely. Rosters smaller than
// roster.MinParticipants fail locally without a request.
func (c *Client) Validate(ctx context.Context, participants []participant.Participant) (Report, error) {
	if len(participants) < roster.MinParticipants {
		return Report{}, roster.ErrInsufficientParticipants
	}
	resp, err := c.service.Validate(ctx, participants)
	if err != nil {
		c.logger.Warn("validation request failed", zap.Int("participants", len(participants)), zap.Error(err))
		return Report{}, fmt.Errorf("validation: %w", err)
	}
	report := FromResponse(resp)
	c.logger.Info("roster validated",
		zap.Bool("valid", report.Valid()),
		zap.Int("participants", len(participants)),
		zap.Int("errors", len(resp.Errors)),
		zap.Int("warnings", len(resp.Warnings)))
	return report, nil
}
