// Package notify caches which notification channels the backend can deliver
// through and turns them into choices for the participant form.
package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kingrea/secretsanta/internal/backend"
)

// ConsoleOption is offered when the backend reports no channels.
var ConsoleOption = Option{Value: "stdout", Label: "Console (stdout)"}

// Service is the status half of the backend client.
type Service interface {
	Status(ctx context.Context) (backend.StatusResponse, error)
}

// Status is a catalog snapshot. A zero Status is the Unknown sentinel.
type Status struct {
	Known bool
	backend.StatusResponse
	Err error
}

// Unknown is stored when the status endpoint cannot be reached.
func Unknown(err error) Status {
	return Status{Err: err}
}

// Option is one selectable notification target.
type Option struct {
	Value string
	Label string
}

// Catalog holds the most recent status.
type Catalog struct {
	service Service
	logger  *zap.Logger
	group   singleflight.Group

	mu   sync.RWMutex
	last Status
}

// NewCatalog returns a catalog whose current status is Unknown.
func NewCatalog(service Service, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{service: service, logger: logger}
}

// Refresh fetches the status endpoint. It never fails: an unreachable backend
// yields the Unknown sentinel. Concurrent callers share one request.
func (c *Catalog) Refresh(ctx context.Context) Status {
	v, _, _ := c.group.Do("status", func() (any, error) {
		resp, err := c.service.Status(ctx)
		st := Status{Known: true, StatusResponse: resp}
		if err != nil {
			c.logger.Warn("notification status unavailable", zap.Error(err))
			st = Unknown(err)
		}
		c.mu.Lock()
		c.last = st
		c.mu.Unlock()
		return st, nil
	})
	return v.(Status)
}

// Current returns the last refreshed status.
func (c *Catalog) Current() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

// Options expands the status into selectable targets: one per account, or
// one per type when it has no accounts.
func Options(st Status) []Option {
	if len(st.Available) == 0 {
		return []Option{ConsoleOption}
	}
	var out []Option
	for _, n := range st.Available {
		label := typeLabel(n.Type)
		if len(n.Accounts) == 0 {
			out = append(out, Option{Value: n.Type, Label: label})
			continue
		}
		out = append(out, lo.Map(n.Accounts, func(account string, _ int) Option {
			opt := Option{
				Value: n.Type + ":" + account,
				Label: label + " - " + account,
			}
			if account == n.DefaultAccount {
				opt.Label += " (default)"
			}
			return opt
		})...)
	}
	return out
}

// Summary renders the one-line channel indicator shown in the header.
func Summary(st Status) string {
	if !st.Known {
		return "Unknown"
	}
	if len(st.Available) == 0 {
		return "None configured"
	}
	badges := lo.Map(st.Available, func(n backend.NotifierInfo, _ int) string {
		badge := Icon(n.Type) + " " + n.Type
		if k := len(n.Accounts); k > 0 {
			badge += fmt.Sprintf(" (%d account%s)", k, lo.Ternary(k > 1, "s", ""))
		}
		return badge
	})
	line := strings.Join(badges, "  ")
	switch {
	case st.UsingNotifier:
		line += " " + lo.Ternary(st.NotifierHealthy, "(✓ notifier)", "(✗ notifier)")
	case st.SMTPConfigured:
		line += " (✓ SMTP)"
	}
	return line
}

// Icon maps a channel type to its badge.
func Icon(kind string) string {
	switch strings.ToLower(kind) {
	case "email":
		return "📧"
	case "slack":
		return "💬"
	case "ntfy":
		return "🔔"
	case "stdout":
		return "💻"
	default:
		return "📬"
	}
}

func typeLabel(kind string) string {
	if kind == "" {
		return kind
	}
	r, size := utf8.DecodeRuneInString(kind)
	return string(unicode.ToUpper(r)) + kind[size:]
}
