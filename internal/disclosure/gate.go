// Package disclosure keeps draw results out of sight until the operator has
// confirmed twice that they really want to see them.
//
// State machine:
//
//	Hidden ──Load──▶ Concealed ──Acknowledge──▶ PendingReveal ──Confirm(yes)──▶ Revealed
//	                     ▲                            │
//	                     └──────── Confirm(no) ───────┘
//
// Clear (a new draw or an explicit reset) returns to Hidden from any state and
// drops the assignment set; there is no way back from Revealed to Concealed.
package disclosure

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/samber/lo"

	"github.com/kingrea/secretsanta/internal/participant"
)

// State is the gate position.
type State int

const (
	StateHidden State = iota
	StateConcealed
	StatePendingReveal
	StateRevealed
)

func (s State) String() string {
	switch s {
	case StateHidden:
		return "hidden"
	case StateConcealed:
		return "concealed"
	case StatePendingReveal:
		return "pending-reveal"
	case StateRevealed:
		return "revealed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	// ErrNoAssignments is returned when a transition needs a loaded set.
	ErrNoAssignments = errors.New("disclosure: no assignments loaded")
	// ErrConcealed guards recipient data while the gate is not open.
	ErrConcealed = errors.New("disclosure: assignments are concealed")
)

// TransitionError reports a confirmation given in the wrong state.
type TransitionError struct {
	From   State
	Action string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("disclosure: cannot %s while %s", e.Action, e.From)
}

// Gate owns the current assignment set and its disclosure state. It is safe
// to read from a renderer while a draw completes on another goroutine.
type Gate struct {
	mu          sync.RWMutex
	state       State
	assignments []participant.Assignment
}

// NewGate returns a gate in the Hidden state.
func NewGate() *Gate {
	return &Gate{state: StateHidden}
}

// State returns the current gate position.
func (g *Gate) State() State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// HasAssignments reports whether a draw result is loaded.
func (g *Gate) HasAssignments() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state != StateHidden
}

// Load stores a fresh assignment set, concealed.
func (g *Gate) Load(assignments []participant.Assignment) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.assignments = cloneAssignments(assignments)
	g.state = StateConcealed
}

// Clear destroys the assignment set.
func (g *Gate) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.assignments = nil
	g.state = StateHidden
}

// Acknowledge records the first confirmation (the reveal action on the
// concealment notice).
func (g *Gate) Acknowledge() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch g.state {
	case StateConcealed:
		g.state = StatePendingReveal
		return nil
	case StateHidden:
		return ErrNoAssignments
	default:
		return &TransitionError{From: g.state, Action: "acknowledge"}
	}
}

// Confirm answers the final yes/no prompt. Declining keeps the results concealed.
func (g *Gate) Confirm(yes bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == StateHidden {
		return ErrNoAssignments
	}
	if g.state != StatePendingReveal {
		return &TransitionError{From: g.state, Action: "confirm"}
	}
	if yes {
		g.state = StateRevealed
	} else {
		g.state = StateConcealed
	}
	return nil
}

// Reveal drives both confirmations through c. It returns true once the gate
// is open. A decline at either step leaves the gate Concealed.
func (g *Gate) Reveal(ctx context.Context, c Confirmer) (bool, error) {
	switch g.State() {
	case StateHidden:
		return false, ErrNoAssignments
	case StateRevealed:
		return true, nil
	case StateConcealed:
		ok, err := c.Confirm(ctx, PromptWarning)
		if err != nil || !ok {
			return false, err
		}
		if err := g.Acknowledge(); err != nil {
			return false, err
		}
	}
	ok, err := c.Confirm(ctx, PromptFinal)
	if err != nil {
		ok = false
	}
	if cerr := g.Confirm(ok); cerr != nil {
		return false, cerr
	}
	return ok, err
}

// Givers lists the giving side of the set; safe in any state.
func (g *Gate) Givers() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return lo.Map(g.assignments, func(a participant.Assignment, _ int) string { return a.Name })
}

// Assignments returns the full set, recipients included, only when revealed.
func (g *Gate) Assignments() ([]participant.Assignment, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	switch g.state {
	case StateHidden:
		return nil, ErrNoAssignments
	case StateRevealed:
		return cloneAssignments(g.assignments), nil
	default:
		return nil, ErrConcealed
	}
}

// Snapshot returns the full set in any state but Hidden. It backs the results
// file only; renderers go through View and Lines.
func (g *Gate) Snapshot() ([]participant.Assignment, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.state == StateHidden {
		return nil, ErrNoAssignments
	}
	return cloneAssignments(g.assignments), nil
}

func cloneAssignments(in []participant.Assignment) []participant.Assignment {
	if in == nil {
		return nil
	}
	out := make([]participant.Assignment, len(in))
	for i, a := range in {
		a.ContactInfo = append([]string(nil), a.ContactInfo...)
		a.Exclusions = append([]string(nil), a.Exclusions...)
		out[i] = a
	}
	return out
}
