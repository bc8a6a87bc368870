package disclosure

import (
	"context"
	"fmt"

	"github.com/kingrea/secretsanta/internal/participant"
)

// Prompt identifies which confirmation is being asked for.
type Prompt int

const (
	// PromptWarning is the concealment notice with its reveal action.
	PromptWarning Prompt = iota + 1
	// PromptFinal is the blocking yes/no question.
	PromptFinal
)

// Text returns the operator-facing wording for p.
func (p Prompt) Text() string {
	switch p {
	case PromptWarning:
		return "The Secret Santa assignments are TOP SECRET. Peeking spoils the surprise for everyone watching. Reveal them anyway?"
	case PromptFinal:
		return "FINAL WARNING: you are about to reveal ALL assignments. Once seen they can't be unseen. Proceed?"
	default:
		return ""
	}
}

// Confirmer asks the operator a yes/no question. Tests inject scripted answers.
type Confirmer interface {
	Confirm(ctx context.Context, prompt Prompt) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt Prompt) (bool, error)

// Confirm calls f.
func (f ConfirmFunc) Confirm(ctx context.Context, prompt Prompt) (bool, error) {
	return f(ctx, prompt)
}

// ConcealedNotice is shown in place of recipients.
const ConcealedNotice = "🎅 Assignments are hidden. Press reveal and confirm twice to show who gives to whom."

// RevealedBanner heads the revealed list.
const RevealedBanner = "🎁 You've been entrusted with the sacred knowledge. Guard it well!"

// View is a snapshot for rendering. Pairs is nil unless State is Revealed.
type View struct {
	State  State
	Givers []string
	Pairs  []participant.Assignment
}

// View returns what the operator may see right now.
func (g *Gate) View() View {
	g.mu.RLock()
	defer g.mu.RUnlock()
	v := View{State: g.state}
	for _, a := range g.assignments {
		v.Givers = append(v.Givers, a.Name)
	}
	if g.state == StateRevealed {
		v.Pairs = cloneAssignments(g.assignments)
	}
	return v
}

// Lines renders what the operator may see right now: giver names plus the
// concealment notice, or "giver → recipient" rows once revealed.
func (g *Gate) Lines() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	switch g.state {
	case StateHidden:
		return nil
	case StateRevealed:
		lines := make([]string, 0, len(g.assignments)+1)
		lines = append(lines, RevealedBanner)
		for _, a := range g.assignments {
			lines = append(lines, fmt.Sprintf("%s → %s", a.Name, a.Recipient))
		}
		return lines
	default:
		lines := make([]string, 0, len(g.assignments)+1)
		lines = append(lines, ConcealedNotice)
		for _, a := range g.assignments {
			lines = append(lines, fmt.Sprintf("%s → 🎁 ???", a.Name))
		}
		return lines
	}
}
