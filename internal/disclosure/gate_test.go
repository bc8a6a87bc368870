package disclosure

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/secretsanta/internal/participant"
)

func pairs() []participant.Assignment {
	return []participant.Assignment{
		{Name: "Alice", Recipient: "Bob"},
		{Name: "Bob", Recipient: "Alice"},
	}
}

// scripted answers prompts in order and records what was asked.
type scripted struct {
	answers []bool
	asked   []Prompt
	err     error
}

func (s *scripted) Confirm(_ context.Context, p Prompt) (bool, error) {
	s.asked = append(s.asked, p)
	if s.err != nil {
		return false, s.err
	}
	if len(s.answers) == 0 {
		return false, nil
	}
	answer := s.answers[0]
	s.answers = s.answers[1:]
	return answer, nil
}

func assertNoRecipients(t *testing.T, g *Gate) {
	t.Helper()
	rendered := strings.Join(g.Lines(), "\n")
	assert.NotContains(t, rendered, "→ Bob")
	assert.NotContains(t, rendered, "→ Alice")
	_, err := g.Assignments()
	assert.Error(t, err)
}

func TestLoadConcealsAndHidesRecipients(t *testing.T) {
	g := NewGate()
	assert.Equal(t, StateHidden, g.State())
	assert.Nil(t, g.Lines())

	g.Load(pairs())
	assert.Equal(t, StateConcealed, g.State())
	assert.Equal(t, []string{"Alice", "Bob"}, g.Givers())
	assertNoRecipients(t, g)
	_, err := g.Assignments()
	require.ErrorIs(t, err, ErrConcealed)
}

func TestRevealRequiresBothConfirmations(t *testing.T) {
	g := NewGate()
	g.Load(pairs())
	c := &scripted{answers: []bool{true, true}}

	ok, err := g.Reveal(context.Background(), c)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []Prompt{PromptWarning, PromptFinal}, c.asked)
	assert.Equal(t, StateRevealed, g.State())

	lines := g.Lines()
	assert.Contains(t, lines, "Alice → Bob")
	assert.Contains(t, lines, "Bob → Alice")
	got, err := g.Assignments()
	require.NoError(t, err)
	assert.Equal(t, pairs(), got)
}

func TestDecliningFinalConfirmationStaysConcealed(t *testing.T) {
	g := NewGate()
	g.Load(pairs())
	c := &scripted{answers: []bool{true, false}}

	ok, err := g.Reveal(context.Background(), c)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, StateConcealed, g.State())
	assertNoRecipients(t, g)
}

func TestDecliningWarningSkipsFinalPrompt(t *testing.T) {
	g := NewGate()
	g.Load(pairs())
	c := &scripted{answers: []bool{false}}

	ok, err := g.Reveal(context.Background(), c)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []Prompt{PromptWarning}, c.asked)
	assert.Equal(t, StateConcealed, g.State())
}

func TestConfirmerErrorKeepsConcealed(t *testing.T) {
	g := NewGate()
	g.Load(pairs())
	require.NoError(t, g.Acknowledge())
	boom := errors.New("prompt closed")

	ok, err := g.Reveal(context.Background(), &scripted{err: boom})
	require.ErrorIs(t, err, boom)
	assert.False(t, ok)
	assert.Equal(t, StateConcealed, g.State())
}

func TestStepwiseTransitions(t *testing.T) {
	g := NewGate()
	require.ErrorIs(t, g.Acknowledge(), ErrNoAssignments)
	require.ErrorIs(t, g.Confirm(true), ErrNoAssignments)

	g.Load(pairs())
	var terr *TransitionError
	require.ErrorAs(t, g.Confirm(true), &terr)
	assert.Equal(t, StateConcealed, terr.From)

	require.NoError(t, g.Acknowledge())
	assert.Equal(t, StatePendingReveal, g.State())
	assertNoRecipients(t, g)
	require.ErrorAs(t, g.Acknowledge(), &terr)

	require.NoError(t, g.Confirm(false))
	assert.Equal(t, StateConcealed, g.State())

	require.NoError(t, g.Acknowledge())
	require.NoError(t, g.Confirm(true))
	assert.Equal(t, StateRevealed, g.State())
	require.ErrorAs(t, g.Acknowledge(), &terr)
}

func TestClearDestroysRevealedSet(t *testing.T) {
	g := NewGate()
	g.Load(pairs())
	require.NoError(t, g.Acknowledge())
	require.NoError(t, g.Confirm(true))

	g.Clear()
	assert.Equal(t, StateHidden, g.State())
	assert.Empty(t, g.Givers())
	_, err := g.Assignments()
	require.ErrorIs(t, err, ErrNoAssignments)

	_, err = g.Reveal(context.Background(), &scripted{answers: []bool{true, true}})
	require.ErrorIs(t, err, ErrNoAssignments)
}

func TestLoadCopiesInput(t *testing.T) {
	g := NewGate()
	in := pairs()
	g.Load(in)
	in[0].Recipient = "Mallory"
	require.NoError(t, g.Acknowledge())
	require.NoError(t, g.Confirm(true))
	got, err := g.Assignments()
	require.NoError(t, err)
	assert.Equal(t, "Bob", got[0].Recipient)
}

func TestViewWithholdsPairsUntilRevealed(t *testing.T) {
	g := NewGate()
	assert.Equal(t, StateHidden, g.View().State)
	assert.Empty(t, g.View().Givers)

	g.Load(pairs())
	v := g.View()
	assert.Equal(t, []string{"Alice", "Bob"}, v.Givers)
	assert.Nil(t, v.Pairs)

	require.NoError(t, g.Acknowledge())
	assert.Nil(t, g.View().Pairs)
	require.NoError(t, g.Confirm(true))

	v = g.View()
	assert.Equal(t, StateRevealed, v.State)
	require.Len(t, v.Pairs, 2)
	assert.Equal(t, "Bob", v.Pairs[0].Recipient)
}

func TestSnapshotServesConcealedSetWithoutRevealing(t *testing.T) {
	g := NewGate()
	_, err := g.Snapshot()
	require.ErrorIs(t, err, ErrNoAssignments)

	g.Load(pairs())
	got, err := g.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, pairs(), got)
	assert.Equal(t, StateConcealed, g.State())
	assert.Nil(t, g.View().Pairs)

	got[0].Recipient = "Mallory"
	again, err := g.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, "Bob", again[0].Recipient)

	g.Clear()
	_, err = g.Snapshot()
	require.ErrorIs(t, err, ErrNoAssignments)
}
