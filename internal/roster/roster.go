// Package roster is the in-memory participant list for one session. It owns
// name uniqueness; nothing else mutates the list.
package roster

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"github.com/kingrea/secretsanta/internal/participant"
)

var validate = validator.New()

// Roster keeps participants in insertion order.
type Roster struct {
	entries []participant.Participant
}

// New returns an empty roster.
func New() *Roster {
	return &Roster{entries: []participant.Participant{}}
}

// Add appends p and returns the new count. Names compare case-sensitively.
func (r *Roster) Add(p participant.Participant) (int, error) {
	p = p.Clone()
	p.Name = strings.TrimSpace(p.Name)
	if err := validate.Struct(p); err != nil {
		return len(r.entries), ErrEmptyName
	}
	if r.indexOf(p.Name) >= 0 {
		return len(r.entries), &DuplicateNameError{Names: []string{p.Name}}
	}
	if p.ContactInfo == nil {
		p.ContactInfo = []string{}
	}
	if p.Exclusions == nil {
		p.Exclusions = []string{}
	}
	r.entries = append(r.entries, p)
	return len(r.entries), nil
}

// Remove deletes the entry at index, keeping the order of the others.
func (r *Roster) Remove(index int) (participant.Participant, error) {
	if index < 0 || index >= len(r.entries) {
		return participant.Participant{}, &IndexOutOfRangeError{Index: index, Len: len(r.entries)}
	}
	removed := r.entries[index]
	r.entries = append(r.entries[:index:index], r.entries[index+1:]...)
	return removed, nil
}

// Clear empties the roster. It reports false when there was nothing to clear,
// in which case callers should not have asked for confirmation.
func (r *Roster) Clear() bool {
	if len(r.entries) == 0 {
		return false
	}
	r.entries = []participant.Participant{}
	return true
}

// ReplaceFromImport swaps the whole roster for an imported set. The import
// service is expected to de-duplicate, but a set with colliding names is
// still rejected and the current roster is left untouched.
func (r *Roster) ReplaceFromImport(participants []participant.Participant) error {
	next := make([]participant.Participant, 0, len(participants))
	for i, p := range participants {
		p = p.Clone()
		p.Name = strings.TrimSpace(p.Name)
		if p.Name == "" {
			return fmt.Errorf("roster: imported entry %d: %w", i, ErrEmptyName)
		}
		next = append(next, p)
	}
	names := lo.Map(next, func(p participant.Participant, _ int) string { return p.Name })
	if dups := lo.FindDuplicates(names); len(dups) > 0 {
		return &DuplicateNameError{Names: dups}
	}
	r.entries = next
	return nil
}

// Count returns the roster size.
func (r *Roster) Count() int {
	return len(r.entries)
}

// CanDraw reports whether the roster is large enough to validate or draw.
func (r *Roster) CanDraw() bool {
	return len(r.entries) >= MinParticipants
}

// Get returns a copy of the entry at index.
func (r *Roster) Get(index int) (participant.Participant, error) {
	if index < 0 || index >= len(r.entries) {
		return participant.Participant{}, &IndexOutOfRangeError{Index: index, Len: len(r.entries)}
	}
	return r.entries[index].Clone(), nil
}

// List returns a deep copy of the entries in insertion order.
func (r *Roster) List() []participant.Participant {
	return lo.Map(r.entries, func(p participant.Participant, _ int) participant.Participant {
		return p.Clone()
	})
}

// Names returns the participant names in insertion order.
func (r *Roster) Names() []string {
	return lo.Map(r.entries, func(p participant.Participant, _ int) string { return p.Name })
}

func (r *Roster) indexOf(name string) int {
	_, idx, ok := lo.FindIndexOf(r.entries, func(p participant.Participant) bool {
		return p.Name == name
	})
	if !ok {
		return -1
	}
	return idx
}
