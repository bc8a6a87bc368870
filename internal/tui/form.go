package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/secretsanta/internal/notify"
)

const (
	fieldName = iota
	fieldNotification
	fieldContact
	fieldExclusions
	fieldCount
)

// participantForm collects one participant. The notification field is a
// selector over the catalog options rather than free text.
type participantForm struct {
	name       textinput.Model
	contact    textinput.Model
	exclusions textinput.Model
	options    []notify.Option
	choice     int
	focus      int
	err        string
}

type formResult int

const (
	formEditing formResult = iota
	formSubmitted
	formCancelled
)

func newParticipantForm(options []notify.Option) *participantForm {
	f := &participantForm{
		name:       newInput("Alice", 64),
		contact:    newInput("alice@example.com, @alice", 256),
		exclusions: newInput("Bob, Carol", 256),
	}
	f.setOptions(options)
	f.focusField(fieldName)
	return f
}

func newInput(placeholder string, limit int) textinput.Model {
	in := textinput.New()
	in.Placeholder = placeholder
	in.CharLimit = limit
	in.Width = 40
	in.Prompt = ""
	return in
}

// setOptions swaps the catalog options, keeping the current choice when it
// is still offered.
func (f *participantForm) setOptions(options []notify.Option) {
	if len(options) == 0 {
		options = []notify.Option{notify.ConsoleOption}
	}
	current := ""
	if f.choice < len(f.options) {
		current = f.options[f.choice].Value
	}
	f.options = options
	f.choice = 0
	for i, opt := range options {
		if opt.Value == current {
			f.choice = i
		}
	}
}

func (f *participantForm) focusField(field int) {
	f.focus = (field + fieldCount) % fieldCount
	f.name.Blur()
	f.contact.Blur()
	f.exclusions.Blur()
	switch f.focus {
	case fieldName:
		f.name.Focus()
	case fieldContact:
		f.contact.Focus()
	case fieldExclusions:
		f.exclusions.Focus()
	}
}

func (f *participantForm) reset() {
	f.name.Reset()
	f.contact.Reset()
	f.exclusions.Reset()
	f.err = ""
	f.focusField(fieldName)
}

func (f *participantForm) notification() notify.Option {
	if f.choice < len(f.options) {
		return f.options[f.choice]
	}
	return notify.ConsoleOption
}

// values returns the raw field contents in AddParticipant order.
func (f *participantForm) values() (name, notification, contact, exclusions string) {
	return strings.TrimSpace(f.name.Value()), f.notification().Value, f.contact.Value(), f.exclusions.Value()
}

func (f *participantForm) update(msg tea.Msg) (formResult, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			return formCancelled, nil
		case "enter":
			return formSubmitted, nil
		case "tab", "down":
			f.focusField(f.focus + 1)
			return formEditing, textinput.Blink
		case "shift+tab", "up":
			f.focusField(f.focus - 1)
			return formEditing, textinput.Blink
		case "left", "right":
			if f.focus == fieldNotification && len(f.options) > 0 {
				step := 1
				if keyMsg.String() == "left" {
					step = len(f.options) - 1
				}
				f.choice = (f.choice + step) % len(f.options)
				return formEditing, nil
			}
		}
	}
	var cmd tea.Cmd
	switch f.focus {
	case fieldName:
		f.name, cmd = f.name.Update(msg)
	case fieldContact:
		f.contact, cmd = f.contact.Update(msg)
	case fieldExclusions:
		f.exclusions, cmd = f.exclusions.Update(msg)
	}
	return formEditing, cmd
}
