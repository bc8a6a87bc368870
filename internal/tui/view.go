package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/secretsanta/internal/disclosure"
	"github.com/kingrea/secretsanta/internal/notify"
)

var (
	colorAccent = lipgloss.Color("#FF6B6B")
	colorBlue   = lipgloss.Color("#5B8DEF")
	colorGreen  = lipgloss.Color("#4CAF50")
	colorMuted  = lipgloss.Color("#888888")
	colorBorder = lipgloss.Color("#444444")
)

// View renders the screen.
func (a *App) View() string {
	width := a.width
	if width <= 0 {
		width = 100
	}
	leftWidth := max(30, width/2-2)
	rightWidth := max(30, width-leftWidth-4)

	var main string
	switch a.state {
	case stateForm:
		main = a.renderForm(width - 4)
	case statePrompt:
		main = a.renderPrompt(width - 4)
	case stateConfirm:
		main = a.renderConfirm(width - 4)
	default:
		left := box(leftWidth).Render(a.renderRoster())
		right := box(rightWidth).Render(a.renderResults())
		main = lipgloss.JoinHorizontal(lipgloss.Top, left, right)
	}

	sections := []string{a.renderHeader(), main}
	if t := a.renderToast(); t != "" {
		sections = append(sections, t)
	}
	if logs := a.renderLogPanel(width - 4); logs != "" {
		sections = append(sections, logs)
	}
	sections = append(sections, a.renderFooter())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func box(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1).
		Width(width)
}

func (a *App) renderHeader() string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorAccent).
		Render("🎅 SECRET SANTA")
	channels := lipgloss.NewStyle().
		Foreground(colorMuted).
		Render("Notifications: " + notify.Summary(a.status))
	line := title + "  " + channels
	if label := a.busyLabel(); label != "" {
		line += "  " + a.spinner.View() + " " + label + "..."
	}
	return line
}

func (a *App) renderRoster() string {
	if a.ctrl.Count() == 0 {
		head := lipgloss.NewStyle().Bold(true).Foreground(colorBlue).Render(a.roster.Title)
		note := lipgloss.NewStyle().Foreground(colorMuted).Render("No participants yet. Press a to add or i to import a file.")
		return lipgloss.JoinVertical(lipgloss.Left, head, note)
	}
	return a.roster.View()
}

func (a *App) renderResults() string {
	var blocks []string
	if a.panel != nil {
		color := colorGreen
		if a.panel.failed {
			color = colorAccent
		}
		head := lipgloss.NewStyle().Bold(true).Foreground(color).Render(a.panel.title)
		blocks = append(blocks, head+"\n"+strings.Join(a.panel.lines, "\n"))
	}

	state := a.ctrl.DisclosureState()
	if lines := a.ctrl.ResultLines(); len(lines) > 0 {
		head := lipgloss.NewStyle().Bold(true).Foreground(colorBlue).Render("🎁 Assignments · " + state.String())
		blocks = append(blocks, head+"\n"+strings.Join(lines, "\n"))
	} else if a.panel == nil {
		note := lipgloss.NewStyle().Foreground(colorMuted).Render("Validate the roster, then press d to draw names.")
		blocks = append(blocks, note)
	}
	return strings.Join(blocks, "\n\n")
}

func (a *App) renderForm(width int) string {
	f := a.form
	if f == nil {
		return ""
	}
	label := func(field int, text string) string {
		style := lipgloss.NewStyle().Width(16)
		if f.focus == field {
			style = style.Bold(true).Foreground(colorBlue)
		}
		return style.Render(text)
	}
	opt := f.notification()
	selector := fmt.Sprintf("‹ %s %s ›", notify.Icon(strings.SplitN(opt.Value, ":", 2)[0]), opt.Label)
	if f.focus != fieldNotification {
		selector = lipgloss.NewStyle().Foreground(colorMuted).Render(selector)
	}
	rows := []string{
		lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Render("Add participant"),
		"",
		label(fieldName, "Name") + f.name.View(),
		label(fieldNotification, "Notification") + selector,
		label(fieldContact, "Contact info") + f.contact.View(),
		label(fieldExclusions, "Exclusions") + f.exclusions.View(),
	}
	if f.err != "" {
		rows = append(rows, "", lipgloss.NewStyle().Foreground(colorAccent).Render("✗ "+f.err))
	}
	rows = append(rows, "", lipgloss.NewStyle().Foreground(colorMuted).Render(
		"tab next field · ←/→ change notification · enter add · esc done"))
	return box(width).Render(strings.Join(rows, "\n"))
}

func (a *App) renderPrompt(width int) string {
	hint := lipgloss.NewStyle().Foreground(colorMuted).Render("enter confirm · esc cancel")
	return box(width).Render(a.prompt.View() + "\n\n" + hint)
}

func (a *App) renderConfirm(width int) string {
	var title, question string
	switch a.confirmKind {
	case confirmClear:
		title = "Clear roster"
		question = fmt.Sprintf("Remove all %d participants?", a.ctrl.Count())
	case confirmRevealWarning:
		title = "🤫 Top secret"
		question = disclosure.PromptWarning.Text()
	case confirmRevealFinal:
		title = "⚠ Final warning"
		question = disclosure.PromptFinal.Text()
	}
	head := lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Render(title)
	hint := lipgloss.NewStyle().Foreground(colorMuted).Render("y yes · n no")
	return box(width).
		BorderForeground(colorAccent).
		Render(head + "\n\n" + question + "\n\n" + hint)
}

func (a *App) renderToast() string {
	if a.toast == nil {
		return ""
	}
	style := lipgloss.NewStyle().Padding(0, 1).Bold(true)
	prefix := "ℹ "
	switch a.toast.kind {
	case toastSuccess:
		style = style.Foreground(colorGreen)
		prefix = "✓ "
	case toastError:
		style = style.Foreground(colorAccent)
		prefix = "✗ "
	default:
		style = style.Foreground(colorBlue)
	}
	return style.Render(prefix + a.toast.text)
}

func (a *App) renderLogPanel(width int) string {
	journal := a.ctrl.Journal()
	lines, _ := journal.Tail(6)
	if len(lines) == 0 {
		return ""
	}
	fileName := filepath.Base(journal.Path())
	if fileName == "." || fileName == "" {
		fileName = "journal"
	}
	head := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorBlue).
		Render(fmt.Sprintf("LOG · %s", fileName))
	body := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#AAAAAA")).
		Render(strings.Join(lines, "\n"))
	return box(width).Render(fmt.Sprintf("%s\n%s", head, body))
}

func (a *App) renderFooter() string {
	var bindings []key.Binding
	switch a.state {
	case stateRoster:
		bindings = a.rosterBindings()
	default:
		return ""
	}
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return lipgloss.NewStyle().
		Foreground(colorMuted).
		Render(strings.Join(parts, " · "))
}

// rosterBindings lists the keys that do something right now.
func (a *App) rosterBindings() []key.Binding {
	k := a.keys
	out := []key.Binding{k.Add, k.Import, k.Template}
	if a.ctrl.Count() > 0 {
		out = append(out, k.Remove, k.Clear, k.Export)
	}
	if a.ctrl.CanDraw() {
		out = append(out, k.Validate, k.Draw)
	}
	switch a.ctrl.DisclosureState() {
	case disclosure.StateConcealed, disclosure.StatePendingReveal:
		out = append(out, k.Reveal, k.Save, k.NewDraw)
	case disclosure.StateRevealed:
		out = append(out, k.Save, k.NewDraw)
	}
	if a.panel != nil {
		out = append(out, k.Dismiss)
	}
	return append(out, k.Refresh, k.Quit)
}
