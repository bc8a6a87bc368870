// internal/tui/app.go
//
// This is the terminal front end for secretsanta.
// It uses bubbletea, which follows The Elm Architecture:
//
// 1. Model: the App below, a thin shell around session.Controller
// 2. Update: turns key presses and command results into controller calls
// 3. View: renders whatever the controller allows us to see
//
// Every request to the backend runs inside a tea.Cmd and comes back as a
// *DoneMsg, so Update is the only place session state changes hands.

package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/secretsanta/internal/disclosure"
	"github.com/kingrea/secretsanta/internal/draw"
	"github.com/kingrea/secretsanta/internal/importer"
	"github.com/kingrea/secretsanta/internal/notify"
	"github.com/kingrea/secretsanta/internal/participant"
	"github.com/kingrea/secretsanta/internal/roster"
	"github.com/kingrea/secretsanta/internal/session"
	"github.com/kingrea/secretsanta/internal/validation"
)

// appState represents which "screen" we're on
type appState int

const (
	stateRoster  appState = iota // roster list with results beside it
	stateForm                    // adding participants
	statePrompt                  // one-line input (file path, format, archive email)
	stateConfirm                 // yes/no modal
)

// DefaultToastTTL is how long a transient notice stays on screen.
const DefaultToastTTL = 3 * time.Second

type promptKind int

const (
	promptImport promptKind = iota
	promptTemplate
	promptExportRoster
	promptArchive
)

type confirmKind int

const (
	confirmClear confirmKind = iota
	confirmRevealWarning
	confirmRevealFinal
)

type toastKind int

const (
	toastInfo toastKind = iota
	toastSuccess
	toastError
)

type toast struct {
	id   int
	kind toastKind
	text string
}

// panel holds a validation or draw result until dismissed or replaced.
type panel struct {
	title  string
	lines  []string
	failed bool
}

type statusLoadedMsg struct{ status notify.Status }

type validateDoneMsg struct {
	report validation.Report
	err    error
}

type importDoneMsg struct {
	result importer.Result
	err    error
}

type drawDoneMsg struct {
	outcome draw.Outcome
	err     error
}

type fileSavedMsg struct {
	what string
	path string
	err  error
}

type toastExpiredMsg struct{ id int }

// participantItem implements list.Item for roster entries
type participantItem struct {
	p participant.Participant
}

func (i participantItem) Title() string { return i.p.Name }

func (i participantItem) Description() string {
	kind, account := i.p.Channel()
	parts := []string{}
	if kind != "" {
		channel := notify.Icon(kind) + " " + kind
		if account != "" {
			channel += " (" + account + ")"
		}
		parts = append(parts, channel)
	}
	if len(i.p.ContactInfo) > 0 {
		parts = append(parts, strings.Join(i.p.ContactInfo, ", "))
	}
	if len(i.p.Exclusions) > 0 {
		parts = append(parts, "excludes "+strings.Join(i.p.Exclusions, ", "))
	}
	if len(parts) == 0 {
		return "no contact details"
	}
	return strings.Join(parts, " · ")
}

func (i participantItem) FilterValue() string { return i.p.Name }

type keyMap struct {
	Add      key.Binding
	Remove   key.Binding
	Clear    key.Binding
	Validate key.Binding
	Import   key.Binding
	Template key.Binding
	Export   key.Binding
	Draw     key.Binding
	Reveal   key.Binding
	Save     key.Binding
	NewDraw  key.Binding
	Refresh  key.Binding
	Dismiss  key.Binding
	Quit     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Add:      key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		Remove:   key.NewBinding(key.WithKeys("x", "delete"), key.WithHelp("x", "remove")),
		Clear:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear")),
		Validate: key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "validate")),
		Import:   key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "import")),
		Template: key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "template")),
		Export:   key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "export roster")),
		Draw:     key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "draw")),
		Reveal:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reveal")),
		Save:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "save results")),
		NewDraw:  key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new draw")),
		Refresh:  key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "refresh channels")),
		Dismiss:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "dismiss")),
		Quit:     key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
	}
}

// AppOption customizes App construction for tests and alternate runtimes.
type AppOption func(*App)

// WithToastTTL overrides DefaultToastTTL. A zero TTL keeps toasts until the
// next one replaces them.
func WithToastTTL(d time.Duration) AppOption {
	return func(a *App) {
		if d >= 0 {
			a.toastTTL = d
		}
	}
}

// WithContext sets the parent context for backend requests.
func WithContext(ctx context.Context) AppOption {
	return func(a *App) {
		if ctx != nil {
			a.ctx = ctx
		}
	}
}

// App is the main application model. In bubbletea, this holds ALL your state.
type App struct {
	ctrl  *session.Controller
	ctx   context.Context
	state appState
	keys  keyMap

	// UI components
	roster  list.Model
	form    *participantForm
	prompt  textinput.Model
	spinner spinner.Model

	promptKind  promptKind
	confirmKind confirmKind

	busy     string // label of the running background request
	toast    *toast
	toastSeq int
	toastTTL time.Duration
	panel    *panel
	status   notify.Status

	// Window size (we get this from bubbletea)
	width  int
	height int
}

// NewApp wraps a session controller in a bubbletea model.
func NewApp(ctrl *session.Controller, opts ...AppOption) *App {
	rosterList := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	rosterList.Title = "🎄 Participants"
	rosterList.SetShowStatusBar(false)
	rosterList.SetFilteringEnabled(false)
	rosterList.SetShowHelp(false)
	rosterList.DisableQuitKeybindings()
	rosterList.SetStatusBarItemName("participant", "participants")

	prompt := textinput.New()
	prompt.CharLimit = 512
	prompt.Width = 50

	app := &App{
		ctrl:     ctrl,
		ctx:      context.Background(),
		state:    stateRoster,
		keys:     defaultKeyMap(),
		roster:   rosterList,
		prompt:   prompt,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		toastTTL: DefaultToastTTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}
	app.syncRoster()
	return app
}

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	return a.refreshStatus()
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.resizeRoster()
		return a, nil

	case spinner.TickMsg:
		if a.busyLabel() == "" {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case toastExpiredMsg:
		if a.toast != nil && a.toast.id == msg.id {
			a.toast = nil
		}
		return a, nil

	case statusLoadedMsg:
		a.status = msg.status
		if a.form != nil {
			a.form.setOptions(notify.Options(msg.status))
		}
		return a, nil

	case validateDoneMsg:
		a.busy = ""
		if msg.err != nil {
			return a, a.notify(toastError, "Validation failed: "+msg.err.Error())
		}
		a.showReport(msg.report)
		return a, nil

	case importDoneMsg:
		a.busy = ""
		if msg.err != nil {
			return a, a.notify(toastError, "Import failed: "+msg.err.Error())
		}
		a.syncRoster()
		if msg.result.Validation != nil {
			a.showReport(*msg.result.Validation)
		}
		return a, a.notify(toastSuccess, msg.result.Summary())

	case drawDoneMsg:
		return a.handleDrawDone(msg)

	case fileSavedMsg:
		a.busy = ""
		if msg.err != nil {
			return a, a.notify(toastError, msg.what+" failed: "+msg.err.Error())
		}
		return a, a.notify(toastSuccess, fmt.Sprintf("%s saved to %s", msg.what, msg.path))

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		switch a.state {
		case stateForm:
			return a.updateForm(msg)
		case statePrompt:
			return a.updatePrompt(msg)
		case stateConfirm:
			return a.updateConfirm(msg)
		default:
			return a.updateRoster(msg)
		}
	}

	// Cursor blinks and other component messages.
	var cmd tea.Cmd
	switch a.state {
	case stateForm:
		if a.form != nil {
			_, cmd = a.form.update(msg)
		}
	case statePrompt:
		a.prompt, cmd = a.prompt.Update(msg)
	}
	return a, cmd
}

func (a *App) updateRoster(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Quit):
		return a, tea.Quit

	case key.Matches(msg, a.keys.Dismiss):
		a.panel = nil
		return a, nil

	case key.Matches(msg, a.keys.Add):
		a.form = newParticipantForm(notify.Options(a.status))
		a.state = stateForm
		return a, textinput.Blink

	case key.Matches(msg, a.keys.Remove):
		if a.ctrl.Count() == 0 {
			return a, nil
		}
		removed, err := a.ctrl.Remove(a.roster.Index())
		if err != nil {
			return a, a.notify(toastError, err.Error())
		}
		a.syncRoster()
		return a, a.notify(toastSuccess, "Removed "+removed.Name)

	case key.Matches(msg, a.keys.Clear):
		if !a.ctrl.NeedsClearConfirmation() {
			return a, a.notify(toastInfo, "The roster is already empty")
		}
		a.openConfirm(confirmClear)
		return a, nil

	case key.Matches(msg, a.keys.Validate):
		if a.ctrl.Count() < roster.MinParticipants {
			return a, a.notify(toastError, roster.ErrInsufficientParticipants.Error())
		}
		if label := a.busyLabel(); label != "" {
			return a, a.notify(toastInfo, "Still working: "+label)
		}
		return a, a.startBusy("Validating roster", a.validateCmd())

	case key.Matches(msg, a.keys.Import):
		if label := a.busyLabel(); label != "" {
			return a, a.notify(toastInfo, "Still working: "+label)
		}
		return a, a.openPrompt(promptImport, "Import roster file (json, yaml, toml, csv, tsv):", "participants.csv", "")

	case key.Matches(msg, a.keys.Template):
		if label := a.busyLabel(); label != "" {
			return a, a.notify(toastInfo, "Still working: "+label)
		}
		return a, a.openPrompt(promptTemplate, "Template format (csv, tsv, json, yaml, toml):", "csv", "")

	case key.Matches(msg, a.keys.Export):
		if a.ctrl.Count() == 0 {
			return a, a.notify(toastInfo, "Add participants before exporting the roster")
		}
		if label := a.busyLabel(); label != "" {
			return a, a.notify(toastInfo, "Still working: "+label)
		}
		return a, a.openPrompt(promptExportRoster, "Export roster as (csv, tsv, json, yaml, toml):", "csv", "")

	case key.Matches(msg, a.keys.Draw):
		if a.ctrl.Drawing() {
			return a, a.notify(toastError, draw.ErrDrawInProgress.Error())
		}
		if a.ctrl.Count() < roster.MinParticipants {
			return a, a.notify(toastError, roster.ErrInsufficientParticipants.Error())
		}
		if a.busy != "" {
			return a, a.notify(toastInfo, "Still working: "+a.busy)
		}
		return a, a.openPrompt(promptArchive, "Archive email for an audit copy (optional):", "organizer@example.com", a.ctrl.ArchiveEmail())

	case key.Matches(msg, a.keys.Reveal):
		switch a.ctrl.DisclosureState() {
		case disclosure.StateHidden:
			return a, a.notify(toastInfo, "Nothing to reveal yet. Run a draw first")
		case disclosure.StateRevealed:
			return a, a.notify(toastInfo, "Assignments are already revealed")
		case disclosure.StatePendingReveal:
			a.openConfirm(confirmRevealFinal)
		default:
			a.openConfirm(confirmRevealWarning)
		}
		return a, nil

	case key.Matches(msg, a.keys.Save):
		path, err := a.ctrl.ExportResults()
		switch {
		case errors.Is(err, disclosure.ErrNoAssignments):
			return a, a.notify(toastError, "Nothing to save. Run a draw first")
		case err != nil:
			return a, a.notify(toastError, "Export failed: "+err.Error())
		}
		return a, a.notify(toastSuccess, "Results saved to "+path)

	case key.Matches(msg, a.keys.NewDraw):
		if err := a.ctrl.NewDraw(); err != nil {
			return a, a.notify(toastError, err.Error())
		}
		a.panel = nil
		return a, a.notify(toastInfo, "Assignments cleared. Ready for a new draw")

	case key.Matches(msg, a.keys.Refresh):
		return a, a.refreshStatus()
	}

	var cmd tea.Cmd
	a.roster, cmd = a.roster.Update(msg)
	return a, cmd
}

func (a *App) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.form == nil {
		a.state = stateRoster
		return a, nil
	}
	result, cmd := a.form.update(msg)
	switch result {
	case formCancelled:
		a.form = nil
		a.state = stateRoster
		return a, nil
	case formSubmitted:
		name, notification, contact, exclusions := a.form.values()
		if _, err := a.ctrl.AddParticipant(name, notification, contact, exclusions); err != nil {
			a.form.err = err.Error()
			return a, a.notify(toastError, err.Error())
		}
		a.form.reset()
		a.syncRoster()
		return a, tea.Batch(textinput.Blink, a.notify(toastSuccess, "Added "+name))
	}
	return a, cmd
}

func (a *App) openPrompt(kind promptKind, label, placeholder, value string) tea.Cmd {
	a.promptKind = kind
	a.prompt.Prompt = label + " "
	a.prompt.Placeholder = placeholder
	a.prompt.SetValue(value)
	a.prompt.CursorEnd()
	a.state = statePrompt
	return a.prompt.Focus()
}

func (a *App) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.prompt.Blur()
		a.state = stateRoster
		return a, nil
	case "enter":
		a.prompt.Blur()
		a.state = stateRoster
		return a.submitPrompt(strings.TrimSpace(a.prompt.Value()))
	}
	var cmd tea.Cmd
	a.prompt, cmd = a.prompt.Update(msg)
	return a, cmd
}

func (a *App) submitPrompt(value string) (tea.Model, tea.Cmd) {
	switch a.promptKind {
	case promptImport:
		if value == "" {
			return a, nil
		}
		if err := importer.CheckExtension(value); err != nil {
			return a, a.notify(toastError, err.Error())
		}
		return a, a.startBusy("Importing "+value, a.importCmd(value))

	case promptTemplate:
		if value == "" {
			value = "csv"
		}
		return a, a.startBusy("Downloading template", a.saveCmd("Template", func(ctx context.Context) (string, error) {
			return a.ctrl.DownloadTemplate(ctx, value)
		}))

	case promptExportRoster:
		if value == "" {
			value = "csv"
		}
		return a, a.startBusy("Exporting roster", a.saveCmd("Roster export", func(ctx context.Context) (string, error) {
			return a.ctrl.ExportRoster(ctx, value)
		}))

	case promptArchive:
		// BeginDraw claims the draw slot before the request is dispatched.
		req, err := a.ctrl.BeginDraw(value)
		if err != nil {
			return a, a.notify(toastError, err.Error())
		}
		a.panel = nil
		return a, a.startBusy("Drawing names", a.drawCmd(req))
	}
	return a, nil
}

func (a *App) openConfirm(kind confirmKind) {
	a.confirmKind = kind
	a.state = stateConfirm
}

func (a *App) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var yes bool
	switch strings.ToLower(msg.String()) {
	case "y":
		yes = true
	case "enter":
		// The final reveal only takes an explicit y.
		if a.confirmKind == confirmRevealFinal {
			return a, nil
		}
		yes = true
	case "n", "esc":
		yes = false
	default:
		return a, nil
	}
	a.state = stateRoster

	switch a.confirmKind {
	case confirmClear:
		if yes && a.ctrl.Clear() {
			a.syncRoster()
			return a, a.notify(toastSuccess, "All participants cleared")
		}
		return a, nil

	case confirmRevealWarning:
		if !yes {
			return a, a.notify(toastInfo, "Assignments stay hidden")
		}
		if err := a.ctrl.AcknowledgeReveal(); err != nil {
			return a, a.notify(toastError, err.Error())
		}
		a.openConfirm(confirmRevealFinal)
		return a, nil

	case confirmRevealFinal:
		if err := a.ctrl.ConfirmReveal(yes); err != nil {
			return a, a.notify(toastError, err.Error())
		}
		if !yes {
			return a, a.notify(toastInfo, "Assignments stay hidden")
		}
		return a, a.notify(toastSuccess, "Assignments revealed")
	}
	return a, nil
}

func (a *App) handleDrawDone(msg drawDoneMsg) (tea.Model, tea.Cmd) {
	a.busy = ""
	a.ctrl.FinishDraw(msg.outcome, msg.err)
	if msg.err != nil {
		return a, a.notify(toastError, "Draw failed: "+msg.err.Error())
	}
	if msg.outcome.Infeasible {
		a.panel = &panel{title: "Draw failed", lines: []string{msg.outcome.Message}, failed: true}
		return a, a.notify(toastError, msg.outcome.Summary())
	}
	a.panel = &panel{
		title: "Draw complete",
		lines: []string{msg.outcome.Summary(), "Press r to reveal the assignments."},
	}
	return a, a.notify(toastSuccess, msg.outcome.Summary())
}

func (a *App) showReport(r validation.Report) {
	a.panel = &panel{title: r.Title(), lines: r.Lines(), failed: !r.Valid()}
}

func (a *App) syncRoster() {
	ps := a.ctrl.Participants()
	items := make([]list.Item, len(ps))
	for i, p := range ps {
		items[i] = participantItem{p: p}
	}
	idx := a.roster.Index()
	a.roster.SetItems(items)
	if idx >= len(items) {
		idx = len(items) - 1
	}
	if idx >= 0 {
		a.roster.Select(idx)
	}
}

func (a *App) resizeRoster() {
	width := a.width
	if width <= 0 {
		width = 100
	}
	a.roster.SetSize(max(20, width/2-4), max(6, a.height-14))
}

// notify shows a toast and schedules its removal.
func (a *App) notify(kind toastKind, text string) tea.Cmd {
	a.toastSeq++
	a.toast = &toast{id: a.toastSeq, kind: kind, text: text}
	if a.toastTTL <= 0 {
		return nil
	}
	id := a.toastSeq
	return tea.Tick(a.toastTTL, func(time.Time) tea.Msg {
		return toastExpiredMsg{id: id}
	})
}

// busyLabel names the running background work. A draw counts until its
// result is delivered, whatever else finished meanwhile.
func (a *App) busyLabel() string {
	if a.busy != "" {
		return a.busy
	}
	if a.ctrl.Drawing() {
		return "Drawing names"
	}
	return ""
}

func (a *App) startBusy(label string, cmd tea.Cmd) tea.Cmd {
	a.busy = label
	return tea.Batch(cmd, a.spinner.Tick)
}

func (a *App) refreshStatus() tea.Cmd {
	ctrl, ctx := a.ctrl, a.ctx
	return func() tea.Msg {
		return statusLoadedMsg{status: ctrl.RefreshNotifications(ctx)}
	}
}

func (a *App) validateCmd() tea.Cmd {
	ctrl, ctx := a.ctrl, a.ctx
	return func() tea.Msg {
		report, err := ctrl.Validate(ctx)
		return validateDoneMsg{report: report, err: err}
	}
}

func (a *App) importCmd(path string) tea.Cmd {
	ctrl, ctx := a.ctrl, a.ctx
	return func() tea.Msg {
		result, err := ctrl.ImportFile(ctx, path)
		return importDoneMsg{result: result, err: err}
	}
}

func (a *App) drawCmd(req draw.Request) tea.Cmd {
	ctrl, ctx := a.ctrl, a.ctx
	return func() tea.Msg {
		outcome, err := ctrl.ExecuteDraw(ctx, req)
		return drawDoneMsg{outcome: outcome, err: err}
	}
}

func (a *App) saveCmd(what string, save func(context.Context) (string, error)) tea.Cmd {
	ctx := a.ctx
	return func() tea.Msg {
		path, err := save(ctx)
		return fileSavedMsg{what: what, path: path, err: err}
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
