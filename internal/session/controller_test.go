package session

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/kingrea/secretsanta/internal/backend"
	"github.com/kingrea/secretsanta/internal/backendtest"
	"github.com/kingrea/secretsanta/internal/disclosure"
	"github.com/kingrea/secretsanta/internal/draw"
	"github.com/kingrea/secretsanta/internal/export"
	"github.com/kingrea/secretsanta/internal/importer"
	"github.com/kingrea/secretsanta/internal/logbook"
	"github.com/kingrea/secretsanta/internal/notify"
	"github.com/kingrea/secretsanta/internal/participant"
	"github.com/kingrea/secretsanta/internal/roster"
)

// ControllerSuite drives a controller against a scripted backend.
type ControllerSuite struct {
	suite.Suite
	srv       *backendtest.Server
	journal   *logbook.Logbook
	exportDir string
	ctrl      *Controller
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func (s *ControllerSuite) SetupTest() {
	s.srv = backendtest.New(s.T())
	s.journal = logbook.InMemory()
	s.exportDir = s.T().TempDir()
	s.ctrl = New(s.srv.Client(s.T()), WithJournal(s.journal), WithExportDir(s.exportDir))
}

func (s *ControllerSuite) addAliceAndBob() {
	_, err := s.ctrl.AddParticipant("Alice", "email", "alice@example.com", "")
	s.Require().NoError(err)
	_, err = s.ctrl.AddParticipant("Bob", "email:notify", "bob@example.com", "Alice, ")
	s.Require().NoError(err)
}

func (s *ControllerSuite) scriptAliceBobDraw() {
	s.srv.OnDraw(func(backend.DrawRequest) backendtest.Reply {
		return backendtest.JSON(backend.DrawResponse{
			Success: true,
			Participants: []participant.Assignment{
				{Name: "Alice", Recipient: "Bob"},
				{Name: "Bob", Recipient: "Alice"},
			},
		})
	})
}

func (s *ControllerSuite) rendered() string {
	return strings.Join(s.ctrl.ResultLines(), "\n")
}

func (s *ControllerSuite) journalText() string {
	lines, _ := s.journal.Tail(100)
	return strings.Join(lines, "\n")
}

func answers(values ...bool) disclosure.Confirmer {
	return disclosure.ConfirmFunc(func(context.Context, disclosure.Prompt) (bool, error) {
		if len(values) == 0 {
			return false, nil
		}
		v := values[0]
		values = values[1:]
		return v, nil
	})
}

func (s *ControllerSuite) TestRosterEditing() {
	s.addAliceAndBob()
	_, err := s.ctrl.AddParticipant("Carol", "slack", "", "")
	s.Require().NoError(err)

	s.Run("duplicate rejected and size unchanged", func() {
		_, err := s.ctrl.AddParticipant("Alice", "", "", "")
		var dup *roster.DuplicateNameError
		s.Require().ErrorAs(err, &dup)
		s.Equal(3, s.ctrl.Count())
	})

	s.Run("remove keeps order", func() {
		removed, err := s.ctrl.Remove(1)
		s.Require().NoError(err)
		s.Equal("Bob", removed.Name)
		names := []string{}
		for _, p := range s.ctrl.Participants() {
			names = append(names, p.Name)
		}
		s.Equal([]string{"Alice", "Carol"}, names)
	})

	s.Run("clear asks only when non-empty", func() {
		s.True(s.ctrl.NeedsClearConfirmation())
		s.True(s.ctrl.Clear())
		s.False(s.ctrl.NeedsClearConfirmation())
		s.False(s.ctrl.Clear())
	})

	s.Contains(s.journalText(), "Added Alice")
	s.Contains(s.journalText(), "Removed Bob")
}

func (s *ControllerSuite) TestParticipantFieldsAreParsed() {
	s.addAliceAndBob()
	bob := s.ctrl.Participants()[1]
	s.Equal([]string{"Alice"}, bob.Exclusions)
	s.Equal([]string{"bob@example.com"}, bob.ContactInfo)
	kind, account := bob.Channel()
	s.Equal("email", kind)
	s.Equal("notify", account)
}

func (s *ControllerSuite) TestDrawNeedsTwoParticipants() {
	_, err := s.ctrl.AddParticipant("Alice", "", "", "")
	s.Require().NoError(err)
	s.False(s.ctrl.CanDraw())

	_, err = s.ctrl.Draw(context.Background(), "")
	s.Require().ErrorIs(err, roster.ErrInsufficientParticipants)
	_, err = s.ctrl.Validate(context.Background())
	s.Require().ErrorIs(err, roster.ErrInsufficientParticipants)
	s.Zero(s.srv.TotalCalls())
}

func (s *ControllerSuite) TestDrawThenRevealWithTwoConfirmations() {
	s.addAliceAndBob()
	s.scriptAliceBobDraw()

	outcome, err := s.ctrl.Draw(context.Background(), "")
	s.Require().NoError(err)
	s.Equal("Draw completed successfully!", outcome.Summary())
	s.Equal(disclosure.StateConcealed, s.ctrl.DisclosureState())
	s.NotContains(s.rendered(), "→ Bob")
	s.NotContains(s.rendered(), "→ Alice")

	ok, err := s.ctrl.Reveal(context.Background(), answers(true, true))
	s.Require().NoError(err)
	s.True(ok)
	s.Contains(s.rendered(), "Alice → Bob")
	s.Contains(s.rendered(), "Bob → Alice")
	s.NotContains(s.journalText(), "Alice → Bob")
}

func (s *ControllerSuite) TestDecliningFinalConfirmationKeepsResultsHidden() {
	s.addAliceAndBob()
	s.scriptAliceBobDraw()
	_, err := s.ctrl.Draw(context.Background(), "")
	s.Require().NoError(err)

	ok, err := s.ctrl.Reveal(context.Background(), answers(true, false))
	s.Require().NoError(err)
	s.False(ok)
	s.Equal(disclosure.StateConcealed, s.ctrl.DisclosureState())
	s.NotContains(s.rendered(), "→ Bob")
}

func (s *ControllerSuite) TestExportWhileConcealedKeepsScreenHidden() {
	_, err := s.ctrl.ExportResults()
	s.Require().ErrorIs(err, disclosure.ErrNoAssignments)

	s.addAliceAndBob()
	s.scriptAliceBobDraw()
	_, err = s.ctrl.Draw(context.Background(), "")
	s.Require().NoError(err)

	path, err := s.ctrl.ExportResults()
	s.Require().NoError(err)
	data, err := os.ReadFile(path)
	s.Require().NoError(err)
	s.Contains(string(data), `"recipient": "Bob"`)

	s.Equal(disclosure.StateConcealed, s.ctrl.DisclosureState())
	s.NotContains(s.rendered(), "→ Bob")
	s.NotContains(s.rendered(), "→ Alice")
	s.NotContains(s.journalText(), "→ Bob")
}

func (s *ControllerSuite) TestStepwiseRevealAndExport() {
	s.addAliceAndBob()
	s.scriptAliceBobDraw()
	req, err := s.ctrl.BeginDraw("")
	s.Require().NoError(err)
	s.True(s.ctrl.Drawing())
	s.False(s.ctrl.CanDraw())
	outcome, err := s.ctrl.ExecuteDraw(context.Background(), req)
	s.ctrl.FinishDraw(outcome, err)
	s.Require().NoError(err)
	s.False(s.ctrl.Drawing())

	s.Require().NoError(s.ctrl.AcknowledgeReveal())
	s.Equal(disclosure.StatePendingReveal, s.ctrl.DisclosureState())
	s.NotContains(s.rendered(), "→ Bob")
	s.Require().NoError(s.ctrl.ConfirmReveal(true))

	path, err := s.ctrl.ExportResults()
	s.Require().NoError(err)
	s.Equal(filepath.Join(s.exportDir, export.ResultsFile), path)
	data, err := os.ReadFile(path)
	s.Require().NoError(err)
	s.Contains(string(data), `"recipient": "Bob"`)
}

func (s *ControllerSuite) TestNewDrawDiscardsRevealedSet() {
	s.addAliceAndBob()
	s.scriptAliceBobDraw()
	_, err := s.ctrl.Draw(context.Background(), "")
	s.Require().NoError(err)
	_, err = s.ctrl.Reveal(context.Background(), answers(true, true))
	s.Require().NoError(err)

	s.Require().NoError(s.ctrl.NewDraw())
	s.Equal(disclosure.StateHidden, s.ctrl.DisclosureState())
	s.Empty(s.ctrl.ResultLines())

	_, err = s.ctrl.Draw(context.Background(), "")
	s.Require().NoError(err)
	s.Equal(disclosure.StateConcealed, s.ctrl.DisclosureState())
	s.NotContains(s.rendered(), "→ Bob")
}

func (s *ControllerSuite) TestInfeasibleDrawIsReported() {
	s.addAliceAndBob()
	s.srv.OnDraw(func(backend.DrawRequest) backendtest.Reply {
		return backendtest.Reply{
			Status: http.StatusBadRequest,
			JSON:   backend.DrawResponse{Error: "Bob has no valid recipients"},
		}
	})
	outcome, err := s.ctrl.Draw(context.Background(), "")
	s.Require().NoError(err)
	s.True(outcome.Infeasible)
	s.Equal(disclosure.StateHidden, s.ctrl.DisclosureState())
	s.Contains(s.journalText(), "Draw failed: Bob has no valid recipients")
	s.True(s.ctrl.CanDraw())
}

func (s *ControllerSuite) TestSecondDrawWhileInFlightIsRejected() {
	s.addAliceAndBob()
	_, err := s.ctrl.BeginDraw("")
	s.Require().NoError(err)
	_, err = s.ctrl.BeginDraw("")
	s.Require().ErrorIs(err, draw.ErrDrawInProgress)
	s.Require().ErrorIs(s.ctrl.NewDraw(), draw.ErrDrawInProgress)
	s.ctrl.FinishDraw(draw.Outcome{Infeasible: true}, nil)
	s.False(s.ctrl.Drawing())
}

func (s *ControllerSuite) TestImportReplacesRoster() {
	s.addAliceAndBob()
	s.srv.OnUpload(func(backendtest.Upload) backendtest.Reply {
		return backendtest.JSON(backend.UploadResponse{
			Success: true,
			Format:  "csv",
			Participants: []participant.Participant{
				participant.New("Dana", "email", "dana@example.com", ""),
				participant.New("Eve", "email", "eve@example.com", "Dana"),
			},
			Validation: &backend.ValidationResponse{Valid: true, TotalParticipants: 2, MinCompatibility: 0},
		})
	})

	path := filepath.Join(s.T().TempDir(), "people.csv")
	s.Require().NoError(os.WriteFile(path, []byte("name\nDana\nEve\n"), 0o644))
	result, err := s.ctrl.ImportFile(context.Background(), path)
	s.Require().NoError(err)
	s.Equal("Loaded 2 participants from CSV", result.Summary())
	s.Require().NotNil(result.Validation)
	s.True(result.Validation.FromImport())

	names := []string{}
	for _, p := range s.ctrl.Participants() {
		names = append(names, p.Name)
	}
	s.Equal([]string{"Dana", "Eve"}, names)
}

func (s *ControllerSuite) TestImportRejectsDocxLocally() {
	_, err := s.ctrl.ImportFile(context.Background(), "/nowhere/roster.docx")
	var unsupported *importer.UnsupportedFormatError
	s.Require().ErrorAs(err, &unsupported)
	s.Zero(s.srv.TotalCalls())
}

func (s *ControllerSuite) TestValidateRendersReport() {
	s.addAliceAndBob()
	s.srv.OnValidate(func([]participant.Participant) backendtest.Reply {
		return backendtest.JSON(backend.ValidationResponse{
			Valid:    false,
			Errors:   []string{"Bob can't give to anyone"},
			Warnings: []string{"Alice has only one option"},
		})
	})
	report, err := s.ctrl.Validate(context.Background())
	s.Require().NoError(err)
	s.False(report.Valid())
	s.Contains(report.Lines(), "  • Bob can't give to anyone")
	s.Equal(2, s.ctrl.Count())
}

func (s *ControllerSuite) TestEmptyStatusOffersConsoleOnly() {
	s.srv.OnStatus(func() backendtest.Reply {
		return backendtest.JSON(map[string]any{"available": []any{}})
	})
	st := s.ctrl.RefreshNotifications(context.Background())
	s.True(st.Known)
	s.Equal([]notify.Option{notify.ConsoleOption}, s.ctrl.NotificationOptions())
}

func (s *ControllerSuite) TestUnreachableStatusIsUnknown() {
	st := s.ctrl.RefreshNotifications(context.Background())
	s.False(st.Known)
	s.Equal("Unknown", notify.Summary(s.ctrl.Notifications()))
	s.Contains(s.journalText(), "Notification status unavailable")
}

func (s *ControllerSuite) TestTemplateAndRosterExport() {
	s.addAliceAndBob()
	s.srv.OnTemplate(func(format string) backendtest.Reply {
		return backendtest.Text(http.StatusOK, "name\n")
	})
	s.srv.OnDownload(func(req backend.DownloadRequest) backendtest.Reply {
		rep := backendtest.Text(http.StatusOK, "[]")
		rep.Header = http.Header{"Content-Disposition": {"attachment; filename=participants.json"}}
		return rep
	})

	path, err := s.ctrl.DownloadTemplate(context.Background(), "tsv")
	s.Require().NoError(err)
	s.Equal(filepath.Join(s.exportDir, "secretsanta-template.tsv"), path)

	path, err = s.ctrl.ExportRoster(context.Background(), "json")
	s.Require().NoError(err)
	s.Equal(filepath.Join(s.exportDir, "participants.json"), path)
}
