package importer

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/secretsanta/internal/backend"
	"github.com/kingrea/secretsanta/internal/backendtest"
	"github.com/kingrea/secretsanta/internal/participant"
	"github.com/kingrea/secretsanta/internal/roster"
)

func TestSubmitRejectsUnsupportedExtensionLocally(t *testing.T) {
	srv := backendtest.New(t)
	r := roster.New()
	adapter := New(srv.Client(t), r, nil)

	_, err := adapter.Submit(context.Background(), []byte("PK"), "people.docx")
	var unsupported *UnsupportedFormatError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, ".docx", unsupported.Extension)
	assert.Zero(t, srv.TotalCalls())
}

func TestCheckExtension(t *testing.T) {
	for _, name := range []string{"a.json", "b.YAML", "c.yml", "dir/d.toml", "e.csv", "f.TSV"} {
		assert.NoError(t, CheckExtension(name), name)
	}
	for _, name := range []string{"roster", "a.txt", "b.json.bak"} {
		assert.Error(t, CheckExtension(name), name)
	}
}

func TestSubmitReplacesRoster(t *testing.T) {
	srv := backendtest.New(t)
	srv.OnUpload(func(in backendtest.Upload) backendtest.Reply {
		return backendtest.JSON(backend.UploadResponse{
			Success: true,
			Format:  "csv",
			Participants: []participant.Participant{
				participant.New("Alice", "email", "alice@example.com", "Bob"),
				participant.New("Bob", "email", "bob@example.com", ""),
				participant.New("Carol", "slack", "@carol", ""),
			},
			Validation: &backend.ValidationResponse{Valid: true, TotalParticipants: 3, MinCompatibility: 1, AvgCompatibility: 1.5},
		})
	})
	r := roster.New()
	_, err := r.Add(participant.New("Zed", "stdout", "", ""))
	require.NoError(t, err)

	result, err := New(srv.Client(t), r, nil).Submit(context.Background(), []byte("name\nAlice\n"), "/tmp/people.csv")
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice", "Bob", "Carol"}, r.Names())
	assert.Equal(t, 3, result.Count)
	assert.Equal(t, "Loaded 3 participants from CSV", result.Summary())
	require.NotNil(t, result.Validation)
	assert.True(t, result.Validation.Valid())
	assert.True(t, result.Validation.FromImport())
	assert.Equal(t, 1, srv.Calls(backendtest.PathUpload))
	assert.Zero(t, srv.Calls(backendtest.PathValidate))
}

func TestSubmitSurfacesRawServiceError(t *testing.T) {
	srv := backendtest.New(t)
	srv.OnUpload(func(backendtest.Upload) backendtest.Reply {
		return backendtest.Text(http.StatusBadRequest, "Invalid file format: line 2: wrong number of fields\n")
	})
	r := roster.New()
	_, err := r.Add(participant.New("Zed", "stdout", "", ""))
	require.NoError(t, err)

	_, err = New(srv.Client(t), r, nil).Submit(context.Background(), []byte("x"), "people.csv")
	require.EqualError(t, err, "Invalid file format: line 2: wrong number of fields")
	assert.Equal(t, []string{"Zed"}, r.Names())
	assert.Equal(t, 1, srv.Calls(backendtest.PathUpload))
}

func TestSubmitRejectsDuplicateNamesFromService(t *testing.T) {
	srv := backendtest.New(t)
	srv.OnUpload(func(backendtest.Upload) backendtest.Reply {
		return backendtest.JSON(backend.UploadResponse{
			Success: true,
			Format:  "json",
			Participants: []participant.Participant{
				participant.New("Alice", "", "", ""),
				participant.New("Alice", "", "", ""),
			},
		})
	})
	r := roster.New()
	_, err := New(srv.Client(t), r, nil).Submit(context.Background(), []byte("[]"), "people.json")
	var dup *roster.DuplicateNameError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, []string{"Alice"}, dup.Names)
	assert.Zero(t, r.Count())
}
