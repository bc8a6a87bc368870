package backend

import (
	"encoding/json"
	"fmt"

	"github.com/kingrea/secretsanta/internal/participant"
)

// ValidationResponse is the body of POST /api/validate and the optional
// "validation" member of an upload response.
type ValidationResponse struct {
	Valid                     bool     `json:"valid"`
	Errors                    []string `json:"errors,omitempty"`
	Warnings                  []string `json:"warnings,omitempty"`
	ParticipantsWithNoOptions []string `json:"participants_with_no_options,omitempty"`
	MinCompatibility          int      `json:"min_compatibility"`
	AvgCompatibility          float64  `json:"avg_compatibility"`
	TotalParticipants         int      `json:"total_participants"`
}

// UploadResponse is the success body of POST /api/upload.
type UploadResponse struct {
	Success      bool                      `json:"success"`
	Participants []participant.Participant `json:"participants"`
	Format       string                    `json:"format"`
	Validation   *ValidationResponse       `json:"validation,omitempty"`
}

// DrawRequest is the body of POST /api/draw.
type DrawRequest struct {
	Participants []participant.Participant `json:"participants"`
	ArchiveEmail string                    `json:"archive_email,omitempty"`
}

// DrawResponse is returned for both feasible and infeasible draws.
type DrawResponse struct {
	Success      bool                     `json:"success"`
	Participants []participant.Assignment `json:"participants,omitempty"`
	Error        string                   `json:"error,omitempty"`
}

// NotifierInfo describes one notification channel. The status endpoint may
// send either a bare type string or an object.
type NotifierInfo struct {
	Type           string   `json:"type"`
	Accounts       []string `json:"accounts,omitempty"`
	DefaultAccount string   `json:"default_account,omitempty"`
}

// UnmarshalJSON accepts "email" as well as {"type":"email",...}.
func (n *NotifierInfo) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*n = NotifierInfo{Type: name}
		return nil
	}
	type plain NotifierInfo
	var obj plain
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("backend: notifier entry: %w", err)
	}
	*n = NotifierInfo(obj)
	return nil
}

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	Available       []NotifierInfo    `json:"available"`
	UsingNotifier   bool              `json:"using_notifier,omitempty"`
	NotifierHealthy bool              `json:"notifier_healthy,omitempty"`
	NotifierStatus  string            `json:"notifier_status,omitempty"`
	NotifierDetails map[string]string `json:"notifier_details,omitempty"`
	SMTPConfigured  bool              `json:"smtp_configured,omitempty"`
}

// DownloadRequest is the body of POST /api/download.
type DownloadRequest struct {
	Participants []participant.Participant `json:"participants"`
	Format       string                    `json:"format"`
}

// File is a downloaded attachment.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}
