package validation

import (
	"fmt"
	"slices"
	"strings"

	"github.com/kingrea/secretsanta/internal/backend"
)

// Report is a received validation result. Fields are unexported so a report
// can't change after it arrives; accessors hand out copies.
type Report struct {
	valid      bool
	total      int
	minCompat  int
	avgCompat  float64
	errors     []string
	warnings   []string
	noOptions  []string
	fromImport bool
}

// FromResponse freezes a wire response into a Report.
func FromResponse(resp backend.ValidationResponse) Report {
	return Report{
		valid:     resp.Valid,
		total:     resp.TotalParticipants,
		minCompat: resp.MinCompatibility,
		avgCompat: resp.AvgCompatibility,
		errors:    slices.Clone(resp.Errors),
		warnings:  slices.Clone(resp.Warnings),
		noOptions: slices.Clone(resp.ParticipantsWithNoOptions),
	}
}

// Valid reports whether the roster can be drawn.
func (r Report) Valid() bool { return r.valid }

// TotalParticipants is the service's count of the validated roster.
func (r Report) TotalParticipants() int { return r.total }

// MinCompatibility is the smallest number of eligible recipients any
// participant has, as computed by the service.
func (r Report) MinCompatibility() int { return r.minCompat }

// AvgCompatibility is the mean number of eligible recipients.
func (r Report) AvgCompatibility() float64 { return r.avgCompat }

// Errors lists why an invalid roster can't be drawn.
func (r Report) Errors() []string { return slices.Clone(r.errors) }

// Warnings are advisory messages present on valid and invalid reports.
func (r Report) Warnings() []string { return slices.Clone(r.warnings) }

// ParticipantsWithNoOptions names participants left with no eligible recipient.
func (r Report) ParticipantsWithNoOptions() []string { return slices.Clone(r.noOptions) }

// FromImport reports whether the report arrived embedded in an upload response.
func (r Report) FromImport() bool { return r.fromImport }

// Imported marks a copy of the report as coming from an import.
func (r Report) Imported() Report {
	r.fromImport = true
	return r
}

// Title is the panel heading.
func (r Report) Title() string {
	if r.valid {
		return "✓ Configuration is Valid"
	}
	return "✗ Configuration is Invalid"
}

// Lines renders the report body for the results panel.
func (r Report) Lines() []string {
	var lines []string
	if r.valid {
		lines = append(lines,
			fmt.Sprintf("Total Participants: %d", r.total),
			fmt.Sprintf("Minimum Compatibility: %d", r.minCompat),
			fmt.Sprintf("Average Compatibility: %.1f", r.avgCompat),
		)
	} else {
		lines = append(lines, "Errors:")
		for _, e := range r.errors {
			lines = append(lines, "  • "+e)
		}
		if len(r.noOptions) > 0 {
			lines = append(lines, "No eligible recipients: "+strings.Join(r.noOptions, ", "))
		}
	}
	if len(r.warnings) > 0 {
		lines = append(lines, "⚠ Warnings:")
		for _, w := range r.warnings {
			lines = append(lines, "  • "+w)
		}
	}
	return lines
}
