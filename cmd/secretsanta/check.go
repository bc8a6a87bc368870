package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/kingrea/secretsanta/internal/participant"
	"github.com/kingrea/secretsanta/internal/session"
	"github.com/kingrea/secretsanta/internal/validation"
)

// handleCheckCommand runs `secretsanta check <file>`: import the file, print
// the roster and the validation report, exit non-zero when it cannot be drawn.
func handleCheckCommand(ctx context.Context, ctrl *session.Controller, args []string, out io.Writer) (bool, int) {
	if len(args) < 1 || args[0] != "check" {
		return false, 0
	}
	if len(args) != 2 {
		fmt.Fprintln(out, "Usage: secretsanta check /path/to/participants.csv")
		return true, 2
	}
	ok, err := runCheck(ctx, ctrl, args[1], out)
	if err != nil {
		fmt.Fprintf(out, "Check failed: %v\n", err)
		return true, 1
	}
	if !ok {
		return true, 1
	}
	return true, 0
}

func runCheck(ctx context.Context, ctrl *session.Controller, path string, out io.Writer) (bool, error) {
	result, err := ctrl.ImportFile(ctx, path)
	if err != nil {
		return false, err
	}
	fmt.Fprintln(out, result.Summary())
	renderRoster(out, ctrl.Participants())

	var report validation.Report
	if result.Validation != nil {
		report = *result.Validation
	} else {
		report, err = ctrl.Validate(ctx)
		if err != nil {
			return false, err
		}
	}
	fmt.Fprintln(out, report.Title())
	for _, line := range report.Lines() {
		fmt.Fprintln(out, line)
	}
	return report.Valid(), nil
}

func renderRoster(out io.Writer, participants []participant.Participant) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Name", "Notification", "Contact", "Exclusions"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	for _, p := range participants {
		table.Append([]string{
			p.Name,
			p.NotificationType,
			strings.Join(p.ContactInfo, ", "),
			strings.Join(p.Exclusions, ", "),
		})
	}
	table.Render()
}
