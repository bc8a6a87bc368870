// Package participant holds the roster entry and assignment types shared by
// every component, plus the pure helpers that turn comma-delimited form input
// into clean string lists.
package participant

import (
	"strings"

	"github.com/samber/lo"
)

// Participant is one person in the gift exchange.
type Participant struct {
	Name             string   `json:"name" yaml:"name" validate:"required"`
	NotificationType string   `json:"notification_type" yaml:"notification_type"`
	ContactInfo      []string `json:"contact_info" yaml:"contact_info"`
	Exclusions       []string `json:"exclusions" yaml:"exclusions"`
}

// Assignment is a giver → recipient pair produced by the draw service. The
// remaining participant fields are echoed back by the service and kept so the
// results export carries the same shape the backend returned.
type Assignment struct {
	Name             string   `json:"name"`
	Recipient        string   `json:"recipient"`
	NotificationType string   `json:"notification_type,omitempty"`
	ContactInfo      []string `json:"contact_info,omitempty"`
	Exclusions       []string `json:"exclusions,omitempty"`
}

// New builds a participant from raw form fields.
func New(name, notificationType, contactInfo, exclusions string) Participant {
	return Participant{
		Name:             strings.TrimSpace(name),
		NotificationType: strings.TrimSpace(notificationType),
		ContactInfo:      ParseList(contactInfo),
		Exclusions:       ParseSet(exclusions),
	}
}

// Channel splits the notification type into its channel and optional account
// ("email:notify" → "email", "notify").
func (p Participant) Channel() (string, string) {
	typ, account, _ := strings.Cut(p.NotificationType, ":")
	return strings.TrimSpace(typ), strings.TrimSpace(account)
}

// Excludes reports whether name is on this participant's exclusion list.
func (p Participant) Excludes(name string) bool {
	return lo.Contains(p.Exclusions, name)
}

// Clone returns a deep copy so callers can't alias roster slices.
func (p Participant) Clone() Participant {
	p.ContactInfo = cloneStrings(p.ContactInfo)
	p.Exclusions = cloneStrings(p.Exclusions)
	return p
}

// ParseList splits a comma-delimited field, trims every entry and drops the
// empty ones. Order is kept and duplicates survive.
func ParseList(raw string) []string {
	parts := lo.Map(strings.Split(raw, ","), func(item string, _ int) string {
		return strings.TrimSpace(item)
	})
	out := lo.Compact(parts)
	if out == nil {
		return []string{}
	}
	return out
}

// ParseSet is ParseList with order-preserving de-duplication.
func ParseSet(raw string) []string {
	return lo.Uniq(ParseList(raw))
}

func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}
