package roster

import (
	"errors"
	"fmt"
	"strings"
)

// MinParticipants is the smallest roster the draw and validation services accept.
const MinParticipants = 2

var (
	// ErrEmptyName rejects participants whose name is blank after trimming.
	ErrEmptyName = errors.New("roster: participant name is required")
	// ErrInsufficientParticipants is returned locally, before any request, when
	// fewer than MinParticipants are on the roster.
	ErrInsufficientParticipants = fmt.Errorf("roster: need at least %d participants", MinParticipants)
)

// DuplicateNameError lists every name that collided.
type DuplicateNameError struct {
	Names []string
}

func (e *DuplicateNameError) Error() string {
	if len(e.Names) == 1 {
		return fmt.Sprintf("roster: participant %q already exists", e.Names[0])
	}
	return fmt.Sprintf("roster: duplicate participant names: %s", strings.Join(e.Names, ", "))
}

// IndexOutOfRangeError is returned by Remove and Get.
type IndexOutOfRangeError struct {
	Index int
	Len   int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("roster: index %d out of range [0,%d)", e.Index, e.Len)
}
