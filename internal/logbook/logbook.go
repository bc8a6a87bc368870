// Package logbook is the operator-facing activity journal: short lines such as
// "Added Alice" or "Draw failed: ..." that the TUI shows in its log panel and
// that survive in .secretsanta/logs/journal.log. Recipients never go here.
package logbook

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a log entry.
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// retained bounds the entries kept in memory for Tail.
const retained = 200

// Logbook appends entries to a text file. A Logbook with an empty path keeps
// entries in memory only. Tail is served from memory; the file is read once,
// when the logbook is opened.
type Logbook struct {
	path string
	now  func() time.Time

	mu      sync.Mutex
	entries []string
	total   int
}

// New creates a logbook that writes to the provided path.
func New(path string) (*Logbook, error) {
	book := &Logbook{path: path, now: time.Now}
	if path == "" {
		return book, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	if err := book.load(); err != nil {
		return nil, err
	}
	return book, nil
}

// InMemory returns a logbook without a backing file.
func InMemory() *Logbook {
	return &Logbook{now: time.Now}
}

// Path returns the file backing this logbook.
func (l *Logbook) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Append writes a single entry to the logbook.
func (l *Logbook) Append(level Level, message string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	line := fmt.Sprintf("%s %-5s %s",
		l.now().Format("15:04:05"),
		string(level),
		strings.Join(strings.Fields(message), " "),
	)
	l.remember(line)
	if l.path == "" {
		return
	}
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	defer file.Close()
	_, _ = file.WriteString(line + "\n")
}

// Tail returns up to maxLines of the most recent entries and the total number
// of entries recorded.
func (l *Logbook) Tail(maxLines int) ([]string, int) {
	if l == nil {
		return nil, 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if maxLines <= 0 || len(l.entries) == 0 {
		return nil, l.total
	}
	lines := l.entries
	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	return append([]string(nil), lines...), l.total
}

func (l *Logbook) remember(line string) {
	l.total++
	l.entries = append(l.entries, line)
	if len(l.entries) > retained {
		l.entries = append([]string(nil), l.entries[len(l.entries)-retained:]...)
	}
}

// load picks up entries from earlier sessions.
func (l *Logbook) load() error {
	file, err := os.Open(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer file.Close()
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		l.remember(scanner.Text())
	}
	return scanner.Err()
}

// Info appends an informational entry.
func (l *Logbook) Info(format string, args ...any) {
	l.Append(LevelInfo, fmt.Sprintf(format, args...))
}

// Warn appends a warning entry.
func (l *Logbook) Warn(format string, args ...any) {
	l.Append(LevelWarn, fmt.Sprintf(format, args...))
}

// Error appends an error entry.
func (l *Logbook) Error(format string, args ...any) {
	l.Append(LevelError, fmt.Sprintf(format, args...))
}
