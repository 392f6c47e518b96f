// Package logbook records session activity — saves, deletes, refreshes, and
// their failures — to a plain text file, and feeds the most recent entries
// back to the UI's log panel as structured values so the panel can style
// warnings and errors differently from routine lines.
package logbook

import (
	"bufio"
	"fmt"
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

// lineLayout is the on-disk timestamp format. Local time, because the file
// is a user-facing session journal, not a machine log.
const lineLayout = "2006-01-02 15:04:05"

const fieldSep = " | "

// Entry is one parsed logbook line.
type Entry struct {
	Time    time.Time
	Level   Level
	Message string
}

// String renders an entry for the UI panel: session-local clock, level tag,
// message. The date is dropped; the panel only ever shows the last few
// minutes of activity.
func (e Entry) String() string {
	return fmt.Sprintf("%s %-5s %s", e.Time.Format("15:04:05"), string(e.Level), e.Message)
}

// Logbook appends timestamped entries to a single file.
type Logbook struct {
	path string
	mu   sync.Mutex
}

// New creates a logbook that writes to the provided path.
func New(path string) (*Logbook, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &Logbook{path: path}, nil
}

// Path returns the file backing this logbook.
func (l *Logbook) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Append writes a single entry. Logging is best-effort: a write failure is
// swallowed so it can never take the UI down with it.
func (l *Logbook) Append(level Level, message string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	line := time.Now().Format(lineLayout) + fieldSep + string(level) + fieldSep +
		strings.TrimSpace(message) + "\n"
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	defer file.Close()
	_, _ = file.WriteString(line)
}

// Tail returns up to max of the most recent entries, oldest first.
func (l *Logbook) Tail(max int) []Entry {
	return l.tail(max, func(Entry) bool { return true })
}

// TailLevel returns up to max of the most recent entries at or above the
// given severity, oldest first. LevelWarn selects warnings and errors.
func (l *Logbook) TailLevel(min Level, max int) []Entry {
	return l.tail(max, func(e Entry) bool { return severity(e.Level) >= severity(min) })
}

func (l *Logbook) tail(max int, keep func(Entry) bool) []Entry {
	if l == nil || max <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	file, err := os.Open(l.path)
	if err != nil {
		return nil
	}
	defer file.Close()

	var entries []Entry
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		entry := parseLine(scanner.Text())
		if keep(entry) {
			entries = append(entries, entry)
		}
	}
	if len(entries) > max {
		entries = entries[len(entries)-max:]
	}
	return entries
}

// parseLine recovers an Entry from a stored line. A line that does not split
// into timestamp | level | message degrades to an info entry carrying the
// raw text, so a hand-edited or truncated file still renders.
func parseLine(line string) Entry {
	parts := strings.SplitN(line, fieldSep, 3)
	if len(parts) == 3 {
		if ts, err := time.ParseInLocation(lineLayout, parts[0], time.Local); err == nil {
			return Entry{Time: ts, Level: Level(parts[1]), Message: parts[2]}
		}
	}
	return Entry{Level: LevelInfo, Message: line}
}

func severity(level Level) int {
	switch level {
	case LevelError:
		return 2
	case LevelWarn:
		return 1
	default:
		return 0
	}
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
