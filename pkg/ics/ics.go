// Package ics renders a task as a single-event iCalendar file (RFC 5545).
package ics

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/harrisonrobin/taskboard/pkg/model"
)

const (
	// EventLength is the duration given to exported events.
	EventLength = time.Hour

	stampLayout = "20060102T150405Z"
	maxLine     = 75
)

var textEscaper = strings.NewReplacer(
	`\`, `\\`,
	";", `\;`,
	",", `\,`,
	":", `\:`,
	"\r\n", `\n`,
	"\n", `\n`,
)

// Escape escapes a TEXT value.
func Escape(s string) string {
	return textEscaper.Replace(s)
}

// Export renders t as a VCALENDAR with one VEVENT. stamp is the DTSTAMP.
func Export(t model.Task, stamp time.Time) string {
	start := t.Due.UTC()
	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//taskboard//taskboard//EN",
		"CALSCALE:GREGORIAN",
		"BEGIN:VEVENT",
		"UID:" + t.ID + "@taskboard",
		"DTSTAMP:" + stamp.UTC().Format(stampLayout),
		"DTSTART:" + start.Format(stampLayout),
		"DTEND:" + start.Add(EventLength).Format(stampLayout),
		"SUMMARY:" + Escape(t.Title),
		"DESCRIPTION:" + Escape(t.Description),
		"END:VEVENT",
		"END:VCALENDAR",
	}

	var b strings.Builder
	for _, l := range lines {
		b.WriteString(fold(l))
		b.WriteString("\r\n")
	}
	return b.String()
}

// fold splits a content line into chunks of at most 75 octets, never
// inside a UTF-8 sequence. Continuation lines start with a space.
func fold(line string) string {
	if len(line) <= maxLine {
		return line
	}
	var b strings.Builder
	limit := maxLine
	for len(line) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(line[cut]) {
			cut--
		}
		b.WriteString(line[:cut])
		b.WriteString("\r\n ")
		line = line[cut:]
		limit = maxLine - 1
	}
	b.WriteString(line)
	return b.String()
}

// Filename derives a file name from the task title: ASCII letters, digits
// and spaces are kept and whitespace runs become underscores. A title with
// nothing left falls back to the task id.
func Filename(t model.Task) string {
	var b strings.Builder
	for _, r := range t.Title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == ' ':
			b.WriteRune(r)
		}
	}
	name := strings.Join(strings.Fields(b.String()), "_")
	if name == "" {
		name = t.ID
	}
	return name + ".ics"
}

// WriteFile writes the export into dir and returns the path.
func WriteFile(dir string, t model.Task, stamp time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}
	path := filepath.Join(dir, Filename(t))
	if err := os.WriteFile(path, []byte(Export(t, stamp)), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
