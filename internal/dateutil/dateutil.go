// Package dateutil converts user-friendly date formats to Go layouts.
// It renders \today in post title blocks.
package dateutil

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidDateFormat indicates an invalid date format string.
var ErrInvalidDateFormat = errors.New("invalid date format")

// MaxDateFormatLength limits format string length.
const MaxDateFormatLength = 50

// DefaultDateFormat matches LaTeX's \today in an English article.
const DefaultDateFormat = "MMMM D, YYYY"

// dateTokens is ordered longest first for greedy matching.
var dateTokens = []struct {
	token string
	goFmt string
}{
	{"YYYY", "2006"},
	{"MMMM", "January"},
	{"MMM", "Jan"},
	{"YY", "06"},
	{"MM", "01"},
	{"DD", "02"},
	{"M", "1"},
	{"D", "2"},
}

// DatePresets provides named shortcuts for common date formats.
var DatePresets = map[string]string{
	"iso":      "YYYY-MM-DD",
	"european": "DD/MM/YYYY",
	"us":       "MM/DD/YYYY",
	"long":     DefaultDateFormat,
}

// ParseDateFormat converts a format string to Go's time layout.
// Tokens: YYYY, YY, MMMM, MMM, MM, M, DD, D. Text in brackets is kept
// literally ("[Week of] D" keeps "Week of"), as is any other character.
func ParseDateFormat(format string) (string, error) {
	if format == "" {
		return "", fmt.Errorf("%w: format cannot be empty", ErrInvalidDateFormat)
	}
	if len(format) > MaxDateFormatLength {
		return "", fmt.Errorf("%w: format exceeds %d characters", ErrInvalidDateFormat, MaxDateFormatLength)
	}

	var b strings.Builder
	b.Grow(len(format) + 10)

	for i := 0; i < len(format); {
		if format[i] == '[' {
			end := strings.IndexByte(format[i+1:], ']')
			if end == -1 {
				return "", fmt.Errorf("%w: unclosed bracket at position %d", ErrInvalidDateFormat, i)
			}
			b.WriteString(format[i+1 : i+1+end])
			i += end + 2
			continue
		}
		i += writeToken(&b, format[i:])
	}
	return b.String(), nil
}

// writeToken writes the layout for the token at the start of s, or the
// first byte when no token matches, and returns how much of s it consumed.
func writeToken(b *strings.Builder, s string) int {
	for _, t := range dateTokens {
		if strings.HasPrefix(s, t.token) {
			b.WriteString(t.goFmt)
			return len(t.token)
		}
	}
	b.WriteByte(s[0])
	return 1
}

// Layout resolves a preset name (case-insensitive) or a format string to a
// Go layout.
func Layout(format string) (string, error) {
	if preset, ok := DatePresets[strings.ToLower(strings.TrimSpace(format))]; ok {
		format = preset
	}
	return ParseDateFormat(format)
}

// Formatter returns a function rendering now() with the given format.
// A nil now uses time.Now.
func Formatter(format string, now func() time.Time) (func() string, error) {
	layout, err := Layout(format)
	if err != nil {
		return nil, err
	}
	if now == nil {
		now = time.Now
	}
	return func() string { return now().Format(layout) }, nil
}
