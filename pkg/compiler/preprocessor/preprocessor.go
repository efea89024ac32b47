// Package preprocessor normalizes VM source text: it removes line and block
// comments, trims whitespace and drops blank lines, keeping the original line
// numbers of the commands that survive.
package preprocessor

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	lineComment = "//"
	blockOpen   = "/*"
	blockClose  = "*/"
)

var (
	// ErrMalformedComment is returned when a line carries more than one
	// block-open or more than one block-close marker.
	ErrMalformedComment = errors.New("malformed block comment")

	// ErrEmptySource is returned when no command line survives normalization.
	ErrEmptySource = errors.New("no readable lines")
)

// Line is one surviving command line.
type Line struct {
	Number int    // 1-indexed line number in the raw source
	Column int    // 1-indexed column of the first character of Text in the raw line
	Text   string // trimmed, comment-free command text
}

// CommentError reports a block-comment marker violation.
type CommentError struct {
	Line    int
	Column  int
	Marker  string
	Message string
}

// Error implements the error interface.
func (e *CommentError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// Unwrap lets errors.Is match ErrMalformedComment.
func (e *CommentError) Unwrap() error {
	return ErrMalformedComment
}

// Preprocessor strips comments from raw source lines.
// A Preprocessor carries block-comment state between lines and is reset by
// every call to Process.
type Preprocessor struct {
	inBlock bool
}

// New creates a new preprocessor.
func New() *Preprocessor {
	return &Preprocessor{}
}

// Process normalizes raw source lines.
// On a malformed comment it stops immediately and returns no lines.
func (p *Preprocessor) Process(raw []string) ([]Line, error) {
	p.inBlock = false

	var lines []Line
	for i, r := range raw {
		text, err := p.stripLine(r)
		if err != nil {
			var ce *CommentError
			if errors.As(err, &ce) {
				ce.Line = i + 1
				ce.Column = runeColumn(r, strings.LastIndex(r, ce.Marker))
			}
			return nil, err
		}
		if text == "" {
			continue
		}
		lines = append(lines, Line{
			Number: i + 1,
			Column: columnOf(r, text),
			Text:   text,
		})
	}

	if len(lines) == 0 {
		return nil, ErrEmptySource
	}
	return lines, nil
}

// Unterminated reports whether the last processed input ended inside a block comment.
func (p *Preprocessor) Unterminated() bool {
	return p.inBlock
}

// stripLine removes comments from one raw line and trims the remainder.
func (p *Preprocessor) stripLine(s string) (string, error) {
	if p.inBlock {
		if n := strings.Count(s, blockClose); n > 1 {
			return "", markerError(blockClose, n)
		}
		end := strings.Index(s, blockClose)
		if end < 0 {
			return "", nil
		}
		p.inBlock = false
		s = s[end+len(blockClose):]
	}

	s = cutLineComment(s)

	if n := strings.Count(s, blockOpen); n > 1 {
		return "", markerError(blockOpen, n)
	}
	start := strings.Index(s, blockOpen)
	if start < 0 {
		return strings.TrimSpace(s), nil
	}

	before, rest := s[:start], s[start+len(blockOpen):]
	if n := strings.Count(rest, blockClose); n > 1 {
		return "", markerError(blockClose, n)
	}
	end := strings.Index(rest, blockClose)
	if end < 0 {
		p.inBlock = true
		return strings.TrimSpace(before), nil
	}

	after := cutLineComment(rest[end+len(blockClose):])
	return strings.TrimSpace(strings.TrimSpace(before) + " " + strings.TrimSpace(after)), nil
}

// cutLineComment drops a "//" comment unless a block comment opens first.
func cutLineComment(s string) string {
	i := strings.Index(s, lineComment)
	if i < 0 {
		return s
	}
	if j := strings.Index(s, blockOpen); j >= 0 && j < i {
		return s
	}
	return s[:i]
}

func markerError(marker string, count int) *CommentError {
	return &CommentError{
		Marker:  marker,
		Message: fmt.Sprintf("found %d %q markers on one line", count, marker),
	}
}

// columnOf returns the 1-based rune column where text starts in raw.
func columnOf(raw, text string) int {
	if i := strings.Index(raw, text); i >= 0 {
		return runeColumn(raw, i)
	}
	return runeColumn(raw, len(raw)-len(strings.TrimLeft(raw, " \t")))
}

// runeColumn converts a byte offset in s to a 1-based rune column.
func runeColumn(s string, offset int) int {
	return utf8.RuneCountInString(s[:offset]) + 1
}
