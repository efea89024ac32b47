// Package compiler runs the translation pipeline for VM source files.
// This file defines the CompileError type for structured error reporting.
package compiler

import (
	"fmt"
	"strings"
)

// Compilation phases reported in CompileError.Phase.
const (
	PhasePreprocess = "preprocess"
	PhaseDecode     = "decode"
	PhaseGenerate   = "generate"
	PhaseRead       = "read"
)

// CompileError represents a translation error with location information.
// Err holds the phase error it was built from, so errors.Is and errors.As
// see through it to the sentinel of the failing phase.
type CompileError struct {
	// Phase indicates which stage generated the error.
	Phase string

	// File is the source file name, empty for in-memory input.
	File string

	Message string

	// Line and Column are 1-indexed; 0 means unknown.
	Line   int
	Column int

	// Context contains the source lines around the error location with a
	// pointer (^) indicating the error column.
	Context string

	Err error
}

// Error returns a formatted message including phase, location, message, and context.
func (e *CompileError) Error() string {
	var b strings.Builder
	if e.File != "" {
		b.WriteString(e.File)
		b.WriteString(": ")
	}
	fmt.Fprintf(&b, "%s error at line %d, column %d: %s", e.Phase, e.Line, e.Column, e.Message)
	if e.Context != "" {
		b.WriteString("\n")
		b.WriteString(e.Context)
	}
	return b.String()
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// newCompileError builds a CompileError with context rendered from the raw source lines.
func newCompileError(phase, file, message string, line, column int, raw []string, cause error) *CompileError {
	return &CompileError{
		Phase:   phase,
		File:    file,
		Message: message,
		Line:    line,
		Column:  column,
		Context: GenerateErrorContext(strings.Join(raw, "\n"), line, column),
		Err:     cause,
	}
}

// GenerateErrorContext generates source code context around an error location.
// It includes 2 lines before and 2 lines after the error line, with line numbers
// and a pointer (^) indicating the error column.
//
// Example output:
//
//	  2 | push constant 5
//	  3 | push constant 3
//	> 4 | push heap 1
//	    |      ^
//	  5 | add
//	  6 | neg
func GenerateErrorContext(source string, line, column int) string {
	if source == "" || line <= 0 {
		return ""
	}

	lines := strings.Split(source, "\n")
	if line > len(lines) {
		return ""
	}

	start := line - 3
	if start < 0 {
		start = 0
	}
	end := line + 2
	if end > len(lines) {
		end = len(lines)
	}

	var buf strings.Builder
	lineNumWidth := len(fmt.Sprintf("%d", end))

	for i := start; i < end; i++ {
		lineNum := i + 1
		if lineNum != line {
			fmt.Fprintf(&buf, "  %*d | %s\n", lineNumWidth, lineNum, lines[i])
			continue
		}

		fmt.Fprintf(&buf, "> %*d | %s\n", lineNumWidth, lineNum, lines[i])
		// "> " + number + " | "
		indent := 2 + lineNumWidth + 3
		if column > 1 {
			indent += column - 1
		}
		buf.WriteString(strings.Repeat(" ", indent))
		buf.WriteString("^\n")
	}

	return buf.String()
}
