// Package ui renders agent output to the terminal.
package ui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Color definitions for consistent UI
var (
	// Brown color for startup info
	brownColor = color.New(color.FgYellow, color.Faint)

	// Gray color for tool calls
	grayColor = color.New(color.FgWhite, color.Faint)

	// Red for errors
	errorColor = color.New(color.FgRed)

	// Yellow for warnings
	warnColor = color.New(color.FgYellow)

	// White for assistant responses
	whiteColor = color.New(color.FgWhite)
)

// Writer provides formatted output with consistent prefixes and optional colors.
type Writer struct {
	quiet  bool
	stderr io.Writer
	stdout io.Writer
}

// NewWriter creates a new Writer. In quiet mode only assistant output and
// errors are shown.
func NewWriter(quiet bool) *Writer {
	return &Writer{
		quiet:  quiet,
		stderr: os.Stderr,
		stdout: os.Stdout,
	}
}

// SetOutput redirects both streams, used by tests.
func (w *Writer) SetOutput(out io.Writer) {
	w.stdout = out
	w.stderr = out
}

// StartupInfo prints session info shown once at startup.
func (w *Writer) StartupInfo(msg string) {
	if w.quiet {
		return
	}
	brownColor.Fprintln(w.stderr, msg)
}

// Info prints a general informational message.
func (w *Writer) Info(msg string) {
	if w.quiet {
		return
	}
	fmt.Fprintf(w.stderr, "[info] %s\n", msg)
}

// Warn prints a warning message.
func (w *Writer) Warn(msg string) {
	if w.quiet {
		return
	}
	warnColor.Fprintf(w.stderr, "[warn] %s\n", msg)
}

// Error prints an error message. Never suppressed.
func (w *Writer) Error(msg string) {
	errorColor.Fprintf(w.stderr, "[error] %s\n", msg)
}

// Assistant prints the model's text response.
func (w *Writer) Assistant(msg string) {
	whiteColor.Fprintf(w.stdout, "\n%s\n", msg)
}

// ToolCall prints a requested tool invocation with a short argument preview.
func (w *Writer) ToolCall(name string, input json.RawMessage) {
	if w.quiet {
		return
	}
	grayColor.Fprintf(w.stderr, "→ %s %s\n", name, compactArgs(input))
}

// ToolResult prints the outcome of a tool call.
func (w *Writer) ToolResult(name, result string, isError bool) {
	if w.quiet {
		return
	}
	if isError {
		errorColor.Fprintf(w.stderr, "← %s: %s\n", name, firstLine(result))
		return
	}
	grayColor.Fprintf(w.stderr, "← %s (%d bytes)\n", name, len(result))
}

// Prompt prints the interactive input marker.
func (w *Writer) Prompt() {
	fmt.Fprint(w.stdout, "\nYou: ")
}

func compactArgs(input json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, input); err != nil {
		return string(input)
	}
	s := buf.String()
	if len(s) > 120 {
		s = s[:117] + "..."
	}
	return s
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
