// Package logger provides colored output for the command line tools.
package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// Logger provides colored output functions for CLI feedback.
type Logger struct {
	out     io.Writer
	errOut  io.Writer
	noColor bool
	verbose bool
}

// New creates a Logger writing to stdout and stderr. Color is disabled when
// stdout is not a terminal.
func New() *Logger {
	l := &Logger{
		out:    os.Stdout,
		errOut: os.Stderr,
	}
	l.SetNoColor(!term.IsTerminal(int(os.Stdout.Fd())))
	return l
}

// NewWithWriters creates a Logger without color writing to out and errOut.
func NewWithWriters(out, errOut io.Writer) *Logger {
	return &Logger{out: out, errOut: errOut, noColor: true}
}

// Discard drops everything.
func Discard() *Logger {
	return NewWithWriters(io.Discard, io.Discard)
}

// SetNoColor disables colored output.
func (l *Logger) SetNoColor(noColor bool) {
	l.noColor = noColor
}

// SetVerbose enables debug output.
func (l *Logger) SetVerbose(verbose bool) {
	l.verbose = verbose
}

// Writer is where plain output (build logs, rendered YAML) goes.
func (l *Logger) Writer() io.Writer {
	return l.out
}

func (l *Logger) print(w io.Writer, attr color.Attribute, prefix, format string, args ...interface{}) {
	c := color.New(attr)
	if l.noColor {
		c.DisableColor()
	} else {
		c.EnableColor()
	}
	c.Fprintf(w, prefix+format+"\n", args...)
}

// Info prints an informational message in default color.
func (l *Logger) Info(format string, args ...interface{}) {
	fmt.Fprintf(l.out, format+"\n", args...)
}

// Warn prints a warning message in yellow.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.print(l.errOut, color.FgYellow, "Warning: ", format, args...)
}

// Error prints an error message in red.
func (l *Logger) Error(format string, args ...interface{}) {
	l.print(l.errOut, color.FgRed, "Error: ", format, args...)
}

// Success prints a success message in green with checkmark.
func (l *Logger) Success(format string, args ...interface{}) {
	l.print(l.out, color.FgGreen, "✓ ", format, args...)
}

// Debug prints a debug message if verbose mode is enabled.
func (l *Logger) Debug(format string, args ...interface{}) {
	if !l.verbose {
		return
	}
	l.print(l.out, color.FgHiBlack, "[DEBUG] ", format, args...)
}

// Bold prints a message in bold.
func (l *Logger) Bold(format string, args ...interface{}) {
	l.print(l.out, color.Bold, "", format, args...)
}
