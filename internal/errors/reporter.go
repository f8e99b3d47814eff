package errors

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
)

// ErrorLevel represents the severity of a diagnostic
type ErrorLevel string

const (
	Error   ErrorLevel = "error"
	Warning ErrorLevel = "warning"
	Note    ErrorLevel = "note"
	Help    ErrorLevel = "help"
)

// Position is a 1-based location in an IR source file
type Position struct {
	Filename string
	Line     int
	Column   int
}

func (p Position) String() string {
	return fmt.Sprintf("%s:%d:%d", p.Filename, p.Line, p.Column)
}

// CompilerError represents a structured diagnostic with context
type CompilerError struct {
	Level    ErrorLevel
	Code     string   // Error code like E0001
	Message  string   // Primary error message
	Position Position // Location in source
	Length   int      // Length of the problematic region
	Notes    []string // Additional context notes
	HelpText string   // Help text for the error
}

func (e CompilerError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s[%s]: %s", e.Position, e.Level, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Position, e.Level, e.Message)
}

// HasErrors reports whether any diagnostic is error-level
func HasErrors(diagnostics []CompilerError) bool {
	for _, d := range diagnostics {
		if d.Level == Error {
			return true
		}
	}
	return false
}

// ErrorReporter renders diagnostics against the source they came from
type ErrorReporter struct {
	filename string
	lines    []string
}

// NewErrorReporter creates a new error reporter for a file
func NewErrorReporter(filename, source string) *ErrorReporter {
	return &ErrorReporter{
		filename: filename,
		lines:    strings.Split(source, "\n"),
	}
}

var levelStyles = map[ErrorLevel]*color.Color{
	Error:   color.New(color.FgRed, color.Bold),
	Warning: color.New(color.FgYellow, color.Bold),
	Note:    color.New(color.FgBlue, color.Bold),
	Help:    color.New(color.FgGreen, color.Bold),
}

func levelStyle(level ErrorLevel) *color.Color {
	if style, ok := levelStyles[level]; ok {
		return style
	}
	return levelStyles[Error]
}

// FormatError renders one diagnostic:
//
//	error[E0001]: use of undefined value '%q'
//	    --> f.ir:3:22
//	    │
//	  3 │   %x = load i32, ptr %q
//	    │                      ^^
func (er *ErrorReporter) FormatError(err CompilerError) string {
	var b strings.Builder

	style := levelStyle(err.Level)
	dim := color.New(color.Faint).SprintFunc()

	header := string(err.Level)
	if err.Code != "" {
		header = fmt.Sprintf("%s[%s]", err.Level, err.Code)
	}
	fmt.Fprintf(&b, "%s: %s\n", style.Sprint(header), err.Message)

	width := max(len(strconv.Itoa(err.Position.Line)), 3)
	gutter := strings.Repeat(" ", width) + " " + dim("│")

	fmt.Fprintf(&b, "%s %s %s:%d:%d\n", strings.Repeat(" ", width), dim("-->"),
		er.filename, err.Position.Line, err.Position.Column)
	fmt.Fprintln(&b, gutter)

	if line, ok := er.line(err.Position.Line); ok {
		number := color.New(color.Bold).Sprintf("%*d", width, err.Position.Line)
		fmt.Fprintf(&b, "%s %s %s\n", number, dim("│"), line)
		fmt.Fprintf(&b, "%s %s\n", gutter, er.createMarker(err.Position.Column, err.Length, err.Level, line))
	}

	for _, note := range err.Notes {
		fmt.Fprintf(&b, "%s %s %s\n", gutter, levelStyle(Note).Sprint("note:"), note)
	}
	if err.HelpText != "" {
		fmt.Fprintf(&b, "%s %s %s\n", gutter, levelStyle(Help).Sprint("help:"), err.HelpText)
	}

	b.WriteString("\n")
	return b.String()
}

// FormatAll formats every diagnostic in order
func (er *ErrorReporter) FormatAll(diagnostics []CompilerError) string {
	var b strings.Builder
	for _, d := range diagnostics {
		b.WriteString(er.FormatError(d))
	}
	return b.String()
}

func (er *ErrorReporter) line(n int) (string, bool) {
	if n < 1 || n > len(er.lines) {
		return "", false
	}
	return strings.TrimRight(er.lines[n-1], "\r"), true
}

// createMarker underlines length characters starting at column. Tabs before
// the column are kept so the carets line up with the excerpt.
func (er *ErrorReporter) createMarker(column, length int, level ErrorLevel, line string) string {
	length = max(length, 1)

	var pad strings.Builder
	for i, r := range []rune(line) {
		if i >= column-1 {
			break
		}
		if r == '\t' {
			pad.WriteRune('\t')
		} else {
			pad.WriteRune(' ')
		}
	}
	for i := len([]rune(line)); i < column-1; i++ {
		pad.WriteRune(' ')
	}

	return pad.String() + levelStyle(level).Sprint(strings.Repeat("^", length))
}

// Summary counts diagnostics by level, e.g. "2 errors, 1 warning"
func Summary(diagnostics []CompilerError) string {
	var errs, warnings int
	for _, d := range diagnostics {
		switch d.Level {
		case Error:
			errs++
		case Warning:
			warnings++
		}
	}

	var parts []string
	if errs > 0 {
		parts = append(parts, plural(errs, "error"))
	}
	if warnings > 0 {
		parts = append(parts, plural(warnings, "warning"))
	}
	if len(parts) == 0 {
		return "no diagnostics"
	}
	return strings.Join(parts, ", ")
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}
