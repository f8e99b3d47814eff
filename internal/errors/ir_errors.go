package errors

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
)

// DiagnosticBuilder provides a fluent interface for creating diagnostics
type DiagnosticBuilder struct {
	err CompilerError
}

// NewError creates a new error-level diagnostic builder
func NewError(code, message string, pos Position) *DiagnosticBuilder {
	return &DiagnosticBuilder{
		err: CompilerError{
			Level:    Error,
			Code:     code,
			Message:  message,
			Position: pos,
			Length:   1,
		},
	}
}

// NewWarning creates a new warning-level diagnostic builder
func NewWarning(code, message string, pos Position) *DiagnosticBuilder {
	b := NewError(code, message, pos)
	b.err.Level = Warning
	return b
}

// WithLength sets the length of the error span
func (b *DiagnosticBuilder) WithLength(length int) *DiagnosticBuilder {
	b.err.Length = length
	return b
}

// WithNote adds a note to the error
func (b *DiagnosticBuilder) WithNote(note string) *DiagnosticBuilder {
	b.err.Notes = append(b.err.Notes, note)
	return b
}

// WithHelp adds help text to the error
func (b *DiagnosticBuilder) WithHelp(help string) *DiagnosticBuilder {
	b.err.HelpText = help
	return b
}

// Build returns the completed diagnostic
func (b *DiagnosticBuilder) Build() CompilerError {
	return b.err
}

// UndefinedValue reports a %name with no definition, suggesting close matches
func UndefinedValue(name string, pos Position, known []string) CompilerError {
	builder := NewError(ErrorUndefinedValue, fmt.Sprintf("use of undefined value '%%%s'", name), pos).
		WithLength(len(name) + 1)

	similar := findSimilarNames(name, known)
	switch len(similar) {
	case 0:
		builder = builder.WithHelp("values must be defined by a parameter or an earlier instruction")
	case 1:
		builder = builder.WithHelp(fmt.Sprintf("did you mean '%%%s'?", similar[0]))
	default:
		builder = builder.WithHelp(fmt.Sprintf("did you mean one of: '%%%s'?", strings.Join(similar, "', '%")))
	}
	return builder.Build()
}

// UndefinedLabel reports a branch to a missing block
func UndefinedLabel(label string, pos Position, known []string) CompilerError {
	builder := NewError(ErrorUndefinedLabel, fmt.Sprintf("branch to undefined block '%s'", label), pos).
		WithLength(len(label) + 1)
	if similar := findSimilarNames(label, known); len(similar) > 0 {
		builder = builder.WithHelp(fmt.Sprintf("did you mean '%s'?", similar[0]))
	}
	return builder.Build()
}

// UnknownType reports an unsupported type name
func UnknownType(name string, pos Position) CompilerError {
	return NewError(ErrorUnknownType, fmt.Sprintf("unknown type '%s'", name), pos).
		WithLength(len(name)).
		WithHelp("supported types are iN (1 <= N <= 65536), ptr and void").
		Build()
}

// DuplicateDefinition reports a name defined twice in the same scope
func DuplicateDefinition(kind, name string, pos Position) CompilerError {
	return NewError(ErrorDuplicateDefinition, fmt.Sprintf("%s '%s' is already defined", kind, name), pos).
		WithLength(len(name)).
		Build()
}

// TypeMismatch reports an operand whose type the instruction cannot accept
func TypeMismatch(expected, actual string, pos Position) CompilerError {
	return NewError(ErrorTypeMismatch, fmt.Sprintf("type mismatch: expected %s, found %s", expected, actual), pos).
		Build()
}

// MissingTerminator reports a block that does not end in ret or br
func MissingTerminator(label string, pos Position) CompilerError {
	return NewError(ErrorMissingTerminator, fmt.Sprintf("block '%s' does not end with a terminator", label), pos).
		WithLength(len(label)).
		WithHelp("end every block with exactly one 'ret' or 'br'").
		Build()
}

// InstructionAfterTerminator reports code following ret or br in the same block
func InstructionAfterTerminator(label string, pos Position) CompilerError {
	return NewError(ErrorMissingTerminator, fmt.Sprintf("instruction after terminator in block '%s'", label), pos).
		WithNote("a terminator must be the last instruction of its block").
		Build()
}

// MissingResult reports a value-producing instruction with no %name binding
func MissingResult(mnemonic string, pos Position) CompilerError {
	return NewError(ErrorResultBinding, fmt.Sprintf("result of '%s' must be bound to a name", mnemonic), pos).
		WithLength(len(mnemonic)).
		WithHelp(fmt.Sprintf("write '%%name = %s ...'", mnemonic)).
		Build()
}

// UnexpectedResult reports a %name binding on an instruction producing nothing
func UnexpectedResult(mnemonic string, pos Position) CompilerError {
	return NewError(ErrorResultBinding, fmt.Sprintf("'%s' does not produce a value", mnemonic), pos).
		Build()
}

// LiteralWrapped warns that a literal was reduced modulo its width
func LiteralWrapped(literal, typ, wrapped string, pos Position) CompilerError {
	return NewWarning(WarningLiteralWrapped, fmt.Sprintf("literal %s does not fit in %s", literal, typ), pos).
		WithLength(len(literal)).
		WithNote(fmt.Sprintf("the value wraps to %s", wrapped)).
		Build()
}

// FromParseError converts a participle failure into a syntax diagnostic
func FromParseError(filename string, err error) CompilerError {
	pe, ok := err.(participle.Error)
	if !ok {
		return NewError(ErrorSyntax, err.Error(), Position{Filename: filename, Line: 1, Column: 1}).Build()
	}

	pos := pe.Position()
	if pos.Filename == "" {
		pos.Filename = filename
	}
	return NewError(ErrorSyntax, pe.Message(), Position{Filename: pos.Filename, Line: pos.Line, Column: pos.Column}).
		Build()
}

func findSimilarNames(target string, candidates []string) []string {
	var similar []string

	for _, candidate := range candidates {
		if candidate != target && levenshteinDistance(target, candidate) <= 2 && len(candidate) > 1 {
			similar = append(similar, candidate)
		}
	}

	return similar
}

// Simple Levenshtein distance implementation for finding similar names
func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}
