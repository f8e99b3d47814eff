package ir

// This file provides the main entry point for the IR system.
// Source text is parsed by the grammar package and lowered into use-list IR
// where every value knows the instructions that read it.

import (
	"constfold/grammar"
	diag "constfold/internal/errors"
)

// BuildSource parses IR text and converts it to a Program. The program is nil
// when the source has syntax or construction errors; warnings are returned
// alongside a usable program.
func BuildSource(filename, source string) (*Program, []diag.CompilerError) {
	module, err := grammar.ParseString(filename, source)
	if err != nil {
		return nil, []diag.CompilerError{diag.FromParseError(filename, err)}
	}

	program, diagnostics := NewBuilder().Build(module)
	if program != nil {
		program.Name = filename
	}
	return program, diagnostics
}

// PrintProgram returns a pretty-printed representation of the IR
func PrintProgram(program *Program) string {
	return Print(program)
}
