package lsp

import (
	"fmt"

	protocol "github.com/tliron/glsp/protocol_3_16"

	diag "constfold/internal/errors"
	"constfold/internal/ir"
)

const diagnosticSource = "constfold"

// toDiagnostic converts a build or syntax diagnostic for IDE display.
// Notes and help text are appended to the message.
func toDiagnostic(d diag.CompilerError) protocol.Diagnostic {
	length := max(d.Length, 1)
	start := protocol.Position{
		Line:      uint32(max(d.Position.Line-1, 0)),   // Convert to 0-based indexing
		Character: uint32(max(d.Position.Column-1, 0)), // Convert to 0-based indexing
	}

	message := d.Message
	for _, note := range d.Notes {
		message += "\nnote: " + note
	}
	if d.HelpText != "" {
		message += "\nhelp: " + d.HelpText
	}

	return protocol.Diagnostic{
		Range: protocol.Range{
			Start: start,
			End:   protocol.Position{Line: start.Line, Character: start.Character + uint32(length)},
		},
		Severity: ptrSeverity(severity(d.Level)),
		Code:     &protocol.IntegerOrString{Value: d.Code},
		Source:   ptrString(diagnosticSource),
		Message:  message,
	}
}

func severity(level diag.ErrorLevel) protocol.DiagnosticSeverity {
	switch level {
	case diag.Error:
		return protocol.DiagnosticSeverityError
	case diag.Warning:
		return protocol.DiagnosticSeverityWarning
	case diag.Note:
		return protocol.DiagnosticSeverityInformation
	default:
		return protocol.DiagnosticSeverityHint
	}
}

// rewriteHint marks an instruction whose result FoldConstants replaced.
// The instruction stays in the code but nothing reads it any more.
func rewriteHint(rewrite ir.Rewrite, pos diag.Position, lineLength int) protocol.Diagnostic {
	var message string
	switch rewrite.Kind {
	case ir.RewriteForwardLoad:
		message = fmt.Sprintf("load forwards constant %s", rewrite.Replacement)
	case ir.RewriteFoldMultiply:
		message = fmt.Sprintf("mul folds to constant %s", rewrite.Replacement)
	default:
		message = rewrite.String()
	}

	start := protocol.Position{Line: uint32(pos.Line - 1), Character: uint32(pos.Column - 1)}
	end := protocol.Position{Line: start.Line, Character: uint32(max(lineLength, pos.Column))}
	return protocol.Diagnostic{
		Range:    protocol.Range{Start: start, End: end},
		Severity: ptrSeverity(protocol.DiagnosticSeverityHint),
		Source:   ptrString(diagnosticSource),
		Message:  message,
		Tags:     []protocol.DiagnosticTag{protocol.DiagnosticTagUnnecessary},
	}
}

func ptrSeverity(s protocol.DiagnosticSeverity) *protocol.DiagnosticSeverity {
	return &s
}

func ptrString(s string) *string {
	return &s
}
