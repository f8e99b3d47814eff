package errors

// Diagnostic codes for the constfold toolchain.
//
// Code ranges:
// E0001-E0099: IR construction errors
// E0100-E0199: Syntax errors
// W0800-W0899: Warnings

const (
	// E0001: Reference to a %value that is neither a parameter nor a result
	ErrorUndefinedValue = "E0001"

	// E0002: Branch to a label that no block carries
	ErrorUndefinedLabel = "E0002"

	// E0003: Type name that is not iN, ptr or void
	ErrorUnknownType = "E0003"

	// E0004: Value, parameter, label or function defined twice
	ErrorDuplicateDefinition = "E0004"

	// E0005: Operand type does not match what the instruction expects
	ErrorTypeMismatch = "E0005"

	// E0006: Block without a terminator, or instructions after one
	ErrorMissingTerminator = "E0006"

	// E0007: Value-producing instruction without a %name binding, or a
	// binding on an instruction that produces nothing
	ErrorResultBinding = "E0007"

	// E0100: Lexer or parser failure
	ErrorSyntax = "E0100"

	// W0801: Integer literal does not fit its width and was wrapped
	WarningLiteralWrapped = "W0801"
)
