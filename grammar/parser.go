package grammar

import (
	"fmt"
	"os"

	"github.com/alecthomas/participle/v2"
)

var parser = participle.MustBuild[Module](
	participle.Lexer(IRLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.UseLookahead(3),
)

// ParseString parses IR text. Syntax errors are returned as participle.Error
// so callers can recover the position.
func ParseString(filename, source string) (*Module, error) {
	return parser.ParseString(filename, source)
}

// ParseFile reads and parses an IR file
func ParseFile(path string) (*Module, string, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read file: %w", err)
	}

	module, err := ParseString(path, string(source))
	if err != nil {
		return nil, string(source), err
	}
	return module, string(source), nil
}

// Grammar returns the EBNF of the IR syntax
func Grammar() string {
	return parser.String()
}
