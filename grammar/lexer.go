package grammar

import (
	"github.com/alecthomas/participle/v2/lexer"
)

var IRLexer = lexer.MustSimple([]lexer.SimpleRule{
	// Comments run to the end of the line
	{Name: "Comment", Pattern: `;[^\n]*`},

	// @function and %value references
	{Name: "Global", Pattern: `@[a-zA-Z_.$][a-zA-Z0-9_.$]*`},
	{Name: "Local", Pattern: `%[a-zA-Z0-9_.$]+`},

	// Integer literals (must come before punctuation so "-1" is one token)
	{Name: "Int", Pattern: `-?(0x[0-9a-fA-F]+|[0-9]+)`},

	// Keywords, type names and block labels
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_.]*`},

	{Name: "Punct", Pattern: `->|[(){}=,:]`},

	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
})
