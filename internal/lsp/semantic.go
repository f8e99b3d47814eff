package lsp

import (
	"regexp"

	"github.com/alecthomas/participle/v2/lexer"

	"constfold/grammar"
)

// SemanticTokenTypes is the legend advertised to clients
var SemanticTokenTypes = []string{
	"namespace", // block labels
	"type",
	"function",
	"variable",
	"parameter",
	"keyword",
	"number",
	"operator",
	"comment",
}

// SemanticTokenModifiers is the modifier legend advertised to clients
var SemanticTokenModifiers = []string{
	"declaration",
}

// SemanticToken represents a single LSP semantic token entry
// Line and StartChar are 0-based positions
// TokenType is an index into the semanticTokenTypes array
// TokenModifiers is a bitmask based on semanticTokenModifiers
type SemanticToken struct {
	Line           uint32
	StartChar      uint32
	Length         uint32
	TokenType      int // index into semanticTokenTypes
	TokenModifiers int // bitmask
}

var (
	symbolNames = invertSymbols(grammar.IRLexer.Symbols())
	typeName    = regexp.MustCompile(`^(i[1-9][0-9]*|ptr|void)$`)
)

func invertSymbols(symbols map[string]lexer.TokenType) map[lexer.TokenType]string {
	names := make(map[lexer.TokenType]string, len(symbols))
	for name, typ := range symbols {
		names[typ] = name
	}
	return names
}

func symbolName(t lexer.TokenType) string {
	return symbolNames[t]
}

// collectSemanticTokens classifies lexer tokens using their neighbours:
// a %name after "label" is a block, before "=" a definition, and inside a
// function header a parameter.
func collectSemanticTokens(all []lexer.Token) []SemanticToken {
	var significant []lexer.Token
	for _, tok := range all {
		switch symbolName(tok.Type) {
		case "Whitespace", "EOF", "":
			continue
		}
		significant = append(significant, tok)
	}

	valueAt := func(i int) string {
		if i < 0 || i >= len(significant) || symbolName(significant[i].Type) == "Comment" {
			return ""
		}
		return significant[i].Value
	}

	var tokens []SemanticToken
	inParams := false
	for i, tok := range significant {
		prev, next := valueAt(i-1), valueAt(i+1)

		switch symbolName(tok.Type) {
		case "Comment":
			tokens = append(tokens, makeToken(tok, "comment", false))

		case "Global":
			tokens = append(tokens, makeToken(tok, "function", prev == "func"))

		case "Local":
			switch {
			case prev == "label":
				tokens = append(tokens, makeToken(tok, "namespace", false))
			case inParams:
				tokens = append(tokens, makeToken(tok, "parameter", true))
			default:
				tokens = append(tokens, makeToken(tok, "variable", next == "="))
			}

		case "Int":
			tokens = append(tokens, makeToken(tok, "number", false))

		case "Ident":
			switch {
			case next == ":":
				tokens = append(tokens, makeToken(tok, "namespace", true))
			case typeName.MatchString(tok.Value):
				tokens = append(tokens, makeToken(tok, "type", false))
			default:
				tokens = append(tokens, makeToken(tok, "keyword", false))
			}

		case "Punct":
			switch tok.Value {
			case "(":
				inParams = i >= 2 && valueAt(i-2) == "func"
			case ")":
				inParams = false
			case "->", "=":
				tokens = append(tokens, makeToken(tok, "operator", false))
			}
		}
	}

	return tokens
}

// makeToken creates a semantic token covering tok
func makeToken(tok lexer.Token, tokenType string, declaration bool) SemanticToken {
	modifiers := 0
	if declaration {
		modifiers = 1 << indexOf("declaration", SemanticTokenModifiers)
	}

	return SemanticToken{
		Line:           uint32(tok.Pos.Line - 1),   // LSP uses 0-based line numbers
		StartChar:      uint32(tok.Pos.Column - 1), // LSP uses 0-based column numbers
		Length:         uint32(len([]rune(tok.Value))),
		TokenType:      indexOf(tokenType, SemanticTokenTypes),
		TokenModifiers: modifiers,
	}
}

// indexOf returns the index of a string in a slice, or 0 if not found
func indexOf(target string, list []string) int {
	for i, v := range list {
		if v == target {
			return i
		}
	}
	return 0 // Default to first token type if not found
}
