package lsp

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"constfold/grammar"
	diag "constfold/internal/errors"
	"constfold/internal/ir"
)

// document is the analysis of one version of an IR file
type document struct {
	path        string
	lines       []string
	tokens      []lexer.Token
	functions   []*functionScope
	diagnostics []protocol.Diagnostic
}

// functionScope maps names inside one function to their IR values
type functionScope struct {
	startLine int
	fn        *ir.Function
	values    map[string]*ir.Value
	rewrites  map[*ir.Value]ir.Rewrite // keyed by the load or mul result
}

// analyze parses and builds text, then runs FoldConstants on the result so
// that every rewrite can be shown as a hint
func analyze(path, text string) *document {
	doc := &document{
		path:  path,
		lines: strings.Split(text, "\n"),
	}

	if lex, err := grammar.IRLexer.LexString(path, text); err == nil {
		// on a lexing error the tokens read so far are still useful
		doc.tokens, _ = lexer.ConsumeAll(lex)
	}

	module, err := grammar.ParseString(path, text)
	if err != nil {
		doc.diagnostics = append(doc.diagnostics, toDiagnostic(diag.FromParseError(path, err)))
		return doc
	}

	builder := ir.NewBuilder()
	program, diagnostics := builder.Build(module)
	for _, d := range diagnostics {
		doc.diagnostics = append(doc.diagnostics, toDiagnostic(d))
	}
	if program == nil {
		return doc
	}

	for i, astFunc := range module.Functions {
		doc.functions = append(doc.functions, newFunctionScope(astFunc.Pos.Line, program.Functions[i]))
	}

	pass := &ir.FoldConstants{}
	pass.Apply(program)
	for _, rewrite := range pass.Rewrites() {
		scope := doc.scopeOf(rewrite.Function)
		scope.rewrites[rewrite.Inst.GetResult()] = rewrite

		if pos, ok := builder.Position(rewrite.Inst); ok {
			doc.diagnostics = append(doc.diagnostics, rewriteHint(rewrite, pos, doc.lineLength(pos.Line)))
		}
	}

	return doc
}

func newFunctionScope(startLine int, fn *ir.Function) *functionScope {
	scope := &functionScope{
		startLine: startLine,
		fn:        fn,
		values:    make(map[string]*ir.Value),
		rewrites:  make(map[*ir.Value]ir.Rewrite),
	}
	for _, param := range fn.Params {
		scope.values[param.Name] = param.Value
	}
	for _, block := range fn.Blocks {
		for _, inst := range block.Instructions {
			if result := inst.GetResult(); result != nil && result.Name != "" {
				scope.values[result.Name] = result
			}
		}
	}
	return scope
}

func (d *document) scopeOf(function string) *functionScope {
	for _, scope := range d.functions {
		if scope.fn.Name == function {
			return scope
		}
	}
	return nil
}

// scopeAt returns the function whose text contains line
func (d *document) scopeAt(line int) *functionScope {
	var found *functionScope
	for _, scope := range d.functions {
		if scope.startLine > line {
			break
		}
		found = scope
	}
	return found
}

func (d *document) lineLength(line int) int {
	if line < 1 || line > len(d.lines) {
		return 0
	}
	return len([]rune(d.lines[line-1]))
}

// tokenAt returns the value or function reference covering the 1-based position
func (d *document) tokenAt(line, column int) (lexer.Token, bool) {
	for _, tok := range d.tokens {
		if tok.Pos.Line != line {
			continue
		}
		name := symbolName(tok.Type)
		if name != "Local" && name != "Global" {
			continue
		}
		if column >= tok.Pos.Column && column < tok.Pos.Column+len([]rune(tok.Value)) {
			return tok, true
		}
	}
	return lexer.Token{}, false
}

// describe renders hover markdown for a %value or @function token
func (d *document) describe(tok lexer.Token) (string, bool) {
	if symbolName(tok.Type) == "Global" {
		name := grammar.GlobalName(tok.Value)
		if scope := d.scopeOf(name); scope != nil {
			return fmt.Sprintf("```\n%s\n```", signature(scope.fn)), true
		}
		return fmt.Sprintf("external function `%s`", tok.Value), true
	}

	scope := d.scopeAt(tok.Pos.Line)
	if scope == nil {
		return "", false
	}
	value, ok := scope.values[grammar.LocalName(tok.Value)]
	if !ok {
		return "", false
	}

	var b strings.Builder
	fmt.Fprintf(&b, "`%s`: `%s`", tok.Value, value.Type)
	if rewrite, ok := scope.rewrites[value]; ok {
		switch rewrite.Kind {
		case ir.RewriteForwardLoad:
			fmt.Fprintf(&b, "\n\nforwarded from a constant store: `%s %s`", rewrite.Replacement.Type, rewrite.Replacement)
		case ir.RewriteFoldMultiply:
			fmt.Fprintf(&b, "\n\nfolds to `%s %s`", rewrite.Replacement.Type, rewrite.Replacement)
		}
		fmt.Fprintf(&b, " (%d uses redirected)", rewrite.Uses)
	}
	return b.String(), true
}

func signature(fn *ir.Function) string {
	params := make([]string, len(fn.Params))
	for i, param := range fn.Params {
		params[i] = fmt.Sprintf("%s %%%s", param.Type, param.Name)
	}
	sig := fmt.Sprintf("func @%s(%s)", fn.Name, strings.Join(params, ", "))
	if fn.ReturnType != nil && fn.ReturnType.String() != "void" {
		sig += " -> " + fn.ReturnType.String()
	}
	return sig
}
