package repl

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

const entry = `func @f(ptr %p) -> i32 { ; {
entry:
  store i32 7, ptr %p
  %x = load i32, ptr %p
  %y = mul i32 %x, 6
  ret i32 %y
}
`

func TestStartEvaluatesCompleteEntries(t *testing.T) {
	var out bytes.Buffer
	err := Start(strings.NewReader(entry+entry), &out, []string{"fold-constants"})
	require.NoError(t, err)

	text := out.String()
	assert.Equal(t, 2, strings.Count(text, "ret i32 42"))
	assert.Contains(t, text, "; forward-load: %x = load i32, ptr %p -> i32 7 (1 uses)")
	assert.Contains(t, text, "; fold-mul: %y = mul i32 7, 6 -> i32 42 (1 uses)")
	assert.True(t, strings.HasPrefix(text, PROMPT))
	assert.Contains(t, text, CONTINUATION)
}

func TestStartDiscardsOnBlankLine(t *testing.T) {
	var out bytes.Buffer
	input := "func @f() {\nentry:\n\n" + entry
	require.NoError(t, Start(strings.NewReader(input), &out, []string{"fold-constants"}))

	assert.Contains(t, out.String(), "discarded unfinished entry")
	assert.Equal(t, 1, strings.Count(out.String(), "ret i32 42"))
}

func TestStartDiscardsUnbalancedClose(t *testing.T) {
	var out bytes.Buffer
	input := "}\nfunc @f() -> i32 {\nentry:\n  ret i32 1\n}\n"
	require.NoError(t, Start(strings.NewReader(input), &out, []string{"fold-constants"}))

	text := out.String()
	assert.Contains(t, text, "discarded entry with unbalanced '}'")
	assert.NotContains(t, text, "error")
	assert.Contains(t, text, "ret i32 1")
}

func TestStartRejectsUnknownPass(t *testing.T) {
	err := Start(strings.NewReader(entry), &bytes.Buffer{}, []string{"dce"})
	require.Error(t, err)
}

func TestEvalReportsDiagnostics(t *testing.T) {
	var out bytes.Buffer
	Eval(&out, "func @f() -> i32 {\nentry:\n  ret i32 %nope\n}\n", []string{"fold-constants"})

	assert.Contains(t, out.String(), "error[E0001]: use of undefined value '%nope'")
	assert.NotContains(t, out.String(), "func @f")
}

func TestBraceDelta(t *testing.T) {
	tests := []struct {
		line   string
		delta  int
		opened bool
	}{
		{"func @f() {", 1, true},
		{"}", -1, false},
		{"  ret void ; }", 0, false},
		{"entry:", 0, false},
	}
	for _, tt := range tests {
		delta, opened := braceDelta(tt.line)
		assert.Equal(t, tt.delta, delta, tt.line)
		assert.Equal(t, tt.opened, opened, tt.line)
	}
}
