package ir

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const printerSample = `; comments are dropped
func @f(ptr %p, i1 %c) -> i8 {
entry:
  %a = alloca i8
  store i8 -1, ptr %a
  %x = load i8, ptr %a   ; forwarded later
  %y = mul i8 %x, 0x7f
  %r = call i8 @clamp(i8 %y, i8 3)
  call void @sink(ptr %p)
  br i1 %c, label %yes, label %no
yes:
  ret i8 %r
no:
  br label %yes
}

func @v() {
entry:
  ret void
}
`

func TestPrintRoundTrip(t *testing.T) {
	program := mustBuild(t, printerSample)
	first := Print(program)

	again := mustBuild(t, first)
	assert.Equal(t, first, Print(again), "printing re-parsed output must be stable")

	assert.Equal(t, `; module fold.ir

func @f(ptr %p, i1 %c) -> i8 {
entry:
  %a = alloca i8
  store i8 -1, ptr %a
  %x = load i8, ptr %a
  %y = mul i8 %x, 127
  %r = call i8 @clamp(i8 %y, i8 3)
  call void @sink(ptr %p)
  br i1 %c, label %yes, label %no
yes:
  ret i8 %r
no:
  br label %yes
}

func @v() {
entry:
  ret void
}
`, first)
}

func TestPrintAfterFoldingRoundTrips(t *testing.T) {
	program := mustBuild(t, printerSample)
	require.True(t, NewOptimizationPipeline().Run(program))
	folded := Print(program)

	// -1 * 127 = -127 in i8
	assert.Contains(t, folded, "%y = mul i8 -1, 127")
	assert.Contains(t, folded, "call i8 @clamp(i8 -127, i8 3)")

	again := mustBuild(t, folded)
	assert.Equal(t, folded, Print(again))
}

func TestPrintFunction(t *testing.T) {
	fn := NewFunction("g", Void)
	fn.NewBlock("entry").Append(NewReturn(fn, nil))

	assert.Equal(t, "func @g() {\nentry:\n  ret void\n}\n", PrintFunction(fn))
	assert.Equal(t, PrintFunction(fn), PrintProgram(&Program{Functions: []*Function{fn}}))
}

func TestPrintAnnotateDead(t *testing.T) {
	program := mustBuild(t, `func @f(ptr %p) {
entry:
  %x = load i32, ptr %p
  %y = mul i32 2, 3
  %r = call i32 @g()
  ret void
}`)

	plain := Print(program)
	assert.NotContains(t, plain, "; dead")

	annotated := PrintWithOptions(program, PrintOptions{AnnotateDead: true})
	lines := strings.Split(annotated, "\n")
	assert.Contains(t, lines, "  %x = load i32, ptr %p ; dead")
	assert.Contains(t, lines, "  %y = mul i32 2, 3 ; dead")
	assert.Contains(t, lines, "  %r = call i32 @g()", "calls are never dead")

	// annotations are comments, so the output still parses
	_ = mustBuild(t, annotated)
}
