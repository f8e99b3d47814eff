package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"constfold/grammar"
	diag "constfold/internal/errors"
)

func TestBuildWiresUsesAndBlocks(t *testing.T) {
	program := mustBuild(t, `func @f(ptr %p, i32 %n) -> i32 {
entry:
  %x = load i32, ptr %p
  %y = mul i32 %x, %n
  br i1 1, label %left, label %right
left:
  br label %right
right:
  ret i32 %y
}`)
	require.Len(t, program.Functions, 1)
	fn := program.Functions[0]
	assert.Equal(t, "f", fn.Name)
	assert.Equal(t, "i32", fn.ReturnType.String())
	require.Len(t, fn.Params, 2)
	require.Len(t, fn.Blocks, 3)

	entry, left, right := fn.Blocks[0], fn.Blocks[1], fn.Blocks[2]
	require.Len(t, entry.Successors, 2)
	assert.Same(t, left, entry.Successors[0])
	assert.Same(t, right, entry.Successors[1])
	require.Len(t, right.Predecessors, 2)
	assert.Same(t, entry, right.Predecessors[0])
	assert.Same(t, left, right.Predecessors[1])
	assert.Same(t, fn, right.Parent)

	p := fn.Params[0].Value
	require.Len(t, p.Uses, 1)
	assert.Same(t, entry.Instructions[0], p.Uses[0].User)
	assert.Equal(t, 0, p.Uses[0].Index)

	load := entry.Instructions[0].(*LoadInstruction)
	assert.Same(t, entry, load.Result.DefBlock)
	assert.Same(t, load, load.Result.DefInst)

	mul := entry.Instructions[1].(*BinaryInstruction)
	assert.Same(t, load.Result, mul.Left)
	assert.Same(t, fn.Params[1].Value, mul.Right)
	require.Len(t, mul.Result.Uses, 1)
	assert.Same(t, right.Terminator, mul.Result.Uses[0].User)

	cond := entry.Terminator.(*BranchTerminator).Condition
	assert.True(t, cond.IsConstant())
	assert.Equal(t, "i1", cond.Type.String())

	assert.NoError(t, Verify(fn))
}

func TestBuildValuesUsedBeforeDefinitionInText(t *testing.T) {
	// %x is defined in a block that appears later in the text
	program := mustBuild(t, `func @f() -> i32 {
entry:
  br label %def
use:
  ret i32 %x
def:
  %x = mul i32 2, 2
  br label %use
}`)
	fn := program.Functions[0]
	ret := fn.Blocks[1].Terminator.(*ReturnTerminator)
	assert.Equal(t, "x", ret.Value.Name)
	assert.Same(t, fn.Blocks[2], ret.Value.DefBlock)
}

func TestBuildInternsLiterals(t *testing.T) {
	program := mustBuild(t, `func @f(ptr %p) {
entry:
  store i32 5, ptr %p
  store i32 0x5, ptr %p
  store i8 5, ptr %p
  store i32 -1, ptr %p
  store i32 4294967295, ptr %p
  ret void
}`)
	fn := program.Functions[0]
	stores := fn.Blocks[0].Instructions

	value := func(i int) *Value { return stores[i].(*StoreInstruction).Value }
	assert.Same(t, value(0), value(1))
	assert.NotSame(t, value(0), value(2), "constants of different widths are distinct")
	assert.Same(t, value(3), value(4), "-1 and 2^32-1 are the same i32")
	assert.Len(t, value(0).Uses, 2)
}

func TestBuildDecimalLiteralsWithLeadingZero(t *testing.T) {
	program := mustBuild(t, `func @f() -> i32 {
entry:
  %y = mul i32 010, 1
  ret i32 %y
}`)
	mul := program.Functions[0].Blocks[0].Instructions[0].(*BinaryInstruction)
	assert.Equal(t, "10", valueRef(mul.Left))
}

func TestBuildLiteralWrapWarning(t *testing.T) {
	program, diagnostics := BuildSource("wrap.ir", `func @f() -> i8 {
entry:
  %y = mul i8 300, 1
  ret i8 %y
}`)
	require.NotNil(t, program, "warnings do not reject the program")
	require.Len(t, diagnostics, 1)

	d := diagnostics[0]
	assert.Equal(t, diag.Warning, d.Level)
	assert.Equal(t, diag.WarningLiteralWrapped, d.Code)
	assert.Equal(t, 3, d.Position.Line)
	assert.Contains(t, d.Notes[0], "44")

	mul := program.Functions[0].Blocks[0].Instructions[0].(*BinaryInstruction)
	assert.Equal(t, "44", valueRef(mul.Left))
}

func TestBuildDiagnostics(t *testing.T) {
	tests := []struct {
		name   string
		source string
		code   string
		line   int
	}{
		{
			name:   "undefined value",
			source: "func @f() -> i32 {\nentry:\n  ret i32 %nope\n}",
			code:   diag.ErrorUndefinedValue,
			line:   3,
		},
		{
			name:   "undefined label",
			source: "func @f() {\nentry:\n  br label %exit\n}",
			code:   diag.ErrorUndefinedLabel,
			line:   3,
		},
		{
			name:   "unknown type",
			source: "func @f() {\nentry:\n  %a = alloca f32\n  ret void\n}",
			code:   diag.ErrorUnknownType,
			line:   3,
		},
		{
			name:   "zero width",
			source: "func @f() {\nentry:\n  %a = alloca i0\n  ret void\n}",
			code:   diag.ErrorUnknownType,
			line:   3,
		},
		{
			name:   "duplicate value",
			source: "func @f(i32 %x) {\nentry:\n  %x = mul i32 1, 2\n  ret void\n}",
			code:   diag.ErrorDuplicateDefinition,
			line:   3,
		},
		{
			name:   "duplicate label",
			source: "func @f() {\nentry:\n  ret void\nentry:\n  ret void\n}",
			code:   diag.ErrorDuplicateDefinition,
			line:   4,
		},
		{
			name:   "duplicate function",
			source: "func @f() {\nentry:\n  ret void\n}\nfunc @f() {\nentry:\n  ret void\n}",
			code:   diag.ErrorDuplicateDefinition,
			line:   5,
		},
		{
			name:   "operand type mismatch",
			source: "func @f(i8 %x) -> i32 {\nentry:\n  %y = mul i32 %x, 2\n  ret i32 %y\n}",
			code:   diag.ErrorTypeMismatch,
			line:   3,
		},
		{
			name:   "store to non-pointer",
			source: "func @f(i32 %x) {\nentry:\n  store i32 1, i32 %x\n  ret void\n}",
			code:   diag.ErrorTypeMismatch,
			line:   3,
		},
		{
			name:   "branch on wide condition",
			source: "func @f(i32 %c) {\nentry:\n  br i32 %c, label %entry, label %entry\n}",
			code:   diag.ErrorTypeMismatch,
			line:   3,
		},
		{
			name:   "return type mismatch",
			source: "func @f() -> i32 {\nentry:\n  ret void\n}",
			code:   diag.ErrorTypeMismatch,
			line:   3,
		},
		{
			name:   "missing terminator",
			source: "func @f() {\nentry:\n  %y = mul i32 1, 2\n}",
			code:   diag.ErrorMissingTerminator,
			line:   2,
		},
		{
			name:   "instruction after terminator",
			source: "func @f() {\nentry:\n  ret void\n  %y = mul i32 1, 2\n}",
			code:   diag.ErrorMissingTerminator,
			line:   4,
		},
		{
			name:   "unbound result",
			source: "func @f(ptr %p) {\nentry:\n  load i32, ptr %p\n  ret void\n}",
			code:   diag.ErrorResultBinding,
			line:   3,
		},
		{
			name:   "binding on store",
			source: "func @f(ptr %p) {\nentry:\n  %s = store i32 1, ptr %p\n  ret void\n}",
			code:   diag.ErrorResultBinding,
			line:   3,
		},
		{
			name:   "syntax",
			source: "func @f() {\nentry:\n  %y = mul i32 1 2\n  ret void\n}",
			code:   diag.ErrorSyntax,
			line:   3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			program, diagnostics := BuildSource("bad.ir", tt.source)
			assert.Nil(t, program)
			require.NotEmpty(t, diagnostics)

			first := diagnostics[0]
			assert.Equal(t, tt.code, first.Code, "got %v", diagnostics)
			assert.Equal(t, diag.Error, first.Level)
			assert.Equal(t, tt.line, first.Position.Line)
			assert.Equal(t, "bad.ir", first.Position.Filename)
		})
	}
}

func TestBuildCollectsAllDiagnostics(t *testing.T) {
	_, diagnostics := BuildSource("many.ir", `func @f() -> i32 {
entry:
  %y = mul i32 %a, %b
  br label %missing
}`)

	var codes []string
	for _, d := range diagnostics {
		codes = append(codes, d.Code)
	}
	assert.Equal(t, []string{
		diag.ErrorUndefinedValue,
		diag.ErrorUndefinedValue,
		diag.ErrorUndefinedLabel,
	}, codes)
}

func TestBuildSuggestsSimilarNames(t *testing.T) {
	_, diagnostics := BuildSource("typo.ir", `func @f(i32 %count) -> i32 {
entry:
  ret i32 %cuont
}`)
	require.Len(t, diagnostics, 1)
	assert.Equal(t, "did you mean '%count'?", diagnostics[0].HelpText)
}

func TestBuilderRecordsPositions(t *testing.T) {
	module, err := grammar.ParseString("pos.ir", "func @f(ptr %p) {\nentry:\n  %x = load i32, ptr %p\n  ret void\n}\n")
	require.NoError(t, err)

	builder := NewBuilder()
	program, diagnostics := builder.Build(module)
	require.Empty(t, diagnostics)

	entry := program.Functions[0].Blocks[0]
	pos, ok := builder.Position(entry.Instructions[0])
	require.True(t, ok)
	assert.Equal(t, diag.Position{Filename: "pos.ir", Line: 3, Column: 3}, pos)

	pos, ok = builder.Position(entry.Terminator)
	require.True(t, ok)
	assert.Equal(t, 4, pos.Line)

	_, ok = builder.Position(NewReturn(program.Functions[0], nil))
	assert.False(t, ok)
}
