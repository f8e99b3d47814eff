package grammar_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/participle/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"constfold/grammar"
)

const sample = `; store-to-load forwarding sample
func @square(ptr %p, i32 %n) -> i32 {
entry:
  %a = alloca i32
  store i32 7, ptr %a
  %x = load i32, ptr %a
  %y = mul i32 %x, -6
  %z = call i32 @clamp(i32 %y, i32 0x10)
  call void @sink()
  br i1 %n, label %done, label %again
again:
  br label %done
done:
  ret i32 %z
}

func @empty() {
entry:
  ret void
}
`

func TestParseSample(t *testing.T) {
	module, err := grammar.ParseString("sample.ir", sample)
	require.NoError(t, err)
	require.Len(t, module.Functions, 2)

	fn := module.Functions[0]
	assert.Equal(t, "@square", fn.Name.Name)
	require.Len(t, fn.Params, 2)
	assert.Equal(t, "ptr", fn.Params[0].Type.Name)
	assert.Equal(t, "%p", fn.Params[0].Name.Name)
	assert.Equal(t, "i32", fn.ReturnType.Name)
	require.Len(t, fn.Blocks, 3)

	entry := fn.Blocks[0]
	assert.Equal(t, "entry", entry.Label)
	require.Len(t, entry.Instructions, 7)

	alloca := entry.Instructions[0]
	require.NotNil(t, alloca.Alloca)
	assert.Equal(t, "%a", alloca.Result.Name)
	assert.Equal(t, "i32", alloca.Alloca.Type.Name)

	store := entry.Instructions[1].Store
	require.NotNil(t, store)
	assert.Equal(t, "7", store.Value.Value.String())
	assert.Equal(t, "%a", store.Address.Value.String())

	load := entry.Instructions[2]
	require.NotNil(t, load.Load)
	assert.Equal(t, "%x", load.Result.Name)
	assert.Equal(t, "%a", *load.Load.Address.Value.Local)

	mul := entry.Instructions[3].Binary
	require.NotNil(t, mul)
	assert.Equal(t, "mul", mul.Op)
	assert.Equal(t, "-6", *mul.Right.Int)

	call := entry.Instructions[4]
	require.NotNil(t, call.Call)
	assert.Equal(t, "@clamp", call.Call.Callee.Name)
	require.Len(t, call.Call.Args, 2)
	assert.Equal(t, "0x10", *call.Call.Args[1].Value.Int)

	voidCall := entry.Instructions[5]
	assert.Nil(t, voidCall.Result)
	assert.Empty(t, voidCall.Call.Args)

	br := entry.Instructions[6]
	require.NotNil(t, br.Br)
	assert.True(t, br.IsTerminator())
	assert.Equal(t, "%n", br.Br.Cond.Value.String())
	assert.Equal(t, "%done", br.Br.IfTrue.Name)
	assert.Equal(t, "%again", br.Br.IfFalse.Name)

	jump := fn.Blocks[1].Instructions[0].Br
	require.NotNil(t, jump)
	assert.Equal(t, "%done", jump.Target.Name)
	assert.Nil(t, jump.Cond)

	ret := fn.Blocks[2].Instructions[0].Ret
	require.NotNil(t, ret)
	assert.False(t, ret.Void)
	assert.Equal(t, "%z", ret.Value.Value.String())

	empty := module.Functions[1]
	assert.Nil(t, empty.ReturnType)
	assert.True(t, empty.Blocks[0].Instructions[0].Ret.Void)
}

func TestParsePositions(t *testing.T) {
	module, err := grammar.ParseString("sample.ir", sample)
	require.NoError(t, err)

	load := module.Functions[0].Blocks[0].Instructions[2]
	assert.Equal(t, 6, load.Pos.Line)
	assert.Equal(t, 3, load.Pos.Column)
	assert.Equal(t, "sample.ir", load.Pos.Filename)
}

func TestMnemonic(t *testing.T) {
	module, err := grammar.ParseString("sample.ir", sample)
	require.NoError(t, err)

	var got []string
	for _, inst := range module.Functions[0].Blocks[0].Instructions {
		got = append(got, inst.Mnemonic())
	}
	assert.Equal(t, []string{"alloca", "store", "load", "mul", "call", "call", "br"}, got)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		minLine int
	}{
		{"missing comma", "func @f() {\nentry:\n  store i32 1 ptr %p\n}", 3},
		{"unknown opcode", "func @f() {\nentry:\n  %x = frobnicate i32 1, 2\n}", 3},
		{"unterminated function", "func @f() {\nentry:\n  ret void\n", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := grammar.ParseString("bad.ir", tt.source)
			require.Error(t, err)

			perr, ok := err.(participle.Error)
			require.True(t, ok, "expected participle.Error, got %T", err)
			assert.GreaterOrEqual(t, perr.Position().Line, tt.minLine)
		})
	}
}

func TestLocalAndGlobalName(t *testing.T) {
	assert.Equal(t, "x", grammar.LocalName("%x"))
	assert.Equal(t, "main", grammar.GlobalName("@main"))
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.ir")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	module, source, err := grammar.ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, sample, source)
	require.Len(t, module.Functions, 2)
	assert.Equal(t, path, module.Pos.Filename)

	_, _, err = grammar.ParseFile(filepath.Join(t.TempDir(), "missing.ir"))
	assert.ErrorContains(t, err, "failed to read file")
}
