package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validFunction() (*Function, *BinaryInstruction) {
	fn := NewFunction("f", I32)
	entry := fn.NewBlock("entry")
	x := fn.AddParam("x", I32)
	mul := NewBinary(fn, "y", OpMul, I32, x, fn.ConstantInt(I32, 3))
	entry.Append(mul)
	entry.Append(NewReturn(fn, mul.Result))
	return fn, mul
}

func TestVerifyAcceptsWellFormedFunction(t *testing.T) {
	fn, _ := validFunction()
	assert.NoError(t, Verify(fn))
}

func TestVerifyDetectsProblems(t *testing.T) {
	tests := []struct {
		name    string
		corrupt func(fn *Function, mul *BinaryInstruction)
		want    string
	}{
		{
			name: "missing terminator",
			corrupt: func(fn *Function, _ *BinaryInstruction) {
				fn.Blocks[0].Terminator = nil
			},
			want: "missing terminator",
		},
		{
			name: "operand changed behind the use-list",
			corrupt: func(fn *Function, mul *BinaryInstruction) {
				mul.Right = fn.ConstantInt(I32, 4)
			},
			want: "missing from its use-list",
		},
		{
			name: "stale use",
			corrupt: func(fn *Function, mul *BinaryInstruction) {
				three := fn.ConstantInt(I32, 3)
				three.addUse(mul, 0)
			},
			want: "stale use",
		},
		{
			name: "stale use on an unreferenced parameter",
			corrupt: func(fn *Function, mul *BinaryInstruction) {
				// redirect the slot but leave %x's use-list untouched
				mul.Left = fn.ConstantInt(I32, 7)
				mul.Left.addUse(mul, 0)
			},
			want: "stale use of %x",
		},
		{
			name: "stale use on an unreferenced constant",
			corrupt: func(fn *Function, mul *BinaryInstruction) {
				fn.ConstantInt(I32, 9).addUse(mul, 1)
			},
			want: "stale use of 9",
		},
		{
			name: "duplicate use",
			corrupt: func(fn *Function, mul *BinaryInstruction) {
				mul.Left.addUse(mul, 0)
			},
			want: "duplicate use",
		},
		{
			name: "operand width",
			corrupt: func(fn *Function, mul *BinaryInstruction) {
				mul.Result.Type = I64
			},
			want: "want i64",
		},
		{
			name: "foreign branch target",
			corrupt: func(fn *Function, _ *BinaryInstruction) {
				other := NewFunction("g", Void).NewBlock("elsewhere")
				fn.Blocks[0].Terminator = NewJump(fn, other)
			},
			want: "foreign block elsewhere",
		},
		{
			name: "wrong parent",
			corrupt: func(fn *Function, mul *BinaryInstruction) {
				mul.Block = nil
			},
			want: "records parent <nil>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn, mul := validFunction()
			tt.corrupt(fn, mul)

			err := Verify(fn)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Contains(t, err.Error(), "f: ")
		})
	}
}

func TestVerifyPass(t *testing.T) {
	good, _ := validFunction()
	bad, _ := validFunction()
	bad.Name = "broken"
	bad.Blocks[0].Terminator = nil

	pass := &VerifyPass{}
	assert.False(t, pass.Apply(&Program{Functions: []*Function{good, bad}}))
	require.Error(t, pass.Err)
	assert.Contains(t, pass.Err.Error(), "broken")
	assert.Equal(t, "verify", pass.Name())
}

func TestVerifyCatchesForwardedLoadWithStaleUses(t *testing.T) {
	fn := NewFunction("f", I32)
	entry := fn.NewBlock("entry")
	alloca := NewAlloca(fn, "a", I32)
	entry.Append(alloca)
	entry.Append(NewStore(fn, fn.ConstantInt(I32, 7), alloca.Result))
	load := NewLoad(fn, "x", I32, alloca.Result)
	entry.Append(load)
	mul := NewBinary(fn, "y", OpMul, I32, load.Result, fn.ConstantInt(I32, 6))
	entry.Append(mul)
	entry.Append(NewReturn(fn, mul.Result))
	require.NoError(t, Verify(fn))

	// swap the operand by hand without going through ReplaceAllUsesWith
	seven := fn.ConstantInt(I32, 7)
	mul.Left = seven
	seven.addUse(mul, 0)

	err := Verify(fn)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stale use of %x")

	load.Result.Uses = nil
	assert.NoError(t, Verify(fn))
}
