package ir

import (
	"fmt"
	"math/big"
)

// FoldConstants forwards constant stores to later loads of the same location
// and folds multiplications of two constants. Both rewrites are local to a
// basic block and only redirect uses: the loads, stores and multiplications
// themselves stay in the instruction stream.
//
// Only mul is folded. add, sub and the rest are left alone even with two
// constant operands.
type FoldConstants struct {
	rewrites []Rewrite
}

// RewriteKind distinguishes the two transformations
type RewriteKind string

const (
	RewriteForwardLoad  RewriteKind = "forward-load"
	RewriteFoldMultiply RewriteKind = "fold-mul"
)

// Rewrite records one redirection performed by FoldConstants
type Rewrite struct {
	Kind        RewriteKind
	Function    string
	Inst        Instruction // the load or mul whose result was replaced
	Replacement *Value
	Uses        int // number of operand slots redirected
}

func (r Rewrite) String() string {
	return fmt.Sprintf("%s: %s -> %s (%d uses)", r.Kind, r.Inst, typedRef(r.Replacement), r.Uses)
}

func (fc *FoldConstants) Name() string {
	return "fold-constants"
}

func (fc *FoldConstants) Description() string {
	return "Forwards constant stores to loads and folds constant multiplications within basic blocks"
}

func (fc *FoldConstants) Apply(program *Program) bool {
	changed := false

	for _, fn := range program.Functions {
		if fc.RunOnFunction(fn) {
			changed = true
		}
	}

	return changed
}

// Rewrites returns every redirection performed since the pass was created
func (fc *FoldConstants) Rewrites() []Rewrite {
	return fc.rewrites
}

// RunOnFunction rewrites fn in place and reports whether any use was redirected
func (fc *FoldConstants) RunOnFunction(fn *Function) bool {
	changed := false

	for _, block := range fn.Blocks {
		if fc.scanBlock(fn, block) {
			changed = true
		}
	}

	return changed
}

// scanBlock walks one block in program order. The tracker only ever sees
// stores that precede the current instruction in this block.
func (fc *FoldConstants) scanBlock(fn *Function, block *BasicBlock) bool {
	changed := false
	stores := newConstantStores()

	for _, inst := range block.Instructions {
		switch i := inst.(type) {
		case *StoreInstruction:
			if i.Value.IsConstant() {
				stores.record(i.Address, i)
			} else {
				stores.invalidate(i.Address)
			}

		case *LoadInstruction:
			store, ok := stores.lookup(i.Address)
			// a load reinterpreting the stored bits at another width is left alone
			if !ok || !SameType(store.Value.Type, i.Result.Type) {
				continue
			}
			if fc.replace(fn, RewriteForwardLoad, i, store.Value) {
				changed = true
			}

		case *BinaryInstruction:
			folded, ok := foldBinary(fn, i)
			if !ok {
				continue
			}
			if fc.replace(fn, RewriteFoldMultiply, i, folded) {
				changed = true
			}

		case *AllocaInstruction, *CallInstruction:
			// opaque
		}
	}

	return changed
}

func (fc *FoldConstants) replace(fn *Function, kind RewriteKind, inst Instruction, c *Value) bool {
	n := inst.GetResult().ReplaceAllUsesWith(c)
	if n == 0 {
		return false
	}
	fc.rewrites = append(fc.rewrites, Rewrite{
		Kind:        kind,
		Function:    fn.Name,
		Inst:        inst,
		Replacement: c,
		Uses:        n,
	})
	return true
}

// constantStores maps a location to the last store in the current block that
// wrote a constant to it. Locations are compared by identity.
type constantStores struct {
	byLocation map[*Value]*StoreInstruction
}

func newConstantStores() *constantStores {
	return &constantStores{byLocation: make(map[*Value]*StoreInstruction)}
}

func (cs *constantStores) record(location *Value, store *StoreInstruction) {
	cs.byLocation[location] = store
}

func (cs *constantStores) invalidate(location *Value) {
	delete(cs.byLocation, location)
}

func (cs *constantStores) lookup(location *Value) (*StoreInstruction, bool) {
	store, ok := cs.byLocation[location]
	return store, ok
}

// foldBinary computes the constant result of inst if it can be folded
func foldBinary(fn *Function, inst *BinaryInstruction) (*Value, bool) {
	switch inst.Op {
	case OpMul:
		return foldMultiply(fn, inst)
	case OpAdd, OpSub, OpUDiv, OpSDiv, OpURem, OpSRem,
		OpAnd, OpOr, OpXor, OpShl, OpLShr, OpAShr:
		return nil, false
	default:
		panic(fmt.Sprintf("ir: unhandled binary operator %q", inst.Op))
	}
}

// foldMultiply multiplies two integer constants with wraparound at the
// result width.
func foldMultiply(fn *Function, inst *BinaryInstruction) (*Value, bool) {
	if !inst.Left.IsConstant() || !inst.Right.IsConstant() {
		return nil, false
	}
	typ, ok := inst.Result.Type.(*IntType)
	if !ok {
		return nil, false
	}

	product := new(big.Int).Mul(inst.Left.Const, inst.Right.Const)
	return fn.Constant(typ, product), true
}
