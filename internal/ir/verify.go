package ir

import (
	"errors"
	"fmt"
)

// Verify checks the structural invariants passes rely on:
//   - every block ends in a terminator whose targets belong to the function
//   - every operand slot has exactly one matching entry in the operand's use-list
//   - every use-list entry points back at a live operand slot
//   - binary operands and results agree on their integer type
//
// All problems are reported together.
func Verify(fn *Function) error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%s: "+format, append([]any{fn.Name}, args...)...))
	}

	blocks := make(map[*BasicBlock]bool, len(fn.Blocks))
	for _, block := range fn.Blocks {
		blocks[block] = true
	}

	expected := make(map[*Value]map[useSlot]bool)
	note := func(inst Instruction) {
		for i, op := range inst.GetOperands() {
			if op == nil {
				fail("%s: operand %d is nil", inst, i)
				continue
			}
			if expected[op] == nil {
				expected[op] = make(map[useSlot]bool)
			}
			expected[op][useSlot{inst, i}] = true
		}
	}

	for _, block := range fn.Blocks {
		for _, inst := range block.Instructions {
			if inst.IsTerminator() {
				fail("block %s: terminator %s in the middle of the block", block.Label, inst)
			}
			if inst.GetBlock() != block {
				fail("block %s: %s records parent %v", block.Label, inst, blockLabel(inst.GetBlock()))
			}
			note(inst)
			if bin, ok := inst.(*BinaryInstruction); ok {
				verifyBinary(bin, fail)
			}
		}

		if block.Terminator == nil {
			fail("block %s: missing terminator", block.Label)
			continue
		}
		note(block.Terminator)
		for _, succ := range block.Terminator.GetSuccessors() {
			if !blocks[succ] {
				fail("block %s: branch to foreign block %s", block.Label, blockLabel(succ))
			}
		}
	}

	// values nothing reads must still have empty use-lists
	track := func(v *Value) {
		if _, ok := expected[v]; v != nil && !ok {
			expected[v] = nil
		}
	}
	for _, param := range fn.Params {
		track(param.Value)
	}
	for _, block := range fn.Blocks {
		for _, inst := range block.Instructions {
			track(inst.GetResult())
		}
		if block.Terminator != nil {
			track(block.Terminator.GetResult())
		}
	}
	for _, c := range fn.constants {
		track(c)
	}

	for value, slots := range expected {
		seen := make(map[useSlot]bool, len(value.Uses))
		for _, use := range value.Uses {
			slot := useSlot{use.User, use.Index}
			if use.Value != value {
				fail("use of %s records value %s", valueRef(value), valueRef(use.Value))
			}
			if !slots[slot] {
				fail("stale use of %s in %s operand %d", valueRef(value), use.User, use.Index)
			}
			if seen[slot] {
				fail("duplicate use of %s in %s operand %d", valueRef(value), use.User, use.Index)
			}
			seen[slot] = true
		}
		for slot := range slots {
			if !seen[slot] {
				fail("%s operand %d reads %s but is missing from its use-list", slot.user, slot.index, valueRef(value))
			}
		}
	}

	return errors.Join(errs...)
}

type useSlot struct {
	user  Instruction
	index int
}

func verifyBinary(bin *BinaryInstruction, fail func(string, ...any)) {
	rt, ok := bin.Result.Type.(*IntType)
	if !ok {
		fail("%s: result type %s is not an integer", bin, bin.Result.Type)
		return
	}
	for i, op := range bin.GetOperands() {
		if op != nil && !SameType(op.Type, rt) {
			fail("%s: operand %d has type %s, want %s", bin, i, op.Type, rt)
		}
	}
}

func blockLabel(b *BasicBlock) string {
	if b == nil {
		return "<nil>"
	}
	return b.Label
}

// VerifyPass runs Verify on every function. It never changes the program;
// the first failure is kept in Err.
type VerifyPass struct {
	Err error
}

func (vp *VerifyPass) Name() string {
	return "verify"
}

func (vp *VerifyPass) Description() string {
	return "Checks use-lists, terminators and operand types"
}

func (vp *VerifyPass) Apply(program *Program) bool {
	for _, fn := range program.Functions {
		if err := Verify(fn); err != nil {
			logger().Errorf("verification failed: %s", err)
			if vp.Err == nil {
				vp.Err = err
			}
		}
	}
	return false
}
