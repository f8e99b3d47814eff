package ir

import (
	"fmt"
	"math/big"
)

// IR types and structures for intra-block optimization.
// Every Value keeps a use-list so that passes can redirect uses in place.

// Program is a parsed IR module
type Program struct {
	Name      string
	Functions []*Function
}

// Function represents a function in IR form
type Function struct {
	Name       string
	Params     []*Parameter
	ReturnType Type
	Blocks     []*BasicBlock

	valueCounter int
	instCounter  int
	constants    map[constantKey]*Value
}

// BasicBlock represents a sequence of instructions with no branches
type BasicBlock struct {
	Label        string
	Instructions []Instruction
	Terminator   Terminator
	Predecessors []*BasicBlock
	Successors   []*BasicBlock
	Parent       *Function
}

// Value is an SSA value. Values are compared by identity.
type Value struct {
	ID       int
	Name     string
	Type     Type
	DefBlock *BasicBlock
	DefInst  Instruction
	Uses     []*Use

	// Const is non-nil for integer constants and always lies in [0, 2^bits).
	Const *big.Int
}

// Use is one operand slot of one instruction
type Use struct {
	Value *Value
	User  Instruction
	Index int
}

// Parameter represents a function parameter
type Parameter struct {
	Name  string
	Type  Type
	Value *Value
}

type constantKey struct {
	bits    int
	payload string
}

// NewFunction creates an empty function
func NewFunction(name string, returnType Type) *Function {
	return &Function{
		Name:       name,
		ReturnType: returnType,
		constants:  make(map[constantKey]*Value),
	}
}

// NewBlock appends a new basic block to the function
func (f *Function) NewBlock(label string) *BasicBlock {
	block := &BasicBlock{
		Label:  label,
		Parent: f,
	}
	f.Blocks = append(f.Blocks, block)
	return block
}

// NewValue creates a fresh non-constant value
func (f *Function) NewValue(name string, typ Type) *Value {
	value := &Value{
		ID:   f.valueCounter,
		Name: name,
		Type: typ,
	}
	f.valueCounter++
	return value
}

// AddParam appends a parameter and returns its value
func (f *Function) AddParam(name string, typ Type) *Value {
	value := f.NewValue(name, typ)
	f.Params = append(f.Params, &Parameter{Name: name, Type: typ, Value: value})
	return value
}

// Constant returns the interned integer constant of the given type.
// x is reduced modulo 2^bits, so negative inputs wrap in two's complement.
func (f *Function) Constant(typ *IntType, x *big.Int) *Value {
	payload := typ.Truncate(x)
	key := constantKey{bits: typ.Bits, payload: payload.String()}
	if f.constants == nil {
		f.constants = make(map[constantKey]*Value)
	}
	if c, ok := f.constants[key]; ok {
		return c
	}

	c := f.NewValue("", typ)
	c.Const = payload
	f.constants[key] = c
	return c
}

// ConstantInt is a convenience wrapper around Constant
func (f *Function) ConstantInt(typ *IntType, x int64) *Value {
	return f.Constant(typ, big.NewInt(x))
}

func (f *Function) nextInstID() int {
	id := f.instCounter
	f.instCounter++
	return id
}

// Append adds an instruction to the block, registering its operand uses
// and its result definition.
func (b *BasicBlock) Append(inst Instruction) {
	b.attach(inst)
	if term, ok := inst.(Terminator); ok {
		b.Terminator = term
		for _, succ := range term.GetSuccessors() {
			b.Successors = append(b.Successors, succ)
			succ.Predecessors = append(succ.Predecessors, b)
		}
		return
	}
	b.Instructions = append(b.Instructions, inst)
}

func (b *BasicBlock) attach(inst Instruction) {
	setInstructionHome(inst, b)
	for i, op := range inst.GetOperands() {
		if op != nil {
			op.addUse(inst, i)
		}
	}
	if result := inst.GetResult(); result != nil {
		result.DefBlock = b
		result.DefInst = inst
	}
}

// IsConstant reports whether v is a compile-time integer constant
func (v *Value) IsConstant() bool {
	return v != nil && v.Const != nil
}

// SignedConst returns the constant payload interpreted as a two's-complement
// signed integer of the value's width. It returns nil for non-constants.
func (v *Value) SignedConst() *big.Int {
	if !v.IsConstant() {
		return nil
	}
	it, ok := v.Type.(*IntType)
	if !ok {
		return new(big.Int).Set(v.Const)
	}
	return it.Signed(v.Const)
}

// String formats v the way it appears as an operand: constants as signed
// decimal (i1 unsigned), other values by name
func (v *Value) String() string {
	return valueRef(v)
}

// HasUses reports whether any instruction still reads v
func (v *Value) HasUses() bool {
	return len(v.Uses) > 0
}

// ReplaceAllUsesWith redirects every use of v to replacement and returns the
// number of operand slots that were redirected.
func (v *Value) ReplaceAllUsesWith(replacement *Value) int {
	if v == replacement || len(v.Uses) == 0 {
		return 0
	}

	uses := v.Uses
	v.Uses = nil
	for _, use := range uses {
		use.User.SetOperand(use.Index, replacement)
		use.Value = replacement
		replacement.Uses = append(replacement.Uses, use)
	}
	return len(uses)
}

func (v *Value) addUse(user Instruction, index int) {
	v.Uses = append(v.Uses, &Use{Value: v, User: user, Index: index})
}

// Types

type Type interface {
	String() string
}

// IntType is a fixed-width integer type
type IntType struct {
	Bits int
}

// PointerType is an opaque pointer to a memory location
type PointerType struct{}

// VoidType is the type of instructions and functions producing nothing
type VoidType struct{}

// Shared type instances
var (
	I1   = &IntType{Bits: 1}
	I8   = &IntType{Bits: 8}
	I16  = &IntType{Bits: 16}
	I32  = &IntType{Bits: 32}
	I64  = &IntType{Bits: 64}
	Ptr  = &PointerType{}
	Void = &VoidType{}
)

// MaxIntBits bounds the width of integer types
const MaxIntBits = 1 << 16

func (i *IntType) String() string     { return fmt.Sprintf("i%d", i.Bits) }
func (p *PointerType) String() string { return "ptr" }
func (v *VoidType) String() string    { return "void" }

// Modulus returns 2^bits
func (i *IntType) Modulus() *big.Int {
	return new(big.Int).Lsh(big.NewInt(1), uint(i.Bits))
}

// Truncate reduces x modulo 2^bits into [0, 2^bits)
func (i *IntType) Truncate(x *big.Int) *big.Int {
	// big.Int.Mod is Euclidean, so the result is never negative
	return new(big.Int).Mod(x, i.Modulus())
}

// Signed interprets an unsigned payload as a two's-complement value
func (i *IntType) Signed(x *big.Int) *big.Int {
	u := i.Truncate(x)
	if u.Bit(i.Bits-1) == 1 {
		return u.Sub(u, i.Modulus())
	}
	return u
}

// SameType reports whether two types are structurally equal
func SameType(a, b Type) bool {
	switch at := a.(type) {
	case *IntType:
		bt, ok := b.(*IntType)
		return ok && at.Bits == bt.Bits
	case *PointerType:
		_, ok := b.(*PointerType)
		return ok
	case *VoidType:
		_, ok := b.(*VoidType)
		return ok
	}
	return false
}
