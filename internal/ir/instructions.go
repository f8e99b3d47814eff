package ir

import (
	"fmt"
	"strings"
)

// Instruction is the closed set of IR instructions. The unexported setBlock
// method keeps other packages from adding variants, so type switches over
// instructions in this package are exhaustive.
type Instruction interface {
	GetID() int
	GetResult() *Value
	GetOperands() []*Value
	SetOperand(i int, v *Value)
	GetBlock() *BasicBlock
	IsTerminator() bool
	Opcode() Opcode
	String() string

	setBlock(b *BasicBlock)
}

// Terminators end basic blocks
type Terminator interface {
	Instruction
	GetSuccessors() []*BasicBlock
}

// Opcode tags every instruction variant
type Opcode int

const (
	OpcodeAlloca Opcode = iota
	OpcodeLoad
	OpcodeStore
	OpcodeBinary
	OpcodeCall
	OpcodeReturn
	OpcodeJump
	OpcodeBranch
)

var opcodeNames = [...]string{
	OpcodeAlloca: "alloca",
	OpcodeLoad:   "load",
	OpcodeStore:  "store",
	OpcodeBinary: "binary",
	OpcodeCall:   "call",
	OpcodeReturn: "ret",
	OpcodeJump:   "br",
	OpcodeBranch: "br",
}

func (o Opcode) String() string {
	if int(o) < len(opcodeNames) {
		return opcodeNames[o]
	}
	return fmt.Sprintf("opcode(%d)", int(o))
}

// BinaryOp is the operator of a BinaryInstruction
type BinaryOp string

const (
	OpAdd  BinaryOp = "add"
	OpSub  BinaryOp = "sub"
	OpMul  BinaryOp = "mul"
	OpUDiv BinaryOp = "udiv"
	OpSDiv BinaryOp = "sdiv"
	OpURem BinaryOp = "urem"
	OpSRem BinaryOp = "srem"
	OpAnd  BinaryOp = "and"
	OpOr   BinaryOp = "or"
	OpXor  BinaryOp = "xor"
	OpShl  BinaryOp = "shl"
	OpLShr BinaryOp = "lshr"
	OpAShr BinaryOp = "ashr"
)

// BinaryOps lists every operator in declaration order
var BinaryOps = []BinaryOp{
	OpAdd, OpSub, OpMul, OpUDiv, OpSDiv, OpURem, OpSRem,
	OpAnd, OpOr, OpXor, OpShl, OpLShr, OpAShr,
}

// ParseBinaryOp maps a mnemonic to its operator
func ParseBinaryOp(s string) (BinaryOp, bool) {
	for _, op := range BinaryOps {
		if string(op) == s {
			return op, true
		}
	}
	return "", false
}

type AllocaInstruction struct {
	ID        int
	Result    *Value
	Block     *BasicBlock
	Allocated Type
}

type LoadInstruction struct {
	ID      int
	Result  *Value
	Block   *BasicBlock
	Address *Value
}

type StoreInstruction struct {
	ID      int
	Block   *BasicBlock
	Address *Value
	Value   *Value
}

type BinaryInstruction struct {
	ID     int
	Result *Value
	Block  *BasicBlock
	Op     BinaryOp
	Left   *Value
	Right  *Value
}

// CallInstruction is opaque to the optimizer
type CallInstruction struct {
	ID       int
	Result   *Value // nil for void calls
	Block    *BasicBlock
	Function string
	Args     []*Value
}

type ReturnTerminator struct {
	ID    int
	Block *BasicBlock
	Value *Value // nil for ret void
}

type JumpTerminator struct {
	ID     int
	Block  *BasicBlock
	Target *BasicBlock
}

type BranchTerminator struct {
	ID         int
	Block      *BasicBlock
	Condition  *Value
	TrueBlock  *BasicBlock
	FalseBlock *BasicBlock
}

// Constructors. Each takes the function so that ids and result values are
// allocated from the function's counters.

func NewAlloca(fn *Function, name string, allocated Type) *AllocaInstruction {
	return &AllocaInstruction{ID: fn.nextInstID(), Result: fn.NewValue(name, Ptr), Allocated: allocated}
}

func NewLoad(fn *Function, name string, typ Type, address *Value) *LoadInstruction {
	return &LoadInstruction{ID: fn.nextInstID(), Result: fn.NewValue(name, typ), Address: address}
}

func NewStore(fn *Function, value, address *Value) *StoreInstruction {
	return &StoreInstruction{ID: fn.nextInstID(), Address: address, Value: value}
}

func NewBinary(fn *Function, name string, op BinaryOp, typ Type, left, right *Value) *BinaryInstruction {
	return &BinaryInstruction{ID: fn.nextInstID(), Result: fn.NewValue(name, typ), Op: op, Left: left, Right: right}
}

// NewCall creates a call; a void or nil type produces no result
func NewCall(fn *Function, name string, typ Type, callee string, args ...*Value) *CallInstruction {
	call := &CallInstruction{ID: fn.nextInstID(), Function: callee, Args: args}
	if _, void := typ.(*VoidType); typ != nil && !void {
		call.Result = fn.NewValue(name, typ)
	}
	return call
}

func NewReturn(fn *Function, value *Value) *ReturnTerminator {
	return &ReturnTerminator{ID: fn.nextInstID(), Value: value}
}

func NewJump(fn *Function, target *BasicBlock) *JumpTerminator {
	return &JumpTerminator{ID: fn.nextInstID(), Target: target}
}

func NewBranch(fn *Function, cond *Value, ifTrue, ifFalse *BasicBlock) *BranchTerminator {
	return &BranchTerminator{ID: fn.nextInstID(), Condition: cond, TrueBlock: ifTrue, FalseBlock: ifFalse}
}

func setInstructionHome(inst Instruction, b *BasicBlock) { inst.setBlock(b) }

// Implementation of interfaces

func (a *AllocaInstruction) GetID() int                 { return a.ID }
func (a *AllocaInstruction) GetResult() *Value          { return a.Result }
func (a *AllocaInstruction) GetOperands() []*Value      { return nil }
func (a *AllocaInstruction) SetOperand(i int, v *Value) { panic(badOperand(a, i)) }
func (a *AllocaInstruction) GetBlock() *BasicBlock      { return a.Block }
func (a *AllocaInstruction) IsTerminator() bool         { return false }
func (a *AllocaInstruction) Opcode() Opcode             { return OpcodeAlloca }
func (a *AllocaInstruction) setBlock(b *BasicBlock)     { a.Block = b }

func (l *LoadInstruction) GetID() int            { return l.ID }
func (l *LoadInstruction) GetResult() *Value     { return l.Result }
func (l *LoadInstruction) GetOperands() []*Value { return []*Value{l.Address} }
func (l *LoadInstruction) SetOperand(i int, v *Value) {
	if i != 0 {
		panic(badOperand(l, i))
	}
	l.Address = v
}
func (l *LoadInstruction) GetBlock() *BasicBlock  { return l.Block }
func (l *LoadInstruction) IsTerminator() bool     { return false }
func (l *LoadInstruction) Opcode() Opcode         { return OpcodeLoad }
func (l *LoadInstruction) setBlock(b *BasicBlock) { l.Block = b }

// Operand 0 is the stored value, operand 1 the address
func (s *StoreInstruction) GetID() int            { return s.ID }
func (s *StoreInstruction) GetResult() *Value     { return nil }
func (s *StoreInstruction) GetOperands() []*Value { return []*Value{s.Value, s.Address} }
func (s *StoreInstruction) SetOperand(i int, v *Value) {
	switch i {
	case 0:
		s.Value = v
	case 1:
		s.Address = v
	default:
		panic(badOperand(s, i))
	}
}
func (s *StoreInstruction) GetBlock() *BasicBlock  { return s.Block }
func (s *StoreInstruction) IsTerminator() bool     { return false }
func (s *StoreInstruction) Opcode() Opcode         { return OpcodeStore }
func (s *StoreInstruction) setBlock(b *BasicBlock) { s.Block = b }

func (b *BinaryInstruction) GetID() int            { return b.ID }
func (b *BinaryInstruction) GetResult() *Value     { return b.Result }
func (b *BinaryInstruction) GetOperands() []*Value { return []*Value{b.Left, b.Right} }
func (b *BinaryInstruction) SetOperand(i int, v *Value) {
	switch i {
	case 0:
		b.Left = v
	case 1:
		b.Right = v
	default:
		panic(badOperand(b, i))
	}
}
func (b *BinaryInstruction) GetBlock() *BasicBlock   { return b.Block }
func (b *BinaryInstruction) IsTerminator() bool      { return false }
func (b *BinaryInstruction) Opcode() Opcode          { return OpcodeBinary }
func (b *BinaryInstruction) setBlock(bb *BasicBlock) { b.Block = bb }

func (c *CallInstruction) GetID() int            { return c.ID }
func (c *CallInstruction) GetResult() *Value     { return c.Result }
func (c *CallInstruction) GetOperands() []*Value { return c.Args }
func (c *CallInstruction) SetOperand(i int, v *Value) {
	if i < 0 || i >= len(c.Args) {
		panic(badOperand(c, i))
	}
	c.Args[i] = v
}
func (c *CallInstruction) GetBlock() *BasicBlock  { return c.Block }
func (c *CallInstruction) IsTerminator() bool     { return false }
func (c *CallInstruction) Opcode() Opcode         { return OpcodeCall }
func (c *CallInstruction) setBlock(b *BasicBlock) { c.Block = b }

// Terminator implementations

func (r *ReturnTerminator) GetID() int        { return r.ID }
func (r *ReturnTerminator) GetResult() *Value { return nil }
func (r *ReturnTerminator) GetOperands() []*Value {
	if r.Value != nil {
		return []*Value{r.Value}
	}
	return nil
}
func (r *ReturnTerminator) SetOperand(i int, v *Value) {
	if i != 0 || r.Value == nil {
		panic(badOperand(r, i))
	}
	r.Value = v
}
func (r *ReturnTerminator) GetBlock() *BasicBlock        { return r.Block }
func (r *ReturnTerminator) IsTerminator() bool           { return true }
func (r *ReturnTerminator) Opcode() Opcode               { return OpcodeReturn }
func (r *ReturnTerminator) GetSuccessors() []*BasicBlock { return nil }
func (r *ReturnTerminator) setBlock(b *BasicBlock)       { r.Block = b }

func (j *JumpTerminator) GetID() int                   { return j.ID }
func (j *JumpTerminator) GetResult() *Value            { return nil }
func (j *JumpTerminator) GetOperands() []*Value        { return nil }
func (j *JumpTerminator) SetOperand(i int, v *Value)   { panic(badOperand(j, i)) }
func (j *JumpTerminator) GetBlock() *BasicBlock        { return j.Block }
func (j *JumpTerminator) IsTerminator() bool           { return true }
func (j *JumpTerminator) Opcode() Opcode               { return OpcodeJump }
func (j *JumpTerminator) GetSuccessors() []*BasicBlock { return []*BasicBlock{j.Target} }
func (j *JumpTerminator) setBlock(b *BasicBlock)       { j.Block = b }

func (b *BranchTerminator) GetID() int            { return b.ID }
func (b *BranchTerminator) GetResult() *Value     { return nil }
func (b *BranchTerminator) GetOperands() []*Value { return []*Value{b.Condition} }
func (b *BranchTerminator) SetOperand(i int, v *Value) {
	if i != 0 {
		panic(badOperand(b, i))
	}
	b.Condition = v
}
func (b *BranchTerminator) GetBlock() *BasicBlock   { return b.Block }
func (b *BranchTerminator) IsTerminator() bool      { return true }
func (b *BranchTerminator) Opcode() Opcode          { return OpcodeBranch }
func (b *BranchTerminator) setBlock(bb *BasicBlock) { b.Block = bb }
func (b *BranchTerminator) GetSuccessors() []*BasicBlock {
	return []*BasicBlock{b.TrueBlock, b.FalseBlock}
}

func badOperand(inst Instruction, i int) string {
	return fmt.Sprintf("ir: %s has no operand %d", inst.Opcode(), i)
}

// String methods render the same syntax the printer emits

func (a *AllocaInstruction) String() string {
	return fmt.Sprintf("%s = alloca %s", valueRef(a.Result), a.Allocated)
}

func (l *LoadInstruction) String() string {
	return fmt.Sprintf("%s = load %s, %s", valueRef(l.Result), l.Result.Type, typedRef(l.Address))
}

func (s *StoreInstruction) String() string {
	return fmt.Sprintf("store %s, %s", typedRef(s.Value), typedRef(s.Address))
}

func (b *BinaryInstruction) String() string {
	return fmt.Sprintf("%s = %s %s %s, %s", valueRef(b.Result), b.Op, b.Result.Type, valueRef(b.Left), valueRef(b.Right))
}

func (c *CallInstruction) String() string {
	args := make([]string, len(c.Args))
	for i, arg := range c.Args {
		args[i] = typedRef(arg)
	}
	if c.Result != nil {
		return fmt.Sprintf("%s = call %s @%s(%s)", valueRef(c.Result), c.Result.Type, c.Function, strings.Join(args, ", "))
	}
	return fmt.Sprintf("call void @%s(%s)", c.Function, strings.Join(args, ", "))
}

func (r *ReturnTerminator) String() string {
	if r.Value == nil {
		return "ret void"
	}
	return "ret " + typedRef(r.Value)
}

func (j *JumpTerminator) String() string {
	return "br label %" + j.Target.Label
}

func (b *BranchTerminator) String() string {
	return fmt.Sprintf("br %s, label %%%s, label %%%s", typedRef(b.Condition), b.TrueBlock.Label, b.FalseBlock.Label)
}

// valueRef formats an operand: constants as signed decimal, others by name
func valueRef(v *Value) string {
	switch {
	case v == nil:
		return "null"
	case v.IsConstant():
		if it, ok := v.Type.(*IntType); ok && it.Bits == 1 {
			return v.Const.String()
		}
		return v.SignedConst().String()
	case v.Name != "":
		return "%" + v.Name
	default:
		return fmt.Sprintf("%%%d", v.ID)
	}
}

func typedRef(v *Value) string {
	if v == nil {
		return "null"
	}
	return v.Type.String() + " " + valueRef(v)
}
