package ir

import (
	"math/big"
	"sort"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"constfold/grammar"
	diag "constfold/internal/errors"
)

// Builder converts a parsed IR module into use-list IR.
// It keeps going after errors so that every problem in a file is reported.
type Builder struct {
	program     *Program
	diagnostics []diag.CompilerError
	positions   map[Instruction]diag.Position

	// Per-function state
	currentFunc *Function
	values      map[string]*Value
	blocks      map[string]*BasicBlock
}

// NewBuilder creates a new IR builder
func NewBuilder() *Builder {
	return &Builder{}
}

// pendingInstruction pairs an IR instruction with the text it came from
type pendingInstruction struct {
	source *grammar.Instruction
	inst   Instruction
}

// Build converts the module. The program is nil if any error-level
// diagnostic was produced; warnings are returned either way.
func (b *Builder) Build(module *grammar.Module) (*Program, []diag.CompilerError) {
	b.program = &Program{Name: module.Pos.Filename}
	b.diagnostics = nil
	b.positions = make(map[Instruction]diag.Position)

	seen := make(map[string]bool)
	for _, astFunc := range module.Functions {
		name := grammar.GlobalName(astFunc.Name.Name)
		if seen[name] {
			b.report(diag.DuplicateDefinition("function", astFunc.Name.Name, position(astFunc.Name.Pos)))
			continue
		}
		seen[name] = true
		b.program.Functions = append(b.program.Functions, b.buildFunction(astFunc))
	}

	if diag.HasErrors(b.diagnostics) {
		return nil, b.diagnostics
	}
	return b.program, b.diagnostics
}

// buildFunction creates the function, its parameters and blocks, then fills
// in instructions in two steps so that values may be used in blocks that
// appear before their definition.
func (b *Builder) buildFunction(astFunc *grammar.Function) *Function {
	var returnType Type = Void
	if astFunc.ReturnType != nil {
		returnType = b.resolveType(astFunc.ReturnType)
	}

	fn := NewFunction(grammar.GlobalName(astFunc.Name.Name), returnType)
	b.currentFunc = fn
	b.values = make(map[string]*Value)
	b.blocks = make(map[string]*BasicBlock)

	for _, param := range astFunc.Params {
		typ := b.resolveType(param.Type)
		name := grammar.LocalName(param.Name.Name)
		if _, dup := b.values[name]; dup {
			b.report(diag.DuplicateDefinition("value", param.Name.Name, position(param.Name.Pos)))
			continue
		}
		b.values[name] = fn.AddParam(name, typ)
	}

	var astBlocks []*grammar.Block
	for _, astBlock := range astFunc.Blocks {
		if _, dup := b.blocks[astBlock.Label]; dup {
			b.report(diag.DuplicateDefinition("block", astBlock.Label, position(astBlock.Pos)))
			continue
		}
		b.blocks[astBlock.Label] = fn.NewBlock(astBlock.Label)
		astBlocks = append(astBlocks, astBlock)
	}

	// First step: create every instruction and its result value
	pending := make(map[*grammar.Block][]pendingInstruction)
	for _, astBlock := range astBlocks {
		for _, astInst := range astBlock.Instructions {
			if inst := b.declareInstruction(astInst); inst != nil {
				pending[astBlock] = append(pending[astBlock], pendingInstruction{source: astInst, inst: inst})
			}
		}
	}

	// Second step: resolve operands and append
	for _, astBlock := range astBlocks {
		block := b.blocks[astBlock.Label]
		terminated := false
		for _, p := range pending[astBlock] {
			if terminated {
				b.report(diag.InstructionAfterTerminator(block.Label, position(p.source.Pos)))
				break
			}
			if b.resolveOperands(p.source, p.inst) {
				block.Append(p.inst)
			}
			terminated = p.source.IsTerminator()
		}
		if !terminated {
			b.report(diag.MissingTerminator(block.Label, position(astBlock.Pos)))
		}
	}

	return fn
}

// declareInstruction creates the instruction with its result but without operands
func (b *Builder) declareInstruction(astInst *grammar.Instruction) Instruction {
	fn := b.currentFunc
	mnemonic := astInst.Mnemonic()
	pos := position(astInst.Pos)

	resultName := ""
	if astInst.Result != nil {
		resultName = grammar.LocalName(astInst.Result.Name)
	}

	var inst Instruction
	switch {
	case astInst.Alloca != nil:
		typ := b.resolveType(astInst.Alloca.Type)
		if isVoid(typ) {
			b.report(diag.TypeMismatch("a sized type", "void", position(astInst.Alloca.Type.Pos)))
		}
		inst = NewAlloca(fn, resultName, typ)

	case astInst.Load != nil:
		typ := b.resolveType(astInst.Load.Type)
		if isVoid(typ) {
			b.report(diag.TypeMismatch("a sized type", "void", position(astInst.Load.Type.Pos)))
		}
		inst = NewLoad(fn, resultName, typ, nil)

	case astInst.Store != nil:
		inst = NewStore(fn, nil, nil)

	case astInst.Binary != nil:
		op, _ := ParseBinaryOp(astInst.Binary.Op)
		typ := b.resolveType(astInst.Binary.Type)
		if _, ok := typ.(*IntType); !ok && typ != nil {
			b.report(diag.TypeMismatch("an integer type", typ.String(), position(astInst.Binary.Type.Pos)))
		}
		inst = NewBinary(fn, resultName, op, typ, nil, nil)

	case astInst.Call != nil:
		typ := b.resolveType(astInst.Call.Type)
		call := NewCall(fn, resultName, typ, grammar.GlobalName(astInst.Call.Callee.Name))
		call.Args = make([]*Value, len(astInst.Call.Args))
		if typ == nil {
			b.positions[call] = pos
			return call // unknown type, binding cannot be checked
		}
		inst = call

	case astInst.Ret != nil:
		inst = NewReturn(fn, nil)

	case astInst.Br != nil:
		if astInst.Br.Target != nil {
			inst = NewJump(fn, nil)
		} else {
			inst = NewBranch(fn, nil, nil, nil)
		}

	default:
		return nil
	}
	b.positions[inst] = pos

	result := inst.GetResult()
	switch {
	case result == nil && astInst.Result != nil:
		b.report(diag.UnexpectedResult(mnemonic, pos))
	case result != nil && astInst.Result == nil:
		b.report(diag.MissingResult(mnemonic, pos))
	case result != nil:
		if _, dup := b.values[resultName]; dup {
			b.report(diag.DuplicateDefinition("value", astInst.Result.Name, position(astInst.Result.Pos)))
		} else {
			b.values[resultName] = result
		}
	}

	return inst
}

// resolveOperands fills in operands and branch targets. It returns false if
// the instruction could not be completed.
func (b *Builder) resolveOperands(astInst *grammar.Instruction, inst Instruction) bool {
	ok := true
	check := func(v *Value) *Value {
		if v == nil {
			ok = false
		}
		return v
	}

	switch i := inst.(type) {
	case *AllocaInstruction:

	case *LoadInstruction:
		i.Address = check(b.resolvePointer(astInst.Load.Address))

	case *StoreInstruction:
		s := astInst.Store
		i.Value = check(b.resolveOperand(b.resolveType(s.Value.Type), s.Value.Value))
		i.Address = check(b.resolvePointer(s.Address))

	case *BinaryInstruction:
		bin := astInst.Binary
		i.Left = check(b.resolveOperand(i.Result.Type, bin.Left))
		i.Right = check(b.resolveOperand(i.Result.Type, bin.Right))

	case *CallInstruction:
		for n, arg := range astInst.Call.Args {
			i.Args[n] = check(b.resolveOperand(b.resolveType(arg.Type), arg.Value))
		}

	case *ReturnTerminator:
		ret := astInst.Ret
		want := b.currentFunc.ReturnType
		switch {
		case ret.Void && !isVoid(want):
			b.report(diag.TypeMismatch(typeName(want), "void", position(ret.Pos)))
			ok = false
		case !ret.Void:
			typ := b.resolveType(ret.Value.Type)
			if typ != nil && !SameType(typ, want) {
				b.report(diag.TypeMismatch(typeName(want), typ.String(), position(ret.Value.Pos)))
				ok = false
			}
			i.Value = check(b.resolveOperand(typ, ret.Value.Value))
		}

	case *JumpTerminator:
		i.Target = b.resolveLabel(astInst.Br.Target)
		ok = i.Target != nil

	case *BranchTerminator:
		br := astInst.Br
		condType := b.resolveType(br.Cond.Type)
		if condType != nil && !SameType(condType, I1) {
			b.report(diag.TypeMismatch("i1", condType.String(), position(br.Cond.Pos)))
			ok = false
		}
		i.Condition = check(b.resolveOperand(condType, br.Cond.Value))
		i.TrueBlock = b.resolveLabel(br.IfTrue)
		i.FalseBlock = b.resolveLabel(br.IfFalse)
		ok = ok && i.TrueBlock != nil && i.FalseBlock != nil
	}

	return ok
}

// resolvePointer resolves a "ptr %x" operand
func (b *Builder) resolvePointer(op *grammar.Operand) *Value {
	typ := b.resolveType(op.Type)
	if typ != nil && !SameType(typ, Ptr) {
		b.report(diag.TypeMismatch("ptr", typ.String(), position(op.Type.Pos)))
		return nil
	}
	return b.resolveOperand(Ptr, op.Value)
}

// resolveOperand looks up a %name or interns a literal of the given type
func (b *Builder) resolveOperand(typ Type, ref *grammar.ValueRef) *Value {
	if typ == nil {
		return nil // unknown type, already reported
	}
	pos := position(ref.Pos)

	if ref.Local != nil {
		name := grammar.LocalName(*ref.Local)
		v, ok := b.values[name]
		if !ok {
			b.report(diag.UndefinedValue(name, pos, b.valueNames()))
			return nil
		}
		if !SameType(v.Type, typ) {
			b.report(diag.TypeMismatch(typ.String(), v.Type.String(), pos))
			return nil
		}
		return v
	}

	it, ok := typ.(*IntType)
	if !ok {
		b.report(diag.TypeMismatch("an integer type for literal "+*ref.Int, typ.String(), pos))
		return nil
	}
	return b.literal(it, *ref.Int, pos)
}

// literal parses a decimal or 0x literal and interns it as a constant.
// Values outside both the signed and unsigned range of the width wrap.
func (b *Builder) literal(typ *IntType, text string, pos diag.Position) *Value {
	digits, base := text, 10
	negative := strings.HasPrefix(digits, "-")
	digits = strings.TrimPrefix(digits, "-")
	if hex, ok := strings.CutPrefix(digits, "0x"); ok {
		digits, base = hex, 16
	}
	x, ok := new(big.Int).SetString(digits, base)
	if !ok {
		b.report(diag.TypeMismatch("an integer literal", text, pos))
		return nil
	}
	if negative {
		x.Neg(x)
	}

	lowest := new(big.Int).Neg(new(big.Int).Rsh(typ.Modulus(), 1))
	highest := new(big.Int).Sub(typ.Modulus(), big.NewInt(1))
	c := b.currentFunc.Constant(typ, x)
	if x.Cmp(lowest) < 0 || x.Cmp(highest) > 0 {
		b.report(diag.LiteralWrapped(text, typ.String(), c.SignedConst().String(), pos))
	}
	return c
}

func (b *Builder) resolveLabel(ref *grammar.Local) *BasicBlock {
	label := grammar.LocalName(ref.Name)
	block, ok := b.blocks[label]
	if !ok {
		known := make([]string, 0, len(b.blocks))
		for name := range b.blocks {
			known = append(known, name)
		}
		sort.Strings(known)
		b.report(diag.UndefinedLabel(label, position(ref.Pos), known))
		return nil
	}
	return block
}

// resolveType maps a type name to a Type; nil means it was reported as unknown
func (b *Builder) resolveType(name *grammar.TypeName) Type {
	switch name.Name {
	case "ptr":
		return Ptr
	case "void":
		return Void
	}

	if bits, ok := strings.CutPrefix(name.Name, "i"); ok {
		n, err := strconv.Atoi(bits)
		if err == nil && n >= 1 && n <= MaxIntBits && bits[0] != '0' {
			return internIntType(n)
		}
	}

	b.report(diag.UnknownType(name.Name, position(name.Pos)))
	return nil
}

func (b *Builder) valueNames() []string {
	names := make([]string, 0, len(b.values))
	for name := range b.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Position returns where inst was written in the source of the last Build
func (b *Builder) Position(inst Instruction) (diag.Position, bool) {
	pos, ok := b.positions[inst]
	return pos, ok
}

func (b *Builder) report(err diag.CompilerError) {
	b.diagnostics = append(b.diagnostics, err)
}

// Helper methods

func internIntType(bits int) *IntType {
	switch bits {
	case 1:
		return I1
	case 8:
		return I8
	case 16:
		return I16
	case 32:
		return I32
	case 64:
		return I64
	}
	return &IntType{Bits: bits}
}

func isVoid(t Type) bool {
	_, ok := t.(*VoidType)
	return ok
}

func typeName(t Type) string {
	if t == nil {
		return "<unknown>"
	}
	return t.String()
}

func position(pos lexer.Position) diag.Position {
	return diag.Position{Filename: pos.Filename, Line: pos.Line, Column: pos.Column}
}
