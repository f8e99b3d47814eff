package grammar

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// Module is a whole IR source file
type Module struct {
	Pos       lexer.Position
	Functions []*Function `@@*`
}

type Function struct {
	Pos        lexer.Position
	Name       *Global   `"func" @@ "("`
	Params     []*Param  `[ @@ { "," @@ } ] ")"`
	ReturnType *TypeName `[ "->" @@ ]`
	Blocks     []*Block  `"{" @@* "}"`
}

type Param struct {
	Pos  lexer.Position
	Type *TypeName `@@`
	Name *Local    `@@`
}

type TypeName struct {
	Pos  lexer.Position
	Name string `@Ident`
}

// Global is an @name; Name keeps the sigil
type Global struct {
	Pos  lexer.Position
	Name string `@Global`
}

// Local is a %name; Name keeps the sigil
type Local struct {
	Pos  lexer.Position
	Name string `@Local`
}

type Block struct {
	Pos          lexer.Position
	Label        string         `@Ident ":"`
	Instructions []*Instruction `@@*`
}

type Instruction struct {
	Pos    lexer.Position
	Result *Local  `[ @@ "=" ]`
	Alloca *Alloca `( @@`
	Load   *Load   `| @@`
	Store  *Store  `| @@`
	Call   *Call   `| @@`
	Ret    *Ret    `| @@`
	Br     *Br     `| @@`
	Binary *Binary `| @@ )`
}

type Alloca struct {
	Pos  lexer.Position
	Type *TypeName `"alloca" @@`
}

type Load struct {
	Pos     lexer.Position
	Type    *TypeName `"load" @@ ","`
	Address *Operand  `@@`
}

type Store struct {
	Pos     lexer.Position
	Value   *Operand `"store" @@ ","`
	Address *Operand `@@`
}

type Binary struct {
	Pos   lexer.Position
	Op    string    `@("add" | "sub" | "mul" | "udiv" | "sdiv" | "urem" | "srem" | "and" | "or" | "xor" | "shl" | "lshr" | "ashr")`
	Type  *TypeName `@@`
	Left  *ValueRef `@@ ","`
	Right *ValueRef `@@`
}

type Call struct {
	Pos    lexer.Position
	Type   *TypeName  `"call" @@`
	Callee *Global    `@@ "("`
	Args   []*Operand `[ @@ { "," @@ } ] ")"`
}

type Ret struct {
	Pos   lexer.Position
	Void  bool     `"ret" ( @"void"`
	Value *Operand `| @@ )`
}

// Br is either "br label %L" or "br i1 %c, label %T, label %F"
type Br struct {
	Pos     lexer.Position
	Target  *Local   `"br" ( "label" @@`
	Cond    *Operand `| @@ "," "label"`
	IfTrue  *Local   `@@ "," "label"`
	IfFalse *Local   `@@ )`
}

// Operand is a typed value reference such as "i32 %x" or "i8 -1"
type Operand struct {
	Pos   lexer.Position
	Type  *TypeName `@@`
	Value *ValueRef `@@`
}

type ValueRef struct {
	Pos   lexer.Position
	Local *string `  @Local`
	Int   *string `| @Int`
}

// LocalName strips the sigil from a %name
func LocalName(s string) string {
	return strings.TrimPrefix(s, "%")
}

// GlobalName strips the sigil from an @name
func GlobalName(s string) string {
	return strings.TrimPrefix(s, "@")
}

func (v *ValueRef) String() string {
	switch {
	case v.Local != nil:
		return *v.Local
	case v.Int != nil:
		return *v.Int
	}
	return ""
}

// Mnemonic returns the opcode keyword of the instruction
func (i *Instruction) Mnemonic() string {
	switch {
	case i.Alloca != nil:
		return "alloca"
	case i.Load != nil:
		return "load"
	case i.Store != nil:
		return "store"
	case i.Call != nil:
		return "call"
	case i.Ret != nil:
		return "ret"
	case i.Br != nil:
		return "br"
	case i.Binary != nil:
		return i.Binary.Op
	}
	return ""
}

// IsTerminator reports whether the instruction ends a block
func (i *Instruction) IsTerminator() bool {
	return i.Ret != nil || i.Br != nil
}
