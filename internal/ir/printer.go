package ir

import (
	"fmt"
	"strings"
)

// PrintOptions tweak the printer output
type PrintOptions struct {
	// AnnotateDead marks side-effect free instructions whose result is unused
	AnnotateDead bool
}

// Printer provides pretty-printing for IR.
// The output is valid input for the grammar package.
type Printer struct {
	indent  int
	output  strings.Builder
	options PrintOptions
}

// NewPrinter creates a new IR printer
func NewPrinter(options PrintOptions) *Printer {
	return &Printer{options: options}
}

// Print returns the string representation of an IR program
func Print(program *Program) string {
	return PrintWithOptions(program, PrintOptions{})
}

// PrintWithOptions is Print with explicit options
func PrintWithOptions(program *Program, options PrintOptions) string {
	p := NewPrinter(options)
	p.printProgram(program)
	return p.output.String()
}

// PrintFunction returns the string representation of a single function
func PrintFunction(fn *Function) string {
	p := NewPrinter(PrintOptions{})
	p.printFunction(fn)
	return p.output.String()
}

func (p *Printer) writeLine(format string, args ...any) {
	if format == "" {
		p.output.WriteByte('\n')
		return
	}
	p.output.WriteString(strings.Repeat("  ", p.indent))
	fmt.Fprintf(&p.output, format, args...)
	p.output.WriteByte('\n')
}

// printProgram prints every function separated by a blank line
func (p *Printer) printProgram(program *Program) {
	if program.Name != "" {
		p.writeLine("; module %s", program.Name)
		p.writeLine("")
	}

	for i, fn := range program.Functions {
		if i > 0 {
			p.writeLine("")
		}
		p.printFunction(fn)
	}
}

// printFunction prints a function header and its blocks
func (p *Printer) printFunction(fn *Function) {
	params := make([]string, len(fn.Params))
	for i, param := range fn.Params {
		params[i] = fmt.Sprintf("%s %%%s", param.Type, param.Name)
	}

	sig := fmt.Sprintf("func @%s(%s)", fn.Name, strings.Join(params, ", "))
	if fn.ReturnType != nil {
		if _, void := fn.ReturnType.(*VoidType); !void {
			sig += " -> " + fn.ReturnType.String()
		}
	}

	p.writeLine("%s {", sig)
	for _, block := range fn.Blocks {
		p.printBasicBlock(block)
	}
	p.writeLine("}")
}

// printBasicBlock prints a label followed by its indented instructions
func (p *Printer) printBasicBlock(block *BasicBlock) {
	p.writeLine("%s:", block.Label)

	p.indent++
	for _, inst := range block.Instructions {
		p.printInstruction(inst)
	}
	if block.Terminator != nil {
		p.printInstruction(block.Terminator)
	}
	p.indent--
}

// printInstruction prints an IR instruction
func (p *Printer) printInstruction(inst Instruction) {
	line := inst.String()
	if p.options.AnnotateDead && IsDead(inst) {
		line += " ; dead"
	}
	p.writeLine("%s", line)
}
