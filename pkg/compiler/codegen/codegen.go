// Package codegen translates VM instructions into Hack assembly.
//
// The generated code keeps the VM stack in RAM. The cell SP holds the address
// of the next free stack slot; every block reads and writes through it and
// leaves it pointing one past the new top of stack.
package codegen

import (
	"fmt"
	"io"
	"strconv"

	"github.com/zurustar/vmtrans/pkg/opcode"
)

// Reserved register bank.
const (
	// PointerBase is the register that pointer 0 maps to (THIS); pointer 1 is THAT.
	PointerBase = 3
	// TempBase is the first of the eight temp registers.
	TempBase = 5
	// ScratchRegister holds the destination address during a pop.
	ScratchRegister = "R13"
)

// Label prefixes used by comparison blocks.
const (
	TrueLabelPrefix = "LABEL_"
	EndLabelPrefix  = "ENDLABEL_"
)

var segmentBase = map[opcode.Segment]string{
	opcode.Local:    "LCL",
	opcode.Argument: "ARG",
	opcode.This:     "THIS",
	opcode.That:     "THAT",
}

var binaryOps = map[opcode.Cmd]string{
	opcode.Add: "M=D+M",
	opcode.Sub: "M=M-D",
	opcode.And: "M=D&M",
	opcode.Or:  "M=D|M",
}

var unaryOps = map[opcode.Cmd]string{
	opcode.Neg: "M=-M",
	opcode.Not: "M=!M",
}

var jumps = map[opcode.Cmd]string{
	opcode.Eq: "JEQ",
	opcode.Gt: "JGT",
	opcode.Lt: "JLT",
}

// Option configures a Generator.
type Option func(*Generator)

// WithLabelBase starts the label counter at n instead of 0.
func WithLabelBase(n int) Option {
	return func(g *Generator) {
		g.labels = n
	}
}

// WithStaticNamespace emits static variables as "<ns>.<offset>" instead of
// "static<offset>", so that files translated separately do not share statics.
func WithStaticNamespace(ns string) Option {
	return func(g *Generator) {
		g.staticNS = ns
	}
}

// Generator emits Hack assembly for a stream of instructions.
// A Generator owns its label counter; use one Generator per output file.
type Generator struct {
	w        io.Writer
	err      error
	labels   int
	staticNS string
	lines    int
}

// New creates a Generator writing to w.
func New(w io.Writer, opts ...Option) *Generator {
	g := &Generator{w: w}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Labels returns the current value of the label counter.
func (g *Generator) Labels() int {
	return g.labels
}

// Lines returns the number of assembly lines written so far.
func (g *Generator) Lines() int {
	return g.lines
}

// Generate emits every instruction of the program in order.
func (g *Generator) Generate(program opcode.Program) error {
	for _, ins := range program {
		if err := g.Emit(ins); err != nil {
			return err
		}
	}
	return nil
}

// Emit writes the assembly block for one instruction, preceded by a comment
// restating the command.
func (g *Generator) Emit(ins opcode.Instruction) error {
	if g.err != nil {
		return g.err
	}

	switch ins.Cmd {
	case opcode.Push:
		return g.emitPush(ins)
	case opcode.Pop:
		return g.emitPop(ins)
	case opcode.Add, opcode.Sub, opcode.And, opcode.Or:
		g.comment(ins)
		g.binaryPrologue()
		g.write(binaryOps[ins.Cmd])
		g.incrementSP()
	case opcode.Neg, opcode.Not:
		g.comment(ins)
		g.decrementSP()
		g.selectTop()
		g.write(unaryOps[ins.Cmd])
		g.incrementSP()
	case opcode.Eq, opcode.Gt, opcode.Lt:
		g.comment(ins)
		g.emitComparison(jumps[ins.Cmd])
	default:
		return fmt.Errorf("line %d: no code generation rule for command %q", ins.Line, ins.Cmd)
	}
	return g.err
}

func (g *Generator) emitPush(ins opcode.Instruction) error {
	if err := g.checkSegment(ins); err != nil {
		return err
	}
	g.comment(ins)
	g.address(ins.Segment, ins.Offset)
	if ins.Segment == opcode.Constant {
		g.write("D=A")
	} else {
		g.write("D=M")
	}
	g.selectTop()
	g.write("M=D")
	g.incrementSP()
	return g.err
}

func (g *Generator) emitPop(ins opcode.Instruction) error {
	if err := g.checkSegment(ins); err != nil {
		return err
	}
	if ins.Segment == opcode.Constant {
		return fmt.Errorf("line %d: pop constant has no destination address", ins.Line)
	}
	g.comment(ins)
	g.address(ins.Segment, ins.Offset)
	g.write("D=A")
	g.write("@" + ScratchRegister)
	g.write("M=D")
	g.popToD()
	g.write("@" + ScratchRegister)
	g.write("A=M")
	g.write("M=D")
	return g.err
}

// emitComparison leaves -1 on the stack when the jump condition holds for
// (second - top), 0 otherwise. Each call consumes one label number.
func (g *Generator) emitComparison(jump string) {
	n := strconv.Itoa(g.labels)
	g.labels++

	g.binaryPrologue()
	g.write("D=M-D")
	g.write("@" + TrueLabelPrefix + n)
	g.write("D;" + jump)
	g.selectTop()
	g.write("M=0")
	g.write("@" + EndLabelPrefix + n)
	g.write("0;JMP")
	g.write("(" + TrueLabelPrefix + n + ")")
	g.selectTop()
	g.write("M=-1")
	g.write("(" + EndLabelPrefix + n + ")")
	g.incrementSP()
}

func (g *Generator) checkSegment(ins opcode.Instruction) error {
	switch ins.Segment {
	case opcode.Local, opcode.Argument, opcode.This, opcode.That,
		opcode.Constant, opcode.Static, opcode.Pointer, opcode.Temp:
	default:
		return fmt.Errorf("line %d: no addressing rule for segment %q", ins.Line, ins.Segment)
	}
	if ins.Offset < 0 {
		return fmt.Errorf("line %d: negative offset %d", ins.Line, ins.Offset)
	}
	return nil
}

// address leaves A holding seg[offset], or the literal offset for constant.
func (g *Generator) address(seg opcode.Segment, offset int) {
	switch seg {
	case opcode.Local, opcode.Argument, opcode.This, opcode.That:
		g.write("@" + segmentBase[seg])
		g.write("D=M")
		g.write("@" + strconv.Itoa(offset))
		g.write("A=D+A")
	case opcode.Constant:
		g.write("@" + strconv.Itoa(offset))
	case opcode.Static:
		g.write("@" + g.staticSymbol(offset))
	case opcode.Pointer:
		g.write("@R" + strconv.Itoa(PointerBase+offset))
	case opcode.Temp:
		g.write("@R" + strconv.Itoa(TempBase+offset))
	}
}

func (g *Generator) staticSymbol(offset int) string {
	if g.staticNS != "" {
		return g.staticNS + "." + strconv.Itoa(offset)
	}
	return "static" + strconv.Itoa(offset)
}

// binaryPrologue pops the top into D and selects the new top cell, which
// holds the first operand. SP is left pointing at that cell.
func (g *Generator) binaryPrologue() {
	g.popToD()
	g.decrementSP()
	g.selectTop()
}

func (g *Generator) popToD() {
	g.decrementSP()
	g.write("A=M")
	g.write("D=M")
}

func (g *Generator) selectTop() {
	g.write("@SP")
	g.write("A=M")
}

func (g *Generator) incrementSP() {
	g.write("@SP")
	g.write("M=M+1")
}

func (g *Generator) decrementSP() {
	g.write("@SP")
	g.write("M=M-1")
}

func (g *Generator) comment(ins opcode.Instruction) {
	g.write("// " + ins.String())
}

func (g *Generator) write(line string) {
	if g.err != nil {
		return
	}
	if _, err := io.WriteString(g.w, line+"\n"); err != nil {
		g.err = fmt.Errorf("write assembly: %w", err)
		return
	}
	g.lines++
}
