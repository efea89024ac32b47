// Package opcode defines the command vocabulary of the stack virtual machine.
// This package is the foundation that both the decoder and the code generator
// depend on: the decoder produces Instructions, the generator consumes them.
package opcode

import (
	"fmt"
	"strconv"
)

// Cmd represents a VM command.
// The set is closed; the zero value is not a valid command.
type Cmd string

// VM commands accepted by the translator.
const (
	// Push copies seg[offset] (or the literal offset for constant) onto the stack.
	Push Cmd = "push"
	// Pop moves the top of the stack into seg[offset].
	Pop Cmd = "pop"

	Add Cmd = "add"
	Sub Cmd = "sub"
	Neg Cmd = "neg"

	// Eq, Gt and Lt leave -1 (true) or 0 (false) on the stack.
	Eq Cmd = "eq"
	Gt Cmd = "gt"
	Lt Cmd = "lt"

	And Cmd = "and"
	Or  Cmd = "or"
	Not Cmd = "not"
)

// Segment represents a memory segment addressed by push and pop.
// The zero value means "no segment" and is only valid for arithmetic commands.
type Segment string

// Memory segments.
const (
	None     Segment = ""
	Local    Segment = "local"
	Argument Segment = "argument"
	This     Segment = "this"
	That     Segment = "that"
	Constant Segment = "constant"
	Static   Segment = "static"
	Pointer  Segment = "pointer"
	Temp     Segment = "temp"
)

// Commands lists every command in declaration order.
var Commands = []Cmd{Push, Pop, Add, Sub, Neg, Eq, Gt, Lt, And, Or, Not}

// Segments lists every addressable segment in declaration order.
var Segments = []Segment{Local, Argument, This, That, Constant, Static, Pointer, Temp}

var (
	commandSet = func() map[string]Cmd {
		m := make(map[string]Cmd, len(Commands))
		for _, c := range Commands {
			m[string(c)] = c
		}
		return m
	}()
	segmentSet = func() map[string]Segment {
		m := make(map[string]Segment, len(Segments))
		for _, s := range Segments {
			m[string(s)] = s
		}
		return m
	}()
)

// LookupCommand resolves a command token. Matching is case-sensitive.
func LookupCommand(s string) (Cmd, bool) {
	c, ok := commandSet[s]
	return c, ok
}

// LookupSegment resolves a segment token. Matching is case-sensitive.
func LookupSegment(s string) (Segment, bool) {
	seg, ok := segmentSet[s]
	return seg, ok
}

// IsMemoryAccess reports whether the command takes a segment and an offset.
func (c Cmd) IsMemoryAccess() bool {
	return c == Push || c == Pop
}

// IsComparison reports whether the command is eq, gt or lt.
func (c Cmd) IsComparison() bool {
	switch c {
	case Eq, Gt, Lt:
		return true
	}
	return false
}

// Arity returns the number of operand tokens that follow the command.
func (c Cmd) Arity() int {
	if c.IsMemoryAccess() {
		return 2
	}
	return 0
}

// StackDelta returns the net change in stack depth after the command runs.
func (c Cmd) StackDelta() int {
	switch c {
	case Push:
		return 1
	case Pop, Add, Sub, And, Or, Eq, Gt, Lt:
		return -1
	case Neg, Not:
		return 0
	}
	return 0
}

// Instruction is one decoded VM command.
// Segment and Offset are only meaningful for push and pop.
type Instruction struct {
	Cmd     Cmd
	Segment Segment
	Offset  int
	Line    int // 1-indexed source line, 0 when unknown
}

// String renders the instruction in canonical VM syntax.
func (i Instruction) String() string {
	if i.Segment == None {
		return string(i.Cmd)
	}
	return string(i.Cmd) + " " + string(i.Segment) + " " + strconv.Itoa(i.Offset)
}

// Validate checks the structural consistency of a hand-built instruction.
func (i Instruction) Validate() error {
	if _, ok := commandSet[string(i.Cmd)]; !ok {
		return fmt.Errorf("unknown command %q", i.Cmd)
	}
	if i.Cmd.IsMemoryAccess() {
		if _, ok := segmentSet[string(i.Segment)]; !ok {
			return fmt.Errorf("%s: unknown segment %q", i.Cmd, i.Segment)
		}
		if i.Offset < 0 {
			return fmt.Errorf("%s %s: negative offset %d", i.Cmd, i.Segment, i.Offset)
		}
		return nil
	}
	if i.Segment != None {
		return fmt.Errorf("%s takes no segment", i.Cmd)
	}
	return nil
}

// Program is the ordered instruction sequence of one source file.
type Program []Instruction

// StackDepth simulates the net stack-depth changes of the program starting
// from an empty stack. It returns the final depth and whether the depth ever
// dropped below zero. Underflow is a precondition violation of the source
// program; the translator does not reject it.
func (p Program) StackDepth() (depth int, underflow bool) {
	for _, ins := range p {
		if depth < ins.Cmd.operands() {
			underflow = true
		}
		depth += ins.Cmd.StackDelta()
	}
	return depth, underflow
}

// operands returns how many stack cells the command reads.
func (c Cmd) operands() int {
	switch c {
	case Push:
		return 0
	case Pop, Neg, Not:
		return 1
	}
	return 2
}
