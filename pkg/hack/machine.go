package hack

import (
	"errors"
	"fmt"
	"strings"
)

// RAMSize covers data memory, the screen map and the keyboard register.
const RAMSize = KBD + 1

// StackBase is where the VM stack conventionally starts.
const StackBase = 256

// ErrStepLimit is returned by Run when the program does not halt in time.
var ErrStepLimit = errors.New("step limit exceeded")

type compFunc func(d, x int16) int16

// Computations written with X, which stands for either A or M.
var comps = map[string]compFunc{
	"0":   func(d, x int16) int16 { return 0 },
	"1":   func(d, x int16) int16 { return 1 },
	"-1":  func(d, x int16) int16 { return -1 },
	"D":   func(d, x int16) int16 { return d },
	"X":   func(d, x int16) int16 { return x },
	"!D":  func(d, x int16) int16 { return ^d },
	"!X":  func(d, x int16) int16 { return ^x },
	"-D":  func(d, x int16) int16 { return -d },
	"-X":  func(d, x int16) int16 { return -x },
	"D+1": func(d, x int16) int16 { return d + 1 },
	"X+1": func(d, x int16) int16 { return x + 1 },
	"D-1": func(d, x int16) int16 { return d - 1 },
	"X-1": func(d, x int16) int16 { return x - 1 },
	"D+X": func(d, x int16) int16 { return d + x },
	"X+D": func(d, x int16) int16 { return d + x },
	"D-X": func(d, x int16) int16 { return d - x },
	"X-D": func(d, x int16) int16 { return x - d },
	"D&X": func(d, x int16) int16 { return d & x },
	"X&D": func(d, x int16) int16 { return d & x },
	"D|X": func(d, x int16) int16 { return d | x },
	"X|D": func(d, x int16) int16 { return d | x },
}

// lookupComp returns the computation and whether it reads M.
func lookupComp(comp string) (compFunc, bool, error) {
	hasA := strings.Contains(comp, "A")
	hasM := strings.Contains(comp, "M")
	if hasA && hasM {
		return nil, false, fmt.Errorf("invalid computation %q", comp)
	}
	key := strings.NewReplacer("A", "X", "M", "X").Replace(comp)
	fn, ok := comps[key]
	if !ok {
		return nil, false, fmt.Errorf("invalid computation %q", comp)
	}
	return fn, hasM, nil
}

// Machine is a Hack CPU with its RAM.
type Machine struct {
	RAM [RAMSize]int16
	A   int16
	D   int16
	PC  int

	rom   []Instruction
	Steps int
}

// New creates a Machine loaded with the program.
func New(p *Program) *Machine {
	return &Machine{rom: p.ROM}
}

// Halted reports whether the PC ran past the end of ROM.
func (m *Machine) Halted() bool {
	return m.PC < 0 || m.PC >= len(m.rom)
}

// Run executes until the program halts or maxSteps instructions have run.
func (m *Machine) Run(maxSteps int) error {
	for !m.Halted() {
		if m.Steps >= maxSteps {
			return fmt.Errorf("%w after %d steps at pc=%d", ErrStepLimit, m.Steps, m.PC)
		}
		if err := m.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Step executes a single instruction.
func (m *Machine) Step() error {
	if m.Halted() {
		return nil
	}
	ins := m.rom[m.PC]
	m.Steps++

	if ins.Address {
		m.A = ins.Value
		m.PC++
		return nil
	}

	fn, readsM, err := lookupComp(ins.Comp)
	if err != nil {
		return fmt.Errorf("line %d: %w", ins.Line, err)
	}

	addr := m.A
	x := m.A
	if readsM {
		if x, err = m.load(addr); err != nil {
			return fmt.Errorf("line %d: %w", ins.Line, err)
		}
	}
	out := fn(m.D, x)

	if strings.Contains(ins.Dest, "M") {
		if err := m.store(addr, out); err != nil {
			return fmt.Errorf("line %d: %w", ins.Line, err)
		}
	}
	if strings.Contains(ins.Dest, "A") {
		m.A = out
	}
	if strings.Contains(ins.Dest, "D") {
		m.D = out
	}

	if jumps(ins.Jump, out) {
		m.PC = int(uint16(m.A))
		return nil
	}
	m.PC++
	return nil
}

func (m *Machine) load(addr int16) (int16, error) {
	if addr < 0 || int(addr) >= RAMSize {
		return 0, fmt.Errorf("read outside RAM at %d", addr)
	}
	return m.RAM[addr], nil
}

func (m *Machine) store(addr, v int16) error {
	if addr < 0 || int(addr) >= RAMSize {
		return fmt.Errorf("write outside RAM at %d", addr)
	}
	m.RAM[addr] = v
	return nil
}

func jumps(jump string, v int16) bool {
	switch jump {
	case "JGT":
		return v > 0
	case "JEQ":
		return v == 0
	case "JGE":
		return v >= 0
	case "JLT":
		return v < 0
	case "JNE":
		return v != 0
	case "JLE":
		return v <= 0
	case "JMP":
		return true
	}
	return false
}

// Stack returns the VM stack contents from StackBase up to SP, bottom first.
func (m *Machine) Stack() []int16 {
	top := int(m.RAM[SP])
	if top <= StackBase || top > RAMSize {
		return nil
	}
	out := make([]int16, top-StackBase)
	copy(out, m.RAM[StackBase:top])
	return out
}

// Top returns the value just below SP. ok is false when the stack is empty
// or SP points outside RAM.
func (m *Machine) Top() (v int16, ok bool) {
	top := int(m.RAM[SP])
	if top <= StackBase || top > RAMSize {
		return 0, false
	}
	return m.RAM[top-1], true
}
