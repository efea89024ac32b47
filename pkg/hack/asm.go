// Package hack assembles and executes Hack assembly text. It is used to run
// translated VM programs and inspect the resulting RAM.
package hack

import (
	"fmt"
	"strconv"
	"strings"
)

// Well-known addresses.
const (
	SP     = 0
	LCL    = 1
	ARG    = 2
	THIS   = 3
	THAT   = 4
	Screen = 16384
	KBD    = 24576

	// VariableBase is the first RAM address handed out to new symbols.
	VariableBase = 16
)

var predefined = func() map[string]int {
	m := map[string]int{
		"SP": SP, "LCL": LCL, "ARG": ARG, "THIS": THIS, "THAT": THAT,
		"SCREEN": Screen, "KBD": KBD,
	}
	for i := 0; i < 16; i++ {
		m["R"+strconv.Itoa(i)] = i
	}
	return m
}()

var jumpNames = map[string]bool{
	"": true, "JGT": true, "JEQ": true, "JGE": true,
	"JLT": true, "JNE": true, "JLE": true, "JMP": true,
}

// Instruction is one assembled ROM word.
type Instruction struct {
	// Address is true for an A-instruction; Value then holds the loaded constant.
	Address bool
	Value   int16

	// C-instruction fields.
	Dest string
	Comp string
	Jump string

	Line int // 1-indexed source line
}

// Program is an assembled ROM image with its resolved symbol table.
type Program struct {
	ROM     []Instruction
	Symbols map[string]int
}

// Assembler resolves labels and variables across two passes.
type Assembler struct {
	symbols map[string]int
	nextVar int
}

// NewAssembler creates an Assembler seeded with the predefined symbols.
func NewAssembler() *Assembler {
	a := &Assembler{
		symbols: make(map[string]int, len(predefined)),
		nextVar: VariableBase,
	}
	for k, v := range predefined {
		a.symbols[k] = v
	}
	return a
}

// Assemble assembles Hack source text.
func Assemble(src string) (*Program, error) {
	return NewAssembler().Assemble(src)
}

type parsedLine struct {
	lineNo int
	label  string
	text   string
}

// Assemble assembles Hack source text.
func (a *Assembler) Assemble(src string) (*Program, error) {
	lines := strings.Split(strings.ReplaceAll(src, "\r\n", "\n"), "\n")

	parsed, err := a.pass1(lines)
	if err != nil {
		return nil, err
	}
	rom, err := a.pass2(parsed)
	if err != nil {
		return nil, err
	}
	return &Program{ROM: rom, Symbols: a.symbols}, nil
}

// pass1 records label addresses.
func (a *Assembler) pass1(lines []string) ([]parsedLine, error) {
	var parsed []parsedLine
	address := 0
	for i, raw := range lines {
		text := raw
		if idx := strings.Index(text, "//"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.Join(strings.Fields(text), "")
		if text == "" {
			continue
		}

		if strings.HasPrefix(text, "(") {
			if !strings.HasSuffix(text, ")") || len(text) < 3 {
				return nil, fmt.Errorf("line %d: malformed label %q", i+1, raw)
			}
			label := text[1 : len(text)-1]
			if _, exists := a.symbols[label]; exists {
				return nil, fmt.Errorf("line %d: duplicate label %q", i+1, label)
			}
			a.symbols[label] = address
			continue
		}

		parsed = append(parsed, parsedLine{lineNo: i + 1, text: text})
		address++
	}
	return parsed, nil
}

// pass2 encodes instructions, allocating RAM for unknown symbols.
func (a *Assembler) pass2(lines []parsedLine) ([]Instruction, error) {
	rom := make([]Instruction, 0, len(lines))
	for _, l := range lines {
		var ins Instruction
		var err error
		if strings.HasPrefix(l.text, "@") {
			ins, err = a.parseAddress(l.text[1:])
		} else {
			ins, err = parseCompute(l.text)
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", l.lineNo, err)
		}
		ins.Line = l.lineNo
		rom = append(rom, ins)
	}
	return rom, nil
}

func (a *Assembler) parseAddress(operand string) (Instruction, error) {
	if operand == "" {
		return Instruction{}, fmt.Errorf("missing A-instruction operand")
	}
	if operand[0] >= '0' && operand[0] <= '9' {
		v, err := strconv.Atoi(operand)
		if err != nil || v > 1<<15-1 {
			return Instruction{}, fmt.Errorf("invalid constant %q", operand)
		}
		return Instruction{Address: true, Value: int16(v)}, nil
	}

	addr, ok := a.symbols[operand]
	if !ok {
		addr = a.nextVar
		a.symbols[operand] = addr
		a.nextVar++
	}
	return Instruction{Address: true, Value: int16(addr)}, nil
}

func parseCompute(text string) (Instruction, error) {
	var ins Instruction
	rest := text
	if i := strings.Index(rest, "="); i >= 0 {
		ins.Dest = rest[:i]
		rest = rest[i+1:]
		if ins.Dest == "" || strings.Trim(ins.Dest, "AMD") != "" {
			return ins, fmt.Errorf("invalid destination %q", ins.Dest)
		}
	}
	if i := strings.Index(rest, ";"); i >= 0 {
		ins.Jump = rest[i+1:]
		rest = rest[:i]
		if ins.Jump == "" || !jumpNames[ins.Jump] {
			return ins, fmt.Errorf("invalid jump %q", ins.Jump)
		}
	}
	ins.Comp = rest
	if _, _, err := lookupComp(ins.Comp); err != nil {
		return ins, err
	}
	return ins, nil
}
