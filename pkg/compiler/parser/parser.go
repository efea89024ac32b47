// Package parser decodes normalized VM command lines into instructions.
package parser

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/zurustar/vmtrans/pkg/compiler/lexer"
	"github.com/zurustar/vmtrans/pkg/compiler/preprocessor"
	"github.com/zurustar/vmtrans/pkg/compiler/token"
	"github.com/zurustar/vmtrans/pkg/opcode"
)

// MaxOffset is the largest offset an A-instruction can carry.
const MaxOffset = 1<<15 - 1

// Conventional register-bank bounds, only enforced in strict mode.
const (
	PointerSlots = 2
	TempSlots    = 8
)

// ErrDecode is wrapped by every ParserError.
var ErrDecode = errors.New("decode error")

// ParserError describes a line that could not be decoded.
type ParserError struct {
	Message string
	Line    int
	Column  int
	Token   string
}

// Error implements the error interface.
func (e *ParserError) Error() string {
	return fmt.Sprintf("parser error at line %d, column %d: %s", e.Line, e.Column, e.Message)
}

// Unwrap lets errors.Is match ErrDecode.
func (e *ParserError) Unwrap() error {
	return ErrDecode
}

// Option configures a Parser.
type Option func(*Parser)

// WithStrictSegments rejects pointer offsets outside 0..1 and temp offsets
// outside 0..7. By default both are accepted unchecked.
func WithStrictSegments(strict bool) Option {
	return func(p *Parser) {
		p.strict = strict
	}
}

// Parser decodes command lines. It holds no per-line state.
type Parser struct {
	strict bool
}

// New creates a new Parser.
func New(opts ...Option) *Parser {
	p := &Parser{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseProgram decodes every line and stops at the first error.
func (p *Parser) ParseProgram(lines []preprocessor.Line) (opcode.Program, error) {
	program := make(opcode.Program, 0, len(lines))
	for _, line := range lines {
		ins, err := p.ParseLine(line)
		if err != nil {
			return nil, err
		}
		program = append(program, ins)
	}
	return program, nil
}

// ParseLine decodes one normalized line.
func (p *Parser) ParseLine(line preprocessor.Line) (opcode.Instruction, error) {
	tokens := lexer.Tokenize(line.Text)

	switch len(tokens) {
	case 1:
		return p.parseArithmetic(line, tokens[0])
	case 3:
		return p.parseMemoryAccess(line, tokens)
	case 0:
		return opcode.Instruction{}, p.errorAt(line, token.Token{Column: 1}, "empty command")
	default:
		return opcode.Instruction{}, p.errorAt(line, tokens[0],
			fmt.Sprintf("expected 1 or 3 tokens, got %d", len(tokens)))
	}
}

func (p *Parser) parseArithmetic(line preprocessor.Line, tok token.Token) (opcode.Instruction, error) {
	cmd, err := p.parseCommand(line, tok)
	if err != nil {
		return opcode.Instruction{}, err
	}
	if cmd.IsMemoryAccess() {
		return opcode.Instruction{}, p.errorAt(line, tok,
			fmt.Sprintf("%s requires a segment and an offset", cmd))
	}
	return opcode.Instruction{Cmd: cmd, Line: line.Number}, nil
}

func (p *Parser) parseMemoryAccess(line preprocessor.Line, tokens []token.Token) (opcode.Instruction, error) {
	cmd, err := p.parseCommand(line, tokens[0])
	if err != nil {
		return opcode.Instruction{}, err
	}
	if !cmd.IsMemoryAccess() {
		return opcode.Instruction{}, p.errorAt(line, tokens[1],
			fmt.Sprintf("%s takes no operands", cmd))
	}

	seg, ok := opcode.LookupSegment(tokens[1].Literal)
	if !ok {
		return opcode.Instruction{}, p.errorAt(line, tokens[1],
			fmt.Sprintf("unknown segment %q", tokens[1].Literal))
	}

	offset, err := p.parseOffset(line, tokens[2])
	if err != nil {
		return opcode.Instruction{}, err
	}

	ins := opcode.Instruction{Cmd: cmd, Segment: seg, Offset: offset, Line: line.Number}
	if err := p.checkSegment(line, tokens, ins); err != nil {
		return opcode.Instruction{}, err
	}
	return ins, nil
}

func (p *Parser) parseCommand(line preprocessor.Line, tok token.Token) (opcode.Cmd, error) {
	cmd, ok := opcode.LookupCommand(tok.Literal)
	if !ok {
		return "", p.errorAt(line, tok, fmt.Sprintf("unknown command %q", tok.Literal))
	}
	return cmd, nil
}

func (p *Parser) parseOffset(line preprocessor.Line, tok token.Token) (int, error) {
	if tok.Type != token.NUMBER {
		return 0, p.errorAt(line, tok,
			fmt.Sprintf("offset %q is not a non-negative integer", tok.Literal))
	}
	value, err := strconv.Atoi(tok.Literal)
	if err != nil || value > MaxOffset {
		return 0, p.errorAt(line, tok,
			fmt.Sprintf("offset %s out of range 0..%d", tok.Literal, MaxOffset))
	}
	return value, nil
}

// checkSegment applies the per-segment rules that depend on both the
// command and the offset.
func (p *Parser) checkSegment(line preprocessor.Line, tokens []token.Token, ins opcode.Instruction) error {
	switch ins.Segment {
	case opcode.Constant:
		if ins.Cmd == opcode.Pop {
			return p.errorAt(line, tokens[1], "cannot pop into constant: it has no address")
		}
	case opcode.Pointer:
		if p.strict && ins.Offset >= PointerSlots {
			return p.errorAt(line, tokens[2],
				fmt.Sprintf("pointer offset %d out of range 0..%d", ins.Offset, PointerSlots-1))
		}
	case opcode.Temp:
		if p.strict && ins.Offset >= TempSlots {
			return p.errorAt(line, tokens[2],
				fmt.Sprintf("temp offset %d out of range 0..%d", ins.Offset, TempSlots-1))
		}
	case opcode.Local, opcode.Argument, opcode.This, opcode.That, opcode.Static:
	default:
		return p.errorAt(line, tokens[1], fmt.Sprintf("unhandled segment %q", ins.Segment))
	}
	return nil
}

func (p *Parser) errorAt(line preprocessor.Line, tok token.Token, msg string) *ParserError {
	column := line.Column
	if column < 1 {
		column = 1
	}
	return &ParserError{
		Message: msg,
		Line:    line.Number,
		Column:  column + tok.Column - 1,
		Token:   tok.Literal,
	}
}
