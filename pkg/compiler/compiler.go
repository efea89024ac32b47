// Package compiler provides the translation pipeline for VM source files (.vm).
// It turns raw source lines into Hack assembly through three phases:
// 1. Preprocessor: comment and whitespace removal
// 2. Parser: one Instruction per surviving line
// 3. Codegen: one assembly block per Instruction
//
// Decoding and generation are interleaved line by line, so a failure on line N
// stops the file with the blocks for lines before N already generated. The
// assembly is kept in memory; callers decide whether to write it.
package compiler

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/zurustar/vmtrans/pkg/compiler/codegen"
	"github.com/zurustar/vmtrans/pkg/compiler/parser"
	"github.com/zurustar/vmtrans/pkg/compiler/preprocessor"
	"github.com/zurustar/vmtrans/pkg/opcode"
	"github.com/zurustar/vmtrans/pkg/source"
)

// Options provides configuration options for translation.
type Options struct {
	// Strict rejects pointer and temp offsets outside their conventional range.
	Strict bool

	// StaticNamespace, when set, names static variables "<ns>.<n>".
	StaticNamespace string

	// Encoding is the WHATWG label used by TranslateFile. Empty means UTF-8.
	Encoding string
}

// Result is the translation outcome for a single file.
type Result struct {
	FileName string

	// Assembly is the complete output text. It is nil unless Completed.
	Assembly []byte

	// Lines are the normalized command lines, available once preprocessing succeeded.
	Lines        []preprocessor.Line
	Instructions opcode.Program

	// Labels is the number of comparison label pairs generated.
	Labels int

	// Unterminated is set when the source ended inside a block comment.
	Unterminated bool

	Completed bool
}

// Translate runs the pipeline over raw source lines.
// The returned Result is never nil; on error it describes how far translation got.
func Translate(name string, raw []string, opts Options) (*Result, error) {
	res := &Result{FileName: name}

	pre := preprocessor.New()
	lines, err := pre.Process(raw)
	res.Unterminated = pre.Unterminated()
	if err != nil {
		return res, preprocessError(name, raw, err)
	}
	res.Lines = lines

	p := parser.New(parser.WithStrictSegments(opts.Strict))

	var genOpts []codegen.Option
	if opts.StaticNamespace != "" {
		genOpts = append(genOpts, codegen.WithStaticNamespace(opts.StaticNamespace))
	}
	var buf bytes.Buffer
	gen := codegen.New(&buf, genOpts...)

	for _, line := range lines {
		ins, err := p.ParseLine(line)
		if err != nil {
			var pe *parser.ParserError
			if errors.As(err, &pe) {
				return res, newCompileError(PhaseDecode, name, pe.Message, pe.Line, pe.Column, raw, err)
			}
			return res, newCompileError(PhaseDecode, name, err.Error(), line.Number, line.Column, raw, err)
		}
		res.Instructions = append(res.Instructions, ins)

		if err := gen.Emit(ins); err != nil {
			return res, newCompileError(PhaseGenerate, name, err.Error(), line.Number, line.Column, raw, err)
		}
		res.Labels = gen.Labels()
	}

	res.Assembly = buf.Bytes()
	res.Completed = true
	return res, nil
}

// TranslateString translates source text held in memory.
func TranslateString(name, text string, opts Options) (*Result, error) {
	return Translate(name, source.SplitLines(text), opts)
}

// TranslateFile reads a source file in opts.Encoding and translates it.
func TranslateFile(path string, opts Options) (*Result, error) {
	loader, err := source.NewLoader(opts.Encoding)
	if err != nil {
		return &Result{FileName: path}, &CompileError{Phase: PhaseRead, File: path, Message: err.Error(), Err: err}
	}
	src, err := loader.Load(path)
	if err != nil {
		return &Result{FileName: path}, &CompileError{
			Phase:   PhaseRead,
			File:    path,
			Message: fmt.Sprintf("failed to read %s: %v", path, err),
			Err:     err,
		}
	}
	return Translate(src.FileName, src.Lines, opts)
}

func preprocessError(name string, raw []string, err error) *CompileError {
	var ce *preprocessor.CommentError
	if errors.As(err, &ce) {
		return newCompileError(PhasePreprocess, name, ce.Message, ce.Line, ce.Column, raw, err)
	}
	return &CompileError{Phase: PhasePreprocess, File: name, Message: err.Error(), Err: err}
}
