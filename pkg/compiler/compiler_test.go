package compiler

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/zurustar/vmtrans/pkg/compiler/parser"
	"github.com/zurustar/vmtrans/pkg/compiler/preprocessor"
	"github.com/zurustar/vmtrans/pkg/opcode"
)

func TestTranslate(t *testing.T) {
	src := []string{
		"// SimpleAdd",
		"push constant 7",
		"",
		"  push constant 8   // second",
		"add",
		"eq /* compare */",
	}

	res, err := Translate("SimpleAdd.vm", src, Options{})
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if !res.Completed {
		t.Error("Completed should be set")
	}
	if len(res.Lines) != 4 || len(res.Instructions) != 4 {
		t.Fatalf("got %d lines and %d instructions, want 4 and 4", len(res.Lines), len(res.Instructions))
	}
	if res.Instructions[1].Line != 4 {
		t.Errorf("second instruction line = %d, want 4", res.Instructions[1].Line)
	}
	if res.Labels != 1 {
		t.Errorf("Labels = %d, want 1", res.Labels)
	}

	asm := string(res.Assembly)
	for _, want := range []string{"// push constant 7", "// push constant 8", "// add", "// eq", "(LABEL_0)"} {
		if !strings.Contains(asm, want+"\n") {
			t.Errorf("assembly does not contain %q", want)
		}
	}
	if strings.Index(asm, "// push constant 8") > strings.Index(asm, "// add") {
		t.Error("blocks are not in source order")
	}
}

func TestTranslate_Errors(t *testing.T) {
	tests := []struct {
		name       string
		src        []string
		wantPhase  string
		wantIs     error
		wantLine   int
		wantColumn int
	}{
		{
			name:      "empty file",
			src:       []string{"  ", "// nothing here", "/* or here */"},
			wantPhase: PhasePreprocess,
			wantIs:    preprocessor.ErrEmptySource,
		},
		{
			name:       "malformed comment",
			src:        []string{"push constant 1", "/* a */ /* b */"},
			wantPhase:  PhasePreprocess,
			wantIs:     preprocessor.ErrMalformedComment,
			wantLine:   2,
			wantColumn: 9,
		},
		{
			name:       "unknown segment",
			src:        []string{"push constant 1", "  push heap 2"},
			wantPhase:  PhaseDecode,
			wantIs:     parser.ErrDecode,
			wantLine:   2,
			wantColumn: 8,
		},
		{
			name:       "column counts runes",
			src:        []string{"/* é */ push heap 2"},
			wantPhase:  PhaseDecode,
			wantIs:     parser.ErrDecode,
			wantLine:   1,
			wantColumn: 14,
		},
		{
			name:       "control flow is not supported",
			src:        []string{"label LOOP"},
			wantPhase:  PhaseDecode,
			wantIs:     parser.ErrDecode,
			wantLine:   1,
			wantColumn: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Translate("Bad.vm", tt.src, Options{})
			if err == nil {
				t.Fatal("expected an error")
			}
			if res == nil || res.Completed || res.Assembly != nil {
				t.Errorf("failed translation should not be completed: %+v", res)
			}
			if !errors.Is(err, tt.wantIs) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.wantIs)
			}
			var ce *CompileError
			if !errors.As(err, &ce) {
				t.Fatalf("expected *CompileError, got %T", err)
			}
			if ce.Phase != tt.wantPhase || ce.File != "Bad.vm" {
				t.Errorf("Phase/File = %q/%q, want %q/Bad.vm", ce.Phase, ce.File, tt.wantPhase)
			}
			if ce.Line != tt.wantLine || ce.Column != tt.wantColumn {
				t.Errorf("position = %d:%d, want %d:%d", ce.Line, ce.Column, tt.wantLine, tt.wantColumn)
			}
			if tt.wantLine > 0 && !strings.Contains(ce.Context, "^") {
				t.Errorf("Context should point at the error:\n%s", ce.Context)
			}
		})
	}
}

func TestTranslate_ContextPointsAtNonASCIILine(t *testing.T) {
	_, err := Translate("Bad.vm", []string{"/* é */ push heap 2"}, Options{})
	var ce *CompileError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *CompileError, got %v", err)
	}
	lines := strings.Split(ce.Context, "\n")
	if len(lines) < 2 {
		t.Fatalf("unexpected context:\n%s", ce.Context)
	}
	src := []rune(lines[0])
	caret := strings.IndexRune(lines[1], '^')
	if caret < 0 || caret+4 > len(src) || string(src[caret:caret+4]) != "heap" {
		t.Errorf("pointer does not mark the segment:\n%s", ce.Context)
	}
}

// A late error keeps the instructions decoded before it.
func TestTranslate_StopsAtFirstError(t *testing.T) {
	res, err := Translate("x.vm", []string{"push constant 1", "push constant 2", "mul", "add"}, Options{})
	if err == nil {
		t.Fatal("expected an error")
	}
	if len(res.Instructions) != 2 {
		t.Errorf("got %d instructions before the error, want 2", len(res.Instructions))
	}
}

func TestTranslate_Options(t *testing.T) {
	res, err := Translate("Main.vm", []string{"push static 1", "pop temp 9"}, Options{StaticNamespace: "Main"})
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if !strings.Contains(string(res.Assembly), "@Main.1\n") {
		t.Error("static namespace was not applied")
	}

	_, err = Translate("Main.vm", []string{"pop temp 9"}, Options{Strict: true})
	if !errors.Is(err, parser.ErrDecode) {
		t.Errorf("strict mode should reject temp 9, got %v", err)
	}
}

func TestTranslate_Unterminated(t *testing.T) {
	res, err := Translate("x.vm", []string{"add", "/* never closed"}, Options{})
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if !res.Unterminated {
		t.Error("Unterminated should be reported")
	}
}

func TestTranslateFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Prog.vm")
	if err := os.WriteFile(path, []byte("push constant 3\r\nneg\r\n"), 0644); err != nil {
		t.Fatal(err)
	}

	res, err := TranslateFile(path, Options{})
	if err != nil {
		t.Fatalf("TranslateFile failed: %v", err)
	}
	if res.FileName != "Prog.vm" {
		t.Errorf("FileName = %q, want Prog.vm", res.FileName)
	}
	if len(res.Instructions) != 2 || res.Instructions[1].Cmd != opcode.Neg {
		t.Errorf("Instructions = %v", res.Instructions)
	}
}

func TestTranslateFile_Errors(t *testing.T) {
	_, err := TranslateFile(filepath.Join(t.TempDir(), "missing.vm"), Options{})
	var ce *CompileError
	if !errors.As(err, &ce) || ce.Phase != PhaseRead {
		t.Errorf("expected a read error, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("read error should wrap os.ErrNotExist: %v", err)
	}

	_, err = TranslateFile("whatever.vm", Options{Encoding: "klingon"})
	if !errors.As(err, &ce) || ce.Phase != PhaseRead {
		t.Errorf("expected a read error for an unknown encoding, got %v", err)
	}
}

func TestTranslateString(t *testing.T) {
	res, err := TranslateString("inline", "push constant 1\npush constant 2\nlt\n", Options{})
	if err != nil {
		t.Fatalf("TranslateString failed: %v", err)
	}
	if len(res.Instructions) != 3 {
		t.Errorf("got %d instructions, want 3", len(res.Instructions))
	}
}

// Translating the same input twice gives byte-identical output.
func TestProperty_TranslationIsDeterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("same source, same assembly", prop.ForAll(
		func(picks []int, offsets []int) bool {
			src := make([]string, 0, len(picks)+1)
			src = append(src, "push constant 0")
			for i, p := range picks {
				ins := opcode.Instruction{Cmd: opcode.Commands[p%len(opcode.Commands)]}
				if ins.Cmd.IsMemoryAccess() {
					ins.Segment = opcode.Local
					if i < len(offsets) {
						ins.Offset = offsets[i]
					}
				}
				src = append(src, ins.String())
			}

			a, errA := Translate("p.vm", src, Options{})
			b, errB := Translate("p.vm", src, Options{})
			if errA != nil || errB != nil {
				return false
			}
			return string(a.Assembly) == string(b.Assembly) && a.Labels == b.Labels
		},
		gen.SliceOf(gen.IntRange(0, 100)),
		gen.SliceOf(gen.IntRange(0, 500)),
	))

	properties.TestingRun(t)
}
