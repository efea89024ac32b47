package compiler

import (
	"errors"
	"strings"
	"testing"

	"github.com/zurustar/vmtrans/pkg/compiler/preprocessor"
	"github.com/zurustar/vmtrans/pkg/hack"
)

// runProgram translates src and executes it on the Hack emulator with the
// stack at 256 and the segment bases below it.
func runProgram(t *testing.T, src string, opts Options) *hack.Machine {
	t.Helper()
	res, err := TranslateString("test.vm", src, opts)
	if err != nil {
		t.Fatalf("translation failed: %v", err)
	}
	prog, err := hack.Assemble(string(res.Assembly))
	if err != nil {
		t.Fatalf("generated assembly does not assemble: %v\n%s", err, res.Assembly)
	}
	m := hack.New(prog)
	m.RAM[hack.SP] = hack.StackBase
	m.RAM[hack.LCL] = 300
	m.RAM[hack.ARG] = 400
	m.RAM[hack.THIS] = 3000
	m.RAM[hack.THAT] = 3010
	if err := m.Run(100000); err != nil {
		t.Fatalf("execution failed: %v", err)
	}
	return m
}

func TestIntegration_StackArithmetic(t *testing.T) {
	src := `// StackTest
push constant 17
push constant 17
eq
push constant 892
push constant 891
lt
push constant 32767
push constant 32766
gt
push constant 57
push constant 31
push constant 53
add
push constant 112
sub
neg
and
push constant 82
or
not
`
	m := runProgram(t, src, Options{})

	want := []int16{-1, 0, -1, -91}
	got := m.Stack()
	if len(got) != len(want) {
		t.Fatalf("stack = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("stack[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestIntegration_BasicTest(t *testing.T) {
	src := `push constant 10
pop local 0
push constant 21
push constant 22
pop argument 2
pop argument 1
push constant 36
pop this 6
push constant 42
push constant 45
pop that 5
pop that 2
push constant 510
pop temp 6
push local 0
push that 5
add
push argument 1
sub
push this 6
push this 6
add
sub
push temp 6
add
`
	m := runProgram(t, src, Options{})

	checks := map[int]int16{
		256:  472,
		300:  10,
		401:  21,
		402:  22,
		3006: 36,
		3012: 42,
		3015: 45,
		11:   510,
	}
	for addr, want := range checks {
		if m.RAM[addr] != want {
			t.Errorf("RAM[%d] = %d, want %d", addr, m.RAM[addr], want)
		}
	}
}

func TestIntegration_PointerAndStatic(t *testing.T) {
	src := `push constant 3030
pop pointer 0
push constant 3040
pop pointer 1
push constant 32
pop this 2
push constant 46
pop that 6
push constant 111
pop static 8
push constant 333
pop static 3
push pointer 0
push pointer 1
add
push this 2
sub
push that 6
add
push static 3
push static 8
sub
`
	for _, ns := range []string{"", "PointerStatic"} {
		m := runProgram(t, src, Options{StaticNamespace: ns})
		got := m.Stack()
		if len(got) != 2 || got[0] != 6084 || got[1] != 222 {
			t.Errorf("namespace %q: stack = %v, want [6084 222]", ns, got)
		}
	}
}

// pop temp 9 lands on R14 when bounds are not enforced.
func TestIntegration_TempOutOfRange(t *testing.T) {
	m := runProgram(t, "push constant 5\npop temp 9\n", Options{})
	if m.RAM[14] != 5 {
		t.Errorf("RAM[14] = %d, want 5", m.RAM[14])
	}
}

func TestIntegration_ConsecutiveComparisons(t *testing.T) {
	res, err := TranslateString("eq.vm", "push constant 1\npush constant 1\neq\npush constant 0\neq\n", Options{})
	if err != nil {
		t.Fatal(err)
	}

	labels := map[string]bool{}
	for _, l := range strings.Split(string(res.Assembly), "\n") {
		if strings.HasPrefix(l, "(") {
			if labels[l] {
				t.Errorf("label %s declared twice", l)
			}
			labels[l] = true
		}
	}
	if len(labels) != 4 {
		t.Errorf("got %d distinct labels, want 4", len(labels))
	}
}

func TestIntegration_EmptyFile(t *testing.T) {
	res, err := TranslateString("Empty.vm", "\n   \n// only a comment\n/* and\n a block */\n", Options{})
	if !errors.Is(err, preprocessor.ErrEmptySource) {
		t.Fatalf("expected ErrEmptySource, got %v", err)
	}
	if res.Assembly != nil {
		t.Error("no assembly should be produced for an empty file")
	}
}
