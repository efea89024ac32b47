package conformance

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/zurustar/vmtrans/pkg/compiler"
	"github.com/zurustar/vmtrans/pkg/compiler/parser"
	"github.com/zurustar/vmtrans/pkg/compiler/preprocessor"
	"github.com/zurustar/vmtrans/pkg/hack"
)

// DefaultMaxSteps bounds execution of a translated test program
const DefaultMaxSteps = 100000

// Segment bases installed before every run, overridable through setup.ram
var defaultRAM = map[int]int{
	hack.SP:   hack.StackBase,
	hack.LCL:  300,
	hack.ARG:  400,
	hack.THIS: 3000,
	hack.THAT: 3010,
}

// expected error names accepted in expect.error
var errorNames = map[string]error{
	"empty_source":      preprocessor.ErrEmptySource,
	"malformed_comment": preprocessor.ErrMalformedComment,
	"decode":            parser.ErrDecode,
}

// Runner executes conformance tests
type Runner struct {
	MaxSteps int
}

// NewRunner creates a runner with the default step limit
func NewRunner() *Runner {
	return &Runner{MaxSteps: DefaultMaxSteps}
}

// TestResult represents the result of running a test
type TestResult struct {
	Test       LoadedTest
	Passed     bool
	Skipped    bool
	SkipReason string
	Error      error
}

// SummaryStats holds test run statistics
type SummaryStats struct {
	Total   int
	Passed  int
	Failed  int
	Skipped int
}

// Run translates and executes a single test
func (r *Runner) Run(test LoadedTest) TestResult {
	result := TestResult{Test: test}

	if skipped, reason := test.Test.IsSkipped(); skipped {
		result.Skipped = true
		result.SkipReason = reason
		return result
	}

	opts := compiler.Options{
		Strict:          test.Test.Options.Strict,
		StaticNamespace: test.Test.Options.StaticNamespace,
	}
	res, err := compiler.TranslateString(test.Test.Name+".vm", test.Test.Source, opts)

	if test.Test.Expect.Error != "" {
		result.Error = checkError(test.Test.Expect, err)
		result.Passed = result.Error == nil
		return result
	}
	if err != nil {
		result.Error = fmt.Errorf("unexpected error: %w", err)
		return result
	}

	if err := r.checkExpectation(test.Test, res); err != nil {
		result.Error = err
		return result
	}
	result.Passed = true
	return result
}

// RunAll runs all tests and returns results
func (r *Runner) RunAll(tests []LoadedTest) []TestResult {
	results := make([]TestResult, 0, len(tests))
	for _, test := range tests {
		results = append(results, r.Run(test))
	}
	return results
}

// ComputeStats computes summary statistics from results
func ComputeStats(results []TestResult) SummaryStats {
	stats := SummaryStats{Total: len(results)}
	for _, r := range results {
		if r.Skipped {
			stats.Skipped++
		} else if r.Passed {
			stats.Passed++
		} else {
			stats.Failed++
		}
	}
	return stats
}

// FormatStats returns a human-readable summary
func FormatStats(stats SummaryStats) string {
	return fmt.Sprintf("%d passed, %d failed, %d skipped (%d total)",
		stats.Passed, stats.Failed, stats.Skipped, stats.Total)
}

func checkError(expect Expectation, err error) error {
	want, ok := errorNames[expect.Error]
	if !ok {
		return fmt.Errorf("unknown error name: %s", expect.Error)
	}
	if err == nil {
		return fmt.Errorf("expected error %s, translation succeeded", expect.Error)
	}
	if !errors.Is(err, want) {
		return fmt.Errorf("expected error %s, got %v", expect.Error, err)
	}
	if expect.ErrorLine > 0 {
		var ce *compiler.CompileError
		if !errors.As(err, &ce) {
			return fmt.Errorf("expected a located error, got %v", err)
		}
		if ce.Line != expect.ErrorLine {
			return fmt.Errorf("expected error on line %d, got line %d", expect.ErrorLine, ce.Line)
		}
	}
	return nil
}

// checkExpectation compares the assembly text, then runs it and compares the machine state
func (r *Runner) checkExpectation(test TestCase, res *compiler.Result) error {
	expect := test.Expect
	asm := string(res.Assembly)
	lines := strings.Split(strings.TrimSuffix(asm, "\n"), "\n")

	if expect.Lines != nil {
		if len(lines) != len(expect.Lines) {
			return fmt.Errorf("expected %d assembly lines, got %d:\n%s", len(expect.Lines), len(lines), asm)
		}
		for i := range lines {
			if lines[i] != expect.Lines[i] {
				return fmt.Errorf("assembly line %d: expected %q, got %q", i+1, expect.Lines[i], lines[i])
			}
		}
	}

	if len(expect.Contains) > 0 {
		have := make(map[string]bool, len(lines))
		for _, l := range lines {
			have[l] = true
		}
		for _, want := range expect.Contains {
			if !have[want] {
				return fmt.Errorf("assembly does not contain line %q", want)
			}
		}
	}

	if expect.Labels != nil && res.Labels != *expect.Labels {
		return fmt.Errorf("expected %d label pairs, got %d", *expect.Labels, res.Labels)
	}

	if expect.Stack == nil && expect.RAM == nil {
		return nil
	}

	m, err := r.execute(asm, test.Setup)
	if err != nil {
		return err
	}

	if expect.Stack != nil {
		stack := m.Stack()
		if len(stack) != len(expect.Stack) {
			return fmt.Errorf("expected stack %v, got %v", expect.Stack, stack)
		}
		for i, v := range expect.Stack {
			if int16(v) != stack[i] {
				return fmt.Errorf("expected stack %v, got %v", expect.Stack, stack)
			}
		}
	}

	addrs := make([]int, 0, len(expect.RAM))
	for addr := range expect.RAM {
		addrs = append(addrs, addr)
	}
	sort.Ints(addrs)
	for _, addr := range addrs {
		if addr < 0 || addr >= hack.RAMSize {
			return fmt.Errorf("RAM address %d out of range", addr)
		}
		if got, want := m.RAM[addr], int16(expect.RAM[addr]); got != want {
			return fmt.Errorf("RAM[%d]: expected %d, got %d", addr, want, got)
		}
	}
	return nil
}

func (r *Runner) execute(asm string, setup *SetupBlock) (*hack.Machine, error) {
	prog, err := hack.Assemble(asm)
	if err != nil {
		return nil, fmt.Errorf("generated assembly does not assemble: %w", err)
	}
	m := hack.New(prog)
	for addr, v := range defaultRAM {
		m.RAM[addr] = int16(v)
	}
	if setup != nil {
		for addr, v := range setup.RAM {
			if addr < 0 || addr >= hack.RAMSize {
				return nil, fmt.Errorf("setup RAM address %d out of range", addr)
			}
			m.RAM[addr] = int16(v)
		}
	}

	maxSteps := r.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	if err := m.Run(maxSteps); err != nil {
		return nil, fmt.Errorf("execution failed: %w", err)
	}
	return m, nil
}
