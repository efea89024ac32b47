package conformance

// TestSuite represents a complete YAML test file
type TestSuite struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description,omitempty"`
	Tests       []TestCase `yaml:"tests"`
}

// TestCase is one VM program together with what translating and running it must produce
type TestCase struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description,omitempty"`
	Skip        interface{} `yaml:"skip,omitempty"` // bool or string
	Options     RunOptions  `yaml:"options,omitempty"`
	Source      string      `yaml:"source"`
	Setup       *SetupBlock `yaml:"setup,omitempty"`
	Expect      Expectation `yaml:"expect"`
}

// RunOptions mirror the translator's command line switches
type RunOptions struct {
	Strict          bool   `yaml:"strict,omitempty"`
	StaticNamespace string `yaml:"static_namespace,omitempty"`
}

// SetupBlock overrides RAM cells before execution
type SetupBlock struct {
	RAM map[int]int `yaml:"ram,omitempty"`
}

// Expectation defines what result is expected from a test.
// Error and the execution fields are mutually exclusive.
type Expectation struct {
	Error     string      `yaml:"error,omitempty"` // empty_source, malformed_comment, decode
	ErrorLine int         `yaml:"error_line,omitempty"`
	Stack     []int       `yaml:"stack,omitempty"` // bottom first
	RAM       map[int]int `yaml:"ram,omitempty"`
	Labels    *int        `yaml:"labels,omitempty"`
	Contains  []string    `yaml:"contains,omitempty"` // whole assembly lines
	Lines     []string    `yaml:"lines,omitempty"`    // exact assembly output
}

// IsSkipped returns true if this test should be skipped
func (tc *TestCase) IsSkipped() (bool, string) {
	switch v := tc.Skip.(type) {
	case bool:
		if v {
			return true, "skipped"
		}
	case string:
		return true, v
	}
	return false, ""
}
