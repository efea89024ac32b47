package conformance

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// TestPath is the default suite directory, relative to this package
const TestPath = "testdata"

// LoadedTest represents a test with its source file path
type LoadedTest struct {
	File  string
	Suite string
	Test  TestCase
}

// LoadAllTests walks dir and loads every test case of every .yaml suite.
// Files are visited in lexical order, so the result order is stable.
func LoadAllTests(dir string) ([]LoadedTest, error) {
	var paths []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || filepath.Ext(path) != ".yaml" {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	var loaded []LoadedTest
	for _, path := range paths {
		suite, err := LoadSuite(path)
		if err != nil {
			return nil, err
		}
		relPath, _ := filepath.Rel(dir, path)
		for _, test := range suite.Tests {
			loaded = append(loaded, LoadedTest{File: relPath, Suite: suite.Name, Test: test})
		}
	}
	return loaded, nil
}

// LoadSuite parses a single YAML file
func LoadSuite(path string) (*TestSuite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var suite TestSuite
	if err := yaml.Unmarshal(data, &suite); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for i, tc := range suite.Tests {
		if tc.Name == "" {
			return nil, fmt.Errorf("%s: test %d has no name", path, i)
		}
		if tc.Expect.Error != "" && (len(tc.Expect.Stack) > 0 || len(tc.Expect.RAM) > 0) {
			return nil, fmt.Errorf("%s: %s: expect.error excludes stack and ram", path, tc.Name)
		}
	}
	return &suite, nil
}
