package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario.
// Scenarios issue construction requests against a fresh context and assert
// on the identity of the resulting handles.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// ContextID is an optional fixed context ID for deterministic traces.
	// If empty, defaults to "test-context".
	ContextID string `yaml:"context_id,omitempty"`

	// Variants are registered on the context before any step runs.
	Variants []VariantDef `yaml:"variants,omitempty"`

	// Steps are the construction requests, executed in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final context and the named handles.
	Assertions []Assertion `yaml:"assertions"`
}

// VariantDef declares a custom annotation kind for a scenario.
type VariantDef struct {
	Kind    string   `yaml:"kind"`
	Params  []string `yaml:"params,omitempty"`
	Aliases []string `yaml:"aliases,omitempty"`
}

// Step is one construction request, or one annotation file to compile.
type Step struct {
	// Make is a kind or class name. Exclusive with File.
	Make string `yaml:"make,omitempty"`

	// Params are the positional parameters of the request.
	Params []string `yaml:"params,omitempty"`

	// Target is recorded with the annotation; it is not part of identity.
	Target string `yaml:"target,omitempty"`

	// Repeat issues the same request this many times (default 1).
	Repeat int `yaml:"repeat,omitempty"`

	// As names the resulting handle for assertions.
	As string `yaml:"as,omitempty"`

	// File is an annotation file, relative to the scenario. Exclusive with Make.
	File string `yaml:"file,omitempty"`
}

// Assertion validates the final context state.
type Assertion struct {
	// Type specifies the assertion type; see the Assert* constants.
	Type string `yaml:"type"`

	// Count is the expected storage count (storage_count).
	Count int `yaml:"count,omitempty"`

	// Refs are handle names (same, distinct).
	Refs []string `yaml:"refs,omitempty"`

	// Ref is a single handle name (transform_name, kind_mismatch).
	Ref string `yaml:"ref,omitempty"`

	// Make and Params describe the request that must fail (rejects).
	Make   string   `yaml:"make,omitempty"`
	Params []string `yaml:"params,omitempty"`

	// Expect is the expected transform name (transform_name).
	Expect string `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertStorageCount  = "storage_count"
	AssertSame          = "same"
	AssertDistinct      = "distinct"
	AssertRejects       = "rejects"
	AssertTransformName = "transform_name"
	AssertKindMismatch  = "kind_mismatch"
	AssertRoundTrip     = "round_trip"
)

// LoadScenario reads and parses a scenario YAML file.
// File steps are resolved relative to the scenario's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving file steps relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	for i, step := range scenario.Steps {
		if step.File != "" && !filepath.IsAbs(step.File) && basePath != "" {
			scenario.Steps[i].File = filepath.Join(basePath, step.File)
		}
	}

	if err := validateFiles(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return scenario, nil
}

// ParseScenario parses scenario YAML with strict field validation
// (catches typos like "assertion:" vs "assertions:").
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, v := range s.Variants {
		if v.Kind == "" {
			return fmt.Errorf("variants[%d]: kind is required", i)
		}
	}

	names := make(map[string]bool)
	for i, step := range s.Steps {
		switch {
		case step.Make == "" && step.File == "":
			return fmt.Errorf("steps[%d]: one of make or file is required", i)
		case step.Make != "" && step.File != "":
			return fmt.Errorf("steps[%d]: make and file are mutually exclusive", i)
		}
		if step.Repeat < 0 {
			return fmt.Errorf("steps[%d]: repeat must be non-negative", i)
		}
		if step.As != "" {
			if step.File != "" {
				return fmt.Errorf("steps[%d]: as cannot name a file step", i)
			}
			if names[step.As] {
				return fmt.Errorf("steps[%d]: name %q already used", i, step.As)
			}
			names[step.As] = true
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, names); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, names map[string]bool) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	checkRef := func(ref string) error {
		if !names[ref] {
			return fmt.Errorf("assertions[%d]: unknown handle name %q", index, ref)
		}
		return nil
	}

	switch a.Type {
	case AssertStorageCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for storage_count", index)
		}
	case AssertSame, AssertDistinct:
		if len(a.Refs) < 2 {
			return fmt.Errorf("assertions[%d]: at least two refs are required for %s", index, a.Type)
		}
		for _, ref := range a.Refs {
			if err := checkRef(ref); err != nil {
				return err
			}
		}
	case AssertRejects:
		if a.Make == "" {
			return fmt.Errorf("assertions[%d]: make is required for rejects", index)
		}
	case AssertTransformName:
		if err := checkRef(a.Ref); err != nil {
			return err
		}
		if a.Expect == "" {
			return fmt.Errorf("assertions[%d]: expect is required for transform_name", index)
		}
	case AssertKindMismatch:
		if err := checkRef(a.Ref); err != nil {
			return err
		}
	case AssertRoundTrip:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

// validateFiles checks that every file step points at an existing file.
func validateFiles(s *Scenario) error {
	for i, step := range s.Steps {
		if step.File == "" {
			continue
		}
		if _, err := os.Stat(step.File); os.IsNotExist(err) {
			return fmt.Errorf("steps[%d]: annotation file not found: %s", i, step.File)
		}
	}
	return nil
}
