package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/perstore/internal/schema"
)

// Scenario defines a conformance test scenario: a schema, a sequence of
// store operations with their expected outcomes, and assertions on the
// final stored state.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// SchemaNode is the inline schema document. It is decoded leniently:
	// schema keys the compiler does not use are ignored, not rejected.
	SchemaNode yaml.Node `yaml:"schema"`

	// Schema is the decoded SchemaNode.
	Schema *schema.Document `yaml:"-"`

	// Label stores every quad under this label when set.
	Label string `yaml:"label,omitempty"`

	// IDs are handed out in order to objects put without an id.
	IDs []string `yaml:"ids,omitempty"`

	// Steps are executed in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final stored state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one store operation.
type Step struct {
	// Op is put, get, delete or query.
	Op string `yaml:"op"`

	// Object is the object to put.
	Object map[string]any `yaml:"object,omitempty"`

	// ID is the id to get or delete, or the explicit id of a put.
	ID string `yaml:"id,omitempty"`

	// Overwrite disables overwriting for a put when false.
	Overwrite *bool `yaml:"overwrite,omitempty"`

	// Filter is the RQL filter of a query; empty matches everything.
	Filter string `yaml:"filter,omitempty"`

	// Expect is the expected return value: the id for put, the object for
	// get, true/false for delete and the list of objects for query.
	Expect any `yaml:"expect,omitempty"`

	// ExpectError is the expected error kind. The step must fail with it.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Assertion validates the final stored state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "quad_count": number of quads with Subject, or all quads if empty
	// - "stored": the object with ID equals Expect (null: no such object)
	Type string `yaml:"type"`

	Subject string `yaml:"subject,omitempty"`
	Count   int    `yaml:"count,omitempty"`
	ID      string `yaml:"id,omitempty"`
	Expect  any    `yaml:"expect,omitempty"`
}

// Step operations.
const (
	OpPut    = "put"
	OpGet    = "get"
	OpDelete = "delete"
	OpQuery  = "query"
)

// Assertion type constants.
const (
	AssertQuadCount = "quad_count"
	AssertStored    = "stored"
)

// LoadScenario reads the scenario file at path.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ParseScenario decodes scenario YAML. Unknown top-level and step keys are
// errors, so a misspelt "assertion:" fails instead of silently running
// nothing; the schema itself is decoded leniently.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}

	if !s.SchemaNode.IsZero() {
		s.Schema = &schema.Document{}
		if err := s.SchemaNode.Decode(s.Schema); err != nil {
			return nil, fmt.Errorf("invalid scenario: schema: %w", err)
		}
	}
	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

// ScenarioFiles lists the scenario files under path: path itself when it is
// a file, otherwise every .yaml and .yml file in the directory, sorted.
func ScenarioFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".yaml", ".yml":
			files = append(files, filepath.Join(path, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// validateScenario checks required fields and the shape of every step and
// assertion.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Schema == nil {
		return fmt.Errorf("schema is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, step *Step) error {
	switch step.Op {
	case OpPut:
		if step.Object == nil {
			return fmt.Errorf("steps[%d]: put requires object", index)
		}
	case OpGet, OpDelete:
		if step.ID == "" {
			return fmt.Errorf("steps[%d]: %s requires id", index, step.Op)
		}
	case OpQuery:
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q (valid: put, get, delete, query)", index, step.Op)
	}

	if step.Overwrite != nil && step.Op != OpPut {
		return fmt.Errorf("steps[%d]: overwrite only applies to put", index)
	}
	if step.Filter != "" && step.Op != OpQuery {
		return fmt.Errorf("steps[%d]: filter only applies to query", index)
	}
	if step.ExpectError != "" {
		if !validErrorKinds[step.ExpectError] {
			return fmt.Errorf("steps[%d]: unknown expect_error %q", index, step.ExpectError)
		}
		if step.Expect != nil {
			return fmt.Errorf("steps[%d]: expect and expect_error are mutually exclusive", index)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertQuadCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must not be negative", index)
		}
	case AssertStored:
		if a.ID == "" {
			return fmt.Errorf("assertions[%d]: stored requires id", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q (valid: quad_count, stored)", index, a.Type)
	}
	return nil
}
