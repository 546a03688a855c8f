package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/graphledger/internal/descriptor"
)

// DefaultCaller is the caller GUID of scenarios that do not name one.
const DefaultCaller = "11111111-2222-3333-4444-555555555555"

// Scenario is a sequence of requests run against a scripted graph store.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Caller is the GUID every request is sent as. Defaults to DefaultCaller.
	Caller string `yaml:"caller,omitempty"`

	// SequenceStart is the change log number the clock starts from; the
	// first entry gets SequenceStart+1.
	SequenceStart int64 `yaml:"sequence_start,omitempty"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one request.
type Step struct {
	// Function is the operation name.
	Function string `yaml:"function"`

	// Query is the request payload, written as YAML. Mapping key order is
	// kept when it is converted to JSON.
	Query yaml.Node `yaml:"query"`

	// Store scripts the store's answers to this step's statements.
	Store []StoreResult `yaml:"store,omitempty"`

	// Expect, if set, is checked against the response.
	Expect *Expect `yaml:"expect,omitempty"`
}

// StoreResult is one scripted store answer.
type StoreResult struct {
	Rows  []map[string]any `yaml:"rows,omitempty"`
	Error string           `yaml:"error,omitempty"`
}

// Expect specifies the expected response of a step.
type Expect struct {
	// Rows is the exact number of rows returned.
	Rows *int `yaml:"rows,omitempty"`

	// Error is the expected engine error code. Empty means success.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates the trace.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Step restricts statement_contains and statement_count to one step.
	// Required by changelog_numbers.
	Step *int `yaml:"step,omitempty"`

	// Text is the substring statement_contains looks for.
	Text string `yaml:"text,omitempty"`

	// Texts are the substrings statement_order looks for, in order.
	Texts []string `yaml:"texts,omitempty"`

	// Count is the expected number of statements (statement_count).
	Count *int `yaml:"count,omitempty"`

	// Numbers are the expected change log numbers (changelog_numbers).
	Numbers []int64 `yaml:"numbers,omitempty"`
}

// Assertion type constants.
const (
	AssertStatementContains = "statement_contains"
	AssertStatementOrder    = "statement_order"
	AssertStatementCount    = "statement_count"
	AssertChangeLogNumbers  = "changelog_numbers"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Caller == "" {
		scenario.Caller = DefaultCaller
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
	if s.SequenceStart < 0 {
		return fmt.Errorf("sequence_start must not be negative")
	}

	for i, step := range s.Steps {
		if step.Function == "" {
			return fmt.Errorf("steps[%d]: function is required", i)
		}
		if _, ok := descriptor.ParseOperation(step.Function); !ok && step.Expect == nil {
			return fmt.Errorf("steps[%d]: unknown function %q (add an expect clause to test the error)", i, step.Function)
		}
		if _, err := step.QueryJSON(); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a, len(s.Steps)); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a Assertion, steps int) error {
	if a.Step != nil && (*a.Step < 0 || *a.Step >= steps) {
		return fmt.Errorf("assertions[%d]: step %d out of range", index, *a.Step)
	}

	switch a.Type {
	case AssertStatementContains:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: statement_contains requires 'text'", index)
		}
	case AssertStatementOrder:
		if len(a.Texts) < 2 {
			return fmt.Errorf("assertions[%d]: statement_order requires at least 2 'texts'", index)
		}
	case AssertStatementCount:
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: statement_count requires 'count'", index)
		}
	case AssertChangeLogNumbers:
		if a.Step == nil {
			return fmt.Errorf("assertions[%d]: changelog_numbers requires 'step'", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// QueryJSON converts the step's query to the JSON payload of a request.
// A missing query becomes null.
func (s Step) QueryJSON() (json.RawMessage, error) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, &s.Query); err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return json.RawMessage(buf.Bytes()), nil
}

func writeJSON(buf *bytes.Buffer, n *yaml.Node) error {
	switch n.Kind {
	case 0:
		buf.WriteString("null")
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			buf.WriteString("null")
			return nil
		}
		return writeJSON(buf, n.Content[0])
	case yaml.AliasNode:
		return writeJSON(buf, n.Alias)
	case yaml.MappingNode:
		buf.WriteByte('{')
		for i := 0; i+1 < len(n.Content); i += 2 {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(n.Content[i].Value)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := writeJSON(buf, n.Content[i+1]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case yaml.SequenceNode:
		buf.WriteByte('[')
		for i, item := range n.Content {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return fmt.Errorf("line %d: %w", n.Line, err)
		}
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("line %d: %w", n.Line, err)
		}
		buf.Write(data)
	default:
		return fmt.Errorf("line %d: unsupported YAML node kind %d", n.Line, n.Kind)
	}
	return nil
}
