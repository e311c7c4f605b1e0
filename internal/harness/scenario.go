package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
)

// Scenario is one YAML test scenario.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Specs is a directory of CUE rules, relative to the scenario file.
	// Empty runs the built-in rule sets.
	Specs string `yaml:"specs,omitempty"`

	MaxDepth       int  `yaml:"max_depth,omitempty"`
	CycleDetection bool `yaml:"cycle_detection,omitempty"`
	Seed           bool `yaml:"seed,omitempty"`

	Setup      []ActionStep `yaml:"setup,omitempty"`
	Flow       []FlowStep   `yaml:"flow"`
	Assertions []Assertion  `yaml:"assertions,omitempty"`
}

// ActionStep is a setup stimulus.
type ActionStep struct {
	Action string         `yaml:"action"`
	Input  map[string]any `yaml:"input"`
}

// FlowStep is a stimulus whose cascade is traced and checked.
type FlowStep struct {
	Invoke string         `yaml:"invoke"`
	Input  map[string]any `yaml:"input"`
	Expect *Expect        `yaml:"expect,omitempty"`
}

// Expect checks one flow step.
type Expect struct {
	// Output is matched against the stimulus' own output.
	Output map[string]any `yaml:"output,omitempty"`

	// Response is matched against the API response stored for the
	// request id in the output.
	Response map[string]any `yaml:"response,omitempty"`

	// Unanswered expects no rule to have answered the request.
	Unanswered bool `yaml:"unanswered,omitempty"`

	// Actions is the exact action sequence of the cascade.
	Actions []string `yaml:"actions,omitempty"`

	// Faults is the exact sequence of fault codes.
	Faults []string `yaml:"faults,omitempty"`

	// Fails expects the stimulus itself to fault and produce no record.
	Fails bool `yaml:"fails,omitempty"`
}

// Assertion checks the whole trace or the final state.
type Assertion struct {
	Type string `yaml:"type"`

	Action  string         `yaml:"action,omitempty"`
	Actions []string       `yaml:"actions,omitempty"`
	Input   map[string]any `yaml:"input,omitempty"`
	Output  map[string]any `yaml:"output,omitempty"`
	Count   *int           `yaml:"count,omitempty"`

	Code string `yaml:"code,omitempty"`
	Rule string `yaml:"rule,omitempty"`

	Query  string         `yaml:"query,omitempty"`
	Args   map[string]any `yaml:"args,omitempty"`
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion types.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertNoFaults      = "no_faults"
	AssertFault         = "fault"
	AssertFinalState    = "final_state"
)

// LoadScenario reads a scenario file. Unknown fields are rejected, and a
// relative specs directory is resolved against the file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	s, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	if s.Specs != "" && !filepath.IsAbs(s.Specs) {
		s.Specs = filepath.Join(filepath.Dir(path), s.Specs)
	}
	return s, nil
}

// ParseScenario decodes and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

// Validate checks required fields and assertion shapes.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if s.MaxDepth < 0 {
		return fmt.Errorf("max_depth must be non-negative")
	}

	for i, step := range s.Setup {
		if _, err := ir.ParseActionRef(step.Action); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
	}
	for i, step := range s.Flow {
		if _, err := ir.ParseActionRef(step.Invoke); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
		if e := step.Expect; e != nil && e.Unanswered && e.Response != nil {
			return fmt.Errorf("flow[%d].expect: response and unanswered are exclusive", i)
		}
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_count", index)
		}
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for trace_count", index)
		}
	case AssertNoFaults:
	case AssertFault:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for fault", index)
		}
	case AssertFinalState:
		if a.Query == "" {
			return fmt.Errorf("assertions[%d]: query is required for final_state", index)
		}
		if a.Expect == nil && a.Count == nil {
			return fmt.Errorf("assertions[%d]: expect or count is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
