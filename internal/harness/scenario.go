package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is a scripted roster session.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario checks.
	Description string `yaml:"description"`

	// Keys are handed out in order for pushed employees.
	Keys []string `yaml:"keys,omitempty"`

	// Setup steps run first and must succeed. They are not traced.
	Setup []Step `yaml:"setup,omitempty"`

	// Flow steps are traced and checked against their expect clauses.
	Flow []Step `yaml:"flow"`

	// Assertions validate the trace and the final employee list.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step runs one client operation.
type Step struct {
	Op     string            `yaml:"op"`
	Args   map[string]string `yaml:"args,omitempty"`
	Expect *ExpectClause     `yaml:"expect,omitempty"`
}

// ExpectClause specifies how a step should settle.
type ExpectClause struct {
	// Case is CaseOK or CaseError.
	Case string `yaml:"case"`

	// Error is the expected error kind when Case is CaseError.
	Error string `yaml:"error,omitempty"`
}

// Step outcomes.
const (
	CaseOK    = "ok"
	CaseError = "error"
)

// Assertion validates the result of a whole scenario.
type Assertion struct {
	Type string `yaml:"type"`

	// Op and Case select steps for trace_contains and trace_count.
	Op   string `yaml:"op,omitempty"`
	Case string `yaml:"case,omitempty"`

	// Ops lists operations for trace_order.
	Ops []string `yaml:"ops,omitempty"`

	// Count is the expected number for trace_count and final_employees.
	Count *int `yaml:"count,omitempty"`

	// Employees maps uid to expected fields for final_employees.
	Employees map[string]map[string]string `yaml:"employees,omitempty"`
}

// Assertion types.
const (
	AssertTraceContains  = "trace_contains"
	AssertTraceOrder     = "trace_order"
	AssertTraceCount     = "trace_count"
	AssertFinalEmployees = "final_employees"
)

// Operations.
const (
	OpLogin  = "login"
	OpLogout = "logout"
	OpCreate = "create"
	OpUpdate = "update"
	OpFire   = "fire"
	OpList   = "list"
	OpText   = "text"
)

var requiredArgs = map[string][]string{
	OpLogin:  {"email", "password"},
	OpLogout: nil,
	OpCreate: nil,
	OpUpdate: {"uid"},
	OpFire:   {"uid"},
	OpList:   nil,
	OpText:   {"uid"},
}

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so that typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

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
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
		if step.Expect != nil {
			return fmt.Errorf("setup[%d]: setup steps cannot have expect", i)
		}
	}
	for i, step := range s.Flow {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateStep(step Step) error {
	required, ok := requiredArgs[step.Op]
	if !ok {
		return fmt.Errorf("unknown op %q", step.Op)
	}
	for _, name := range required {
		if _, ok := step.Args[name]; !ok {
			return fmt.Errorf("%s: %s is required", step.Op, name)
		}
	}
	if step.Expect != nil {
		switch step.Expect.Case {
		case CaseOK:
			if step.Expect.Error != "" {
				return fmt.Errorf("expect: error is only valid with case %q", CaseError)
			}
		case CaseError:
		default:
			return fmt.Errorf("expect: case must be %q or %q", CaseOK, CaseError)
		}
	}
	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertTraceContains:
		if a.Op == "" {
			return fmt.Errorf("op is required for %s", a.Type)
		}
	case AssertTraceOrder:
		if len(a.Ops) < 2 {
			return fmt.Errorf("ops needs at least two entries for %s", a.Type)
		}
	case AssertTraceCount:
		if a.Op == "" || a.Count == nil {
			return fmt.Errorf("op and count are required for %s", a.Type)
		}
	case AssertFinalEmployees:
		if a.Count == nil && len(a.Employees) == 0 {
			return fmt.Errorf("count or employees is required for %s", a.Type)
		}
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown type %q", a.Type)
	}
	return nil
}
