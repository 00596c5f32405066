package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/roach88/chainharness/internal/sandbox"
	"github.com/roach88/chainharness/internal/scenario"
	"github.com/roach88/chainharness/internal/units"
)

// Scenario is a declarative test: the accounts and contracts to provision,
// the steps to run against them as one batch, and what to expect.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Provision lists accounts and contracts in creation order.
	Provision []ProvisionEntry `yaml:"provision"`

	// Steps run in order as a single batch.
	Steps []StepSpec `yaml:"steps"`

	// Assertions are checked against the trace and final contract storage
	// after every step has run.
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// ExpectError, when set, makes the scenario pass only if the batch
	// aborts with an error containing this text.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// ProvisionEntry registers one account or one contract. Exactly one of
// Account and Contract is set.
type ProvisionEntry struct {
	Account  string `yaml:"account,omitempty"`
	Contract string `yaml:"contract,omitempty"`

	// Artifact is the contract's CUE file, relative to the scenario file.
	Artifact string `yaml:"artifact,omitempty"`

	// Balance is a human amount, e.g. "20 N" or "0.5 N".
	Balance string `yaml:"balance"`
}

// Key returns the registration key.
func (p ProvisionEntry) Key() string {
	if p.Contract != "" {
		return p.Contract
	}
	return p.Account
}

// StepSpec is one step of the batch.
type StepSpec struct {
	// Kind is one of call, view, self_call, view_account.
	Kind     string         `yaml:"kind"`
	Account  string         `yaml:"account,omitempty"`
	Contract string         `yaml:"contract,omitempty"`
	Function string         `yaml:"function,omitempty"`
	Args     map[string]any `yaml:"args,omitempty"`
	Deposit  string         `yaml:"deposit,omitempty"`
	Gas      string         `yaml:"gas,omitempty"`
	Label    string         `yaml:"label,omitempty"`

	// Expect is checked against this step's outcome. Nil checks nothing.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect describes the expected outcome of a step. Unset fields are not
// checked.
type Expect struct {
	// Success is the expected call status.
	Success *bool `yaml:"success,omitempty"`

	// Result is matched against the decoded return value. Objects match
	// as a subset.
	Result any `yaml:"result,omitempty"`

	// Logs must equal the call or view logs exactly.
	Logs []string `yaml:"logs,omitempty"`

	// Balance is the expected account balance of a view_account step.
	Balance string `yaml:"balance,omitempty"`

	// Failure must be contained in the failure message of a failed call.
	Failure string `yaml:"failure,omitempty"`
}

// Assertion validates the trace or final contract storage.
type Assertion struct {
	// Type is one of trace_contains, trace_order, trace_count, final_state.
	Type string `yaml:"type"`

	// Function is the function name (trace_contains, trace_count).
	Function string `yaml:"function,omitempty"`

	// Args are matched as a subset (trace_contains).
	Args map[string]any `yaml:"args,omitempty"`

	// Count is the exact number of steps calling Function (trace_count).
	Count int `yaml:"count,omitempty"`

	// Functions is the expected call order (trace_order).
	Functions []string `yaml:"functions,omitempty"`

	// Contract is the contract key whose storage is read (final_state).
	Contract string `yaml:"contract,omitempty"`

	// Expect is matched as a subset of the storage (final_state).
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// LoadScenario reads and parses a scenario YAML file. Artifact paths are
// resolved relative to the file's directory.
//
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or fails validation. Validation reports every
// problem at once.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath is like LoadScenario but resolves artifact
// paths relative to basePath. An empty basePath leaves them as written.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	s, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	for i, p := range s.Provision {
		if p.Artifact != "" && !filepath.IsAbs(p.Artifact) && basePath != "" {
			s.Provision[i].Artifact = filepath.Join(basePath, p.Artifact)
		}
	}

	if err := ValidateScenario(s); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return s, nil
}

// ParseScenario decodes a scenario without validating it.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &s, nil
}

// ValidateScenario checks required fields and cross references. All
// problems are returned together as a *multierror.Error.
func ValidateScenario(s *Scenario) error {
	var result *multierror.Error
	add := func(format string, args ...any) {
		result = multierror.Append(result, fmt.Errorf(format, args...))
	}

	if s.Name == "" {
		add("name is required")
	}
	if s.Description == "" {
		add("description is required")
	}
	if len(s.Steps) == 0 {
		add("steps list is required and must be non-empty")
	}

	accounts := map[string]bool{}
	contracts := map[string]bool{}
	for i, p := range s.Provision {
		switch {
		case p.Account != "" && p.Contract != "":
			add("provision[%d]: set exactly one of account and contract", i)
			continue
		case p.Account == "" && p.Contract == "":
			add("provision[%d]: account or contract is required", i)
			continue
		}

		key := p.Key()
		if accounts[key] || contracts[key] {
			add("provision[%d]: duplicate key %q", i, key)
		}
		if _, err := units.ParseBalance(p.Balance); err != nil {
			add("provision[%d]: %v", i, err)
		}

		if p.Contract != "" {
			contracts[key] = true
			if p.Artifact == "" {
				add("provision[%d]: artifact is required for contract %q", i, key)
			} else if _, err := os.Stat(p.Artifact); err != nil {
				add("provision[%d]: artifact not found: %s", i, p.Artifact)
			}
		} else {
			accounts[key] = true
			if p.Artifact != "" {
				add("provision[%d]: artifact is only valid for contracts", i)
			}
		}
	}

	labels := map[string]int{}
	for i, step := range s.Steps {
		validateStep(i, step, labels, add)
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a, contracts); err != nil {
			result = multierror.Append(result, err)
		}
	}

	return result.ErrorOrNil()
}

func validateStep(i int, step StepSpec, labels map[string]int, add func(string, ...any)) {
	kind, err := scenario.ParseKind(step.Kind)
	if err != nil {
		add("steps[%d]: %v", i, err)
		return
	}

	switch kind {
	case scenario.KindCall:
		if step.Account == "" || step.Contract == "" {
			add("steps[%d]: call requires account and contract", i)
		}
	case scenario.KindView, scenario.KindSelfCall:
		if step.Contract == "" {
			add("steps[%d]: %s requires contract", i, kind)
		}
	case scenario.KindViewAccount:
		if step.Account == "" {
			add("steps[%d]: view_account requires account", i)
		}
	}

	if kind != scenario.KindViewAccount && step.Function == "" {
		add("steps[%d]: function is required for %s", i, kind)
	}
	if step.Deposit != "" {
		if _, err := units.ParseBalance(step.Deposit); err != nil {
			add("steps[%d]: deposit: %v", i, err)
		}
	}
	if step.Gas != "" {
		if _, err := units.ParseGas(step.Gas); err != nil {
			add("steps[%d]: gas: %v", i, err)
		}
	}

	if step.Label != "" {
		if prev, ok := labels[step.Label]; ok {
			add("steps[%d]: label %q already used by steps[%d]", i, step.Label, prev)
		} else {
			labels[step.Label] = i
		}
	}

	if e := step.Expect; e != nil {
		if e.Balance != "" {
			if kind != scenario.KindViewAccount {
				add("steps[%d].expect: balance is only valid for view_account", i)
			} else if _, err := units.ParseBalance(e.Balance); err != nil {
				add("steps[%d].expect: balance: %v", i, err)
			}
		}
		if (e.Success != nil || e.Failure != "") && kind != scenario.KindCall && kind != scenario.KindSelfCall {
			add("steps[%d].expect: success and failure are only valid for calls", i)
		}
		if e.Failure != "" && e.Success != nil && *e.Success {
			add("steps[%d].expect: failure contradicts success: true", i)
		}
	}
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a Assertion, contracts map[string]bool) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertTraceContains:
		if a.Function == "" {
			return fmt.Errorf("assertions[%d]: function is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Functions) == 0 {
			return fmt.Errorf("assertions[%d]: functions list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Function == "" {
			return fmt.Errorf("assertions[%d]: function is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.Contract == "" {
			return fmt.Errorf("assertions[%d]: contract is required for final_state", index)
		}
		if !contracts[a.Contract] {
			return fmt.Errorf("assertions[%d]: contract %q is not provisioned", index, a.Contract)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// newBuilder registers every provision entry on a fresh Builder.
func newBuilder(sb *sandbox.Sandbox, s *Scenario, opts ...scenario.BuilderOption) (*scenario.Builder, error) {
	b := scenario.NewBuilder(sb, opts...)
	for i, p := range s.Provision {
		balance, err := units.ParseBalance(p.Balance)
		if err != nil {
			return nil, fmt.Errorf("provision[%d]: %w", i, err)
		}
		if p.Contract != "" {
			err = b.RegisterContract(p.Contract, p.Artifact, balance)
		} else {
			err = b.RegisterAccount(p.Account, balance)
		}
		if err != nil {
			return nil, fmt.Errorf("provision[%d]: %w", i, err)
		}
	}
	return b, nil
}
