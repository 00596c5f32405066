package harness

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_Valid(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/token_init.yaml")
	require.NoError(t, err)

	assert.Equal(t, "token_init", s.Name)
	require.Len(t, s.Provision, 2)
	assert.Equal(t, "alice", s.Provision[0].Key())
	assert.Equal(t, "token", s.Provision[1].Key())
	assert.Equal(t, filepath.Join("testdata", "scenarios", "token.cue"), s.Provision[1].Artifact)

	require.Len(t, s.Steps, 3)
	assert.Equal(t, "self_call", s.Steps[0].Kind)
	assert.Equal(t, map[string]any{"owner_id": "${alice}"}, s.Steps[0].Args)
	require.NotNil(t, s.Steps[0].Expect.Success)
	assert.True(t, *s.Steps[0].Expect.Success)
	assert.Equal(t, "${alice}", s.Steps[1].Expect.Result)
	assert.Equal(t, "20 N", s.Steps[2].Expect.Balance)

	require.Len(t, s.Assertions, 1)
	assert.Equal(t, AssertFinalState, s.Assertions[0].Type)
}

func TestLoadScenarioWithBasePath(t *testing.T) {
	dir := t.TempDir()
	artifacts := filepath.Join(dir, "contracts")
	require.NoError(t, os.Mkdir(artifacts, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(artifacts, "c.cue"), []byte(`name: "c"`), 0o644))

	path := filepath.Join(dir, "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: based
description: "artifact next to a different base"
provision:
  - contract: c
    artifact: c.cue
    balance: "1 N"
steps:
  - kind: view
    contract: c
    function: f
`), 0o644))

	_, err := LoadScenario(path)
	require.Error(t, err, "c.cue does not exist next to the scenario")
	assert.Contains(t, err.Error(), "artifact not found")

	s, err := LoadScenarioWithBasePath(path, artifacts)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(artifacts, "c.cue"), s.Provision[0].Artifact)
}

func TestLoadScenario_UnknownField(t *testing.T) {
	_, err := LoadScenario("testdata/invalid/unknown_field.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
	assert.Contains(t, err.Error(), "provison")
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("testdata/nope.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadScenario_ReportsEveryProblem(t *testing.T) {
	_, err := LoadScenario("testdata/invalid/many_problems.yaml")
	require.Error(t, err)

	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	assert.Len(t, merr.Errors, 9)

	msg := err.Error()
	for _, want := range []string{
		"name is required",
		"provision[0]: set exactly one of account and contract",
		"provision[1]: parse balance",
		`provision[2]: artifact is required for contract "nft"`,
		`steps[0]: unknown step kind "teleport"`,
		"steps[1]: view requires contract",
		`steps[3]: label "dup" already used by steps[2]`,
		"steps[3].expect: success and failure are only valid for calls",
		`assertions[0]: contract "missing" is not provisioned`,
	} {
		assert.Contains(t, msg, want)
	}
}

func TestValidateScenario(t *testing.T) {
	valid := func() *Scenario {
		return &Scenario{
			Name:        "s",
			Description: "d",
			Provision:   []ProvisionEntry{{Account: "alice", Balance: "1 N"}},
			Steps:       []StepSpec{{Kind: "view_account", Account: "alice"}},
		}
	}
	yes := true

	tests := []struct {
		name   string
		mutate func(*Scenario)
		errMsg string
	}{
		{
			name:   "valid",
			mutate: func(*Scenario) {},
		},
		{
			name:   "missing description",
			mutate: func(s *Scenario) { s.Description = "" },
			errMsg: "description is required",
		},
		{
			name:   "no steps",
			mutate: func(s *Scenario) { s.Steps = nil },
			errMsg: "steps list is required",
		},
		{
			name:   "empty provision entry",
			mutate: func(s *Scenario) { s.Provision = append(s.Provision, ProvisionEntry{Balance: "1 N"}) },
			errMsg: "provision[1]: account or contract is required",
		},
		{
			name: "duplicate key across kinds",
			mutate: func(s *Scenario) {
				s.Provision = append(s.Provision, ProvisionEntry{Contract: "alice", Artifact: "testdata/scenarios/token.cue", Balance: "1 N"})
			},
			errMsg: `provision[1]: duplicate key "alice"`,
		},
		{
			name:   "artifact on account",
			mutate: func(s *Scenario) { s.Provision[0].Artifact = "x.cue" },
			errMsg: "artifact is only valid for contracts",
		},
		{
			name:   "call without contract",
			mutate: func(s *Scenario) { s.Steps[0] = StepSpec{Kind: "call", Account: "alice", Function: "f"} },
			errMsg: "call requires account and contract",
		},
		{
			name:   "view without function",
			mutate: func(s *Scenario) { s.Steps[0] = StepSpec{Kind: "view", Contract: "c"} },
			errMsg: "function is required for view",
		},
		{
			name:   "bad deposit",
			mutate: func(s *Scenario) { s.Steps[0].Deposit = "1 X" },
			errMsg: "deposit:",
		},
		{
			name:   "bad gas",
			mutate: func(s *Scenario) { s.Steps[0].Gas = "fast" },
			errMsg: "gas:",
		},
		{
			name: "balance on a call",
			mutate: func(s *Scenario) {
				s.Steps[0] = StepSpec{Kind: "call", Account: "a", Contract: "c", Function: "f", Expect: &Expect{Balance: "1 N"}}
			},
			errMsg: "balance is only valid for view_account",
		},
		{
			name: "failure contradicts success",
			mutate: func(s *Scenario) {
				s.Steps[0] = StepSpec{Kind: "call", Account: "a", Contract: "c", Function: "f", Expect: &Expect{Success: &yes, Failure: "x"}}
			},
			errMsg: "failure contradicts success: true",
		},
		{
			name:   "assertion without type",
			mutate: func(s *Scenario) { s.Assertions = []Assertion{{}} },
			errMsg: "assertions[0]: type is required",
		},
		{
			name:   "unknown assertion",
			mutate: func(s *Scenario) { s.Assertions = []Assertion{{Type: "vibes"}} },
			errMsg: `unknown assertion type "vibes"`,
		},
		{
			name:   "trace_order without functions",
			mutate: func(s *Scenario) { s.Assertions = []Assertion{{Type: AssertTraceOrder}} },
			errMsg: "functions list is required",
		},
		{
			name:   "negative count",
			mutate: func(s *Scenario) { s.Assertions = []Assertion{{Type: AssertTraceCount, Function: "f", Count: -1}} },
			errMsg: "count must be non-negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(s)
			err := ValidateScenario(s)
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
