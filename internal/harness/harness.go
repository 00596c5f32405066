package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/roach88/chainharness/internal/ir"
	"github.com/roach88/chainharness/internal/sandbox"
	"github.com/roach88/chainharness/internal/scenario"
	"github.com/roach88/chainharness/internal/store"
	"github.com/roach88/chainharness/internal/testutil"
	"github.com/roach88/chainharness/internal/units"
)

// Option configures a Run.
type Option func(*runConfig)

type runConfig struct {
	logger *slog.Logger
	store  *store.Store
	names  sandbox.NameGenerator
}

// WithLogger sets the logger handed to the sandbox and the scenario
// engine. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(c *runConfig) { c.logger = l }
}

// WithStore runs against an existing ledger instead of a fresh in-memory
// one. The caller keeps ownership of the store.
func WithStore(st *store.Store) Option {
	return func(c *runConfig) { c.store = st }
}

// WithNameGenerator replaces the deterministic "harness-<n>" root names.
// A persisted ledger needs unique names across runs.
func WithNameGenerator(g sandbox.NameGenerator) Option {
	return func(c *runConfig) { c.names = g }
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Open a fresh in-memory ledger (unless WithStore is given)
//  2. Provision the accounts and contracts in declaration order
//  3. Run every step as one batch
//  4. Check expect clauses and assertions
//
// Root accounts are named dev-harness-<n>.test by default so traces are
// identical across runs. Provisioning failures and malformed step arguments
// are returned as errors; everything that happens during the batch is
// reported through the Result.
func Run(ctx context.Context, s *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.names == nil {
		cfg.names = testutil.NewSequenceNameGenerator("harness")
	}

	st := cfg.store
	if st == nil {
		var err error
		st, err = store.Open(":memory:")
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory store: %w", err)
		}
		defer st.Close()
	}

	sb := sandbox.New(st, sandbox.WithNameGenerator(cfg.names), sandbox.WithLogger(cfg.logger))
	b, err := newBuilder(sb, s, scenario.WithLogger(cfg.logger))
	if err != nil {
		return nil, err
	}
	state, err := b.Provision(ctx)
	if err != nil {
		return nil, err
	}

	r := newRefs(state)
	steps, err := prepareSteps(s.Steps, r)
	if err != nil {
		state.Close()
		return nil, err
	}

	for _, p := range steps {
		step := state.NewStep(p.kind, p.spec.Account, p.spec.Contract, p.spec.Function, p.args)
		if !p.deposit.IsZero() {
			step.WithDeposit(p.deposit)
		}
		if p.gas != 0 {
			step.WithGas(p.gas)
		}
		if p.spec.Label != "" {
			step.WithLabel(p.spec.Label)
		}
		step.Chain()
	}

	result := NewResult()
	ledger, err := state.Execute(ctx)
	if err != nil {
		releaseState(cfg.logger, err)
		result.Aborted = err.Error()
		switch {
		case s.ExpectError == "":
			result.AddError(fmt.Sprintf("batch aborted: %v", err))
		case !strings.Contains(err.Error(), r.expand(s.ExpectError)):
			result.AddError(fmt.Sprintf("batch aborted with %q, expected an error containing %q", err, r.expand(s.ExpectError)))
		}
		cfg.logger.Info("scenario aborted", "scenario", s.Name, "error", err)
		return result, nil
	}
	defer ledger.MustTakeState().Close()

	if s.ExpectError != "" {
		result.AddError(fmt.Sprintf("expected the batch to abort with %q, but every step ran", r.expand(s.ExpectError)))
	}

	for i, p := range steps {
		key := stepKey(i, p.spec)
		out, ok := ledger.Lookup(key)
		if !ok {
			return nil, fmt.Errorf("steps[%d]: no outcome under %s", i, key)
		}
		ev, err := traceEvent(i, p, r, out)
		if err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
		result.AddTrace(ev)

		if p.spec.Expect != nil {
			for _, msg := range checkExpect(i, p.spec, out, r) {
				result.AddError(msg)
			}
		}
	}

	actx := &AssertionContext{Ctx: ctx, Store: st, Contracts: r.contracts, Expand: r.expandMap}
	for _, msg := range EvaluateAssertions(result, s.Assertions, actx) {
		result.AddError(msg)
	}

	cfg.logger.Info("scenario completed", "scenario", s.Name, "pass", result.Pass, "steps", len(result.Trace))
	return result, nil
}

// preparedStep is a StepSpec with every field parsed.
type preparedStep struct {
	spec    StepSpec
	kind    scenario.Kind
	args    ir.Object
	deposit units.Balance
	gas     units.Gas
}

// prepareSteps parses every step before any is built, so a bad step never
// leaves the state half-queued.
func prepareSteps(specs []StepSpec, r *refs) ([]preparedStep, error) {
	steps := make([]preparedStep, 0, len(specs))
	for i, spec := range specs {
		p := preparedStep{spec: spec}

		kind, err := scenario.ParseKind(spec.Kind)
		if err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
		p.kind = kind

		args, err := ir.ObjectFromMap(r.expandMap(spec.Args))
		if err != nil {
			return nil, fmt.Errorf("steps[%d]: args: %w", i, err)
		}
		p.args = args

		if spec.Deposit != "" {
			if p.deposit, err = units.ParseBalance(spec.Deposit); err != nil {
				return nil, fmt.Errorf("steps[%d]: deposit: %w", i, err)
			}
		}
		if spec.Gas != "" {
			if p.gas, err = units.ParseGas(spec.Gas); err != nil {
				return nil, fmt.Errorf("steps[%d]: gas: %w", i, err)
			}
		}
		steps = append(steps, p)
	}
	return steps, nil
}

func stepKey(i int, spec StepSpec) scenario.Key {
	if spec.Label != "" {
		return scenario.LabelKey(spec.Label)
	}
	return scenario.IndexKey(i)
}

func traceEvent(i int, p preparedStep, r *refs, out *scenario.Outcome) (TraceEvent, error) {
	ev := TraceEvent{
		Step:     i,
		Key:      p.spec.Label,
		Kind:     p.kind.String(),
		Function: p.spec.Function,
	}
	if ev.Key == "" {
		ev.Key = fmt.Sprintf("#%d", i)
	}
	if p.kind == scenario.KindCall || p.kind == scenario.KindViewAccount {
		ev.Account = r.accounts[p.spec.Account]
	}
	if p.kind != scenario.KindViewAccount {
		ev.Contract = r.contracts[p.spec.Contract]
	}
	if len(p.args) > 0 {
		ev.Args = ir.ToAny(p.args)
	}
	if !p.deposit.IsZero() && p.kind != scenario.KindView {
		ev.Deposit = p.deposit.HumanString()
	}

	switch out.Kind() {
	case scenario.OutcomeAccount:
		bal, err := out.Balance()
		if err != nil {
			return ev, err
		}
		ev.Balance = bal.HumanString()
		return ev, nil
	case scenario.OutcomeCall:
		ok, err := out.IsSuccess()
		if err != nil {
			return ev, err
		}
		ev.Success = &ok
		if !ok {
			ev.Failure, _ = out.Failure()
		}
	}

	logs, err := out.Logs()
	if err != nil {
		return ev, err
	}
	ev.Logs = logs

	v, err := out.Value()
	if err != nil {
		return ev, err
	}
	ev.Result = ir.ToAny(v)
	return ev, nil
}

// refPattern matches ${key} references to provisioned accounts.
var refPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// refs maps registration keys to account ids. "root" names the root
// account unless a registration uses that key.
type refs struct {
	accounts  map[string]string
	contracts map[string]string
	all       map[string]string
}

func newRefs(state *scenario.State) *refs {
	r := &refs{
		accounts:  map[string]string{},
		contracts: map[string]string{},
		all:       map[string]string{"root": state.Root().ID.String()},
	}
	for _, key := range state.AccountKeys() {
		acc, err := state.Account(key)
		if err == nil {
			r.accounts[key] = acc.ID.String()
			r.all[key] = acc.ID.String()
		}
	}
	for _, key := range state.ContractKeys() {
		c, err := state.Contract(key)
		if err == nil {
			r.contracts[key] = c.ID.String()
			r.all[key] = c.ID.String()
		}
	}
	return r
}

// expand replaces ${key} with the account id. Unknown keys are left as
// written.
func (r *refs) expand(s string) string {
	return refPattern.ReplaceAllStringFunc(s, func(m string) string {
		if id, ok := r.all[m[2:len(m)-1]]; ok {
			return id
		}
		return m
	})
}

func (r *refs) expandAny(v any) any {
	switch val := v.(type) {
	case string:
		return r.expand(val)
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = r.expandAny(elem)
		}
		return out
	case map[string]any:
		return r.expandMap(val)
	}
	return v
}

func (r *refs) expandMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = r.expandAny(v)
	}
	return out
}

// releaseState closes the State held by a failed batch error, if any.
func releaseState(logger *slog.Logger, err error) {
	held, ok := scenario.StateFromError(err)
	if !ok {
		return
	}
	if cerr := held.Close(); cerr != nil {
		logger.Warn("close state after aborted batch", "error", cerr)
	}
}
