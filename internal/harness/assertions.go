package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/chainharness/internal/ir"
	"github.com/roach88/chainharness/internal/scenario"
	"github.com/roach88/chainharness/internal/store"
	"github.com/roach88/chainharness/internal/units"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%s] %s %s %v\n", event.Key, event.Kind, event.Function, event.Args)
		}
	}

	return buf.String()
}

// checkExpect compares one step's outcome with its expect clause and
// returns a message per mismatch.
func checkExpect(i int, spec StepSpec, out *scenario.Outcome, r *refs) []string {
	e := spec.Expect
	where := fmt.Sprintf("steps[%d]", i)
	if spec.Label != "" {
		where = fmt.Sprintf("steps[%d] (%s)", i, spec.Label)
	}

	var msgs []string
	fail := func(format string, args ...any) {
		msgs = append(msgs, where+": "+fmt.Sprintf(format, args...))
	}

	if e.Success != nil || e.Failure != "" {
		ok, err := out.IsSuccess()
		switch {
		case err != nil:
			fail("%v", err)
		case e.Success != nil && ok != *e.Success:
			failure, _ := out.Failure()
			fail("expected success=%t, got success=%t %s", *e.Success, ok, failure)
		case e.Failure != "":
			failure, _ := out.Failure()
			want := r.expand(e.Failure)
			if ok {
				fail("expected failure containing %q, call succeeded", want)
			} else if !strings.Contains(failure, want) {
				fail("expected failure containing %q, got %q", want, failure)
			}
		}
	}

	if e.Result != nil {
		want, err := ir.FromAny(r.expandAny(e.Result))
		if err != nil {
			fail("expect.result: %v", err)
		} else if got, err := out.Value(); err != nil {
			fail("%v", err)
		} else if !ir.Contains(got, want) {
			fail("expected result %s, got %s", ir.Render(want), ir.Render(got))
		}
	}

	if e.Logs != nil {
		want := make([]string, len(e.Logs))
		for j, l := range e.Logs {
			want[j] = r.expand(l)
		}
		got, err := out.Logs()
		if err != nil {
			fail("%v", err)
		} else if !slices.Equal(got, want) {
			fail("expected logs %q, got %q", want, got)
		}
	}

	if e.Balance != "" {
		want, err := units.ParseBalance(e.Balance)
		if err != nil {
			fail("expect.balance: %v", err)
		} else if got, err := out.Balance(); err != nil {
			fail("%v", err)
		} else if got.Cmp(want) != 0 {
			fail("expected balance %s, got %s", want.HumanString(), got.HumanString())
		}
	}

	return msgs
}

// assertTraceContains checks if the trace contains a step calling the
// function with matching args (subset match).
func assertTraceContains(trace []TraceEvent, assertion Assertion, r map[string]any) error {
	want, err := ir.ObjectFromMap(r)
	if err != nil {
		return fmt.Errorf("trace_contains: args: %w", err)
	}
	for _, event := range trace {
		if event.Function != assertion.Function {
			continue
		}
		got, err := ir.FromAny(event.Args)
		if err != nil {
			continue
		}
		if got == (ir.Null{}) {
			got = ir.Object{}
		}
		if ir.Contains(got, want) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("function %s with args %s", assertion.Function, ir.Render(want)),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that functions first appear in the given order.
// Intervening steps are allowed.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	positions := make(map[string]int)
	for i, event := range trace {
		if _, seen := positions[event.Function]; !seen && event.Function != "" {
			positions[event.Function] = i + 1 // 1-indexed for readability
		}
	}

	for _, fn := range assertion.Functions {
		if positions[fn] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all functions present: %v", assertion.Functions),
				Actual:   fmt.Sprintf("missing function: %s", fn),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Functions); i++ {
		prev := assertion.Functions[i-1]
		curr := assertion.Functions[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("functions in order: %v", assertion.Functions),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

// assertTraceCount checks that exactly Count steps ran the function.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Function == assertion.Function {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Function),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalState reads a contract's storage from the ledger and checks
// the expected keys (subset semantics).
func assertFinalState(actx *AssertionContext, assertion Assertion, expect map[string]any) error {
	id, ok := actx.Contracts[assertion.Contract]
	if !ok {
		return fmt.Errorf("final_state: contract %q is not provisioned", assertion.Contract)
	}

	want, err := ir.ObjectFromMap(expect)
	if err != nil {
		return fmt.Errorf("final_state: expect: %w", err)
	}

	got, err := actx.Store.ReadStorage(actx.Ctx, id)
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("storage of %s", id),
			Actual:   fmt.Sprintf("read error: %v", err),
		}
	}

	for _, key := range want.SortedKeys() {
		gv, exists := got[key]
		if !exists {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("key %q in storage of %s", key, id),
				Actual:   fmt.Sprintf("keys present: %v", got.SortedKeys()),
			}
		}
		if !ir.Contains(gv, want[key]) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("%s = %s", key, ir.Render(want[key])),
				Actual:   fmt.Sprintf("%s = %s", key, ir.Render(gv)),
			}
		}
	}
	return nil
}

// AssertionContext provides what final_state assertions read from.
type AssertionContext struct {
	Ctx   context.Context
	Store *store.Store

	// Contracts maps contract keys to account ids.
	Contracts map[string]string

	// Expand resolves ${key} references in expected values. Nil leaves
	// them as written.
	Expand func(map[string]any) map[string]any
}

func (actx *AssertionContext) expand(m map[string]any) map[string]any {
	if actx == nil || actx.Expand == nil {
		return m
	}
	return actx.Expand(m)
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion, actx.expand(assertion.Args))
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalState:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: final_state requires ledger context", i)
			} else {
				err = assertFinalState(actx, assertion, actx.expand(assertion.Expect))
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
