package scenario

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/chainharness/internal/units"
)

func TestOwnership_StepHoldsState(t *testing.T) {
	st, _ := provisioned(t)

	step := st.Call(Alice, "token", "x", nil)

	assert.PanicsWithError(t, "scenario: State.Account: state is owned elsewhere", func() {
		_, _ = st.Account(Alice)
	})
	assert.Panics(t, func() { st.View("token", "y", nil) })
	assert.Panics(t, func() { _, _ = st.Execute(context.Background()) })

	back := step.Chain()
	assert.Same(t, st, back)
	assert.Equal(t, 1, back.Pending())
}

func TestOwnership_ChainedStepIsDead(t *testing.T) {
	st, _ := provisioned(t)

	step := st.Call(Alice, "token", "x", nil)
	st = step.Chain()

	assert.PanicsWithError(t, "scenario: Step.WithLabel: step already chained", func() {
		step.WithLabel("late")
	})
	assert.Panics(t, func() { step.Chain() })
	assert.Panics(t, func() { step.WithDeposit(units.Near(1)) })
	assert.Equal(t, 1, st.Pending())
}

func TestOwnership_LedgerHoldsState(t *testing.T) {
	st, _ := provisioned(t)

	ledger, err := st.Execute(context.Background())
	require.NoError(t, err)

	assert.Panics(t, func() { st.AccountKeys() })

	st2 := ledger.MustTakeState()
	assert.Same(t, st, st2)
	assert.NotPanics(t, func() { st.AccountKeys() })
	assert.Panics(t, func() { ledger.MustTakeState() })
}

func TestOwnership_EnqueueForeignStep(t *testing.T) {
	st1, _ := provisioned(t)
	st2, _ := provisioned(t)

	step := st1.Call(Alice, "token", "x", nil)
	assert.Panics(t, func() { st2.Enqueue(step) })
}

func TestDrain_Idempotent(t *testing.T) {
	st, _ := provisioned(t)
	st = st.Call(Alice, "token", "a", nil).Chain().
		View("token", "b", nil).Chain()

	steps := st.Drain()
	require.Len(t, steps, 2)
	assert.Equal(t, "a", steps[0].Function())
	assert.Equal(t, KindView, steps[1].Kind())

	assert.Empty(t, st.Drain())
}

func TestState_KeyLookups(t *testing.T) {
	st, _ := provisioned(t)

	key, ok := st.AccountKey(Bob)
	assert.True(t, ok)
	assert.Equal(t, Bob, key)

	_, ok = st.AccountKey("token")
	assert.False(t, ok)

	key, ok = st.ContractKey("token")
	assert.True(t, ok)
	assert.Equal(t, "token", key)

	_, err := st.Contract(Alice)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "contract", nf.What)
	assert.Equal(t, `contract "alice" not found`, err.Error())

	_, err = st.Charlie()
	assert.True(t, IsNotFound(err))
}

func TestStep_Accessors(t *testing.T) {
	st, _ := provisioned(t)

	step := st.Call(Alice, "token", "ft_transfer", nil).
		WithDeposit(units.Yocto(1)).
		WithGas(units.Tgas(5)).
		WithLabel("transfer")

	assert.Equal(t, KindCall, step.Kind())
	assert.Equal(t, Alice, step.AccountKey())
	assert.Equal(t, "token", step.ContractKey())
	assert.Equal(t, "ft_transfer", step.Function())
	assert.Empty(t, step.ArgsObject())
	assert.Equal(t, units.Yocto(1), step.Deposit())
	assert.Equal(t, units.Tgas(5), step.Gas())
	label, ok := step.Label()
	assert.True(t, ok)
	assert.Equal(t, "transfer", label)

	step.Chain()
}

func TestParseKind(t *testing.T) {
	for _, k := range []Kind{KindCall, KindView, KindSelfCall, KindViewAccount} {
		got, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}

	_, err := ParseKind("transfer")
	assert.Error(t, err)
	assert.Equal(t, "Kind(9)", Kind(9).String())
}
