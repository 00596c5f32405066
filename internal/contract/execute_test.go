package contract

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/chainharness/internal/ir"
	"github.com/roach88/chainharness/internal/units"
)

func tokenProgram(t *testing.T) *Program {
	t.Helper()

	p, err := NewProgram("token", ir.NewObject(ir.O("owner_id", ir.String(""))),
		&Function{
			Name:    "init",
			Kind:    KindCall,
			Params:  []Param{{Name: "owner_id", Type: TypeString}},
			Set:     []Assignment{{Key: "owner_id", Template: "args.owner_id"}},
			Logs:    []string{"initialized by {predecessor} for {storage.owner_id}"},
			Returns: "storage.owner_id",
		},
		&Function{
			Name:      "mint",
			Kind:      KindCall,
			Params:    []Param{{Name: "amount", Type: TypeInt}},
			Add:       []Assignment{{Key: "supply", Template: "args.amount"}},
			Logs:      []string{"minted {args.amount}"},
			Returns:   "storage.supply",
			OwnerOnly: true,
		},
		&Function{
			Name:       "buy",
			Kind:       KindCall,
			Set:        []Assignment{{Key: "buyer", Template: "predecessor"}, {Key: "paid", Template: "deposit"}, {Key: "sold", Literal: ir.Bool(true)}},
			MinDeposit: units.Near(1),
		},
		&Function{Name: "owner", Kind: KindView, Returns: "storage.owner_id"},
		&Function{Name: "whoami", Kind: KindView, Returns: "self"},
	)
	require.NoError(t, err)
	return p
}

func TestCall_InitWritesAndReturns(t *testing.T) {
	p := tokenProgram(t)

	eff, err := Call(p, "init", Env{
		Self:        "token.dev.test",
		Predecessor: "token.dev.test",
		Args:        ir.NewObject(ir.O("owner_id", ir.String("alice"))),
		Storage:     p.Storage,
	})
	require.NoError(t, err)

	assert.Equal(t, ir.String("alice"), eff.Return)
	assert.Equal(t, ir.Object{"owner_id": ir.String("alice")}, eff.Writes)
	assert.Equal(t, []string{"initialized by token.dev.test for alice"}, eff.Logs)
	assert.Equal(t, ir.String(""), p.Storage["owner_id"], "storage must not be mutated")
}

func TestCall_AddAccumulates(t *testing.T) {
	p := tokenProgram(t)
	storage := ir.Object{"owner_id": ir.String("alice")}

	eff, err := Call(p, "mint", Env{Predecessor: "alice", Args: ir.Object{"amount": ir.Int(5)}, Storage: storage})
	require.NoError(t, err)
	assert.Equal(t, ir.Int(5), eff.Return)

	storage["supply"] = ir.Int(5)
	eff, err = Call(p, "mint", Env{Predecessor: "alice", Args: ir.Object{"amount": ir.Int(7)}, Storage: storage})
	require.NoError(t, err)
	assert.Equal(t, ir.Int(12), eff.Return)
	assert.Equal(t, []string{"minted 7"}, eff.Logs)
}

func TestCall_Failures(t *testing.T) {
	p := tokenProgram(t)
	owned := ir.Object{"owner_id": ir.String("alice")}

	tests := []struct {
		name   string
		fn     string
		env    Env
		reason string
	}{
		{"missing arg", "init", Env{}, `missing argument "owner_id"`},
		{"wrong type", "init", Env{Args: ir.Object{"owner_id": ir.Int(1)}}, `argument "owner_id": expected string, got int`},
		{"not owner", "mint", Env{Predecessor: "bob", Args: ir.Object{"amount": ir.Int(1)}, Storage: owned}, "bob is not the owner"},
		{"low deposit", "buy", Env{Deposit: units.Yocto(1)}, "requires a deposit of at least 1000000000000000000000000, got 1"},
		{"add to string", "mint", Env{Predecessor: "alice", Args: ir.Object{"amount": ir.Int(1)}, Storage: ir.Object{"owner_id": ir.String("alice"), "supply": ir.String("x")}}, "add supply: storage value x is not an int"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Call(p, tt.fn, tt.env)
			require.Error(t, err)
			require.True(t, IsFailure(err))

			var f *Failure
			require.ErrorAs(t, err, &f)
			assert.Equal(t, tt.fn, f.Function)
			assert.Equal(t, tt.reason, f.Reason)
		})
	}
}

func TestCall_DepositTemplates(t *testing.T) {
	p := tokenProgram(t)

	eff, err := Call(p, "buy", Env{Predecessor: "bob", Deposit: units.Near(2)})
	require.NoError(t, err)
	assert.Nil(t, eff.Return)
	assert.Equal(t, ir.Object{
		"buyer": ir.String("bob"),
		"paid":  ir.String("2000000000000000000000000"),
		"sold":  ir.Bool(true),
	}, eff.Writes)
}

func TestCall_UnknownFunction(t *testing.T) {
	_, err := Call(tokenProgram(t), "burn", Env{})
	require.ErrorIs(t, err, ErrUnknownFunction)
	assert.False(t, IsFailure(err))
}

func TestCall_RejectsViews(t *testing.T) {
	p := tokenProgram(t)

	for _, name := range []string{"owner", "whoami"} {
		t.Run(name, func(t *testing.T) {
			_, err := Call(p, name, Env{Predecessor: "alice"})
			require.ErrorIs(t, err, ErrNotCall)
			assert.ErrorContains(t, err, name)
			assert.False(t, IsFailure(err))
		})
	}
}

func TestCall_AddOverflowFails(t *testing.T) {
	p := tokenProgram(t)

	tests := []struct {
		name   string
		supply int64
		amount int64
	}{
		{"past max", math.MaxInt64, 1},
		{"large sum", math.MaxInt64 / 2, math.MaxInt64/2 + 2},
		{"past min", math.MinInt64, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := ir.Object{"owner_id": ir.String("alice"), "supply": ir.Int(tt.supply)}
			eff, err := Call(p, "mint", Env{Predecessor: "alice", Args: ir.Object{"amount": ir.Int(tt.amount)}, Storage: storage})
			require.Nil(t, eff)

			var f *Failure
			require.ErrorAs(t, err, &f)
			assert.Equal(t, "mint", f.Function)
			assert.Equal(t, "add supply: overflow", f.Reason)
			assert.Equal(t, ir.Int(tt.supply), storage["supply"])
		})
	}

	eff, err := Call(p, "mint", Env{
		Predecessor: "alice",
		Args:        ir.Object{"amount": ir.Int(-1)},
		Storage:     ir.Object{"owner_id": ir.String("alice"), "supply": ir.Int(math.MaxInt64)},
	})
	require.NoError(t, err)
	assert.Equal(t, ir.Int(math.MaxInt64-1), eff.Return)
}

func TestView(t *testing.T) {
	p := tokenProgram(t)

	eff, err := View(p, "owner", Env{Storage: ir.Object{"owner_id": ir.String("alice")}})
	require.NoError(t, err)
	assert.Equal(t, ir.String("alice"), eff.Return)
	assert.Empty(t, eff.Writes)

	eff, err = View(p, "whoami", Env{Self: "token.dev.test"})
	require.NoError(t, err)
	assert.Equal(t, ir.String("token.dev.test"), eff.Return)

	_, err = View(p, "init", Env{})
	require.ErrorIs(t, err, ErrNotView)

	_, err = View(p, "nope", Env{})
	require.ErrorIs(t, err, ErrUnknownFunction)
}

func TestView_MissingStorageIsNull(t *testing.T) {
	eff, err := View(tokenProgram(t), "owner", Env{})
	require.NoError(t, err)
	assert.Equal(t, ir.Null{}, eff.Return)
}

func TestNewProgram_DuplicateFunction(t *testing.T) {
	_, err := NewProgram("x", nil, &Function{Name: "a"}, &Function{Name: "a"})
	require.Error(t, err)
}

func TestProgram_Functions(t *testing.T) {
	p := tokenProgram(t)
	assert.Equal(t, []string{"buy", "init", "mint", "owner", "whoami"}, p.FunctionNames())
	assert.Equal(t, "init", p.Functions()[0].Name)

	fn, ok := p.Function("init")
	require.True(t, ok)
	param, ok := fn.Param("owner_id")
	require.True(t, ok)
	assert.Equal(t, TypeString, param.Type)
}

func TestArgType_Accepts(t *testing.T) {
	assert.True(t, TypeAny.Accepts(ir.Null{}))
	assert.True(t, TypeArray.Accepts(ir.Array{}))
	assert.True(t, TypeObject.Accepts(ir.Object{}))
	assert.True(t, TypeBool.Accepts(ir.Bool(false)))
	assert.False(t, TypeInt.Accepts(ir.String("1")))
	assert.False(t, ArgType("float").Valid())
}
