package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/chainharness/internal/contract"
	"github.com/roach88/chainharness/internal/ir"
	"github.com/roach88/chainharness/internal/units"
)

func program(t *testing.T, name string, storage ir.Object, fns ...*contract.Function) *contract.Program {
	t.Helper()
	p, err := contract.NewProgram(name, storage, fns...)
	require.NoError(t, err)
	return p
}

func TestValidateValid(t *testing.T) {
	p := program(t, "token", ir.Object{"owner_id": ir.String("")},
		&contract.Function{
			Name:      "set_owner",
			Kind:      contract.KindCall,
			Params:    []contract.Param{{Name: "owner_id", Type: contract.TypeString}},
			Set:       []contract.Assignment{{Key: "owner_id", Template: "args.owner_id"}},
			Logs:      []string{"owner is now {args.owner_id}"},
			OwnerOnly: true,
		},
	)

	assert.Empty(t, Validate(p))
}

func TestValidateProgramLevel(t *testing.T) {
	p := program(t, "  ", ir.Object{"Bad-Key": ir.Int(1)})

	errs := Validate(p)
	require.Len(t, errs, 3)
	assert.Equal(t, ErrProgramNameEmpty, errs[0].Code)
	assert.Equal(t, ErrProgramNoFunctions, errs[1].Code)
	assert.Equal(t, ErrInvalidName, errs[2].Code)
	assert.Equal(t, "storage.Bad-Key", errs[2].Field)
}

func TestValidateFunctionRules(t *testing.T) {
	tests := []struct {
		name  string
		fn    *contract.Function
		code  string
		field string
	}{
		{
			name:  "undeclared arg in set",
			fn:    &contract.Function{Name: "f", Kind: contract.KindCall, Set: []contract.Assignment{{Key: "x", Template: "args.y"}}},
			code:  ErrUndeclaredArg,
			field: "functions.f.x",
		},
		{
			name:  "undeclared arg in log",
			fn:    &contract.Function{Name: "f", Kind: contract.KindCall, Logs: []string{"hi {args.who}"}},
			code:  ErrUndeclaredArg,
			field: "functions.f.log[0]",
		},
		{
			name:  "undeclared arg in returns",
			fn:    &contract.Function{Name: "f", Kind: contract.KindView, Returns: "args.q"},
			code:  ErrUndeclaredArg,
			field: "functions.f.returns",
		},
		{
			name:  "view writes",
			fn:    &contract.Function{Name: "f", Kind: contract.KindView, Add: []contract.Assignment{{Key: "n", Literal: ir.Int(1)}}},
			code:  ErrViewWrites,
			field: "functions.f",
		},
		{
			name:  "view deposit",
			fn:    &contract.Function{Name: "f", Kind: contract.KindView, MinDeposit: units.Near(1)},
			code:  ErrViewDeposit,
			field: "functions.f.min_deposit",
		},
		{
			name:  "owner only without owner",
			fn:    &contract.Function{Name: "f", Kind: contract.KindCall, OwnerOnly: true},
			code:  ErrOwnerNoStorage,
			field: "functions.f.owner_only",
		},
		{
			name:  "bad kind",
			fn:    &contract.Function{Name: "f", Kind: "pure"},
			code:  ErrInvalidKind,
			field: "functions.f.kind",
		},
		{
			name:  "bad arg type",
			fn:    &contract.Function{Name: "f", Kind: contract.KindCall, Params: []contract.Param{{Name: "n", Type: "float"}}},
			code:  ErrInvalidArgType,
			field: "functions.f.args.n",
		},
		{
			name:  "bad function name",
			fn:    &contract.Function{Name: "DoIt", Kind: contract.KindCall},
			code:  ErrInvalidName,
			field: "functions.DoIt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Validate(program(t, "x", nil, tt.fn))
			require.Len(t, errs, 1)
			assert.Equal(t, tt.code, errs[0].Code)
			assert.Equal(t, tt.field, errs[0].Field)
		})
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := ValidationError{Field: "name", Message: "name is required", Code: ErrProgramNameEmpty}
	assert.Equal(t, "[E101] name: name is required", err.Error())
}
