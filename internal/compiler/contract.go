package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/chainharness/internal/contract"
	"github.com/roach88/chainharness/internal/ir"
	"github.com/roach88/chainharness/internal/units"
)

// Compile parses a CUE contract artifact into a Program.
// filename is only used for error positions.
//
//	name: "counter"
//	storage: { count: 0 }
//	functions: {
//		increment: { kind: "call", args: { by: int }, add: { count: "args.by" } }
//		get:       { kind: "view", returns: "storage.count" }
//	}
func Compile(filename string, src []byte) (*contract.Program, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	return CompileValue(v)
}

// CompileValue is Compile for an already built CUE value.
func CompileValue(v cue.Value) (*contract.Program, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	nameVal := v.LookupPath(cue.ParsePath("name"))
	if !nameVal.Exists() {
		return nil, &CompileError{
			Field:   "name",
			Message: "name is required",
			Pos:     v.Pos(),
		}
	}
	name, err := nameVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}

	storage := ir.Object{}
	if sv := v.LookupPath(cue.ParsePath("storage")); sv.Exists() {
		val, err := toValue(sv)
		if err != nil {
			return nil, err
		}
		obj, ok := val.(ir.Object)
		if !ok {
			return nil, &CompileError{Field: "storage", Message: "storage must be a struct", Pos: sv.Pos()}
		}
		storage = obj
	}

	fns, err := parseFunctions(v)
	if err != nil {
		return nil, err
	}
	if len(fns) == 0 {
		return nil, &CompileError{
			Field:   "functions",
			Message: "at least one function is required",
			Pos:     v.Pos(),
		}
	}

	return contract.NewProgram(name, storage, fns...)
}

func parseFunctions(v cue.Value) ([]*contract.Function, error) {
	fnsVal := v.LookupPath(cue.ParsePath("functions"))
	if !fnsVal.Exists() {
		return nil, nil
	}

	iter, err := fnsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var fns []*contract.Function
	for iter.Next() {
		fn, err := parseFunction(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		fns = append(fns, fn)
	}
	return fns, nil
}

func parseFunction(name string, v cue.Value) (*contract.Function, error) {
	field := func(sub string) string { return fmt.Sprintf("functions.%s.%s", name, sub) }

	fn := &contract.Function{Name: name, Kind: contract.KindCall}

	if kv := v.LookupPath(cue.ParsePath("kind")); kv.Exists() {
		kind, err := kv.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		switch contract.FunctionKind(kind) {
		case contract.KindCall, contract.KindView:
			fn.Kind = contract.FunctionKind(kind)
		default:
			return nil, &CompileError{
				Field:   field("kind"),
				Message: fmt.Sprintf("kind must be %q or %q, got %q", contract.KindCall, contract.KindView, kind),
				Pos:     kv.Pos(),
			}
		}
	}

	if av := v.LookupPath(cue.ParsePath("args")); av.Exists() {
		argsIter, err := av.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for argsIter.Next() {
			argType, err := extractArgType(argsIter.Value())
			if err != nil {
				return nil, err
			}
			fn.Params = append(fn.Params, contract.Param{Name: argsIter.Label(), Type: argType})
		}
	}

	var err error
	if fn.Set, err = parseAssignments(v, "set"); err != nil {
		return nil, err
	}
	if fn.Add, err = parseAssignments(v, "add"); err != nil {
		return nil, err
	}

	if lv := v.LookupPath(cue.ParsePath("log")); lv.Exists() {
		logIter, err := lv.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for logIter.Next() {
			line, err := logIter.Value().String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			fn.Logs = append(fn.Logs, line)
		}
	}

	if rv := v.LookupPath(cue.ParsePath("returns")); rv.Exists() {
		ret, err := rv.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		fn.Returns = ret
	}

	if dv := v.LookupPath(cue.ParsePath("min_deposit")); dv.Exists() {
		s, err := dv.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		fn.MinDeposit, err = units.ParseBalance(s)
		if err != nil {
			return nil, &CompileError{Field: field("min_deposit"), Message: err.Error(), Pos: dv.Pos()}
		}
	}

	if ov := v.LookupPath(cue.ParsePath("owner_only")); ov.Exists() {
		b, err := ov.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		fn.OwnerOnly = b
	}

	return fn, nil
}

// parseAssignments reads a struct of storage key to template. String
// values are templates; any other concrete value is written as is.
func parseAssignments(fn cue.Value, name string) ([]contract.Assignment, error) {
	sv := fn.LookupPath(cue.ParsePath(name))
	if !sv.Exists() {
		return nil, nil
	}
	iter, err := sv.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var out []contract.Assignment
	for iter.Next() {
		a := contract.Assignment{Key: iter.Label()}
		if s, err := iter.Value().String(); err == nil {
			a.Template = s
		} else {
			lit, err := toValue(iter.Value())
			if err != nil {
				return nil, err
			}
			a.Literal = lit
		}
		out = append(out, a)
	}
	return out, nil
}

// extractArgType accepts either a CUE type (string, int, ...) or one of the
// type names as a string ("string", "any", ...).
func extractArgType(v cue.Value) (contract.ArgType, error) {
	if s, err := v.String(); err == nil {
		t := contract.ArgType(s)
		if !t.Valid() {
			return "", &CompileError{
				Field:   "type",
				Message: fmt.Sprintf("unknown argument type %q", s),
				Pos:     v.Pos(),
			}
		}
		return t, nil
	}

	switch v.IncompleteKind() {
	case cue.StringKind:
		return contract.TypeString, nil
	case cue.IntKind:
		return contract.TypeInt, nil
	case cue.BoolKind:
		return contract.TypeBool, nil
	case cue.ListKind:
		return contract.TypeArray, nil
	case cue.StructKind:
		return contract.TypeObject, nil
	case cue.TopKind:
		return contract.TypeAny, nil
	case cue.FloatKind, cue.NumberKind:
		return "", &CompileError{
			Field:   "type",
			Message: "float types are forbidden - use int instead",
			Pos:     v.Pos(),
		}
	default:
		return "", &CompileError{
			Field:   "type",
			Message: fmt.Sprintf("unsupported type kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// toValue converts a concrete CUE value into an ir.Value.
func toValue(v cue.Value) (ir.Value, error) {
	switch v.Kind() {
	case cue.NullKind:
		return ir.Null{}, nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.String(s), nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.Int(n), nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.Bool(b), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		arr := ir.Array{}
		for iter.Next() {
			elem, err := toValue(iter.Value())
			if err != nil {
				return nil, err
			}
			arr = append(arr, elem)
		}
		return arr, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		obj := ir.Object{}
		for iter.Next() {
			elem, err := toValue(iter.Value())
			if err != nil {
				return nil, err
			}
			obj[iter.Label()] = elem
		}
		return obj, nil
	case cue.FloatKind, cue.NumberKind:
		return nil, &CompileError{Field: "value", Message: "floats are not allowed", Pos: v.Pos()}
	default:
		return nil, &CompileError{
			Field:   "value",
			Message: fmt.Sprintf("value must be concrete, got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
