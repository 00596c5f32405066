package contract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/chainharness/internal/ir"
	"github.com/roach88/chainharness/internal/units"
)

var (
	// ErrUnknownFunction is returned for a function the program does not
	// declare.
	ErrUnknownFunction = errors.New("unknown function")

	// ErrNotView is returned when a call function is run in view mode.
	ErrNotView = errors.New("function is not a view")

	// ErrNotCall is returned when a view function is run as a call.
	ErrNotCall = errors.New("function is not a call")
)

// Env is everything a function can observe.
type Env struct {
	Self        string
	Predecessor string
	Deposit     units.Balance
	Args        ir.Object
	Storage     ir.Object
}

// Effect is the result of a successful execution.
type Effect struct {
	// Return is nil when the function returns nothing.
	Return ir.Value
	Logs   []string
	Writes ir.Object
}

// Failure is a contract panic: the function ran and rejected the call.
type Failure struct {
	Function string
	Reason   string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s panicked: %s", f.Function, f.Reason)
}

func fail(fn *Function, format string, args ...any) *Failure {
	return &Failure{Function: fn.Name, Reason: fmt.Sprintf(format, args...)}
}

// IsFailure reports whether err is a contract panic.
func IsFailure(err error) bool {
	var f *Failure
	return errors.As(err, &f)
}

// Call runs the named function as a state-changing call.
func Call(p *Program, name string, env Env) (*Effect, error) {
	fn, ok := p.Function(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}
	if fn.Kind != KindCall {
		return nil, fmt.Errorf("%w: %s", ErrNotCall, name)
	}
	return run(fn, env)
}

// View runs the named function read-only. Writes are never produced.
func View(p *Program, name string, env Env) (*Effect, error) {
	fn, ok := p.Function(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}
	if fn.Kind != KindView {
		return nil, fmt.Errorf("%w: %s", ErrNotView, name)
	}
	env.Deposit = units.Balance{}
	return run(fn, env)
}

func run(fn *Function, env Env) (*Effect, error) {
	if env.Args == nil {
		env.Args = ir.Object{}
	}
	if env.Storage == nil {
		env.Storage = ir.Object{}
	}

	for _, p := range fn.Params {
		v, ok := env.Args[p.Name]
		if !ok {
			return nil, fail(fn, "missing argument %q", p.Name)
		}
		if !p.Type.Accepts(v) {
			return nil, fail(fn, "argument %q: expected %s, got %s", p.Name, p.Type, typeOf(v))
		}
	}

	if env.Deposit.Cmp(fn.MinDeposit) < 0 {
		return nil, fail(fn, "requires a deposit of at least %s, got %s", fn.MinDeposit, env.Deposit)
	}

	if fn.OwnerOnly {
		owner, ok := env.Storage["owner_id"].(ir.String)
		if !ok || string(owner) != env.Predecessor {
			return nil, fail(fn, "%s is not the owner", env.Predecessor)
		}
	}

	eff := &Effect{Writes: ir.Object{}}
	for _, a := range fn.Set {
		v := a.Literal
		if v == nil {
			rv, err := resolve(a.Template, env)
			if err != nil {
				return nil, fail(fn, "set %s: %v", a.Key, err)
			}
			v = rv
		}
		eff.Writes[a.Key] = v
	}

	for _, a := range fn.Add {
		var base ir.Int
		switch cur := lookupStorage(eff.Writes, env.Storage, a.Key).(type) {
		case nil, ir.Null:
		case ir.Int:
			base = cur
		default:
			return nil, fail(fn, "add %s: storage value %s is not an int", a.Key, ir.Render(cur))
		}
		delta := a.Literal
		if delta == nil {
			rv, err := resolve(a.Template, env)
			if err != nil {
				return nil, fail(fn, "add %s: %v", a.Key, err)
			}
			delta = rv
		}
		n, ok := delta.(ir.Int)
		if !ok {
			return nil, fail(fn, "add %s: %s is not an int", a.Key, ir.Render(delta))
		}
		sum := base + n
		if (n > 0 && sum < base) || (n < 0 && sum > base) {
			return nil, fail(fn, "add %s: overflow", a.Key)
		}
		eff.Writes[a.Key] = sum
	}

	// Later templates observe the writes made above.
	after := env
	after.Storage = merged(env.Storage, eff.Writes)

	for _, line := range fn.Logs {
		out, err := interpolate(line, after)
		if err != nil {
			return nil, fail(fn, "log: %v", err)
		}
		eff.Logs = append(eff.Logs, out)
	}

	if fn.Returns != "" {
		v, err := resolve(fn.Returns, after)
		if err != nil {
			return nil, fail(fn, "return: %v", err)
		}
		eff.Return = v
	}

	if fn.Kind == KindView {
		eff.Writes = ir.Object{}
	}
	return eff, nil
}

func lookupStorage(writes, storage ir.Object, key string) ir.Value {
	if v, ok := writes[key]; ok {
		return v
	}
	return storage[key]
}

func merged(storage, writes ir.Object) ir.Object {
	out := make(ir.Object, len(storage)+len(writes))
	for k, v := range storage {
		out[k] = v
	}
	for k, v := range writes {
		out[k] = v
	}
	return out
}

// resolve evaluates a single template. A missing storage key is null; a
// missing argument is an error because declared arguments are checked
// before any template runs.
func resolve(template string, env Env) (ir.Value, error) {
	switch {
	case template == "predecessor":
		return ir.String(env.Predecessor), nil
	case template == "self":
		return ir.String(env.Self), nil
	case template == "deposit":
		return ir.String(env.Deposit.String()), nil
	case strings.HasPrefix(template, "args."):
		name := template[len("args."):]
		v, ok := env.Args[name]
		if !ok {
			return nil, fmt.Errorf("argument %q not provided", name)
		}
		return v, nil
	case strings.HasPrefix(template, "storage."):
		v, ok := env.Storage[template[len("storage."):]]
		if !ok {
			return ir.Null{}, nil
		}
		return v, nil
	}
	return ir.String(template), nil
}

// interpolate replaces every {template} in line with its rendered value.
func interpolate(line string, env Env) (string, error) {
	var b strings.Builder
	rest := line
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			b.WriteString(rest)
			return b.String(), nil
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			b.WriteString(rest)
			return b.String(), nil
		}
		b.WriteString(rest[:open])
		v, err := resolve(rest[open+1:open+end], env)
		if err != nil {
			return "", err
		}
		b.WriteString(ir.Render(v))
		rest = rest[open+end+1:]
	}
}

func typeOf(v ir.Value) ArgType {
	switch v.(type) {
	case ir.String:
		return TypeString
	case ir.Int:
		return TypeInt
	case ir.Bool:
		return TypeBool
	case ir.Array:
		return TypeArray
	case ir.Object:
		return TypeObject
	}
	return "null"
}
