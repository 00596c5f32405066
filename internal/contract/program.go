package contract

import (
	"fmt"
	"slices"

	"github.com/roach88/chainharness/internal/ir"
	"github.com/roach88/chainharness/internal/units"
)

// FunctionKind distinguishes state-changing functions from read-only ones.
type FunctionKind string

const (
	KindCall FunctionKind = "call"
	KindView FunctionKind = "view"
)

// ArgType is the declared type of a function argument.
type ArgType string

const (
	TypeString ArgType = "string"
	TypeInt    ArgType = "int"
	TypeBool   ArgType = "bool"
	TypeArray  ArgType = "array"
	TypeObject ArgType = "object"
	TypeAny    ArgType = "any"
)

// Valid reports whether t is a known argument type.
func (t ArgType) Valid() bool {
	switch t {
	case TypeString, TypeInt, TypeBool, TypeArray, TypeObject, TypeAny:
		return true
	}
	return false
}

// Accepts reports whether v satisfies the type.
func (t ArgType) Accepts(v ir.Value) bool {
	switch t {
	case TypeAny:
		return true
	case TypeString:
		_, ok := v.(ir.String)
		return ok
	case TypeInt:
		_, ok := v.(ir.Int)
		return ok
	case TypeBool:
		_, ok := v.(ir.Bool)
		return ok
	case TypeArray:
		_, ok := v.(ir.Array)
		return ok
	case TypeObject:
		_, ok := v.(ir.Object)
		return ok
	}
	return false
}

// Param is a declared argument.
type Param struct {
	Name string
	Type ArgType
}

// Assignment writes the value of a template, or a literal, to a storage key.
type Assignment struct {
	Key string
	// Template is set for string values; Literal for everything else.
	Template string
	Literal  ir.Value
}

// Function is one callable entry point of a Program.
type Function struct {
	Name       string
	Kind       FunctionKind
	Params     []Param
	Set        []Assignment
	Add        []Assignment // integer increments; a missing key counts as 0
	Logs       []string
	Returns    string // template; empty means no return value
	MinDeposit units.Balance
	OwnerOnly  bool
}

// Param returns the declared argument called name.
func (f *Function) Param(name string) (Param, bool) {
	for _, p := range f.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// Program is a compiled contract artifact.
type Program struct {
	Name      string
	Storage   ir.Object
	functions map[string]*Function
	order     []string
}

// NewProgram assembles a program. Function names must be unique.
func NewProgram(name string, storage ir.Object, fns ...*Function) (*Program, error) {
	p := &Program{
		Name:      name,
		Storage:   storage,
		functions: make(map[string]*Function, len(fns)),
	}
	if p.Storage == nil {
		p.Storage = ir.Object{}
	}
	for _, fn := range fns {
		if _, dup := p.functions[fn.Name]; dup {
			return nil, fmt.Errorf("duplicate function %q", fn.Name)
		}
		p.functions[fn.Name] = fn
		p.order = append(p.order, fn.Name)
	}
	return p, nil
}

// Function returns the function called name.
func (p *Program) Function(name string) (*Function, bool) {
	fn, ok := p.functions[name]
	return fn, ok
}

// Functions returns every function in declaration order.
func (p *Program) Functions() []*Function {
	out := make([]*Function, len(p.order))
	for i, name := range p.order {
		out[i] = p.functions[name]
	}
	return out
}

// FunctionNames returns the function names sorted alphabetically.
func (p *Program) FunctionNames() []string {
	names := slices.Clone(p.order)
	slices.Sort(names)
	return names
}
