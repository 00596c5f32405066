package compiler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/chainharness/internal/contract"
)

// Validation error codes (E100-E199)
const (
	// Program errors (E101-E109)
	ErrProgramNameEmpty   = "E101" // name is required
	ErrProgramNoFunctions = "E102" // at least one function required
	ErrInvalidKind        = "E103" // kind must be call or view
	ErrInvalidArgType     = "E104" // unknown argument type
	ErrInvalidName        = "E105" // function, argument or storage key name

	// Template errors (E110-E119)
	ErrUndeclaredArg  = "E110" // args.x where x is not a declared argument
	ErrViewWrites     = "E111" // set/add on a view function
	ErrViewDeposit    = "E112" // min_deposit on a view function
	ErrOwnerNoStorage = "E113" // owner_only without storage.owner_id
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// identPattern is the shape of function, argument and storage key names.
var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// argRefPattern matches "args.name" references inside templates.
var argRefPattern = regexp.MustCompile(`args\.([a-zA-Z_][a-zA-Z0-9_]*)`)

// Validate checks a compiled program for mistakes the compiler accepts.
// Returns all errors found (does not fail-fast).
func Validate(p *contract.Program) []ValidationError {
	var errs []ValidationError

	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: "name is required and must be non-empty",
			Code:    ErrProgramNameEmpty,
		})
	}

	fns := p.Functions()
	if len(fns) == 0 {
		errs = append(errs, ValidationError{
			Field:   "functions",
			Message: "at least one function is required",
			Code:    ErrProgramNoFunctions,
		})
	}

	for _, key := range p.Storage.SortedKeys() {
		if !identPattern.MatchString(key) {
			errs = append(errs, ValidationError{
				Field:   "storage." + key,
				Message: fmt.Sprintf("invalid storage key %q", key),
				Code:    ErrInvalidName,
			})
		}
	}

	for _, fn := range fns {
		errs = append(errs, validateFunction(p, fn)...)
	}

	return errs
}

func validateFunction(p *contract.Program, fn *contract.Function) []ValidationError {
	var errs []ValidationError
	path := "functions." + fn.Name

	if !identPattern.MatchString(fn.Name) {
		errs = append(errs, ValidationError{
			Field:   path,
			Message: fmt.Sprintf("invalid function name %q", fn.Name),
			Code:    ErrInvalidName,
		})
	}

	if fn.Kind != contract.KindCall && fn.Kind != contract.KindView {
		errs = append(errs, ValidationError{
			Field:   path + ".kind",
			Message: fmt.Sprintf("invalid kind %q", fn.Kind),
			Code:    ErrInvalidKind,
		})
	}

	for _, param := range fn.Params {
		if !param.Type.Valid() {
			errs = append(errs, ValidationError{
				Field:   path + ".args." + param.Name,
				Message: fmt.Sprintf("invalid type %q for argument %q", param.Type, param.Name),
				Code:    ErrInvalidArgType,
			})
		}
	}

	if fn.Kind == contract.KindView {
		if len(fn.Set) > 0 || len(fn.Add) > 0 {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: "view functions cannot write storage",
				Code:    ErrViewWrites,
			})
		}
		if !fn.MinDeposit.IsZero() {
			errs = append(errs, ValidationError{
				Field:   path + ".min_deposit",
				Message: "view functions cannot require a deposit",
				Code:    ErrViewDeposit,
			})
		}
	}

	if fn.OwnerOnly {
		if _, ok := p.Storage["owner_id"]; !ok {
			errs = append(errs, ValidationError{
				Field:   path + ".owner_only",
				Message: "owner_only requires an owner_id storage key",
				Code:    ErrOwnerNoStorage,
			})
		}
	}

	type template struct{ field, text string }
	var templates []template
	for _, a := range append(append([]contract.Assignment{}, fn.Set...), fn.Add...) {
		if a.Template != "" {
			templates = append(templates, template{path + "." + a.Key, a.Template})
		}
	}
	for i, line := range fn.Logs {
		templates = append(templates, template{fmt.Sprintf("%s.log[%d]", path, i), line})
	}
	if fn.Returns != "" {
		templates = append(templates, template{path + ".returns", fn.Returns})
	}

	for _, tmpl := range templates {
		for _, name := range extractArgRefs(tmpl.text) {
			if _, ok := fn.Param(name); !ok {
				errs = append(errs, ValidationError{
					Field:   tmpl.field,
					Message: fmt.Sprintf("undeclared argument %q in template %q", name, tmpl.text),
					Code:    ErrUndeclaredArg,
				})
			}
		}
	}

	return errs
}

// extractArgRefs extracts argument names referenced from a template string.
func extractArgRefs(tmpl string) []string {
	matches := argRefPattern.FindAllStringSubmatch(tmpl, -1)
	names := make([]string, 0, len(matches))
	for _, match := range matches {
		if len(match) > 1 {
			names = append(names, match[1])
		}
	}
	return names
}
