package scenario

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDuplicateKey means a key was registered twice in one builder.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrEmptyKey means an account or contract key was empty.
	ErrEmptyKey = errors.New("empty key")

	// ErrNotFound is matched by every *NotFoundError.
	ErrNotFound = errors.New("not found")

	// ErrTargetNotFound is matched by every *TargetError.
	ErrTargetNotFound = errors.New("target not found")

	// ErrWrongOutcome is matched by every *KindMismatchError.
	ErrWrongOutcome = errors.New("wrong outcome kind")

	// ErrIndexOutOfRange is returned by Ledger.At for a bad position.
	ErrIndexOutOfRange = errors.New("ledger index out of range")

	// ErrStateTaken is returned when the state of a ledger or failed batch
	// has already been taken.
	ErrStateTaken = errors.New("state already taken")

	// ErrBuilderConsumed is returned by a Builder after Provision.
	ErrBuilderConsumed = errors.New("builder already provisioned")

	// ErrStateConsumed is the panic value for using a State that is owned
	// by a step or a ledger.
	ErrStateConsumed = errors.New("state is owned elsewhere")

	// ErrStepConsumed is the panic value for using a Step after Chain or
	// Execute.
	ErrStepConsumed = errors.New("step already chained")
)

// ConfigError is a caller mistake detected before any network activity.
type ConfigError struct {
	Op  string // "register account", "register contract"
	Key string
	// Existing is "account" or "contract" for duplicate keys.
	Existing string
	Err      error
}

func (e *ConfigError) Error() string {
	if e.Existing != "" {
		return fmt.Sprintf("%s %q: %v (already registered as %s)", e.Op, e.Key, e.Err, e.Existing)
	}
	return fmt.Sprintf("%s %q: %v", e.Op, e.Key, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NotFoundError reports a lookup of an unknown account, contract or label.
type NotFoundError struct {
	What string // "account", "contract" or "label"
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.What, e.Key)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// Target names one unresolved step target.
type Target struct {
	Role string // "account" or "contract"
	Key  string
}

func (t Target) String() string {
	return fmt.Sprintf("%s %q", t.Role, t.Key)
}

// TargetError reports that a step's required account and/or contract is
// not in the state at dispatch time.
type TargetError struct {
	Kind    Kind
	Missing []Target
}

func (e *TargetError) Error() string {
	parts := make([]string, len(e.Missing))
	for i, t := range e.Missing {
		parts[i] = t.String()
	}
	return fmt.Sprintf("%s: target not found: %s", e.Kind, strings.Join(parts, ", "))
}

func (e *TargetError) Unwrap() error {
	return ErrTargetNotFound
}

// StepError aborts a batch. It names the failing step and carries the
// drained State so the caller can keep using the provisioned handles.
type StepError struct {
	Key      Key
	Position int
	Kind     Kind
	Function string
	Err      error

	state *State
}

func (e *StepError) Error() string {
	name := e.Function
	if e.Kind == KindViewAccount {
		name = "account"
	}
	if label, ok := e.Key.Label(); ok {
		return fmt.Sprintf("step %d (label %q) %s %s: %v", e.Position, label, e.Kind, name, e.Err)
	}
	return fmt.Sprintf("step %d %s %s: %v", e.Position, e.Kind, name, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// TakeState returns the State of the aborted batch. It succeeds once.
func (e *StepError) TakeState() (*State, error) {
	if e.state == nil {
		return nil, ErrStateTaken
	}
	st := e.state
	e.state = nil
	st.release()
	return st, nil
}

// Phase names a provisioning stage.
type Phase string

// Provisioning phases.
const (
	PhaseConnect      Phase = "connect"
	PhaseRoot         Phase = "root"
	PhaseCreate       Phase = "create"
	PhaseReadArtifact Phase = "read-artifact"
	PhaseDeploy       Phase = "deploy"
)

// ProvisionError aborts provisioning. No partial State is returned.
type ProvisionError struct {
	Phase Phase
	Key   string // empty for connect and root
	Err   error
}

func (e *ProvisionError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("provision: %s: %v", e.Phase, e.Err)
	}
	return fmt.Sprintf("provision: %s %q: %v", e.Phase, e.Key, e.Err)
}

func (e *ProvisionError) Unwrap() error {
	return e.Err
}

// KindMismatchError is returned by an Outcome accessor that does not apply
// to the outcome's variant.
type KindMismatchError struct {
	Method string
	Got    OutcomeKind
}

func (e *KindMismatchError) Error() string {
	return fmt.Sprintf("%s is not available for %s outcomes", e.Method, e.Got)
}

func (e *KindMismatchError) Unwrap() error {
	return ErrWrongOutcome
}

// IsConfigError reports whether err is a caller configuration mistake.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsNotFound reports whether err is a lookup failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsTargetError reports whether err is a step target resolution failure.
func IsTargetError(err error) bool {
	return errors.Is(err, ErrTargetNotFound)
}

// StateFromError takes the State out of a failed batch error.
func StateFromError(err error) (*State, bool) {
	var se *StepError
	if !errors.As(err, &se) {
		return nil, false
	}
	st, terr := se.TakeState()
	if terr != nil {
		return nil, false
	}
	return st, true
}
