package scenario

import (
	"fmt"
	"slices"
	"strconv"
)

// Key addresses an outcome in a Ledger: either an explicit label or the
// position of an unlabeled step within its batch. The two never compare
// equal, so the label "0" and position 0 are distinct keys.
type Key struct {
	label   string
	index   int
	labeled bool
}

// LabelKey returns the key for an explicit label.
func LabelKey(label string) Key {
	return Key{label: label, labeled: true}
}

// IndexKey returns the key for an unlabeled step at position i.
func IndexKey(i int) Key {
	return Key{index: i}
}

// Label returns the label of a label key.
func (k Key) Label() (string, bool) {
	return k.label, k.labeled
}

// Index returns the position of an index key.
func (k Key) Index() (int, bool) {
	return k.index, !k.labeled
}

func (k Key) String() string {
	if k.labeled {
		return strconv.Quote(k.label)
	}
	return "#" + strconv.Itoa(k.index)
}

// Ledger is the ordered result of one executed batch plus the State it ran
// against.
//
// Positions follow first insertion of each key. A label reused within a
// batch keeps its original position and holds the later outcome.
type Ledger struct {
	keys     []Key
	outcomes map[Key]*Outcome
	state    *State
}

func newLedger(st *State) *Ledger {
	return &Ledger{
		outcomes: make(map[Key]*Outcome),
		state:    st,
	}
}

func (l *Ledger) put(k Key, o *Outcome) {
	if _, ok := l.outcomes[k]; !ok {
		l.keys = append(l.keys, k)
	}
	l.outcomes[k] = o
}

// Get returns the outcome stored under label.
func (l *Ledger) Get(label string) (*Outcome, error) {
	o, ok := l.outcomes[LabelKey(label)]
	if !ok {
		return nil, &NotFoundError{What: "label", Key: label}
	}
	return o, nil
}

// At returns the outcome at position i in insertion order, labeled or not.
func (l *Ledger) At(i int) (*Outcome, error) {
	if i < 0 || i >= len(l.keys) {
		return nil, fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, i, len(l.keys))
	}
	return l.outcomes[l.keys[i]], nil
}

// Lookup returns the outcome stored under k.
func (l *Ledger) Lookup(k Key) (*Outcome, bool) {
	o, ok := l.outcomes[k]
	return o, ok
}

// MustGet is Get for tests; it panics when the label is missing.
func (l *Ledger) MustGet(label string) *Outcome {
	o, err := l.Get(label)
	if err != nil {
		panic(err)
	}
	return o
}

// MustAt is At for tests; it panics when i is out of range.
func (l *Ledger) MustAt(i int) *Outcome {
	o, err := l.At(i)
	if err != nil {
		panic(err)
	}
	return o
}

// Len returns the number of distinct keys.
func (l *Ledger) Len() int {
	return len(l.keys)
}

// Keys returns the keys in insertion order.
func (l *Ledger) Keys() []Key {
	return slices.Clone(l.keys)
}

// Outcomes returns the outcomes in insertion order.
func (l *Ledger) Outcomes() []*Outcome {
	out := make([]*Outcome, len(l.keys))
	for i, k := range l.keys {
		out[i] = l.outcomes[k]
	}
	return out
}

// TakeState hands back the State the batch ran against. It succeeds once;
// the outcomes stay readable afterwards.
func (l *Ledger) TakeState() (*State, error) {
	if l.state == nil {
		return nil, ErrStateTaken
	}
	st := l.state
	l.state = nil
	st.release()
	return st, nil
}

// MustTakeState is TakeState that panics on a second call.
func (l *Ledger) MustTakeState() *State {
	st, err := l.TakeState()
	if err != nil {
		panic(fmt.Errorf("scenario: Ledger.TakeState: %w", err))
	}
	return st
}
