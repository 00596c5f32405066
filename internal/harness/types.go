package harness

// TraceEvent is the recorded outcome of one executed step.
type TraceEvent struct {
	// Step is the position of the step in the batch.
	Step int `json:"step"`

	// Key is the ledger key: the label, or "#<step>" for unlabeled steps.
	Key string `json:"key"`

	Kind     string `json:"kind"`
	Function string `json:"function,omitempty"`

	// Account and Contract are resolved account ids.
	Account  string `json:"account,omitempty"`
	Contract string `json:"contract,omitempty"`

	Args    any    `json:"args,omitempty"`
	Deposit string `json:"deposit,omitempty"`

	// Success is set for calls only.
	Success *bool    `json:"success,omitempty"`
	Failure string   `json:"failure,omitempty"`
	Result  any      `json:"result,omitempty"`
	Logs    []string `json:"logs,omitempty"`

	// Balance is set for view_account steps, in N.
	Balance string `json:"balance,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass is true when the batch behaved as expected and every expect
	// clause and assertion matched.
	Pass bool `json:"pass"`

	// Trace holds one event per executed step, in batch order. It is empty
	// when the batch aborted.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Aborted is the error that stopped the batch, if any.
	Aborted string `json:"aborted,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step event.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
