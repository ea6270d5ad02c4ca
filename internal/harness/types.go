package harness

import "github.com/roach88/firanno/internal/ir"

// TraceEvent records one construction request made by a scenario step.
type TraceEvent struct {
	Step   int      `json:"step"`
	Kind   string   `json:"kind"`
	Params []string `json:"params,omitempty"`
	Target string   `json:"target,omitempty"`
	Seq    int64    `json:"seq,omitempty"`
	New    bool     `json:"new"`
	Error  string   `json:"error,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	Pass bool `json:"pass"`

	// Trace contains every construction request in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// StorageCount is the number of storages in the context after the steps.
	StorageCount int `json:"storage_count"`

	// Handles maps step names to the handle the step produced last.
	Handles map[string]ir.Annotation `json:"-"`

	// Targeted lists every successfully built annotation with its target.
	Targeted []ir.Targeted `json:"-"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Trace:   []TraceEvent{},
		Errors:  []string{},
		Handles: make(map[string]ir.Annotation),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends an event to the trace.
func (r *Result) AddTrace(event TraceEvent) {
	r.Trace = append(r.Trace, event)
}
