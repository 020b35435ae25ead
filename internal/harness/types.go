package harness

// TraceEvent records one subscriber notification observed during a
// scenario run. Seq is the 1-based notification order.
type TraceEvent struct {
	Event  string `json:"event"` // "update" or "remove"
	Node   string `json:"node"`
	Packet string `json:"packet"` // packet id
	Kind   string `json:"kind"`   // payload kind
	Seq    int64  `json:"seq"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall scenario success.
	// True if all assertions hold.
	Pass bool `json:"pass"`

	// Trace contains every subscriber notification in delivery order.
	// Used for assertions and golden comparison.
	Trace []TraceEvent `json:"trace"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for scenario execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
