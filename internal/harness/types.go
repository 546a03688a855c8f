package harness

// TraceStatement is one statement the engine sent.
type TraceStatement struct {
	Cypher  string         `json:"cypher"`
	Params  map[string]any `json:"params,omitempty"`
	Numbers []int64        `json:"numbers,omitempty"`
}

// TraceEvent records one scenario step.
type TraceEvent struct {
	Step       int              `json:"step"`
	Function   string           `json:"function"`
	Statements []TraceStatement `json:"statements"`
	Rows       int              `json:"rows"`
	ErrorCode  string           `json:"error_code,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace has one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors is empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
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

// Statements returns every statement of the trace in order.
func (r *Result) Statements() []TraceStatement {
	var all []TraceStatement
	for _, event := range r.Trace {
		all = append(all, event.Statements...)
	}
	return all
}
