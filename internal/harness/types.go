package harness

// StepRecord is the trace entry for one executed step.
type StepRecord struct {
	Step    int      `json:"step"`
	Mode    string   `json:"mode"`
	Token   string   `json:"token"`
	Query   string   `json:"query"`
	State   string   `json:"state,omitempty"` // empty when the query failed
	Results []string `json:"results"`
	Error   string   `json:"error,omitempty"` // error code
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all expect clauses and assertions match.
	Pass bool `json:"pass"`

	// Trace contains one record per step, in order.
	Trace []StepRecord `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []StepRecord{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddStep appends a step record to the trace.
func (r *Result) AddStep(rec StepRecord) {
	r.Trace = append(r.Trace, rec)
}
