package ir

// ErrorField is the output field that marks a business error. An output
// carrying it is an ordinary record; rules match on it like any other field.
const ErrorField = "error"

// ActionRecord is the immutable trace of one completed action. It is the
// sole trigger of rule evaluation.
type ActionRecord struct {
	ID     string    `json:"id"`
	Flow   string    `json:"flow"`
	Seq    int64     `json:"seq"`
	Depth  int       `json:"depth"`
	Action ActionRef `json:"action"`
	Input  IRObject  `json:"input"`
	Output IRObject  `json:"output"`

	// Cause is the id of the record whose rule firing invoked this action,
	// empty for external stimuli. Rule names that firing.
	Cause string `json:"cause,omitempty"`
	Rule  string `json:"rule,omitempty"`
}

// IsError reports whether the output is a business error.
func (r ActionRecord) IsError() bool {
	_, ok := r.Output[ErrorField]
	return ok
}

// IsRoot reports whether the record is an external stimulus.
func (r ActionRecord) IsRoot() bool {
	return r.Cause == ""
}

// ErrorOutput builds a business error output.
func ErrorOutput(msg string) IRObject {
	return IRObject{ErrorField: IRString(msg)}
}
