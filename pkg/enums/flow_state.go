package enums

// FlowState is the customer-facing state of a payment submission.
type FlowState string

const (
	FlowStateIdle       FlowState = "idle"
	FlowStateSubmitting FlowState = "submitting"
	FlowStateSuccess    FlowState = "success"
	FlowStateFailure    FlowState = "failure"
)

// String implements fmt.Stringer.
func (f FlowState) String() string {
	return string(f)
}

// CanSubmit reports whether a new attempt may start from this state.
func (f FlowState) CanSubmit() bool {
	return f != FlowStateSubmitting
}
