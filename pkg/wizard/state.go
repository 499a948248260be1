package wizard

// StepState is the derived state of a step within one request.
type StepState int

const (
	// Pending means the runner has not reached the step.
	Pending StepState = iota

	// AwaitingSubmission means the step is current and has no accepted submission.
	AwaitingSubmission

	// Failed means the step was submitted and recorded errors.
	Failed

	// Complete means the step's completion condition holds.
	Complete

	// Skipped means the step counts as complete because the operator already moved past it.
	Skipped
)

// String returns the state name.
func (s StepState) String() string {
	switch s {
	case Pending:
		return "pending"
	case AwaitingSubmission:
		return "awaiting_submission"
	case Failed:
		return "failed"
	case Complete:
		return "complete"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Done reports whether the runner may advance past a step in this state.
func (s StepState) Done() bool {
	return s == Complete || s == Skipped
}
