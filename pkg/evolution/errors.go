package evolution

import "fmt"

// StepFailureError reports the first step or transformation that failed
// during execution. The transaction has been rolled back by the time the
// caller sees it.
type StepFailureError struct {
	PlanID      string
	StepOrder   int
	Description string
	Err         error
}

func (e *StepFailureError) Error() string {
	return fmt.Sprintf("plan %s: step %d (%s) failed: %v",
		e.PlanID, e.StepOrder, e.Description, e.Err)
}

func (e *StepFailureError) Unwrap() error {
	return e.Err
}
