package taskgroup

import (
	"errors"
	"strings"

	"github.com/NetPo4ki/go-taskgroup/sched"
)

// StateError reports misuse of the group lifecycle: re-opening, opening
// outside a task, closing twice, or registering a child at the wrong
// phase. It is returned synchronously to the misusing caller and never
// aggregated into a group outcome.
type StateError struct {
	Reason string
}

func (e *StateError) Error() string {
	return "taskgroup: " + e.Reason
}

// GroupError is the composite outcome of a group in which one or more
// children failed with ordinary errors. Errors holds every recorded
// failure in completion order, without deduplication or truncation.
type GroupError struct {
	Errors []error
}

func (e *GroupError) Error() string {
	var b strings.Builder
	b.WriteString("unhandled errors in task group")
	for i, err := range e.Errors {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		b.WriteString(err.Error())
	}
	return b.String()
}

// Unwrap exposes the cause list to errors.Is and errors.As.
func (e *GroupError) Unwrap() []error {
	return e.Errors
}

// IsSevere reports whether err belongs to the closed severe class:
// errors that force termination and always win over ordinary
// aggregation. The class is exactly [*sched.PanicError] and
// [sched.ErrShutdown].
func IsSevere(err error) bool {
	var pe *sched.PanicError
	if errors.As(err, &pe) {
		return true
	}
	return errors.Is(err, sched.ErrShutdown)
}
