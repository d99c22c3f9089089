package sched

import (
	"fmt"
	"runtime"
)

// PanicError wraps a panic recovered from a task body together with the
// goroutine stack captured at the point of the panic. It belongs to the
// severe error class: a group that records one reports it alone.
type PanicError struct {
	// Value is the original value passed to panic().
	Value any

	// Stack is the goroutine stack trace at the point of panic.
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v\n\n%s", e.Value, e.Stack)
}

// NewPanicError captures the current goroutine's stack and wraps v.
// Call it from inside the deferred recover handler.
func NewPanicError(v any) *PanicError {
	// 8 KiB covers most traces; runtime.Stack truncates gracefully.
	buf := make([]byte, 8192)
	n := runtime.Stack(buf, false)
	return &PanicError{
		Value: v,
		Stack: string(buf[:n]),
	}
}
