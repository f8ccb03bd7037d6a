package x86gen

import "fmt"

// InternalError indicates a contract violation between the front end and
// the generator, or a broken invariant inside the generator itself: an
// unrecognized node kind, a register lock protocol violation, an exhausted
// register pool, or a division operand colliding with the fixed division
// registers. It is never user-recoverable; generation aborts with no
// partial output.
type InternalError struct {
	msg string
}

func (e InternalError) Error() string {
	return "x86gen: internal error: " + e.msg
}

// fatalf aborts the current translation. Translate recovers the panic and
// surfaces it as an InternalError.
func fatalf(format string, args ...any) {
	panic(InternalError{msg: fmt.Sprintf(format, args...)})
}
