package flash

// Op is a primitive operation on the device.
type Op int

// All the primitive operations.
const (
	OpRead Op = iota
	OpWrite
	OpErase
)

func (o Op) String() string {
	switch o {
	case OpRead:
		return "READ"
	case OpWrite:
		return "WRITE"
	case OpErase:
		return "ERASE"
	default:
		return "UNKNOWN"
	}
}

// An Executor carries out primitive operations for the translation layer.
//
// A READ moves a page into the executor's buffer, a WRITE drains the front of
// the buffer into a page, and an ERASE clears the whole block containing the
// address.
type Executor interface {
	Execute(op Op, addr Address)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(op Op, addr Address)

// Execute calls f(op, addr).
func (f ExecutorFunc) Execute(op Op, addr Address) {
	f(op, addr)
}

// Discard is an Executor that ignores every operation.
var Discard Executor = ExecutorFunc(func(Op, Address) {})
