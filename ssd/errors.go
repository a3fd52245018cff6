package ssd

import (
	"fmt"

	"github.com/sarchlab/ftlsim/flash"
)

// A ProtocolViolation means the translation layer issued an operation the
// flash cannot carry out. It is raised as a panic since it is a bug in the
// translation layer, not a condition to recover from.
type ProtocolViolation struct {
	Op     flash.Op
	Addr   flash.Address
	Reason string
}

func (v *ProtocolViolation) Error() string {
	return fmt.Sprintf("protocol violation: %s %s: %s", v.Op, v.Addr, v.Reason)
}

func violate(op flash.Op, addr flash.Address, format string, args ...interface{}) {
	panic(&ProtocolViolation{
		Op:     op,
		Addr:   addr,
		Reason: fmt.Sprintf(format, args...),
	})
}
