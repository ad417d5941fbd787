package modhost

import "strconv"

// Status is the code returned by every module entry point.
type Status uint32

const (
	// StatusOK is the only success value.
	StatusOK Status = 0

	// StatusTrap is reported when a call did not return normally
	// (a WebAssembly trap). The error carrying it has the trap as Cause;
	// a module may also return this value itself.
	StatusTrap Status = 0xFFFFFFFF
)

// OK reports whether s signals success.
func (s Status) OK() bool {
	return s == StatusOK
}

// String renders the status as a decimal number.
func (s Status) String() string {
	return strconv.FormatUint(uint64(s), 10)
}
