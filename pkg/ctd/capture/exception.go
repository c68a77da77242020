// exception.go classifies exception codes and defines the record delivered
// by the host.

package capture

import "fmt"

// ExceptionCode is a host exception status code.
type ExceptionCode uint32

// Fatal exception codes.
const (
	AccessViolation       ExceptionCode = 0xC0000005
	InPageError           ExceptionCode = 0xC0000006
	InvalidHandle         ExceptionCode = 0xC0000008
	IllegalInstruction    ExceptionCode = 0xC000001D
	IntegerDivideByZero   ExceptionCode = 0xC0000094
	IntegerOverflow       ExceptionCode = 0xC0000095
	PrivilegedInstruction ExceptionCode = 0xC0000096
	StackOverflow         ExceptionCode = 0xC00000FD
	HeapCorruption        ExceptionCode = 0xC0000374
	StackBufferOverrun    ExceptionCode = 0xC0000409
)

// IsFatal reports whether the code is one the handler intercepts.
func (c ExceptionCode) IsFatal() bool {
	switch c {
	case AccessViolation, InPageError, InvalidHandle, IllegalInstruction,
		IntegerDivideByZero, IntegerOverflow, PrivilegedInstruction,
		StackOverflow, HeapCorruption, StackBufferOverrun:
		return true
	}
	return false
}

// String returns the symbolic name of the code.
func (c ExceptionCode) String() string {
	switch c {
	case AccessViolation:
		return "ACCESS_VIOLATION"
	case InPageError:
		return "IN_PAGE_ERROR"
	case InvalidHandle:
		return "INVALID_HANDLE"
	case IllegalInstruction:
		return "ILLEGAL_INSTRUCTION"
	case IntegerDivideByZero:
		return "INTEGER_DIVIDE_BY_ZERO"
	case IntegerOverflow:
		return "INTEGER_OVERFLOW"
	case PrivilegedInstruction:
		return "PRIVILEGED_INSTRUCTION"
	case StackOverflow:
		return "STACK_OVERFLOW"
	case HeapCorruption:
		return "HEAP_CORRUPTION"
	case StackBufferOverrun:
		return "STACK_BUFFER_OVERRUN"
	}
	return "UNKNOWN_EXCEPTION"
}

// Hex renders the code as 0x followed by 8 upper-case hex digits.
func (c ExceptionCode) Hex() string {
	return fmt.Sprintf("0x%08X", uint32(c))
}

// Context is the register state at the fault.
type Context struct {
	IP uint64
	FP uint64
	SP uint64
}

// ExceptionRecord is what the host delivers to the handler.
type ExceptionRecord struct {
	Code    ExceptionCode
	Address uint64
	Context Context
}

// Disposition tells the host how to proceed after the handler returns.
type Disposition int32

// ContinueSearch passes the exception on to the next handler in the chain.
const ContinueSearch Disposition = 0
