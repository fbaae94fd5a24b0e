package abi

import "fmt"

// SymbolNotFoundError indicates the target module does not export the
// requested entry point.
type SymbolNotFoundError struct {
	Symbol string
}

func (e *SymbolNotFoundError) Error() string {
	return fmt.Sprintf("symbol not found: %s", e.Symbol)
}

// MarshalError indicates arguments could not be converted to the boundary
// representation, or the module violated the memory protocol. Raised before
// any entry-point call when the fault is on the argument side.
type MarshalError struct {
	Reason string
}

func (e *MarshalError) Error() string {
	return fmt.Sprintf("marshal error: %s", e.Reason)
}

// CallFailedError carries a module-reported failure code, surfaced verbatim.
type CallFailedError struct {
	Symbol string
	Code   int32
}

func (e *CallFailedError) Error() string {
	return fmt.Sprintf("call %s failed with code %d", e.Symbol, e.Code)
}
