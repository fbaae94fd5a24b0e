package host

import "fmt"

// UnsafeOperationError indicates the filter blocked the payload. Fatal
// to this execution request; the block is journaled before it surfaces.
type UnsafeOperationError struct {
	Feature string
	Reason  string
}

func (e *UnsafeOperationError) Error() string {
	return fmt.Sprintf("unsafe operation detected for %s:%s", e.Feature, e.Reason)
}

// AuditRequiredError indicates the payload needs operator approval the
// request did not carry.
type AuditRequiredError struct {
	Feature string
	Reason  string
}

func (e *AuditRequiredError) Error() string {
	return fmt.Sprintf("feature %s requires audit approval:%s", e.Feature, e.Reason)
}

// NoContainerError indicates a sandbox-routed request named no container.
type NoContainerError struct {
	Feature string
}

func (e *NoContainerError) Error() string {
	return fmt.Sprintf("feature %s routes to a sandbox but the request names no container", e.Feature)
}
