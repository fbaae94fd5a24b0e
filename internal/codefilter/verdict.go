package codefilter

import (
	"fmt"
	"strings"
)

// Verdict classifies a payload or a single detected construct.
// Ordering matters: a higher verdict always dominates a lower one.
type Verdict int

const (
	// VerdictAllow means no risky construct was detected.
	VerdictAllow Verdict = iota
	// VerdictAuditRequired means execution needs explicit approval first.
	VerdictAuditRequired
	// VerdictBlock means execution must be refused.
	VerdictBlock
)

// String returns the verdict name used in logs and audit records.
func (v Verdict) String() string {
	switch v {
	case VerdictAllow:
		return "allow"
	case VerdictAuditRequired:
		return "audit-required"
	case VerdictBlock:
		return "block"
	default:
		return "unknown"
	}
}

// Construct identifies the kind of high-risk construct behind a finding.
type Construct string

const (
	// ConstructLoop is any loop statement.
	ConstructLoop Construct = "loop"
	// ConstructPossibleRecursion is a call whose target is declared in the
	// same payload and therefore cannot be locally proven non-recursive.
	ConstructPossibleRecursion Construct = "possible-recursion"
	// ConstructUnsafeMemory is raw-pointer or unchecked-memory usage.
	ConstructUnsafeMemory Construct = "unsafe-memory"
	// ConstructDirectSyscall is a direct system-call invocation.
	ConstructDirectSyscall Construct = "direct-syscall"
)

// Finding is one detected construct with its location and severity.
type Finding struct {
	Construct Construct
	Token     string
	Line      int
	Verdict   Verdict
}

// Result is the outcome of scanning one payload. It is consumed immediately
// by the caller and never persisted.
type Result struct {
	Findings []Finding
	Verdict  Verdict
}

// Blocked reports whether the payload must not execute.
func (r Result) Blocked() bool {
	return r.Verdict == VerdictBlock
}

// NeedsAudit reports whether execution requires explicit approval.
func (r Result) NeedsAudit() bool {
	return r.Verdict == VerdictAuditRequired
}

// Reason returns a human-readable summary sufficient to reproduce the
// decision without re-running the scan.
func (r Result) Reason() string {
	if len(r.Findings) == 0 {
		return "no risky constructs detected"
	}
	var b strings.Builder
	b.WriteString(r.Verdict.String())
	b.WriteByte(':')
	for _, f := range r.Findings {
		fmt.Fprintf(&b, " %s(%s@line %d)", f.Construct, f.Token, f.Line)
	}
	return b.String()
}
