// Package codefilter performs static pre-execution classification of
// submitted code or command payloads. The scan is deliberately conservative
// and line-based, not a parser: flagging safe code is acceptable, missing a
// block-worthy construct is not, so every ambiguity resolves toward the
// stricter verdict.
package codefilter

import (
	"regexp"
	"strings"
)

// loopPattern matches loop keywords at a token boundary.
var loopPattern = regexp.MustCompile(`(^|[^\w])(for|while|loop)\s*[({\s]`)

// declPattern captures function names declared inside the payload itself.
// A call to any of these cannot be locally proven non-recursive.
var declPattern = regexp.MustCompile(`(?:\bfn\b|\bfunc\b|\bdef\b)\s+([A-Za-z_]\w*)`)

// callPattern captures call expressions.
var callPattern = regexp.MustCompile(`([A-Za-z_]\w*)\s*\(`)

// blockTokens are unsafe-memory or direct-syscall constructs. Presence of
// any of them blocks execution regardless of the user's clearance; the
// feature threshold never overrides a block.
var blockTokens = []struct {
	construct Construct
	token     string
}{
	{ConstructUnsafeMemory, "unsafe"},
	{ConstructUnsafeMemory, "transmute"},
	{ConstructUnsafeMemory, "*mut"},
	{ConstructUnsafeMemory, "*const"},
	{ConstructUnsafeMemory, "asm!"},
	{ConstructUnsafeMemory, "__asm"},
	{ConstructUnsafeMemory, "mem::forget"},
	{ConstructUnsafeMemory, "uninitialized"},
	{ConstructDirectSyscall, "syscall("},
	{ConstructDirectSyscall, "execve"},
	{ConstructDirectSyscall, "fork("},
	{ConstructDirectSyscall, "vfork"},
	{ConstructDirectSyscall, "clone("},
	{ConstructDirectSyscall, "mount("},
	{ConstructDirectSyscall, "ptrace"},
	{ConstructDirectSyscall, "setuid"},
}

// callKeywords are tokens callPattern may capture that are statements, not
// call targets.
var callKeywords = map[string]bool{
	"for": true, "while": true, "loop": true, "if": true, "else": true,
	"match": true, "switch": true, "return": true, "fn": true, "func": true,
	"def": true,
}

// Scanner classifies payloads. The zero value is not usable; construct one
// with New so pattern extensions from configuration are applied.
type Scanner struct {
	extraBlock []string
	extraAudit []string
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithBlockedTokens adds configuration-supplied tokens whose presence
// blocks execution.
func WithBlockedTokens(tokens []string) Option {
	return func(s *Scanner) {
		s.extraBlock = append(s.extraBlock, tokens...)
	}
}

// WithAuditTokens adds configuration-supplied tokens whose presence
// requires audit approval.
func WithAuditTokens(tokens []string) Option {
	return func(s *Scanner) {
		s.extraAudit = append(s.extraAudit, tokens...)
	}
}

// New creates a Scanner.
func New(opts ...Option) *Scanner {
	s := &Scanner{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan classifies a payload. The overall verdict is the most severe of any
// individual finding: Block > AuditRequired > Allow.
func (s *Scanner) Scan(payload string) Result {
	result := Result{Verdict: VerdictAllow}

	declared := map[string]bool{}
	for _, m := range declPattern.FindAllStringSubmatch(payload, -1) {
		declared[m[1]] = true
	}

	for i, line := range strings.Split(payload, "\n") {
		lineNo := i + 1

		for _, bt := range blockTokens {
			if strings.Contains(line, bt.token) {
				result.add(Finding{
					Construct: bt.construct,
					Token:     bt.token,
					Line:      lineNo,
					Verdict:   VerdictBlock,
				})
			}
		}
		for _, token := range s.extraBlock {
			if strings.Contains(line, token) {
				result.add(Finding{
					Construct: ConstructUnsafeMemory,
					Token:     token,
					Line:      lineNo,
					Verdict:   VerdictBlock,
				})
			}
		}

		if m := loopPattern.FindStringSubmatch(line); m != nil {
			result.add(Finding{
				Construct: ConstructLoop,
				Token:     m[2],
				Line:      lineNo,
				Verdict:   VerdictAuditRequired,
			})
		}
		for _, token := range s.extraAudit {
			if strings.Contains(line, token) {
				result.add(Finding{
					Construct: ConstructLoop,
					Token:     token,
					Line:      lineNo,
					Verdict:   VerdictAuditRequired,
				})
			}
		}

		// Strip declarations first so `fn add(` is not itself taken for a
		// call to add.
		callLine := declPattern.ReplaceAllString(line, "")
		for _, m := range callPattern.FindAllStringSubmatch(callLine, -1) {
			callee := m[1]
			if callKeywords[callee] {
				continue
			}
			// A locally declared callee may call itself, directly or through
			// another declared function. Without a call graph that is all we
			// can prove, so flag it.
			if declared[callee] {
				result.add(Finding{
					Construct: ConstructPossibleRecursion,
					Token:     callee,
					Line:      lineNo,
					Verdict:   VerdictAuditRequired,
				})
			}
		}
	}

	return result
}

// add records a finding and raises the overall verdict if needed.
func (r *Result) add(f Finding) {
	r.Findings = append(r.Findings, f)
	if f.Verdict > r.Verdict {
		r.Verdict = f.Verdict
	}
}
