package lattice

import (
	"fmt"

	"github.com/modgate-dev/modgate/internal/clearance"
)

// UnknownFeatureError indicates no layer owns the requested feature.
type UnknownFeatureError struct {
	Feature string
}

func (e *UnknownFeatureError) Error() string {
	return fmt.Sprintf("unknown feature: %s", e.Feature)
}

// InsufficientClearanceError indicates the caller's clearance sits below
// the owning layer's threshold. It carries both levels so the denial can
// be reproduced without re-running the check.
type InsufficientClearanceError struct {
	Feature  string
	Required clearance.Level
	Caller   clearance.Level
}

func (e *InsufficientClearanceError) Error() string {
	return fmt.Sprintf("feature %s requires clearance %s, caller holds %s",
		e.Feature, e.Required, e.Caller)
}

// GuardRejectedError indicates the feature's guard expression evaluated
// to false for this caller.
type GuardRejectedError struct {
	Feature string
	Guard   string
}

func (e *GuardRejectedError) Error() string {
	return fmt.Sprintf("feature %s rejected by guard %q", e.Feature, e.Guard)
}

// DuplicateFeatureError is a construction-time configuration error: a
// feature name registered in more than one layer. The process refuses to
// start rather than silently picking a layer.
type DuplicateFeatureError struct {
	Feature     string
	FirstLayer  string
	SecondLayer string
}

func (e *DuplicateFeatureError) Error() string {
	return fmt.Sprintf("feature %s registered in both layer %s and layer %s",
		e.Feature, e.FirstLayer, e.SecondLayer)
}

// NoActionError indicates an authorized feature has no bound action to run.
type NoActionError struct {
	Feature string
}

func (e *NoActionError) Error() string {
	return fmt.Sprintf("feature %s has no bound action", e.Feature)
}
