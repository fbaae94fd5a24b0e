// Package lattice implements the ordered clearance layers that gate every
// feature invocation. Authorization is a pure decision function over the
// immutable layer table; running the bound action is the only side effect,
// and it happens strictly after the decision.
package lattice

import (
	"context"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/modgate-dev/modgate/internal/clearance"
)

// Action is the opaque executable bound to a feature. It receives the
// caller's payload and returns the feature's result.
type Action func(ctx context.Context, payload string) (string, error)

// GuardEnv is the evaluation environment for feature guard expressions.
type GuardEnv struct {
	Clearance string            `expr:"clearance"`
	Feature   string            `expr:"feature"`
	Attrs     map[string]string `expr:"attrs"`
}

// FeatureSpec declares one feature inside a layer.
type FeatureSpec struct {
	Name string
	// Guard is an optional boolean expression evaluated against GuardEnv
	// after the clearance check. Empty means no guard.
	Guard  string
	Action Action
}

// LayerSpec declares one clearance layer and the features it exposes.
type LayerSpec struct {
	ID        string
	Threshold clearance.Level
	Features  []FeatureSpec
}

type feature struct {
	name      string
	layerID   string
	threshold clearance.Level
	guardSrc  string
	guard     *vm.Program
	action    Action
}

// Lattice is the immutable feature table. Constructed once at process
// start; read-only lookups from many concurrent callers need no locking.
type Lattice struct {
	features map[string]*feature
	layers   []LayerSpec
}

// New builds a Lattice from static layer declarations. A feature name
// appearing in more than one layer is a configuration error and refuses
// construction. Guard expressions are compiled here so a malformed guard
// also fails at startup, not on first use.
func New(layers ...LayerSpec) (*Lattice, error) {
	l := &Lattice{
		features: make(map[string]*feature),
		layers:   layers,
	}

	for _, layer := range layers {
		if !layer.Threshold.Valid() {
			return nil, fmt.Errorf("layer %s: invalid clearance threshold %d", layer.ID, layer.Threshold)
		}
		for _, spec := range layer.Features {
			if existing, ok := l.features[spec.Name]; ok {
				return nil, &DuplicateFeatureError{
					Feature:     spec.Name,
					FirstLayer:  existing.layerID,
					SecondLayer: layer.ID,
				}
			}

			f := &feature{
				name:      spec.Name,
				layerID:   layer.ID,
				threshold: layer.Threshold,
				guardSrc:  spec.Guard,
				action:    spec.Action,
			}
			if spec.Guard != "" {
				program, err := expr.Compile(spec.Guard,
					expr.Env(GuardEnv{}),
					expr.AsBool())
				if err != nil {
					return nil, fmt.Errorf("layer %s feature %s: compile guard: %w", layer.ID, spec.Name, err)
				}
				f.guard = program
			}
			l.features[spec.Name] = f
		}
	}
	return l, nil
}

// Authorize decides whether caller may invoke the named feature. It is
// pure: no side effects, no I/O, safe from any number of goroutines. A
// nil return means granted; otherwise the error is one of
// UnknownFeatureError, InsufficientClearanceError, GuardRejectedError.
func (l *Lattice) Authorize(caller clearance.Level, featureName string, attrs map[string]string) error {
	f, ok := l.features[featureName]
	if !ok {
		return &UnknownFeatureError{Feature: featureName}
	}
	if !caller.AtLeast(f.threshold) {
		return &InsufficientClearanceError{
			Feature:  featureName,
			Required: f.threshold,
			Caller:   caller,
		}
	}
	if f.guard != nil {
		env := GuardEnv{
			Clearance: caller.String(),
			Feature:   featureName,
			Attrs:     attrs,
		}
		out, err := expr.Run(f.guard, env)
		if err != nil {
			return &GuardRejectedError{Feature: featureName, Guard: f.guardSrc}
		}
		if pass, ok := out.(bool); !ok || !pass {
			return &GuardRejectedError{Feature: featureName, Guard: f.guardSrc}
		}
	}
	return nil
}

// Invoke authorizes and then runs the feature's bound action. The denial
// path never touches the action.
func (l *Lattice) Invoke(ctx context.Context, caller clearance.Level, featureName string, attrs map[string]string, payload string) (string, error) {
	if err := l.Authorize(caller, featureName, attrs); err != nil {
		return "", err
	}
	f := l.features[featureName]
	if f.action == nil {
		return "", &NoActionError{Feature: featureName}
	}
	return f.action(ctx, payload)
}

// LayerOf reports which layer owns the feature and at what threshold.
func (l *Lattice) LayerOf(featureName string) (layerID string, threshold clearance.Level, ok bool) {
	f, found := l.features[featureName]
	if !found {
		return "", 0, false
	}
	return f.layerID, f.threshold, true
}

// Layers returns the layer declarations the lattice was built from.
func (l *Lattice) Layers() []LayerSpec {
	return l.layers
}
