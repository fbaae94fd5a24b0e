package lattice

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modgate-dev/modgate/internal/clearance"
)

func newTestLattice(t *testing.T) *Lattice {
	t.Helper()

	l, err := New(
		LayerSpec{
			ID:        "open",
			Threshold: clearance.LevelPublic,
			Features: []FeatureSpec{
				{Name: "status"},
			},
		},
		LayerSpec{
			ID:        "operators",
			Threshold: clearance.LevelControlled,
			Features: []FeatureSpec{
				{Name: "read-log"},
				{Name: "submit", Guard: `attrs["team"] == "ops"`},
			},
		},
		LayerSpec{
			ID:        "core",
			Threshold: clearance.LevelCritical,
			Features: []FeatureSpec{
				{Name: "critical-feature"},
			},
		},
	)
	require.NoError(t, err)
	return l
}

func TestAuthorize_Granted(t *testing.T) {
	t.Parallel()

	l := newTestLattice(t)
	assert.NoError(t, l.Authorize(clearance.LevelPublic, "status", nil))
	assert.NoError(t, l.Authorize(clearance.LevelControlled, "read-log", nil))
}

func TestAuthorize_UnknownFeature(t *testing.T) {
	t.Parallel()

	l := newTestLattice(t)
	err := l.Authorize(clearance.LevelCritical, "launch-missiles", nil)

	var unknown *UnknownFeatureError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "launch-missiles", unknown.Feature)
}

func TestAuthorize_InsufficientClearance(t *testing.T) {
	t.Parallel()

	l := newTestLattice(t)
	err := l.Authorize(clearance.LevelControlled, "critical-feature", nil)

	var denied *InsufficientClearanceError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, clearance.LevelCritical, denied.Required)
	assert.Equal(t, clearance.LevelControlled, denied.Caller)
}

func TestAuthorize_Monotonic(t *testing.T) {
	t.Parallel()

	l := newTestLattice(t)
	levels := clearance.Levels()
	features := []string{"status", "read-log", "critical-feature"}

	// Anything grantable at level a stays grantable at every b >= a.
	for _, f := range features {
		for i, a := range levels {
			if l.Authorize(a, f, nil) != nil {
				continue
			}
			for _, b := range levels[i:] {
				assert.NoError(t, l.Authorize(b, f, nil),
					"feature %s granted at %s but denied at %s", f, a, b)
			}
		}
	}
}

func TestAuthorize_Guard(t *testing.T) {
	t.Parallel()

	l := newTestLattice(t)

	assert.NoError(t, l.Authorize(clearance.LevelControlled, "submit",
		map[string]string{"team": "ops"}))

	err := l.Authorize(clearance.LevelCritical, "submit",
		map[string]string{"team": "research"})
	var rejected *GuardRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, "submit", rejected.Feature)

	// Missing attrs reject rather than grant.
	err = l.Authorize(clearance.LevelCritical, "submit", nil)
	assert.ErrorAs(t, err, &rejected)
}

func TestNew_DuplicateFeature(t *testing.T) {
	t.Parallel()

	_, err := New(
		LayerSpec{ID: "a", Threshold: clearance.LevelPublic, Features: []FeatureSpec{{Name: "status"}}},
		LayerSpec{ID: "b", Threshold: clearance.LevelCritical, Features: []FeatureSpec{{Name: "status"}}},
	)

	var dup *DuplicateFeatureError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "status", dup.Feature)
	assert.Equal(t, "a", dup.FirstLayer)
	assert.Equal(t, "b", dup.SecondLayer)
}

func TestNew_BadGuard(t *testing.T) {
	t.Parallel()

	_, err := New(LayerSpec{
		ID:        "a",
		Threshold: clearance.LevelPublic,
		Features:  []FeatureSpec{{Name: "status", Guard: "this is not an expression ((("}},
	})
	assert.Error(t, err)
}

func TestInvoke_RunsActionOnlyWhenGranted(t *testing.T) {
	t.Parallel()

	ran := false
	l, err := New(LayerSpec{
		ID:        "operators",
		Threshold: clearance.LevelControlled,
		Features: []FeatureSpec{{
			Name: "echo",
			Action: func(_ context.Context, payload string) (string, error) {
				ran = true
				return "echo:" + payload, nil
			},
		}},
	})
	require.NoError(t, err)

	_, err = l.Invoke(context.Background(), clearance.LevelPublic, "echo", nil, "hi")
	var denied *InsufficientClearanceError
	require.ErrorAs(t, err, &denied)
	assert.False(t, ran, "denied invoke must not touch the action")

	out, err := l.Invoke(context.Background(), clearance.LevelPrivileged, "echo", nil, "hi")
	require.NoError(t, err)
	assert.Equal(t, "echo:hi", out)
	assert.True(t, ran)
}

func TestInvoke_NoAction(t *testing.T) {
	t.Parallel()

	l := newTestLattice(t)
	_, err := l.Invoke(context.Background(), clearance.LevelPublic, "status", nil, "")

	var noAction *NoActionError
	assert.ErrorAs(t, err, &noAction)
}

func TestLayerOf(t *testing.T) {
	t.Parallel()

	l := newTestLattice(t)

	layerID, threshold, ok := l.LayerOf("critical-feature")
	require.True(t, ok)
	assert.Equal(t, "core", layerID)
	assert.Equal(t, clearance.LevelCritical, threshold)

	_, _, ok = l.LayerOf("nope")
	assert.False(t, ok)
}
