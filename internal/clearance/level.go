// Package clearance defines the ordered clearance levels used by the
// capability lattice. Levels form a total order: a caller holding a higher
// level is always permitted everything a lower level permits.
package clearance

import "fmt"

// Level is a caller's clearance. Comparison is the only operation the
// lattice needs; the zero value is LevelPublic.
type Level int

const (
	// LevelPublic is the unauthenticated baseline.
	LevelPublic Level = iota
	// LevelControlled covers authenticated, rate-limited callers.
	LevelControlled
	// LevelPrivileged covers operators and service accounts.
	LevelPrivileged
	// LevelCritical covers administrative access to native code paths.
	LevelCritical
)

// levelNames maps levels to their canonical configuration spelling.
var levelNames = map[Level]string{
	LevelPublic:     "public",
	LevelControlled: "controlled",
	LevelPrivileged: "privileged",
	LevelCritical:   "critical",
}

// String returns the canonical name of the level.
func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// AtLeast reports whether l grants everything required grants.
func (l Level) AtLeast(required Level) bool {
	return l >= required
}

// Valid reports whether l is one of the defined levels.
func (l Level) Valid() bool {
	_, ok := levelNames[l]
	return ok
}

// Parse converts a configuration string into a Level.
func Parse(s string) (Level, error) {
	for level, name := range levelNames {
		if name == s {
			return level, nil
		}
	}
	return LevelPublic, fmt.Errorf("unknown clearance level %q (expected public, controlled, privileged or critical)", s)
}

// Levels returns all defined levels in ascending order.
func Levels() []Level {
	return []Level{LevelPublic, LevelControlled, LevelPrivileged, LevelCritical}
}
