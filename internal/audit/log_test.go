package audit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEntry(decision string) Entry {
	return Entry{
		Caller:    "cli",
		Clearance: "controlled",
		Feature:   "submit-block",
		Decision:  decision,
		Reason:    "test reason",
	}
}

func TestRecord_ProducesValidChain(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "audit.jsonl")
	log, err := Open(path)
	require.NoError(t, err)

	for range 5 {
		require.NoError(t, log.Record(testEntry(DecisionGranted)))
	}
	require.NoError(t, log.Close())

	result := Verify(path)
	assert.True(t, result.Valid, "chain error at line %d: %s", result.ErrorLine, result.Error)
	assert.Equal(t, 5, result.Lines)
}

func TestVerify_DetectsTampering(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "audit.jsonl")
	log, err := Open(path)
	require.NoError(t, err)
	for range 3 {
		require.NoError(t, log.Record(testEntry(DecisionDenied)))
	}
	require.NoError(t, log.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	lines[1] = strings.Replace(lines[1], `"denied"`, `"granted"`, 1)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600))

	result := Verify(path)
	assert.False(t, result.Valid)
	assert.Equal(t, 3, result.ErrorLine)
}

func TestOpen_ResumesExistingChain(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "audit.jsonl")

	log, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, log.Record(testEntry(DecisionGranted)))
	require.NoError(t, log.Close())

	// Reopen and continue the chain.
	log, err = Open(path)
	require.NoError(t, err)
	require.NoError(t, log.Record(testEntry(DecisionBlocked)))
	require.NoError(t, log.Close())

	result := Verify(path)
	assert.True(t, result.Valid, result.Error)
	assert.Equal(t, 2, result.Lines)
}
