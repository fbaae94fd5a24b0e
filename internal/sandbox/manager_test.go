package sandbox

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRoot builds a container root with two files and a two-entry
// revision journal.
func newTestRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("# project\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("notes\n"), 0o600))

	revlog := `{"id":"abc123","subject":"Initial import","files":{"README.md":"# project"}}
{"id":"def456","subject":"Add notes","files":{"notes.txt":"notes"}}
`
	require.NoError(t, os.WriteFile(filepath.Join(root, ".revlog.jsonl"), []byte(revlog), 0o600))
	return root
}

func TestCreate_RootNotFound(t *testing.T) {
	t.Parallel()

	m := NewManager()
	c, err := m.Create("agent-1", filepath.Join(t.TempDir(), "does-not-exist"))

	var rootErr *RootNotFoundError
	require.ErrorAs(t, err, &rootErr)
	assert.Nil(t, c)
	assert.Zero(t, m.Len(), "fail-closed create must not allocate a container")
}

func TestCreate_RootIsFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "plain-file")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	m := NewManager()
	_, err := m.Create("agent-1", path)

	var rootErr *RootNotFoundError
	require.ErrorAs(t, err, &rootErr)
}

func TestInvoke_ListLog(t *testing.T) {
	t.Parallel()

	m := NewManager()
	c, err := m.Create("agent-1", newTestRoot(t))
	require.NoError(t, err)
	require.NotEmpty(t, c.ID())

	out, err := m.Invoke(c.ID(), OpListLog)
	require.NoError(t, err)
	assert.Contains(t, out, "abc123 Initial import")
	assert.Contains(t, out, "def456 Add notes")
}

func TestInvoke_ReadLog(t *testing.T) {
	t.Parallel()

	m := NewManager()
	c, err := m.Create("agent-1", newTestRoot(t))
	require.NoError(t, err)

	out, err := m.Invoke(c.ID(), OpReadLog)
	require.NoError(t, err)
	assert.Contains(t, out, "revision abc123")
	assert.Contains(t, out, "Initial import")
}

func TestInvoke_ShowRevision(t *testing.T) {
	t.Parallel()

	m := NewManager()
	c, err := m.Create("agent-1", newTestRoot(t))
	require.NoError(t, err)

	// By id prefix.
	out, err := m.Invoke(c.ID(), OpShowRevision, "abc")
	require.NoError(t, err)
	assert.Contains(t, out, "revision abc123")
	assert.Contains(t, out, "--- README.md")

	// HEAD resolves to the newest entry.
	out, err = m.Invoke(c.ID(), OpShowRevision, "HEAD")
	require.NoError(t, err)
	assert.Contains(t, out, "revision def456")

	_, err = m.Invoke(c.ID(), OpShowRevision, "zzz")
	var revErr *RevisionNotFoundError
	assert.ErrorAs(t, err, &revErr)
}

func TestInvoke_OperationNotPermitted(t *testing.T) {
	t.Parallel()

	m := NewManager()
	c, err := m.Create("agent-1", newTestRoot(t))
	require.NoError(t, err)

	// Allow-list, not deny-list: execute-shell is invisible by default.
	_, err = m.Invoke(c.ID(), "execute-shell", "rm -rf /")
	var opErr *OperationNotPermittedError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "execute-shell", opErr.Operation)
}

func TestInvoke_AfterTeardown(t *testing.T) {
	t.Parallel()

	m := NewManager()
	c, err := m.Create("agent-1", newTestRoot(t))
	require.NoError(t, err)

	require.NoError(t, m.Teardown(c.ID()))

	_, err = m.Invoke(c.ID(), OpListLog)
	var closedErr *ContainerClosedError
	require.ErrorAs(t, err, &closedErr)
	assert.Equal(t, c.ID(), closedErr.ID)
}

func TestTeardown_UnknownID(t *testing.T) {
	t.Parallel()

	m := NewManager()
	err := m.Teardown("no-such-id")
	var notFound *NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestCreate_EmptyRootHasEmptyLog(t *testing.T) {
	t.Parallel()

	m := NewManager()
	c, err := m.Create("agent-1", t.TempDir())
	require.NoError(t, err)

	out, err := m.Invoke(c.ID(), OpListLog)
	require.NoError(t, err)
	assert.Empty(t, out)
}
