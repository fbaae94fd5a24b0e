package registry

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modgate-dev/modgate/internal/abi"
)

// emptyModule is the smallest valid module: magic and version, no
// sections. It loads cleanly and exports nothing.
var emptyModule = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()

	r, err := New(context.Background(),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close(context.Background()) })
	return r
}

func writeModule(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, content, 0o600))
	return path
}

func TestLoad_Idempotent(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	path := writeModule(t, t.TempDir(), "echo.wasm", emptyModule)

	first, err := r.Load(context.Background(), "echo", path)
	require.NoError(t, err)

	second, err := r.Load(context.Background(), "echo", path)
	require.NoError(t, err)

	assert.Same(t, first, second, "second load returns the existing handle")
	assert.Equal(t, 1, r.Len())
}

func TestLoad_ConcurrentSameName(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	path := writeModule(t, t.TempDir(), "echo.wasm", emptyModule)

	const loaders = 8
	var (
		wg      sync.WaitGroup
		handles [loaders]*Handle
		errs    [loaders]error
	)
	for i := range loaders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			handles[i], errs[i] = r.Load(context.Background(), "echo", path)
		}()
	}
	wg.Wait()

	// Every racing load gets the same handle; none may fail on the
	// instance name already being taken.
	for i := range loaders {
		require.NoError(t, errs[i], "load %d", i)
		assert.Same(t, handles[0], handles[i], "load %d", i)
	}
	assert.Equal(t, 1, r.Len())
}

func TestLoad_InvalidModule(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	path := writeModule(t, t.TempDir(), "broken.wasm", []byte("not a module"))

	_, err := r.Load(context.Background(), "broken", path)

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "broken", loadErr.Name)
	assert.Zero(t, r.Len(), "failed load leaves the registry unchanged")
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	_, err := r.Load(context.Background(), "ghost", filepath.Join(t.TempDir(), "ghost.wasm"))

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Zero(t, r.Len())
}

func TestResolve(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	path := writeModule(t, t.TempDir(), "echo.wasm", emptyModule)

	loaded, err := r.Load(context.Background(), "echo", path)
	require.NoError(t, err)

	resolved, err := r.Resolve("echo")
	require.NoError(t, err)
	assert.Same(t, loaded, resolved)

	_, err = r.Resolve("missing")
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "missing", notFound.Name)
}

func TestLoadAll_PartialSuccess(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	dir := t.TempDir()
	writeModule(t, dir, "good.wasm", emptyModule)
	writeModule(t, dir, "bad.wasm", []byte("garbage"))
	writeModule(t, dir, "notes.txt", []byte("ignored"))

	count, err := r.LoadAll(context.Background(), dir)
	require.NoError(t, err, "individual failures must not abort the scan")
	assert.Equal(t, 1, count)
	assert.Equal(t, []string{"good"}, r.Names())
}

func TestLoadAll_MissingDirectory(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	_, err := r.LoadAll(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestHandle_CallUnknownSymbol(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	path := writeModule(t, t.TempDir(), "echo.wasm", emptyModule)

	h, err := r.Load(context.Background(), "echo", path)
	require.NoError(t, err)
	assert.False(t, h.Exports("register"))

	_, err = h.Call(context.Background(), "register", abi.Descriptor{Shape: abi.ShapeStringInt}, "x")
	var notFound *abi.SymbolNotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestUnload(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	path := writeModule(t, t.TempDir(), "echo.wasm", emptyModule)

	_, err := r.Load(context.Background(), "echo", path)
	require.NoError(t, err)

	require.NoError(t, r.Unload(context.Background(), "echo"))
	assert.Zero(t, r.Len())

	var notFound *NotFoundError
	assert.ErrorAs(t, r.Unload(context.Background(), "echo"), &notFound)
}

func TestNew_BadABIConstraint(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), WithABIConstraint("definitely not semver"))
	assert.Error(t, err)
}

func TestParseManifest(t *testing.T) {
	t.Parallel()

	m := parseManifest(`{"name":"vault","version":"0.3.1","abi":"1.2.0","reentrant":true,"description":"storage module","extra":"ignored"}`)
	assert.Equal(t, "vault", m.Name)
	assert.Equal(t, "0.3.1", m.Version)
	assert.Equal(t, "1.2.0", m.ABIVersion)
	assert.True(t, m.Reentrant)
}
