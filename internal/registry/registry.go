// Package registry owns every loaded module handle. All loaded-module
// state lives inside an explicitly constructed Registry passed to
// callers; there are no process-global statics.
package registry

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"golang.org/x/sync/errgroup"

	"github.com/modgate-dev/modgate/internal/abi"
)

// moduleExt is the file extension LoadAll and the watcher recognize.
const moduleExt = ".wasm"

// defaultABIConstraint is the ABI version range the host accepts from
// modules that declare one.
const defaultABIConstraint = "^1"

// loadConcurrency bounds how many modules a directory scan loads at once.
const loadConcurrency = 4

// Registry maps names to loaded module handles. Resolve runs fully
// concurrently; Load is mutually exclusive with other loads and with
// membership reads, but never blocks calls already in flight into a
// different handle.
type Registry struct {
	runtime   wazero.Runtime
	marshaler *abi.Marshaler
	logger    *slog.Logger

	abiConstraint *semver.Constraints
	constraintSrc string

	mu      sync.RWMutex
	handles map[string]*Handle
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

// WithABIConstraint overrides the ABI version range accepted from module
// manifests.
func WithABIConstraint(constraint string) Option {
	return func(r *Registry) { r.constraintSrc = constraint }
}

// New creates a Registry backed by a fresh runtime. The caller owns the
// registry and must Close it to release every loaded module.
func New(ctx context.Context, opts ...Option) (*Registry, error) {
	r := &Registry{
		marshaler:     abi.NewMarshaler(),
		logger:        slog.Default(),
		constraintSrc: defaultABIConstraint,
		handles:       make(map[string]*Handle),
	}
	for _, opt := range opts {
		opt(r)
	}

	constraint, err := semver.NewConstraint(r.constraintSrc)
	if err != nil {
		return nil, fmt.Errorf("parse ABI constraint %q: %w", r.constraintSrc, err)
	}
	r.abiConstraint = constraint

	r.runtime = wazero.NewRuntime(ctx)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, r.runtime); err != nil {
		_ = r.runtime.Close(ctx)
		return nil, fmt.Errorf("instantiate WASI: %w", err)
	}
	return r, nil
}

// Load opens the module at path and registers it under name. Loading a
// name that is already registered is a no-op returning the existing
// handle; the file is not re-read. A failed load leaves the registry
// unchanged.
func (r *Registry) Load(ctx context.Context, name, path string) (*Handle, error) {
	r.mu.RLock()
	existing, ok := r.handles[name]
	r.mu.RUnlock()
	if ok {
		return existing, nil
	}

	// The write lock is held across compile and instantiate. Instance
	// names are unique per runtime, so a racing loader that got past the
	// fast path must wait here and take the existing-handle branch rather
	// than collide on the instance name.
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.handles[name]; ok {
		return existing, nil
	}

	handle, err := r.open(ctx, name, path)
	if err != nil {
		return nil, err
	}
	r.handles[name] = handle

	r.logger.Info("module loaded",
		"name", name,
		"path", path,
		"abi", handle.manifest.ABIVersion,
		"reentrant", handle.manifest.Reentrant)
	return handle, nil
}

// open does the actual file read, compile, instantiate, and manifest
// check. Callers hold the membership write lock.
func (r *Registry) open(ctx context.Context, name, path string) (*Handle, error) {
	wasmBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Name: name, Path: path, Err: err}
	}

	compiled, err := r.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, &LoadError{Name: name, Path: path, Err: fmt.Errorf("compile: %w", err)}
	}

	instance, err := r.runtime.InstantiateModule(ctx, compiled, r.moduleConfig(name))
	if err != nil {
		_ = compiled.Close(ctx)
		return nil, &LoadError{Name: name, Path: path, Err: fmt.Errorf("instantiate: %w", err)}
	}

	// Reactor-style modules need _initialize before anything else.
	if initFn := instance.ExportedFunction("_initialize"); initFn != nil {
		if _, err := initFn.Call(ctx); err != nil {
			_ = instance.Close(ctx)
			return nil, &LoadError{Name: name, Path: path, Err: fmt.Errorf("initialize: %w", err)}
		}
	}

	handle := &Handle{
		name:      name,
		path:      path,
		loadedAt:  time.Now().UTC(),
		instance:  instance,
		marshaler: r.marshaler,
	}

	if err := r.readManifest(ctx, handle); err != nil {
		_ = instance.Close(ctx)
		return nil, &LoadError{Name: name, Path: path, Err: err}
	}
	return handle, nil
}

// moduleConfig builds the sandboxed instance configuration. Modules get
// time and randomness but no filesystem mounts and no args.
func (r *Registry) moduleConfig(name string) wazero.ModuleConfig {
	return wazero.NewModuleConfig().
		WithName(name).
		WithSysWalltime().
		WithSysNanotime().
		WithRandSource(rand.Reader).
		WithStartFunctions()
}

// readManifest fetches the module's optional self-description and gates
// its declared ABI version against the host's accepted range.
func (r *Registry) readManifest(ctx context.Context, h *Handle) error {
	if !h.Exports(manifestSymbol) {
		return nil
	}

	result, err := r.marshaler.Call(ctx, h.instance, manifestSymbol,
		abi.Descriptor{Shape: abi.ShapeStringOut}, "")
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}
	h.manifest = parseManifest(result.Value)

	if h.manifest.ABIVersion == "" {
		return nil
	}
	declared, err := semver.NewVersion(h.manifest.ABIVersion)
	if err != nil {
		return fmt.Errorf("parse declared ABI version %q: %w", h.manifest.ABIVersion, err)
	}
	if !r.abiConstraint.Check(declared) {
		return &IncompatibleABIError{
			Name:       h.name,
			Declared:   h.manifest.ABIVersion,
			Constraint: r.constraintSrc,
		}
	}
	return nil
}

// LoadAll scans dir non-recursively for module files and loads each one
// under its basename. Individual failures are logged and skipped;
// partial success is the expected outcome. The returned count is the
// number of handles registered by this scan.
func (r *Registry) LoadAll(ctx context.Context, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("scan module directory %s: %w", dir, err)
	}

	var (
		g, gctx = errgroup.WithContext(ctx)
		countMu sync.Mutex
		count   int
	)
	g.SetLimit(loadConcurrency)

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), moduleExt) {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), moduleExt)
		path := filepath.Join(dir, entry.Name())

		g.Go(func() error {
			if _, err := r.Load(gctx, name, path); err != nil {
				r.logger.Warn("skipping module", "name", name, "path", path, "error", err)
				return nil
			}
			countMu.Lock()
			count++
			countMu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return count, err
	}
	return count, nil
}

// Resolve returns the handle registered under name.
func (r *Registry) Resolve(name string) (*Handle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handle, ok := r.handles[name]
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	return handle, nil
}

// Names returns the registered module names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handles))
	for name := range r.handles {
		names = append(names, name)
	}
	return names
}

// Len returns the number of registered handles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}

// Unload closes and removes the handle registered under name.
func (r *Registry) Unload(ctx context.Context, name string) error {
	r.mu.Lock()
	handle, ok := r.handles[name]
	if ok {
		delete(r.handles, name)
	}
	r.mu.Unlock()

	if !ok {
		return &NotFoundError{Name: name}
	}
	return handle.Close(ctx)
}

// Close unloads every handle and shuts down the runtime.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	r.handles = make(map[string]*Handle)
	r.mu.Unlock()

	return r.runtime.Close(ctx)
}
