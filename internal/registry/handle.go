package registry

import (
	"context"
	"sync"
	"time"

	"github.com/tetratelabs/wazero/api"

	"github.com/modgate-dev/modgate/internal/abi"
)

// Handle is the registry's view of one loaded module. It owns the live
// instance exclusively: closing the handle unloads the module.
type Handle struct {
	name     string
	path     string
	loadedAt time.Time
	manifest Manifest

	instance api.Module

	// callMu serializes calls into the instance. Loaded native code
	// commonly holds non-thread-safe global state, so serialization is
	// the default; a module that declares itself reentrant in its
	// manifest opts out.
	callMu    sync.Mutex
	marshaler *abi.Marshaler

	entryOnce sync.Once
	entries   map[string]struct{}
}

// Name returns the registry name the handle is bound to.
func (h *Handle) Name() string { return h.name }

// Path returns the file the module was loaded from.
func (h *Handle) Path() string { return h.path }

// LoadedAt returns when the module was instantiated.
func (h *Handle) LoadedAt() time.Time { return h.loadedAt }

// Manifest returns the module's self-declared metadata.
func (h *Handle) Manifest() Manifest { return h.manifest }

// EntryPoints returns the module's exported entry-point names. Resolved
// from the instance on first use, cached afterward.
func (h *Handle) EntryPoints() []string {
	h.resolveEntries()
	names := make([]string, 0, len(h.entries))
	for name := range h.entries {
		names = append(names, name)
	}
	return names
}

// Exports reports whether the module exports the named entry point.
func (h *Handle) Exports(symbol string) bool {
	h.resolveEntries()
	_, ok := h.entries[symbol]
	return ok
}

func (h *Handle) resolveEntries() {
	h.entryOnce.Do(func() {
		defs := h.instance.ExportedFunctionDefinitions()
		h.entries = make(map[string]struct{}, len(defs))
		for name := range defs {
			h.entries[name] = struct{}{}
		}
	})
}

// Call performs one boundary-crossing call into the module. Calls into
// the same handle are serialized unless the module's manifest declares
// it reentrant; calls into different handles proceed concurrently. Once
// the entry point is running the call is not cancelable.
func (h *Handle) Call(ctx context.Context, symbol string, desc abi.Descriptor, args ...string) (abi.Result, error) {
	if !h.Exports(symbol) {
		return abi.Result{}, &abi.SymbolNotFoundError{Symbol: symbol}
	}
	if !h.manifest.Reentrant {
		h.callMu.Lock()
		defer h.callMu.Unlock()
	}
	return h.marshaler.Call(ctx, h.instance, symbol, desc, args...)
}

// Close unloads the module instance.
func (h *Handle) Close(ctx context.Context) error {
	return h.instance.Close(ctx)
}
