// Package abi implements the foreign-call boundary between the host and
// loaded modules. All raw memory access is confined here; every other
// component interacts only through the typed Result-returning interface.
//
// Memory protocol (the ABI contract):
//   - the module exports allocate(size u32) -> ptr u32 and
//     deallocate(ptr u32, size u32)
//   - string arguments are written NUL-terminated into guest memory the
//     host obtains from allocate and releases with deallocate after the call
//   - string results use an out-parameter: the host passes the address of
//     an 8-byte slot; the module writes result pointer then result length,
//     both u32 little-endian. The result bytes belong to the module's
//     allocator; the host copies them and then calls deallocate(ptr, len).
//     That explicit release call is the ownership contract; the host never
//     assumes the module frees its own output.
package abi

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tetratelabs/wazero/api"
)

// Exported guest symbols making up the memory protocol.
const (
	allocateSymbol   = "allocate"
	deallocateSymbol = "deallocate"
)

// Module is the slice of wazero's api.Module the marshaler needs. Accepting
// the interface keeps the boundary mockable; api.Module satisfies it.
type Module interface {
	Name() string
	ExportedFunction(name string) api.Function
	Memory() api.Memory
}

// Result is the outcome of one boundary-crossing call.
type Result struct {
	// Code is the module's i32 return value.
	Code int32
	// Value is the returned string for ShapeStringOut calls.
	Value string
}

// Marshaler converts host values to and from the boundary representation
// and performs exactly one entry-point call per Call invocation. It keeps
// no state and performs no I/O of its own.
type Marshaler struct{}

// NewMarshaler creates a Marshaler.
func NewMarshaler() *Marshaler {
	return &Marshaler{}
}

// Call resolves symbol in mod and performs one call described by desc.
// Argument validation happens before the guest is touched at all: an
// embedded NUL byte fails with MarshalError and zero observable module
// side effects. Once the entry point is invoked the call is treated as
// non-cancelable; ctx is honored only up to that point.
func (m *Marshaler) Call(ctx context.Context, mod Module, symbol string, desc Descriptor, args ...string) (Result, error) {
	if len(args) != desc.Shape.argCount() {
		return Result{}, &MarshalError{Reason: fmt.Sprintf(
			"%s takes %d string argument(s), got %d", desc.Shape, desc.Shape.argCount(), len(args))}
	}
	for i, arg := range args {
		if strings.IndexByte(arg, 0) >= 0 {
			return Result{}, &MarshalError{Reason: fmt.Sprintf("argument %d contains an embedded NUL byte", i)}
		}
	}

	fn := mod.ExportedFunction(symbol)
	if fn == nil {
		return Result{}, &SymbolNotFoundError{Symbol: symbol}
	}

	// Guest allocations made for this call, released on the way out.
	var cleanup []func()
	defer func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}()

	params := make([]uint64, 0, 2)
	for _, arg := range args {
		ptr, size, err := m.writeCString(ctx, mod, arg)
		if err != nil {
			return Result{}, err
		}
		cleanup = append(cleanup, func() { m.release(ctx, mod, ptr, size) })
		params = append(params, uint64(ptr))
	}

	var outPtr uint32
	if desc.Shape == ShapeStringOut {
		ptr, err := m.allocate(ctx, mod, 8)
		if err != nil {
			return Result{}, err
		}
		outPtr = ptr
		cleanup = append(cleanup, func() { m.release(ctx, mod, outPtr, 8) })
		params = append(params, uint64(outPtr))
	}

	results, err := fn.Call(ctx, params...)
	if err != nil {
		return Result{}, fmt.Errorf("call %s: %w", symbol, err)
	}
	if len(results) == 0 {
		return Result{}, &MarshalError{Reason: fmt.Sprintf("%s returned no result", symbol)}
	}

	code := int32(uint32(results[0]))
	if code < 0 || (code == 0 && desc.ZeroIsFailure) {
		return Result{}, &CallFailedError{Symbol: symbol, Code: code}
	}

	result := Result{Code: code}
	if desc.Shape == ShapeStringOut {
		value, err := m.readOutString(ctx, mod, symbol, outPtr)
		if err != nil {
			return Result{}, err
		}
		result.Value = value
	}
	return result, nil
}

// writeCString copies s NUL-terminated into guest memory. The returned
// size includes the terminator.
func (m *Marshaler) writeCString(ctx context.Context, mod Module, s string) (ptr, size uint32, err error) {
	data := append([]byte(s), 0)
	size = uint32(len(data))

	ptr, err = m.allocate(ctx, mod, size)
	if err != nil {
		return 0, 0, err
	}
	if !mod.Memory().Write(ptr, data) {
		return 0, 0, &MarshalError{Reason: fmt.Sprintf("write of %d bytes at %d out of range", size, ptr)}
	}
	return ptr, size, nil
}

// readOutString decodes the out-parameter slot and copies the module's
// result bytes, then releases them through the module's own allocator.
func (m *Marshaler) readOutString(ctx context.Context, mod Module, symbol string, outPtr uint32) (string, error) {
	slot, ok := mod.Memory().Read(outPtr, 8)
	if !ok {
		return "", &MarshalError{Reason: "out-parameter slot unreadable"}
	}
	resPtr := binary.LittleEndian.Uint32(slot[0:4])
	resLen := binary.LittleEndian.Uint32(slot[4:8])
	if resPtr == 0 {
		return "", &MarshalError{Reason: fmt.Sprintf("%s reported success but wrote a null result pointer", symbol)}
	}
	if resLen == 0 {
		return "", nil
	}

	data, ok := mod.Memory().Read(resPtr, resLen)
	if !ok {
		return "", &MarshalError{Reason: fmt.Sprintf("result of %d bytes at %d out of range", resLen, resPtr)}
	}
	value := string(data) // copy out of guest memory before release
	m.release(ctx, mod, resPtr, resLen)
	return value, nil
}

func (m *Marshaler) allocate(ctx context.Context, mod Module, size uint32) (uint32, error) {
	allocFn := mod.ExportedFunction(allocateSymbol)
	if allocFn == nil {
		return 0, &MarshalError{Reason: "module does not export allocate()"}
	}
	results, err := allocFn.Call(ctx, uint64(size))
	if err != nil {
		return 0, fmt.Errorf("allocate %d bytes: %w", size, err)
	}
	if len(results) == 0 || uint32(results[0]) == 0 {
		return 0, &MarshalError{Reason: fmt.Sprintf("allocate(%d) returned null", size)}
	}
	return uint32(results[0]), nil
}

// release is best-effort: a module without deallocate leaks only its own
// memory, never the host's.
func (m *Marshaler) release(ctx context.Context, mod Module, ptr, size uint32) {
	deallocFn := mod.ExportedFunction(deallocateSymbol)
	if deallocFn == nil {
		slog.Debug("module does not export deallocate, skipping release",
			"module", mod.Name(), "ptr", ptr, "size", size)
		return
	}
	if _, err := deallocFn.Call(ctx, uint64(ptr), uint64(size)); err != nil {
		slog.Debug("deallocate failed", "module", mod.Name(), "error", err)
	}
}
