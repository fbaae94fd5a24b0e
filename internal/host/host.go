// Package host is the caller-facing surface: a single authorize-then-
// invoke entry point that runs the clearance check, the payload filter,
// and the routed execution in that order, journaling every decision.
package host

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modgate-dev/modgate/internal/abi"
	"github.com/modgate-dev/modgate/internal/audit"
	"github.com/modgate-dev/modgate/internal/clearance"
	"github.com/modgate-dev/modgate/internal/codefilter"
	"github.com/modgate-dev/modgate/internal/config"
	"github.com/modgate-dev/modgate/internal/lattice"
	"github.com/modgate-dev/modgate/internal/registry"
	"github.com/modgate-dev/modgate/internal/sandbox"
)

// containerAttr is the request attribute naming the target container for
// sandbox-routed features.
const containerAttr = "container"

// route is the execution binding behind one feature.
type route struct {
	kind string

	// kind module
	module     string
	symbol     string
	descriptor abi.Descriptor

	// kind sandbox
	operation string
}

// Request is one feature invocation.
type Request struct {
	Caller    string
	Clearance clearance.Level
	Feature   string
	// Args are the feature's string arguments; module-routed features
	// consume as many as their shape takes.
	Args  []string
	Attrs map[string]string
	// AuditApproved marks that an operator reviewed an audit-required
	// payload and let it through.
	AuditApproved bool
}

// Response is a successful invocation's result.
type Response struct {
	Code  int32
	Value string
}

// Host wires the lattice, the filter, the registry, and the sandboxes
// behind one entry point. The lattice read path and the registry write
// path are independent shared resources and never block each other.
type Host struct {
	lattice   *lattice.Lattice
	registry  *registry.Registry
	scanner   *codefilter.Scanner
	sandboxes *sandbox.Manager
	journal   *audit.Log
	logger    *slog.Logger

	routes map[string]route
}

// Option configures a Host.
type Option func(*hostOptions)

type hostOptions struct {
	logger   *slog.Logger
	builtins map[string]lattice.Action
}

// WithLogger sets the host's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *hostOptions) { o.logger = logger }
}

// WithBuiltin binds a host-implemented action to a builtin feature name.
func WithBuiltin(name string, action lattice.Action) Option {
	return func(o *hostOptions) {
		o.builtins[name] = action
	}
}

// New assembles a Host from static configuration: opens the registry
// (scanning the module directory when one is configured), the audit
// journal, the filter, and the lattice. Any configuration fault refuses
// startup.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Host, error) {
	o := &hostOptions{
		logger:   slog.Default(),
		builtins: make(map[string]lattice.Action),
	}
	for _, opt := range opts {
		opt(o)
	}

	regOpts := []registry.Option{registry.WithLogger(o.logger)}
	if cfg.Host.ABI != "" {
		regOpts = append(regOpts, registry.WithABIConstraint(cfg.Host.ABI))
	}
	reg, err := registry.New(ctx, regOpts...)
	if err != nil {
		return nil, err
	}

	h := &Host{
		registry:  reg,
		sandboxes: sandbox.NewManager(),
		logger:    o.logger,
		scanner: codefilter.New(
			codefilter.WithBlockedTokens(cfg.Filter.BlockTokens),
			codefilter.WithAuditTokens(cfg.Filter.AuditTokens)),
		routes: make(map[string]route),
	}

	if err := h.buildLattice(cfg, o.builtins); err != nil {
		_ = reg.Close(ctx)
		return nil, err
	}

	if cfg.Host.AuditLog != "" {
		journal, err := audit.Open(cfg.Host.AuditLog)
		if err != nil {
			_ = reg.Close(ctx)
			return nil, fmt.Errorf("open audit journal: %w", err)
		}
		h.journal = journal
	}

	if cfg.Host.ModuleDir != "" {
		count, err := reg.LoadAll(ctx, cfg.Host.ModuleDir)
		if err != nil {
			_ = h.Close(ctx)
			return nil, err
		}
		o.logger.Info("module scan complete", "dir", cfg.Host.ModuleDir, "loaded", count)
	}

	return h, nil
}

// buildLattice converts layer configuration into the immutable lattice
// and the host's routing table.
func (h *Host) buildLattice(cfg *config.Config, builtins map[string]lattice.Action) error {
	specs := make([]lattice.LayerSpec, 0, len(cfg.Layers))

	for _, layer := range cfg.Layers {
		threshold, err := clearance.Parse(layer.Clearance)
		if err != nil {
			return fmt.Errorf("layer %s: %w", layer.ID, err)
		}

		spec := lattice.LayerSpec{ID: layer.ID, Threshold: threshold}
		for _, feat := range layer.Features {
			fs := lattice.FeatureSpec{Name: feat.Name, Guard: feat.Guard}

			switch feat.Kind {
			case config.KindModule:
				shape, err := abi.ParseShape(feat.Shape)
				if err != nil {
					return fmt.Errorf("feature %s: %w", feat.Name, err)
				}
				h.routes[feat.Name] = route{
					kind:   config.KindModule,
					module: feat.Module,
					symbol: feat.Symbol,
					descriptor: abi.Descriptor{
						Shape:         shape,
						ZeroIsFailure: feat.ZeroIsFailure,
					},
				}
			case config.KindSandbox:
				h.routes[feat.Name] = route{kind: config.KindSandbox, operation: feat.Operation}
			case config.KindBuiltin:
				h.routes[feat.Name] = route{kind: config.KindBuiltin}
				fs.Action = builtins[feat.Name]
			}
			spec.Features = append(spec.Features, fs)
		}
		specs = append(specs, spec)
	}

	l, err := lattice.New(specs...)
	if err != nil {
		return err
	}
	h.lattice = l
	return nil
}

// Execute runs one request: authorize, filter, route. Every denial and
// block is journaled with a reason sufficient to reproduce the decision.
func (h *Host) Execute(ctx context.Context, req Request) (Response, error) {
	if err := h.lattice.Authorize(req.Clearance, req.Feature, req.Attrs); err != nil {
		h.record(req, audit.DecisionDenied, err.Error(), "")
		return Response{}, err
	}

	r := h.routes[req.Feature]

	// Payloads headed for native code or a sandbox are classified
	// before anything runs. Builtins never leave the host.
	if r.kind != config.KindBuiltin && len(req.Args) > 0 {
		scan := h.scanner.Scan(strings.Join(req.Args, "\n"))
		switch {
		case scan.Blocked():
			h.record(req, audit.DecisionBlocked, scan.Reason(), scan.Verdict.String())
			return Response{}, &UnsafeOperationError{Feature: req.Feature, Reason: scan.Reason()}
		case scan.NeedsAudit() && !req.AuditApproved:
			h.record(req, audit.DecisionDenied, scan.Reason(), scan.Verdict.String())
			return Response{}, &AuditRequiredError{Feature: req.Feature, Reason: scan.Reason()}
		case scan.NeedsAudit():
			h.logger.Info("audit-required payload approved",
				"feature", req.Feature, "caller", req.Caller)
		}
	}

	resp, err := h.dispatch(ctx, req, r)
	if err != nil {
		h.record(req, audit.DecisionFailed, err.Error(), "")
		return Response{}, err
	}
	h.record(req, audit.DecisionGranted, "", "")
	return resp, nil
}

func (h *Host) dispatch(ctx context.Context, req Request, r route) (Response, error) {
	switch r.kind {
	case config.KindModule:
		handle, err := h.registry.Resolve(r.module)
		if err != nil {
			return Response{}, err
		}
		result, err := handle.Call(ctx, r.symbol, r.descriptor, req.Args...)
		if err != nil {
			return Response{}, err
		}
		return Response{Code: result.Code, Value: result.Value}, nil

	case config.KindSandbox:
		id := req.Attrs[containerAttr]
		if id == "" {
			return Response{}, &NoContainerError{Feature: req.Feature}
		}
		out, err := h.sandboxes.Invoke(id, r.operation, req.Args...)
		if err != nil {
			return Response{}, err
		}
		return Response{Value: out}, nil

	default:
		payload := strings.Join(req.Args, "\n")
		out, err := h.lattice.Invoke(ctx, req.Clearance, req.Feature, req.Attrs, payload)
		if err != nil {
			return Response{}, err
		}
		return Response{Value: out}, nil
	}
}

// record journals one decision. A missing journal degrades to logging.
func (h *Host) record(req Request, decision, reason, verdict string) {
	if h.journal == nil {
		h.logger.Debug("decision",
			"feature", req.Feature, "caller", req.Caller,
			"decision", decision, "reason", reason)
		return
	}
	err := h.journal.Record(audit.Entry{
		Caller:    req.Caller,
		Clearance: req.Clearance.String(),
		Feature:   req.Feature,
		Decision:  decision,
		Reason:    reason,
		Verdict:   verdict,
	})
	if err != nil {
		h.logger.Error("journal write failed", "error", err)
	}
}

// CreateSandbox allocates a container rooted at realRoot for ownerID.
func (h *Host) CreateSandbox(ownerID, realRoot string) (*sandbox.Container, error) {
	return h.sandboxes.Create(ownerID, realRoot)
}

// TeardownSandbox releases a container.
func (h *Host) TeardownSandbox(id string) error {
	return h.sandboxes.Teardown(id)
}

// Registry exposes the module registry for listing and ad-hoc loads.
func (h *Host) Registry() *registry.Registry {
	return h.registry
}

// Lattice exposes the feature table for introspection.
func (h *Host) Lattice() *lattice.Lattice {
	return h.lattice
}

// Scan classifies a payload without executing anything.
func (h *Host) Scan(payload string) codefilter.Result {
	return h.scanner.Scan(payload)
}

// WatchModules loads module files as they appear in dir until ctx ends.
func (h *Host) WatchModules(ctx context.Context, dir string) error {
	return h.registry.Watch(ctx, dir)
}

// Close releases the journal and every loaded module.
func (h *Host) Close(ctx context.Context) error {
	var firstErr error
	if h.journal != nil {
		if err := h.journal.Close(); err != nil {
			firstErr = err
		}
	}
	if err := h.registry.Close(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
