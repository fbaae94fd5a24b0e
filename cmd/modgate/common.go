package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/modgate-dev/modgate/internal/config"
	"github.com/modgate-dev/modgate/internal/host"
)

// openHost loads the config file and assembles a running host. Callers
// own the returned host and must Close it.
func openHost(ctx context.Context) (*host.Host, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	return host.New(ctx, cfg,
		host.WithBuiltin("status", statusAction))
}

// statusAction is the stock builtin reporting host liveness.
func statusAction(_ context.Context, _ string) (string, error) {
	return "ok", nil
}

// parseAttrs converts repeated key=value flags into a map.
func parseAttrs(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	attrs := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("attribute %q is not key=value", pair)
		}
		attrs[key] = value
	}
	return attrs, nil
}
