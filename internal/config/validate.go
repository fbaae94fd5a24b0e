package config

import (
	"fmt"
	"strings"

	"github.com/modgate-dev/modgate/internal/abi"
	"github.com/modgate-dev/modgate/internal/clearance"
)

// validate applies the cross-field rules the schema cannot express.
// All failures are collected so one load reports everything at once.
func validate(cfg *Config) error {
	var errs []string

	layerIDs := make(map[string]bool)
	featureOwner := make(map[string]string)

	for _, layer := range cfg.Layers {
		if layerIDs[layer.ID] {
			errs = append(errs, fmt.Sprintf("duplicate layer id %s", layer.ID))
		}
		layerIDs[layer.ID] = true

		if _, err := clearance.Parse(layer.Clearance); err != nil {
			errs = append(errs, fmt.Sprintf("layer %s: %v", layer.ID, err))
		}

		for _, feat := range layer.Features {
			if owner, ok := featureOwner[feat.Name]; ok {
				errs = append(errs, fmt.Sprintf(
					"feature %s registered in both layer %s and layer %s", feat.Name, owner, layer.ID))
			} else {
				featureOwner[feat.Name] = layer.ID
			}

			for _, problem := range validateFeature(feat) {
				errs = append(errs, fmt.Sprintf("layer %s feature %s: %s", layer.ID, feat.Name, problem))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// validateFeature checks the fields each routing kind requires.
func validateFeature(feat FeatureConfig) []string {
	var problems []string

	switch feat.Kind {
	case KindModule:
		if feat.Module == "" {
			problems = append(problems, "module is required")
		}
		if feat.Symbol == "" {
			problems = append(problems, "symbol is required")
		}
		if feat.Shape == "" {
			problems = append(problems, "shape is required")
		} else if _, err := abi.ParseShape(feat.Shape); err != nil {
			problems = append(problems, err.Error())
		}
		if feat.Operation != "" {
			problems = append(problems, "operation is only valid for sandbox features")
		}

	case KindSandbox:
		if feat.Operation == "" {
			problems = append(problems, "operation is required")
		}
		if feat.Module != "" || feat.Symbol != "" || feat.Shape != "" {
			problems = append(problems, "module fields are only valid for module features")
		}

	case KindBuiltin:
		if feat.Module != "" || feat.Symbol != "" || feat.Shape != "" || feat.Operation != "" {
			problems = append(problems, "builtin features take no routing fields")
		}

	default:
		problems = append(problems, fmt.Sprintf("unknown kind %q", feat.Kind))
	}
	return problems
}
