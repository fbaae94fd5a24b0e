package registry

import (
	"github.com/tidwall/gjson"
)

// manifestSymbol is the optional entry point a module may export to
// describe itself. It has the string-out shape and takes no meaningful
// argument. Modules without it get zero-value metadata.
const manifestSymbol = "manifest"

// Manifest is a module's self-declared metadata.
type Manifest struct {
	Name        string
	Version     string
	ABIVersion  string
	Description string
	// Reentrant opts the module out of per-handle call serialization.
	Reentrant bool
}

// parseManifest extracts the known fields from a manifest JSON document.
// Unknown fields are ignored so modules can carry extra metadata.
func parseManifest(raw string) Manifest {
	return Manifest{
		Name:        gjson.Get(raw, "name").String(),
		Version:     gjson.Get(raw, "version").String(),
		ABIVersion:  gjson.Get(raw, "abi").String(),
		Description: gjson.Get(raw, "description").String(),
		Reentrant:   gjson.Get(raw, "reentrant").Bool(),
	}
}
