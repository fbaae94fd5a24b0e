package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfig = `
host:
  module_dir: ./modules
  audit_log: ./audit.jsonl
  abi: "^1"
filter:
  block_tokens:
    - dlopen
  audit_tokens:
    - goto
layers:
  - id: open
    clearance: public
    features:
      - name: status
        kind: builtin
  - id: operators
    clearance: controlled
    features:
      - name: read-log
        kind: sandbox
        operation: read-log
      - name: submit
        kind: module
        module: vault
        symbol: submit
        shape: string_int
        zero_is_failure: true
        guard: 'attrs["team"] == "ops"'
`

func TestParse_Valid(t *testing.T) {
	t.Parallel()

	cfg, err := Parse([]byte(validConfig))
	require.NoError(t, err)

	assert.Equal(t, "./modules", cfg.Host.ModuleDir)
	assert.Equal(t, "^1", cfg.Host.ABI)
	assert.Equal(t, []string{"dlopen"}, cfg.Filter.BlockTokens)
	require.Len(t, cfg.Layers, 2)

	operators := cfg.Layers[1]
	assert.Equal(t, "controlled", operators.Clearance)
	require.Len(t, operators.Features, 2)
	submit := operators.Features[1]
	assert.Equal(t, KindModule, submit.Kind)
	assert.Equal(t, "vault", submit.Module)
	assert.True(t, submit.ZeroIsFailure)
}

func TestLoad_File(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validConfig), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "./audit.jsonl", cfg.Host.AuditLog)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParse_SchemaRejectsUnknownClearance(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte(`
layers:
  - id: a
    clearance: cosmic
    features: []
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema")
}

func TestParse_SchemaRejectsUnknownKeys(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte(`
host:
  module_dirs: ./modules
`))
	assert.Error(t, err)
}

func TestParse_DuplicateFeatureAcrossLayers(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte(`
layers:
  - id: a
    clearance: public
    features:
      - name: status
        kind: builtin
  - id: b
    clearance: critical
    features:
      - name: status
        kind: builtin
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "feature status registered in both layer a and layer b")
}

func TestParse_ModuleFeatureMissingFields(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte(`
layers:
  - id: a
    clearance: public
    features:
      - name: submit
        kind: module
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "module is required")
	assert.Contains(t, err.Error(), "symbol is required")
	assert.Contains(t, err.Error(), "shape is required")
}

func TestParse_SandboxFeatureRejectsModuleFields(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte(`
layers:
  - id: a
    clearance: controlled
    features:
      - name: read-log
        kind: sandbox
        operation: read-log
        symbol: submit
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "module fields are only valid for module features")
}

func TestParse_Empty(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte(""))
	assert.Error(t, err)
}
