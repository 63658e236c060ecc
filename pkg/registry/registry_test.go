package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"version": "1.0.0",
		"activities": [
			{"id": "generate-sections", "taskType": "generate-report-sections", "retries": 2,
			 "inputSchema": {"type": "object", "required": ["reportData"]}}
		]
	}`), 0o644))

	reg, err := LoadRegistry(path)
	require.NoError(t, err)

	act, ok := reg.FindByTaskType("generate-report-sections")
	require.True(t, ok)
	assert.Equal(t, "generate-sections", act.ID)
	assert.Equal(t, 2, act.Retries)
	assert.Equal(t, []interface{}{"reportData"}, act.InputSchema["required"])

	_, ok = reg.FindByTaskType("unknown")
	assert.False(t, ok)
}

func TestLoadRegistry_Errors(t *testing.T) {
	_, err := LoadRegistry(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"activities": [`), 0o644))
	_, err = LoadRegistry(path)
	assert.Error(t, err)
}
