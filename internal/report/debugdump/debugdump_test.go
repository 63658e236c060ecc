package debugdump

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time {
	return time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local)
}

func TestRunDir_WritesArtifacts(t *testing.T) {
	root := t.TempDir()
	d := NewRunDir(root, "0123456789abcdef", fixedNow, nil)

	require.Equal(t, filepath.Join(root, "20240309_140507_01234567"), d.Dir())

	d.Prompt("houle", "prompt text")
	d.Generated("houle", "first")
	d.Generated("houle", "second")

	got, err := os.ReadFile(filepath.Join(d.Dir(), "houle_20240309_140507.txt"))
	require.NoError(t, err)
	assert.Equal(t, "prompt text", string(got))

	got, err = os.ReadFile(filepath.Join(d.Dir(), "houle_generated.txt"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))
}

func TestRunDir_Unavailable(t *testing.T) {
	assert.Equal(t, Nop{}, NewRunDir("", "id", nil, nil))

	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	d := NewRunDir(file, "id", fixedNow, nil)
	assert.Equal(t, "", d.Dir())
	d.Prompt("x", "y")
}

func TestContext(t *testing.T) {
	assert.Equal(t, Nop{}, FromContext(context.Background()))

	d := NewRunDir(t.TempDir(), "run", fixedNow, nil)
	assert.Equal(t, d, FromContext(WithContext(context.Background(), d)))
}
