package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"report-workers/internal/common/config"
	"report-workers/internal/common/logger"
	"report-workers/internal/report/orchestrator"
)

func offlineConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	return &config.Config{
		Generation: config.GenerationConfig{Enabled: false},
		Examples: config.ExamplesConfig{
			Source:         config.ExampleSourceFile,
			CacheDirectory: filepath.Join(dir, "missing"),
			ExamplesFile:   config.DefaultExamplesFile,
			MetadataFile:   config.DefaultMetadataFile,
		},
		Prompts: config.PromptsConfig{Directory: filepath.Join(dir, "prompts")},
	}
}

func TestRunGenerate_FallbackOnly(t *testing.T) {
	in := strings.NewReader(`{"metadonnees": {"titre": "Port Est", "client": "Grand Port"}, "conclusion": "ancien"}`)
	var out, progress bytes.Buffer

	err := runGenerate(context.Background(), offlineConfig(t), logger.NewTestLogger(t), in, &out, &progress,
		[]string{"introduction", "conclusion"})
	require.NoError(t, err)

	var report map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	intro := report["introduction"].(map[string]interface{})
	assert.Contains(t, intro["guidelines"], `"Port Est" a été réalisée pour Grand Port`)
	assert.Contains(t, report["conclusion"], "Port Est")
	assert.NotEqual(t, "ancien", report["conclusion"])

	assert.Contains(t, progress.String(), "✏️ introduction en cours...")
	assert.Contains(t, progress.String(), "Sections: 0 réussies, 2 en fallback, 0 en échec (0 avec exemples)")
}

func TestRunGenerate_InvalidInput(t *testing.T) {
	var out bytes.Buffer
	err := runGenerate(context.Background(), offlineConfig(t), nil, strings.NewReader(`[1, 2]`), &out, &out, nil)
	assert.Error(t, err)

	err = runGenerate(context.Background(), offlineConfig(t), nil, strings.NewReader(`null`), &out, &out, nil)
	assert.Error(t, err)
}

func TestPrintStatus(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printStatus(&out, orchestrator.SystemStatus{SectionsCount: 20, Recommendation: "❌ Entraînement requis"}))
	assert.Contains(t, out.String(), `"sections_count": 20`)
	assert.Contains(t, out.String(), "❌ Entraînement requis")
}

func TestSectionsCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newSectionsCmd()
	cmd.SetOut(&out)
	cmd.Run(cmd, nil)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(t, lines, 20)
	assert.True(t, strings.HasPrefix(lines[0], "introduction"))
	assert.Contains(t, out.String(), "analyse_synthese.commentaire")
}

func TestCheckRegistry(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, checkRegistry("../../configs/activity-registry.json", &out))
	assert.Contains(t, out.String(), "generate-report-sections")

	assert.Error(t, checkRegistry(filepath.Join(t.TempDir(), "missing.json"), &out))
}
