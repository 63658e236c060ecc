package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"report-workers/internal/common/logger"
	"report-workers/internal/models"
	"report-workers/internal/report/examples"
	"report-workers/internal/report/genclient"
	"report-workers/internal/report/sections"
	"report-workers/internal/report/tracelog"
)

type fakeStore struct {
	loaded bool
	with   map[string]bool
	loads  int
}

func (f *fakeStore) Load(context.Context) bool { f.loads++; return f.loaded }
func (f *fakeStore) HasExamples(s string) bool { return f.with[s] }
func (f *fakeStore) Summary() examples.Summary {
	return examples.Summary{Loaded: f.loaded, Sections: len(f.with), Examples: 2 * len(f.with)}
}

type fakePrompts struct{ built []string }

func (f *fakePrompts) Build(_ context.Context, section string, _ models.ReportData) string {
	f.built = append(f.built, section)
	return "prompt " + section
}

type fakeGenerator struct {
	enabled bool
	respond func(section string) genclient.Outcome
}

func (f *fakeGenerator) Generate(_ context.Context, section, _ string) genclient.Outcome {
	return f.respond(section)
}
func (f *fakeGenerator) Model() string { return "test-model" }
func (f *fakeGenerator) Enabled() bool { return f.enabled }

type progressCall struct {
	step   int
	detail string
}

type fakeProgress struct {
	updates []progressCall
	details []string
	stopAt  int
}

func (f *fakeProgress) Update(step int, _ string, detail string) bool {
	f.updates = append(f.updates, progressCall{step: step, detail: detail})
	return f.stopAt == 0 || len(f.updates) < f.stopAt
}

func (f *fakeProgress) LogDetail(detail string) { f.details = append(f.details, detail) }

type countingRecorder struct {
	sections    map[string]string
	generations []string
}

func (c *countingRecorder) RecordSection(_ context.Context, section, outcome string, _ time.Duration) {
	if c.sections == nil {
		c.sections = map[string]string{}
	}
	c.sections[section] = outcome
}

func (c *countingRecorder) RecordGeneration(_ context.Context, result string) {
	c.generations = append(c.generations, result)
}

func success(text string) genclient.Outcome {
	return genclient.Outcome{Status: genclient.StatusSuccess, Text: text}
}

func simulationReport() models.ReportData {
	return models.ReportData{
		"metadonnees": map[string]interface{}{"titre": "Port Test", "client": "Port Autonome"},
		"simulations": map[string]interface{}{
			"simulations": []interface{}{
				map[string]interface{}{"resultat": "Réussite"},
				map[string]interface{}{"resultat": "Échec"},
			},
		},
	}
}

func newTest(t *testing.T, store ExampleStore, gen Generator, rec *countingRecorder) *Orchestrator {
	d := Deps{
		Examples:  store,
		Prompts:   &fakePrompts{},
		Generator: gen,
		Log:       logger.NewTestLogger(t),
		NewID:     func() string { return "run-0001" },
	}
	if rec != nil {
		d.Recorders = []Recorder{rec}
	}
	return New(d)
}

func TestGenerateSections_AllFallbackWhenDisabled(t *testing.T) {
	gen := &fakeGenerator{respond: func(string) genclient.Outcome {
		return genclient.Outcome{Status: genclient.StatusFatal, Kind: genclient.KindDisabled, Err: genclient.ErrDisabled}
	}}
	o := newTest(t, &fakeStore{}, gen, nil)

	res := o.GenerateSections(context.Background(), simulationReport(), Request{})

	require.Len(t, res.Sections, len(sections.Table))
	assert.Equal(t, sections.Names(), res.Order)
	assert.Equal(t, RunStatistics{Fallback: 20, Total: 20}, res.Stats)
	assert.Equal(t, "run-0001", res.RunID)
	assert.False(t, res.Stopped)
	for name, text := range res.Sections {
		assert.NotEmpty(t, text, name)
		assert.Equal(t, tracelog.SourceFallback, res.Sources[name])
	}
	assert.True(t, strings.Contains(res.Sections["analyse"], "50.0%"))
}

func TestGenerateSections_OutcomeClassification(t *testing.T) {
	long := "Le chenal d'accès présente une largeur suffisante pour les navires étudiés."
	tests := []struct {
		name        string
		section     string
		outcome     genclient.Outcome
		wantSource  string
		wantStats   RunStatistics
		wantRecord  string
		wantGenCall string
	}{
		{
			name:        "accepted text",
			section:     "conclusion",
			outcome:     success("  " + long + "  "),
			wantSource:  tracelog.SourceAI,
			wantStats:   RunStatistics{Success: 1, WithExamples: 1, Total: 1},
			wantRecord:  OutcomeSuccess,
			wantGenCall: "success",
		},
		{
			name:        "rate limited",
			section:     "conclusion",
			outcome:     genclient.Outcome{Status: genclient.StatusTransient, Kind: genclient.KindRateLimited, Err: errors.New("429")},
			wantSource:  tracelog.SourceFallback,
			wantStats:   RunStatistics{Fallback: 1, Total: 1},
			wantRecord:  OutcomeFallback,
			wantGenCall: "rate_limited",
		},
		{
			name:        "short text",
			section:     "conclusion",
			outcome:     success("Trop court."),
			wantSource:  tracelog.SourceFallback,
			wantStats:   RunStatistics{Fallback: 1, Total: 1},
			wantRecord:  OutcomeFallback,
			wantGenCall: "success",
		},
		{
			name:        "refusal on ships",
			section:     "navires",
			outcome:     success("Je ne dispose pas des caractéristiques des navires pour rédiger."),
			wantSource:  tracelog.SourceFallback,
			wantStats:   RunStatistics{Fallback: 1, Total: 1},
			wantRecord:  OutcomeFallback,
			wantGenCall: "success",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &countingRecorder{}
			gen := &fakeGenerator{enabled: true, respond: func(string) genclient.Outcome { return tt.outcome }}
			store := &fakeStore{loaded: true, with: map[string]bool{"conclusion": true}}
			o := newTest(t, store, gen, rec)

			res := o.GenerateSections(context.Background(), simulationReport(), Request{Sections: []string{tt.section}})

			assert.Equal(t, tt.wantStats, res.Stats)
			assert.Equal(t, tt.wantSource, res.Sources[tt.section])
			assert.Equal(t, tt.wantRecord, rec.sections[tt.section])
			assert.Equal(t, []string{tt.wantGenCall}, rec.generations)
			if tt.wantSource == tracelog.SourceAI {
				assert.Equal(t, long, res.Sections[tt.section])
			} else {
				assert.Equal(t, sections.FallbackText(tt.section, simulationReport()), res.Sections[tt.section])
			}
		})
	}
}

func TestGenerateSections_RefusalUsesShipFallback(t *testing.T) {
	report := models.ReportData{
		"donnees_navires": map[string]interface{}{
			"navires": map[string]interface{}{
				"navires": []interface{}{
					map[string]interface{}{"nom": "Atlantic", "type": "Porte-conteneurs", "longueur": 300, "tirant_eau_av": 14},
				},
			},
		},
	}
	gen := &fakeGenerator{enabled: true, respond: func(string) genclient.Outcome {
		return success("Aucune donnée sur les navires n'a été fournie dans le contexte.")
	}}
	o := newTest(t, &fakeStore{}, gen, nil)

	res := o.GenerateSections(context.Background(), report, Request{Sections: []string{"navires"}})

	assert.Contains(t, res.Sections["navires"], " - Atlantic (Porte-conteneurs), 300 m, TE 14 m")
}

func TestGenerateSections_PanicCountsAsFailed(t *testing.T) {
	gen := &fakeGenerator{enabled: true, respond: func(section string) genclient.Outcome {
		if section == "analyse" {
			panic("boom")
		}
		return success("Texte généré suffisamment long pour être retenu.")
	}}
	rec := &countingRecorder{}
	o := newTest(t, &fakeStore{}, gen, rec)

	res := o.GenerateSections(context.Background(), simulationReport(), Request{Sections: []string{"analyse", "conclusion"}})

	assert.Equal(t, RunStatistics{Success: 1, Fallback: 1, Failed: 1, Total: 2}, res.Stats)
	assert.True(t, strings.HasPrefix(res.Sections["analyse"], "L'analyse des 2 simulations"))
	assert.Equal(t, OutcomeFailed, rec.sections["analyse"])
}

func TestGenerateSections_Progress(t *testing.T) {
	gen := &fakeGenerator{respond: func(string) genclient.Outcome {
		return genclient.Outcome{Status: genclient.StatusEmpty}
	}}
	o := newTest(t, &fakeStore{}, gen, nil)
	progress := &fakeProgress{}

	res := o.GenerateSections(context.Background(), simulationReport(), Request{
		Sections: []string{"introduction", "analyse", "conclusion"},
		Progress: progress,
		Range:    &Range{Start: 10, End: 40},
	})

	require.False(t, res.Stopped)
	assert.Equal(t, []progressCall{
		{step: 10, detail: "✏️ introduction en cours..."},
		{step: 20, detail: "⚠️ introduction en fallback"},
		{step: 20, detail: "✏️ analyse en cours..."},
		{step: 30, detail: "⚠️ analyse en fallback"},
		{step: 30, detail: "✏️ conclusion en cours..."},
		{step: 40, detail: "⚠️ conclusion en fallback"},
		{step: 40, detail: "✅ Sections IA traitées"},
	}, progress.updates)
	assert.Equal(t, "Génération IA: 3 sections à traiter", progress.details[0])
	assert.Contains(t, progress.details, "Section analyse en fallback")
}

func TestGenerateSections_StopRequested(t *testing.T) {
	gen := &fakeGenerator{respond: func(string) genclient.Outcome { return success("Un texte tout à fait acceptable ici.") }}
	o := newTest(t, &fakeStore{}, gen, nil)
	progress := &fakeProgress{stopAt: 2}

	res := o.GenerateSections(context.Background(), simulationReport(), Request{
		Sections: []string{"introduction", "analyse", "conclusion"},
		Progress: progress,
	})

	assert.True(t, res.Stopped)
	assert.Equal(t, []string{"introduction"}, res.Order)
	require.Len(t, progress.updates, 2)
	assert.Equal(t, "✅ introduction générée", progress.updates[1].detail)
	assert.Equal(t, 3, res.Stats.Total)
	assert.Equal(t, 1, res.Stats.Success)
}

func TestGenerateSections_ProgressNeverDecreases(t *testing.T) {
	gen := &fakeGenerator{respond: func(string) genclient.Outcome {
		return genclient.Outcome{Status: genclient.StatusEmpty}
	}}
	o := newTest(t, &fakeStore{}, gen, nil)
	progress := &fakeProgress{}

	o.GenerateSections(context.Background(), simulationReport(), Request{
		Sections: []string{"introduction", "conclusion"},
		Progress: progress,
		Range:    &Range{Start: 20, End: 10},
	})

	require.NotEmpty(t, progress.updates)
	for i, u := range progress.updates {
		assert.Equal(t, 20, u.step, "update %d", i)
	}
}

func TestGenerateSections_CancelledContext(t *testing.T) {
	gen := &fakeGenerator{respond: func(string) genclient.Outcome { return success("jamais appelé jamais appelé") }}
	o := newTest(t, &fakeStore{}, gen, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := o.GenerateSections(ctx, simulationReport(), Request{Sections: []string{"introduction"}})

	assert.True(t, res.Stopped)
	assert.Empty(t, res.Sections)
}

func TestGenerateSections_TracerAndDebugDir(t *testing.T) {
	gen := &fakeGenerator{enabled: true, respond: func(string) genclient.Outcome {
		return success("Le texte de conclusion produit par le modèle.")
	}}
	root := t.TempDir()
	o := New(Deps{
		Examples:  &fakeStore{},
		Prompts:   &fakePrompts{},
		Generator: gen,
		DebugRoot: root,
		Now:       func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) },
		NewID:     func() string { return "abcdef0123456789" },
	})
	rec := tracelog.NewRecorder(nil)

	res := o.GenerateSections(context.Background(), models.ReportData{}, Request{Sections: []string{"conclusion"}, Trace: rec})

	assert.True(t, strings.HasSuffix(res.DebugDir, "20240102_030405_abcdef01"))
	tr := rec.Finish()
	assert.Equal(t, tracelog.SourceAI, tr.SectionsGenerated["conclusion"].Source)
}

func TestStatus(t *testing.T) {
	tests := []struct {
		name      string
		store     *fakeStore
		enabled   bool
		readiness int
		prefix    string
	}{
		{"no training", &fakeStore{}, true, 0, "❌"},
		{"examples without api", &fakeStore{loaded: true, with: map[string]bool{"houle": true}}, false, 70, "⚠️"},
		{"ready", &fakeStore{loaded: true, with: map[string]bool{"houle": true}}, true, 95, "✅"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newTest(t, tt.store, &fakeGenerator{enabled: tt.enabled}, nil)
			st := o.Status(context.Background())

			assert.Equal(t, tt.readiness, st.OverallReadiness)
			assert.True(t, strings.HasPrefix(st.Recommendation, tt.prefix))
			assert.Equal(t, 20, st.SectionsCount)
			assert.Equal(t, "test-model", st.Model)
			assert.Equal(t, tt.enabled, st.APIAvailable)
			assert.Equal(t, tt.store.loaded, st.FewShotEnabled)
			assert.Equal(t, 1, tt.store.loads)
		})
	}
}
