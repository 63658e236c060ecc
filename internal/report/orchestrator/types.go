// internal/report/orchestrator/types.go
package orchestrator

import (
	"context"
	"time"

	"report-workers/internal/models"
	"report-workers/internal/report/examples"
	"report-workers/internal/report/genclient"
	"report-workers/internal/report/tracelog"
)

const (
	DefaultProgressStart = 20
	DefaultProgressEnd   = 65

	phase = "Génération IA"

	OutcomeSuccess  = "success"
	OutcomeFallback = "fallback"
	OutcomeFailed   = "failed"
)

// Progress is the caller's progress sink. Update returning false asks the run to stop
// before the next section.
type Progress interface {
	Update(step int, phase, detail string) bool
	LogDetail(detail string)
}

type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Request selects what to generate. Nil Sections means the whole table in declared order.
type Request struct {
	Sections []string
	Progress Progress
	Range    *Range
	Trace    tracelog.Tracer
}

type RunStatistics struct {
	Success      int `json:"success"`
	Fallback     int `json:"fallback"`
	Failed       int `json:"failed"`
	WithExamples int `json:"with_examples"`
	Total        int `json:"total"`
}

type RunResult struct {
	RunID    string            `json:"runId"`
	Sections map[string]string `json:"sections"`
	Sources  map[string]string `json:"sources"`
	Order    []string          `json:"order"`
	Stats    RunStatistics     `json:"statistics"`
	Stopped  bool              `json:"stopped"`
	DebugDir string            `json:"debugDir,omitempty"`
}

// ExampleStore is the part of examples.Store the orchestrator uses.
type ExampleStore interface {
	Load(ctx context.Context) bool
	HasExamples(section string) bool
	Summary() examples.Summary
}

type PromptBuilder interface {
	Build(ctx context.Context, section string, report models.ReportData) string
}

type Generator interface {
	Generate(ctx context.Context, section, prompt string) genclient.Outcome
	Model() string
	Enabled() bool
}

// Recorder exports per-section and per-call measurements.
type Recorder interface {
	RecordSection(ctx context.Context, section, outcome string, d time.Duration)
	RecordGeneration(ctx context.Context, result string)
}

type multiRecorder []Recorder

func (m multiRecorder) RecordSection(ctx context.Context, section, outcome string, d time.Duration) {
	for _, r := range m {
		r.RecordSection(ctx, section, outcome, d)
	}
}

func (m multiRecorder) RecordGeneration(ctx context.Context, result string) {
	for _, r := range m {
		r.RecordGeneration(ctx, result)
	}
}

// SystemStatus reports whether few-shot generation is possible.
type SystemStatus struct {
	OverallReadiness  int    `json:"overall_readiness"`
	TrainingAvailable bool   `json:"training_available"`
	ExamplesCount     int    `json:"examples_count"`
	APIAvailable      bool   `json:"api_available"`
	SectionsCount     int    `json:"sections_count"`
	Model             string `json:"model"`
	FewShotEnabled    bool   `json:"few_shot_enabled"`
	Recommendation    string `json:"recommendation"`
}
