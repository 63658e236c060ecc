// Package orchestrator generates report sections one after another, falling back to
// deterministic text whenever the model gives nothing usable.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	apperrors "report-workers/internal/common/errors"
	"report-workers/internal/common/logger"
	"report-workers/internal/common/metrics"
	"report-workers/internal/models"
	"report-workers/internal/report/debugdump"
	"report-workers/internal/report/genclient"
	"report-workers/internal/report/sections"
	"report-workers/internal/report/tracelog"
)

type Deps struct {
	Examples  ExampleStore
	Prompts   PromptBuilder
	Generator Generator
	Recorders []Recorder
	Tracer    trace.Tracer
	DebugRoot string
	Log       logger.Logger
	Now       func() time.Time
	NewID     func() string
}

type Orchestrator struct {
	examples  ExampleStore
	prompts   PromptBuilder
	generator Generator
	recorder  multiRecorder
	tracer    trace.Tracer
	debugRoot string
	log       logger.Logger
	now       func() time.Time
	newID     func() string
}

func New(d Deps) *Orchestrator {
	o := &Orchestrator{
		examples:  d.Examples,
		prompts:   d.Prompts,
		generator: d.Generator,
		recorder:  multiRecorder(d.Recorders),
		tracer:    d.Tracer,
		debugRoot: d.DebugRoot,
		log:       logger.OrNoOp(d.Log),
		now:       d.Now,
		newID:     d.NewID,
	}
	if o.tracer == nil {
		o.tracer = noop.NewTracerProvider().Tracer("report-workers")
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.newID == nil {
		o.newID = uuid.NewString
	}
	return o
}

// run holds the state of one GenerateSections call.
type run struct {
	id     string
	report models.ReportData
	dump   debugdump.Dumper
	trace  tracelog.Tracer
	log    logger.Logger
	result *RunResult
}

// GenerateSections produces a text for every requested section. It never returns an
// error: generation failures degrade to fallback text and are counted in the statistics.
func (o *Orchestrator) GenerateSections(ctx context.Context, report models.ReportData, req Request) *RunResult {
	names := req.Sections
	if names == nil {
		names = sections.Names()
	}

	r := &run{
		id:     o.newID(),
		report: report,
		trace:  req.Trace,
		result: &RunResult{
			Sections: make(map[string]string, len(names)),
			Sources:  make(map[string]string, len(names)),
		},
	}
	if r.trace == nil {
		r.trace = tracelog.Nop{}
	}
	r.result.RunID = r.id
	r.log = o.log.With(map[string]interface{}{"runId": r.id})

	ctx, span := o.tracer.Start(ctx, "report.generate_sections", trace.WithAttributes(
		attribute.String("run.id", r.id),
		attribute.Int("sections.requested", len(names)),
	))
	defer span.End()

	o.loadExamples(ctx, r)
	r.dump = debugdump.NewRunDir(o.debugRoot, r.id, o.now, r.log)
	r.result.DebugDir = r.dump.Dir()
	ctx = debugdump.WithContext(ctx, r.dump)

	start, end := DefaultProgressStart, DefaultProgressEnd
	if req.Range != nil {
		start, end = req.Range.Start, req.Range.End
	}
	end = max(end, start)
	step := (end - start) / max(1, len(names))
	if step < 1 {
		step = 1
	}
	current := start

	r.log.Info("Generating report sections", map[string]interface{}{"count": len(names)})
	if req.Progress != nil {
		req.Progress.LogDetail(fmt.Sprintf("Génération IA: %d sections à traiter", len(names)))
	}

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			r.log.Warn("Run cancelled, returning partial result", map[string]interface{}{"error": err.Error()})
			r.result.Stopped = true
			break
		}
		if req.Progress != nil {
			req.Progress.LogDetail(fmt.Sprintf("Génération de la section %s en cours...", name))
			if !req.Progress.Update(current, phase, fmt.Sprintf("✏️ %s en cours...", name)) {
				r.log.Info("Stop requested, returning partial result", map[string]interface{}{"section": name})
				r.result.Stopped = true
				break
			}
		}

		text, outcome := o.processSection(ctx, r, name)
		current = min(end, current+step)
		if req.Progress != nil {
			status := fmt.Sprintf("⚠️ %s en fallback", name)
			if outcome == OutcomeSuccess {
				req.Progress.LogDetail(fmt.Sprintf("Section %s générée (%d caractères)", name, len([]rune(text))))
				status = fmt.Sprintf("✅ %s générée", name)
			} else {
				req.Progress.LogDetail(fmt.Sprintf("Section %s en fallback", name))
			}
			if !req.Progress.Update(current, phase, status) {
				r.log.Info("Stop requested, returning partial result", map[string]interface{}{"section": name})
				r.result.Stopped = true
				break
			}
		}
	}

	if req.Progress != nil && !r.result.Stopped {
		req.Progress.Update(end, phase, "✅ Sections IA traitées")
	}

	r.result.Stats.Total = len(names)
	span.SetAttributes(
		attribute.Int("sections.success", r.result.Stats.Success),
		attribute.Int("sections.fallback", r.result.Stats.Fallback),
		attribute.Int("sections.failed", r.result.Stats.Failed),
		attribute.Bool("run.stopped", r.result.Stopped),
	)
	o.logStats(r)
	return r.result
}

func (o *Orchestrator) loadExamples(ctx context.Context, r *run) {
	if o.examples == nil {
		r.log.Warn("No example store configured, fallback mode", nil)
		return
	}
	if o.examples.Load(ctx) {
		summary := o.examples.Summary()
		metrics.ExamplesLoaded.Set(float64(summary.Examples))
		r.log.Info("Few-shot examples available", map[string]interface{}{
			"sections": summary.Sections,
			"examples": summary.Examples,
		})
		return
	}
	metrics.ExamplesLoaded.Set(0)
	r.log.Warn("Fallback mode, no few-shot examples", nil)
}

// processSection runs one section inside its own recover boundary and records the text.
func (o *Orchestrator) processSection(ctx context.Context, r *run, name string) (string, string) {
	ctx, span := o.tracer.Start(ctx, "report.section", trace.WithAttributes(attribute.String("section", name)))
	defer span.End()
	started := o.now()
	log := r.log.With(map[string]interface{}{"section": name})

	text, accepted, err := o.attempt(ctx, r, name)
	outcome := OutcomeSuccess
	switch {
	case err != nil:
		outcome = OutcomeFailed
		r.result.Stats.Failed++
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("Section generation failed, using fallback", map[string]interface{}{"error": err.Error()})
		text = o.safeFallback(r, name)
		r.result.Stats.Fallback++
	case accepted:
		r.result.Stats.Success++
		if o.examples != nil && o.examples.HasExamples(name) {
			r.result.Stats.WithExamples++
		}
		log.Info("Section generated", map[string]interface{}{"chars": len([]rune(text))})
	default:
		outcome = OutcomeFallback
		text = o.safeFallback(r, name)
		r.result.Stats.Fallback++
		log.Info("Section in fallback", map[string]interface{}{"chars": len([]rune(text))})
	}

	source := tracelog.SourceFallback
	if accepted && err == nil {
		source = tracelog.SourceAI
	}
	if _, seen := r.result.Sections[name]; !seen {
		r.result.Order = append(r.result.Order, name)
	}
	r.result.Sections[name] = text
	r.result.Sources[name] = source
	r.dump.Generated(name, text)
	r.trace.Generated(name, text, source)

	span.SetAttributes(attribute.String("section.outcome", outcome))
	o.recorder.RecordSection(ctx, name, outcome, o.now().Sub(started))
	return text, outcome
}

// attempt builds the prompt and calls the model. A panic anywhere is returned as err.
func (o *Orchestrator) attempt(ctx context.Context, r *run, name string) (text string, accepted bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			text, accepted = "", false
			err = apperrors.NewInternalError(fmt.Errorf("section %s: %v", name, rec))
		}
	}()

	if o.prompts == nil || o.generator == nil {
		return "", false, nil
	}

	prompt := o.prompts.Build(ctx, name, r.report)
	out := o.generator.Generate(ctx, name, prompt)
	o.recorder.RecordGeneration(ctx, out.Label())

	if !out.Accepted() {
		if out.Err != nil {
			r.trace.Warning(fmt.Sprintf("%s: %v", name, out.Err))
		}
		return "", false, nil
	}
	text = strings.TrimSpace(out.Text)
	if len([]rune(text)) <= genclient.MinAcceptedLength {
		return "", false, nil
	}
	if spec, ok := sections.Lookup(name); ok && spec.Refusal != nil {
		if phrase, refused := spec.Refusal.Detect(text); refused {
			refusal := apperrors.NewGenerationRefusedError(name, phrase)
			r.log.Warn("Generated text is a refusal, discarded", map[string]interface{}{
				"section": name,
				"error":   refusal.Error(),
			})
			r.trace.Warning(refusal.Error())
			return "", false, nil
		}
	}
	return text, true, nil
}

// safeFallback walks the fallback ladder; a panic there drops to the generic sentence.
func (o *Orchestrator) safeFallback(r *run, name string) (text string) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("Section fallback failed", map[string]interface{}{"section": name, "panic": fmt.Sprint(rec)})
			text = sections.GenericFallback(name, models.ReportData{})
		}
	}()
	return sections.FallbackText(name, r.report)
}

func (o *Orchestrator) logStats(r *run) {
	s := r.result.Stats
	r.log.Info("Section generation finished", map[string]interface{}{
		"total":         s.Total,
		"success":       s.Success,
		"fallback":      s.Fallback,
		"failed":        s.Failed,
		"with_examples": s.WithExamples,
		"stopped":       r.result.Stopped,
		"debugDir":      r.result.DebugDir,
	})
}

// Status reloads the example cache and reports readiness: 0 without examples,
// 70 with examples only, 95 with examples and an enabled endpoint.
func (o *Orchestrator) Status(ctx context.Context) SystemStatus {
	st := SystemStatus{SectionsCount: len(sections.Table)}
	if o.generator != nil {
		st.APIAvailable = o.generator.Enabled()
		st.Model = o.generator.Model()
	}

	if o.examples == nil || !o.examples.Load(ctx) {
		st.Recommendation = "❌ Entraînement requis - exécuter le job d'entraînement granulaire"
		return st
	}

	st.TrainingAvailable = true
	st.FewShotEnabled = true
	st.ExamplesCount = o.examples.Summary().Examples
	st.OverallReadiness = 70
	if st.APIAvailable {
		st.OverallReadiness = 95
		st.Recommendation = "✅ Système opérationnel avec few-shot examples"
	} else {
		st.Recommendation = "⚠️ API non disponible - Mode fallback"
	}
	return st
}
