// Package pipeline wires example retrieval, prompt assembly, generation and
// integration from configuration and runs them for one report.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"report-workers/internal/common/config"
	"report-workers/internal/common/database"
	commonhttp "report-workers/internal/common/http"
	"report-workers/internal/common/logger"
	"report-workers/internal/common/metrics"
	"report-workers/internal/common/observability"
	"report-workers/internal/models"
	"report-workers/internal/report/examples"
	"report-workers/internal/report/genclient"
	"report-workers/internal/report/integrator"
	"report-workers/internal/report/orchestrator"
	"report-workers/internal/report/prompt"
	"report-workers/internal/report/sections"
	"report-workers/internal/report/tracelog"
)

// Deps are the optional shared clients. Postgres is required only for the
// postgres example source; a nil Redis disables the response cache.
type Deps struct {
	Postgres      *database.PostgresClient
	Redis         redis.Cmdable
	Observability *observability.Observability
	Doer          commonhttp.Doer
	Sleep         genclient.SleepFunc
	Now           func() time.Time
}

type Pipeline struct {
	orchestrator *orchestrator.Orchestrator
	traceDir     string
	now          func() time.Time
	log          logger.Logger
}

// Result is the outcome of Run.
type Result struct {
	ReportData        models.ReportData              `json:"reportData"`
	GeneratedSections map[string]string              `json:"generatedSections"`
	Statistics        orchestrator.RunStatistics     `json:"statistics"`
	Stopped           bool                           `json:"stopped"`
	RunID             string                         `json:"runId"`
	Problems          []*integrator.IntegrationError `json:"-"`
}

func New(cfg *config.Config, log logger.Logger, deps Deps) (*Pipeline, error) {
	log = logger.OrNoOp(log)
	if deps.Now == nil {
		deps.Now = time.Now
	}

	source, err := exampleSource(cfg.Examples, deps.Postgres)
	if err != nil {
		return nil, err
	}
	storeOpts := []examples.Option{}
	if cfg.Examples.ExpectedVersion != "" {
		storeOpts = append(storeOpts, examples.WithExpectedVersion(cfg.Examples.ExpectedVersion))
	}
	store := examples.NewStore(source, cfg.Examples.FewShotCount, log, storeOpts...)

	var clientOpts []genclient.Option
	if deps.Doer != nil {
		clientOpts = append(clientOpts, genclient.WithDoer(deps.Doer))
	}
	if deps.Sleep != nil {
		clientOpts = append(clientOpts, genclient.WithSleep(deps.Sleep))
	}
	if deps.Redis != nil && cfg.Generation.CacheTTL > 0 {
		ttl := time.Duration(cfg.Generation.CacheTTL) * time.Second
		clientOpts = append(clientOpts, genclient.WithCache(genclient.NewRedisCache(deps.Redis, ttl, log)))
	}
	generator := genclient.NewClient(cfg.Generation, log, clientOpts...)

	recorders := []orchestrator.Recorder{metrics.Prometheus{}}
	od := orchestrator.Deps{
		Examples:  store,
		Prompts:   prompt.NewAssembler(cfg.Prompts.Directory, store, cfg.Examples.FewShotCount, log),
		Generator: generator,
		DebugRoot: cfg.Debug.Directory,
		Log:       log,
		Now:       deps.Now,
	}
	if deps.Observability != nil {
		recorders = append(recorders, deps.Observability)
		od.Tracer = deps.Observability.Tracer()
	}
	od.Recorders = recorders

	log.Info("Report pipeline configured", map[string]interface{}{
		"examplesSource": source.Name(),
		"model":          generator.Model(),
		"generation":     generator.Enabled(),
		"prompts":        cfg.Prompts.Directory,
	})

	return &Pipeline{
		orchestrator: orchestrator.New(od),
		traceDir:     cfg.Trace.Directory,
		now:          deps.Now,
		log:          log,
	}, nil
}

func exampleSource(cfg config.ExamplesConfig, pg *database.PostgresClient) (examples.Source, error) {
	switch cfg.Source {
	case config.ExampleSourceDB:
		if pg == nil {
			return nil, fmt.Errorf("examples source %q requires a postgres client", cfg.Source)
		}
		return examples.NewPostgresSource(pg), nil
	case config.ExampleSourceFile, "":
		return examples.NewFileSource(cfg.CacheDirectory, cfg.ExamplesFile, cfg.MetadataFile), nil
	default:
		return nil, fmt.Errorf("unknown examples source %q", cfg.Source)
	}
}

// Run generates the requested sections and merges them into a copy of report.
// When nothing was generated the copy equals report.
func (p *Pipeline) Run(ctx context.Context, report models.ReportData, req orchestrator.Request) *Result {
	tracer := req.Trace
	if tracer == nil {
		tracer = tracelog.New(p.traceDir, p.now, p.log)
		req.Trace = tracer
	}
	tracer.Start(report.Title(""))

	run := p.orchestrator.GenerateSections(ctx, report, req)
	res := &Result{
		ReportData:        integrator.DeepCopy(report),
		GeneratedSections: run.Sections,
		Statistics:        run.Stats,
		Stopped:           run.Stopped,
		RunID:             run.RunID,
	}

	if len(run.Sections) > 0 {
		res.ReportData, res.Problems = integrator.New(p.log).WithTracer(tracer).Integrate(report, run.Sections)
		for _, problem := range res.Problems {
			p.log.Warn("Section not integrated", map[string]interface{}{
				"section": problem.Section,
				"error":   problem.Error(),
			})
		}
	} else {
		p.log.Info("No section generated, report left unchanged", map[string]interface{}{"runId": run.RunID})
	}

	tracer.Finish()
	return res
}

// Status reports few-shot and endpoint readiness.
func (p *Pipeline) Status(ctx context.Context) orchestrator.SystemStatus {
	return p.orchestrator.Status(ctx)
}

// Sections lists the known section names in declared order.
func (p *Pipeline) Sections() []string {
	return sections.Names()
}
