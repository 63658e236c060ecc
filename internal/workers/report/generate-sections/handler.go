// internal/workers/report/generate-sections/handler.go
package generatesections

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "report-workers/internal/common/errors"
	"report-workers/internal/common/logger"
	"report-workers/internal/common/validation"
	"report-workers/internal/models"
	"report-workers/internal/report/orchestrator"
	"report-workers/internal/report/pipeline"
)

const (
	TaskType = "generate-report-sections"
)

var (
	ErrInvalidInput = errors.New("INVALID_REPORT_DATA")
)

// Runner is the report pipeline.
type Runner interface {
	Run(ctx context.Context, report models.ReportData, req orchestrator.Request) *pipeline.Result
}

type Handler struct {
	config *Config
	runner Runner
	schema *validation.Schema
	errors *apperrors.ErrorHandler
	logger logger.Logger
}

func NewHandler(config *Config, runner Runner, log logger.Logger) (*Handler, error) {
	log = logger.OrNoOp(log)
	h := &Handler{
		config: config,
		runner: runner,
		errors: apperrors.NewErrorHandler(log),
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
	if config.InputSchema != nil {
		schema, err := validation.Compile(config.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("%s input schema: %w", TaskType, err)
		}
		h.schema = schema
	}
	return h, nil
}

// Handle fails the job only on invalid input; a generation run always completes it.
func (h *Handler) Handle(client worker.JobClient, job entities.Job) error {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	input, err := h.ParseInput([]byte(job.Variables))
	if err != nil {
		h.errors.HandleJobError(context.Background(), client, job, err)
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.errors.HandleJobError(context.Background(), client, job, err)
		return err
	}
	return h.completeJob(client, job, output)
}

// ParseInput validates the job variables against the registry schema and decodes them.
func (h *Handler) ParseInput(variables []byte) (*Input, error) {
	if h.schema != nil {
		result, err := h.schema.ValidateBytes(variables)
		if err != nil {
			return nil, invalid(err.Error())
		}
		if !result.Valid {
			msgs := make([]string, 0, len(result.Errors))
			for _, e := range result.Errors {
				msgs = append(msgs, strings.TrimPrefix(e.Field+": "+e.Message, ": "))
			}
			return nil, invalid(strings.Join(msgs, "; "))
		}
	}

	var input Input
	if err := json.Unmarshal(variables, &input); err != nil {
		return nil, invalid(fmt.Sprintf("parse input: %v", err))
	}
	if input.ReportData == nil {
		return nil, invalid("reportData is required")
	}
	if r := input.progressRange(); r != nil && r.Start > r.End {
		return nil, invalid(fmt.Sprintf("progressStart %d is after progressEnd %d", r.Start, r.End))
	}
	return &input, nil
}

// progressRange fills the missing bound with its default; nil when neither is given.
func (in *Input) progressRange() *orchestrator.Range {
	if in.ProgressStart == nil && in.ProgressEnd == nil {
		return nil
	}
	r := orchestrator.Range{Start: orchestrator.DefaultProgressStart, End: orchestrator.DefaultProgressEnd}
	if in.ProgressStart != nil {
		r.Start = *in.ProgressStart
	}
	if in.ProgressEnd != nil {
		r.End = *in.ProgressEnd
	}
	return &r
}

func invalid(details string) error {
	return fmt.Errorf("%w: %w", ErrInvalidInput, apperrors.NewInvalidReportDataError(details))
}

// Execute runs the pipeline. The context deadline stops the run between sections.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil || input.ReportData == nil {
		return nil, invalid("reportData is required")
	}

	req := orchestrator.Request{
		Sections: input.Sections,
		Progress: &jobProgress{ctx: ctx, logger: h.logger},
		Range:    input.progressRange(),
	}

	started := time.Now()
	res := h.runner.Run(ctx, models.ReportData(input.ReportData), req)

	h.logger.Info("Report sections generated", map[string]interface{}{
		"runId":      res.RunID,
		"success":    res.Statistics.Success,
		"fallback":   res.Statistics.Fallback,
		"failed":     res.Statistics.Failed,
		"stopped":    res.Stopped,
		"durationMs": time.Since(started).Milliseconds(),
	})

	generated := res.GeneratedSections
	if generated == nil {
		generated = map[string]string{}
	}
	return &Output{
		ReportData:        map[string]interface{}(res.ReportData),
		GeneratedSections: generated,
		Statistics:        res.Statistics,
		Stopped:           res.Stopped,
	}, nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) error {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return err
	}

	if _, err = cmd.Send(context.Background()); err != nil {
		h.logger.Error("Failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return err
	}
	return nil
}

// jobProgress logs progress and asks the run to stop once the job deadline has passed.
type jobProgress struct {
	ctx    context.Context
	logger logger.Logger
}

func (p *jobProgress) Update(step int, phase, detail string) bool {
	if err := p.ctx.Err(); err != nil {
		p.logger.Warn("Job deadline reached, stopping generation", map[string]interface{}{"step": step})
		return false
	}
	p.logger.Debug(phase, map[string]interface{}{"step": step, "detail": detail})
	return true
}

func (p *jobProgress) LogDetail(detail string) {
	p.logger.Debug(detail, nil)
}
