package submitapplication

import (
	"context"
	"encoding/json"
	"time"

	"apply-desk/internal/common/camunda"
	"apply-desk/internal/common/errors"
	"apply-desk/internal/common/logger"
	"apply-desk/internal/common/metrics"
	"apply-desk/internal/common/observability"
	"apply-desk/internal/common/validation"
	"apply-desk/internal/models"
	"apply-desk/internal/submission"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	TaskType = "submit-application"
)

// Submitter is *submission.Service.
type Submitter interface {
	Submit(ctx context.Context, draft models.ApplicationDraft) (*submission.Result, error)
}

type Handler struct {
	config     *Config
	submitter  Submitter
	obs        *observability.Observability
	errHandler *errors.ErrorHandler
	logger     logger.Logger
}

// NewHandler builds the handler. obs may be nil.
func NewHandler(config *Config, submitter Submitter, obs *observability.Observability, log logger.Logger) *Handler {
	if config == nil {
		config = LoadConfig()
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		submitter:  submitter,
		obs:        obs,
		errHandler: errors.NewErrorHandler(log),
		logger:     log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()
	if h.obs != nil {
		var span trace.Span
		ctx, span = h.obs.StartSpan(ctx, TaskType,
			attribute.Int64("jobKey", job.Key),
			attribute.Int64("processInstanceKey", job.ProcessInstanceKey))
		defer span.End()
	}

	input, err := h.parseInput(job)
	if err != nil {
		h.failJob(ctx, client, job, err, startTime)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.failJob(ctx, client, job, err, startTime)
		return
	}

	h.completeJob(ctx, client, job, output, startTime)
}

// Execute runs one submission and maps the result to process variables.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	result, err := h.submitter.Submit(ctx, input.Draft())
	if err != nil {
		return nil, err
	}

	app := result.Application
	h.logger.Info("application submitted", map[string]interface{}{
		"applicationNumber": app.ApplicationNumber,
		"path":              result.Path,
		"sentCount":         result.SentCount,
		"totalAttempted":    result.TotalAttempted,
	})

	return &Output{
		ApplicationID:     app.ID,
		ApplicationNumber: app.ApplicationNumber,
		ApplicationStatus: app.Status,
		SubmissionPath:    result.Path,
		Notified:          result.Notified,
		SentCount:         result.SentCount,
		TotalAttempted:    result.TotalAttempted,
		FallbackNotice:    result.FallbackNotice,
		SubmittedAt:       app.SubmittedAt.UTC().Format(time.RFC3339),
	}, nil
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, errors.NewInputValidationError("parse job variables: " + err.Error())
	}

	if err := validation.ValidateInput(variables, GetInputSchema()).Err(); err != nil {
		return nil, err
	}

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		return nil, errors.NewInputValidationError("decode job variables: " + err.Error())
	}
	return &input, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output, startTime time.Time) {
	cmd, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}
	sendCtx, cancel := camunda.CommandContext(ctx)
	defer cancel()
	if _, err := cmd.Send(sendCtx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
	h.record(ctx, "completed", startTime)
	h.logger.Info("job completed", map[string]interface{}{
		"jobKey":            job.GetKey(),
		"applicationNumber": output.ApplicationNumber,
	})
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error, startTime time.Time) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, errorCode(err)).Inc()
	outcome := h.errHandler.HandleJobError(ctx, client, job, err)
	h.record(ctx, string(outcome), startTime)
}

func (h *Handler) record(ctx context.Context, status string, startTime time.Time) {
	if h.obs == nil {
		return
	}
	h.obs.RecordJobProcessed(ctx, TaskType, status)
	h.obs.RecordJobDuration(ctx, TaskType, time.Since(startTime), status)
}

func errorCode(err error) string {
	if se, ok := errors.AsStandard(err); ok {
		return string(se.Code)
	}
	return string(errors.ErrCodeInternal)
}
