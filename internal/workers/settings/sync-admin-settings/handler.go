package syncadminsettings

import (
	"context"
	"encoding/json"
	"time"

	"apply-desk/internal/common/camunda"
	"apply-desk/internal/common/clock"
	"apply-desk/internal/common/errors"
	"apply-desk/internal/common/logger"
	"apply-desk/internal/common/metrics"
	"apply-desk/internal/common/validation"
	"apply-desk/internal/models"
	"apply-desk/internal/settings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "sync-admin-settings"
)

// SettingsSync is *settings.Sync.
type SettingsSync interface {
	Pull(ctx context.Context) settings.PullResult
	Push(ctx context.Context, s models.AdminSettings) error
}

// LocalSettings is *settings.RecipientStore.
type LocalSettings interface {
	Snapshot(ctx context.Context) (models.AdminSettings, error)
}

type Handler struct {
	config     *Config
	sync       SettingsSync
	local      LocalSettings
	clock      clock.Clock
	errHandler *errors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, sync SettingsSync, local LocalSettings, clk clock.Clock, log logger.Logger) *Handler {
	if config == nil {
		config = LoadConfig()
	}
	if clk == nil {
		clk = clock.Real()
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		sync:       sync,
		local:      local,
		clock:      clk,
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

	input, err := h.parseInput(job)
	if err == nil {
		var output *Output
		if output, err = h.Execute(ctx, input); err == nil {
			h.completeJob(ctx, client, job, output, startTime)
			return
		}
	}

	metrics.WorkerJobsFailed.WithLabelValues(TaskType, errorCode(err)).Inc()
	h.errHandler.HandleJobError(ctx, client, job, err)
}

// Execute runs one pull or push. A missing remote row is not an error.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	direction := input.Direction
	if direction == "" {
		direction = DirectionPull
	}

	var status string
	switch direction {
	case DirectionPull:
		res := h.sync.Pull(ctx)
		if res.Status == settings.PullFailed {
			return nil, res.Err
		}
		status = string(res.Status)

	case DirectionPush:
		snapshot, err := h.local.Snapshot(ctx)
		if err != nil {
			return nil, errors.NewSettingsSyncFailedError(err)
		}
		if err := h.sync.Push(ctx, snapshot); err != nil {
			return nil, err
		}
		status = "pushed"

	default:
		return nil, errors.NewInputValidationError("unknown direction: " + direction)
	}

	current, err := h.local.Snapshot(ctx)
	if err != nil {
		return nil, errors.NewSettingsSyncFailedError(err)
	}

	h.logger.Info("admin settings synced", map[string]interface{}{
		"direction": direction,
		"status":    status,
	})
	return &Output{
		SyncDirection: direction,
		SyncStatus:    status,
		Title:         current.Title,
		PhoneCount:    len(current.Phones),
		EmailCount:    len(current.Emails),
		SyncedAt:      h.clock.Now().UTC().Format(time.RFC3339),
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
		h.logger.Error("failed to create complete job command", map[string]interface{}{"error": err.Error()})
		return
	}
	sendCtx, cancel := camunda.CommandContext(ctx)
	defer cancel()
	if _, err := cmd.Send(sendCtx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{"error": err.Error()})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
}

func errorCode(err error) string {
	if se, ok := errors.AsStandard(err); ok {
		return string(se.Code)
	}
	return string(errors.ErrCodeInternal)
}
