package camunda

import (
	"context"
	"time"

	"apply-desk/internal/common/config"
	"apply-desk/internal/common/errors"
	"apply-desk/internal/common/logger"
	"apply-desk/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// JobHandler is the signature every task handler exposes as Handle.
type JobHandler func(client worker.JobClient, job entities.Job)

// JobWorkerOpener is the part of zbc.Client StartWorker needs.
type JobWorkerOpener interface {
	NewJobWorker() worker.JobWorkerBuilderStep1
}

var _ JobWorkerOpener = zbc.Client(nil)

// Worker is one open job subscription.
type Worker struct {
	jobWorker worker.JobWorker
	logger    logger.Logger
	taskType  string
}

// StartWorker opens a subscription for taskType. It returns nil when the
// worker is disabled in config.
func StartWorker(client JobWorkerOpener, taskType string, wcfg config.WorkerConfig, handler JobHandler, log logger.Logger) *Worker {
	log = log.WithFields(map[string]interface{}{"taskType": taskType})
	if !wcfg.Enabled {
		log.Info("worker disabled", nil)
		return nil
	}

	jw := client.NewJobWorker().
		JobType(taskType).
		Handler(Track(taskType, handler)).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(JobTimeout(wcfg)).
		Open()

	log.Info("worker started", map[string]interface{}{
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeout_ms":    wcfg.Timeout,
	})
	return &Worker{jobWorker: jw, logger: log, taskType: taskType}
}

// JobTimeout is the broker activation timeout for a worker. It outlasts the
// handler deadline by one command window so the closing complete or fail
// command lands before the job can be handed to another worker.
func JobTimeout(wcfg config.WorkerConfig) time.Duration {
	return config.GetDuration(wcfg.Timeout) + errors.CommandTimeout
}

// CommandContext detaches a job command from the handler deadline and gives
// it its own short timeout.
func CommandContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), errors.CommandTimeout)
}

// Track keeps the active-jobs gauge current around handler.
func Track(taskType string, handler JobHandler) worker.JobHandler {
	return func(client worker.JobClient, job entities.Job) {
		metrics.WorkerJobsActive.WithLabelValues(taskType).Inc()
		defer metrics.WorkerJobsActive.WithLabelValues(taskType).Dec()
		handler(client, job)
	}
}

func (w *Worker) TaskType() string { return w.taskType }

// Stop closes the subscription and waits for in-flight jobs.
func (w *Worker) Stop() {
	w.logger.Info("stopping worker", nil)
	w.jobWorker.Close()
	w.jobWorker.AwaitClose()
}
