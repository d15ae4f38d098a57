package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"apply-desk/internal/common/logger"
	"apply-desk/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// AttemptLog is the append-only notification attempt log.
// *remotestore.Store implements it.
type AttemptLog interface {
	AppendNotificationAttempt(ctx context.Context, attempt models.NotificationAttempt) error
}

// ElasticAttemptLog mirrors attempts into an Elasticsearch index, one
// document per attempt keyed by the attempt id.
type ElasticAttemptLog struct {
	es    *elasticsearch.Client
	index string
}

func NewElasticAttemptLog(es *elasticsearch.Client, index string) *ElasticAttemptLog {
	if index == "" {
		index = "notification-attempts"
	}
	return &ElasticAttemptLog{es: es, index: index}
}

func (l *ElasticAttemptLog) AppendNotificationAttempt(ctx context.Context, attempt models.NotificationAttempt) error {
	body, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("encode attempt: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      l.index,
		DocumentID: attempt.ID,
		Body:       bytes.NewReader(body),
		OpType:     "create",
	}
	res, err := req.Do(ctx, l.es)
	if err != nil {
		return fmt.Errorf("elasticsearch index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch index error: %s", res.Status())
	}
	return nil
}

// MultiAttemptLog appends to every log and joins the failures.
type MultiAttemptLog []AttemptLog

func (m MultiAttemptLog) AppendNotificationAttempt(ctx context.Context, attempt models.NotificationAttempt) error {
	var errs []error
	for _, l := range m {
		if err := l.AppendNotificationAttempt(ctx, attempt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogAttemptLog writes attempts to the structured log. Used when no store is
// configured.
type LogAttemptLog struct {
	Logger logger.Logger
}

func (l LogAttemptLog) AppendNotificationAttempt(_ context.Context, attempt models.NotificationAttempt) error {
	l.Logger.Info("notification attempt", map[string]interface{}{
		"attemptId":     attempt.ID,
		"applicationId": attempt.ApplicationID,
		"channel":       attempt.Channel,
		"provider":      attempt.Provider,
		"recipient":     attempt.Recipient,
		"status":        attempt.Status,
		"error":         attempt.Error,
	})
	return nil
}
