package notification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"apply-desk/internal/common/logger"
	"apply-desk/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestES(t *testing.T, handler http.HandlerFunc) *elasticsearch.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return es
}

func TestElasticAttemptLog_IndexesDocument(t *testing.T) {
	var gotPath string
	var gotDoc models.NotificationAttempt
	es := newTestES(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotDoc)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	})

	log := NewElasticAttemptLog(es, "attempts")
	attempt := models.NotificationAttempt{
		ID:            "0b7c8d7e-1111-4c1e-9e7a-123456789abc",
		ApplicationID: "17",
		Channel:       models.ChannelEmail,
		Provider:      "ses",
		Recipient:     "admin@apt.kr",
		Status:        models.AttemptSent,
		Timestamp:     time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, log.AppendNotificationAttempt(context.Background(), attempt))

	assert.True(t, strings.HasPrefix(gotPath, "/attempts/_create/"+attempt.ID) || strings.HasPrefix(gotPath, "/attempts/_doc/"+attempt.ID), gotPath)
	assert.Equal(t, "17", gotDoc.ApplicationID)
	assert.Equal(t, "admin@apt.kr", gotDoc.Recipient)
}

func TestElasticAttemptLog_ErrorStatus(t *testing.T) {
	es := newTestES(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"version_conflict_engine_exception"}`))
	})

	err := NewElasticAttemptLog(es, "").AppendNotificationAttempt(context.Background(), models.NotificationAttempt{ID: "x"})
	assert.ErrorContains(t, err, "409")
}

func TestMultiAttemptLog_AppendsToAll(t *testing.T) {
	a := &memoryAttemptLog{}
	b := &memoryAttemptLog{err: errors.New("es down")}
	c := &memoryAttemptLog{}

	err := MultiAttemptLog{a, b, c}.AppendNotificationAttempt(context.Background(), models.NotificationAttempt{ID: "1"})
	assert.ErrorContains(t, err, "es down")
	assert.Len(t, a.all(), 1)
	assert.Len(t, c.all(), 1)
}

func TestLogAttemptLog(t *testing.T) {
	assert.NoError(t, LogAttemptLog{Logger: logger.NewTestLogger(t)}.AppendNotificationAttempt(context.Background(), models.NotificationAttempt{}))
}
