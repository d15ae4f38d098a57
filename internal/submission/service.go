// Package submission runs the application submission state machine:
// validation, remote persistence with local fallback, and notification.
package submission

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"apply-desk/internal/common/clock"
	apperrors "apply-desk/internal/common/errors"
	"apply-desk/internal/common/logger"
	"apply-desk/internal/common/metrics"
	"apply-desk/internal/ledger"
	"apply-desk/internal/models"
	"apply-desk/internal/notification"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type State string

const (
	StateIdle            State = "idle"
	StateValidating      State = "validating"
	StatePersisting      State = "persisting"
	StateRemotePersisted State = "remote_persisted"
	StateLocalFallback   State = "local_fallback"
	StateNotifying       State = "notifying"
	StateCompleted       State = "completed"
	StateRejected        State = "rejected"
	StateFailed          State = "failed"
)

// Persistence path labels.
const (
	PathRemote        = "remote"
	PathLocalFallback = "local_fallback"
	PathRejected      = "rejected"
	PathFailed        = "failed"
)

const numberPrefix = "APP"

// RemoteStore inserts applications. *remotestore.Store implements it.
type RemoteStore interface {
	InsertApplication(ctx context.Context, app *models.Application) (string, error)
}

// FallbackLedger records a draft locally and notifies for it.
// *ledger.Ledger implements it.
type FallbackLedger interface {
	Record(ctx context.Context, draft models.ApplicationDraft) (*ledger.Receipt, error)
}

// Notifier fans a persisted application out to the admins.
// *notification.Dispatcher implements it.
type Notifier interface {
	Dispatch(ctx context.Context, app *models.Application) notification.DispatchResult
}

// Observer sees every state transition of a submission.
type Observer func(from, to State)

// Result is returned for every completed submission.
type Result struct {
	Application    *models.Application `json:"application"`
	Notified       bool                `json:"notified"`
	SentCount      int                 `json:"sentCount"`
	TotalAttempted int                 `json:"totalAttempted"`
	FallbackNotice bool                `json:"fallbackNotice"`
	Path           string              `json:"path"`
}

type Options struct {
	Location *time.Location
	Clock    clock.Clock
	Observer Observer
	Tracer   trace.Tracer
	// Suffix overrides the random 4-digit application number suffix.
	Suffix func() int
}

type Service struct {
	remote   RemoteStore
	ledger   FallbackLedger
	notifier Notifier
	logger   logger.Logger

	loc      *time.Location
	clock    clock.Clock
	observer Observer
	tracer   trace.Tracer
	suffix   func() int
}

func NewService(remote RemoteStore, fallback FallbackLedger, notifier Notifier, log logger.Logger, opts Options) *Service {
	s := &Service{
		remote:   remote,
		ledger:   fallback,
		notifier: notifier,
		logger:   log.WithFields(map[string]interface{}{"component": "submission"}),
		loc:      opts.Location,
		clock:    opts.Clock,
		observer: opts.Observer,
		tracer:   opts.Tracer,
		suffix:   opts.Suffix,
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.clock == nil {
		s.clock = clock.Real()
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer("apply-desk/submission")
	}
	if s.suffix == nil {
		s.suffix = func() int { return 1000 + rand.Intn(9000) }
	}
	return s
}

// run tracks the current state of one submission.
type run struct {
	s     *Service
	state State
	span  trace.Span
}

func (r *run) to(next State) {
	prev := r.state
	r.state = next
	r.span.AddEvent("transition", trace.WithAttributes(
		attribute.String("from", string(prev)),
		attribute.String("to", string(next)),
	))
	r.s.logger.Debug("submission state", map[string]interface{}{"from": string(prev), "to": string(next)})
	if r.s.observer != nil {
		r.s.observer(prev, next)
	}
}

// Submit validates draft, persists it remotely or in the fallback ledger and
// notifies the admins. Only a validation failure or the loss of both
// persistence targets is returned as an error; notification outcomes never
// are.
func (s *Service) Submit(ctx context.Context, draft models.ApplicationDraft) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "submission.Submit")
	defer span.End()

	start := s.clock.Now()
	r := &run{s: s, state: StateIdle, span: span}

	draft = Clean(draft)

	r.to(StateValidating)
	if err := Validate(draft, start.In(s.loc)); err != nil {
		r.to(StateRejected)
		field := "unknown"
		if se, ok := apperrors.AsStandard(err); ok {
			if f, ok := se.Metadata["field"].(string); ok {
				field = f
			}
		}
		metrics.ValidationRejections.WithLabelValues(field).Inc()
		s.finish(span, PathRejected, start)
		span.SetStatus(codes.Error, "validation failed")
		s.logger.Info("submission rejected", map[string]interface{}{"field": field})
		return nil, err
	}

	r.to(StatePersisting)
	now := start.In(s.loc)
	app := &models.Application{
		ApplicationNumber: models.FormatNumber(numberPrefix, now, s.suffix()),
		Name:              draft.Name,
		Phone:             draft.Phone,
		WorkType:          draft.WorkType,
		StartDate:         draft.StartDate,
		Description:       draft.Description,
		Privacy:           true,
		SubmittedAt:       now,
		Status:            models.StatusRemote,
	}
	if draft.WorkType != "" {
		app.WorkTypeDisplay = models.WorkTypeLabel(draft.WorkType)
	}

	id, remoteErr := s.insert(ctx, app)
	if remoteErr != nil {
		s.logger.Warn("remote store unavailable, falling back to local ledger", map[string]interface{}{
			"applicationNumber": app.ApplicationNumber,
			"error":             remoteErr.Error(),
		})
		r.to(StateLocalFallback)
		return s.fallback(ctx, r, draft, remoteErr, start)
	}

	app.ID = id
	r.to(StateRemotePersisted)
	s.logger.Info("application stored", map[string]interface{}{
		"applicationId":     app.ID,
		"applicationNumber": app.ApplicationNumber,
	})

	r.to(StateNotifying)
	dispatch := notification.DispatchResult{}
	if s.notifier != nil {
		dispatch = s.notifier.Dispatch(ctx, app)
	}
	app.EmailSent = dispatch.Notified

	r.to(StateCompleted)
	s.finish(span, PathRemote, start)
	return &Result{
		Application:    app,
		Notified:       dispatch.Notified,
		SentCount:      dispatch.Sent,
		TotalAttempted: dispatch.Attempted,
		FallbackNotice: dispatch.FallbackNotice,
		Path:           PathRemote,
	}, nil
}

func (s *Service) insert(ctx context.Context, app *models.Application) (string, error) {
	if s.remote == nil {
		return "", apperrors.NewRemoteUnavailableError("insert application", errors.New("remote store not configured"))
	}
	id, err := s.remote.InsertApplication(ctx, app)
	if err != nil {
		return "", apperrors.NewRemoteUnavailableError("insert application", err)
	}
	return id, nil
}

func (s *Service) fallback(ctx context.Context, r *run, draft models.ApplicationDraft, remoteErr error, start time.Time) (*Result, error) {
	var (
		receipt *ledger.Receipt
		err     = errors.New("fallback ledger not configured")
	)
	if s.ledger != nil {
		receipt, err = s.ledger.Record(ctx, draft)
	}
	if err != nil {
		r.to(StateFailed)
		s.finish(r.span, PathFailed, start)
		joined := errors.Join(remoteErr, err)
		r.span.RecordError(joined)
		r.span.SetStatus(codes.Error, "persistence failed")
		s.logger.Error("submission lost: remote and local persistence failed", map[string]interface{}{"error": joined.Error()})
		return nil, apperrors.NewSubmissionFailedError(MsgSubmissionFailed, joined)
	}

	r.to(StateCompleted)
	s.finish(r.span, PathLocalFallback, start)
	return &Result{
		Application:    receipt.Application,
		Notified:       receipt.Dispatch.Notified,
		SentCount:      receipt.Dispatch.Sent,
		TotalAttempted: receipt.Dispatch.Attempted,
		FallbackNotice: receipt.Dispatch.FallbackNotice,
		Path:           PathLocalFallback,
	}, nil
}

func (s *Service) finish(span trace.Span, path string, start time.Time) {
	span.SetAttributes(attribute.String("submission.path", path))
	metrics.SubmissionsTotal.WithLabelValues(path).Inc()
	metrics.SubmissionDuration.WithLabelValues(path).Observe(s.clock.Now().Sub(start).Seconds())
}
