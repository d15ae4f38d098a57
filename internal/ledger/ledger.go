// Package ledger is the local fallback record of submissions that could not
// reach the remote store.
package ledger

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"apply-desk/internal/common/clock"
	apperrors "apply-desk/internal/common/errors"
	"apply-desk/internal/common/logger"
	"apply-desk/internal/keyspace"
	"apply-desk/internal/models"
	"apply-desk/internal/notification"
)

const idPrefix = "LOCAL"

// Notifier is what the ledger tells about a new record.
// *notification.Dispatcher implements it.
type Notifier interface {
	NotifyLocalBackup(ctx context.Context, app *models.Application) bool
	Dispatch(ctx context.Context, app *models.Application) notification.DispatchResult
}

// Receipt is the outcome of Record.
type Receipt struct {
	Application *models.Application
	Dispatch    notification.DispatchResult
	// NoticePosted is true when the local backup notice reached a surface.
	NoticePosted bool
}

type Ledger struct {
	ks       keyspace.KeySpace
	notifier Notifier
	clock    clock.Clock
	loc      *time.Location
	logger   logger.Logger
	suffix   func() int

	// one writer at a time over the whole sequence
	mu sync.Mutex
}

type Option func(*Ledger)

// WithSuffix overrides the random 4-digit id suffix.
func WithSuffix(fn func() int) Option {
	return func(l *Ledger) { l.suffix = fn }
}

func New(ks keyspace.KeySpace, notifier Notifier, clk clock.Clock, loc *time.Location, log logger.Logger, opts ...Option) *Ledger {
	if clk == nil {
		clk = clock.Real()
	}
	if loc == nil {
		loc = time.UTC
	}
	l := &Ledger{
		ks:       ks,
		notifier: notifier,
		clock:    clk,
		loc:      loc,
		logger:   log.WithFields(map[string]interface{}{"component": "fallback-ledger"}),
		suffix:   func() int { return 1000 + rand.Intn(9000) },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record appends draft to the ledger under a LOCAL-YYYYMMDD-NNNN id, then
// posts the local backup notice and dispatches notifications for it.
// Only a failed ledger write is returned as an error.
func (l *Ledger) Record(ctx context.Context, draft models.ApplicationDraft) (*Receipt, error) {
	now := l.clock.Now().In(l.loc)
	id := models.FormatNumber(idPrefix, now, l.suffix())

	app := &models.Application{
		ID:                id,
		ApplicationNumber: id,
		Name:              draft.Name,
		Phone:             draft.Phone,
		WorkType:          draft.WorkType,
		StartDate:         draft.StartDate,
		Description:       draft.Description,
		Privacy:           true,
		SubmittedAt:       now,
		Status:            models.StatusLocalBackup,
	}
	if draft.WorkType != "" {
		app.WorkTypeDisplay = models.WorkTypeLabel(draft.WorkType)
	}

	// The write must land even when the caller's deadline already fired on a
	// hung remote insert.
	if err := l.append(context.WithoutCancel(ctx), *app); err != nil {
		l.logger.Error("ledger write failed", map[string]interface{}{"applicationId": id, "error": err.Error()})
		return nil, apperrors.NewLedgerWriteFailedError(err)
	}
	l.logger.Warn("application stored in local ledger", map[string]interface{}{"applicationId": id})

	receipt := &Receipt{Application: app}
	if l.notifier == nil {
		return receipt, nil
	}

	receipt.NoticePosted = l.notifier.NotifyLocalBackup(ctx, app)
	receipt.Dispatch = l.notifier.Dispatch(ctx, app)

	if receipt.Dispatch.Notified {
		app.EmailSent = true
		if err := l.markSent(context.WithoutCancel(ctx), id); err != nil {
			l.logger.Warn("failed to mark ledger record as sent", map[string]interface{}{"applicationId": id, "error": err.Error()})
		}
	}
	return receipt, nil
}

// List returns every recorded application, oldest first.
func (l *Ledger) List(ctx context.Context) ([]models.Application, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load(ctx)
}

func (l *Ledger) load(ctx context.Context) ([]models.Application, error) {
	var apps []models.Application
	if _, err := keyspace.GetJSON(ctx, l.ks, keyspace.KeyLocalApplications, &apps); err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	return apps, nil
}

func (l *Ledger) append(ctx context.Context, app models.Application) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	apps, err := l.load(ctx)
	if err != nil {
		return err
	}
	apps = append(apps, app)
	return keyspace.SetJSON(ctx, l.ks, keyspace.KeyLocalApplications, apps)
}

func (l *Ledger) markSent(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	apps, err := l.load(ctx)
	if err != nil {
		return err
	}
	for i := len(apps) - 1; i >= 0; i-- {
		if apps[i].ID == id {
			apps[i].EmailSent = true
			return keyspace.SetJSON(ctx, l.ks, keyspace.KeyLocalApplications, apps)
		}
	}
	return fmt.Errorf("record %s not found", id)
}
