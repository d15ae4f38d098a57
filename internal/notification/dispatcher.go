package notification

import (
	"context"
	"time"

	"apply-desk/internal/common/clock"
	"apply-desk/internal/common/logger"
	"apply-desk/internal/common/metrics"
	"apply-desk/internal/models"
)

// Sender sends one message. *Client implements it.
type Sender interface {
	Send(ctx context.Context, msg Message) (*SendResult, error)
}

// RecipientSource supplies the admin contact lists, already normalized.
type RecipientSource interface {
	LoadEmails(ctx context.Context) (models.RecipientList, error)
	LoadPhones(ctx context.Context) (models.RecipientList, error)
	DisplayName(ctx context.Context) string
}

type DispatcherOptions struct {
	// Pause between consecutive recipients. Zero means the 1s default.
	Pause           time.Duration
	SubmissionLabel string
	Location        *time.Location
}

// DispatchResult aggregates one fan-out.
type DispatchResult struct {
	Sent           int
	Attempted      int
	Notified       bool
	FallbackNotice bool
}

// Dispatcher is the single notification routine used by both the remote and
// the ledger persistence paths.
type Dispatcher struct {
	sender     Sender
	recipients RecipientSource
	notices    NoticeSurface
	clock      clock.Clock
	logger     logger.Logger
	opts       DispatcherOptions
}

func NewDispatcher(sender Sender, recipients RecipientSource, notices NoticeSurface, clk clock.Clock, log logger.Logger, opts DispatcherOptions) *Dispatcher {
	if opts.Pause <= 0 {
		opts.Pause = time.Second
	}
	if opts.SubmissionLabel == "" {
		opts.SubmissionLabel = DefaultSubmissionLabel
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &Dispatcher{
		sender:     sender,
		recipients: recipients,
		notices:    notices,
		clock:      clk,
		logger:     log.WithFields(map[string]interface{}{"component": "notification-dispatcher"}),
		opts:       opts,
	}
}

// Dispatch sends app to every configured admin email in order, pausing
// between recipients. An empty list is a no-op. When every send fails, or
// the list cannot be loaded, a delivery fallback notice is posted instead.
// Dispatch never returns an error.
func (d *Dispatcher) Dispatch(ctx context.Context, app *models.Application) DispatchResult {
	var result DispatchResult

	emails, err := d.recipients.LoadEmails(ctx)
	if err != nil {
		d.logger.Error("failed to load admin emails", map[string]interface{}{
			"applicationId": app.ID,
			"error":         err.Error(),
		})
		result.FallbackNotice = d.post(ctx, NoticeDeliveryFallback, app)
		return result
	}
	if len(emails) == 0 {
		d.logger.Info("no admin emails configured, skipping notification", map[string]interface{}{"applicationId": app.ID})
		return result
	}

	params := BuildTemplateParams(app, d.recipients.DisplayName(ctx), d.opts.SubmissionLabel, d.opts.Location)

	for i, recipient := range emails {
		if i > 0 {
			if err := d.clock.Sleep(ctx, d.opts.Pause); err != nil {
				d.logger.Warn("dispatch interrupted", map[string]interface{}{
					"applicationId": app.ID,
					"remaining":     len(emails) - i,
				})
				break
			}
		}

		result.Attempted++
		if _, err := d.sender.Send(ctx, Message{
			ApplicationID: app.ID,
			Recipient:     recipient,
			Params:        params.WithRecipient(recipient),
		}); err != nil {
			continue
		}
		result.Sent++
	}

	result.Notified = result.Sent > 0
	d.logger.Info("notification dispatch finished", map[string]interface{}{
		"applicationId": app.ID,
		"sent":          result.Sent,
		"attempted":     result.Attempted,
	})

	if result.Sent == 0 {
		result.FallbackNotice = d.post(ctx, NoticeDeliveryFallback, app)
	}
	return result
}

// NotifyLocalBackup posts the local backup notice for a ledger record.
func (d *Dispatcher) NotifyLocalBackup(ctx context.Context, app *models.Application) bool {
	return d.post(ctx, NoticeLocalBackup, app)
}

// post reports whether the notice reached the surface. It runs detached from
// ctx cancellation.
func (d *Dispatcher) post(ctx context.Context, kind NoticeKind, app *models.Application) bool {
	ctx = context.WithoutCancel(ctx)

	phones, err := d.recipients.LoadPhones(ctx)
	if err != nil {
		phones = nil
	}
	emails, err := d.recipients.LoadEmails(ctx)
	if err != nil {
		emails = nil
	}

	notice := buildNotice(kind, noticeInput{
		app:         app,
		displayName: d.recipients.DisplayName(ctx),
		phones:      phones,
		emails:      emails,
		loc:         d.opts.Location,
	})

	metrics.FallbackNotices.WithLabelValues(string(kind)).Inc()
	if d.notices == nil {
		return false
	}
	if err := d.notices.Post(ctx, notice); err != nil {
		d.logger.Error("failed to post operator notice", map[string]interface{}{
			"kind":          string(kind),
			"applicationId": app.ID,
			"surface":       d.notices.Name(),
			"error":         err.Error(),
		})
		return false
	}
	return true
}
