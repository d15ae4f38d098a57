// Package notification delivers submission notices through the mail relay:
// relay initialization with bounded retry, per-recipient sends with a
// timeout, the attempt log, the sequential dispatcher and the local notice
// fallback.
package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"apply-desk/internal/common/clock"
	apperrors "apply-desk/internal/common/errors"
	"apply-desk/internal/common/logger"
	"apply-desk/internal/common/metrics"
	"apply-desk/internal/models"

	"github.com/google/uuid"
)

// State of the relay handle.
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "uninitialized"
	}
}

type Options struct {
	MaxInitAttempts int
	LoadWait        time.Duration
	MobileLoadWait  time.Duration
	InitBackoff     time.Duration
	SendTimeout     time.Duration
	// InitCooldown lets a failed client try again after this long. Zero keeps
	// the failure until Reset.
	InitCooldown time.Duration
	UserAgent    string
	Channel      string
}

func (o *Options) setDefaults() {
	if o.MaxInitAttempts <= 0 {
		o.MaxInitAttempts = 3
	}
	if o.LoadWait <= 0 {
		o.LoadWait = 1500 * time.Millisecond
	}
	if o.MobileLoadWait <= 0 {
		o.MobileLoadWait = 3 * time.Second
	}
	if o.InitBackoff <= 0 {
		o.InitBackoff = 2 * time.Second
	}
	if o.SendTimeout <= 0 {
		o.SendTimeout = 30 * time.Second
	}
	if o.Channel == "" {
		o.Channel = models.ChannelEmail
	}
}

// Message is one send request.
type Message struct {
	ApplicationID string
	Recipient     string
	Params        TemplateParams
}

type SendResult struct {
	Recipient  string
	StatusCode int
	Duration   time.Duration
}

// Client owns the relay's readiness state. The init attempt budget is shared
// by every caller for the lifetime of the client.
type Client struct {
	relay    Relay
	probe    ConnectivityProbe
	attempts AttemptLog
	clock    clock.Clock
	logger   logger.Logger
	opts     Options

	mu       sync.Mutex
	state    State
	used     int
	failedAt time.Time
	lastErr  error
}

// NewClient builds a client. probe and attempts may be nil.
func NewClient(relay Relay, probe ConnectivityProbe, attempts AttemptLog, clk clock.Clock, log logger.Logger, opts Options) *Client {
	opts.setDefaults()
	if clk == nil {
		clk = clock.Real()
	}
	return &Client{
		relay:    relay,
		probe:    probe,
		attempts: attempts,
		clock:    clk,
		logger:   log.WithFields(map[string]interface{}{"component": "notification-client", "relay": relay.Name()}),
		opts:     opts,
	}
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// AttemptsUsed returns how many init attempts have been spent.
func (c *Client) AttemptsUsed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.used
}

// Reset returns the client to the uninitialized state with a fresh budget.
func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateUninitialized
	c.used = 0
	c.lastErr = nil
	c.failedAt = time.Time{}
}

// Initialize brings the relay to Ready. It returns nil immediately when
// already Ready and ErrOffline, without spending attempts, when the probe
// reports no network.
func (c *Client) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateReady {
		return nil
	}

	if c.probe != nil && !c.probe.Online(ctx) {
		metrics.RelayInitAttempts.WithLabelValues("offline").Inc()
		c.logger.Warn("relay initialization skipped, network offline", nil)
		return apperrors.NewNotificationInitFailedError(c.used, ErrOffline)
	}

	if c.state == StateFailed {
		if c.opts.InitCooldown <= 0 || c.clock.Now().Sub(c.failedAt) < c.opts.InitCooldown {
			return c.lastErr
		}
		c.logger.Info("relay init cooldown elapsed, retrying", nil)
		c.state = StateUninitialized
		c.used = 0
	}

	loadWait := c.opts.LoadWait
	if IsMobileUserAgent(c.opts.UserAgent) {
		loadWait = c.opts.MobileLoadWait
	}

	var cause error
	for c.used < c.opts.MaxInitAttempts {
		c.used++
		attempt := c.used
		last := attempt >= c.opts.MaxInitAttempts

		if !c.relay.Loaded(ctx) {
			cause = ErrRelayNotLoaded
			metrics.RelayInitAttempts.WithLabelValues("not_loaded").Inc()
			c.logger.Warn("relay not loaded", map[string]interface{}{"attempt": attempt, "wait": loadWait.String()})
			if !last {
				if err := c.clock.Sleep(ctx, loadWait); err != nil {
					return err
				}
			}
			continue
		}

		if err := c.relay.Init(ctx); err != nil {
			cause = err
			metrics.RelayInitAttempts.WithLabelValues("init_error").Inc()
			c.logger.Warn("relay init failed", map[string]interface{}{"attempt": attempt, "error": err.Error()})
			if !last {
				if err := c.clock.Sleep(ctx, c.opts.InitBackoff); err != nil {
					return err
				}
			}
			continue
		}

		metrics.RelayInitAttempts.WithLabelValues("ready").Inc()
		c.state = StateReady
		c.logger.Info("relay ready", map[string]interface{}{"attempt": attempt})
		return nil
	}

	if cause == nil {
		cause = ErrRelayNotLoaded
	}
	c.state = StateFailed
	c.failedAt = c.clock.Now()
	c.lastErr = apperrors.NewNotificationInitFailedError(c.used, fmt.Errorf("%w: %w", ErrInitFailed, cause))
	c.logger.Error("relay initialization exhausted", map[string]interface{}{"attempts": c.used, "error": cause.Error()})
	return c.lastErr
}

// Send delivers msg, initializing the relay on demand. The relay call is
// raced against SendTimeout. Every outcome is appended to the attempt log.
func (c *Client) Send(ctx context.Context, msg Message) (*SendResult, error) {
	start := c.clock.Now()

	if err := c.Initialize(ctx); err != nil {
		c.record(ctx, msg, err)
		return nil, err
	}

	type outcome struct {
		status int
		err    error
	}

	sendCtx, cancel := context.WithTimeout(ctx, c.opts.SendTimeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		status, err := c.relay.Send(sendCtx, msg.Recipient, msg.Params)
		done <- outcome{status: status, err: err}
	}()

	var res outcome
	select {
	case res = <-done:
	case <-sendCtx.Done():
	}

	switch {
	case ctx.Err() != nil:
		c.record(ctx, msg, ctx.Err())
		return nil, ctx.Err()
	case sendCtx.Err() != nil && (res.err != nil || res.status == 0):
		err := apperrors.NewNotificationTimeoutError(msg.Recipient, c.opts.SendTimeout, ErrSendTimeout)
		c.record(ctx, msg, err)
		c.logger.Error("relay send timed out", map[string]interface{}{"recipient": msg.Recipient, "timeout": c.opts.SendTimeout.String()})
		return nil, err
	case res.err != nil:
		err := apperrors.NewNotificationSendFailedError(msg.Recipient, fmt.Errorf("%w: %w", ErrSendFailed, res.err))
		c.record(ctx, msg, err)
		c.logger.Error("relay send failed", map[string]interface{}{"recipient": msg.Recipient, "error": res.err.Error()})
		return nil, err
	}

	if res.status != 200 {
		c.logger.Warn("relay accepted send with non-200 status", map[string]interface{}{
			"recipient": msg.Recipient,
			"status":    res.status,
		})
	}

	c.record(ctx, msg, nil)
	c.logger.Info("notification sent", map[string]interface{}{"recipient": msg.Recipient, "applicationId": msg.ApplicationID})
	return &SendResult{
		Recipient:  msg.Recipient,
		StatusCode: res.status,
		Duration:   c.clock.Now().Sub(start),
	}, nil
}

// record appends one attempt. Log failures are logged and dropped.
func (c *Client) record(ctx context.Context, msg Message, sendErr error) {
	attempt := models.NotificationAttempt{
		ID:            uuid.NewString(),
		ApplicationID: msg.ApplicationID,
		Channel:       c.opts.Channel,
		Provider:      c.relay.Name(),
		Recipient:     msg.Recipient,
		Status:        models.AttemptSent,
		Timestamp:     c.clock.Now().UTC(),
	}
	if sendErr != nil {
		attempt.Status = models.AttemptFailed
		attempt.Error = sendErr.Error()
	}
	metrics.NotificationAttempts.WithLabelValues(attempt.Channel, attempt.Status).Inc()

	if c.attempts == nil {
		return
	}
	// the attempt log must not be cut short by a cancelled submission
	logCtx := context.WithoutCancel(ctx)
	if err := c.attempts.AppendNotificationAttempt(logCtx, attempt); err != nil {
		c.logger.Warn("attempt log append failed", map[string]interface{}{
			"attemptId": attempt.ID,
			"error":     err.Error(),
		})
	}
}
