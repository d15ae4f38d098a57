package ledger

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"apply-desk/internal/common/clock"
	apperrors "apply-desk/internal/common/errors"
	"apply-desk/internal/common/logger"
	"apply-desk/internal/keyspace"
	"apply-desk/internal/models"
	"apply-desk/internal/notification"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	kst       = time.FixedZone("KST", 9*60*60)
	ledgerNow = time.Date(2025, 2, 28, 20, 0, 0, 0, time.UTC) // 2025-03-01 05:00 KST
	localID   = regexp.MustCompile(`^LOCAL-\d{8}-\d{4}$`)
)

type fakeNotifier struct {
	mu       sync.Mutex
	notified bool
	backups  []*models.Application
	dispatch []*models.Application
}

func (f *fakeNotifier) NotifyLocalBackup(_ context.Context, app *models.Application) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.backups = append(f.backups, app)
	return true
}

func (f *fakeNotifier) Dispatch(_ context.Context, app *models.Application) notification.DispatchResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dispatch = append(f.dispatch, app)
	if f.notified {
		return notification.DispatchResult{Sent: 1, Attempted: 1, Notified: true}
	}
	return notification.DispatchResult{Attempted: 1, FallbackNotice: true}
}

func newSQLiteKeySpace(t *testing.T) keyspace.KeySpace {
	t.Helper()
	ks, err := keyspace.NewSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ks.Close() })
	return ks
}

func newTestLedger(t *testing.T, ks keyspace.KeySpace, n Notifier, opts ...Option) *Ledger {
	t.Helper()
	return New(ks, n, clock.NewFake(ledgerNow), kst, logger.NewTestLogger(t), opts...)
}

var draft = models.ApplicationDraft{
	Name:      "101동 202호",
	Phone:     "010-1111-2222",
	WorkType:  "C",
	StartDate: "2025-03-02",
	Privacy:   true,
}

func TestRecord_SynthesizesLocalID(t *testing.T) {
	n := &fakeNotifier{notified: true}
	l := newTestLedger(t, newSQLiteKeySpace(t), n, WithSuffix(func() int { return 4821 }))

	receipt, err := l.Record(context.Background(), draft)
	require.NoError(t, err)

	app := receipt.Application
	assert.Equal(t, "LOCAL-20250301-4821", app.ID)
	assert.Equal(t, app.ID, app.ApplicationNumber)
	assert.Equal(t, "LGU+", app.WorkTypeDisplay)
	assert.Equal(t, models.StatusLocalBackup, app.Status)
	assert.True(t, app.IsLocal())
	assert.True(t, app.EmailSent)
	assert.True(t, receipt.NoticePosted)
	assert.True(t, receipt.Dispatch.Notified)
}

func TestRecord_DefaultSuffixInRange(t *testing.T) {
	l := newTestLedger(t, newSQLiteKeySpace(t), nil)
	for i := 0; i < 50; i++ {
		receipt, err := l.Record(context.Background(), draft)
		require.NoError(t, err)
		assert.Regexp(t, localID, receipt.Application.ID)
	}
}

func TestRecord_AlwaysAttemptsNotification(t *testing.T) {
	n := &fakeNotifier{notified: false}
	ks := newSQLiteKeySpace(t)
	l := newTestLedger(t, ks, n)

	receipt, err := l.Record(context.Background(), draft)
	require.NoError(t, err)

	assert.Len(t, n.backups, 1)
	assert.Len(t, n.dispatch, 1)
	assert.False(t, receipt.Dispatch.Notified)
	assert.False(t, receipt.Application.EmailSent)

	apps, err := l.List(context.Background())
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.False(t, apps[0].EmailSent)
}

func TestRecord_AppendsAndMarksSent(t *testing.T) {
	ks := newSQLiteKeySpace(t)
	var seq int32 = 1000
	l := newTestLedger(t, ks, &fakeNotifier{notified: true}, WithSuffix(func() int { return int(atomic.AddInt32(&seq, 1)) }))

	for i := 0; i < 3; i++ {
		_, err := l.Record(context.Background(), draft)
		require.NoError(t, err)
	}

	apps, err := l.List(context.Background())
	require.NoError(t, err)
	require.Len(t, apps, 3)
	assert.Equal(t, "LOCAL-20250301-1001", apps[0].ID)
	assert.Equal(t, "LOCAL-20250301-1003", apps[2].ID)
	for _, a := range apps {
		assert.True(t, a.EmailSent)
		assert.Equal(t, "LGU+", a.WorkTypeDisplay)
	}
}

func TestRecord_UnknownCategoryPassesThrough(t *testing.T) {
	l := newTestLedger(t, newSQLiteKeySpace(t), nil)
	d := draft
	d.WorkType = "fiber"

	receipt, err := l.Record(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, "fiber", receipt.Application.WorkTypeDisplay)
}

func TestRecord_ConcurrentWritersAreSerialized(t *testing.T) {
	ks := newSQLiteKeySpace(t)
	var seq int32 = 1000
	l := newTestLedger(t, ks, &fakeNotifier{}, WithSuffix(func() int { return int(atomic.AddInt32(&seq, 1)) }))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Record(context.Background(), draft)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	apps, err := l.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, apps, 20)
}

func TestRecord_ExpiredContextStillWrites(t *testing.T) {
	n := &fakeNotifier{}
	l := newTestLedger(t, newSQLiteKeySpace(t), n, WithSuffix(func() int { return 4821 }))

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	<-ctx.Done()

	receipt, err := l.Record(ctx, draft)
	require.NoError(t, err)
	assert.Equal(t, "LOCAL-20250301-4821", receipt.Application.ID)

	apps, err := l.List(context.Background())
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, "LOCAL-20250301-4821", apps[0].ID)
	assert.Len(t, n.backups, 1)
}

type failingKeySpace struct{ keyspace.KeySpace }

func (failingKeySpace) Get(context.Context, string) (string, bool, error) { return "", false, nil }
func (failingKeySpace) Set(context.Context, string, string) error        { return errors.New("disk full") }

func TestRecord_WriteFailureSkipsNotification(t *testing.T) {
	n := &fakeNotifier{}
	l := newTestLedger(t, failingKeySpace{}, n)

	_, err := l.Record(context.Background(), draft)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeLedgerWriteFailed))
	assert.Empty(t, n.backups)
	assert.Empty(t, n.dispatch)
}

type captureSender struct {
	msgs []notification.Message
}

func (c *captureSender) Send(_ context.Context, msg notification.Message) (*notification.SendResult, error) {
	c.msgs = append(c.msgs, msg)
	return &notification.SendResult{Recipient: msg.Recipient, StatusCode: 200}, nil
}

type oneRecipient struct{}

func (oneRecipient) LoadEmails(context.Context) (models.RecipientList, error) {
	return models.RecipientList{"admin@apt.kr"}, nil
}
func (oneRecipient) LoadPhones(context.Context) (models.RecipientList, error) { return nil, nil }
func (oneRecipient) DisplayName(context.Context) string { return "Speed 아파트" }

func TestRecord_CategoryLabelReachesTemplate(t *testing.T) {
	sender := &captureSender{}
	clk := clock.NewFake(ledgerNow)
	log := logger.NewTestLogger(t)
	d := notification.NewDispatcher(sender, oneRecipient{}, notification.LogNotice{Logger: log}, clk, log, notification.DispatcherOptions{Location: kst})
	l := New(newSQLiteKeySpace(t), d, clk, kst, log)

	receipt, err := l.Record(context.Background(), draft)
	require.NoError(t, err)

	assert.Equal(t, "LGU+", receipt.Application.WorkTypeDisplay)
	require.Len(t, sender.msgs, 1)
	assert.Equal(t, "LGU+", sender.msgs[0].Params.WorkTypeDisplay)
	assert.Equal(t, receipt.Application.ID, sender.msgs[0].Params.ApplicationNumber)
	assert.Equal(t, receipt.Application.ID, sender.msgs[0].ApplicationID)
	assert.True(t, receipt.Dispatch.Notified)
}
