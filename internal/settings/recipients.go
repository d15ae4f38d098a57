// Package settings holds the administrator configuration: the recipient
// lists and title cached in the local key space, and their sync with the
// remote admin_settings row.
package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"apply-desk/internal/common/logger"
	"apply-desk/internal/keyspace"
	"apply-desk/internal/models"
)

var (
	ErrNoValidEntries = errors.New("settings: no valid entries")
	ErrEmptyTitle     = errors.New("settings: title must not be empty")
)

const (
	DefaultApartmentName = "Speed 아파트"
	minPhoneLength       = 10
	pushTimeout          = 30 * time.Second
)

// Pusher receives a snapshot after every local save. *Sync implements it.
type Pusher interface {
	Push(ctx context.Context, settings models.AdminSettings) error
}

type StoreOptions struct {
	ApartmentID   string
	ApartmentName string
	DefaultTitle  string
}

// RecipientStore reads and writes the admin contact lists. The local key
// space is authoritative; remote pushes are fire-and-forget.
type RecipientStore struct {
	ks     keyspace.KeySpace
	pusher Pusher
	logger logger.Logger
	opts   StoreOptions

	// serializes save + snapshot so pushes see a consistent row
	mu sync.Mutex
	wg sync.WaitGroup
}

// NewRecipientStore builds a store. pusher may be nil to disable remote sync.
func NewRecipientStore(ks keyspace.KeySpace, pusher Pusher, log logger.Logger, opts StoreOptions) *RecipientStore {
	if opts.ApartmentName == "" {
		opts.ApartmentName = DefaultApartmentName
	}
	if opts.DefaultTitle == "" {
		opts.DefaultTitle = opts.ApartmentName + " 통신 환경 개선 신청서"
	}
	return &RecipientStore{
		ks:     ks,
		pusher: pusher,
		logger: log.WithFields(map[string]interface{}{"component": "recipient-store"}),
		opts:   opts,
	}
}

// Normalize trims entries, drops empty ones, removes exact duplicates and
// keeps the first MaxRecipients in their original order.
func Normalize(entries []string) models.RecipientList {
	return normalize(entries, nil)
}

func normalize(entries []string, valid func(string) bool) models.RecipientList {
	out := make(models.RecipientList, 0, models.MaxRecipients)
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if len(out) == models.MaxRecipients {
			break
		}
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if valid != nil && !valid(e) {
			continue
		}
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}

func validEmail(s string) bool { return strings.Contains(s, "@") }

func validPhone(s string) bool { return len(s) >= minPhoneLength }

func (s *RecipientStore) LoadEmails(ctx context.Context) (models.RecipientList, error) {
	return s.loadList(ctx, keyspace.KeyEmails)
}

func (s *RecipientStore) LoadPhones(ctx context.Context) (models.RecipientList, error) {
	return s.loadList(ctx, keyspace.KeyPhones)
}

func (s *RecipientStore) loadList(ctx context.Context, key string) (models.RecipientList, error) {
	var raw []string
	if _, err := keyspace.GetJSON(ctx, s.ks, key, &raw); err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	return Normalize(raw), nil
}

// SaveEmails keeps entries containing "@". It returns the stored list, or
// ErrNoValidEntries without writing when nothing survives.
func (s *RecipientStore) SaveEmails(ctx context.Context, entries []string) (models.RecipientList, error) {
	return s.saveList(ctx, keyspace.KeyEmails, normalize(entries, validEmail))
}

// SavePhones keeps entries of at least ten characters.
func (s *RecipientStore) SavePhones(ctx context.Context, entries []string) (models.RecipientList, error) {
	return s.saveList(ctx, keyspace.KeyPhones, normalize(entries, validPhone))
}

func (s *RecipientStore) saveList(ctx context.Context, key string, list models.RecipientList) (models.RecipientList, error) {
	if len(list) == 0 {
		return nil, ErrNoValidEntries
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := keyspace.SetJSON(ctx, s.ks, key, list); err != nil {
		return nil, fmt.Errorf("save %s: %w", key, err)
	}
	s.logger.Info("recipient list saved", map[string]interface{}{"slot": key, "count": len(list)})
	s.pushLocked(ctx)
	return list, nil
}

// LoadTitle returns the cached title or the deployment default.
func (s *RecipientStore) LoadTitle(ctx context.Context) (string, error) {
	title, ok, err := s.ks.Get(ctx, keyspace.KeyTitle)
	if err != nil {
		return "", fmt.Errorf("load title: %w", err)
	}
	if !ok || strings.TrimSpace(title) == "" {
		return s.opts.DefaultTitle, nil
	}
	return title, nil
}

func (s *RecipientStore) SaveTitle(ctx context.Context, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyTitle
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ks.Set(ctx, keyspace.KeyTitle, title); err != nil {
		return fmt.Errorf("save title: %w", err)
	}
	s.logger.Info("title saved", map[string]interface{}{"title": title})
	s.pushLocked(ctx)
	return nil
}

// DisplayName returns the cached apartment name, falling back to the
// configured default when unset or unreadable.
func (s *RecipientStore) DisplayName(ctx context.Context) string {
	name, ok, err := s.ks.Get(ctx, keyspace.KeyApartmentName)
	if err != nil {
		s.logger.Warn("failed to read display name", map[string]interface{}{"error": err.Error()})
		return s.opts.ApartmentName
	}
	if !ok || name == "" {
		return s.opts.ApartmentName
	}
	return name
}

// Snapshot assembles the admin settings row from the local cache.
func (s *RecipientStore) Snapshot(ctx context.Context) (models.AdminSettings, error) {
	title, err := s.LoadTitle(ctx)
	if err != nil {
		return models.AdminSettings{}, err
	}
	phones, err := s.LoadPhones(ctx)
	if err != nil {
		return models.AdminSettings{}, err
	}
	emails, err := s.LoadEmails(ctx)
	if err != nil {
		return models.AdminSettings{}, err
	}
	return models.AdminSettings{
		ApartmentID:   s.opts.ApartmentID,
		Title:         title,
		Phones:        phones,
		Emails:        emails,
		ApartmentName: s.DisplayName(ctx),
	}, nil
}

// pushLocked snapshots under s.mu and pushes in the background.
func (s *RecipientStore) pushLocked(ctx context.Context) {
	if s.pusher == nil {
		return
	}
	snapshot, err := s.Snapshot(ctx)
	if err != nil {
		s.logger.Warn("skipping settings push, snapshot failed", map[string]interface{}{"error": err.Error()})
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pushTimeout)
		defer cancel()
		if err := s.pusher.Push(pushCtx, snapshot); err != nil {
			s.logger.Warn("settings push failed, local copy kept", map[string]interface{}{"error": err.Error()})
		}
	}()
}

// Wait blocks until every pending push has finished.
func (s *RecipientStore) Wait() {
	s.wg.Wait()
}
