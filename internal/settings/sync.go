package settings

import (
	"context"
	"errors"

	"apply-desk/internal/common/clock"
	apperrors "apply-desk/internal/common/errors"
	"apply-desk/internal/common/logger"
	"apply-desk/internal/common/metrics"
	"apply-desk/internal/keyspace"
	"apply-desk/internal/models"
	"apply-desk/internal/remotestore"
)

// RemoteSettings is the admin_settings table. *remotestore.Store implements it.
type RemoteSettings interface {
	FetchAdminSettings(ctx context.Context, apartmentID string) (*models.AdminSettings, error)
	UpsertAdminSettings(ctx context.Context, settings models.AdminSettings) error
}

type PullStatus string

const (
	PullApplied  PullStatus = "applied"
	PullNotFound PullStatus = "not_found"
	PullFailed   PullStatus = "failed"
)

type PullResult struct {
	Status   PullStatus
	Settings *models.AdminSettings
	Err      error
}

// Sync moves the admin settings row between the remote store and the local
// key space.
type Sync struct {
	remote      RemoteSettings
	ks          keyspace.KeySpace
	clock       clock.Clock
	logger      logger.Logger
	apartmentID string
	defaultName string
}

func NewSync(remote RemoteSettings, ks keyspace.KeySpace, clk clock.Clock, log logger.Logger, apartmentID, defaultName string) *Sync {
	if clk == nil {
		clk = clock.Real()
	}
	if defaultName == "" {
		defaultName = DefaultApartmentName
	}
	return &Sync{
		remote:      remote,
		ks:          ks,
		clock:       clk,
		logger:      log.WithFields(map[string]interface{}{"component": "settings-sync", "apartmentId": apartmentID}),
		apartmentID: apartmentID,
		defaultName: defaultName,
	}
}

// Pull copies every non-empty remote field into the local key space. A
// missing row or a remote error leaves the local values untouched; Pull
// never fails, the outcome is in the result.
func (s *Sync) Pull(ctx context.Context) PullResult {
	remote, err := s.remote.FetchAdminSettings(ctx, s.apartmentID)
	if errors.Is(err, remotestore.ErrNotFound) {
		metrics.SettingsSync.WithLabelValues("pull", string(PullNotFound)).Inc()
		s.logger.Info("no remote admin settings, keeping local values", nil)
		return PullResult{Status: PullNotFound}
	}
	if err != nil {
		metrics.SettingsSync.WithLabelValues("pull", string(PullFailed)).Inc()
		s.logger.Warn("admin settings pull failed, keeping local values", map[string]interface{}{"error": err.Error()})
		return PullResult{Status: PullFailed, Err: apperrors.NewSettingsSyncFailedError(err)}
	}

	if err := s.apply(ctx, remote); err != nil {
		metrics.SettingsSync.WithLabelValues("pull", string(PullFailed)).Inc()
		s.logger.Error("failed to cache remote admin settings", map[string]interface{}{"error": err.Error()})
		return PullResult{Status: PullFailed, Settings: remote, Err: apperrors.NewSettingsSyncFailedError(err)}
	}

	metrics.SettingsSync.WithLabelValues("pull", string(PullApplied)).Inc()
	s.logger.Info("admin settings pulled", map[string]interface{}{
		"phones": len(remote.Phones),
		"emails": len(remote.Emails),
	})
	return PullResult{Status: PullApplied, Settings: remote}
}

func (s *Sync) apply(ctx context.Context, remote *models.AdminSettings) error {
	if remote.Title != "" {
		if err := s.ks.Set(ctx, keyspace.KeyTitle, remote.Title); err != nil {
			return err
		}
	}
	if len(remote.Phones) > 0 {
		if err := keyspace.SetJSON(ctx, s.ks, keyspace.KeyPhones, remote.Phones); err != nil {
			return err
		}
	}
	if len(remote.Emails) > 0 {
		if err := keyspace.SetJSON(ctx, s.ks, keyspace.KeyEmails, remote.Emails); err != nil {
			return err
		}
	}
	name := remote.ApartmentName
	if name == "" {
		name = s.defaultName
	}
	return s.ks.Set(ctx, keyspace.KeyApartmentName, name)
}

// Push upserts settings for this deployment with updated_at set to now.
func (s *Sync) Push(ctx context.Context, settings models.AdminSettings) error {
	settings.ApartmentID = s.apartmentID
	settings.UpdatedAt = s.clock.Now().UTC()

	start := s.clock.Now()
	if err := s.remote.UpsertAdminSettings(ctx, settings); err != nil {
		metrics.SettingsSync.WithLabelValues("push", "failed").Inc()
		s.logger.Warn("admin settings push failed", map[string]interface{}{"error": err.Error()})
		return apperrors.NewSettingsSyncFailedError(err)
	}
	metrics.SettingsSync.WithLabelValues("push", "applied").Inc()
	s.logger.Info("admin settings pushed", map[string]interface{}{
		"duration": s.clock.Now().Sub(start).String(),
	})
	return nil
}
