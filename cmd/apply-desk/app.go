package main

import (
	"context"
	"errors"
	"fmt"

	"apply-desk/internal/common/aws"
	"apply-desk/internal/common/clock"
	"apply-desk/internal/common/config"
	"apply-desk/internal/common/database"
	"apply-desk/internal/common/logger"
	"apply-desk/internal/common/observability"
	"apply-desk/internal/keyspace"
	"apply-desk/internal/ledger"
	"apply-desk/internal/notification"
	"apply-desk/internal/remotestore"
	"apply-desk/internal/settings"
	"apply-desk/internal/submission"

	"github.com/prometheus/client_golang/prometheus"
)

// app holds every wired component for one process.
type app struct {
	cfg *config.Config
	log logger.Logger
	obs *observability.Observability

	pg         *database.PostgresClient
	store      *remotestore.Store
	ks         keyspace.KeySpace
	sync       *settings.Sync
	recipients *settings.RecipientStore
	client     *notification.Client
	dispatcher *notification.Dispatcher
	ledger     *ledger.Ledger
	service    *submission.Service
}

// buildApp wires config → stores → relay → dispatcher → ledger → service.
// Nothing here dials the remote store; an unreachable database sends
// submissions to the ledger instead of failing startup.
func buildApp(ctx context.Context, cfg *config.Config, log logger.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}
	clk := clock.Real()
	loc := cfg.Deployment.Location()

	obs, err := observability.New(observability.Options{
		ServiceName: cfg.App.Name,
		Registerer:  prometheus.DefaultRegisterer,
	})
	if err != nil {
		return nil, fmt.Errorf("observability: %w", err)
	}
	a.obs = obs

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		_ = a.close(ctx)
		return nil, err
	}
	a.pg = pg
	a.store = remotestore.New(pg.GetDB(), log)

	ks, err := keyspace.Open(ctx, cfg.Database)
	if err != nil {
		_ = a.close(ctx)
		return nil, fmt.Errorf("open local key space: %w", err)
	}
	a.ks = ks

	a.sync = settings.NewSync(a.store, ks, clk, log, cfg.Deployment.ApartmentID, cfg.Deployment.ApartmentName)
	a.recipients = settings.NewRecipientStore(ks, a.sync, log, settings.StoreOptions{
		ApartmentID:   cfg.Deployment.ApartmentID,
		ApartmentName: cfg.Deployment.ApartmentName,
		DefaultTitle:  cfg.Deployment.DefaultTitle,
	})

	var (
		sesAPI notification.SESAPI
		snsAPI notification.SNSAPI
	)
	awsCfg := cfg.Integrations.AWS
	if awsCfg.SES.Enabled || (awsCfg.SNS.Enabled && cfg.Notice.SMSEnabled) {
		sdkCfg, err := aws.LoadConfig(ctx, awsCfg.Region, 0)
		if err != nil {
			_ = a.close(ctx)
			return nil, err
		}
		if awsCfg.SES.Enabled {
			sesAPI = aws.NewSESClient(sdkCfg)
		}
		if awsCfg.SNS.Enabled && cfg.Notice.SMSEnabled {
			snsAPI = aws.NewSNSClient(sdkCfg)
		}
	}

	attempts, err := a.attemptLog(ctx)
	if err != nil {
		_ = a.close(ctx)
		return nil, err
	}

	relay := notification.NewSESRelay(sesAPI, notification.SESRelayConfig{
		FromEmail:        awsCfg.SES.FromEmail,
		ConfigurationSet: awsCfg.SES.ConfigurationSet,
		TemplateName:     awsCfg.SES.TemplateName,
	})
	rc := cfg.Relay
	a.client = notification.NewClient(relay,
		notification.DialProbe{Address: rc.ProbeAddress, Timeout: config.GetDuration(rc.ProbeTimeout)},
		attempts, clk, log,
		notification.Options{
			MaxInitAttempts: rc.MaxInitAttempts,
			LoadWait:        config.GetDuration(rc.LoadWait),
			MobileLoadWait:  config.GetDuration(rc.MobileLoadWait),
			InitBackoff:     config.GetDuration(rc.InitBackoff),
			SendTimeout:     config.GetDuration(rc.SendTimeout),
			InitCooldown:    config.GetDuration(rc.InitCooldownSecs * 1000),
			UserAgent:       rc.UserAgent,
		})

	a.dispatcher = notification.NewDispatcher(a.client, a.recipients, a.notices(snsAPI), clk, log,
		notification.DispatcherOptions{
			Pause:           config.GetDuration(rc.RecipientPause),
			SubmissionLabel: rc.SubmissionLabel,
			Location:        loc,
		})

	a.ledger = ledger.New(ks, a.dispatcher, clk, loc, log)
	a.service = submission.NewService(a.store, a.ledger, a.dispatcher, log, submission.Options{
		Location: loc,
		Clock:    clk,
		Tracer:   obs.Tracer(),
	})
	return a, nil
}

func (a *app) attemptLog(ctx context.Context) (notification.AttemptLog, error) {
	var logs notification.MultiAttemptLog
	if a.cfg.AttemptLog.Postgres {
		logs = append(logs, a.store)
	}
	if a.cfg.AttemptLog.Elasticsearch {
		es, err := database.NewElasticsearch(a.cfg.Database.Elasticsearch, nil)
		if err != nil {
			return nil, err
		}
		if err := es.Ping(ctx); err != nil {
			a.log.Warn("elasticsearch unreachable at startup", map[string]interface{}{"error": err.Error()})
		}
		logs = append(logs, notification.NewElasticAttemptLog(es.Client, a.cfg.AttemptLog.Index))
	}
	if len(logs) == 0 {
		return notification.LogAttemptLog{Logger: a.log}, nil
	}
	return logs, nil
}

func (a *app) notices(snsAPI notification.SNSAPI) notification.NoticeSurface {
	multi := &notification.MultiNotice{Logger: a.log}
	if a.cfg.Notice.LogEnabled || snsAPI == nil {
		multi.Surfaces = append(multi.Surfaces, notification.LogNotice{Logger: a.log})
	}
	if snsAPI != nil {
		multi.Surfaces = append(multi.Surfaces, notification.NewSMSNotice(snsAPI, a.cfg.Integrations.AWS.SNS.SenderID))
	}
	return multi
}

// close waits for pending settings pushes, then releases every handle.
func (a *app) close(ctx context.Context) error {
	var errs []error
	if a.recipients != nil {
		a.recipients.Wait()
	}
	if a.ks != nil {
		errs = append(errs, a.ks.Close())
	}
	if a.pg != nil {
		errs = append(errs, a.pg.Close())
	}
	if a.obs != nil {
		errs = append(errs, a.obs.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
