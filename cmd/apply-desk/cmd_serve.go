package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"apply-desk/internal/common/camunda"
	"apply-desk/internal/common/config"
	"apply-desk/internal/keyspace"
	submitapplication "apply-desk/internal/workers/application/submit-application"
	syncadminsettings "apply-desk/internal/workers/settings/sync-admin-settings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(c *cli) *cobra.Command {
	var noWorkers bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the job workers and the health/metrics endpoints",
		Long: `Starts the submit-application and sync-admin-settings job workers against
the configured Zeebe gateway and serves /health, /ready and /metrics.
Cached admin settings are refreshed from the remote store at startup.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return c.withApp(ctx, func(a *app) error {
				return serve(ctx, a, noWorkers)
			})
		},
	}
	cmd.Flags().BoolVar(&noWorkers, "no-workers", false, "serve HTTP endpoints only, without connecting to Zeebe")
	return cmd
}

func serve(ctx context.Context, a *app, noWorkers bool) error {
	cfg := a.cfg

	res := a.sync.Pull(ctx)
	a.log.Info("startup settings pull", map[string]interface{}{"status": string(res.Status)})

	var (
		zeebe   *camunda.Client
		workers []*camunda.Worker
	)
	if !noWorkers {
		var err error
		zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: cfg.Camunda.Plaintext,
			ConnectionTimeout:      config.GetDuration(cfg.Camunda.Timeout),
			RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
		})
		if err != nil {
			return err
		}
		defer zeebe.Close()
		workers = startWorkers(zeebe, a)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":    "healthy",
			"service":   cfg.App.Name,
			"relay":     a.client.State().String(),
			"relayInit": a.client.AttemptsUsed(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		checks := readiness(r.Context(), a, zeebe)
		status := http.StatusOK
		for _, v := range checks {
			if v != "ok" {
				status = http.StatusServiceUnavailable
			}
		}
		writeJSON(w, status, checks)
	})
	mux.HandleFunc("/relay/reset", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
			return
		}
		a.client.Reset()
		a.log.Info("relay reset by operator", nil)
		writeJSON(w, http.StatusOK, map[string]string{"relay": a.client.State().String()})
	})
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Info("http server listening", map[string]interface{}{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("shutdown signal received, stopping workers", nil)

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), config.GetDuration(cfg.Server.ShutdownTimeout))
		defer cancel()
		for _, w := range workers {
			w.Stop()
		}
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func startWorkers(zeebe *camunda.Client, a *app) []*camunda.Worker {
	timeout := func(taskType string) time.Duration {
		return config.GetDuration(config.GetWorkerConfig(a.cfg, taskType).Timeout)
	}
	handlers := map[string]camunda.JobHandler{
		submitapplication.TaskType: submitapplication.NewHandler(
			&submitapplication.Config{Timeout: timeout(submitapplication.TaskType)},
			a.service, a.obs, a.log,
		).Handle,
		syncadminsettings.TaskType: syncadminsettings.NewHandler(
			&syncadminsettings.Config{Timeout: timeout(syncadminsettings.TaskType)},
			a.sync, a.recipients, nil, a.log,
		).Handle,
	}

	var workers []*camunda.Worker
	for taskType, handler := range handlers {
		if !config.IsWorkerEnabled(a.cfg, taskType) {
			a.log.Info("worker disabled", map[string]interface{}{"taskType": taskType})
			continue
		}
		w := camunda.StartWorker(zeebe.GetClient(), taskType, config.GetWorkerConfig(a.cfg, taskType), handler, a.log)
		if w != nil {
			workers = append(workers, w)
		}
	}
	return workers
}

func readiness(ctx context.Context, a *app, zeebe *camunda.Client) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	checks := map[string]string{"postgres": "ok", "localStore": "ok"}
	if err := a.store.Ping(ctx); err != nil {
		checks["postgres"] = err.Error()
	}
	if _, _, err := a.ks.Get(ctx, keyspace.KeyTitle); err != nil {
		checks["localStore"] = err.Error()
	}
	if zeebe != nil {
		checks["zeebe"] = "ok"
		if err := zeebe.HealthCheck(ctx); err != nil {
			checks["zeebe"] = err.Error()
		}
	}
	return checks
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
