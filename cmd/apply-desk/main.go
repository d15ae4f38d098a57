package main

import (
	"context"
	"fmt"
	"os"

	"apply-desk/internal/common/config"
	"apply-desk/internal/common/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// cli carries state shared by every subcommand.
type cli struct {
	configPath string
	verbose    bool

	cfg    *config.Config
	zapLog *zap.Logger
	log    logger.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "apply-desk",
		Short: "Telecom-improvement request intake for an apartment complex",
		Long: `apply-desk accepts telecom-improvement requests, stores them in PostgreSQL
(or in the local ledger when the database is unreachable) and emails the
administrator contacts through Amazon SES.

Run "apply-desk serve" to start the workflow job workers and the health and
metrics endpoints.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.zapLog != nil {
				_ = c.zapLog.Sync()
			}
		},
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "path to config.yaml (default: ./configs/config.yaml)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newServeCmd(c),
		newSubmitCmd(c),
		newAdminCmd(c),
		newLedgerCmd(c),
		newAttemptsCmd(c),
		newMigrateCmd(c),
	)
	return root
}

func (c *cli) init() error {
	var err error
	if c.configPath != "" {
		c.cfg, err = config.LoadFromFile(c.configPath)
	} else {
		c.cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := c.cfg.Logging.Level
	if c.verbose {
		level = "debug"
	}
	opts := logger.Options{
		Level:     level,
		Format:    c.cfg.Logging.Format,
		Component: c.cfg.App.Name,
	}
	if c.cfg.Logging.Output != "" {
		opts.OutputPaths = []string{c.cfg.Logging.Output}
	}
	c.zapLog, err = logger.New(opts)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	c.log = logger.NewZapAdapter(c.zapLog)

	if config.EnvFileLoaded != "" {
		c.log.Debug("loaded env file", map[string]interface{}{"path": config.EnvFileLoaded})
	}
	return nil
}

// withApp builds the app for one command and closes it afterwards.
func (c *cli) withApp(ctx context.Context, fn func(*app) error) error {
	a, err := buildApp(ctx, c.cfg, c.log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.close(context.WithoutCancel(ctx)); err != nil {
			c.log.Warn("shutdown incomplete", map[string]interface{}{"error": err.Error()})
		}
	}()
	return fn(a)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
