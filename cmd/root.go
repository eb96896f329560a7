// Package cmd defines the siteaudit command line: an HTTP server and a
// one-shot audit command sharing the same configuration and services.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/website-audit/internal/api"
	"github.com/JakeFAU/website-audit/internal/app"
	"github.com/JakeFAU/website-audit/internal/audit"
	"github.com/JakeFAU/website-audit/internal/config"
	"github.com/JakeFAU/website-audit/internal/logging"
)

// App is the subset of the service container the commands use. Tests swap
// in a fake through newApp.
type App interface {
	Auditor() api.Auditor
	Records() audit.RecordStore
	Ready(ctx context.Context) error
	Close() error
}

// newApp is the application factory; a variable so tests can replace it.
var newApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (App, error) {
	return app.Build(ctx, cfg, logger)
}

type runtimeKey struct{}

// runtime is what PersistentPreRunE hands to subcommands.
type runtime struct {
	cfg    config.Config
	logger *zap.Logger
	app    App
}

func runtimeFrom(cmd *cobra.Command) (*runtime, error) {
	rt, ok := cmd.Context().Value(runtimeKey{}).(*runtime)
	if !ok || rt == nil {
		return nil, fmt.Errorf("application not initialized")
	}
	return rt, nil
}

// rootCommand owns the services PersistentPreRunE builds so they can be
// released after any subcommand, including one that failed. Cobra skips
// PersistentPostRunE when RunE returns an error.
type rootCommand struct {
	*cobra.Command
	rt *runtime
}

func newRootCmd() *rootCommand {
	var cfgFile string
	root := &rootCommand{}

	cmd := &cobra.Command{
		Use:   "siteaudit",
		Short: "Audit a website landing page with a panel of LLM reviewers.",
		Long: `siteaudit fetches a landing page, extracts its headline content and runs six
concurrent analyses (business clarity, style, hero, problem/solution, SEO and
conversion). Results are scored, stored and optionally archived and announced.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.NewWithFile(cfg.Logging.Development, logging.FileConfig{
				Path:       cfg.Logging.File,
				MaxSizeMB:  cfg.Logging.MaxSizeMB,
				MaxBackups: cfg.Logging.MaxBackups,
				MaxAgeDays: cfg.Logging.MaxAgeDays,
				Compress:   true,
			})
			if err != nil {
				return fmt.Errorf("logger init failed: %w", err)
			}
			zap.ReplaceGlobals(logger)

			appInstance, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			root.rt = &runtime{
				cfg:    cfg,
				logger: logger,
				app:    appInstance,
			}
			cmd.SetContext(context.WithValue(cmd.Context(), runtimeKey{}, root.rt))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	cmd.AddCommand(newServeCmd(), newAuditCmd())
	root.Command = cmd
	return root
}

// execute runs the command tree, then closes the application and flushes
// the logger whether or not the subcommand succeeded.
func (r *rootCommand) execute(ctx context.Context) error {
	err := r.ExecuteContext(ctx)
	if r.rt == nil {
		return err
	}
	closeErr := r.rt.app.Close()
	_ = r.rt.logger.Sync()
	r.rt = nil
	if closeErr != nil {
		err = errors.Join(err, fmt.Errorf("shutdown: %w", closeErr))
	}
	return err
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().execute(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
