package main

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"relic/internal/config"
	"relic/internal/daemon"
	"relic/internal/logging"
	"relic/internal/queue"
	"relic/internal/workflow"
)

func newRootCommand() *cobra.Command {
	var (
		configFlag string
		daemonFlag bool
		testFlag   bool
		statusFlag bool
	)

	ctx := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:   "relic",
		Short: "Process product photo folders into published listings",
		Long: `relic walks each folder in the watch directory through the listing
pipeline: category detection, SKU assignment, image optimization, CDN
upload, AI listing copy, and marketplace publish. Finished folders are
archived under the completed directory; failures move to the failed
directory with an error note.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if statusFlag {
				return runStatus(cmd, ctx)
			}
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				logger, err := logging.NewFromConfig(cfg)
				if err != nil {
					return fmt.Errorf("init logger: %w", err)
				}
				manager := workflow.NewManager(cfg, store, logger, workflow.WithTestMode(testFlag))

				if daemonFlag {
					return runDaemonLoop(cmd, cfg, store, logger, manager)
				}

				results := manager.RunOnce(cmd.Context())
				printRunSummary(cmd.OutOrStdout(), results)
				return nil
			})
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.Flags().BoolVarP(&daemonFlag, "daemon", "d", false, "Keep watching the folder on the configured interval")
	rootCmd.Flags().BoolVarP(&testFlag, "test", "t", false, "Run the pipeline without publishing listings")
	rootCmd.Flags().BoolVarP(&statusFlag, "status", "s", false, "Check service connectivity and queue state, then exit")

	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newQueueCommand(ctx))
	rootCmd.AddCommand(newSKUCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}

func runDaemonLoop(cmd *cobra.Command, cfg *config.Config, store *queue.Store, logger *slog.Logger, manager *workflow.Manager) error {
	signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	d, err := daemon.New(cfg, store, logger, manager)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "relic daemon started (lock %s)\n", d.LockPath())

	<-signalCtx.Done()
	d.Stop()
	logger.Info("relic daemon shut down")
	return nil
}
