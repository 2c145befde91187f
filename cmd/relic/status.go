package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"relic/internal/config"
	"relic/internal/deps"
	"relic/internal/logging"
	"relic/internal/queue"
	"relic/internal/workflow"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report stage readiness and queue state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, ctx)
		},
	}
}

func runStatus(cmd *cobra.Command, ctx *commandContext) error {
	return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		manager := workflow.NewManager(cfg, store, logger)

		out := cmd.OutOrStdout()
		colorize := isTerminal(out)

		printSection(out, "Stages", colorize)
		unready := 0
		for _, health := range manager.Health(cmd.Context()) {
			kind := statusOK
			if !health.Ready {
				kind = statusError
				unready++
			}
			fmt.Fprintln(out, renderStatusLine(health.Name, kind, health.Detail, colorize))
		}

		if requirements := deps.Requirements(cfg); len(requirements) > 0 {
			printSection(out, "Tools", colorize)
			for _, tool := range deps.CheckBinaries(requirements) {
				kind := statusOK
				detail := tool.Command
				if !tool.Available {
					kind = statusWarn
					if !tool.Optional {
						kind = statusError
						unready++
					}
					detail = tool.Detail
				}
				fmt.Fprintln(out, renderStatusLine(tool.Name, kind, detail, colorize))
			}
		}

		printSection(out, "Queue", colorize)
		summary, err := store.Health(cmd.Context())
		if err != nil {
			return fmt.Errorf("queue health: %w", err)
		}
		fmt.Fprintln(out, renderStatusLine("total", statusInfo, fmt.Sprintf("%d", summary.Total), colorize))
		fmt.Fprintln(out, renderStatusLine("pending", statusInfo, fmt.Sprintf("%d", summary.Pending), colorize))
		fmt.Fprintln(out, renderStatusLine("processing", statusInfo, fmt.Sprintf("%d", summary.Processing), colorize))
		fmt.Fprintln(out, renderStatusLine("completed", statusOK, fmt.Sprintf("%d", summary.Completed), colorize))
		failedKind := statusOK
		if summary.Failed > 0 {
			failedKind = statusWarn
		}
		fmt.Fprintln(out, renderStatusLine("failed", failedKind, fmt.Sprintf("%d", summary.Failed), colorize))

		if unready > 0 {
			return fmt.Errorf("%d stage(s) not ready", unready)
		}
		return nil
	})
}

func printSection(w io.Writer, title string, colorize bool) {
	for _, line := range renderSectionHeader(title, colorize) {
		fmt.Fprintln(w, line)
	}
}
