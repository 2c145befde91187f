package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"relic/internal/config"
	"relic/internal/logging"
	"relic/internal/sku"
)

func newSKUCommand(ctx *commandContext) *cobra.Command {
	skuCmd := &cobra.Command{
		Use:   "sku",
		Short: "Allocate and inspect stock keeping units",
	}

	skuCmd.AddCommand(newSKUNextCommand(ctx))
	skuCmd.AddCommand(newSKUPeekCommand(ctx))
	skuCmd.AddCommand(newSKUSyncCommand(ctx))

	return skuCmd
}

func newSKUNextCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "next [prefix]",
		Short: "Allocate the next SKU for a category prefix",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSKUAllocation(cmd, ctx, args, true)
		},
	}
}

func newSKUPeekCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "peek [prefix]",
		Short: "Show the next SKU without consuming it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSKUAllocation(cmd, ctx, args, false)
		},
	}
}

func newSKUSyncCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync [prefix]",
		Short: "Reconcile SKU counters with folders already on disk",
		Long: `sync scans the watch, completed, and failed roots for folder names
carrying an existing SKU and raises the persisted counters to match, so the
allocator never re-issues a number after manual folder moves or state-file
loss. Counters are never lowered. Without an argument every configured
category prefix is reconciled.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			prefixes, err := syncPrefixes(cfg, args)
			if err != nil {
				return err
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			allocator := sku.NewAllocator(cfg, logger)
			scanner := sku.NewScanner(cfg.Paths.WatchDir, cfg.Paths.CompletedDir, cfg.Paths.FailedDir)
			year := time.Now().Year()

			out := cmd.OutOrStdout()
			for _, prefix := range prefixes {
				lastUsed, err := scanner.LastUsed(prefix, year)
				if err != nil {
					return err
				}
				if lastUsed == 0 {
					fmt.Fprintf(out, "%s: nothing on disk\n", prefix)
					continue
				}
				if err := allocator.SyncFromScan(cmd.Context(), prefix, year, lastUsed); err != nil {
					return err
				}
				fmt.Fprintf(out, "%s: highest on disk %04d, counter reconciled\n", prefix, lastUsed)
			}
			return nil
		},
	}
}

func syncPrefixes(cfg *config.Config, args []string) ([]string, error) {
	if len(args) > 0 {
		prefix, err := resolvePrefix(cfg, args)
		if err != nil {
			return nil, err
		}
		return []string{prefix}, nil
	}
	seen := make(map[string]struct{})
	var prefixes []string
	for _, id := range cfg.CategoryOrder() {
		prefix := cfg.Categories.Entries[id].Prefix
		if prefix == "" {
			continue
		}
		if _, ok := seen[prefix]; ok {
			continue
		}
		seen[prefix] = struct{}{}
		prefixes = append(prefixes, prefix)
	}
	return prefixes, nil
}

func runSKUAllocation(cmd *cobra.Command, ctx *commandContext, args []string, commit bool) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	prefix, err := resolvePrefix(cfg, args)
	if err != nil {
		return err
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	allocator := sku.NewAllocator(cfg, logger)

	var code string
	if commit {
		code, err = allocator.Generate(cmd.Context(), prefix, 0)
	} else {
		code, err = allocator.PeekNext(cmd.Context(), prefix, 0)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), code)
	return nil
}

func resolvePrefix(cfg *config.Config, args []string) (string, error) {
	if len(args) > 0 {
		prefix := strings.ToUpper(strings.TrimSpace(args[0]))
		if prefix == "" {
			return "", fmt.Errorf("prefix must not be empty")
		}
		return prefix, nil
	}
	if cat, ok := cfg.Categories.Entries[cfg.Categories.Default]; ok && cat.Prefix != "" {
		return cat.Prefix, nil
	}
	return "", fmt.Errorf("no prefix given and default category %q has none configured", cfg.Categories.Default)
}
