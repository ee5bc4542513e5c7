package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/clover/internal/app"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List duplicate provider groups",
	RunE:  runScan,
}

var quickMergeCmd = &cobra.Command{
	Use:   "quick-merge",
	Short: "Merge every email and NIF duplicate into its oldest provider",
	Long: `Merge exact duplicates without operator input. Each email or NIF group keeps
its oldest provider; scalar fields keep the survivor's values and services and
districts are unioned. Name-similarity groups are never merged here.`,
	RunE: runQuickMerge,
}

var (
	scanThreshold float64
	scanAlgorithm string
)

func init() {
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(quickMergeCmd)

	scanCmd.Flags().Float64Var(&scanThreshold, "threshold", 0, "Name similarity threshold in percent (overrides NAME_SIMILARITY_THRESHOLD)")
	scanCmd.Flags().StringVar(&scanAlgorithm, "algorithm", "", "Name similarity algorithm: levenshtein or jaro_winkler")
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if scanThreshold > 0 {
		cfg.NameSimilarityThreshold = scanThreshold
	}
	if scanAlgorithm != "" {
		cfg.NameSimilarityAlgorithm = scanAlgorithm
	}
	if err := cfg.Validate(); err != nil {
		return withExitCode(err)
	}

	return runApp(cfg, func(ctx context.Context, a *app.App) error {
		result, err := a.Scanner.Scan(ctx)
		if err != nil {
			return withExitCode(err)
		}
		return printResult(cmd.OutOrStdout(), result)
	})
}

func runQuickMerge(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	return runApp(cfg, func(ctx context.Context, a *app.App) error {
		result := a.QuickMerger.QuickMergeExactDuplicates(ctx)
		if err := printResult(cmd.OutOrStdout(), result); err != nil {
			return err
		}
		if !result.Success {
			return fmt.Errorf("quick merge failed: %s", result.Error)
		}
		return nil
	})
}
