package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Ramsey-B/clover/internal/app"
	"github.com/Ramsey-B/clover/pkg/errs"
	"github.com/Ramsey-B/clover/pkg/models"
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Show two providers side by side before merging",
	RunE:  runPreview,
}

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge provider B into provider A",
	Long: `Merge provider B into provider A. A survives with the resolved field values,
B's dependents move to A and B is deleted.

The resolutions file maps every field to A, B or merge (services and districts
only), for example:

  name: B
  email: A
  services: merge

The file must name all fourteen fields. Pass --defaults instead to keep A for
every scalar field and union both lists.`,
	RunE: runMerge,
}

var (
	providerAID     string
	providerBID     string
	resolutionsPath string
	expectedA       int
	expectedB       int
	performedBy     string
	useDefaults     bool
)

func init() {
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(mergeCmd)

	for _, c := range []*cobra.Command{previewCmd, mergeCmd} {
		c.Flags().StringVar(&providerAID, "a", "", "Provider A id (survivor)")
		c.Flags().StringVar(&providerBID, "b", "", "Provider B id (merged away)")
		_ = c.MarkFlagRequired("a")
		_ = c.MarkFlagRequired("b")
	}
	mergeCmd.Flags().StringVar(&resolutionsPath, "resolutions", "", "YAML file with the per-field resolution map")
	mergeCmd.Flags().BoolVar(&useDefaults, "defaults", false, "Use the quick-merge resolution map (A everywhere, lists unioned)")
	mergeCmd.MarkFlagsMutuallyExclusive("resolutions", "defaults")
	mergeCmd.MarkFlagsOneRequired("resolutions", "defaults")
	mergeCmd.Flags().IntVar(&expectedA, "expected-version-a", 0, "Fail if provider A is no longer at this version")
	mergeCmd.Flags().IntVar(&expectedB, "expected-version-b", 0, "Fail if provider B is no longer at this version")
	mergeCmd.Flags().StringVar(&performedBy, "performed-by", os.Getenv("USER"), "Operator recorded in the merge audit")
}

func runPreview(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	return runApp(cfg, func(ctx context.Context, a *app.App) error {
		preview, err := a.Engine.GetProvidersForMerge(ctx, providerAID, providerBID)
		if err != nil {
			return withExitCode(err)
		}
		return printResult(cmd.OutOrStdout(), preview)
	})
}

func runMerge(cmd *cobra.Command, args []string) error {
	resolutions, err := mergeResolutions(resolutionsPath, useDefaults)
	if err != nil {
		return withExitCode(err)
	}

	req := models.MergeRequest{
		ProviderAID: providerAID,
		ProviderBID: providerBID,
		Resolutions: resolutions,
		PerformedBy: performedBy,
	}
	if cmd.Flags().Changed("expected-version-a") {
		req.ExpectedVersionA = &expectedA
	}
	if cmd.Flags().Changed("expected-version-b") {
		req.ExpectedVersionB = &expectedB
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	return runApp(cfg, func(ctx context.Context, a *app.App) error {
		outcome, err := a.Engine.MergeProviders(ctx, req)
		if err != nil {
			_ = printResult(cmd.OutOrStdout(), models.MergeResponse{Success: false, Error: errs.Message(err)})
			return withExitCode(err)
		}
		return printResult(cmd.OutOrStdout(), models.MergeResponse{Success: true, Outcome: outcome})
	})
}

func mergeResolutions(path string, defaults bool) (models.ResolutionMap, error) {
	switch {
	case defaults && path != "":
		return nil, errs.InvalidInput("--resolutions and --defaults cannot be combined")
	case defaults:
		return models.DefaultResolution(), nil
	case path == "":
		return nil, errs.InvalidInput("a resolution map is required: pass --resolutions or --defaults")
	}
	return loadResolutions(path)
}

// loadResolutions reads a complete YAML resolution map
func loadResolutions(path string) (models.ResolutionMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read resolutions file: %w", err)
	}

	raw := map[string]string{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errs.InvalidInput("resolutions file %s is not a field: choice map: %v", path, err)
	}

	resolutions, err := models.ParseResolutionMap(raw)
	if err != nil {
		return nil, err
	}
	if err := resolutions.Validate(); err != nil {
		return nil, err
	}
	return resolutions, nil
}
