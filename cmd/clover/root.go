package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Ramsey-B/clover/config"
	"github.com/Ramsey-B/clover/internal/app"
	"github.com/Ramsey-B/clover/pkg/errs"
)

var rootCmd = &cobra.Command{
	Use:   "clover",
	Short: "Duplicate detection and merging for provider records",
	Long: `clover finds providers that were registered more than once (same email,
same NIF or a near-identical name) and merges them into a single record,
moving notes, history, prices and onboarding cards to the survivor.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	storeDriver  string
	outputFormat string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&storeDriver, "store", "", "Record store driver: postgres or memory (overrides STORE_DRIVER)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "json", "Output format: json or yaml")
}

// exitError carries a process exit code chosen from the error kind
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// withExitCode maps error kinds to exit codes: 2 invalid input, 3 not found, 4 conflict, 1 otherwise
func withExitCode(err error) error {
	if err == nil {
		return nil
	}
	code := 1
	switch {
	case errs.IsInvalidInput(err):
		code = 2
	case errs.IsNotFound(err):
		code = 3
	case errs.IsConflict(err):
		code = 4
	}
	return &exitError{code: code, err: err}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if storeDriver != "" {
		cfg.StoreDriver = storeDriver
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// runApp starts the application, runs fn and shuts everything down again
func runApp(cfg *config.Config, fn func(ctx context.Context, a *app.App) error) error {
	logger, zapLogger, err := app.NewLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = zapLogger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := app.New(cfg, logger)
	if err := a.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := a.Stop(context.Background()); err != nil {
			logger.WithError(err).Error("Shutdown did not complete cleanly")
		}
	}()

	return fn(ctx, a)
}

func printResult(w io.Writer, v any) error {
	switch outputFormat {
	case "yaml":
		// round-trip through JSON so the yaml keys follow the json tags
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var generic any
		if err := json.Unmarshal(data, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(generic)
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown output format %q", outputFormat)
	}
}
