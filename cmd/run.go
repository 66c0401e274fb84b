// -- cmd/run.go --
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pagepilot-ai/pagepilot/internal/actionlog"
	"github.com/pagepilot-ai/pagepilot/internal/browser"
	"github.com/pagepilot-ai/pagepilot/internal/config"
	"github.com/pagepilot-ai/pagepilot/internal/engine"
	"github.com/pagepilot-ai/pagepilot/internal/executor"
	"github.com/pagepilot-ai/pagepilot/internal/llmclient"
	"github.com/pagepilot-ai/pagepilot/internal/observability"
	"github.com/pagepilot-ai/pagepilot/internal/oracle"
)

var runFlags struct {
	startURL   string
	maxSteps   int
	confidence float64
	headless   bool
}

var runCmd = &cobra.Command{
	Use:   `run "<command>"`,
	Short: "Execute one natural-language command against a live page.",
	Long: `Run opens a browser, optionally navigates to --url, and then drives the
page until the command is satisfied, the step budget runs out, or the run is
interrupted. Example:

  pagepilot run --url example.com "click the login button"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := applyRunOverrides(cmd, loadedCfg)
		return runCommand(cmd.Context(), cfg, args[0])
	},
}

func init() {
	runCmd.Flags().StringVar(&runFlags.startURL, "url", "", "URL to open before executing the command")
	runCmd.Flags().IntVar(&runFlags.maxSteps, "max-steps", 0, "override the step budget")
	runCmd.Flags().Float64Var(&runFlags.confidence, "confidence", 0, "override the verification confidence threshold")
	runCmd.Flags().BoolVar(&runFlags.headless, "headless", true, "run the browser headless")
	rootCmd.AddCommand(runCmd)
}

// applyRunOverrides layers explicit run flags over the loaded config. Only
// flags the user actually set win; defaults never clobber the config file.
func applyRunOverrides(cmd *cobra.Command, base *config.Config) *config.Config {
	if base == nil {
		base = config.NewDefaultConfig()
	}
	cfg := *base
	if cmd.Flags().Changed("max-steps") {
		cfg.Engine.MaxSteps = runFlags.maxSteps
	}
	if cmd.Flags().Changed("confidence") {
		cfg.Engine.ConfidenceThreshold = runFlags.confidence
	}
	if cmd.Flags().Changed("headless") {
		cfg.Browser.Headless = runFlags.headless
	}
	return &cfg
}

func runCommand(ctx context.Context, cfg *config.Config, command string) error {
	logger := observability.GetLogger()

	page, err := browser.NewPage(ctx, cfg.Browser, cfg.Engine.NavigationTimeout, logger)
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}
	defer func() {
		// Shutdown must work even after the signal context is cancelled.
		if err := page.Close(context.Background()); err != nil {
			logger.Warn("Failed to close browser cleanly", zap.Error(err))
		}
	}()

	router, err := llmclient.NewRouterFromConfig(cfg.Oracle, logger)
	if err != nil {
		return fmt.Errorf("failed to build oracle clients: %w", err)
	}
	defer func() {
		if err := router.Close(); err != nil {
			logger.Warn("Failed to close oracle clients", zap.Error(err))
		}
	}()

	log := actionlog.New(cfg.ActionLog)
	defer func() {
		if err := log.Close(); err != nil {
			logger.Warn("Failed to close action log", zap.Error(err))
		}
	}()

	observer := browser.NewPageObserver(page, logger)
	registry := engine.NewRegistry(observer, cfg.Engine.ObservationTimeout, logger)
	exec := executor.New(page, log, cfg.Engine.ActionTimeout, logger)
	controller := engine.NewController(engine.Config{
		MaxSteps:            cfg.Engine.MaxSteps,
		ConfidenceThreshold: cfg.Engine.ConfidenceThreshold,
		SettleDelay:         cfg.Engine.SettleDelay,
	}, registry, oracle.NewPlanner(router, logger), oracle.NewVerifier(router, logger), exec, logger)

	if runFlags.startURL != "" {
		target, err := executor.NormalizeURL(runFlags.startURL)
		if err != nil {
			return fmt.Errorf("invalid --url: %w", err)
		}
		if err := page.Navigate(ctx, target); err != nil {
			return fmt.Errorf("failed to open %s: %w", target, err)
		}
	}

	result := controller.Run(ctx, command)
	printResult(result)

	if result.Status == engine.StatusFailed {
		return fmt.Errorf("command failed after %d steps: %w", result.Steps, result.LastErr)
	}
	return nil
}

func printResult(result engine.Result) {
	fmt.Printf("Session:  %s\n", result.SessionID)
	fmt.Printf("Command:  %s\n", result.Command)
	fmt.Printf("Status:   %s\n", result.Status)
	fmt.Printf("Steps:    %d\n", result.Steps)
	if result.Verdict != nil {
		fmt.Printf("Verdict:  satisfied=%t confidence=%.2f\n", result.Verdict.Satisfied, result.Verdict.Confidence)
		if result.Verdict.Reason != "" {
			fmt.Printf("Reason:   %s\n", result.Verdict.Reason)
		}
	}
	if result.LastErr != nil && errors.Is(result.LastErr, executor.ErrLocatorUnresolved) {
		fmt.Println("Hint: the target element could not be located; try completing this step manually or rephrasing the command.")
	}
}
