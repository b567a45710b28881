// cmd/jupiter-swap/root.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/jupiter-swap/internal/app"
	"github.com/rovshanmuradov/jupiter-swap/internal/config"
	"github.com/rovshanmuradov/jupiter-swap/internal/logger"
)

var (
	configPath    string
	envFile       string
	debug         bool
	refreshTokens bool

	application *app.App
	appLogger   *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "jupiter-swap",
	Short: "Quote and execute Solana token swaps through Jupiter",
	Long: `jupiter-swap fetches live Jupiter quotes, shows the route they take and
executes swaps signed with a local keypair.

Examples:
  jupiter-swap quote 1.5 SOL USDC
  jupiter-swap swap 1.5 SOL USDC --yes
  jupiter-swap watch SOL USDC
  jupiter-swap balance
  jupiter-swap history export --format csv`,
	Version:           "0.1.0",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (JSON or YAML)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file loaded before the config")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&refreshTokens, "refresh-tokens", false, "Load the verified token list before running")
}

func setup(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	logCfg := logger.DefaultConfig()
	logCfg.LogFile = cfg.LogFile
	logCfg.Development = cfg.DebugLogging || debug
	logCfg.Pretty = true
	appLogger, err = logger.New(logCfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	application, err = app.New(cfg, appLogger.Logger)
	if err != nil {
		return err
	}

	if refreshTokens {
		end := appLogger.TrackPerformance("refresh-tokens")
		if _, err := application.Resolver.Refresh(cmd.Context()); err != nil {
			appLogger.Warn("Verified token list unavailable, using built-in tokens", zap.Error(err))
		}
		end()
	}
	return nil
}

// teardown flushes the components built by setup. It runs after every
// command, including failed ones.
func teardown() error {
	var errs []error
	if application != nil {
		errs = append(errs, application.Shutdown(context.Background()))
	}
	if appLogger != nil {
		errs = append(errs, appLogger.Close())
	}
	return errors.Join(errs...)
}
