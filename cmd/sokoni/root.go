// Package main provides the CLI entrypoint for sokoni.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sokoniarena/sokoni/internal/config"
	"github.com/sokoniarena/sokoni/internal/store"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// Global configuration and state
var (
	cfg        *config.Config
	globalOpts struct {
		verbose    bool
		configPath string
		dataDir    string
	}
	logger *slog.Logger

	// prefs backs the dismissal flags and the notification permission.
	prefs *store.FileKV
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "sokoni",
	Short: "SokoniArena marketplace client",
	Long: `sokoni is a terminal client for the SokoniArena marketplace.

It browses events and services, offers to install a desktop launcher,
negotiates desktop notification permission and serves the backend hooks
(confirmation email, auth callback).

Running sokoni without a subcommand launches the interactive browser.`,
	Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogger()

		var err error
		cfg, err = config.LoadConfig(globalOpts.configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		path, err := prefsPath()
		if err != nil {
			return fmt.Errorf("failed to resolve data directory: %w", err)
		}
		prefs, err = store.OpenFileKV(path)
		if err != nil {
			return fmt.Errorf("failed to open preferences: %w", err)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBrowse(cmd, args)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&globalOpts.configPath, "config", "",
		"Path to config file (default: ~/.config/sokoni/config.toml)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.dataDir, "data-dir", "",
		"Directory for local state (default: ~/.local/share/sokoni)")
}

// setupLogger configures the global slog logger.
func setupLogger() {
	level := slog.LevelWarn
	if globalOpts.verbose {
		level = slog.LevelDebug
	}

	// Log to stderr so stdout is clean for output
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger = slog.New(handler)
	slog.SetDefault(logger)
}

func prefsPath() (string, error) {
	if globalOpts.dataDir != "" {
		return filepath.Join(globalOpts.dataDir, "prefs.json"), nil
	}
	return store.PrefsPath()
}
