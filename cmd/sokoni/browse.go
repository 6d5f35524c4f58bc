package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sokoniarena/sokoni/internal/banner"
	"github.com/sokoniarena/sokoni/internal/install"
	"github.com/sokoniarena/sokoni/internal/store"
	"github.com/sokoniarena/sokoni/internal/tui"
)

var browseOpts struct {
	accessToken string
}

var browseCmd = &cobra.Command{
	Use:     "browse",
	Aliases: []string{"tui"},
	Short:   "Browse events and services",
	Long: `Launch the interactive marketplace browser.

The browser provides:
  - Events and Services pages with category and sort filters
  - Search across titles
  - Detail view with the full listing
  - An install banner for the desktop launcher
  - A notification banner for signed-in users (after a short delay)

Key bindings:
  tab         Switch between events and services
  /           Search listings
  c / s / x   Cycle category, cycle sort, clear filters
  enter       View listing details
  I / i       Install the launcher / not now
  E / e       Enable notifications / not now
  ?           Show help
  q           Quit

Pass --access-token (or set SOKONI_ACCESS_TOKEN) to browse signed in.`,
	RunE: runBrowse,
}

func init() {
	rootCmd.AddCommand(browseCmd)

	for _, c := range []*cobra.Command{rootCmd, browseCmd} {
		c.Flags().StringVar(&browseOpts.accessToken, "access-token", "",
			"Supabase access token for the signed-in session")
	}
}

func runBrowse(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	fetcher, err := newFetcher()
	if err != nil {
		return err
	}

	prompter := tui.NewPrompter()
	n := newNotifier(ctx, prefs, prompter)
	defer n.close()

	flags := store.NewDismissalFlags(prefs, logger)
	installSignal := install.NewLocalSignal()
	capturer := install.NewCapturer(installSignal, flags, logger)

	ctrl := banner.NewController(n, capturer, flags, banner.Config{
		RevealDelay: cfg.Prompts.RevealDelay.Duration(),
		Logger:      logger,
	})

	token := browseOpts.accessToken
	if token == "" {
		token = os.Getenv("SOKONI_ACCESS_TOKEN")
	}
	ctrl.SetSession(resolveSession(ctx, token))

	ctrl.Mount(ctx)
	defer ctrl.Unmount()

	offerInstall(installSignal, prompter)

	// Pick up resets and grants made by other sokoni processes.
	watcher, err := store.NewFileWatcher(prefs, logger)
	if err != nil {
		logger.Warn("failed to watch preferences", "error", err)
	} else {
		watcher.SetChangeCallback(ctrl.Reevaluate)
		if err := watcher.Start(); err != nil {
			logger.Warn("failed to watch preferences", "error", err)
		} else {
			defer func() { _ = watcher.Stop() }()
		}
	}

	return tui.Run(tui.Options{
		Config:   cfg,
		Fetcher:  fetcher,
		Banners:  ctrl,
		Prompter: prompter,
	})
}

// offerInstall fires an install intent unless the launcher is already
// present.
func offerInstall(sig *install.LocalSignal, confirm install.Confirmer) {
	dir, err := install.ApplicationsDir()
	if err != nil {
		logger.Debug("no applications directory", "error", err)
		return
	}
	if install.Installed(dir) {
		return
	}
	exe, err := os.Executable()
	if err != nil {
		logger.Debug("failed to resolve executable", "error", err)
		return
	}
	sig.Fire(install.NewCLIIntent(confirm, install.DesktopEntryInstaller(dir, exe)))
}
