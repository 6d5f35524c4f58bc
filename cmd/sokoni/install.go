package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sokoniarena/sokoni/internal/install"
	"github.com/sokoniarena/sokoni/internal/model"
	"github.com/sokoniarena/sokoni/internal/notify"
	"github.com/sokoniarena/sokoni/internal/store"
)

var installOpts struct {
	force bool
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the SokoniArena desktop launcher",
	Long: `Add a SokoniArena entry to your application launcher.

Declining records nothing, so the browser will offer again. Choosing
"Not Now" in the browser banner is remembered; pass --force to ask anyway
and clear that choice.`,
	Args: cobra.NoArgs,
	RunE: runInstall,
}

func init() {
	rootCmd.AddCommand(installCmd)

	installCmd.Flags().BoolVar(&installOpts.force, "force", false,
		"Ask even if the install banner was dismissed")
}

func runInstall(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	dir, err := install.ApplicationsDir()
	if err != nil {
		return err
	}
	if install.Installed(dir) && !installOpts.force {
		fmt.Fprintln(cmd.OutOrStdout(), "SokoniArena is already installed")
		return nil
	}

	flags := store.NewDismissalFlags(prefs, logger)
	if installOpts.force {
		if err := flags.Reset(model.BannerInstall); err != nil {
			return err
		}
	} else if flags.IsDismissed(model.BannerInstall) {
		fmt.Fprintln(cmd.OutOrStdout(), "install banner was dismissed; pass --force to ask again")
		return nil
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to resolve executable: %w", err)
	}

	sig := install.NewLocalSignal()
	capturer := install.NewCapturer(sig, flags, logger)
	capturer.SetHideHandler(func() {
		fmt.Fprintf(cmd.OutOrStdout(), "Installed %s\n", install.DesktopEntryFile)
	})
	capturer.Start()
	defer capturer.Stop()

	prompter := &notify.HuhPrompter{Affirmative: "Install", Negative: "Not Now"}
	sig.Fire(install.NewCLIIntent(prompter, install.DesktopEntryInstaller(dir, exe)))

	outcome, ok, err := capturer.Accept(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no install intent captured")
	}
	if outcome == model.InstallDismissed {
		fmt.Fprintln(cmd.OutOrStdout(), "Not installed")
	}
	return nil
}
