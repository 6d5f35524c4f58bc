package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sokoniarena/sokoni/internal/install"
	"github.com/sokoniarena/sokoni/internal/model"
	"github.com/sokoniarena/sokoni/internal/notify"
	"github.com/sokoniarena/sokoni/internal/store"
)

var promptsOpts struct {
	format string
}

// PromptStatus is the persisted prompt state.
type PromptStatus struct {
	InstallDismissed      bool       `json:"install_dismissed" yaml:"install_dismissed"`
	NotificationDismissed bool       `json:"notification_dismissed" yaml:"notification_dismissed"`
	Permission            string     `json:"notification_permission" yaml:"notification_permission"`
	LauncherInstalled     bool       `json:"launcher_installed" yaml:"launcher_installed"`
	PrefsPath             string     `json:"prefs_path" yaml:"prefs_path"`
	UpdatedAt             *time.Time `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Inspect or reset the install and notification prompts",
}

var promptsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show dismissal flags and notification permission",
	Args:  cobra.NoArgs,
	RunE:  runPromptsStatus,
}

var promptsResetCmd = &cobra.Command{
	Use:   "reset [install|notifications|permission|all]",
	Short: "Clear a dismissal flag so the banner can show again",
	Long: `Clear persisted prompt state.

  install         Clear the install banner dismissal
  notifications   Clear the notification banner dismissal
  permission      Forget the recorded notification permission
  all             All of the above (default)`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"install", "notifications", "permission", "all"},
	RunE:      runPromptsReset,
}

func init() {
	rootCmd.AddCommand(promptsCmd)
	promptsCmd.AddCommand(promptsStatusCmd, promptsResetCmd)

	promptsStatusCmd.Flags().StringVar(&promptsOpts.format, "format", "text",
		"Output format (text, json, yaml)")
}

func runPromptsStatus(cmd *cobra.Command, args []string) error {
	status := collectPromptStatus(prefs)
	return writePromptStatus(cmd.OutOrStdout(), status, promptsOpts.format)
}

func collectPromptStatus(kv *store.FileKV) PromptStatus {
	flags := store.NewDismissalFlags(kv, logger)
	status := PromptStatus{
		InstallDismissed:      flags.IsDismissed(model.BannerInstall),
		NotificationDismissed: flags.IsDismissed(model.BannerNotification),
		Permission:            string(model.PermissionDefault),
		PrefsPath:             kv.Path(),
	}
	if v, ok, err := kv.Get(notify.PermissionKey); err == nil && ok {
		status.Permission = v
	}
	if dir, err := install.ApplicationsDir(); err == nil {
		status.LauncherInstalled = install.Installed(dir)
	}
	if info, err := os.Stat(kv.Path()); err == nil {
		mod := info.ModTime()
		status.UpdatedAt = &mod
	}
	return status
}

func writePromptStatus(w io.Writer, s PromptStatus, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(s)
	case "text", "":
	default:
		return fmt.Errorf("unknown format %q (use text, json or yaml)", format)
	}

	fmt.Fprintf(w, "Install banner:       %s\n", dismissedLabel(s.InstallDismissed))
	fmt.Fprintf(w, "Notification banner:  %s\n", dismissedLabel(s.NotificationDismissed))
	fmt.Fprintf(w, "Permission:           %s\n", s.Permission)
	fmt.Fprintf(w, "Launcher:             %s\n", installedLabel(s.LauncherInstalled))
	if s.UpdatedAt != nil {
		fmt.Fprintf(w, "Preferences:          %s (updated %s)\n", s.PrefsPath, humanize.Time(*s.UpdatedAt))
	} else {
		fmt.Fprintf(w, "Preferences:          %s (not written yet)\n", s.PrefsPath)
	}
	return nil
}

func dismissedLabel(dismissed bool) string {
	if dismissed {
		return "dismissed"
	}
	return "eligible"
}

func installedLabel(installed bool) string {
	if installed {
		return "installed"
	}
	return "not installed"
}

func runPromptsReset(cmd *cobra.Command, args []string) error {
	target := "all"
	if len(args) > 0 {
		target = args[0]
	}
	return resetPrompts(prefs, target)
}

func resetPrompts(kv store.KV, target string) error {
	flags := store.NewDismissalFlags(kv, logger)

	switch target {
	case "install":
		return flags.Reset(model.BannerInstall)
	case "notifications":
		return flags.Reset(model.BannerNotification)
	case "permission":
		return kv.Delete(notify.PermissionKey)
	case "all":
		for _, kind := range model.BannerKinds {
			if err := flags.Reset(kind); err != nil {
				return err
			}
		}
		return kv.Delete(notify.PermissionKey)
	default:
		return fmt.Errorf("unknown prompt %q (use install, notifications, permission or all)", target)
	}
}
