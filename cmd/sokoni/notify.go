package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sokoniarena/sokoni/internal/model"
	"github.com/sokoniarena/sokoni/internal/notify"
)

var notifyOpts struct {
	from         string
	conversation string
	body         string
	tag          string
}

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Desktop notification permission and delivery",
}

var notifyPermissionCmd = &cobra.Command{
	Use:   "permission",
	Short: "Show the notification permission, asking if it is undecided",
	Long: `Show the desktop notification permission.

When the permission has never been decided, you are asked once. A recorded
grant or denial is never asked again; use "sokoni prompts reset permission"
to forget it.`,
	Args: cobra.NoArgs,
	RunE: runNotifyPermission,
}

var notifyMessageCmd = &cobra.Command{
	Use:   "message PREVIEW",
	Short: "Announce a new chat message",
	Long: `Show a "New message from <sender>" notification.

The preview is truncated to 100 characters. Messages for the same
--conversation replace each other; without one they share a single tag.
Nothing is shown unless permission is granted.`,
	Args: cobra.ExactArgs(1),
	RunE: runNotifyMessage,
}

var notifySendCmd = &cobra.Command{
	Use:   "send TITLE",
	Short: "Show a notification with a custom title",
	Args:  cobra.ExactArgs(1),
	RunE:  runNotifySend,
}

func init() {
	rootCmd.AddCommand(notifyCmd)
	notifyCmd.AddCommand(notifyPermissionCmd, notifyMessageCmd, notifySendCmd)

	notifyMessageCmd.Flags().StringVar(&notifyOpts.from, "from", "Someone",
		"Sender display name")
	notifyMessageCmd.Flags().StringVar(&notifyOpts.conversation, "conversation", "",
		"Conversation ID (groups notifications)")

	notifySendCmd.Flags().StringVar(&notifyOpts.body, "body", "",
		"Notification body")
	notifySendCmd.Flags().StringVar(&notifyOpts.tag, "tag", "",
		"Tag; a new notification with the same tag replaces the old one")
}

func runNotifyPermission(cmd *cobra.Command, args []string) error {
	ctx, cancel := notifyContext()
	defer cancel()

	n := newNotifier(ctx, prefs, notify.NewHuhPrompter())
	defer n.close()

	if !n.IsSupported() {
		fmt.Fprintln(cmd.OutOrStdout(), "unsupported")
		return nil
	}
	n.RequestPermission(ctx)
	fmt.Fprintln(cmd.OutOrStdout(), n.CurrentPermission(ctx))
	return nil
}

func runNotifyMessage(cmd *cobra.Command, args []string) error {
	return deliver(func(ctx context.Context, n *notifier) error {
		return n.ShowMessageNotification(ctx, notifyOpts.from, args[0], notifyOpts.conversation)
	})
}

func runNotifySend(cmd *cobra.Command, args []string) error {
	return deliver(func(ctx context.Context, n *notifier) error {
		return n.ShowNotification(ctx, args[0], notify.Options{Body: notifyOpts.body, Tag: notifyOpts.tag})
	})
}

// deliver runs show and waits for the worker to hand the notification to
// the desktop before returning.
func deliver(show func(ctx context.Context, n *notifier) error) error {
	ctx, cancel := notifyContext()
	defer cancel()

	n := newNotifier(ctx, prefs, notify.NewHuhPrompter())
	defer n.close()

	if !n.IsSupported() {
		return fmt.Errorf("desktop notifications are not supported in this session")
	}
	if p := n.CurrentPermission(ctx); p != model.PermissionGranted {
		fmt.Fprintf(os.Stderr, "notification permission is %s, nothing shown (run \"sokoni notify permission\")\n", p)
		return nil
	}
	if err := show(ctx, n); err != nil {
		return err
	}
	if n.worker != nil {
		return n.worker.Drain(ctx)
	}
	return nil
}

func notifyContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, cfg.Prompts.PromptTimeout.Duration()+10*time.Second)
	return ctx, func() {
		cancel()
		stop()
	}
}
