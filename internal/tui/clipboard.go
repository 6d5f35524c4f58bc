package tui

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"github.com/atotto/clipboard"
)

// copyText puts text on the system clipboard. A configured command
// (e.g. "wl-copy") receives the text on stdin; otherwise the platform
// clipboard is used.
func copyText(text, command string) error {
	args := strings.Fields(command)
	if len(args) == 0 {
		if clipboard.Unsupported {
			return errors.New("no clipboard available, set tui.clipboard_command")
		}
		return clipboard.WriteAll(text)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c := exec.CommandContext(ctx, args[0], args[1:]...)
	c.Stdin = strings.NewReader(text)
	return c.Run()
}
