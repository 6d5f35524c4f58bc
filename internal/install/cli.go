package install

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sokoniarena/sokoni/internal/model"
)

// ErrIntentConsumed is returned when a CLIIntent is prompted twice.
var ErrIntentConsumed = errors.New("install intent already used")

// Confirmer asks a yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, title, description string) (bool, error)
}

// Installer performs the installation once the user accepts.
type Installer func(ctx context.Context) error

// CLIIntent is an Intent whose native prompt is a terminal confirm dialog.
type CLIIntent struct {
	confirm Confirmer
	install Installer

	mu        sync.Mutex
	prevented bool
	used      bool
}

// NewCLIIntent creates an intent. install may be nil.
func NewCLIIntent(confirm Confirmer, install Installer) *CLIIntent {
	return &CLIIntent{confirm: confirm, install: install}
}

// PreventDefault marks the intent as taken over by the app.
func (i *CLIIntent) PreventDefault() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.prevented = true
}

// Prevented reports whether PreventDefault was called.
func (i *CLIIntent) Prevented() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.prevented
}

// Prompt asks once. Declining is a normal outcome, not an error.
func (i *CLIIntent) Prompt(ctx context.Context) (model.InstallOutcome, error) {
	i.mu.Lock()
	if i.used {
		i.mu.Unlock()
		return "", ErrIntentConsumed
	}
	i.used = true
	i.mu.Unlock()

	ok, err := i.confirm.Confirm(ctx, "Install SokoniArena", "Add to your home screen for the best experience")
	if err != nil {
		return "", err
	}
	if !ok {
		return model.InstallDismissed, nil
	}
	if i.install != nil {
		if err := i.install(ctx); err != nil {
			return "", fmt.Errorf("install failed: %w", err)
		}
	}
	return model.InstallAccepted, nil
}

// ApplicationsDir returns the XDG directory for desktop entries.
func ApplicationsDir() (string, error) {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "applications"), nil
}

// DesktopEntry renders a launcher entry that opens the browse UI.
func DesktopEntry(execPath string) string {
	var b strings.Builder
	b.WriteString("[Desktop Entry]\n")
	b.WriteString("Type=Application\n")
	b.WriteString("Name=SokoniArena\n")
	b.WriteString("Comment=Discover events and services near you\n")
	fmt.Fprintf(&b, "Exec=%s browse\n", execPath)
	b.WriteString("Icon=sokoni\n")
	b.WriteString("Terminal=true\n")
	b.WriteString("Categories=Network;Utility;\n")
	return b.String()
}

// DesktopEntryFile is the launcher file name written by DesktopEntryInstaller.
const DesktopEntryFile = "sokoni.desktop"

// Installed reports whether the launcher entry exists in dir.
func Installed(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, DesktopEntryFile))
	return err == nil
}

// DesktopEntryInstaller returns an Installer writing sokoni.desktop into dir.
func DesktopEntryInstaller(dir, execPath string) Installer {
	return func(ctx context.Context) error {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
		path := filepath.Join(dir, DesktopEntryFile)
		tmpPath := path + ".tmp"
		if err := os.WriteFile(tmpPath, []byte(DesktopEntry(execPath)), 0644); err != nil {
			return err
		}
		return os.Rename(tmpPath, path)
	}
}
