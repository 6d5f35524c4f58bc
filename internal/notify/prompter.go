package notify

import (
	"context"
	"errors"

	"github.com/charmbracelet/huh"
)

// HuhPrompter asks the permission question with a terminal confirm dialog.
type HuhPrompter struct {
	Affirmative string
	Negative    string
}

// NewHuhPrompter creates a prompter with the banner's button labels.
func NewHuhPrompter() *HuhPrompter {
	return &HuhPrompter{Affirmative: "Enable", Negative: "Not Now"}
}

// Confirm shows the dialog. Aborting the form (ctrl+c) counts as "no".
func (p *HuhPrompter) Confirm(ctx context.Context, title, description string) (bool, error) {
	var ok bool
	err := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(title).
			Description(description).
			Affirmative(p.Affirmative).
			Negative(p.Negative).
			Value(&ok),
	)).RunWithContext(ctx)
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return ok, nil
}
