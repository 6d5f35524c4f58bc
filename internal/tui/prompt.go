package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

type confirmRequest struct {
	title       string
	description string
	reply       chan bool
}

type confirmMsg confirmRequest

// Prompter answers yes/no questions with a modal inside the running
// program. It satisfies both notify.Prompter and install.Confirmer, so the
// native permission and install prompts do not fight bubbletea for the
// terminal.
type Prompter struct {
	requests chan confirmRequest
}

// NewPrompter creates a prompter. It must be passed to the Model that
// renders its questions.
func NewPrompter() *Prompter {
	return &Prompter{requests: make(chan confirmRequest)}
}

// Confirm blocks until the user answers or ctx is done.
func (p *Prompter) Confirm(ctx context.Context, title, description string) (bool, error) {
	req := confirmRequest{title: title, description: description, reply: make(chan bool, 1)}

	select {
	case p.requests <- req:
	case <-ctx.Done():
		return false, ctx.Err()
	}

	select {
	case answer := <-req.reply:
		return answer, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (p *Prompter) wait() tea.Msg {
	return confirmMsg(<-p.requests)
}
