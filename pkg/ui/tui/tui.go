package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// TUI drives a Model from a pipeline run in another goroutine
type TUI struct {
	program *tea.Program
}

// New creates a TUI. Extra program options are passed through, which tests
// use to run without a terminal.
func New(cancel context.CancelFunc, opts ...tea.ProgramOption) *TUI {
	return &TUI{program: tea.NewProgram(NewModel(cancel), opts...)}
}

// Step forwards a progress line. It has the shape of scraper.ProgressFunc.
func (t *TUI) Step(msg string) {
	t.program.Send(StepMsg(msg))
}

// Articles forwards article fetch progress
func (t *TUI) Articles(done, total int) {
	t.program.Send(ArticlesMsg{Done: done, Total: total})
}

// Run starts work in its own goroutine, shows the view until work returns
// and then returns work's error. A view that fails to start does not stop
// work; its error is returned only when work succeeded.
func (t *TUI) Run(work func() error) error {
	result := make(chan error, 1)
	go func() {
		err := work()
		result <- err
		t.program.Send(DoneMsg{Err: err})
	}()

	_, viewErr := t.program.Run()
	err := <-result
	if err != nil {
		return err
	}
	return viewErr
}
