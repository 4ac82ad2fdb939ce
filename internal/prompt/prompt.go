// Package prompt asks the questions a patch run raises, on the controlling
// terminal when there is one. Without a terminal every question resolves to
// its default answer with the prompt still echoed, so piped transcripts
// read the same as interactive ones.
package prompt

import (
	"context"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Terminal implements the applier's Prompter interface with Bubble Tea
// models running on /dev/tty, keeping stdin free for the patch itself.
type Terminal struct {
	out      io.Writer
	tty      *os.File
	renderer *lipgloss.Renderer
}

// New returns a Terminal echoing unanswerable prompts to out, normally the
// stream status messages go to. The controlling terminal is opened eagerly;
// call Close when the run is over.
func New(out io.Writer) *Terminal {
	if out == nil {
		out = io.Discard
	}
	t := &Terminal{out: out}
	if tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0); err == nil {
		t.tty = tty
		t.renderer = lipgloss.NewRenderer(tty)
	}
	return t
}

// Close releases the controlling terminal.
func (t *Terminal) Close() error {
	if t.tty == nil {
		return nil
	}
	err := t.tty.Close()
	t.tty = nil
	return err
}

// Interactive reports whether a controlling terminal is available.
func (t *Terminal) Interactive() bool { return t.tty != nil }

// AskPath asks for a replacement target path. An empty answer means the
// question went unanswered.
func (t *Terminal) AskPath(ctx context.Context, promptText string) (string, error) {
	if t.tty == nil {
		fmt.Fprintf(t.out, "%s\n", promptText)
		return "", nil
	}
	final, err := t.run(ctx, newPathModel(promptText, t.renderer))
	if err != nil {
		return "", err
	}
	if m, ok := final.(pathModel); ok {
		return m.answer, nil
	}
	return "", nil
}

// Confirm asks a yes/no question, returning def when there is no answer.
func (t *Terminal) Confirm(ctx context.Context, promptText string, def bool) (bool, error) {
	if t.tty == nil {
		fmt.Fprintf(t.out, "%s\n", promptText)
		return def, nil
	}
	final, err := t.run(ctx, newConfirmModel(promptText, def, t.renderer))
	if err != nil {
		return def, err
	}
	if m, ok := final.(confirmModel); ok {
		return m.answer, nil
	}
	return def, nil
}

// run executes a model on the tty. Cancellation surfaces as the context's
// error; any other program failure falls back to the model's default by
// returning a nil model.
func (t *Terminal) run(ctx context.Context, m tea.Model) (tea.Model, error) {
	p := tea.NewProgram(m,
		tea.WithContext(ctx),
		tea.WithInput(t.tty),
		tea.WithOutput(t.tty))
	final, err := p.Run()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, nil
	}
	return final, nil
}
