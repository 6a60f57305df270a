// Package term wraps the host terminal state a guest console proxy
// syscall (a read/write against fd 0/1/2) needs to cooperate with: raw
// mode for a guest that wants its own line editing, restored cleanly on
// exit so a crashed or killed guest never leaves the host shell stuck in
// raw mode.
package term

import (
	"fmt"

	"golang.org/x/term"
)

// Console owns the raw/cooked mode transition for one file descriptor,
// almost always stdin, the way internal/cmd/cc's own VM console switches
// the host terminal into raw mode for the duration of a guest session.
type Console struct {
	fd       int
	oldState *term.State
}

// New wraps fd; IsTTY reports whether raw-mode operations will do
// anything at all (a redirected stdin/pipe is left alone).
func New(fd int) *Console {
	return &Console{fd: fd}
}

// IsTTY reports whether the wrapped descriptor is an interactive
// terminal.
func (c *Console) IsTTY() bool {
	return term.IsTerminal(c.fd)
}

// EnterRaw puts the descriptor into raw mode, the way a guest that runs
// its own line editor (a shell, a REPL) expects to see every keystroke
// immediately rather than after the host's line discipline processes it.
// A no-op, returning nil, when the descriptor isn't a terminal.
func (c *Console) EnterRaw() error {
	if !c.IsTTY() {
		return nil
	}
	state, err := term.MakeRaw(c.fd)
	if err != nil {
		return fmt.Errorf("term: enter raw mode: %w", err)
	}
	c.oldState = state
	return nil
}

// Restore returns the descriptor to whatever mode it was in before
// EnterRaw, if EnterRaw actually changed it.
func (c *Console) Restore() error {
	if c.oldState == nil {
		return nil
	}
	err := term.Restore(c.fd, c.oldState)
	c.oldState = nil
	if err != nil {
		return fmt.Errorf("term: restore mode: %w", err)
	}
	return nil
}

// Size reports the terminal's current column/row count, the value a
// guest's ioctl(TIOCGWINSZ) proxy syscall should answer with.
func (c *Console) Size() (cols, rows int, err error) {
	cols, rows, err = term.GetSize(c.fd)
	if err != nil {
		return 0, 0, fmt.Errorf("term: get size: %w", err)
	}
	return cols, rows, nil
}
