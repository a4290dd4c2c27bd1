//go:build !windows

package conn

import (
	"fmt"
	"os"

	"github.com/creack/pty"
	"golang.org/x/term"
)

// openTerminalInput creates a pseudo-terminal pair for the child's stdin.
// The tty end is put in raw mode so input is neither echoed nor rewritten.
// The caller writes to ptmx and hands tty to the child.
func openTerminalInput() (ptmx, tty *os.File, err error) {
	ptmx, tty, err = pty.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("open pty: %w", err)
	}
	if _, err := term.MakeRaw(int(tty.Fd())); err != nil {
		ptmx.Close()
		tty.Close()
		return nil, nil, fmt.Errorf("set raw mode: %w", err)
	}
	return ptmx, tty, nil
}
