//go:build windows

package conn

import (
	"errors"
	"os"
)

func openTerminalInput() (ptmx, tty *os.File, err error) {
	return nil, nil, errors.New("terminal input is not supported on windows")
}
