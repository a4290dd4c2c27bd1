//go:build windows

package conn

import (
	"errors"
	"log/slog"
	"os"

	"golang.org/x/text/encoding"
)

var errUnsupportedPlatform = errors.New("non-blocking pipe reads are not supported on windows")

type streamReader struct{}

func newStreamReader(name string, f *os.File, enc encoding.Encoding, size int, logger *slog.Logger) (*streamReader, error) {
	return nil, &IOError{Op: "open", Stream: name, Err: errUnsupportedPlatform}
}

func (r *streamReader) TryRead() (string, error) {
	return "", errUnsupportedPlatform
}

func (r *streamReader) Close() error {
	return nil
}
