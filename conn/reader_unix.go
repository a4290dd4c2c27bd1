//go:build !windows

package conn

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// streamReader reads one of the child's output pipes without ever blocking.
type streamReader struct {
	name    string
	file    *os.File
	raw     syscall.RawConn
	decoder *encoding.Decoder
	buf     []byte
	scratch []byte
	// pending holds an incomplete multi-byte sequence from the previous read.
	pending []byte
	eof     bool
	logger  *slog.Logger
}

func newStreamReader(name string, f *os.File, enc encoding.Encoding, size int, logger *slog.Logger) (*streamReader, error) {
	raw, err := f.SyscallConn()
	if err != nil {
		return nil, &IOError{Op: "open", Stream: name, Err: err}
	}

	var nbErr error
	if err := raw.Control(func(fd uintptr) {
		nbErr = unix.SetNonblock(int(fd), true)
	}); err != nil {
		return nil, &IOError{Op: "open", Stream: name, Err: err}
	}
	if nbErr != nil {
		return nil, &IOError{Op: "set non-blocking", Stream: name, Err: nbErr}
	}

	return &streamReader{
		name:    name,
		file:    f,
		raw:     raw,
		decoder: enc.NewDecoder(),
		buf:     make([]byte, size),
		scratch: make([]byte, 4*size+16),
		logger:  logger,
	}, nil
}

// TryRead returns the text currently available on the stream, or "" when
// nothing is. It never waits for data.
func (r *streamReader) TryRead() (string, error) {
	var n int
	var readErr error
	err := r.raw.Read(func(fd uintptr) bool {
		n, readErr = unix.Read(int(fd), r.buf)
		// Always report done so the runtime poller never parks us.
		return true
	})
	if err != nil {
		return "", &IOError{Op: "read", Stream: r.name, Err: err}
	}
	if readErr != nil {
		if errors.Is(readErr, unix.EAGAIN) || errors.Is(readErr, unix.EINTR) {
			return "", nil
		}
		return "", &IOError{Op: "read", Stream: r.name, Err: readErr}
	}
	if n <= 0 {
		if !r.eof {
			r.eof = true
			r.logger.Debug("stream closed", "stream", r.name)
		}
		return "", nil
	}

	r.logger.Debug("raw read", "stream", r.name, "bytes", n, "raw", string(r.buf[:n]))
	text := r.decode(r.buf[:n])
	r.logger.Debug("decoded", "stream", r.name, "text", text)
	return text, nil
}

func (r *streamReader) decode(p []byte) string {
	src := append(r.pending, p...)
	r.pending = nil

	var out strings.Builder
	for len(src) > 0 {
		nDst, nSrc, err := r.decoder.Transform(r.scratch, src, false)
		out.Write(r.scratch[:nDst])
		src = src[nSrc:]
		switch {
		case err == nil:
			continue
		case errors.Is(err, transform.ErrShortSrc):
			r.pending = bytes.Clone(src)
			return out.String()
		case errors.Is(err, transform.ErrShortDst) && (nDst > 0 || nSrc > 0):
			continue
		default:
			// Undecodable input is passed through rather than dropped.
			out.Write(src)
			return out.String()
		}
	}
	return out.String()
}

// Close releases the read end of the pipe.
func (r *streamReader) Close() error {
	return r.file.Close()
}
