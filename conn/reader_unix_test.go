//go:build !windows

package conn

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

func newPipeReader(t *testing.T, enc encoding.Encoding, size int) (*streamReader, *os.File) {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() {
		r.Close()
		w.Close()
	})
	sr, err := newStreamReader("stdout", r, enc, size, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	return sr, w
}

func TestStreamReaderNoData(t *testing.T) {
	sr, _ := newPipeReader(t, unicode.UTF8, 64)

	got, err := sr.TryRead()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStreamReaderReadsAvailable(t *testing.T) {
	sr, w := newPipeReader(t, unicode.UTF8, 64)

	_, err := w.WriteString("hello\nworld\n")
	require.NoError(t, err)

	got, err := sr.TryRead()
	require.NoError(t, err)
	assert.Equal(t, "hello\nworld\n", got)

	got, err = sr.TryRead()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStreamReaderRespectsReadSize(t *testing.T) {
	sr, w := newPipeReader(t, unicode.UTF8, 4)

	_, err := w.WriteString("abcdefgh")
	require.NoError(t, err)

	first, err := sr.TryRead()
	require.NoError(t, err)
	second, err := sr.TryRead()
	require.NoError(t, err)
	assert.Equal(t, "abcd", first)
	assert.Equal(t, "efgh", second)
}

func TestStreamReaderHoldsBackSplitRune(t *testing.T) {
	sr, w := newPipeReader(t, unicode.UTF8, 64)

	euro := []byte("€") // three bytes
	_, err := w.Write(append([]byte("price "), euro[:2]...))
	require.NoError(t, err)

	got, err := sr.TryRead()
	require.NoError(t, err)
	assert.Equal(t, "price ", got)

	_, err = w.Write(append(euro[2:], '\n'))
	require.NoError(t, err)

	got, err = sr.TryRead()
	require.NoError(t, err)
	assert.Equal(t, "€\n", got)
}

func TestStreamReaderDecodesLatin1(t *testing.T) {
	sr, w := newPipeReader(t, charmap.ISO8859_1, 64)

	_, err := w.Write([]byte{'c', 'a', 'f', 0xe9, '\n'})
	require.NoError(t, err)

	got, err := sr.TryRead()
	require.NoError(t, err)
	assert.Equal(t, "café\n", got)
}

func TestStreamReaderEOF(t *testing.T) {
	sr, w := newPipeReader(t, unicode.UTF8, 64)

	_, err := w.WriteString("bye\n")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	got, err := sr.TryRead()
	require.NoError(t, err)
	assert.Equal(t, "bye\n", got)

	for range 2 {
		got, err = sr.TryRead()
		require.NoError(t, err)
		assert.Empty(t, got)
	}
	assert.True(t, sr.eof)
}

func TestStreamReaderClosedIsFatal(t *testing.T) {
	sr, _ := newPipeReader(t, unicode.UTF8, 64)
	require.NoError(t, sr.Close())

	_, err := sr.TryRead()
	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "stdout", ioErr.Stream)
}
