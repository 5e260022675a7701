package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/couchcryptid/pool-weather-logger/internal/domain"
)

// MaxLineBytes bounds a single line of receiver output. rtl_433 JSON lines
// are well under 1 KiB; the headroom covers verbose decoders.
const MaxLineBytes = 1 << 20

// ReaderSource yields lines from an io.Reader, such as the receiver's stdout
// or a capture file of it.
type ReaderSource struct {
	r *bufio.Reader
}

// NewReaderSource wraps r.
func NewReaderSource(r io.Reader) *ReaderSource {
	return &ReaderSource{r: bufio.NewReaderSize(r, MaxLineBytes)}
}

// Next returns the next line without its line ending, or io.EOF when the
// reader is exhausted. A final line without a newline is still returned.
// A line longer than MaxLineBytes is consumed and discarded, and Next
// reports it as domain.ErrLineTooLong so the caller can carry on with the
// following line.
func (s *ReaderSource) Next(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	b, err := s.r.ReadSlice('\n')
	switch {
	case err == nil:
		return string(dropLineEnding(b)), nil
	case errors.Is(err, bufio.ErrBufferFull):
		n := len(b)
		discarded, derr := s.discardLine()
		if derr != nil {
			return "", derr
		}
		return "", fmt.Errorf("%w: %d bytes discarded", domain.ErrLineTooLong, n+discarded)
	case errors.Is(err, io.EOF):
		if len(b) == 0 {
			return "", io.EOF
		}
		return string(dropLineEnding(b)), nil
	default:
		return "", err
	}
}

// discardLine skips the rest of the current line, newline included.
func (s *ReaderSource) discardLine() (int, error) {
	total := 0
	for {
		b, err := s.r.ReadSlice('\n')
		total += len(b)
		switch {
		case err == nil, errors.Is(err, io.EOF):
			return total, nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		default:
			return total, err
		}
	}
}

func dropLineEnding(b []byte) []byte {
	b = bytes.TrimSuffix(b, []byte("\n"))
	return bytes.TrimSuffix(b, []byte("\r"))
}
