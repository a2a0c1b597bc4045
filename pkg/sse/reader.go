package sse

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"unicode/utf8"
)

// MaxLineSize caps a single line. Longer lines are discarded whole and
// reading resumes at the next line.
const MaxLineSize = 1024 * 1024

// Reader pulls "data: " frames from a source io.Reader one line at a time.
//
// ┌──────────────────┐
// │ source io.Reader │
// └──────────────────┘
// │
// ▼
// ┌──────────────────┐
// │  Reader.Next()   │── skips blank, comment, non-data, non-UTF-8 and
// └──────────────────┘   over-long lines
// │
// ▼
// ┌──────────────────┐
// │      Frame       │
// └──────────────────┘
//
// The reader never buffers more than one line, so callers receive frames as
// soon as the upstream flushes them.
type Reader struct {
	src     *bufio.Reader
	maxLine int
	eof     bool
}

// NewReader returns a Reader that parses frames from src.
func NewReader(src io.Reader) *Reader {
	return &Reader{
		src:     bufio.NewReaderSize(src, 64*1024),
		maxLine: MaxLineSize,
	}
}

// Next returns the next data frame. It blocks until a complete line is
// available. Next returns nil, nil when the source is exhausted.
func (r *Reader) Next() (*Frame, error) {
	for !r.eof {
		raw, tooLong, err := r.readLine()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return nil, err
			}
			r.eof = true
		}
		if tooLong {
			continue
		}

		line := strings.TrimSuffix(strings.TrimSuffix(string(raw), "\n"), "\r")
		if !utf8.ValidString(line) {
			continue
		}

		data, ok := strings.CutPrefix(line, DataPrefix)
		if !ok {
			continue
		}

		return &Frame{Data: data}, nil
	}

	return nil, nil
}

// readLine reads up to and including the next "\n". Once a line grows past
// maxLine the rest of it is drained without being kept and tooLong is set.
func (r *Reader) readLine() (line []byte, tooLong bool, err error) {
	for {
		chunk, err := r.src.ReadSlice('\n')
		if !tooLong {
			if len(line)+len(chunk) > r.maxLine {
				tooLong = true
				line = nil
			} else {
				line = append(line, chunk...)
			}
		}

		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return line, tooLong, err
	}
}
