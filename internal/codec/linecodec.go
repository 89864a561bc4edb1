// Package codec turns the raw, lossy serial byte stream into a sequence
// of complete records, joining partial reads across buffer boundaries.
package codec

import (
	"bufio"
	"io"
	"strings"
	"unicode/utf8"
)

// bootLine is the magic line the radio module emits on power-up; it is
// never a protocol record and is dropped silently.
const bootLine = "Power on"

// LineCodec accumulates inbound bytes and splits them into newline
// terminated records, stripping the trailing \r and surrounding
// whitespace from each.
type LineCodec struct {
	buf []byte
}

// NewLineCodec returns an empty LineCodec.
func NewLineCodec() *LineCodec {
	return &LineCodec{}
}

// Feed appends newly read bytes and returns every record completed by
// them, in order. Partial lines are retained for the next call.
func (c *LineCodec) Feed(data []byte) []string {
	c.buf = append(c.buf, data...)

	var out []string
	for {
		i := indexByte(c.buf, '\n')
		if i < 0 {
			break
		}
		line := string(c.buf[:i])
		c.buf = c.buf[i+1:]

		line = strings.ToValidUTF8(line, string(utf8.RuneError))
		line = strings.TrimRight(line, "\r")
		line = strings.TrimSpace(line)
		if line == "" || line == bootLine {
			continue
		}
		out = append(out, line)
	}
	return out
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

// Lines reads from r until EOF or error, feeding a LineCodec and
// emitting each completed record on the returned channel. The channel is
// closed once r returns an error (including io.EOF); the reader loop in
// internal/transfer consumes it as its single-reader input.
func Lines(r io.Reader) <-chan string {
	out := make(chan string, 16)
	go func() {
		defer close(out)
		codec := NewLineCodec()
		br := bufio.NewReaderSize(r, 256)
		buf := make([]byte, 256)
		for {
			n, err := br.Read(buf)
			if n > 0 {
				for _, line := range codec.Feed(buf[:n]) {
					out <- line
				}
			}
			if err != nil {
				return
			}
		}
	}()
	return out
}
