// Package tail reads newline-delimited records from a log file that
// another process is appending to. Each tailer remembers its byte
// offset between polls, so a poll only ever returns lines it has not
// handed out before.
package tail

import (
	"bytes"
	"io"
	"os"
)

// Mode controls where a new tailer starts reading.
type Mode int

const (
	// FromStart replays the whole file from byte zero. Used when
	// reattaching to a run whose earlier output should be shown again.
	FromStart Mode = iota
	// AtEnd skips everything already in the file and only reports
	// lines appended after the tailer was created.
	AtEnd
)

const readChunkSize = 64 * 1024

// Tailer incrementally reads complete lines from a growing file.
//
// The file does not have to exist yet; polls before it appears simply
// return nothing. Bytes after the last newline are buffered until the
// writer finishes the line, so a record split across two polls comes
// out whole. Lines are returned without their trailing newline; a
// carriage return before the newline is left attached, which the JSON
// decoder tolerates as whitespace.
type Tailer struct {
	path    string
	offset  int64
	pending []byte
}

// New creates a tailer for the file at path. In AtEnd mode the current
// file size becomes the starting offset; a file that does not exist yet
// starts at zero in either mode.
func New(path string, mode Mode) (*Tailer, error) {
	t := &Tailer{path: path}
	if mode == AtEnd {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				return t, nil
			}
			return nil, err
		}
		t.offset = info.Size()
	}
	return t, nil
}

// Poll reads everything appended since the last poll and returns the
// complete lines found. It keeps reading until the file stops yielding
// bytes, so a single call drains a burst of output no matter how large.
// A missing file is not an error.
func (t *Tailer) Poll() ([]string, error) {
	f, err := os.Open(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	if _, err := f.Seek(t.offset, io.SeekStart); err != nil {
		return nil, err
	}

	var lines []string
	buf := make([]byte, readChunkSize)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			t.offset += int64(n)
			t.pending = append(t.pending, buf[:n]...)
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return t.drainPending(lines), err
		}
		if n == 0 {
			break
		}
	}
	return t.drainPending(lines), nil
}

// drainPending carves complete lines off the front of the pending
// buffer, leaving any trailing partial line for the next poll.
func (t *Tailer) drainPending(lines []string) []string {
	rest := t.pending
	for {
		idx := bytes.IndexByte(rest, '\n')
		if idx < 0 {
			break
		}
		lines = append(lines, string(rest[:idx]))
		rest = rest[idx+1:]
	}
	if len(rest) != len(t.pending) {
		// Copy so the consumed prefix does not pin the old backing array.
		t.pending = append([]byte(nil), rest...)
	}
	return lines
}

// HasPending reports whether bytes of an unfinished line are buffered.
func (t *Tailer) HasPending() bool {
	return len(t.pending) > 0
}

// Offset returns the byte position the next poll will read from.
func (t *Tailer) Offset() int64 {
	return t.offset
}
