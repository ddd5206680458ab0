package sse

import (
	"bufio"
	"io"
	"strings"
)

// Reader parses data frames from an SSE-style byte stream.
type Reader struct {
	scanner *bufio.Scanner

	// eventType and id carry field state between lines. eventType resets at
	// the blank line that ends its event; id persists per the SSE spec.
	eventType string
	id        string
}

// NewReader returns a Reader over src. The internal scanner buffer starts at
// 64KiB and grows to 1MiB, which comfortably holds a single completion frame.
func NewReader(src io.Reader) *Reader {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	return &Reader{scanner: scanner}
}

// Next returns the next data frame. It blocks until a complete "data:" line
// has been assembled from the underlying reads. A final line the server
// closed without terminating is still delivered. Next returns io.EOF once
// the source is exhausted, or the transport error that ended the stream.
func (r *Reader) Next() (*Event, error) {
	for r.scanner.Scan() {
		line := r.scanner.Text()

		// A blank line ends the current event; the type field does not leak
		// into the next one.
		if line == "" {
			r.eventType = ""
			continue
		}

		// Lines starting with ':' are comments.
		if strings.HasPrefix(line, ":") {
			continue
		}

		if ev, ok := r.parseLine(line); ok {
			return ev, nil
		}
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}

	return nil, io.EOF
}

// parseLine handles one non-empty, non-comment line. It returns an Event and
// true when the line carried a data field.
//
// Per the SSE spec a line has the form "field:value"; a single space after
// the colon is optional and stripped when present. A line with no colon is a
// field name with an empty value, which matches nothing we care about.
func (r *Reader) parseLine(line string) (*Event, bool) {
	field, value, ok := strings.Cut(line, ":")
	if !ok {
		return nil, false
	}
	value = strings.TrimPrefix(value, " ")

	switch field {
	case "data":
		return &Event{Type: r.eventType, Data: value, ID: r.id}, true
	case "event":
		r.eventType = value
	case "id":
		r.id = value
	default:
		// "retry" and unknown fields are ignored per the SSE spec.
	}

	return nil, false
}
