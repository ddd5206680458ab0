// Package sse provides a minimal reader for SSE-style (Server-Sent Events)
// chat completion streams.
//
// Chat completion APIs emit one JSON document per "data:" line, so the reader
// yields every complete data line as its own frame instead of coalescing
// fields up to a blank-line delimiter the way a general SSE client would.
// Partial lines, including partial UTF-8 sequences split across transport
// reads, stay buffered as raw bytes until the line completes; the parsed
// frames are therefore identical no matter how the stream is chunked.
//
// This package intentionally does NOT provide SSE writer capabilities.
//
// See the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

// Event is a single data-bearing frame read from the stream.
type Event struct {
	// Type is the event type from the most recent "event:" field, carried
	// until a blank line ends the event it belongs to. An empty string means
	// the default "message" type per the SSE spec.
	Type string

	// Data is the contents of the "data:" line that produced this frame.
	Data string

	// ID is the last event ID from an "id:" field, if any was seen.
	ID string
}
