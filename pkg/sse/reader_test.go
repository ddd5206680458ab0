package sse_test

import (
	"errors"
	"io"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/inklingco/inkling/pkg/sse"
)

// chunkReader delivers its chunks one per Read call, simulating arbitrary
// network read boundaries.
type chunkReader struct {
	chunks []string
	pos    int
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if c.pos >= len(c.chunks) {
		return 0, io.EOF
	}
	n := copy(p, c.chunks[c.pos])
	c.chunks[c.pos] = c.chunks[c.pos][n:]
	if c.chunks[c.pos] == "" {
		c.pos++
	}
	return n, nil
}

// errReader yields its payload and then a transport error.
type errReader struct {
	payload string
	err     error
	done    bool
}

func (e *errReader) Read(p []byte) (int, error) {
	if !e.done {
		e.done = true
		return copy(p, e.payload), nil
	}
	return 0, e.err
}

func drain(r *sse.Reader) ([]*sse.Event, error) {
	var events []*sse.Event
	for {
		ev, err := r.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return events, nil
			}
			return events, err
		}
		events = append(events, ev)
	}
}

var _ = Describe("Reader", func() {
	It("yields each data line as its own frame", func() {
		stream := "data: one\ndata: two\ndata: three\n"
		events, err := drain(sse.NewReader(strings.NewReader(stream)))
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(HaveLen(3))
		Expect(events[0].Data).To(Equal("one"))
		Expect(events[1].Data).To(Equal("two"))
		Expect(events[2].Data).To(Equal("three"))
	})

	It("parses chat completion chunks with blank line delimiters", func() {
		stream := "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n" +
			"data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n" +
			"data: [DONE]\n\n"

		events, err := drain(sse.NewReader(strings.NewReader(stream)))
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(HaveLen(3))
		Expect(events[0].Data).To(ContainSubstring("Hel"))
		Expect(events[2].Data).To(Equal("[DONE]"))
	})

	It("attaches the event type to data frames until the event ends", func() {
		stream := "event: content_block_delta\n" +
			"data: {\"delta\":{\"text\":\"hi\"}}\n" +
			"\n" +
			"data: untyped\n"

		events, err := drain(sse.NewReader(strings.NewReader(stream)))
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(HaveLen(2))
		Expect(events[0].Type).To(Equal("content_block_delta"))
		Expect(events[1].Type).To(BeEmpty())
	})

	It("carries the last seen id", func() {
		stream := "id: 42\ndata: with-id\n"
		events, err := drain(sse.NewReader(strings.NewReader(stream)))
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(HaveLen(1))
		Expect(events[0].ID).To(Equal("42"))
	})

	It("handles data lines without a space after the colon", func() {
		events, err := drain(sse.NewReader(strings.NewReader("data:no-space\n")))
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(HaveLen(1))
		Expect(events[0].Data).To(Equal("no-space"))
	})

	It("preserves an empty data value", func() {
		events, err := drain(sse.NewReader(strings.NewReader("data:\n")))
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(HaveLen(1))
		Expect(events[0].Data).To(BeEmpty())
	})

	It("skips comment lines", func() {
		stream := ": keep-alive\ndata: real\n: another comment\n"
		events, err := drain(sse.NewReader(strings.NewReader(stream)))
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(HaveLen(1))
		Expect(events[0].Data).To(Equal("real"))
	})

	It("ignores lines with no colon and unknown fields", func() {
		stream := "garbage line\nretry: 3000\ndata: kept\n"
		events, err := drain(sse.NewReader(strings.NewReader(stream)))
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(HaveLen(1))
		Expect(events[0].Data).To(Equal("kept"))
	})

	It("delivers a final line the server never terminated", func() {
		events, err := drain(sse.NewReader(strings.NewReader("data: tail")))
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(HaveLen(1))
		Expect(events[0].Data).To(Equal("tail"))
	})

	It("is invariant under read boundary placement", func() {
		whole := "data: alpha\ndata: beta\ndata: [DONE]\n"

		for _, chunks := range [][]string{
			{whole},
			{"data: al", "pha\ndata: be", "ta\ndata: [DONE]\n"},
			{"d", "a", "t", "a", ":", " ", "alpha\ndata: beta\ndata: [DONE]\n"},
		} {
			events, err := drain(sse.NewReader(&chunkReader{chunks: chunks}))
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(3))
			Expect(events[0].Data).To(Equal("alpha"))
			Expect(events[1].Data).To(Equal("beta"))
			Expect(events[2].Data).To(Equal("[DONE]"))
		}
	})

	It("reassembles multi-byte runes split across reads", func() {
		// "héllo" with the é split between two reads.
		line := "data: h\xc3\xa9llo\n"
		chunks := []string{line[:8], line[8:]}

		events, err := drain(sse.NewReader(&chunkReader{chunks: chunks}))
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(HaveLen(1))
		Expect(events[0].Data).To(Equal("héllo"))
	})

	It("surfaces the transport error that ended the stream", func() {
		boom := errors.New("connection reset")
		r := sse.NewReader(&errReader{payload: "data: partial\n", err: boom})

		ev, err := r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.Data).To(Equal("partial"))

		_, err = r.Next()
		Expect(err).To(MatchError(boom))
	})
})
