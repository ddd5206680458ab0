package rag

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/inklingco/inkling/pkg/sse"
)

// doneSentinel terminates a completion stream. It is a control frame,
// never answer content.
const doneSentinel = "[DONE]"

// decodeStream consumes a chat completion stream and forwards answer
// deltas to onDelta. Frames arrive one JSON document per data line.
//
// Frame handling:
//   - the [DONE] sentinel is dropped
//   - a frame that fails to parse is logged and dropped, the stream
//     keeps going
//   - a parsed frame with empty delta content produces no callback
//
// After the last frame, onDelta fires once with final=true and empty
// text. When the transport dies mid-stream no final callback fires and
// the returned StreamError carries everything already forwarded.
func decodeStream(body io.Reader, onDelta DeltaFunc, log *slog.Logger) (*Result, error) {
	reader := sse.NewReader(body)

	var answer strings.Builder
	for {
		event, err := reader.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, &StreamError{Partial: answer.String(), Err: err}
		}

		data := strings.TrimSpace(event.Data)
		if data == "" || data == doneSentinel {
			continue
		}

		var chunk chatChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			log.Debug("dropping malformed frame",
				slog.String("data", data),
				slog.Any("error", err),
			)
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}

		answer.WriteString(delta)
		if onDelta != nil {
			onDelta(delta, false)
		}
	}

	if onDelta != nil {
		onDelta("", true)
	}

	// Streamed completions carry no citations and no session.
	return &Result{Answer: answer.String()}, nil
}
