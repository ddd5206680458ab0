package rag

// Message is a single turn in a chat completion request.
type Message struct {
	Role    string `json:"role"`    // "system", "user", "assistant"
	Content string `json:"content"`
}

// Reference is a retrieved document chunk cited by an assistant answer.
// References are attached to a message when it is created and never
// modified afterwards.
type Reference struct {
	DocumentID   string `json:"document_id"`
	DocumentName string `json:"document_name"`
	Content      string `json:"content"`
	DatasetID    string `json:"dataset_id"`
}

// Agent identifies an assistant available on the service.
type Agent struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Result is the outcome of a completed ask.
type Result struct {
	// Answer is the full assistant reply, assembled from deltas when
	// streaming.
	Answer string

	// References holds the citations attached to the answer. Streaming
	// responses carry none.
	References []Reference

	// SessionID identifies the server-side session when the service
	// returns one. Streaming responses carry none.
	SessionID string
}

// DeltaFunc receives answer text as it arrives. Streaming asks call it
// with final=false for each fragment, in arrival order, then exactly
// once with final=true and empty text. Non-streaming asks deliver the
// whole answer in a single final=true call.
type DeltaFunc func(text string, final bool)

// chatRequest is the request body for the chat completions endpoint.
type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

// chatChunk is one streamed frame of a chat completion.
type chatChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// chatCompletion is the non-streaming chat completion response.
type chatCompletion struct {
	ID      string `json:"id,omitempty"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Reference *struct {
		Chunks []struct {
			DocumentID   string `json:"document_id"`
			DocumentName string `json:"document_name"`
			Content      string `json:"content"`
			DatasetID    string `json:"dataset_id"`
		} `json:"chunks"`
	} `json:"reference,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}
