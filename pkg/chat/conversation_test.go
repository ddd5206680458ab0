package chat_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/inklingco/inkling/pkg/chat"
	"github.com/inklingco/inkling/pkg/rag"
)

// deltaRecorder captures the callback traffic a send produces.
type deltaRecorder struct {
	mu     sync.Mutex
	frags  []string
	finals int
	last   string
}

func (r *deltaRecorder) fn() rag.DeltaFunc {
	return func(text string, final bool) {
		r.mu.Lock()
		defer r.mu.Unlock()
		if final {
			r.finals++
			r.last = text
			return
		}
		r.frags = append(r.frags, text)
	}
}

func (r *deltaRecorder) deltas() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.frags...)
}

func (r *deltaRecorder) finalCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finals
}

func chunkLine(content string) string {
	payload, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{{"delta": map[string]any{"content": content}}},
	})
	return "data: " + string(payload)
}

// streamHandler answers every completion request with the given
// fragments followed by the done sentinel.
func streamHandler(fragments ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		Expect(ok).To(BeTrue())
		w.Header().Set("Content-Type", "text/event-stream")
		for _, f := range fragments {
			fmt.Fprintf(w, "%s\n\n", chunkLine(f))
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}
}

func newLiveConversation(host, assistantID string, opts ...chat.Option) *chat.Conversation {
	client, err := rag.New(rag.Config{Host: host, APIKey: "test-key"})
	Expect(err).NotTo(HaveOccurred())
	return chat.New(client, assistantID, opts...)
}

var _ = Describe("Conversation", func() {
	var server *httptest.Server

	AfterEach(func() {
		if server != nil {
			server.Close()
			server = nil
		}
	})

	Describe("New", func() {
		It("starts live with a client", func() {
			server = httptest.NewServer(streamHandler())
			conv := newLiveConversation(server.URL, "agent-1")

			st := conv.State()
			Expect(st.Live()).To(BeTrue())
			Expect(st.AssistantID).To(Equal("agent-1"))
			Expect(st.Reason).To(BeEmpty())
			Expect(conv.ID()).NotTo(BeEmpty())
			Expect(conv.Model()).To(Equal(rag.DefaultModel))
			Expect(conv.Messages()).To(BeEmpty())
		})

		It("starts degraded without a client", func() {
			conv := chat.New(nil, "agent-1")

			st := conv.State()
			Expect(st.Live()).To(BeFalse())
			Expect(st.Mode).To(Equal(chat.ModeDegraded))
			Expect(st.AssistantID).To(Equal("agent-1"))
			Expect(st.Reason).NotTo(BeEmpty())
		})

		It("honors options", func() {
			conv := chat.New(nil, "agent-1",
				chat.WithTitle("release notes"),
				chat.WithModel("deluxe"),
				chat.WithStreaming(false),
			)
			Expect(conv.Title()).To(Equal("release notes"))
			Expect(conv.Model()).To(Equal("deluxe"))
		})
	})

	Describe("Send", func() {
		It("appends the exchange and streams the answer into it", func() {
			server = httptest.NewServer(streamHandler("Hel", "lo"))
			conv := newLiveConversation(server.URL, "agent-1")

			rec := &deltaRecorder{}
			Expect(conv.Send(context.Background(), "greet me", rec.fn())).To(Succeed())

			msgs := conv.Messages()
			Expect(msgs).To(HaveLen(2))
			Expect(msgs[0].Role).To(Equal(chat.RoleUser))
			Expect(msgs[0].Content).To(Equal("greet me"))
			Expect(msgs[1].Role).To(Equal(chat.RoleAssistant))
			Expect(msgs[1].Content).To(Equal("Hello"))
			Expect(msgs[1].Temporary).To(BeFalse())
			Expect(msgs[1].Incomplete).To(BeFalse())
			Expect(rec.deltas()).To(Equal([]string{"Hel", "lo"}))
			Expect(rec.finalCount()).To(Equal(1))
		})

		It("derives the title from the first user message", func() {
			server = httptest.NewServer(streamHandler("ok"))
			conv := newLiveConversation(server.URL, "agent-1")

			long := strings.Repeat("where are the docs ", 8)
			Expect(conv.Send(context.Background(), long, nil)).To(Succeed())

			title := conv.Title()
			Expect(title).To(HaveSuffix("..."))
			Expect(title).To(HaveLen(63))

			Expect(conv.Send(context.Background(), "second question", nil)).To(Succeed())
			Expect(conv.Title()).To(Equal(title))
		})

		It("ignores blank input", func() {
			conv := chat.New(nil, "agent-1")
			Expect(conv.Send(context.Background(), "   \n", nil)).To(Succeed())
			Expect(conv.Messages()).To(BeEmpty())
		})

		It("trims the input before appending it", func() {
			server = httptest.NewServer(streamHandler("ok"))
			conv := newLiveConversation(server.URL, "agent-1")

			Expect(conv.Send(context.Background(), "  hello  ", nil)).To(Succeed())
			Expect(conv.Messages()[0].Content).To(Equal("hello"))
		})

		It("shows a temporary placeholder while the answer is on the way", func() {
			release := make(chan struct{})
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				<-release
				streamHandler("done")(w, r)
			}))
			defer close(release)

			conv := newLiveConversation(server.URL, "agent-1")

			done := make(chan error, 1)
			go func() {
				done <- conv.Send(context.Background(), "slow question", nil)
			}()

			Eventually(func() []chat.Message { return conv.Messages() }).Should(HaveLen(2))
			msgs := conv.Messages()
			Expect(msgs[1].Temporary).To(BeTrue())
			Expect(msgs[1].Content).To(Equal("Thinking..."))
			Expect(conv.Sending()).To(BeTrue())

			release <- struct{}{}
			Eventually(done).Should(Receive(BeNil()))

			msgs = conv.Messages()
			Expect(msgs[1].Temporary).To(BeFalse())
			Expect(msgs[1].Content).To(Equal("done"))
			Expect(conv.Sending()).To(BeFalse())
		})

		It("rejects a second send while one is in flight", func() {
			release := make(chan struct{})
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				<-release
				streamHandler("first")(w, r)
			}))
			defer close(release)

			conv := newLiveConversation(server.URL, "agent-1")

			done := make(chan error, 1)
			go func() {
				done <- conv.Send(context.Background(), "first", nil)
			}()
			Eventually(func() bool { return conv.Sending() }).Should(BeTrue())

			err := conv.Send(context.Background(), "second", nil)
			Expect(err).To(MatchError(chat.ErrSendInFlight))
			Expect(conv.Messages()).To(HaveLen(2))

			release <- struct{}{}
			Eventually(done).Should(Receive(BeNil()))
		})

		It("sends the transcript without placeholders or notices", func() {
			var bodies [][]byte
			var mu sync.Mutex
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				body, err := io.ReadAll(r.Body)
				Expect(err).NotTo(HaveOccurred())
				mu.Lock()
				bodies = append(bodies, body)
				mu.Unlock()

				if len(bodies) == 1 {
					w.WriteHeader(http.StatusBadGateway)
					return
				}
				streamHandler("answer two")(w, r)
			}))

			conv := newLiveConversation(server.URL, "agent-1")

			Expect(conv.Send(context.Background(), "first ask", nil)).NotTo(Succeed())
			Expect(conv.Send(context.Background(), "second ask", nil)).To(Succeed())

			mu.Lock()
			defer mu.Unlock()
			Expect(bodies).To(HaveLen(2))

			var req struct {
				Stream   bool `json:"stream"`
				Messages []struct {
					Role    string `json:"role"`
					Content string `json:"content"`
				} `json:"messages"`
			}
			Expect(json.Unmarshal(bodies[1], &req)).To(Succeed())
			Expect(req.Stream).To(BeTrue())
			Expect(req.Messages).To(HaveLen(2))
			Expect(req.Messages[0].Role).To(Equal("user"))
			Expect(req.Messages[0].Content).To(Equal("first ask"))
			Expect(req.Messages[1].Role).To(Equal("user"))
			Expect(req.Messages[1].Content).To(Equal("second ask"))
		})
	})

	Describe("Send failures", func() {
		It("replaces the placeholder with a notice when the service refuses", func() {
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				fmt.Fprint(w, "invalid token")
			}))

			conv := newLiveConversation(server.URL, "agent-1")
			rec := &deltaRecorder{}

			err := conv.Send(context.Background(), "who are you", rec.fn())

			var reqErr *rag.RequestError
			Expect(errors.As(err, &reqErr)).To(BeTrue())

			msgs := conv.Messages()
			Expect(msgs).To(HaveLen(2))
			Expect(msgs[0].Role).To(Equal(chat.RoleUser))
			Expect(msgs[1].Role).To(Equal(chat.RoleSystem))
			Expect(msgs[1].Content).To(ContainSubstring("did not answer"))
			Expect(rec.deltas()).To(BeEmpty())
			Expect(rec.finalCount()).To(BeZero())
		})

		It("stays live after a refused send", func() {
			var calls int
			var mu sync.Mutex
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				mu.Lock()
				calls++
				first := calls == 1
				mu.Unlock()
				if first {
					w.WriteHeader(http.StatusServiceUnavailable)
					return
				}
				streamHandler("recovered")(w, r)
			}))

			conv := newLiveConversation(server.URL, "agent-1")

			Expect(conv.Send(context.Background(), "first", nil)).NotTo(Succeed())
			Expect(conv.State().Live()).To(BeTrue())

			Expect(conv.Send(context.Background(), "second", nil)).To(Succeed())
			msgs := conv.Messages()
			Expect(msgs[len(msgs)-1].Content).To(Equal("recovered"))
		})

		It("keeps a partial answer when the stream breaks, marked incomplete", func() {
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				// Promise more bytes than are sent so the client sees the
				// stream die mid-body.
				w.Header().Set("Content-Length", "4096")
				fmt.Fprintf(w, "%s\n", chunkLine("cut "))
				fmt.Fprintf(w, "%s\n", chunkLine("short"))
			}))

			conv := newLiveConversation(server.URL, "agent-1")
			rec := &deltaRecorder{}

			err := conv.Send(context.Background(), "tell me everything", rec.fn())

			var streamErr *rag.StreamError
			Expect(errors.As(err, &streamErr)).To(BeTrue())

			msgs := conv.Messages()
			Expect(msgs).To(HaveLen(2))
			Expect(msgs[1].Role).To(Equal(chat.RoleAssistant))
			Expect(msgs[1].Content).To(Equal("cut short"))
			Expect(msgs[1].Incomplete).To(BeTrue())
			Expect(msgs[1].Temporary).To(BeFalse())
			Expect(rec.finalCount()).To(BeZero())
			Expect(conv.State().Live()).To(BeTrue())
		})

		It("drops the placeholder when the stream breaks before any content", func() {
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Length", "4096")
				fmt.Fprint(w, "data: ")
			}))

			conv := newLiveConversation(server.URL, "agent-1")

			Expect(conv.Send(context.Background(), "anything there", nil)).NotTo(Succeed())

			msgs := conv.Messages()
			Expect(msgs).To(HaveLen(2))
			Expect(msgs[1].Role).To(Equal(chat.RoleSystem))
			Expect(msgs[1].Incomplete).To(BeFalse())
		})
	})

	Describe("degraded sends", func() {
		It("answers locally with the reason, no network involved", func() {
			conv := chat.New(nil, "agent-1")
			rec := &deltaRecorder{}

			Expect(conv.Send(context.Background(), "hello?", rec.fn())).To(Succeed())

			msgs := conv.Messages()
			Expect(msgs).To(HaveLen(2))
			Expect(msgs[0].Role).To(Equal(chat.RoleUser))
			Expect(msgs[1].Role).To(Equal(chat.RoleSystem))
			Expect(msgs[1].Content).To(ContainSubstring("Not connected"))
			Expect(msgs[1].Content).To(ContainSubstring("no assistant client is configured"))
			Expect(rec.deltas()).To(HaveLen(1))
			Expect(rec.finalCount()).To(Equal(1))
		})

		It("carries a caller-supplied reason", func() {
			conv := chat.New(nil, "agent-1")
			conv.Degrade("api.host is not set")

			Expect(conv.Send(context.Background(), "hello?", nil)).To(Succeed())
			msgs := conv.Messages()
			Expect(msgs[1].Content).To(ContainSubstring("api.host is not set"))
		})
	})

	Describe("Rebuild", func() {
		It("returns a degraded conversation to live", func() {
			server = httptest.NewServer(streamHandler("back online"))
			conv := chat.New(nil, "agent-1")

			Expect(conv.Send(context.Background(), "anyone home?", nil)).To(Succeed())

			client, err := rag.New(rag.Config{Host: server.URL, APIKey: "test-key"})
			Expect(err).NotTo(HaveOccurred())
			conv.Rebuild(client)

			st := conv.State()
			Expect(st.Live()).To(BeTrue())
			Expect(st.AssistantID).To(Equal("agent-1"))

			Expect(conv.Send(context.Background(), "and now?", nil)).To(Succeed())
			msgs := conv.Messages()
			Expect(msgs[len(msgs)-1].Role).To(Equal(chat.RoleAssistant))
			Expect(msgs[len(msgs)-1].Content).To(Equal("back online"))
		})

		It("keeps the session across degrade and rebuild", func() {
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"choices":[{"message":{"content":"noted"}}],"session_id":"sess-7"}`)
			}))

			conv := newLiveConversation(server.URL, "agent-1", chat.WithStreaming(false))
			Expect(conv.Send(context.Background(), "remember this", nil)).To(Succeed())
			Expect(conv.State().SessionID).To(Equal("sess-7"))

			conv.Degrade("service restarting")
			Expect(conv.State().SessionID).To(Equal("sess-7"))

			client, err := rag.New(rag.Config{Host: server.URL, APIKey: "test-key"})
			Expect(err).NotTo(HaveOccurred())
			conv.Rebuild(client)

			st := conv.State()
			Expect(st.Live()).To(BeTrue())
			Expect(st.SessionID).To(Equal("sess-7"))
		})

		It("degrades when handed no client", func() {
			conv := chat.New(nil, "agent-1")
			conv.Rebuild(nil)
			Expect(conv.State().Live()).To(BeFalse())
			Expect(conv.State().Reason).NotTo(BeEmpty())
		})
	})

	Describe("Retry", func() {
		It("asks the last user message again in place of the failure", func() {
			var calls int
			var mu sync.Mutex
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				mu.Lock()
				calls++
				first := calls == 1
				mu.Unlock()
				if first {
					w.WriteHeader(http.StatusBadGateway)
					return
				}
				streamHandler("second time lucky")(w, r)
			}))

			conv := newLiveConversation(server.URL, "agent-1")

			Expect(conv.Send(context.Background(), "flaky question", nil)).NotTo(Succeed())
			Expect(conv.Messages()).To(HaveLen(2))

			Expect(conv.Retry(context.Background(), nil)).To(Succeed())

			msgs := conv.Messages()
			Expect(msgs).To(HaveLen(2))
			Expect(msgs[0].Role).To(Equal(chat.RoleUser))
			Expect(msgs[0].Content).To(Equal("flaky question"))
			Expect(msgs[1].Role).To(Equal(chat.RoleAssistant))
			Expect(msgs[1].Content).To(Equal("second time lucky"))
		})

		It("replaces an incomplete partial answer", func() {
			var calls int
			var mu sync.Mutex
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				mu.Lock()
				calls++
				first := calls == 1
				mu.Unlock()
				if first {
					w.Header().Set("Content-Length", "4096")
					fmt.Fprintf(w, "%s\n", chunkLine("half an"))
					return
				}
				streamHandler("a whole answer")(w, r)
			}))

			conv := newLiveConversation(server.URL, "agent-1")

			Expect(conv.Send(context.Background(), "question", nil)).NotTo(Succeed())
			Expect(conv.Messages()[1].Incomplete).To(BeTrue())

			Expect(conv.Retry(context.Background(), nil)).To(Succeed())

			msgs := conv.Messages()
			Expect(msgs).To(HaveLen(2))
			Expect(msgs[1].Content).To(Equal("a whole answer"))
			Expect(msgs[1].Incomplete).To(BeFalse())
		})

		It("refuses when there is nothing to retry", func() {
			conv := chat.New(nil, "agent-1")
			Expect(conv.Retry(context.Background(), nil)).To(MatchError(chat.ErrNothingToRetry))
		})
	})

	Describe("non-streaming sends", func() {
		It("lands the whole answer with its references", func() {
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var req struct {
					Stream bool `json:"stream"`
				}
				Expect(json.NewDecoder(r.Body).Decode(&req)).To(Succeed())
				Expect(req.Stream).To(BeFalse())

				fmt.Fprint(w, `{
					"choices":[{"message":{"content":"See the handbook."}}],
					"reference":{"chunks":[
						{"document_id":"doc-1","document_name":"handbook.pdf","content":"policy","dataset_id":"ds-9"}
					]},
					"session_id":"sess-1"
				}`)
			}))

			conv := newLiveConversation(server.URL, "agent-1", chat.WithStreaming(false))
			rec := &deltaRecorder{}

			Expect(conv.Send(context.Background(), "where is the policy?", rec.fn())).To(Succeed())

			msgs := conv.Messages()
			Expect(msgs[1].Content).To(Equal("See the handbook."))
			Expect(msgs[1].References).To(HaveLen(1))
			Expect(msgs[1].References[0].DocumentName).To(Equal("handbook.pdf"))
			Expect(conv.State().SessionID).To(Equal("sess-1"))
			Expect(rec.deltas()).To(BeEmpty())
			Expect(rec.finalCount()).To(Equal(1))
		})
	})

	Describe("Messages", func() {
		It("returns a snapshot the caller cannot mutate through", func() {
			server = httptest.NewServer(streamHandler("stable"))
			conv := newLiveConversation(server.URL, "agent-1")

			Expect(conv.Send(context.Background(), "question", nil)).To(Succeed())

			msgs := conv.Messages()
			msgs[0].Content = "scribbled over"
			Expect(conv.Messages()[0].Content).To(Equal("question"))
		})

		It("timestamps messages in order", func() {
			server = httptest.NewServer(streamHandler("ok"))
			conv := newLiveConversation(server.URL, "agent-1")

			Expect(conv.Send(context.Background(), "question", nil)).To(Succeed())

			msgs := conv.Messages()
			Expect(msgs[0].ID).NotTo(BeEmpty())
			Expect(msgs[0].CreatedAt).NotTo(BeZero())
			Expect(msgs[1].CreatedAt).To(BeTemporally(">=", msgs[0].CreatedAt))
			Expect(conv.CreatedAt()).To(BeTemporally("<=", time.Now()))
		})
	})
})
