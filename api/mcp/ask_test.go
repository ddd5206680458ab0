package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/inklingco/inkling/pkg/logger"
	"github.com/inklingco/inkling/pkg/rag"
)

// askTestService answers the completions endpoint with a fixed reply
// citing the handbook twice, which the tool should dedupe to one name.
func askTestService() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/assistants/agent-1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		Expect(r.Method).To(Equal(http.MethodPost))
		Expect(r.Header.Get("Authorization")).To(Equal("Bearer test-key"))

		var req struct {
			Stream bool `json:"stream"`
		}
		Expect(json.NewDecoder(r.Body).Decode(&req)).To(Succeed())
		Expect(req.Stream).To(BeFalse())

		w.Header().Set("Content-Type", "application/json")
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "Twenty five days a year.##0$$"}},
			},
			"reference": map[string]any{
				"chunks": []map[string]any{
					{
						"document_id":   "doc-1",
						"document_name": "handbook.md",
						"content":       "Employees accrue 25 days.",
						"dataset_id":    "ds-1",
					},
					{
						"document_id":   "doc-1",
						"document_name": "handbook.md",
						"content":       "Carry-over is capped at 5 days.",
						"dataset_id":    "ds-1",
					},
				},
			},
			"session_id": "sess-1",
		}
		Expect(json.NewEncoder(w).Encode(resp)).To(Succeed())
	})

	return httptest.NewServer(mux)
}

var _ = Describe("ask_assistant tool", func() {
	var (
		server  *Server
		service *httptest.Server
		ctx     context.Context
	)

	BeforeEach(func() {
		service = askTestService()
		DeferCleanup(service.Close)
		ctx = context.Background()

		client, err := rag.New(rag.Config{Host: service.URL, APIKey: "test-key"})
		Expect(err).NotTo(HaveOccurred())

		server, err = NewServer(Config{
			Assistant:   client,
			AssistantID: "agent-1",
			Logger:      logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
	})

	It("returns the cleaned answer with deduped references", func() {
		result, out, err := server.handleAsk(ctx, nil, AskInput{Question: "How many vacation days?"})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.IsError).To(BeFalse())

		Expect(out.Answer).To(Equal("Twenty five days a year."))
		Expect(out.References).To(Equal([]string{"handbook.md"}))

		text, ok := result.Content[0].(*sdk.TextContent)
		Expect(ok).To(BeTrue())

		var mirrored AskOutput
		Expect(json.Unmarshal([]byte(text.Text), &mirrored)).To(Succeed())
		Expect(mirrored).To(Equal(out))
	})

	It("rejects an empty question as a tool error", func() {
		result, out, err := server.handleAsk(ctx, nil, AskInput{})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.IsError).To(BeTrue())
		Expect(out.Answer).To(BeEmpty())

		text, ok := result.Content[0].(*sdk.TextContent)
		Expect(ok).To(BeTrue())
		Expect(text.Text).To(ContainSubstring("question is empty"))
	})

	It("reports an unreachable service as a tool error", func() {
		client, err := rag.New(rag.Config{Host: "http://127.0.0.1:1", APIKey: "test-key"})
		Expect(err).NotTo(HaveOccurred())

		offline, err := NewServer(Config{
			Assistant:   client,
			AssistantID: "agent-1",
			Logger:      logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())

		result, _, err := offline.handleAsk(ctx, nil, AskInput{Question: "anyone there?"})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.IsError).To(BeTrue())

		text, ok := result.Content[0].(*sdk.TextContent)
		Expect(ok).To(BeTrue())
		Expect(text.Text).To(ContainSubstring("ask failed"))
	})
})

var _ = Describe("referenceNames", func() {
	It("dedupes names preserving first-seen order", func() {
		names := referenceNames([]rag.Reference{
			{DocumentName: "b.md"},
			{DocumentName: "a.md"},
			{DocumentName: "b.md"},
		})
		Expect(names).To(Equal([]string{"b.md", "a.md"}))
	})

	It("skips unnamed references", func() {
		names := referenceNames([]rag.Reference{
			{DocumentName: ""},
			{DocumentName: "a.md"},
		})
		Expect(names).To(Equal([]string{"a.md"}))
	})

	It("returns nil for no references", func() {
		Expect(referenceNames(nil)).To(BeNil())
	})
})
