package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/inklingco/inkling/pkg/history"
	"github.com/inklingco/inkling/pkg/history/inmemory"
	"github.com/inklingco/inkling/pkg/logger"
	"github.com/inklingco/inkling/pkg/search"
	testutils "github.com/inklingco/inkling/pkg/utils/test"
	"github.com/inklingco/inkling/pkg/vector"
)

var _ = Describe("search_conversations tool", func() {
	var (
		server       *Server
		driver       *inmemory.Driver
		vectorDriver *testutils.MockVectorDriver
		ctx          context.Context
	)

	BeforeEach(func() {
		driver = inmemory.NewDriver()
		vectorDriver = testutils.NewMockVectorDriver()
		ctx = context.Background()

		searcher := search.NewSearcher(
			testutils.NewMockEmbedder(),
			vectorDriver,
			driver,
			logger.Nop(),
		)

		var err error
		server, err = NewServer(Config{Searcher: searcher, Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())
	})

	It("returns matching conversations with the JSON mirrored as text", func() {
		rec := &history.Record{
			ID:        "conv-1",
			Title:     "vacation days",
			CreatedAt: time.Now(),
			Messages: []history.RecordMessage{
				{Role: "user", Content: "How many vacation days do I get?", Position: 0},
			},
		}
		Expect(driver.SaveConversation(ctx, rec)).To(Succeed())

		vectorDriver.Results = []vector.QueryResult{
			{
				Document: vector.Document{ID: "conv-1", ConversationID: "conv-1"},
				Score:    0.91,
			},
		}

		result, out, err := server.handleSearch(ctx, nil, SearchInput{Query: "vacation"})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.IsError).To(BeFalse())

		Expect(out.Query).To(Equal("vacation"))
		Expect(out.Count).To(Equal(1))
		Expect(out.Results[0].ConversationID).To(Equal("conv-1"))
		Expect(out.Results[0].Title).To(Equal("vacation days"))

		text, ok := result.Content[0].(*sdk.TextContent)
		Expect(ok).To(BeTrue())

		var mirrored search.Output
		Expect(json.Unmarshal([]byte(text.Text), &mirrored)).To(Succeed())
		Expect(mirrored.Count).To(Equal(out.Count))
		Expect(mirrored.Results[0].ConversationID).To(Equal("conv-1"))
	})

	It("reports an empty query as a tool error", func() {
		result, out, err := server.handleSearch(ctx, nil, SearchInput{Query: "   "})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.IsError).To(BeTrue())
		Expect(out.Count).To(Equal(0))

		text, ok := result.Content[0].(*sdk.TextContent)
		Expect(ok).To(BeTrue())
		Expect(text.Text).To(ContainSubstring("search failed"))
	})

	It("reports a vector store failure as a tool error", func() {
		vectorDriver.QueryErr = errors.New("vector store down")

		result, _, err := server.handleSearch(ctx, nil, SearchInput{Query: "anything"})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.IsError).To(BeTrue())

		text, ok := result.Content[0].(*sdk.TextContent)
		Expect(ok).To(BeTrue())
		Expect(text.Text).To(ContainSubstring("vector store down"))
	})
})
