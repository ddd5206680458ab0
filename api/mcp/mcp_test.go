package mcp

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/inklingco/inkling/pkg/history/inmemory"
	"github.com/inklingco/inkling/pkg/logger"
	"github.com/inklingco/inkling/pkg/rag"
	"github.com/inklingco/inkling/pkg/search"
	testutils "github.com/inklingco/inkling/pkg/utils/test"
)

var _ = Describe("NewServer", func() {
	It("requires a logger", func() {
		_, err := NewServer(Config{})
		Expect(err).To(MatchError(ContainSubstring("logger is required")))
	})

	It("serves without any tools configured", func() {
		server, err := NewServer(Config{Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())
		Expect(server.Handler()).NotTo(BeNil())
	})

	It("serves with the search tool enabled", func() {
		searcher := search.NewSearcher(
			testutils.NewMockEmbedder(),
			testutils.NewMockVectorDriver(),
			inmemory.NewDriver(),
			logger.Nop(),
		)

		server, err := NewServer(Config{Searcher: searcher, Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())
		Expect(server.Handler()).NotTo(BeNil())
	})

	It("serves with the ask tool enabled", func() {
		client, err := rag.New(rag.Config{Host: "http://localhost:9999", APIKey: "key"})
		Expect(err).NotTo(HaveOccurred())

		server, err := NewServer(Config{
			Assistant:   client,
			AssistantID: "agent-1",
			Logger:      logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(server.Handler()).NotTo(BeNil())
	})
})
