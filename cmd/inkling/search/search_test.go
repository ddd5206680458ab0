package searchcmder_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	searchcmder "github.com/inklingco/inkling/cmd/inkling/search"
	embeddingutils "github.com/inklingco/inkling/pkg/embeddings/utils"
	"github.com/inklingco/inkling/pkg/history"
	historyutils "github.com/inklingco/inkling/pkg/history/utils"
	"github.com/inklingco/inkling/pkg/logger"
	"github.com/inklingco/inkling/pkg/search"
	vectorutils "github.com/inklingco/inkling/pkg/vector/utils"
)

var _ = Describe("Search Command", func() {
	var (
		tmpDir string
		ctx    context.Context
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "search-test-*")
		Expect(err).NotTo(HaveOccurred())

		ctx = context.Background()
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	// fakeOllama answers every embed request with the same fixed
	// 768-wide vector, so any query matches any indexed conversation.
	fakeOllama := func() *httptest.Server {
		vec := make([]float32, 768)
		for i := range vec {
			vec[i] = float32(i%13)/13 + 0.01
		}

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/api/embed"))
			w.Header().Set("Content-Type", "application/json")
			Expect(json.NewEncoder(w).Encode(map[string]any{
				"embeddings": [][]float32{vec},
			})).To(Succeed())
		}))
		DeferCleanup(server.Close)
		return server
	}

	index := func(ollamaURL string, rec *history.Record) {
		embedder, err := embeddingutils.NewEmbedder(embeddingutils.NewEmbedderOpts{URL: ollamaURL})
		Expect(err).NotTo(HaveOccurred())

		vectors, err := vectorutils.NewDriver(ctx, vectorutils.NewDriverOpts{
			Driver: "sqlite",
			DSN:    filepath.Join(tmpDir, "vectors.db"),
		})
		Expect(err).NotTo(HaveOccurred())

		hist, err := historyutils.NewDriver(ctx, &historyutils.NewDriverOpts{
			Driver: "sqlite",
			DSN:    filepath.Join(tmpDir, "history.db"),
		})
		Expect(err).NotTo(HaveOccurred())

		searcher := search.NewSearcher(embedder, vectors, hist, logger.Nop())
		Expect(hist.SaveConversation(ctx, rec)).To(Succeed())
		Expect(searcher.Index(ctx, rec)).To(Succeed())

		Expect(hist.Close()).To(Succeed())
		Expect(vectors.Close()).To(Succeed())
		Expect(embedder.Close()).To(Succeed())
	}

	newCmd := func(args ...string) *cobra.Command {
		cmd := searchcmder.NewSearchCmd()
		cmd.SetOut(GinkgoWriter)
		cmd.PersistentFlags().String("config-dir", "", "Override path to the .inkling/ directory")
		cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
		cmd.SetArgs(append(args, "--config-dir", tmpDir))
		return cmd
	}

	Describe("NewSearchCmd", func() {
		It("creates a command with expected properties", func() {
			cmd := searchcmder.NewSearchCmd()
			Expect(cmd.Use).To(Equal("search <query>"))
			Expect(cmd.Short).NotTo(BeEmpty())
		})

		It("requires exactly one query argument", func() {
			cmd := searchcmder.NewSearchCmd()
			Expect(cmd.Args(cmd, []string{})).NotTo(Succeed())
			Expect(cmd.Args(cmd, []string{"a", "b"})).NotTo(Succeed())
			Expect(cmd.Args(cmd, []string{"deploy process"})).To(Succeed())
		})

		It("has a --top flag with the default result count", func() {
			cmd := searchcmder.NewSearchCmd()
			flag := cmd.Flags().Lookup("top")
			Expect(flag).NotTo(BeNil())
			Expect(flag.DefValue).To(Equal("5"))
		})
	})

	Describe("running a search", func() {
		It("refuses when search is disabled", func() {
			err := newCmd("deploy process").Execute()
			Expect(err).To(MatchError(ContainSubstring("search.enabled")))
		})

		It("reports no results on an empty index", func() {
			server := fakeOllama()

			err := newCmd("deploy process", "--search", "--ollama", server.URL).Execute()
			Expect(err).NotTo(HaveOccurred())
		})

		It("finds an indexed conversation", func() {
			server := fakeOllama()

			index(server.URL, &history.Record{
				ID:            "c1",
				AssistantID:   "handbook",
				AssistantName: "Handbook Assistant",
				Model:         "qwen3",
				Title:         "Deploy process",
				CreatedAt:     time.Now().UTC().Truncate(time.Second),
				Messages: []history.RecordMessage{
					{Role: "user", Content: "When do we deploy?", Position: 0},
					{Role: "assistant", Content: "On Fridays.", Position: 1},
				},
			})

			err := newCmd("deploy process", "--search", "--ollama", server.URL).Execute()
			Expect(err).NotTo(HaveOccurred())
		})
	})
})
