package sqlitevec_test

import (
	"context"
	"log/slog"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/inklingco/inkling/pkg/logger"
	"github.com/inklingco/inkling/pkg/vector"
	"github.com/inklingco/inkling/pkg/vector/sqlitevec"
)

var _ = Describe("Driver", func() {
	var log *slog.Logger

	newDriver := func() *sqlitevec.Driver {
		driver, err := sqlitevec.NewDriver(sqlitevec.Config{
			DBPath:     ":memory:",
			Dimensions: 4,
		}, log)
		Expect(err).NotTo(HaveOccurred())
		return driver
	}

	doc := func(id, conversationID string, embedding ...float32) vector.Document {
		return vector.Document{
			ID:             id,
			ConversationID: conversationID,
			Embedding:      embedding,
		}
	}

	BeforeEach(func() {
		log = logger.Nop()
	})

	Describe("NewDriver", func() {
		It("rejects an empty database path", func() {
			_, err := sqlitevec.NewDriver(sqlitevec.Config{Dimensions: 4}, log)
			Expect(err).To(MatchError(ContainSubstring("database path is required")))
		})

		It("rejects zero dimensions", func() {
			_, err := sqlitevec.NewDriver(sqlitevec.Config{DBPath: ":memory:"}, log)
			Expect(err).To(MatchError(ContainSubstring("dimensions")))
		})

		It("opens an in-memory database", func() {
			driver := newDriver()
			Expect(driver.Close()).To(Succeed())
		})

		It("creates the database file on disk", func() {
			path := filepath.Join(GinkgoT().TempDir(), "vectors.db")
			driver, err := sqlitevec.NewDriver(sqlitevec.Config{
				DBPath:     path,
				Dimensions: 4,
			}, log)
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(driver.Close)

			Expect(path).To(BeAnExistingFile())
		})

		It("satisfies the driver interface", func() {
			var _ vector.Driver = (*sqlitevec.Driver)(nil)
		})
	})

	Describe("Add", func() {
		var driver *sqlitevec.Driver

		BeforeEach(func() {
			driver = newDriver()
			DeferCleanup(driver.Close)
		})

		It("accepts an empty batch", func() {
			Expect(driver.Add(context.Background(), nil)).To(Succeed())
		})

		It("stores a document with its conversation", func() {
			err := driver.Add(context.Background(), []vector.Document{
				doc("11111111-1111-4111-8111-111111111111", "conv-1", 0.1, 0.2, 0.3, 0.4),
			})
			Expect(err).NotTo(HaveOccurred())

			got, err := driver.Get(context.Background(), []string{"11111111-1111-4111-8111-111111111111"})
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(1))
			Expect(got[0].ConversationID).To(Equal("conv-1"))
		})

		It("rejects a document without an ID", func() {
			err := driver.Add(context.Background(), []vector.Document{
				doc("", "conv-1", 0.1, 0.2, 0.3, 0.4),
			})
			Expect(err).To(MatchError(ContainSubstring("ID is required")))
		})

		It("replaces a document added twice", func() {
			id := "22222222-2222-4222-8222-222222222222"

			err := driver.Add(context.Background(), []vector.Document{
				doc(id, "conv-1", 0.1, 0.1, 0.1, 0.1),
			})
			Expect(err).NotTo(HaveOccurred())

			err = driver.Add(context.Background(), []vector.Document{
				doc(id, "conv-2", 0.9, 0.9, 0.9, 0.9),
			})
			Expect(err).NotTo(HaveOccurred())

			got, err := driver.Get(context.Background(), []string{id})
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(1))
			Expect(got[0].ConversationID).To(Equal("conv-2"))
			Expect(got[0].Embedding[0]).To(BeNumerically("~", 0.9, 0.001))
		})
	})

	Describe("Query", func() {
		var driver *sqlitevec.Driver

		BeforeEach(func() {
			driver = newDriver()
			DeferCleanup(driver.Close)

			err := driver.Add(context.Background(), []vector.Document{
				doc("aaaaaaaa-0000-4000-8000-000000000001", "conv-a", 0.1, 0.1, 0.1, 0.1),
				doc("aaaaaaaa-0000-4000-8000-000000000002", "conv-b", 0.5, 0.5, 0.5, 0.5),
				doc("aaaaaaaa-0000-4000-8000-000000000003", "conv-c", 0.9, 0.9, 0.9, 0.9),
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("returns the nearest documents first", func() {
			results, err := driver.Query(context.Background(), []float32{0.9, 0.9, 0.9, 0.9}, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
			Expect(results[0].ID).To(Equal("aaaaaaaa-0000-4000-8000-000000000003"))
			Expect(results[0].ConversationID).To(Equal("conv-c"))
			Expect(results[0].Score).To(BeNumerically(">=", results[1].Score))
		})

		It("caps results at topK", func() {
			results, err := driver.Query(context.Background(), []float32{0.5, 0.5, 0.5, 0.5}, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
		})

		It("falls back to ten results when topK is zero", func() {
			results, err := driver.Query(context.Background(), []float32{0.5, 0.5, 0.5, 0.5}, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(3))
		})

		It("scores an exact match highest", func() {
			results, err := driver.Query(context.Background(), []float32{0.5, 0.5, 0.5, 0.5}, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(results[0].ID).To(Equal("aaaaaaaa-0000-4000-8000-000000000002"))
			Expect(results[0].Score).To(BeNumerically("~", 1.0, 0.001))
		})

		It("rejects an empty query embedding", func() {
			_, err := driver.Query(context.Background(), nil, 3)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Get", func() {
		var driver *sqlitevec.Driver

		BeforeEach(func() {
			driver = newDriver()
			DeferCleanup(driver.Close)

			err := driver.Add(context.Background(), []vector.Document{
				doc("bbbbbbbb-0000-4000-8000-000000000001", "conv-a", 0.1, 0.2, 0.3, 0.4),
				doc("bbbbbbbb-0000-4000-8000-000000000002", "conv-b", 0.5, 0.6, 0.7, 0.8),
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("returns nil for no IDs", func() {
			got, err := driver.Get(context.Background(), nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(BeNil())
		})

		It("returns stored embeddings", func() {
			got, err := driver.Get(context.Background(), []string{"bbbbbbbb-0000-4000-8000-000000000001"})
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(1))
			Expect(got[0].Embedding).To(HaveLen(4))
			Expect(got[0].Embedding[2]).To(BeNumerically("~", 0.3, 0.001))
		})

		It("skips unknown IDs", func() {
			got, err := driver.Get(context.Background(), []string{
				"bbbbbbbb-0000-4000-8000-000000000002",
				"bbbbbbbb-0000-4000-8000-00000000dead",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(1))
			Expect(got[0].ID).To(Equal("bbbbbbbb-0000-4000-8000-000000000002"))
		})
	})

	Describe("Delete", func() {
		var driver *sqlitevec.Driver

		BeforeEach(func() {
			driver = newDriver()
			DeferCleanup(driver.Close)

			err := driver.Add(context.Background(), []vector.Document{
				doc("cccccccc-0000-4000-8000-000000000001", "conv-a", 0.1, 0.1, 0.1, 0.1),
				doc("cccccccc-0000-4000-8000-000000000002", "conv-a", 0.2, 0.2, 0.2, 0.2),
				doc("cccccccc-0000-4000-8000-000000000003", "conv-b", 0.3, 0.3, 0.3, 0.3),
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("accepts an empty batch", func() {
			Expect(driver.Delete(context.Background(), nil)).To(Succeed())
		})

		It("removes the named documents and keeps the rest", func() {
			err := driver.Delete(context.Background(), []string{
				"cccccccc-0000-4000-8000-000000000001",
				"cccccccc-0000-4000-8000-000000000002",
			})
			Expect(err).NotTo(HaveOccurred())

			got, err := driver.Get(context.Background(), []string{
				"cccccccc-0000-4000-8000-000000000001",
				"cccccccc-0000-4000-8000-000000000002",
				"cccccccc-0000-4000-8000-000000000003",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(1))
			Expect(got[0].ID).To(Equal("cccccccc-0000-4000-8000-000000000003"))
		})

		It("ignores unknown IDs", func() {
			Expect(driver.Delete(context.Background(), []string{"cccccccc-0000-4000-8000-00000000dead"})).To(Succeed())
		})

		It("removes deleted documents from query results", func() {
			err := driver.Delete(context.Background(), []string{"cccccccc-0000-4000-8000-000000000003"})
			Expect(err).NotTo(HaveOccurred())

			results, err := driver.Query(context.Background(), []float32{0.3, 0.3, 0.3, 0.3}, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
			for _, result := range results {
				Expect(result.ID).NotTo(Equal("cccccccc-0000-4000-8000-000000000003"))
			}
		})
	})
})
