package postgres_test

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/inklingco/inkling/pkg/history"
	"github.com/inklingco/inkling/pkg/history/postgres"
	"github.com/inklingco/inkling/pkg/logger"
	"github.com/inklingco/inkling/pkg/rag"
)

// connStr returns the PostgreSQL connection string from the
// environment or skips the test.
func connStr() string {
	dsn := os.Getenv("INKLING_TEST_POSTGRES_DSN")
	if dsn == "" {
		Skip("INKLING_TEST_POSTGRES_DSN not set, skipping PostgreSQL tests")
	}
	return dsn
}

var _ = Describe("Driver", func() {
	var (
		driver *postgres.Driver
		ctx    context.Context
		id     string
	)

	BeforeEach(func() {
		ctx = context.Background()
		dsn := connStr()

		var err error
		driver, err = postgres.NewDriver(ctx, dsn, logger.Nop())
		Expect(err).NotTo(HaveOccurred())

		id = uuid.NewString()
	})

	AfterEach(func() {
		if driver != nil {
			driver.DeleteConversation(ctx, id)
			driver.Close()
		}
	})

	It("round-trips a conversation", func() {
		created := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
		rec := &history.Record{
			ID:            id,
			AssistantID:   "agent-1",
			AssistantName: "Docs",
			Model:         "model",
			Title:         "postgres round trip",
			Project:       "inkling",
			CreatedAt:     created,
			Messages: []history.RecordMessage{
				{Role: "user", Content: "where is the policy?", Position: 0},
				{
					Role:       "assistant",
					Content:    "In the handbook.",
					Incomplete: true,
					References: []rag.Reference{
						{DocumentID: "d1", DocumentName: "handbook.pdf", Content: "policy", DatasetID: "ds"},
					},
					Position: 1,
				},
			},
		}
		Expect(driver.SaveConversation(ctx, rec)).To(Succeed())

		got, err := driver.GetConversation(ctx, id)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Title).To(Equal("postgres round trip"))
		Expect(got.CreatedAt).To(BeTemporally("==", created))
		Expect(got.Messages).To(HaveLen(2))
		Expect(got.Messages[1].Incomplete).To(BeTrue())
		Expect(got.Messages[1].References).To(HaveLen(1))

		sums, err := driver.ListConversations(ctx)
		Expect(err).NotTo(HaveOccurred())

		var found *history.Summary
		for _, s := range sums {
			if s.ID == id {
				found = s
			}
		}
		Expect(found).NotTo(BeNil())
		Expect(found.Messages).To(Equal(2))
	})

	It("returns NotFoundError for an unknown id", func() {
		_, err := driver.GetConversation(ctx, uuid.NewString())

		var notFound history.NotFoundError
		Expect(errors.As(err, &notFound)).To(BeTrue())
	})
})
