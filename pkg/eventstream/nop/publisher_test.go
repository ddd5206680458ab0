package nop_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/inklingco/inkling/pkg/eventstream"
	"github.com/inklingco/inkling/pkg/eventstream/nop"
)

var _ = Describe("Publisher", func() {
	It("satisfies the publisher interface", func() {
		var _ eventstream.Publisher = (*nop.Publisher)(nil)
	})

	It("rejects nil events", func() {
		p := nop.NewPublisher()
		err := p.PublishConversation(context.Background(), nil)
		Expect(err).To(MatchError(eventstream.ErrNilEvent))
	})

	It("swallows non-nil events", func() {
		p := nop.NewPublisher()
		err := p.PublishConversation(context.Background(), &eventstream.ConversationSavedEvent{})
		Expect(err).NotTo(HaveOccurred())
	})

	It("closes cleanly", func() {
		Expect(nop.NewPublisher().Close()).To(Succeed())
	})
})
