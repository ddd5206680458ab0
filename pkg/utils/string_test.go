package utils

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("truncate", func() {
	It("returns the string unchanged when within the limit", func() {
		Expect(Truncate("short", 10)).To(Equal("short"))
	})

	It("returns the string unchanged when exactly at the limit", func() {
		Expect(Truncate("12345", 5)).To(Equal("12345"))
	})

	It("truncates with ellipsis when over the limit", func() {
		Expect(Truncate("this is a long string", 10)).To(Equal("this is a ..."))
	})
})

var _ = Describe("slugify", func() {
	It("lowers and hyphenates", func() {
		Expect(Slugify("Weekly Sync Notes")).To(Equal("weekly-sync-notes"))
	})

	It("collapses punctuation runs", func() {
		Expect(Slugify("what's an SSE... frame?")).To(Equal("what-s-an-sse-frame"))
	})

	It("falls back for empty input", func() {
		Expect(Slugify("??!")).To(Equal("untitled"))
	})

	It("caps the slug length", func() {
		long := Slugify("a very long conversation title that keeps going and going and going")
		Expect(len(long)).To(BeNumerically("<=", 48))
		Expect(long).NotTo(HaveSuffix("-"))
	})
})
