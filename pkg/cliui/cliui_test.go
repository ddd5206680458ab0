package cliui_test

import (
	"errors"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/inklingco/inkling/pkg/cliui"
)

var _ = Describe("FormatDuration", func() {
	It("prints sub-second durations in milliseconds", func() {
		Expect(cliui.FormatDuration(12 * time.Millisecond)).To(Equal("12ms"))
	})

	It("prints seconds with one decimal", func() {
		Expect(cliui.FormatDuration(3200 * time.Millisecond)).To(Equal("3.2s"))
	})

	It("prints minutes with zero-padded seconds", func() {
		Expect(cliui.FormatDuration(2*time.Minute + 5*time.Second)).To(Equal("2m05s"))
	})
})

var _ = Describe("Mark", func() {
	It("marks success and failure differently", func() {
		Expect(cliui.Mark(nil)).To(Equal(cliui.SuccessMark))
		Expect(cliui.Mark(errors.New("boom"))).To(Equal(cliui.FailMark))
	})
})

var _ = Describe("Step", func() {
	It("returns fn's error and prints the message", func() {
		var out strings.Builder
		err := cliui.Step(&out, "connecting", func() error {
			return errors.New("refused")
		})
		Expect(err).To(MatchError("refused"))
		Expect(out.String()).To(ContainSubstring("connecting"))
	})

	It("succeeds when fn does", func() {
		var out strings.Builder
		Expect(cliui.Step(&out, "migrating", func() error { return nil })).To(Succeed())
		Expect(out.String()).To(ContainSubstring("migrating"))
	})
})
