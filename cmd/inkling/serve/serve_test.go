package servecmder_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	servecmder "github.com/inklingco/inkling/cmd/inkling/serve"
)

var _ = Describe("Serve Command", func() {
	Describe("NewServeCmd", func() {
		It("creates a command with expected properties", func() {
			cmd := servecmder.NewServeCmd()
			Expect(cmd.Use).To(Equal("serve"))
			Expect(cmd.Short).NotTo(BeEmpty())
		})

		It("rejects positional arguments", func() {
			cmd := servecmder.NewServeCmd()
			Expect(cmd.Args(cmd, []string{"extra"})).NotTo(Succeed())
		})

		It("defaults the listen address", func() {
			cmd := servecmder.NewServeCmd()
			flag := cmd.Flags().Lookup("listen")
			Expect(flag).NotTo(BeNil())
			Expect(flag.DefValue).To(Equal(":8099"))
		})

		It("uses -l as the listen shorthand", func() {
			cmd := servecmder.NewServeCmd()
			Expect(cmd.Flags().ShorthandLookup("l").Name).To(Equal("listen"))
		})

		It("registers the sandbox and search flags", func() {
			cmd := servecmder.NewServeCmd()
			for _, name := range []string{"sandbox", "search", "vector", "qdrant", "history-driver"} {
				Expect(cmd.Flags().Lookup(name)).NotTo(BeNil(), "missing flag %s", name)
			}
		})
	})
})
