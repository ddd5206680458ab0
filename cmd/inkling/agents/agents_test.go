package agentscmder_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	agentscmder "github.com/inklingco/inkling/cmd/inkling/agents"
	"github.com/inklingco/inkling/pkg/credentials"
)

var _ = Describe("Agents Command", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "agents-test-*")
		Expect(err).NotTo(HaveOccurred())

		os.Unsetenv(credentials.EnvAPIKey)
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("NewAgentsCmd", func() {
		It("creates a command with expected properties", func() {
			cmd := agentscmder.NewAgentsCmd()
			Expect(cmd.Use).To(Equal("agents"))
			Expect(cmd.Short).NotTo(BeEmpty())
		})

		It("has --host flag", func() {
			cmd := agentscmder.NewAgentsCmd()
			flag := cmd.Flags().Lookup("host")
			Expect(flag).NotTo(BeNil())
		})

		It("rejects positional arguments", func() {
			cmd := agentscmder.NewAgentsCmd()
			err := cmd.Args(cmd, []string{"handbook"})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("listing assistants", func() {
		newCmd := func(args ...string) *cobra.Command {
			cmd := agentscmder.NewAgentsCmd()
			out := &bytes.Buffer{}
			cmd.SetOut(out)
			cmd.PersistentFlags().String("config-dir", "", "Override path to the .inkling/ directory")
			cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
			cmd.SetArgs(append([]string{"--config-dir", tmpDir}, args...))
			return cmd
		}

		It("prints the assistants returned by the service", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Path).To(Equal("/api/v1/assistants"))
				Expect(r.Header.Get("Authorization")).To(Equal("Bearer sk-test-1234"))
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`[{"id":"handbook","name":"Handbook Assistant"},{"id":"oncall","name":"Oncall Runbooks"}]`))
			}))
			DeferCleanup(server.Close)

			mgr, err := credentials.NewManager(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(mgr.SetKey("sk-test-1234")).To(Succeed())

			err = newCmd("--host", server.URL).Execute()
			Expect(err).NotTo(HaveOccurred())
		})

		It("errors when no host is configured", func() {
			err := newCmd().Execute()
			Expect(err).To(MatchError(ContainSubstring("api.host")))
		})

		It("errors when no API key is available", func() {
			err := newCmd("--host", "https://rag.example.com").Execute()
			Expect(err).To(MatchError(ContainSubstring("inkling auth")))
		})

		It("surfaces service errors", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			}))
			DeferCleanup(server.Close)

			mgr, err := credentials.NewManager(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(mgr.SetKey("sk-test-1234")).To(Succeed())

			err = newCmd("--host", server.URL).Execute()
			Expect(err).To(MatchError(ContainSubstring("listing assistants")))
		})
	})
})
