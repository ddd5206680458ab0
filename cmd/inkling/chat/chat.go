// Package chatcmder provides the chat command, the interactive session
// against the assistant service.
package chatcmder

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/inklingco/inkling/pkg/chat"
	"github.com/inklingco/inkling/pkg/cliui"
	"github.com/inklingco/inkling/pkg/config"
	"github.com/inklingco/inkling/pkg/credentials"
	"github.com/inklingco/inkling/pkg/logger"
	"github.com/inklingco/inkling/pkg/rag"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("assistant> ")
)

// chatFlags are the registry keys the chat command binds.
var chatFlags = []string{
	config.FlagHost,
	config.FlagAssistant,
	config.FlagModel,
	config.FlagTimeout,
	config.FlagStream,
	config.FlagNotesDir,
	config.FlagHistoryDriver,
	config.FlagHistoryDSN,
	config.FlagSearch,
	config.FlagVector,
	config.FlagQdrant,
	config.FlagOllama,
	config.FlagSearchModel,
	config.FlagBrokers,
	config.FlagTopic,
}

const chatLongDesc string = `Start a chat session with the configured assistant.

With no arguments an interactive loop starts; a message given as
arguments is asked once and the command exits. Streamed answers print
token by token as they arrive. Completed exchanges are recorded in the
local history store; '/save' (or --save on exit) also writes the
conversation to the notes directory as markdown.

Slash commands inside the loop:
  /save     Write the conversation to the notes directory
  /retry    Ask the last message again after a failure
  /agents   List the assistants available on the service
  /help     Show the slash commands
  /exit     Leave the chat

Without a configured host and API key the session runs degraded:
sends answer locally with the reason until settings are fixed. Editing
config.toml while the loop is running reconnects on the fly.

Examples:
  inkling chat
  inkling chat --assistant handbook --tui
  inkling chat --save What is our deploy process?
  inkling chat --stream=false Summarize last week's incident reviews`

const chatShortDesc string = "Chat with the configured assistant"

type ChatCommander struct {
	configDir string
	debug     bool

	host      string
	assistant string
	model     string
	timeout   uint
	stream    bool

	notesDir      string
	historyDriver string
	historyDSN    string

	searchEnabled bool
	vectorDriver  string
	qdrantAddr    string
	ollamaURL     string
	searchModel   string

	brokers string
	topic   string

	save   bool
	noSave bool
	tui    bool

	log *slog.Logger
}

func NewChatCmd() *cobra.Command {
	cmder := &ChatCommander{}

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.ArbitraryArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			cmder.debug, _ = cmd.Flags().GetBool("debug")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, chatFlags)

			cmder.host = v.GetString("api.host")
			cmder.assistant = v.GetString("api.assistant")
			cmder.model = v.GetString("api.model")
			cmder.timeout = v.GetUint("api.timeout")
			cmder.stream = v.GetBool("chat.stream")
			cmder.notesDir = v.GetString("notes.dir")
			cmder.historyDriver = v.GetString("history.driver")
			cmder.historyDSN = v.GetString("history.dsn")
			cmder.searchEnabled = v.GetBool("search.enabled")
			cmder.vectorDriver = v.GetString("search.vector")
			cmder.qdrantAddr = v.GetString("search.qdrant")
			cmder.ollamaURL = v.GetString("search.ollama")
			cmder.searchModel = v.GetString("search.model")
			cmder.brokers = v.GetString("events.brokers")
			cmder.topic = v.GetString("events.topic")

			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagHost, &cmder.host)
	config.AddStringFlag(cmd, config.Flags, config.FlagAssistant, &cmder.assistant)
	config.AddStringFlag(cmd, config.Flags, config.FlagModel, &cmder.model)
	config.AddUintFlag(cmd, config.Flags, config.FlagTimeout, &cmder.timeout)
	config.AddBoolFlag(cmd, config.Flags, config.FlagStream, &cmder.stream)
	config.AddStringFlag(cmd, config.Flags, config.FlagNotesDir, &cmder.notesDir)
	config.AddStringFlag(cmd, config.Flags, config.FlagHistoryDriver, &cmder.historyDriver)
	config.AddStringFlag(cmd, config.Flags, config.FlagHistoryDSN, &cmder.historyDSN)
	config.AddBoolFlag(cmd, config.Flags, config.FlagSearch, &cmder.searchEnabled)
	config.AddStringFlag(cmd, config.Flags, config.FlagVector, &cmder.vectorDriver)
	config.AddStringFlag(cmd, config.Flags, config.FlagQdrant, &cmder.qdrantAddr)
	config.AddStringFlag(cmd, config.Flags, config.FlagOllama, &cmder.ollamaURL)
	config.AddStringFlag(cmd, config.Flags, config.FlagSearchModel, &cmder.searchModel)
	config.AddStringFlag(cmd, config.Flags, config.FlagBrokers, &cmder.brokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagTopic, &cmder.topic)

	cmd.Flags().BoolVar(&cmder.save, "save", false, "Write the conversation to the notes directory on exit")
	cmd.Flags().BoolVar(&cmder.noSave, "no-save", false, "Never write a note, even on /save")
	cmd.Flags().BoolVar(&cmder.tui, "tui", false, "Use the full-screen terminal interface")

	return cmd
}

func (c *ChatCommander) run(cmd *cobra.Command, args []string) error {
	c.log = logger.Nop()
	if c.debug {
		// Debug output goes to stderr so it never interleaves with a
		// streaming answer on stdout.
		c.log = logger.New(logger.WithDebug(true), logger.WithPretty(true), logger.WithWriter(os.Stderr))
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	mgr, err := credentials.NewManager(c.configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}
	apiKey, err := mgr.Resolve()
	if err != nil {
		return err
	}

	s := c.buildSession(ctx, apiKey)
	defer s.Close()

	go c.watchConfig(ctx, cmd, s, mgr)

	if len(args) > 0 {
		return c.runOnce(ctx, s, strings.Join(args, " "))
	}

	if c.tui {
		return c.runTUI(ctx, s)
	}

	return c.runLoop(ctx, s)
}

// runOnce asks a single message and exits, for scripted use.
func (c *ChatCommander) runOnce(ctx context.Context, s *session, message string) error {
	if err := c.sendAndPrint(ctx, s, message); err != nil {
		return err
	}

	if err := s.record(ctx); err != nil {
		c.log.Warn("recording conversation", slog.Any("error", err))
	}

	return c.finish(s)
}

// runLoop reads messages from stdin until EOF or /exit.
func (c *ChatCommander) runLoop(ctx context.Context, s *session) error {
	c.banner(s)

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print(userPrompt)
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if done := c.slash(ctx, s, input); done {
				break
			}
			continue
		}

		c.exchange(ctx, s, input)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Println()
	return c.finish(s)
}

// exchange runs one send, prints the reply, and records the result.
// Failures print a notice and leave the loop running; the transcript
// already carries the error message and stays retry-able.
func (c *ChatCommander) exchange(ctx context.Context, s *session, input string) {
	if err := c.sendAndPrint(ctx, s, input); err != nil {
		fmt.Fprintf(os.Stderr, "  %s %v\n", cliui.FailMark, err)
		fmt.Printf("  %s\n\n", cliui.DimStyle.Render("Type /retry to ask again."))
		return
	}

	if err := s.record(ctx); err != nil {
		c.log.Warn("recording conversation", slog.Any("error", err))
	}
	fmt.Println()
}

// sendAndPrint streams one reply to stdout. Streamed deltas print raw
// as they arrive; an answer that lands whole (stream off, degraded
// notice) renders through glamour instead.
func (c *ChatCommander) sendAndPrint(ctx context.Context, s *session, input string) error {
	fmt.Print(assistantPrompt)

	send := s.conv.Send
	if input == "" {
		send = func(ctx context.Context, _ string, onDelta rag.DeltaFunc) error {
			return s.conv.Retry(ctx, onDelta)
		}
	}

	err := send(ctx, input, func(text string, final bool) {
		if !final {
			fmt.Print(text)
			return
		}
		if text != "" {
			if rendered, rerr := cliui.RenderMarkdown(text); rerr == nil {
				fmt.Print("\n" + strings.TrimRight(rendered, "\n"))
			} else {
				fmt.Print(text)
			}
		}
		fmt.Println()
	})
	if err != nil {
		fmt.Println()
		return err
	}

	c.printReferences(s)
	return nil
}

// printReferences lists the documents cited by the latest answer.
func (c *ChatCommander) printReferences(s *session) {
	msgs := s.conv.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role != chat.RoleAssistant {
			continue
		}
		if names := referenceNames(msgs[i].References); len(names) > 0 {
			fmt.Printf("  %s\n", cliui.FaintStyle.Render("references: "+strings.Join(names, ", ")))
		}
		return
	}
}

// referenceNames collects the distinct document names cited by an
// answer, in citation order.
func referenceNames(refs []rag.Reference) []string {
	names := make([]string, 0, len(refs))
	seen := map[string]bool{}
	for _, ref := range refs {
		if ref.DocumentName == "" || seen[ref.DocumentName] {
			continue
		}
		seen[ref.DocumentName] = true
		names = append(names, ref.DocumentName)
	}
	return names
}

// slash handles a /command line. It returns true when the loop should
// end.
func (c *ChatCommander) slash(ctx context.Context, s *session, input string) bool {
	switch input {
	case "/exit", "/quit":
		return true

	case "/save":
		c.saveNote(s)

	case "/retry":
		c.exchange(ctx, s, "")

	case "/agents":
		c.listAgents(ctx, s)

	case "/help":
		fmt.Printf("  %s\n\n", cliui.DimStyle.Render("/save  /retry  /agents  /help  /exit"))

	default:
		fmt.Printf("  %s\n\n", cliui.DimStyle.Render("Unknown command. /help lists the commands."))
	}

	return false
}

// saveNote writes the transcript unless --no-save forbids it.
func (c *ChatCommander) saveNote(s *session) {
	if c.noSave {
		fmt.Printf("  %s\n\n", cliui.DimStyle.Render("Saving is off for this session (--no-save)."))
		return
	}

	path, err := s.writeNote()
	if err != nil {
		fmt.Fprintf(os.Stderr, "  %s %v\n\n", cliui.FailMark, err)
		return
	}

	fmt.Printf("  %s Saved %s\n\n", cliui.SuccessMark, cliui.NameStyle.Render(path))
}

// listAgents prints the assistants the service offers, marking the one
// in use.
func (c *ChatCommander) listAgents(ctx context.Context, s *session) {
	if s.client == nil {
		fmt.Printf("  %s\n\n", cliui.WarnStyle.Render(s.conv.State().Reason))
		return
	}

	agents, err := s.client.Agents(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "  %s listing assistants: %v\n\n", cliui.FailMark, err)
		return
	}

	current := s.conv.State().AssistantID
	for _, agent := range agents {
		marker := " "
		if agent.ID == current {
			marker = cliui.SuccessMark
		}
		fmt.Printf("  %s %s  %s\n",
			marker,
			cliui.NameStyle.Render(agent.ID),
			cliui.ValueStyle.Render(agent.Name),
		)
	}
	fmt.Println()
}

// finish applies the end-of-session save policy.
func (c *ChatCommander) finish(s *session) error {
	if !c.save || c.noSave || !s.hasContent() {
		return nil
	}

	path, err := s.writeNote()
	if err != nil {
		return fmt.Errorf("saving note: %w", err)
	}

	fmt.Printf("  %s Saved %s\n", cliui.SuccessMark, cliui.NameStyle.Render(path))
	return nil
}

// banner prints the session header for the interactive loop.
func (c *ChatCommander) banner(s *session) {
	fmt.Println()

	state := s.conv.State()
	if state.Live() {
		fmt.Printf("  %s Connected to %s\n", cliui.SuccessMark, cliui.NameStyle.Render(c.host))
		fmt.Printf("  %s %s   %s %s\n",
			cliui.KeyStyle.Render("Assistant:"),
			cliui.ValueStyle.Render(state.AssistantID),
			cliui.KeyStyle.Render("Model:"),
			cliui.ValueStyle.Render(c.model),
		)
	} else {
		fmt.Printf("  %s Degraded: %s\n", cliui.WarnStyle.Render("●"), cliui.DimStyle.Render(state.Reason))
	}

	for _, w := range s.warnings {
		fmt.Printf("  %s %s\n", cliui.WarnStyle.Render("!"), cliui.DimStyle.Render(w))
	}

	fmt.Printf("\n  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /help lists commands, /exit quits."))
}

// watchConfig rebuilds the conversation's client whenever config.toml
// changes, so a fixed host or key takes effect without restarting the
// loop. Flags set on the command line keep their precedence.
func (c *ChatCommander) watchConfig(ctx context.Context, cmd *cobra.Command, s *session, mgr *credentials.Manager) {
	cfger, err := config.NewConfiger(c.configDir)
	if err != nil {
		c.log.Warn("config watch unavailable", slog.Any("error", err))
		return
	}

	err = cfger.Watch(ctx, c.log, func(_ *config.Config) {
		v, err := config.InitViper(c.configDir)
		if err != nil {
			c.log.Warn("reloading config", slog.Any("error", err))
			return
		}
		config.BindRegisteredFlags(v, cmd, config.Flags, chatFlags)

		c.host = v.GetString("api.host")
		c.model = v.GetString("api.model")
		c.timeout = v.GetUint("api.timeout")

		apiKey, err := mgr.Resolve()
		if err != nil {
			c.log.Warn("resolving credentials", slog.Any("error", err))
			return
		}

		client, reason := c.buildClient(apiKey)
		if client == nil {
			s.client = nil
			s.conv.Degrade(reason)
			return
		}

		s.client = client
		s.conv.Rebuild(client)
		c.log.Info("service client rebuilt", slog.String("host", c.host))
	})
	if err != nil {
		c.log.Warn("config watch stopped", slog.Any("error", err))
	}
}
