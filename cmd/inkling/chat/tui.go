package chatcmder

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	bubbletea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"

	"github.com/inklingco/inkling/pkg/chat"
)

func init() {
	// Force TrueColor profile to fix lipgloss color detection issue
	// See: https://github.com/charmbracelet/lipgloss/issues/439
	renderer := lipgloss.NewRenderer(os.Stdout, termenv.WithProfile(termenv.TrueColor))
	renderer.SetColorProfile(termenv.TrueColor)
	lipgloss.SetDefaultRenderer(renderer)
}

const (
	// inputHeight is the height of the compose box in rows.
	inputHeight = 3

	// deltaBuffer sizes the delta channel. A full buffer blocks the
	// decoder until the view catches up, which keeps memory flat on
	// fast streams.
	deltaBuffer = 32
)

var (
	chatTitleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	chatUserStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("82"))
	chatAsstStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("111"))
	chatNoticeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	chatMutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	chatFaintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("237"))
	chatErrStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	chatOKStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("70"))
	chatLiveStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("70"))
	chatDegradedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	chatSpinStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
)

type chatKeyMap struct {
	Send    key.Binding
	Newline key.Binding
	Retry   key.Binding
	Save    key.Binding
	Scroll  key.Binding
	Quit    key.Binding
}

func (k chatKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Send, k.Newline, k.Retry, k.Save, k.Scroll, k.Quit}
}

func (k chatKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Send, k.Newline, k.Retry}, {k.Save, k.Scroll, k.Quit}}
}

func defaultChatKeyMap() chatKeyMap {
	return chatKeyMap{
		Send:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		Newline: key.NewBinding(key.WithKeys("alt+enter"), key.WithHelp("alt+enter", "newline")),
		Retry:   key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "retry")),
		Save:    key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save note")),
		Scroll:  key.NewBinding(key.WithKeys("pgup", "pgdown"), key.WithHelp("pgup/pgdn", "scroll")),
		Quit:    key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "quit")),
	}
}

// deltaMsg carries one streamed answer fragment into the update loop.
type deltaMsg struct {
	text  string
	final bool
}

// sendDoneMsg reports the outcome of a send once the exchange settles.
type sendDoneMsg struct {
	err error
}

// savedMsg reports the outcome of writing the transcript as a note.
type savedMsg struct {
	path string
	err  error
}

// statusMsg replaces the status line text.
type statusMsg string

type chatModel struct {
	ctx context.Context
	s   *session

	host   string
	noSave bool

	ta   textarea.Model
	vp   viewport.Model
	spin spinner.Model
	glam *glamour.TermRenderer

	// deltas carries fragments from the send goroutine. One reader is
	// parked on it at all times; see waitForDelta.
	deltas chan deltaMsg

	width  int
	height int

	// sending is true while a send command runs; answering is true
	// until its final delta lands, so the tail message renders raw.
	sending   bool
	answering bool

	status string

	keys chatKeyMap
	help help.Model
}

func (c *ChatCommander) runTUI(ctx context.Context, s *session) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := newChatModel(ctx, c, s)

	program := bubbletea.NewProgram(model,
		bubbletea.WithContext(ctx),
		bubbletea.WithAltScreen(),
	)
	if _, err := program.Run(); err != nil {
		return err
	}

	return c.finish(s)
}

func newChatModel(ctx context.Context, c *ChatCommander, s *session) chatModel {
	ta := textarea.New()
	ta.Placeholder = "Ask the assistant..."
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(inputHeight)
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter"))
	ta.Focus()

	status := ""
	if len(s.warnings) > 0 {
		status = chatNoticeStyle.Render(s.warnings[0])
	}

	return chatModel{
		ctx:    ctx,
		s:      s,
		host:   c.host,
		noSave: c.noSave,
		ta:     ta,
		vp:     viewport.New(0, 0),
		spin:   spinner.New(spinner.WithSpinner(spinner.MiniDot), spinner.WithStyle(chatSpinStyle)),
		deltas: make(chan deltaMsg, deltaBuffer),
		status: status,
		keys:   defaultChatKeyMap(),
		help:   help.New(),
	}
}

func (m chatModel) Init() bubbletea.Cmd {
	return bubbletea.Batch(textarea.Blink, m.waitForDelta())
}

// waitForDelta parks a reader on the delta channel and forwards the
// next fragment into the update loop. It is armed once at Init and
// re-armed after every fragment, so exactly one reader waits at all
// times regardless of how sends come and go.
func (m chatModel) waitForDelta() bubbletea.Cmd {
	ch, ctx := m.deltas, m.ctx
	return func() bubbletea.Msg {
		select {
		case d := <-ch:
			return d
		case <-ctx.Done():
			return nil
		}
	}
}

// sendCmd runs one exchange off the update loop. Empty text retries the
// last user message instead of sending a new one.
func (m chatModel) sendCmd(text string) bubbletea.Cmd {
	conv, ctx, ch := m.s.conv, m.ctx, m.deltas
	return func() bubbletea.Msg {
		onDelta := func(t string, final bool) {
			select {
			case ch <- deltaMsg{text: t, final: final}:
			case <-ctx.Done():
			}
		}

		var err error
		if text == "" {
			err = conv.Retry(ctx, onDelta)
		} else {
			err = conv.Send(ctx, text, onDelta)
		}
		return sendDoneMsg{err: err}
	}
}

// recordCmd persists the settled exchange to history and the search
// index without blocking the view.
func (m chatModel) recordCmd() bubbletea.Cmd {
	s, ctx := m.s, m.ctx
	return func() bubbletea.Msg {
		if err := s.record(ctx); err != nil {
			return statusMsg("history: " + err.Error())
		}
		return nil
	}
}

func (m chatModel) saveCmd() bubbletea.Cmd {
	s := m.s
	return func() bubbletea.Msg {
		path, err := s.writeNote()
		return savedMsg{path: path, err: err}
	}
}

func (m chatModel) Update(msg bubbletea.Msg) (bubbletea.Model, bubbletea.Cmd) {
	switch msg := msg.(type) {
	case bubbletea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ta.SetWidth(msg.Width)
		m.vp.Width = msg.Width
		m.vp.Height = max(msg.Height-m.ta.Height()-3, 3)
		if r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(min(msg.Width-2, 100)),
		); err == nil {
			m.glam = r
		}
		m.refresh()
		return m, nil

	case deltaMsg:
		if msg.final {
			m.answering = false
		}
		m.refresh()
		return m, m.waitForDelta()

	case sendDoneMsg:
		m.sending = false
		if msg.err != nil {
			m.answering = false
			m.status = chatErrStyle.Render(msg.err.Error()) + chatMutedStyle.Render("  ctrl+r retries")
			m.refresh()
			return m, nil
		}
		m.refresh()
		return m, m.recordCmd()

	case savedMsg:
		if msg.err != nil {
			m.status = chatErrStyle.Render("save failed: " + msg.err.Error())
		} else {
			m.status = chatOKStyle.Render("saved " + msg.path)
		}
		return m, nil

	case statusMsg:
		m.status = chatErrStyle.Render(string(msg))
		return m, nil

	case spinner.TickMsg:
		if !m.sending {
			return m, nil
		}
		var cmd bubbletea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		m.refresh()
		return m, cmd

	case bubbletea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd bubbletea.Cmd
	m.ta, cmd = m.ta.Update(msg)
	return m, cmd
}

func (m chatModel) handleKey(msg bubbletea.KeyMsg) (bubbletea.Model, bubbletea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, bubbletea.Quit

	case key.Matches(msg, m.keys.Send):
		text := strings.TrimSpace(m.ta.Value())
		if m.sending || text == "" {
			return m, nil
		}
		m.ta.Reset()
		m.sending = true
		m.answering = true
		m.status = ""
		m.refresh()
		return m, bubbletea.Batch(m.sendCmd(text), m.spin.Tick)

	case key.Matches(msg, m.keys.Retry):
		if m.sending {
			return m, nil
		}
		m.sending = true
		m.answering = true
		m.status = ""
		return m, bubbletea.Batch(m.sendCmd(""), m.spin.Tick)

	case key.Matches(msg, m.keys.Save):
		if m.noSave {
			m.status = chatMutedStyle.Render("saving is off for this session (--no-save)")
			return m, nil
		}
		return m, m.saveCmd()

	case key.Matches(msg, m.keys.Scroll):
		var cmd bubbletea.Cmd
		m.vp, cmd = m.vp.Update(msg)
		return m, cmd
	}

	var cmd bubbletea.Cmd
	m.ta, cmd = m.ta.Update(msg)
	return m, cmd
}

// refresh rebuilds the viewport from the transcript, keeping the tail
// in view while an answer streams or the user already sat at the
// bottom.
func (m *chatModel) refresh() {
	atBottom := m.vp.AtBottom()
	m.vp.SetContent(m.renderTranscript())
	if atBottom || m.answering {
		m.vp.GotoBottom()
	}
}

func (m chatModel) View() string {
	if m.width == 0 {
		return ""
	}

	return strings.Join([]string{
		m.viewHeader(),
		m.vp.View(),
		m.ta.View(),
		m.viewStatus(),
		m.help.View(m.keys),
	}, "\n")
}

func (m chatModel) viewHeader() string {
	state := m.s.conv.State()

	left := chatTitleStyle.Render("inkling")
	var right string
	if state.Live() {
		right = chatLiveStyle.Render("● ") + chatMutedStyle.Render(fmt.Sprintf("%s · %s", m.host, state.AssistantID))
	} else {
		right = chatDegradedStyle.Render("● ") + chatMutedStyle.Render(state.Reason)
	}

	return ansi.Truncate(left+"  "+right, m.width, "…")
}

func (m chatModel) viewStatus() string {
	if m.status == "" {
		return chatFaintStyle.Render(strings.Repeat("─", max(m.width, 1)))
	}
	return ansi.Truncate(m.status, m.width, "…")
}

// renderTranscript lays out the conversation for the viewport. Settled
// assistant answers render as markdown; the one still streaming stays
// raw so fragments land without re-rendering the whole page.
func (m chatModel) renderTranscript() string {
	msgs := m.s.conv.Messages()
	if len(msgs) == 0 {
		return chatMutedStyle.Render("No messages yet. Type below and press enter to send.")
	}

	var b strings.Builder
	for i, msg := range msgs {
		if i > 0 {
			b.WriteString("\n")
		}

		switch {
		case msg.Role == chat.RoleUser:
			b.WriteString(chatUserStyle.Render("you") + "\n")
			b.WriteString(msg.Content + "\n")

		case msg.Role == chat.RoleSystem:
			b.WriteString(chatNoticeStyle.Render(msg.Content) + "\n")

		case msg.Temporary:
			b.WriteString(chatAsstStyle.Render("assistant") + "\n")
			b.WriteString(m.spin.View() + chatMutedStyle.Render(" thinking") + "\n")

		case m.answering && i == len(msgs)-1:
			b.WriteString(chatAsstStyle.Render("assistant") + "\n")
			b.WriteString(msg.Content + "\n")

		default:
			b.WriteString(chatAsstStyle.Render("assistant") + "\n")
			b.WriteString(m.markdown(msg.Content) + "\n")
			if msg.Incomplete {
				b.WriteString(chatErrStyle.Render("· response interrupted") + "\n")
			}
			if names := referenceNames(msg.References); len(names) > 0 {
				b.WriteString(chatFaintStyle.Render("references: "+strings.Join(names, ", ")) + "\n")
			}
		}
	}

	return b.String()
}

func (m chatModel) markdown(content string) string {
	if m.glam == nil {
		return content
	}

	out, err := m.glam.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(out, "\n")
}
