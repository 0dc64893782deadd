package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"crawlchat/internal/api"
	"crawlchat/internal/config"
	"crawlchat/internal/coordinator"
	"crawlchat/internal/logging"
	"crawlchat/internal/widget"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ─── App mode ───────────────────────────────────────────────────────────────

type appMode int

const (
	modeIdle appMode = iota
	modeStreaming
)

const maxHistory = 1000

// ─── Slash command registry ─────────────────────────────────────────────────

type slashCmd struct {
	name string
	desc string
}

var slashCommands = []slashCmd{
	{"/clear", "Start a new conversation"},
	{"/config", "Show current configuration"},
	{"/help", "Show all commands"},
	{"/quit", "Exit"},
	{"/reasoning", "Show the last answer's reasoning"},
	{"/session", "Show the session ID"},
	{"/sources", "Show the last answer's sources"},
	{"/urls", "Show or set the pages to crawl"},
}

// ─── Turn ───────────────────────────────────────────────────────────────────

// turn is one question and its streamed answer. Everything the answer needs
// lives here, so a new turn never sees state from the previous one.
type turn struct {
	id     int
	query  string
	ch     <-chan tea.Msg
	cancel context.CancelFunc
	resp   *widget.Response
	coord  *coordinator.Coordinator
	sched  *tickScheduler
}

// ─── Model ──────────────────────────────────────────────────────────────────

type model struct {
	width  int
	height int

	input   textinput.Model
	spinner spinner.Model

	mode    appMode
	cfg     *config.Config
	client  api.ChatAPI
	session *api.Session
	md      *widget.Markdown
	version string

	// wordDelay is the reveal pace; nil means the coordinator default.
	wordDelay func() time.Duration

	turn    *turn
	turnSeq int
	last    *widget.Response

	ready        bool
	cmdMenuIdx   int
	cmdMenuOpen  bool
	lastInputVal string

	history      []string
	historyIdx   int
	historySaved string
}

// newModel builds the TUI state. client may be nil when the config has no
// usable endpoint; questions are then refused with a hint.
func newModel(version string, cfg *config.Config, client api.ChatAPI) model {
	ti := textinput.New()
	ti.Placeholder = "Type your message..."
	ti.Focus()
	ti.CharLimit = 4096
	ti.Prompt = "❯ "
	ti.PromptStyle = promptSymbol
	ti.Cursor.Style = lipgloss.NewStyle().Foreground(colorOrange)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(colorOrange)

	if cfg == nil {
		cfg = &config.Config{CompanyName: config.DefaultCompanyName, ShowWelcome: true}
	}

	return model{
		input:      ti,
		spinner:    sp,
		version:    version,
		cfg:        cfg,
		client:     client,
		session:    api.NewSession(),
		md:         widget.NewMarkdown(widget.DefaultMarkdownStyle),
		mode:       modeIdle,
		history:    make([]string, 0),
		historyIdx: -1,
	}
}

// ─── Init ───────────────────────────────────────────────────────────────────

func (m model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
	)
}

// ─── Update ─────────────────────────────────────────────────────────────────

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = m.width - 6

		if !m.ready {
			m.ready = true
			cmds = append(cmds, tea.Println(renderWelcome(m.version, m.cfg, m.width)))
			if m.cfg.ShowWelcome {
				cmds = append(cmds, tea.Println(renderGreeting(m.cfg.CompanyName)))
			}
			return m, tea.Sequence(cmds...)
		}

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			if m.mode == modeStreaming {
				return m.cancelTurn()
			}
			return m, tea.Quit

		case tea.KeyEsc:
			if m.mode == modeStreaming {
				return m.cancelTurn()
			}
			if m.cmdMenuOpen {
				m.cmdMenuOpen = false
				m.cmdMenuIdx = 0
				return m, nil
			}

		case tea.KeyUp:
			if m.mode == modeIdle && m.moveUp() {
				return m, nil
			}

		case tea.KeyDown:
			if m.mode == modeIdle && m.moveDown() {
				return m, nil
			}

		case tea.KeyTab:
			if m.mode == modeIdle && m.cmdMenuOpen {
				m.pickMenuItem(false)
				return m, nil
			}

		case tea.KeyEnter:
			if m.mode == modeStreaming {
				return m, nil
			}
			if m.cmdMenuOpen && m.pickMenuItem(true) {
				return m, nil
			}

			value := strings.TrimSpace(m.input.Value())
			if value == "" {
				return m, nil
			}
			m.remember(value)
			m.input.SetValue("")
			m.cmdMenuOpen = false
			m.cmdMenuIdx = 0
			return m.dispatchInput(value)
		}

	// ── Turn messages ─────────────────────────────────────────────────
	case fragmentMsg:
		if t := m.turn; t != nil && msg.turn == t.id {
			t.coord.Handle(msg.f)
			cmds = append(cmds, t.sched.drain()...)
			cmds = append(cmds, waitForStream(t.ch, t.id))
		}
		return m.settle(cmds)

	case streamClosedMsg:
		if t := m.turn; t != nil && msg.turn == t.id {
			if msg.err != nil {
				logging.Warn("stream for turn %d failed: %v", t.id, msg.err)
			}
			t.coord.Close(msg.err)
			cmds = append(cmds, t.sched.drain()...)
		}
		return m.settle(cmds)

	case revealTickMsg:
		if t := m.turn; t != nil && msg.turn == t.id {
			t.sched.fire(msg.id)
			cmds = append(cmds, t.sched.drain()...)
		}
		return m.settle(cmds)
	}

	var cmd tea.Cmd

	if m.mode != modeStreaming {
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	m.spinner, cmd = m.spinner.Update(msg)
	cmds = append(cmds, cmd)

	m.trackInput()

	return m, tea.Batch(cmds...)
}

// ─── Turn lifecycle ─────────────────────────────────────────────────────────

// startTurn sends query and wires its answer into a fresh coordinator.
func (m model) startTurn(query string) (tea.Model, tea.Cmd) {
	m.turnSeq++
	id := m.turnSeq

	resp := widget.NewResponse(m.md)
	sched := newTickScheduler(id)
	coord := coordinator.New(resp, sched)
	if m.wordDelay != nil {
		coord.WithWordDelay(m.wordDelay)
	}
	coord.Begin()

	ctx, cancel := context.WithCancel(context.Background())
	req := m.client.NewChatRequest(query, m.session.ID())
	req.URLs = append([]string{}, m.cfg.URLs...)
	ch, wait := beginStream(ctx, m.client, req, id)

	m.turn = &turn{
		id:     id,
		query:  query,
		ch:     ch,
		cancel: cancel,
		resp:   resp,
		coord:  coord,
		sched:  sched,
	}
	m.mode = modeStreaming
	logging.Debug("turn %d started: session=%s", id, m.session.ID())

	return m, tea.Batch(
		tea.Println("\n"+userPromptStyle.Render("  ❯ "+query)+"\n"),
		wait,
		m.spinner.Tick,
	)
}

func (m model) cancelTurn() (tea.Model, tea.Cmd) {
	if m.turn == nil {
		return m, nil
	}
	m.turn.cancel()
	m.turn.coord.Cancel()
	return m.settle(nil)
}

// settle finishes the active turn once its coordinator is done.
func (m model) settle(cmds []tea.Cmd) (tea.Model, tea.Cmd) {
	if m.turn != nil && m.turn.coord.Finished() {
		cmds = append(cmds, m.finishTurn())
	}
	return m, tea.Batch(cmds...)
}

// finishTurn moves the answer into scrollback and re-enables input.
func (m *model) finishTurn() tea.Cmd {
	t := m.turn
	m.turn = nil
	m.mode = modeIdle
	t.cancel()
	t.sched.stopAll()
	m.last = t.resp

	var prints []tea.Cmd
	if out := t.resp.Transcript(m.width, false); out != "" {
		prints = append(prints, tea.Println(out))
	}
	if errors.Is(t.coord.Err(), coordinator.ErrCancelled) {
		prints = append(prints, tea.Println(warnMsgStyle.Render("  ! Response cancelled.")))
	}
	if hint := expandHint(t.resp); hint != "" {
		prints = append(prints, tea.Println(dimStyle.Render(hint)))
	}
	prints = append(prints, tea.Println(""))
	return tea.Sequence(prints...)
}

func expandHint(r *widget.Response) string {
	var cmds []string
	if r.Reasoning != nil {
		cmds = append(cmds, "/reasoning")
	}
	if r.Sources != nil {
		cmds = append(cmds, "/sources")
	}
	if len(cmds) == 0 {
		return ""
	}
	return "  " + strings.Join(cmds, " or ") + " to expand"
}

// ─── View ───────────────────────────────────────────────────────────────────
//
// Inline mode: finished output is printed above with tea.Println. View()
// holds only the live answer, the input line and the hint bar.

func (m model) View() string {
	if !m.ready {
		return ""
	}

	var s strings.Builder

	if m.mode == modeStreaming && m.turn != nil {
		if live := m.turn.resp.View(m.width, m.spinner.View()); live != "" {
			s.WriteString(live)
			s.WriteString("\n\n")
		}
		s.WriteString(dimStyle.Render("  Waiting for the answer to finish..."))
	} else {
		s.WriteString(m.input.View())
	}
	s.WriteString("\n")

	sepWidth := min(m.width, 80)
	if sepWidth < 20 {
		sepWidth = 20
	}
	s.WriteString(separatorStyle.Render(strings.Repeat("─", sepWidth)))
	s.WriteString("\n")

	s.WriteString(m.renderHints())

	return s.String()
}

func (m model) renderHints() string {
	if m.mode == modeStreaming {
		return hintBarStyle.Render("  Esc cancel")
	}
	if m.cmdMenuOpen {
		if matches := matchCommands(m.input.Value()); len(matches) > 0 {
			return m.renderCommandMenu(matches)
		}
	}
	return hintBarStyle.Render("  ? for help")
}

func (m model) renderCommandMenu(matches []slashCmd) string {
	maxLen := 0
	for _, c := range matches {
		maxLen = max(maxLen, len(c.name))
	}

	var lines []string
	for i, c := range matches {
		padded := c.name + strings.Repeat(" ", maxLen-len(c.name))
		if i == m.cmdMenuIdx {
			lines = append(lines, "  "+cmdSelectedNameStyle.Render(padded)+"  "+cmdSelectedDescStyle.Render(c.desc))
		} else {
			lines = append(lines, "  "+cmdNameStyle.Render(padded)+"  "+cmdDescStyle.Render(c.desc))
		}
	}
	lines = append(lines, hintBarStyle.Render("  ↑↓ navigate  Tab/Enter select"))
	return strings.Join(lines, "\n")
}

// matchCommands returns the slash commands starting with prefix.
func matchCommands(prefix string) []slashCmd {
	prefix = strings.ToLower(prefix)
	if prefix == "/" {
		return slashCommands
	}
	var matches []slashCmd
	for _, c := range slashCommands {
		if strings.HasPrefix(c.name, prefix) {
			matches = append(matches, c)
		}
	}
	return matches
}

// ─── Input helpers ──────────────────────────────────────────────────────────

// moveUp walks the command menu or, with the menu closed, the history.
func (m *model) moveUp() bool {
	if m.cmdMenuOpen {
		matches := matchCommands(m.input.Value())
		if len(matches) == 0 {
			return false
		}
		m.cmdMenuIdx--
		if m.cmdMenuIdx < 0 {
			m.cmdMenuIdx = len(matches) - 1
		}
		return true
	}
	if len(m.history) == 0 {
		return false
	}
	if m.historyIdx == -1 {
		m.historySaved = m.input.Value()
		m.historyIdx = len(m.history) - 1
	} else if m.historyIdx > 0 {
		m.historyIdx--
	}
	m.input.SetValue(m.history[m.historyIdx])
	m.input.CursorEnd()
	m.lastInputVal = m.input.Value()
	return true
}

func (m *model) moveDown() bool {
	if m.cmdMenuOpen {
		matches := matchCommands(m.input.Value())
		if len(matches) == 0 {
			return false
		}
		m.cmdMenuIdx = (m.cmdMenuIdx + 1) % len(matches)
		return true
	}
	if m.historyIdx == -1 {
		return false
	}
	m.historyIdx++
	if m.historyIdx >= len(m.history) {
		m.historyIdx = -1
		m.input.SetValue(m.historySaved)
		m.historySaved = ""
	} else {
		m.input.SetValue(m.history[m.historyIdx])
	}
	m.input.CursorEnd()
	m.lastInputVal = m.input.Value()
	return true
}

// pickMenuItem completes the input with the highlighted command. With
// requireSelection set, nothing happens unless an item is highlighted.
func (m *model) pickMenuItem(requireSelection bool) bool {
	matches := matchCommands(m.input.Value())
	if len(matches) == 0 {
		return false
	}
	idx := m.cmdMenuIdx
	if idx < 0 || idx >= len(matches) {
		if requireSelection {
			return false
		}
		idx = 0
	}
	if requireSelection && strings.TrimSpace(m.input.Value()) == matches[idx].name {
		return false
	}
	m.input.SetValue(matches[idx].name + " ")
	m.input.CursorEnd()
	m.lastInputVal = m.input.Value()
	m.cmdMenuOpen = false
	m.cmdMenuIdx = 0
	return true
}

func (m *model) remember(value string) {
	if len(m.history) == 0 || m.history[len(m.history)-1] != value {
		m.history = append(m.history, value)
		if len(m.history) > maxHistory {
			m.history = m.history[len(m.history)-maxHistory:]
		}
	}
	m.historyIdx = -1
	m.historySaved = ""
}

// trackInput opens the command menu while the input starts with "/" and
// leaves history mode once the user edits a recalled entry.
func (m *model) trackInput() {
	val := m.input.Value()
	if val == m.lastInputVal {
		return
	}
	m.lastInputVal = val
	if m.historyIdx != -1 && m.historyIdx < len(m.history) && m.history[m.historyIdx] != val {
		m.historyIdx = -1
		m.historySaved = ""
	}
	m.cmdMenuOpen = strings.HasPrefix(val, "/") && !strings.Contains(val, " ")
	m.cmdMenuIdx = 0
}
