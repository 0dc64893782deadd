package tui

import (
	"fmt"
	"strings"

	"crawlchat/internal/config"

	tea "github.com/charmbracelet/bubbletea"
)

// ─── Input dispatcher ───────────────────────────────────────────────────────

func (m model) dispatchInput(input string) (tea.Model, tea.Cmd) {
	if input == "?" {
		return m.cmdHelp()
	}
	if strings.HasPrefix(input, "/") {
		return m.dispatchCommand(input)
	}
	return m.cmdAsk(input)
}

func (m model) dispatchCommand(input string) (tea.Model, tea.Cmd) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return m, nil
	}

	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "/help", "/h":
		return m.cmdHelp()
	case "/clear":
		return m.cmdClear()
	case "/config":
		return m.cmdConfig()
	case "/session":
		return m.cmdSession()
	case "/reasoning":
		return m.cmdReasoning()
	case "/sources":
		return m.cmdSources()
	case "/urls":
		return m.cmdURLs(args)
	case "/quit", "/exit", "/q":
		return m, tea.Quit
	default:
		return m, tea.Println(errorMsgStyle.Render(fmt.Sprintf("  ✗ Unknown command: %s. Type /help", cmd)))
	}
}

// ─── /help ──────────────────────────────────────────────────────────────────

func (m model) cmdHelp() (tea.Model, tea.Cmd) {
	row := func(key, desc string) tea.Cmd {
		return tea.Println("  " + hintKeyStyle.Render(fmt.Sprintf("%-22s", key)) + dimStyle.Render(desc))
	}

	return m, tea.Sequence(
		tea.Println(""),
		tea.Println(dimStyle.Render("  Commands:")),
		tea.Println(""),
		row("/clear", "Start a new conversation"),
		row("/config", "Show current configuration"),
		row("/session", "Show the session ID"),
		row("/reasoning", "Show the last answer's reasoning steps"),
		row("/sources", "Show the last answer's sources"),
		row("/urls [url ...]", "Show or set the pages to crawl"),
		row("/quit", "Exit"),
		tea.Println(""),
		tea.Println(dimStyle.Render("  Esc cancels an answer in progress. ↑/↓ browse history.")),
		tea.Println(dimStyle.Render("  Or just type a question.")),
		tea.Println(""),
	)
}

// ─── /clear ─────────────────────────────────────────────────────────────────

// cmdClear starts a new conversation: a fresh session ID, no remembered
// answer and, when enabled, the greeting again.
func (m model) cmdClear() (tea.Model, tea.Cmd) {
	m.session.Reset()
	m.last = nil

	cmds := []tea.Cmd{tea.ClearScreen}
	if m.cfg.ShowWelcome {
		cmds = append(cmds, tea.Println(renderGreeting(m.cfg.CompanyName)))
	}
	return m, tea.Sequence(cmds...)
}

// ─── /config ────────────────────────────────────────────────────────────────

func (m model) cmdConfig() (tea.Model, tea.Cmd) {
	val := func(s string) string {
		if s == "" {
			return dimStyle.Render("(not set)")
		}
		return s
	}
	path, err := m.cfg.Path()
	if err != nil {
		path = dimStyle.Render("(unknown)")
	}

	return m, tea.Sequence(
		tea.Println(""),
		tea.Println(dimStyle.Render("  Configuration:")),
		tea.Println(fmt.Sprintf("    Profile:      %s", config.ProfileName(m.cfg.Profile))),
		tea.Println(fmt.Sprintf("    Endpoint:     %s", val(m.cfg.Endpoint()))),
		tea.Println(fmt.Sprintf("    API URL:      %s", val(m.cfg.APIURL))),
		tea.Println(fmt.Sprintf("    Proxy URL:    %s", val(m.cfg.ProxyURL))),
		tea.Println(fmt.Sprintf("    Company:      %s", val(m.cfg.CompanyName))),
		tea.Println(fmt.Sprintf("    URLs:         %s", val(strings.Join(m.cfg.URLs, ", ")))),
		tea.Println(fmt.Sprintf("    File:         %s", path)),
		tea.Println(""),
	)
}

// ─── /session ───────────────────────────────────────────────────────────────

func (m model) cmdSession() (tea.Model, tea.Cmd) {
	return m, tea.Println(dimStyle.Render("  Session: ") + m.session.ID())
}

// ─── /reasoning, /sources ───────────────────────────────────────────────────

func (m model) cmdReasoning() (tea.Model, tea.Cmd) {
	if m.last == nil || m.last.Reasoning == nil {
		return m, tea.Println(warnMsgStyle.Render("  ! The last answer had no reasoning steps."))
	}
	return m, tea.Println(m.last.ExpandedReasoning(m.width))
}

func (m model) cmdSources() (tea.Model, tea.Cmd) {
	if m.last == nil || m.last.Sources == nil {
		return m, tea.Println(warnMsgStyle.Render("  ! The last answer cited no sources."))
	}
	return m, tea.Println(m.last.ExpandedSources())
}

// ─── /urls ──────────────────────────────────────────────────────────────────

// cmdURLs lists the crawl URLs, or replaces them for this run when given
// arguments. "/urls none" clears them. Use `crawlchat set urls` to persist.
func (m model) cmdURLs(args []string) (tea.Model, tea.Cmd) {
	if len(args) > 0 {
		cfg := *m.cfg
		if len(args) == 1 && args[0] == "none" {
			cfg.URLs = nil
		} else {
			cfg.URLs = args
		}
		m.cfg = &cfg
		return m, tea.Println(successMsgStyle.Render(fmt.Sprintf("  ✓ Crawling %d %s", len(cfg.URLs), plural(len(cfg.URLs), "URL", "URLs"))))
	}

	if len(m.cfg.URLs) == 0 {
		return m, tea.Println(dimStyle.Render("  No URLs configured. Use /urls <url> ... to add some."))
	}
	cmds := []tea.Cmd{tea.Println(dimStyle.Render("  URLs:"))}
	for _, u := range m.cfg.URLs {
		cmds = append(cmds, tea.Println("    • "+u))
	}
	return m, tea.Sequence(cmds...)
}

// ─── Ask ────────────────────────────────────────────────────────────────────

func (m model) cmdAsk(query string) (tea.Model, tea.Cmd) {
	if m.client == nil {
		pf := ""
		if m.cfg.Profile != "" {
			pf = " --profile " + m.cfg.Profile
		}
		return m, tea.Println(errorMsgStyle.Render("  ✗ No chat endpoint configured. Run: crawlchat" + pf + " set api_url <url>"))
	}
	if m.turn != nil {
		return m, nil
	}
	return m.startTurn(query)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
