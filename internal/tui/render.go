package tui

import (
	"fmt"
	"strings"

	"crawlchat/internal/config"
)

// greeting is the assistant's opening line, shown on start and after /clear.
const greeting = "Hi! I'm your AI assistant. How can I help you today?"

// ─── Welcome Screen ─────────────────────────────────────────────────────────

const logoArt = `
 ╭──────────╮
 │ ●  ●  ●  │
 ╰──╮───────╯
    ╰─`

func renderWelcome(version string, cfg *config.Config, width int) string {
	company := config.DefaultCompanyName
	endpoint := ""
	if cfg != nil {
		if cfg.CompanyName != "" {
			company = cfg.CompanyName
		}
		endpoint = cfg.Endpoint()
	}

	titleLine := logoTitleStyle.Render(company) + " " + versionStyle.Render("· crawlchat v"+version)

	var infoLine string
	if endpoint == "" {
		infoLine = welcomeHintStyle.Render("Run `crawlchat set api_url <url>` to get started")
	} else {
		limit := max(min(width, 80)-4, 20)
		infoLine = welcomeInfoLabel.Render(truncateMiddle(endpoint, limit))
	}

	return fmt.Sprintf("\n%s\n\n%s\n%s\n%s\n", renderLogo(), titleLine, infoLine, welcomeHintStyle.Render("Type a question, or ? for help"))
}

func renderLogo() string {
	lines := strings.Split(strings.Trim(logoArt, "\n"), "\n")
	for i, line := range lines {
		var b strings.Builder
		for _, r := range line {
			switch r {
			case '●':
				b.WriteString(logoDotStyle.Render(string(r)))
			case ' ':
				b.WriteRune(r)
			default:
				b.WriteString(logoBodyStyle.Render(string(r)))
			}
		}
		lines[i] = b.String()
	}
	return strings.Join(lines, "\n")
}

// renderGreeting draws the greeting as an assistant message.
func renderGreeting(company string) string {
	if company == "" {
		company = config.DefaultCompanyName
	}
	return "\n" + assistantNameStyle.Render("  "+company) + "\n  " + greeting + "\n"
}

// truncateMiddle shortens s to n runes, keeping both ends.
func truncateMiddle(s string, n int) string {
	r := []rune(s)
	if len(r) <= n || n < 5 {
		return s
	}
	head := (n - 3) / 2
	tail := n - 3 - head
	return string(r[:head]) + "..." + string(r[len(r)-tail:])
}
