// Command widgetpreview prints every state of the chat response widget, for
// checking styles without a backend.
package main

import (
	"flag"
	"fmt"

	"crawlchat/internal/api"
	"crawlchat/internal/widget"
)

const (
	bold  = "\033[1m"
	dim   = "\033[2m"
	reset = "\033[0m"
)

const sampleAnswer = "Pricing starts at **$20/month** for the Team plan.\n\n" +
	"- Unlimited seats\n- SSO on Enterprise only\n\n" +
	"```sh\ncurl https://example.com/pricing\n```"

func main() {
	width := flag.Int("width", 80, "render width")
	style := flag.String("style", widget.DefaultMarkdownStyle, "glamour style")
	flag.Parse()

	md := widget.NewMarkdown(*style)
	section := func(title string, r *widget.Response, live bool) {
		fmt.Println()
		fmt.Println(dim + "── " + title + " ──" + reset)
		fmt.Println()
		if live {
			fmt.Println(r.View(*width, "⣾"))
		} else {
			fmt.Println(r.Transcript(*width, false))
		}
	}

	fmt.Println()
	fmt.Println(bold + "═══ Response widget states ═══" + reset)

	r := widget.NewResponse(md)
	r.ShowLoading()
	section("Loading", r, true)

	r = widget.NewResponse(md)
	r.ShowCrawling("Analyzing content...", []string{"https://example.com/pricing", "https://example.com/docs/plans"})
	section("Crawling", r, true)

	r = widget.NewResponse(md)
	n := r.AppendReasoningStep(api.ReasoningStep{Index: 1, Title: "Searching web", Body: "Looking for the pricing page"})
	r.RevealReasoningStep(n, "Looking for the")
	section("Reasoning, mid-reveal", r, true)

	r.RevealReasoningStep(n, "Looking for the pricing page")
	n = r.AppendReasoningStep(api.ReasoningStep{Index: 2, Title: "Reading pricing", Body: "Comparing the Team and Enterprise plans"})
	r.RevealReasoningStep(n, "Comparing the Team and Enterprise plans")
	r.CompleteReasoning()
	r.UpdateContent(sampleAnswer)
	r.RenderSources([]api.Source{{URL: "https://example.com/pricing"}, {URL: "https://example.com/docs/plans"}})
	section("Answer, panels collapsed", r, false)

	r.ToggleReasoning()
	r.ToggleSources()
	section("Answer, panels expanded", r, false)

	r = widget.NewResponse(md)
	r.ShowError("Sorry, I encountered an error. Please try again.", "chat backend returned 502: bad gateway")
	section("Error", r, false)

	fmt.Println()
}
