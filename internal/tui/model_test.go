package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"crawlchat/internal/api"
	"crawlchat/internal/config"
	"crawlchat/internal/coordinator"

	tea "github.com/charmbracelet/bubbletea"
)

// fakeChat replays a scripted stream and records the request it was given.
type fakeChat struct {
	mu        sync.Mutex
	fragments []api.Fragment
	err       error
	block     bool
	got       []api.ChatRequest
}

func (f *fakeChat) NewChatRequest(query, sessionID string) api.ChatRequest {
	return api.ChatRequest{Query: query, SessionID: sessionID, CompanyName: "Test Co"}
}

func (f *fakeChat) ChatStream(ctx context.Context, req api.ChatRequest, cb api.FragmentCallback) error {
	f.mu.Lock()
	f.got = append(f.got, req)
	f.mu.Unlock()

	for _, fr := range f.fragments {
		cb(fr)
	}
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return f.err
}

func (f *fakeChat) Endpoint() string { return "http://chat.test/api" }

func (f *fakeChat) requests() []api.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]api.ChatRequest(nil), f.got...)
}

var _ api.ChatAPI = (*fakeChat)(nil)

func newTestModel(client api.ChatAPI) model {
	cfg := &config.Config{
		APIURL:      "http://chat.test/api",
		CompanyName: "Test Co",
		ShowWelcome: true,
		URLs:        []string{"https://docs.example.com"},
	}
	m := newModel("test", cfg, client)
	m.wordDelay = func() time.Duration { return time.Millisecond }
	m.ready = true
	m.width = 80
	m.height = 24
	return m
}

func update(t *testing.T, m model, msg tea.Msg) model {
	t.Helper()
	result, _ := m.Update(msg)
	return result.(model)
}

// fireAll runs pending reveal ticks in order until none are left.
func fireAll(t *testing.T, m model) model {
	t.Helper()
	for i := 0; i < 1000; i++ {
		if m.turn == nil || m.turn.sched.live() == 0 {
			return m
		}
		next := -1
		for id := range m.turn.sched.pending {
			if next == -1 || id < next {
				next = id
			}
		}
		m = update(t, m, revealTickMsg{turn: m.turn.id, id: next})
	}
	t.Fatal("reveal ticks never ran out")
	return m
}

func startTurn(t *testing.T, m model, query string) model {
	t.Helper()
	result, _ := m.startTurn(query)
	m = result.(model)
	if m.turn == nil {
		t.Fatal("startTurn did not create a turn")
	}
	return m
}

// ─── Scheduler ──────────────────────────────────────────────────────────────

func TestTickScheduler(t *testing.T) {
	s := newTickScheduler(3)
	ran := 0
	timer := s.AfterFunc(time.Millisecond, func() { ran++ })

	cmds := s.drain()
	if len(cmds) != 1 {
		t.Fatalf("drain returned %d commands, want 1", len(cmds))
	}
	if len(s.drain()) != 0 {
		t.Error("second drain should be empty")
	}

	msg := cmds[0]()
	tick, ok := msg.(revealTickMsg)
	if !ok {
		t.Fatalf("tick produced %T, want revealTickMsg", msg)
	}
	if tick.turn != 3 || tick.id != 1 {
		t.Errorf("tick = %+v, want turn 3 id 1", tick)
	}

	s.fire(tick.id)
	s.fire(tick.id)
	if ran != 1 {
		t.Errorf("callback ran %d times, want 1", ran)
	}
	if timer.Stop() {
		t.Error("Stop after fire should report false")
	}
}

func TestTickSchedulerStop(t *testing.T) {
	s := newTickScheduler(1)
	ran := false
	timer := s.AfterFunc(time.Millisecond, func() { ran = true })

	if !timer.Stop() {
		t.Error("first Stop should report true")
	}
	if timer.Stop() {
		t.Error("second Stop should report false")
	}
	s.fire(1)
	if ran {
		t.Error("stopped callback ran")
	}

	s.AfterFunc(time.Millisecond, func() { ran = true })
	s.stopAll()
	if s.live() != 0 || len(s.drain()) != 0 {
		t.Error("stopAll should drop pending callbacks and queued ticks")
	}
	s.fire(2)
	if ran {
		t.Error("callback ran after stopAll")
	}
}

// ─── Stream command ─────────────────────────────────────────────────────────

func TestBeginStream(t *testing.T) {
	boom := errors.New("boom")
	chat := &fakeChat{
		fragments: []api.Fragment{
			api.Content{Text: "Hel"},
			api.Completion{FinalText: "Hello"},
		},
		err: boom,
	}

	ch, wait := beginStream(context.Background(), chat, api.ChatRequest{Query: "hi"}, 7)

	first := wait()
	if fm, ok := first.(fragmentMsg); !ok || fm.turn != 7 || fm.f != (api.Content{Text: "Hel"}) {
		t.Errorf("first message = %#v", first)
	}
	second := waitForStream(ch, 7)()
	if _, ok := second.(fragmentMsg); !ok {
		t.Errorf("second message = %#v, want fragmentMsg", second)
	}
	closed := waitForStream(ch, 7)()
	cm, ok := closed.(streamClosedMsg)
	if !ok || !errors.Is(cm.err, boom) {
		t.Errorf("third message = %#v, want streamClosedMsg with boom", closed)
	}
	after := waitForStream(ch, 7)()
	if cm, ok := after.(streamClosedMsg); !ok || cm.err != nil || cm.turn != 7 {
		t.Errorf("closed channel message = %#v, want clean streamClosedMsg", after)
	}
}

func TestBeginStreamCancelled(t *testing.T) {
	chat := &fakeChat{block: true}
	ctx, cancel := context.WithCancel(context.Background())
	ch, _ := beginStream(ctx, chat, api.ChatRequest{}, 1)
	cancel()

	timeout := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-timeout:
			t.Fatal("stream channel was not closed after cancel")
		}
	}
}

// ─── Turn lifecycle ─────────────────────────────────────────────────────────

func TestTurnHoldsAnswerUntilReasoningIsShown(t *testing.T) {
	m := newTestModel(&fakeChat{})
	m = startTurn(t, m, "what is this?")
	id := m.turn.id

	if m.mode != modeStreaming {
		t.Fatalf("mode = %d, want modeStreaming", m.mode)
	}
	if !m.turn.resp.Loading {
		t.Error("loading indicator should show until the first fragment")
	}

	m = update(t, m, fragmentMsg{turn: id, f: api.ReasoningStep{Title: "Searching web", Body: "Looking around here"}})
	m = update(t, m, fragmentMsg{turn: id, f: api.Completion{
		FinalText: "The answer is 42",
		Sources:   []api.Source{{URL: "https://a.example"}},
	}})
	m = update(t, m, streamClosedMsg{turn: id})

	if m.turn == nil {
		t.Fatal("turn finished while a reveal was still running")
	}
	if m.turn.resp.Content != nil {
		t.Error("answer rendered before the reasoning finished")
	}

	resp := m.turn.resp
	m = fireAll(t, m)

	if m.turn != nil || m.mode != modeIdle {
		t.Fatalf("turn = %v, mode = %d; want finished and idle", m.turn, m.mode)
	}
	if m.last != resp {
		t.Error("last should hold the finished response")
	}
	if resp.Content == nil || resp.Content.Markdown != "The answer is 42" {
		t.Errorf("content = %+v", resp.Content)
	}
	if resp.Sources == nil || len(resp.Sources.Sources) != 1 {
		t.Errorf("sources = %+v", resp.Sources)
	}
	if !resp.Reasoning.Complete || resp.Reasoning.Steps[0].Visible != "Looking around here" {
		t.Errorf("reasoning = %+v", resp.Reasoning)
	}
}

func TestTurnWithoutReasoningFinishesOnClose(t *testing.T) {
	m := newTestModel(&fakeChat{})
	m = startTurn(t, m, "hi")
	id := m.turn.id

	m = update(t, m, fragmentMsg{turn: id, f: api.Content{Text: "Hel"}})
	if m.turn.resp.Content.Markdown != "Hel" {
		t.Errorf("content = %q, want Hel", m.turn.resp.Content.Markdown)
	}
	m = update(t, m, fragmentMsg{turn: id, f: api.Completion{FinalText: "Hello"}})
	m = update(t, m, streamClosedMsg{turn: id})

	if m.turn != nil || m.mode != modeIdle {
		t.Fatal("turn should finish when the stream closes")
	}
	if m.last.Content.Markdown != "Hello" {
		t.Errorf("content = %q, want Hello", m.last.Content.Markdown)
	}
}

func TestUpstreamErrorFinishesTurn(t *testing.T) {
	m := newTestModel(&fakeChat{})
	m = startTurn(t, m, "hi")
	id := m.turn.id

	m = update(t, m, fragmentMsg{turn: id, f: api.ReasoningStep{Title: "Step", Body: "one two three"}})
	m = update(t, m, fragmentMsg{turn: id, f: api.UpstreamError{Message: "rate limited"}})

	if m.turn != nil || m.mode != modeIdle {
		t.Fatal("an upstream error should finish the turn")
	}
	if m.last.Err == nil || m.last.Err.Message != "rate limited" {
		t.Errorf("error bubble = %+v", m.last.Err)
	}
	if got := m.last.Reasoning.Steps[0].Visible; got != "one two three" {
		t.Errorf("stopped reveal shows %q, want full text", got)
	}
}

func TestTransportErrorShowsGenericMessage(t *testing.T) {
	m := newTestModel(&fakeChat{})
	m = startTurn(t, m, "hi")

	m = update(t, m, streamClosedMsg{turn: m.turn.id, err: errors.New("connection refused")})

	if m.turn != nil {
		t.Fatal("turn should finish")
	}
	if m.last.Err == nil || m.last.Err.Message != coordinator.GenericErrorMessage {
		t.Fatalf("error bubble = %+v", m.last.Err)
	}
	if m.last.Err.Detail != "connection refused" {
		t.Errorf("detail = %q", m.last.Err.Detail)
	}
	if m.last.Loading {
		t.Error("loading indicator left on after failure")
	}
}

func TestEscCancelsTurn(t *testing.T) {
	m := newTestModel(&fakeChat{block: true})
	m = startTurn(t, m, "hi")
	id := m.turn.id

	m = update(t, m, fragmentMsg{turn: id, f: api.ReasoningStep{Title: "Step", Body: "a b c d"}})
	resp := m.turn.resp
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})

	if m.turn != nil || m.mode != modeIdle {
		t.Fatal("Esc should end the turn")
	}
	if resp.Err != nil {
		t.Errorf("cancel should not show an error bubble, got %+v", resp.Err)
	}
	if got := resp.Reasoning.Steps[0].Visible; got != "a b c d" {
		t.Errorf("cancelled reveal shows %q, want full text", got)
	}
}

func TestStaleMessagesAreIgnored(t *testing.T) {
	m := newTestModel(&fakeChat{})
	m = startTurn(t, m, "first")
	m = update(t, m, streamClosedMsg{turn: m.turn.id})
	if m.turn != nil {
		t.Fatal("first turn should be finished")
	}

	m = startTurn(t, m, "second")
	id := m.turn.id

	m = update(t, m, fragmentMsg{turn: id - 1, f: api.Content{Text: "old"}})
	m = update(t, m, streamClosedMsg{turn: id - 1})
	m = update(t, m, revealTickMsg{turn: id - 1, id: 1})

	if m.turn == nil || m.turn.id != id {
		t.Fatal("stale messages ended the current turn")
	}
	if m.turn.resp.Content != nil {
		t.Error("stale content reached the current turn")
	}
}

func TestStartTurnSendsSessionAndURLs(t *testing.T) {
	chat := &fakeChat{}
	m := newTestModel(chat)
	m = startTurn(t, m, "hello")

	// The fake returns at once, so reading the channel waits for ChatStream.
	<-m.turn.ch

	reqs := chat.requests()
	if len(reqs) != 1 {
		t.Fatalf("got %d requests, want 1", len(reqs))
	}
	req := reqs[0]
	if req.Query != "hello" {
		t.Errorf("query = %q", req.Query)
	}
	if req.SessionID != m.session.ID() {
		t.Errorf("session = %q, want %q", req.SessionID, m.session.ID())
	}
	if len(req.URLs) != 1 || req.URLs[0] != "https://docs.example.com" {
		t.Errorf("urls = %v", req.URLs)
	}
}

func TestEnterIgnoredWhileStreaming(t *testing.T) {
	m := newTestModel(&fakeChat{block: true})
	m = startTurn(t, m, "first")
	seq := m.turnSeq

	m.input.SetValue("second")
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	if m.turnSeq != seq {
		t.Error("Enter started a new turn while streaming")
	}
	m.turn.cancel()
}

// ─── Commands ───────────────────────────────────────────────────────────────

func TestDispatchCommand(t *testing.T) {
	for _, input := range []string{"/help", "/h", "/config", "/session", "/reasoning", "/sources", "/urls", "/unknown"} {
		t.Run(input, func(t *testing.T) {
			m := newTestModel(&fakeChat{})
			result, cmd := m.dispatchCommand(input)
			rm := result.(model)
			if rm.mode != modeIdle {
				t.Errorf("mode = %d, want modeIdle", rm.mode)
			}
			if cmd == nil {
				t.Error("expected output for", input)
			}
		})
	}
}

func TestDispatchInputAsks(t *testing.T) {
	m := newTestModel(&fakeChat{block: true})
	result, _ := m.dispatchInput("how do I start?")
	rm := result.(model)
	if rm.mode != modeStreaming || rm.turn == nil {
		t.Fatal("plain input should start a turn")
	}
	if rm.turn.query != "how do I start?" {
		t.Errorf("query = %q", rm.turn.query)
	}
	rm.turn.cancel()
}

func TestAskWithoutClient(t *testing.T) {
	m := newTestModel(nil)
	m.client = nil
	result, cmd := m.cmdAsk("hello")
	rm := result.(model)
	if rm.turn != nil || rm.mode != modeIdle {
		t.Error("no turn should start without a client")
	}
	if cmd == nil {
		t.Error("expected a configuration hint")
	}
}

func TestClearResetsSession(t *testing.T) {
	m := newTestModel(&fakeChat{})
	m = startTurn(t, m, "hi")
	m = update(t, m, streamClosedMsg{turn: m.turn.id})
	before := m.session.ID()

	result, _ := m.cmdClear()
	rm := result.(model)
	if rm.session.ID() == before {
		t.Error("session ID should change on /clear")
	}
	if !strings.HasPrefix(rm.session.ID(), "session_") {
		t.Errorf("session ID = %q", rm.session.ID())
	}
	if rm.last != nil {
		t.Error("/clear should forget the last answer")
	}
}

func TestURLsCommand(t *testing.T) {
	m := newTestModel(&fakeChat{})
	orig := m.cfg

	result, _ := m.cmdURLs([]string{"https://a.example", "https://b.example"})
	rm := result.(model)
	if len(rm.cfg.URLs) != 2 || rm.cfg.URLs[1] != "https://b.example" {
		t.Errorf("urls = %v", rm.cfg.URLs)
	}
	if len(orig.URLs) != 1 {
		t.Error("/urls should not modify the loaded config")
	}

	result, _ = rm.cmdURLs([]string{"none"})
	rm = result.(model)
	if len(rm.cfg.URLs) != 0 {
		t.Errorf("urls = %v, want none", rm.cfg.URLs)
	}
}

func TestReasoningAndSourcesAfterTurn(t *testing.T) {
	m := newTestModel(&fakeChat{})
	m = startTurn(t, m, "hi")
	id := m.turn.id
	m = update(t, m, fragmentMsg{turn: id, f: api.ReasoningStep{Title: "Searching web", Body: "x"}})
	m = update(t, m, fragmentMsg{turn: id, f: api.Completion{FinalText: "done", Sources: []api.Source{{URL: "https://a.example"}}}})
	m = update(t, m, streamClosedMsg{turn: id})
	m = fireAll(t, m)

	if m.last == nil {
		t.Fatal("no finished response")
	}
	if out := m.last.ExpandedReasoning(m.width); !strings.Contains(out, "1. Searching web") {
		t.Errorf("expanded reasoning = %q", out)
	}
	if out := m.last.ExpandedSources(); !strings.Contains(out, "https://a.example") {
		t.Errorf("expanded sources = %q", out)
	}
	if hint := expandHint(m.last); hint != "  /reasoning or /sources to expand" {
		t.Errorf("hint = %q", hint)
	}
}

// ─── Input helpers ──────────────────────────────────────────────────────────

func TestMatchCommands(t *testing.T) {
	tests := []struct {
		prefix string
		want   int
	}{
		{"/", len(slashCommands)},
		{"/s", 2},
		{"/SES", 1},
		{"/zzz", 0},
	}
	for _, tt := range tests {
		if got := len(matchCommands(tt.prefix)); got != tt.want {
			t.Errorf("matchCommands(%q) = %d matches, want %d", tt.prefix, got, tt.want)
		}
	}
}

func TestPickMenuItem(t *testing.T) {
	m := newTestModel(&fakeChat{})
	m.input.SetValue("/ses")
	m.trackInput()
	if !m.cmdMenuOpen {
		t.Fatal("menu should open for a slash prefix")
	}
	if !m.pickMenuItem(false) {
		t.Fatal("pick should succeed")
	}
	if m.input.Value() != "/session " {
		t.Errorf("input = %q", m.input.Value())
	}
	if m.cmdMenuOpen {
		t.Error("menu should close after a pick")
	}

	m.input.SetValue("/help")
	if m.pickMenuItem(true) {
		t.Error("Enter on a complete command should run it, not complete it")
	}
}

func TestHistory(t *testing.T) {
	m := newTestModel(&fakeChat{})
	m.remember("one")
	m.remember("two")
	m.remember("two")
	if len(m.history) != 2 {
		t.Fatalf("history = %v", m.history)
	}

	m.input.SetValue("draft")
	m.moveUp()
	if m.input.Value() != "two" {
		t.Errorf("up = %q, want two", m.input.Value())
	}
	m.moveUp()
	m.moveUp()
	if m.input.Value() != "one" {
		t.Errorf("up at top = %q, want one", m.input.Value())
	}
	m.moveDown()
	m.moveDown()
	if m.input.Value() != "draft" {
		t.Errorf("down past end = %q, want the saved draft", m.input.Value())
	}
}

// ─── Rendering ──────────────────────────────────────────────────────────────

func TestRenderWelcome(t *testing.T) {
	cfg := &config.Config{APIURL: "http://chat.test/api", CompanyName: "Acme"}
	out := renderWelcome("1.2.3", cfg, 80)
	for _, want := range []string{"Acme", "crawlchat v1.2.3", "http://chat.test/api", "? for help"} {
		if !strings.Contains(out, want) {
			t.Errorf("welcome missing %q:\n%s", want, out)
		}
	}

	out = renderWelcome("1.2.3", &config.Config{}, 80)
	if !strings.Contains(out, "set api_url") {
		t.Errorf("welcome without endpoint should hint at set api_url:\n%s", out)
	}
}

func TestRenderGreeting(t *testing.T) {
	out := renderGreeting("")
	if !strings.Contains(out, config.DefaultCompanyName) || !strings.Contains(out, greeting) {
		t.Errorf("greeting = %q", out)
	}
}

func TestTruncateMiddle(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"abcdefghij", 7, "ab...ij"},
		{"abcdefghij", 4, "abcdefghij"},
	}
	for _, tt := range tests {
		if got := truncateMiddle(tt.in, tt.n); got != tt.want {
			t.Errorf("truncateMiddle(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestView(t *testing.T) {
	m := newTestModel(&fakeChat{block: true})
	if !strings.Contains(m.View(), "? for help") {
		t.Error("idle view should show the help hint")
	}

	m = startTurn(t, m, "hi")
	view := m.View()
	if !strings.Contains(view, "Waiting for response...") || !strings.Contains(view, "Esc cancel") {
		t.Errorf("streaming view = %q", view)
	}
	m.turn.cancel()
}
